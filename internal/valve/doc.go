/*
Package valve implements a preroll valve: a stream stage that buffers
timestamped frames while closed and, once opened, releases the backlog from
its oldest keyframe before passing live frames straight through.

While closed, each frame is appended to the backlog and frames older than
max-history, measured in stream time against the newest frame, are dropped
from the head. The first frame to arrive after the valve is opened triggers
the flush: everything before the first buffered keyframe is discarded, the
rest is pushed downstream in arrival order, and then the live frame follows.
If no keyframe was buffered the whole backlog is pushed and a warning is
logged. A downstream error aborts the flush, empties the backlog and is
returned to the caller unchanged.

	v, err := valve.New[[]byte](sink,
		valve.WithLogger[[]byte](logger),
		valve.WithSettings[[]byte](valve.Settings{MaxHistory: 8 * time.Second}),
	)
	...
	err = v.OnFrame(valve.NewFrame(data, &pts, nil, isDelta))
	...
	v.SetOpen(true) // from any goroutine
*/
package valve
