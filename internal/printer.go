package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Eyevinn/mp2ts-prerollvalve/internal/valve"
)

type JsonPrinter struct {
	W        io.Writer
	Indent   bool
	AccError error
}

func (p *JsonPrinter) Print(data any, show bool) {
	if !show {
		return
	}
	var out []byte
	var err error
	if p.AccError != nil {
		return
	}
	if p.Indent {
		out, err = json.MarshalIndent(data, "", "  ")
	} else {
		out, err = json.Marshal(data)
	}
	if err != nil {
		p.AccError = err
		return
	}
	_, p.AccError = fmt.Fprintln(p.W, string(out))
}

func (p *JsonPrinter) Error() error {
	return p.AccError
}

// FlushInfo is the printed form of a valve flush.
type FlushInfo struct {
	Flush     string  `json:"flush"`
	Queued    int     `json:"queued"`
	Start     int     `json:"start"`
	Forwarded int     `json:"forwarded"`
	Discarded int     `json:"discarded"`
	Degraded  bool    `json:"degraded,omitempty"`
	FromMs    float64 `json:"fromMs"`
	ToMs      float64 `json:"toMs"`
	Error     string  `json:"error,omitempty"`
}

func (p *JsonPrinter) PrintFlush(r valve.FlushReport, show bool) {
	fi := FlushInfo{
		Flush:     r.ID,
		Queued:    r.Queued,
		Start:     r.Start,
		Forwarded: r.Forwarded,
		Discarded: r.Discarded,
		Degraded:  r.Degraded,
		FromMs:    millis(r.From),
		ToMs:      millis(r.To),
	}
	if r.Err != nil {
		fi.Error = r.Err.Error()
	}
	p.Print(fi, show)
}

// ValveInfo is the printed form of the valve counters.
type ValveInfo struct {
	Open            bool    `json:"open"`
	MaxHistoryMs    uint64  `json:"maxHistoryMs"`
	FramesReceived  uint64  `json:"framesReceived"`
	FramesForwarded uint64  `json:"framesForwarded"`
	FramesPruned    uint64  `json:"framesPruned"`
	FramesDiscarded uint64  `json:"framesDiscarded"`
	Flushes         uint64  `json:"flushes"`
	BacklogFrames   int     `json:"backlogFrames"`
	BacklogSpanMs   float64 `json:"backlogSpanMs"`
}

func (p *JsonPrinter) PrintValve(s valve.Settings, st valve.Stats, show bool) {
	p.Print(ValveInfo{
		Open:            s.Open,
		MaxHistoryMs:    uint64(s.MaxHistory / time.Millisecond),
		FramesReceived:  st.FramesReceived,
		FramesForwarded: st.FramesForwarded,
		FramesPruned:    st.FramesPruned,
		FramesDiscarded: st.FramesDiscarded,
		Flushes:         st.Flushes,
		BacklogFrames:   st.BacklogFrames,
		BacklogSpanMs:   millis(st.BacklogSpan),
	}, show)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
