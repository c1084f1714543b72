package valve

import (
	"time"

	"golang.org/x/exp/slices"
)

// backlog is the arrival-ordered queue of withheld frames. It is not
// safe for concurrent use; Valve guards it with backlogMu.
type backlog[T any] struct {
	frames []Frame[T]
}

func (b *backlog[T]) len() int {
	return len(b.frames)
}

func (b *backlog[T]) push(f Frame[T]) {
	b.frames = append(b.frames, f)
}

// prune drops head frames older than maxHistory relative to current and
// returns how many were dropped. A head that is not strictly older than
// current stops the scan.
func (b *backlog[T]) prune(current, maxHistory time.Duration) int {
	n := 0
	for n < len(b.frames) {
		head := b.frames[n].Timestamp
		if current > head && current-head > maxHistory {
			n++
			continue
		}
		break
	}
	if n == 0 {
		return 0
	}
	clear(b.frames[:n])
	b.frames = b.frames[n:]
	return n
}

// firstKeyframe returns the index of the oldest keyframe, or -1.
func (b *backlog[T]) firstKeyframe() int {
	return slices.IndexFunc(b.frames, func(f Frame[T]) bool { return f.Keyframe })
}

// take hands the queued frames to the caller and leaves the backlog empty.
func (b *backlog[T]) take() []Frame[T] {
	frames := b.frames
	b.frames = nil
	return frames
}

// span is the timestamp distance between the oldest and newest frame.
func (b *backlog[T]) span() time.Duration {
	if len(b.frames) < 2 {
		return 0
	}
	return b.frames[len(b.frames)-1].Timestamp - b.frames[0].Timestamp
}

func (b *backlog[T]) timestamps() []time.Duration {
	ts := make([]time.Duration, len(b.frames))
	for i, f := range b.frames {
		ts[i] = f.Timestamp
	}
	return ts
}
