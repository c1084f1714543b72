package valve

import "time"

// Frame is a unit of data passing through the valve. Payload is never
// inspected; only Timestamp and Keyframe drive buffering decisions.
type Frame[T any] struct {
	Payload   T
	Timestamp time.Duration
	Keyframe  bool
}

// NewFrame derives the valve metadata from a buffer's presentation and decode
// times and its delta-unit flag. Timestamp is pts, else dts, else zero.
func NewFrame[T any](payload T, pts, dts *time.Duration, deltaUnit bool) Frame[T] {
	f := Frame[T]{Payload: payload, Keyframe: !deltaUnit}
	switch {
	case pts != nil:
		f.Timestamp = *pts
	case dts != nil:
		f.Timestamp = *dts
	}
	return f
}
