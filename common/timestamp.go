package common

import "time"

// Unwrapper turns 33-bit PTS/DTS values into a continuous timeline.
// The first value seen is the origin; later values are placed relative to the
// previous one using the signed wrap-aware difference, so both wrap-around and
// small backwards steps (B-frame PTS reordering) are handled.
type Unwrapper struct {
	started bool
	last    int64
	offset  int64
}

// Unwrap returns the position of pts on the continuous timeline, in ticks.
func (u *Unwrapper) Unwrap(pts int64) int64 {
	if !u.started {
		u.started = true
		u.last = pts
		u.offset = pts
		return pts
	}
	u.offset += SignedPTSDiff(pts, u.last)
	u.last = pts
	return u.offset
}

// Duration is Unwrap converted to a duration.
func (u *Unwrapper) Duration(pts int64) time.Duration {
	return PTSToDuration(u.Unwrap(pts))
}
