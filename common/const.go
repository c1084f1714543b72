package common

import "time"

const (
	PacketSize = 188
	PtsWrap    = 1 << 33
	TimeScale  = 90000
)

func SignedPTSDiff(p2, p1 int64) int64 {
	return (p2-p1+3*PtsWrap/2)%PtsWrap - PtsWrap/2
}

func AddPTS(p1, p2 int64) int64 {
	return (p1 + p2) % PtsWrap
}

// PTSToDuration converts 90kHz ticks to a duration.
// 1 tick = 100000/9 ns, computed this way to stay clear of int64 overflow.
func PTSToDuration(ticks int64) time.Duration {
	return time.Duration(ticks * 100000 / 9)
}
