package internal

// FrameData is one line of the frame listing.
type FrameData struct {
	PID         uint16   `json:"pid"`
	RAI         bool     `json:"rai"`
	Keyframe    bool     `json:"keyframe"`
	PTS         int64    `json:"pts"`
	DTS         int64    `json:"dts,omitempty"`
	TimestampMs float64  `json:"timestampMs"`
	Size        int      `json:"size"`
	NALUS       []string `json:"nalus,omitempty"`
}
