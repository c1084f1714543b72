package internal

import (
	"github.com/Eyevinn/mp2ts-prerollvalve/common"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/demux"
)

type StreamStatistics struct {
	Type        string   `json:"streamType"`
	Pid         uint16   `json:"pid"`
	Frames      int      `json:"frames"`
	Keyframes   int      `json:"keyframes"`
	FrameRate   float64  `json:"frameRate"`
	TimeStamps  []int64  `json:"-"`
	MaxStep     int64    `json:"maxStep,omitempty"`
	MinStep     int64    `json:"minStep,omitempty"`
	AvgStep     int64    `json:"avgStep,omitempty"`
	KeyframePTS []int64  `json:"-"`
	GoPDuration float64  `json:"GoPDuration,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

func NewStreamStatistics(info *demux.StreamInfo) *StreamStatistics {
	return &StreamStatistics{Type: info.Codec, Pid: info.PID}
}

// Add records one frame. Frames without timestamps are counted only.
func (s *StreamStatistics) Add(sample *demux.Sample, keyframe bool) {
	s.Frames++
	if keyframe {
		s.Keyframes++
	}
	if !sample.HasPTS && !sample.HasDTS {
		return
	}
	s.TimeStamps = append(s.TimeStamps, sample.DecodeTime())
	if keyframe && sample.HasPTS {
		s.KeyframePTS = append(s.KeyframePTS, sample.PTS)
	}
}

func (p *JsonPrinter) PrintStatistics(s StreamStatistics, show bool) {
	s.calculateFrameRate(common.TimeScale)
	s.calculateGoPDuration(common.TimeScale)
	p.Print(s, show)
}

func sliceMinMaxAverage(values []int64) (min, max, avg int64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	min = values[0]
	max = values[0]
	sum := int64(0)
	for _, number := range values {
		if number < min {
			min = number
		}
		if number > max {
			max = number
		}
		sum += number
	}
	avg = sum / int64(len(values))
	return min, max, avg
}

// CalculateSteps returns the wrap-aware differences between consecutive
// 33-bit timestamps.
func CalculateSteps(timestamps []int64) []int64 {
	if len(timestamps) < 2 {
		return nil
	}

	steps := make([]int64, len(timestamps)-1)
	for i := 0; i < len(timestamps)-1; i++ {
		steps[i] = common.SignedPTSDiff(timestamps[i+1], timestamps[i])
	}
	return steps
}

func (s *StreamStatistics) calculateFrameRate(timescale int64) {
	if len(s.TimeStamps) < 2 {
		s.Errors = append(s.Errors, "too few timestamps to calculate frame rate")
		return
	}

	steps := CalculateSteps(s.TimeStamps)
	minStep, maxStep, avgStep := sliceMinMaxAverage(steps)
	if maxStep != minStep {
		s.Errors = append(s.Errors, "irregular PTS/DTS steps")
		s.MinStep, s.MaxStep, s.AvgStep = minStep, maxStep, avgStep
	}
	if avgStep <= 0 {
		s.Errors = append(s.Errors, "non-increasing timestamps")
		return
	}
	s.FrameRate = float64(timescale) / float64(avgStep)
}

func (s *StreamStatistics) calculateGoPDuration(timescale int64) {
	if len(s.KeyframePTS) < 2 {
		s.Errors = append(s.Errors, "no GoP duration since less than 2 keyframes")
		return
	}
	_, _, step := sliceMinMaxAverage(CalculateSteps(s.KeyframePTS))
	s.GoPDuration = float64(step) / float64(timescale)
}
