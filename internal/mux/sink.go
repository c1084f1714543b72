package mux

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Eyevinn/mp2ts-prerollvalve/common"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/demux"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/valve"
	"github.com/asticode/go-astits"
)

// pcrLead is how far ahead of the decode time the PCR is stamped, in ticks.
const pcrLead = common.TimeScale / 10

// Sink is the valve downstream writing frames back out as a transport stream.
// It becomes linked on the first format event and stops accepting frames
// after end of stream.
type Sink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	mx     *astits.Muxer
	stream *demux.StreamInfo
	eos    bool
	frames int
	bytes  int
	onPush func(valve.Frame[*demux.Sample])
}

// Option configures a Sink.
type Option func(*Sink)

// WithPushObserver calls fn for every frame written.
func WithPushObserver(fn func(valve.Frame[*demux.Sample])) Option {
	return func(s *Sink) { s.onPush = fn }
}

func NewSink(ctx context.Context, w io.Writer, opts ...Option) *Sink {
	bw := bufio.NewWriterSize(w, 1000*common.PacketSize)
	s := &Sink{
		w:  bw,
		mx: astits.NewMuxer(ctx, bw, astits.MuxerOptTablesRetransmitPeriod(40)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Push(f valve.Frame[*demux.Sample]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.eos {
		return valve.ErrFlowEOS
	}
	if s.stream == nil {
		return valve.ErrFlowNotLinked
	}

	sample := f.Payload
	af := &astits.PacketAdaptationField{RandomAccessIndicator: f.Keyframe}
	if sample.HasPTS || sample.HasDTS {
		af.HasPCR = true
		af.PCR = &astits.ClockReference{Base: common.AddPTS(sample.DecodeTime(), common.PtsWrap-pcrLead)}
	}
	n, err := s.mx.WriteData(&astits.MuxerData{
		PID:             s.stream.PID,
		AdaptationField: af,
		PES:             sample.PES,
	})
	if err != nil {
		return fmt.Errorf("%w: writing PES on pid %d: %v", valve.ErrFlowError, s.stream.PID, err)
	}
	s.frames++
	s.bytes += n
	if s.onPush != nil {
		s.onPush(f)
	}
	return nil
}

func (s *Sink) PushEvent(ev valve.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case valve.EventFormat:
		info, ok := ev.Data.(*demux.StreamInfo)
		if !ok || info == nil {
			return false
		}
		if s.stream != nil {
			return s.stream.PID == info.PID
		}
		err := s.mx.AddElementaryStream(astits.PMTElementaryStream{
			ElementaryPID: info.PID,
			StreamType:    info.StreamType,
		})
		if err != nil {
			return false
		}
		s.mx.SetPCRPID(info.PID)
		s.stream = info
		return true
	case valve.EventEOS:
		s.eos = true
		return s.w.Flush() == nil
	default:
		return true
	}
}

// Frames returns the number of frames written.
func (s *Sink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Flush writes buffered packets to the underlying writer.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}
