package demux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Eyevinn/mp2ts-prerollvalve/common"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/valve"
	"github.com/asticode/go-astits"
	slices "golang.org/x/exp/slices"
)

// Sample is the valve payload: one PES packet of the selected stream.
type Sample struct {
	PID    uint16
	Codec  string
	PES    *astits.PESData
	RAI    bool
	PTS    int64
	DTS    int64
	HasPTS bool
	HasDTS bool
}

// DecodeTime returns DTS, falling back to PTS.
func (s *Sample) DecodeTime() int64 {
	if s.HasDTS {
		return s.DTS
	}
	return s.PTS
}

// StreamInfo describes an elementary stream announced in the PMT.
type StreamInfo struct {
	PID        uint16            `json:"pid"`
	Codec      string            `json:"codec"`
	Type       string            `json:"type"`
	StreamType astits.StreamType `json:"-"`
}

// Item is what Reader.Next yields: either the selected stream's description
// (once, when the PMT is seen) or a frame of that stream.
type Item struct {
	Stream *StreamInfo
	Frame  *valve.Frame[*Sample]
}

// PacketHook sees every TS packet before the demuxer does. Returning true
// drops the packet.
type PacketHook func(p *astits.Packet) (skip bool)

type Options struct {
	// PID selects the elementary stream. Zero picks the first video stream.
	PID uint16
	// Hook is called for every packet, e.g. to pick up SCTE-35 cues.
	Hook PacketHook
	// OnPMT receives the elementary streams of the first PMT.
	OnPMT func(streams []StreamInfo, scte35PIDs []uint16)
}

var ErrNoStream = errors.New("no matching elementary stream")

// Reader turns a transport stream into valve frames of one elementary stream.
type Reader struct {
	dmx     *astits.Demuxer
	o       Options
	streams []StreamInfo
	stream  *StreamInfo
	pmtSeen bool
	unwrap  common.Unwrapper
}

func NewReader(ctx context.Context, r io.Reader, o Options) *Reader {
	rd := &Reader{o: o}
	br := bufio.NewReaderSize(r, 1000*common.PacketSize)
	rd.dmx = astits.NewDemuxer(ctx, br, astits.DemuxerOptPacketSkipper(rd.skip))
	return rd
}

func (rd *Reader) skip(p *astits.Packet) bool {
	if rd.o.Hook == nil {
		return false
	}
	return rd.o.Hook(p)
}

// Streams returns the elementary streams listed in the PMT.
func (rd *Reader) Streams() []StreamInfo {
	return rd.streams
}

// Next returns the next item. io.EOF marks the end of the input.
func (rd *Reader) Next() (Item, error) {
	for {
		d, err := rd.dmx.NextData()
		if err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) {
				if !rd.pmtSeen {
					return Item{}, fmt.Errorf("%w: no PMT found", ErrNoStream)
				}
				return Item{}, io.EOF
			}
			return Item{}, fmt.Errorf("reading next data %w", err)
		}

		if !rd.pmtSeen && d.PMT != nil {
			rd.pmtSeen = true
			if err := rd.selectStream(d.PMT); err != nil {
				return Item{}, err
			}
			return Item{Stream: rd.stream}, nil
		}
		if rd.stream == nil || d.PES == nil || d.PID != rd.stream.PID {
			continue
		}
		f := rd.frame(d)
		return Item{Frame: &f}, nil
	}
}

func (rd *Reader) selectStream(pmt *astits.PMTData) error {
	var scte35PIDs []uint16
	for _, es := range pmt.ElementaryStreams {
		if es.StreamType == astits.StreamTypeSCTE35 {
			scte35PIDs = append(scte35PIDs, es.ElementaryPID)
		}
		if info := ParseElementaryStreamInfo(es); info != nil {
			rd.streams = append(rd.streams, *info)
		}
	}
	if rd.o.OnPMT != nil {
		rd.o.OnPMT(rd.streams, scte35PIDs)
	}

	idx := slices.IndexFunc(rd.streams, func(s StreamInfo) bool {
		if rd.o.PID != 0 {
			return s.PID == rd.o.PID
		}
		return s.Type == "video"
	})
	if idx < 0 {
		if rd.o.PID != 0 {
			return fmt.Errorf("%w: pid %d", ErrNoStream, rd.o.PID)
		}
		return fmt.Errorf("%w: no video in PMT", ErrNoStream)
	}
	rd.stream = &rd.streams[idx]
	return nil
}

func (rd *Reader) frame(d *astits.DemuxerData) valve.Frame[*Sample] {
	s := &Sample{PID: d.PID, Codec: rd.stream.Codec, PES: d.PES}
	if fp := d.FirstPacket; fp != nil && fp.AdaptationField != nil {
		s.RAI = fp.AdaptationField.RandomAccessIndicator
	}

	var pts, dts *time.Duration
	if h := d.PES.Header; h != nil && h.OptionalHeader != nil {
		if p := h.OptionalHeader.PTS; p != nil {
			s.PTS, s.HasPTS = p.Base, true
			ts := rd.unwrap.Duration(p.Base)
			pts = &ts
		}
		if p := h.OptionalHeader.DTS; p != nil {
			s.DTS, s.HasDTS = p.Base, true
			ts := rd.unwrap.Duration(p.Base)
			dts = &ts
		}
	}

	key := IsKeyframe(s.Codec, s.RAI, d.PES.Data)
	return valve.NewFrame(s, pts, dts, !key)
}

func ParseElementaryStreamInfo(es *astits.PMTElementaryStream) *StreamInfo {
	var info *StreamInfo
	switch es.StreamType {
	case astits.StreamTypeH264Video:
		info = &StreamInfo{PID: es.ElementaryPID, Codec: CodecAVC, Type: "video"}
	case astits.StreamTypeH265Video:
		info = &StreamInfo{PID: es.ElementaryPID, Codec: CodecHEVC, Type: "video"}
	case astits.StreamTypeAACAudio:
		info = &StreamInfo{PID: es.ElementaryPID, Codec: CodecAAC, Type: "audio"}
	}
	if info != nil {
		info.StreamType = es.StreamType
	}
	return info
}
