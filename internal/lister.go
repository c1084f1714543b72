package internal

import (
	"context"
	"errors"
	"io"

	"github.com/Eyevinn/mp2ts-prerollvalve/internal/demux"
)

// ListFrames prints one FrameData line per frame of the selected stream,
// with the keyframe decision the valve would make.
func ListFrames(ctx context.Context, w io.Writer, f io.Reader, o Options) error {
	jp := &JsonPrinter{W: w, Indent: o.Indent}
	rd := demux.NewReader(ctx, f, demux.Options{
		PID: uint16(o.PID),
		OnPMT: func(streams []demux.StreamInfo, _ []uint16) {
			for _, s := range streams {
				jp.Print(s, o.ShowStreamInfo)
			}
		},
	})
	var stats *StreamStatistics
	nrPics := 0
dataLoop:
	for {
		select {
		case <-ctx.Done():
			break dataLoop
		default:
		}

		item, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break dataLoop
		}
		if err != nil {
			return err
		}
		if item.Stream != nil {
			stats = NewStreamStatistics(item.Stream)
			continue
		}

		fr := item.Frame
		s := fr.Payload
		fd := FrameData{
			PID:         s.PID,
			RAI:         s.RAI,
			Keyframe:    fr.Keyframe,
			PTS:         s.PTS,
			TimestampMs: millis(fr.Timestamp),
			Size:        len(s.PES.Data),
		}
		if s.HasDTS {
			fd.DTS = s.DTS
		}
		if o.ShowNALU {
			fd.NALUS = demux.NaluTypes(s.Codec, s.PES.Data)
		}
		jp.Print(fd, true)
		stats.Add(s, fr.Keyframe)

		nrPics++
		if o.MaxNrPictures > 0 && nrPics >= o.MaxNrPictures {
			break dataLoop
		}
	}

	if stats != nil {
		jp.PrintStatistics(*stats, o.ShowStatistics)
	}
	return jp.Error()
}
