package mux

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Eyevinn/mp2ts-prerollvalve/internal/demux"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/valve"
	"github.com/asticode/go-astits"
	"github.com/stretchr/testify/require"
)

var videoInfo = &demux.StreamInfo{
	PID:        256,
	Codec:      demux.CodecAVC,
	Type:       "video",
	StreamType: astits.StreamTypeH264Video,
}

func sample(pts int64, key bool) valve.Frame[*demux.Sample] {
	naluHeader := byte(0x41)
	if key {
		naluHeader = 0x65
	}
	s := &demux.Sample{
		PID:    256,
		Codec:  demux.CodecAVC,
		PTS:    pts,
		HasPTS: true,
		PES: &astits.PESData{
			Header: &astits.PESHeader{
				StreamID: 0xe0,
				OptionalHeader: &astits.PESOptionalHeader{
					MarkerBits:      2,
					PTSDTSIndicator: astits.PTSDTSIndicatorOnlyPTS,
					PTS:             &astits.ClockReference{Base: pts},
				},
			},
			Data: []byte{0, 0, 0, 1, 0x09, 0xf0, 0, 0, 0, 1, naluHeader, 0x88},
		},
	}
	ts := time.Duration(pts) * time.Second / 90000
	return valve.NewFrame(s, &ts, nil, !key)
}

func TestSinkRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	var observed []int64
	s := NewSink(context.Background(), &buf, WithPushObserver(func(f valve.Frame[*demux.Sample]) {
		observed = append(observed, f.Payload.PTS)
	}))

	require.ErrorIs(t, s.Push(sample(3600, true)), valve.ErrFlowNotLinked)
	require.True(t, s.PushEvent(valve.Event{Type: valve.EventStreamStart}))
	require.False(t, s.PushEvent(valve.Event{Type: valve.EventFormat, Data: "not a stream"}))
	require.True(t, s.PushEvent(valve.Event{Type: valve.EventFormat, Data: videoInfo}))
	require.True(t, s.PushEvent(valve.Event{Type: valve.EventFormat, Data: videoInfo}), "same stream again")

	for i, key := range []bool{true, false, false} {
		require.NoError(t, s.Push(sample(int64(90000+i*3600), key)))
	}
	require.True(t, s.PushEvent(valve.Event{Type: valve.EventEOS}))
	require.ErrorIs(t, s.Push(sample(100800, false)), valve.ErrFlowEOS)
	require.Equal(t, 3, s.Frames())
	require.Equal(t, []int64{90000, 93600, 97200}, observed)

	rd := demux.NewReader(context.Background(), bytes.NewReader(buf.Bytes()), demux.Options{})
	var pts []int64
	var keys []bool
	for {
		item, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if item.Frame != nil {
			pts = append(pts, item.Frame.Payload.PTS)
			keys = append(keys, item.Frame.Keyframe)
		}
	}
	require.Equal(t, []int64{90000, 93600, 97200}, pts)
	require.Equal(t, []bool{true, false, false}, keys)
}

func TestSinkRejectsOtherStream(t *testing.T) {
	s := NewSink(context.Background(), io.Discard)
	require.True(t, s.PushEvent(valve.Event{Type: valve.EventFormat, Data: videoInfo}))
	other := *videoInfo
	other.PID = 300
	require.False(t, s.PushEvent(valve.Event{Type: valve.EventFormat, Data: &other}))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSinkWriteFailure(t *testing.T) {
	s := NewSink(context.Background(), failingWriter{})
	require.True(t, s.PushEvent(valve.Event{Type: valve.EventFormat, Data: videoInfo}))
	require.NoError(t, s.Push(sample(3600, true)), "buffered")
	require.Error(t, s.Flush())
	require.False(t, s.PushEvent(valve.Event{Type: valve.EventEOS}))
}
