package cue

import (
	"testing"

	"github.com/Comcast/gots/v2"
	"github.com/Comcast/gots/v2/scte35"
	"github.com/Eyevinn/mp2ts-prerollvalve/common"
	"github.com/asticode/go-astits"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeInsert struct {
	scte35.SpliceInsertCommand
	eventID   uint32
	out       bool
	immediate bool
	hasPTS    bool
	pts       gots.PTS
}

func (f fakeInsert) EventID() uint32       { return f.eventID }
func (f fakeInsert) IsOut() bool           { return f.out }
func (f fakeInsert) SpliceImmediate() bool { return f.immediate }
func (f fakeInsert) HasPTS() bool          { return f.hasPTS }
func (f fakeInsert) PTS() gots.PTS         { return f.pts }

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("in")
	require.NoError(t, err)
	require.Equal(t, OpenOnIn, d)
	_, err = ParseDirection("sideways")
	require.Error(t, err)
}

func TestFromInsert(t *testing.T) {
	testCases := []struct {
		name   string
		dir    Direction
		insert fakeInsert
		want   Cue
		ok     bool
	}{
		{"out opens", OpenOnOut, fakeInsert{eventID: 7, out: true, hasPTS: true, pts: 90000}, Cue{PID: 500, EventID: 7, Open: true, PTS: 90000}, true},
		{"in closes", OpenOnOut, fakeInsert{eventID: 8, out: false, immediate: true}, Cue{PID: 500, EventID: 8, Open: false, Immediate: true}, true},
		{"in opens", OpenOnIn, fakeInsert{eventID: 9, out: false, hasPTS: true, pts: 1}, Cue{PID: 500, EventID: 9, Open: true, PTS: 1}, true},
		{"no splice time", OpenOnOut, fakeInsert{eventID: 10, out: true}, Cue{}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := NewWatcher(tc.dir, nil)
			got, ok := w.fromInsert(500, tc.insert)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDue(t *testing.T) {
	w := NewWatcher(OpenOnOut, nil)
	w.pending = []Cue{
		{EventID: 1, Open: true, PTS: 9000},
		{EventID: 2, Open: false, Immediate: true},
		{EventID: 3, Open: false, PTS: 18000},
		{EventID: 4, Open: true, PTS: 3000},
	}

	due := w.Due(common.PtsWrap - 100)
	require.Equal(t, []uint32{2}, eventIDs(due), "pts before wrap is earlier than every cue")

	due = w.Due(9000)
	require.Equal(t, []uint32{1, 4}, eventIDs(due))
	require.Equal(t, 1, w.Pending())

	require.Empty(t, w.Due(17999))
	require.Equal(t, []uint32{3}, eventIDs(w.Due(18000)))
	require.Nil(t, w.Due(20000))
}

func eventIDs(cues []Cue) []uint32 {
	ids := make([]uint32, 0, len(cues))
	for _, c := range cues {
		ids = append(ids, c.EventID)
	}
	return ids
}

func TestInspect(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	w := NewWatcher(OpenOnOut, zap.New(core))
	w.AddPIDs(500)

	pes := &astits.Packet{
		Header:  astits.PacketHeader{PID: 256, PayloadUnitStartIndicator: true},
		Payload: []byte{0x00, 0x00, 0x01, 0xe0},
	}
	require.False(t, w.Inspect(pes))

	broken := &astits.Packet{
		Header:  astits.PacketHeader{PID: 500, PayloadUnitStartIndicator: true},
		Payload: []byte{0x00, 0xFC, 0x30},
	}
	require.True(t, w.Inspect(broken))
	require.Equal(t, 1, logs.Len())
	require.Equal(t, 0, w.Pending())

	continuation := &astits.Packet{
		Header:  astits.PacketHeader{PID: 500},
		Payload: []byte{0xff, 0xff},
	}
	require.True(t, w.Inspect(continuation))

	unknownPID := &astits.Packet{
		Header:  astits.PacketHeader{PID: 600, PayloadUnitStartIndicator: true},
		Payload: []byte{0x00, 0xFC, 0x30},
	}
	require.True(t, w.Inspect(unknownPID), "splice_info tables are recognised without a PMT entry")
}
