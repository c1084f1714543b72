package cue

import (
	"fmt"

	"github.com/Comcast/gots/v2/scte35"
	"github.com/Eyevinn/mp2ts-prerollvalve/common"
	"github.com/asticode/go-astits"
	"go.uber.org/zap"
)

// tableIDSpliceInfo is the table_id of an SCTE-35 splice_info_section.
const tableIDSpliceInfo = 0xFC

// Direction selects which splice_insert opens the valve.
type Direction string

const (
	// OpenOnOut opens on out-of-network splices and closes on returns.
	OpenOnOut Direction = "out"
	// OpenOnIn opens on return-to-network splices and closes on outs.
	OpenOnIn Direction = "in"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case OpenOnOut, OpenOnIn:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown cue direction %q (want out or in)", s)
}

// Cue is a decoded valve command.
type Cue struct {
	PID       uint16 `json:"pid"`
	EventID   uint32 `json:"eventId"`
	Open      bool   `json:"open"`
	Immediate bool   `json:"immediate,omitempty"`
	PTS       int64  `json:"pts,omitempty"`
}

// Watcher picks SCTE-35 splice_insert commands out of the packet flow and
// queues them until the stream reaches their splice time.
type Watcher struct {
	dir     Direction
	pids    map[uint16]bool
	pending []Cue
	logger  *zap.Logger
}

func NewWatcher(dir Direction, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:    dir,
		pids:   make(map[uint16]bool),
		logger: logger.Named("cue"),
	}
}

// AddPIDs marks pids as carrying SCTE-35.
func (w *Watcher) AddPIDs(pids ...uint16) {
	for _, pid := range pids {
		w.pids[pid] = true
	}
}

// Inspect is a demux packet hook. SCTE-35 packets are decoded and dropped;
// every other packet passes through untouched.
func (w *Watcher) Inspect(p *astits.Packet) bool {
	if !w.pids[p.Header.PID] && !isSpliceInfoStart(p) {
		return false
	}
	if !p.Header.PayloadUnitStartIndicator {
		return true
	}
	c, ok, err := w.Decode(p.Header.PID, p.Payload)
	if err != nil {
		w.logger.Warn("cannot parse SCTE35", zap.Uint16("pid", p.Header.PID), zap.Error(err))
		return true
	}
	if ok {
		w.pending = append(w.pending, c)
		w.logger.Info("splice insert queued",
			zap.Uint16("pid", c.PID),
			zap.Uint32("event_id", c.EventID),
			zap.Bool("open", c.Open),
			zap.Bool("immediate", c.Immediate),
			zap.Int64("pts", c.PTS))
	}
	return true
}

func isSpliceInfoStart(p *astits.Packet) bool {
	if !p.Header.PayloadUnitStartIndicator || len(p.Payload) < 2 {
		return false
	}
	pointer := int(p.Payload[0])
	return 1+pointer < len(p.Payload) && p.Payload[1+pointer] == tableIDSpliceInfo
}

// Decode parses a splice_info_section payload, pointer field included.
// Only splice_insert commands produce a cue.
func (w *Watcher) Decode(pid uint16, payload []byte) (Cue, bool, error) {
	msg, err := scte35.NewSCTE35(payload)
	if err != nil {
		return Cue{}, false, err
	}
	insert, ok := msg.CommandInfo().(scte35.SpliceInsertCommand)
	if !ok {
		return Cue{}, false, nil
	}
	c, ok := w.fromInsert(pid, insert)
	return c, ok, nil
}

func (w *Watcher) fromInsert(pid uint16, insert scte35.SpliceInsertCommand) (Cue, bool) {
	c := Cue{
		PID:       pid,
		EventID:   insert.EventID(),
		Open:      insert.IsOut() == (w.dir == OpenOnOut),
		Immediate: insert.SpliceImmediate(),
	}
	if !c.Immediate {
		if !insert.HasPTS() {
			return Cue{}, false
		}
		c.PTS = int64(uint64(insert.PTS()) % common.PtsWrap)
	}
	return c, true
}

// Due removes and returns the queued cues whose splice time is at or before
// pts. Immediate cues are always due.
func (w *Watcher) Due(pts int64) []Cue {
	if len(w.pending) == 0 {
		return nil
	}
	var due []Cue
	kept := w.pending[:0]
	for _, c := range w.pending {
		if c.Immediate || common.SignedPTSDiff(pts, c.PTS) >= 0 {
			due = append(due, c)
			continue
		}
		kept = append(kept, c)
	}
	w.pending = kept
	return due
}

// Pending returns the number of queued cues.
func (w *Watcher) Pending() int {
	return len(w.pending)
}
