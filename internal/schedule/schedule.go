package schedule

import (
	"fmt"
	"strings"
	"time"

	slices "golang.org/x/exp/slices"
)

type Action string

const (
	ActionOpen  Action = "open"
	ActionClose Action = "close"
)

// Entry opens or closes the valve At a stream-time offset from the first
// frame.
type Entry struct {
	Action Action        `yaml:"action" json:"action"`
	At     time.Duration `yaml:"at" json:"at"`
}

func (e Entry) Validate() error {
	if e.Action != ActionOpen && e.Action != ActionClose {
		return fmt.Errorf("unknown schedule action %q", e.Action)
	}
	if e.At < 0 {
		return fmt.Errorf("negative schedule offset %s", e.At)
	}
	return nil
}

// Schedule replays a fixed open/close cadence against stream time.
type Schedule struct {
	entries []Entry
	origin  time.Duration
	started bool
}

// New validates entries and orders them by offset, keeping the given order
// for equal offsets.
func New(entries []Entry) (*Schedule, error) {
	sorted := slices.Clone(entries)
	for _, e := range sorted {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})
	return &Schedule{entries: sorted}, nil
}

// Parse reads the compact form "open@20s,close@40s".
func Parse(s string) ([]Entry, error) {
	var entries []Entry
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		action, at, ok := strings.Cut(part, "@")
		if !ok {
			return nil, fmt.Errorf("schedule entry %q: want action@offset", part)
		}
		d, err := time.ParseDuration(at)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", part, err)
		}
		e := Entry{Action: Action(action), At: d}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Due returns and consumes the entries reached at stream time ts. The first
// call fixes the origin.
func (s *Schedule) Due(ts time.Duration) []Entry {
	if !s.started {
		s.started = true
		s.origin = ts
	}
	n := 0
	for n < len(s.entries) && s.origin+s.entries[n].At <= ts {
		n++
	}
	if n == 0 {
		return nil
	}
	due := s.entries[:n]
	s.entries = s.entries[n:]
	return due
}

// Remaining returns the number of entries not yet due.
func (s *Schedule) Remaining() int {
	return len(s.entries)
}
