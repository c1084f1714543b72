// Package config loads the preroll valve configuration.
//
// Values are layered: defaults, then an optional YAML file, then command
// line flags that were set explicitly.
//
//	valve:
//	  open: false
//	  max_history_ms: 8000
//	  debug: true
//	pid: 256
//	schedule:
//	  - action: open
//	    at: 20s
//	  - action: close
//	    at: 40s
//	cue:
//	  enabled: true
//	  open_on: out
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Eyevinn/mp2ts-prerollvalve/internal/cue"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/schedule"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/valve"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Valve    ValveConfig      `yaml:"valve"`
	PID      uint16           `yaml:"pid"`
	Schedule []schedule.Entry `yaml:"schedule"`
	Cue      CueConfig        `yaml:"cue"`
}

type ValveConfig struct {
	Open         bool   `yaml:"open"`
	MaxHistoryMs uint64 `yaml:"max_history_ms"`
	Debug        bool   `yaml:"debug"`
}

type CueConfig struct {
	Enabled bool   `yaml:"enabled"`
	OpenOn  string `yaml:"open_on"`
}

func Default() Config {
	return Config{
		Valve: ValveConfig{
			Open:         valve.DefaultOpen,
			MaxHistoryMs: uint64(valve.DefaultMaxHistory / time.Millisecond),
			Debug:        valve.DefaultDebug,
		},
		Cue: CueConfig{OpenOn: string(cue.OpenOnOut)},
	}
}

// Settings converts the valve section.
func (c ValveConfig) Settings() valve.Settings {
	var s valve.Settings
	s.Open = c.Open
	s.Debug = c.Debug
	ms := c.MaxHistoryMs
	if ms > valve.MaxHistoryMillis {
		ms = valve.MaxHistoryMillis
	}
	s.MaxHistory = time.Duration(ms) * time.Millisecond
	return s
}

func (c Config) Validate() error {
	var errs []error
	for i, e := range c.Schedule {
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("schedule[%d]: %w", i, err))
		}
	}
	if _, err := cue.ParseDirection(c.Cue.OpenOn); err != nil {
		errs = append(errs, fmt.Errorf("cue: %w", err))
	}
	if c.PID > 0x1FFF {
		errs = append(errs, fmt.Errorf("pid %d out of range", c.PID))
	}
	return errors.Join(errs...)
}

// Parse decodes YAML on top of the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}
