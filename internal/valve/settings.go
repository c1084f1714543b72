package valve

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	DefaultOpen       = false
	DefaultMaxHistory = 5000 * time.Millisecond
	DefaultDebug      = false

	// MaxHistoryMillis is the largest max-history representable as a duration.
	MaxHistoryMillis = uint64(math.MaxInt64 / int64(time.Millisecond))
)

// Settings is the controller-facing state of a valve.
type Settings struct {
	Open       bool
	MaxHistory time.Duration
	Debug      bool
}

// DefaultSettings returns a closed valve keeping 5s of history.
func DefaultSettings() Settings {
	return Settings{
		Open:       DefaultOpen,
		MaxHistory: DefaultMaxHistory,
		Debug:      DefaultDebug,
	}
}

// Validate reports settings a valve cannot run with.
func (s Settings) Validate() error {
	if s.MaxHistory < 0 {
		return ErrNegativeHistory
	}
	return nil
}

// Property enumerates the settable values of a valve.
type Property int

const (
	PropertyOpen Property = iota
	PropertyMaxHistory
	PropertyDebug
)

// Properties lists every property in declaration order.
var Properties = []Property{PropertyOpen, PropertyMaxHistory, PropertyDebug}

// String returns the external property name.
func (p Property) String() string {
	switch p {
	case PropertyOpen:
		return "open"
	case PropertyMaxHistory:
		return "max-history"
	case PropertyDebug:
		return "debug"
	default:
		return fmt.Sprintf("property(%d)", int(p))
	}
}

// ParseProperty maps an external name to a Property.
func ParseProperty(name string) (Property, error) {
	for _, p := range Properties {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
}

// Value is a property value. Bool is used by open and debug, Millis by
// max-history.
type Value struct {
	Bool   bool
	Millis uint64
}

// BoolValue wraps a boolean property value.
func BoolValue(b bool) Value { return Value{Bool: b} }

// MillisValue wraps a max-history value in milliseconds.
func MillisValue(ms uint64) Value { return Value{Millis: ms} }

// ParseValue parses the textual form of a value for p.
func ParseValue(p Property, s string) (Value, error) {
	switch p {
	case PropertyOpen, PropertyDebug:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s=%q", ErrInvalidValue, p, s)
		}
		return BoolValue(b), nil
	case PropertyMaxHistory:
		ms, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s=%q", ErrInvalidValue, p, s)
		}
		return MillisValue(ms), nil
	default:
		panic(fmt.Sprintf("valve: unknown %s", p))
	}
}

// Format renders v the way ParseValue reads it.
func (v Value) Format(p Property) string {
	switch p {
	case PropertyOpen, PropertyDebug:
		return strconv.FormatBool(v.Bool)
	case PropertyMaxHistory:
		return strconv.FormatUint(v.Millis, 10)
	default:
		panic(fmt.Sprintf("valve: unknown %s", p))
	}
}

func (s Settings) get(p Property) Value {
	switch p {
	case PropertyOpen:
		return BoolValue(s.Open)
	case PropertyMaxHistory:
		return MillisValue(uint64(s.MaxHistory / time.Millisecond))
	case PropertyDebug:
		return BoolValue(s.Debug)
	default:
		panic(fmt.Sprintf("valve: unknown %s", p))
	}
}

func (s *Settings) set(p Property, v Value) {
	switch p {
	case PropertyOpen:
		s.Open = v.Bool
	case PropertyMaxHistory:
		ms := v.Millis
		if ms > MaxHistoryMillis {
			ms = MaxHistoryMillis
		}
		s.MaxHistory = time.Duration(ms) * time.Millisecond
	case PropertyDebug:
		s.Debug = v.Bool
	default:
		panic(fmt.Sprintf("valve: unknown %s", p))
	}
}
