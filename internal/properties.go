package internal

import (
	"fmt"
	"strings"

	"github.com/Eyevinn/mp2ts-prerollvalve/internal/valve"
	"go.uber.org/zap"
)

// PropertyList collects repeated -set flags.
type PropertyList []string

func (l *PropertyList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *PropertyList) Set(s string) error {
	*l = append(*l, s)
	return nil
}

// Assignment is one property write.
type Assignment struct {
	Property valve.Property
	Value    valve.Value
}

// ParseAssignments reads "name=value" pairs such as "max-history=8000".
func ParseAssignments(list []string) ([]Assignment, error) {
	as := make([]Assignment, 0, len(list))
	for _, item := range list {
		name, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("property %q: want name=value", item)
		}
		p, err := valve.ParseProperty(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		v, err := valve.ParseValue(p, strings.TrimSpace(value))
		if err != nil {
			return nil, err
		}
		as = append(as, Assignment{Property: p, Value: v})
	}
	return as, nil
}

// Traces reports whether frame tracing is on once as is applied on top of
// debug.
func Traces(debug bool, as []Assignment) bool {
	for _, a := range as {
		if a.Property == valve.PropertyDebug {
			debug = a.Value.Bool
		}
	}
	return debug
}

// ApplyAssignments writes as to v in order.
func ApplyAssignments[T any](v *valve.Valve[T], as []Assignment, logger *zap.Logger) {
	for _, a := range as {
		v.Set(a.Property, a.Value)
		logger.Info("property set",
			zap.Stringer("property", a.Property),
			zap.String("value", a.Value.Format(a.Property)))
	}
}
