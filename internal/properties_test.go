package internal

import (
	"flag"
	"testing"
	"time"

	"github.com/Eyevinn/mp2ts-prerollvalve/internal/valve"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPropertyListFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var list PropertyList
	fs.Var(&list, "set", "")
	require.NoError(t, fs.Parse([]string{"-set", "open=true", "-set", "max-history=8000"}))
	require.Equal(t, PropertyList{"open=true", "max-history=8000"}, list)
	require.Equal(t, "open=true,max-history=8000", list.String())
}

func TestParseAssignments(t *testing.T) {
	as, err := ParseAssignments([]string{"open=true", " max-history = 8000", "debug=false"})
	require.NoError(t, err)
	require.Equal(t, []Assignment{
		{Property: valve.PropertyOpen, Value: valve.BoolValue(true)},
		{Property: valve.PropertyMaxHistory, Value: valve.MillisValue(8000)},
		{Property: valve.PropertyDebug, Value: valve.BoolValue(false)},
	}, as)

	for _, bad := range []string{"open", "max_history=10", "max-history=-1", "debug=maybe"} {
		_, err := ParseAssignments([]string{bad})
		require.Error(t, err, bad)
	}
	_, err = ParseAssignments([]string{"volume=11"})
	require.ErrorIs(t, err, valve.ErrUnknownProperty)
}

func TestTraces(t *testing.T) {
	on := Assignment{Property: valve.PropertyDebug, Value: valve.BoolValue(true)}
	off := Assignment{Property: valve.PropertyDebug, Value: valve.BoolValue(false)}
	require.False(t, Traces(false, nil))
	require.True(t, Traces(true, nil))
	require.True(t, Traces(false, []Assignment{off, on}))
	require.False(t, Traces(true, []Assignment{on, off}))
}

func TestApplyAssignments(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	v, err := valve.New[int](valve.DownstreamFuncs[int]{})
	require.NoError(t, err)
	as, err := ParseAssignments([]string{"max-history=250", "open=true"})
	require.NoError(t, err)

	ApplyAssignments(v, as, zap.New(core))
	require.True(t, v.Open())
	require.Equal(t, 250*time.Millisecond, v.MaxHistory())

	set := logs.FilterMessage("property set").All()
	require.Len(t, set, 2)
	require.Equal(t, "max-history", set[0].ContextMap()["property"])
	require.Equal(t, "250", set[0].ContextMap()["value"])
}
