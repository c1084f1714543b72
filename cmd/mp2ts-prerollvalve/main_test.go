package main

import (
	"flag"
	"testing"
	"time"

	"github.com/Eyevinn/mp2ts-prerollvalve/internal/valve"
	"github.com/stretchr/testify/require"
)

func TestParseOptionsDefaults(t *testing.T) {
	o := parseOptions()
	require.Equal(t, uint64(valve.DefaultMaxHistory/time.Millisecond), o.MaxHistoryMs)
	require.Equal(t, valve.DefaultOpen, o.Open)
	require.Equal(t, valve.DefaultDebug, o.Debug)
	require.Equal(t, "5000", flag.Lookup("max-history").DefValue)
	require.Empty(t, o.Properties)
}
