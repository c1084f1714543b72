package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	entries, err := Parse("open@20s, close@40s,open@1m")
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{ActionOpen, 20 * time.Second},
		{ActionClose, 40 * time.Second},
		{ActionOpen, time.Minute},
	}, entries)

	_, err = Parse("open20s")
	require.Error(t, err)
	_, err = Parse("toggle@1s")
	require.Error(t, err)
	_, err = Parse("open@soon")
	require.Error(t, err)

	entries, err = Parse("")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDue(t *testing.T) {
	s, err := New([]Entry{
		{ActionClose, 40 * time.Second},
		{ActionOpen, 20 * time.Second},
		{ActionOpen, 60 * time.Second},
		{ActionClose, 80 * time.Second},
	})
	require.NoError(t, err)

	origin := 10 * time.Hour
	require.Empty(t, s.Due(origin))
	require.Empty(t, s.Due(origin+19*time.Second))
	require.Equal(t, []Entry{{ActionOpen, 20 * time.Second}}, s.Due(origin+20*time.Second))
	require.Equal(t, []Entry{
		{ActionClose, 40 * time.Second},
		{ActionOpen, 60 * time.Second},
	}, s.Due(origin+70*time.Second))
	require.Equal(t, 1, s.Remaining())
}

func TestNewRejectsInvalid(t *testing.T) {
	_, err := New([]Entry{{Action: "flip", At: time.Second}})
	require.Error(t, err)
	_, err = New([]Entry{{Action: ActionOpen, At: -time.Second}})
	require.Error(t, err)
}
