package valve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPruningBoundProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxHistory := time.Duration(rapid.IntRange(0, 500).Draw(rt, "maxHistoryMs")) * time.Millisecond
		steps := rapid.SliceOfN(rapid.IntRange(0, 120), 1, 200).Draw(rt, "stepsMs")

		v, err := New[int](&recorder{}, WithSettings[int](Settings{MaxHistory: maxHistory}))
		require.NoError(rt, err)

		ts := 0
		input := make([]time.Duration, 0, len(steps))
		for i, step := range steps {
			ts += step
			input = append(input, time.Duration(ts)*time.Millisecond)
			require.NoError(rt, v.OnFrame(fr(i, ts, false)))
		}

		got := v.backlog.timestamps()
		require.NotEmpty(rt, got)
		latest := input[len(input)-1]
		for i, e := range got {
			if i == len(got)-1 {
				continue
			}
			require.LessOrEqual(rt, latest-e, maxHistory)
		}
		// Pruning only ever removes a prefix.
		require.Equal(rt, input[len(input)-len(got):], got)
	})
}

func TestFlushRangeProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		keys := rapid.SliceOfN(rapid.Bool(), 1, 50).Draw(rt, "keyframes")

		r := &recorder{}
		v, err := New[int](r, WithSettings[int](Settings{MaxHistory: time.Hour}))
		require.NoError(rt, err)
		for i, key := range keys {
			require.NoError(rt, v.OnFrame(fr(i, i*40, key)))
		}
		v.SetOpen(true)
		live := len(keys)
		require.NoError(rt, v.OnFrame(fr(live, live*40, false)))

		start := 0
		for i, key := range keys {
			if key {
				start = i
				break
			}
		}
		want := make([]int, 0, len(keys)-start+1)
		for i := start; i <= live; i++ {
			want = append(want, i)
		}
		require.Equal(rt, want, r.ids())
		require.Equal(rt, 0, v.Stats().BacklogFrames)
	})
}

func TestMaxHistoryRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ms := rapid.Uint64Range(0, MaxHistoryMillis).Draw(rt, "ms")
		v, err := New[int](&recorder{})
		require.NoError(rt, err)

		v.Set(PropertyMaxHistory, MillisValue(ms))
		require.Equal(rt, ms, v.Get(PropertyMaxHistory).Millis)
	})
}
