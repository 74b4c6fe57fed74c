package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStalenessPolicy_NeverRefreshedIsStale(t *testing.T) {
	p := NewStalenessPolicy(DefaultMaxAge)
	for _, now := range []time.Time{{}, time.Now(), time.Unix(0, 0)} {
		require.True(t, p.IsStale(nil, now))
	}
}

func TestStalenessPolicy_Boundaries(t *testing.T) {
	p := NewStalenessPolicy(DefaultMaxAge)
	last := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{name: "29 minutes", elapsed: 29 * time.Minute, want: false},
		{name: "exactly 30 minutes", elapsed: 30 * time.Minute, want: false},
		{name: "30 minutes and a nanosecond", elapsed: 30*time.Minute + time.Nanosecond, want: true},
		{name: "31 minutes", elapsed: 31 * time.Minute, want: true},
		{name: "clock moved back 31 minutes", elapsed: -31 * time.Minute, want: true},
		{name: "clock moved back 5 minutes", elapsed: -5 * time.Minute, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, p.IsStale(&last, last.Add(tc.elapsed)))
		})
	}
}

func TestStalenessPolicy_CustomAndDefaultMaxAge(t *testing.T) {
	last := time.Now()

	short := NewStalenessPolicy(time.Second)
	require.True(t, short.IsStale(&last, last.Add(2*time.Second)))

	unset := StalenessPolicy{}
	require.False(t, unset.IsStale(&last, last.Add(29*time.Minute)))
	require.True(t, unset.IsStale(&last, last.Add(31*time.Minute)))
}
