package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"24h", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"1m", 30 * 24 * time.Hour},
		{"1y", 365 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseWindow(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseWindowRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "d", "7", "7x", "-1d", "1.5d"} {
		_, err := ParseWindow(in)
		assert.Error(t, err, in)
	}
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	got, err := WindowStart(now, "7d")
	require.NoError(t, err)
	assert.Equal(t, now.Add(-7*24*time.Hour), got)
}
