package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.50 KB"},
		{20 * 1024, "20.0 KB"},
		{150 * 1024 * 1024, "150 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bytes(tt.in), "Bytes(%d)", tt.in)
	}
}

func TestMB(t *testing.T) {
	assert.Equal(t, "1.5", MB(1536*1024))
	assert.Equal(t, "12", MB(12*1024*1024+1000))
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "0", Number(0))
	assert.Equal(t, "1,234,567", Number(1234567))
}

func TestInterval(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, ""},
		{30, "30s"},
		{12.5, "12.5s"},
		{90, "1.50min"},
		{900, "15.0min"},
		{5400, "1.50h"},
		{86400, "24.0h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Interval(tt.in), "Interval(%v)", tt.in)
	}
}

func TestDuration(t *testing.T) {
	assert.Equal(t, "45s", Duration(45))
	assert.Equal(t, "1 minute", Duration(60))
	assert.Equal(t, "2 hours", Duration(7300))
	assert.Equal(t, "8 days", Duration(8*86400))
}

func TestAge(t *testing.T) {
	assert.Equal(t, "unknown", Age(0, false))
	assert.Equal(t, "5 seconds ago", Age(5*time.Second, true))
	assert.Equal(t, "1 minute ago", Age(61*time.Second, true))
	assert.Equal(t, "3 hours ago", Age(3*time.Hour+time.Minute, true))
	assert.Equal(t, "1 day ago", Age(30*time.Hour, true))
}

func TestDisabledAge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	assert.Equal(t, "unknown duration", DisabledAge(time.Time{}, now))
	assert.Equal(t, "stats updated today", DisabledAge(now.Add(-2*time.Hour), now))
	assert.Equal(t, "stats 1 day old", DisabledAge(now.Add(-day), now))
	assert.Equal(t, "stats 12 days old", DisabledAge(now.Add(-12*day), now))
	assert.Equal(t, "stats 2 months old", DisabledAge(now.Add(-65*day), now))
	assert.Equal(t, "stats 1 year old", DisabledAge(now.Add(-370*day), now))
	assert.Equal(t, "stats 2 years, 1 month old", DisabledAge(now.Add(-765*day), now))
}

func TestDate(t *testing.T) {
	assert.Equal(t, "", Date(time.Time{}))
	assert.NotEmpty(t, Date(time.Now()))
}
