package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodayUsesClockDay(t *testing.T) {
	fc := NewFakeClock(time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, "2024-05-01", Today(fc))

	fc.Advance(2 * time.Minute)
	assert.Equal(t, "2024-05-02", Today(fc))
}

func TestFakeClockSet(t *testing.T) {
	fc := NewFakeClock(time.Now())
	require.NoError(t, fc.Set("2023-12-31"))
	assert.Equal(t, "2023-12-31", Today(fc))
	assert.Error(t, fc.Set("31/12/2023"))
}
