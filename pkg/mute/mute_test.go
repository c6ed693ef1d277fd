package mute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hh, mm int) time.Time {
	return time.Date(2024, 6, 1, hh, mm, 0, 0, time.UTC)
}

func TestParseWindow(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		w, err := ParseWindow("22:00", "06:00")
		require.NoError(t, err)
		assert.Equal(t, 22*60, w.From)
		assert.Equal(t, 6*60, w.To)
	})

	t.Run("invalid from", func(t *testing.T) {
		_, err := ParseWindow("25:00", "06:00")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse mute from")
	})

	t.Run("invalid to", func(t *testing.T) {
		_, err := ParseWindow("22:00", "6am")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse mute to")
	})
}

func TestWindow_Contains(t *testing.T) {
	t.Run("wrapping midnight", func(t *testing.T) {
		w, err := ParseWindow("22:00", "06:00")
		require.NoError(t, err)

		assert.True(t, w.Contains(at(23, 30)))
		assert.True(t, w.Contains(at(5, 59)))
		assert.True(t, w.Contains(at(22, 0)), "lower bound inclusive")
		assert.True(t, w.Contains(at(0, 0)))
		assert.False(t, w.Contains(at(12, 0)))
		assert.False(t, w.Contains(at(6, 0)), "upper bound exclusive")
		assert.False(t, w.Contains(at(21, 59)))
	})

	t.Run("same-day window", func(t *testing.T) {
		w, err := ParseWindow("09:00", "17:30")
		require.NoError(t, err)

		assert.True(t, w.Contains(at(9, 0)))
		assert.True(t, w.Contains(at(12, 0)))
		assert.True(t, w.Contains(at(17, 29)))
		assert.False(t, w.Contains(at(17, 30)))
		assert.False(t, w.Contains(at(8, 59)))
		assert.False(t, w.Contains(at(23, 0)))
	})

	t.Run("zero-width window never mutes", func(t *testing.T) {
		w, err := ParseWindow("10:00", "10:00")
		require.NoError(t, err)

		for hh := 0; hh < 24; hh++ {
			assert.False(t, w.Contains(at(hh, 0)))
		}
	})
}
