package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMakeID(t *testing.T) {
	published := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("guid wins when present", func(t *testing.T) {
		id := MakeID("guid-123", "https://example.com/a", "Title", published)
		assert.Equal(t, "guid-123", id)
	})

	t.Run("stable hash without guid", func(t *testing.T) {
		id1 := MakeID("", "https://example.com/a", "Title", published)
		id2 := MakeID("", "https://example.com/a", "Title", published)
		assert.Equal(t, id1, id2)
		assert.Len(t, id1, 64) // hex sha256
	})

	t.Run("different entries get different ids", func(t *testing.T) {
		id1 := MakeID("", "https://example.com/a", "Title", published)
		id2 := MakeID("", "https://example.com/b", "Title", published)
		assert.NotEqual(t, id1, id2)
	})

	t.Run("link and title boundary is unambiguous", func(t *testing.T) {
		id1 := MakeID("", "https://example.com/ab", "c", time.Time{})
		id2 := MakeID("", "https://example.com/a", "bc", time.Time{})
		assert.NotEqual(t, id1, id2)
	})

	t.Run("zero published time allowed", func(t *testing.T) {
		id := MakeID("", "https://example.com/a", "Title", time.Time{})
		assert.NotEmpty(t, id)
	})
}
