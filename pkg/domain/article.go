package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Article represents a single feed entry normalized for delivery
type Article struct {
	ID         string
	Title      string
	Link       string
	Published  time.Time // zero when the feed omits it
	SourceFeed string
}

// MakeID returns a stable identity for an entry. A feed-provided GUID wins;
// entries without one get a hash of link, title and published time so the
// same entry maps to the same id on every fetch.
func MakeID(guid, link, title string, published time.Time) string {
	if guid != "" {
		return guid
	}
	h := sha256.New()
	h.Write([]byte(link))
	h.Write([]byte{0})
	h.Write([]byte(title))
	h.Write([]byte{0})
	if !published.IsZero() {
		h.Write([]byte(published.UTC().Format(time.RFC3339)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SeenRecord is the persisted fact that an article id has been delivered
type SeenRecord struct {
	ID          string    `db:"id"`
	DeliveredAt time.Time `db:"delivered_at"`
}
