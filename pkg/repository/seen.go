package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/feedmx/feedmx/pkg/domain"
)

// SeenRepository owns the delivered-article state. It is the only writer of
// seen records; a record is created once a delivery is confirmed and never
// mutated afterwards.
type SeenRepository struct {
	db *sqlx.DB
}

// NewSeenRepository creates a new seen-item repository
func NewSeenRepository(db *sqlx.DB) *SeenRepository {
	return &SeenRepository{db: db}
}

// IsSeen reports whether the article id was already delivered
func (r *SeenRepository) IsSeen(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM seen WHERE id = ?)", id)
	if err != nil {
		return false, fmt.Errorf("check seen %s: %w", id, err)
	}
	return exists, nil
}

// MarkSeen records a confirmed delivery. Marking an already-seen id is a
// no-op, so concurrent marks for the same id cannot double-insert. Lock/busy
// errors are retried with backoff.
func (r *SeenRepository) MarkSeen(ctx context.Context, id string, deliveredAt time.Time) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO seen (id, delivered_at) VALUES (?, ?)",
			id, deliveredAt.UTC())
		if err != nil {
			if isLockError(err) {
				return err // retried with backoff
			}
			return fmt.Errorf("%w: mark seen %s: %w", errNonRetryable, id, err)
		}
		return nil
	}, errNonRetryable)
}

// GetSeen retrieves a seen record by article id, sql.ErrNoRows if absent
func (r *SeenRepository) GetSeen(ctx context.Context, id string) (*domain.SeenRecord, error) {
	var rec domain.SeenRecord
	err := r.db.GetContext(ctx, &rec, "SELECT id, delivered_at FROM seen WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("get seen %s: %w", id, err)
	}
	return &rec, nil
}

// Count returns the number of delivered articles on record
func (r *SeenRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM seen")
	if err != nil {
		return 0, fmt.Errorf("count seen: %w", err)
	}
	return count, nil
}

// Prune removes records delivered before the cutoff and returns the number
// removed. Retention is optional; callers that never prune keep full history.
func (r *SeenRepository) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM seen WHERE delivered_at < ?", olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune seen rows affected: %w", err)
	}
	return n, nil
}
