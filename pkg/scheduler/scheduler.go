// Package scheduler drives the fetch-filter-deliver cycle. A single loop
// wakes on the cron schedule, pulls every configured feed, drops articles
// already on record, defers delivery inside the mute window and marks an
// article seen only after the chat server confirmed the send. Ticks run to
// completion before the next fire is computed, so they never overlap.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/feedmx/feedmx/pkg/domain"
	"github.com/feedmx/feedmx/pkg/matrix"
	"github.com/feedmx/feedmx/pkg/mute"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher
//go:generate moq -out mocks/seen_store.go -pkg mocks -skip-ensure -fmt goimports . SeenStore
//go:generate moq -out mocks/deliverer.go -pkg mocks -skip-ensure -fmt goimports . Deliverer

// Fetcher retrieves and parses a single feed
type Fetcher interface {
	Parse(ctx context.Context, feedURL string) ([]domain.Article, error)
}

// SeenStore answers membership queries and records confirmed deliveries
type SeenStore interface {
	IsSeen(ctx context.Context, id string) (bool, error)
	MarkSeen(ctx context.Context, id string, deliveredAt time.Time) error
}

// Deliverer sends one article to the configured room
type Deliverer interface {
	SendArticle(ctx context.Context, article domain.Article) error
}

// Config holds scheduler configuration
type Config struct {
	Feeds      []string
	CronExpr   string // 5-field cron expression
	Mute       mute.Window
	MaxWorkers int
}

// Status is a point-in-time snapshot for the status endpoint
type Status struct {
	Feeds          int       `json:"feeds"`
	LastTick       time.Time `json:"last_tick,omitzero"`
	NextTick       time.Time `json:"next_tick"`
	Delivered      int64     `json:"delivered"`
	DeferredByMute int       `json:"deferred_by_mute"`
	Muted          bool      `json:"muted"`
}

// deliveryGrace bounds a detached send-plus-mark pair so shutdown cannot
// hang on a stuck server
const deliveryGrace = 2 * time.Minute

// Scheduler orchestrates the polling-dedup-delivery pipeline
type Scheduler struct {
	fetcher    Fetcher
	store      SeenStore
	deliverer  Deliverer
	feeds      []string
	schedule   cron.Schedule
	window     mute.Window
	maxWorkers int
	now        func() time.Time

	mu        sync.Mutex
	lastTick  time.Time
	delivered int64
	deferred  int
}

// New creates a scheduler, parsing the cron expression up front so a bad
// schedule fails before the loop starts
func New(fetcher Fetcher, store SeenStore, deliverer Deliverer, cfg Config) (*Scheduler, error) {
	if len(cfg.Feeds) == 0 {
		return nil, errors.New("no feeds configured")
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 4
	}

	schedule, err := cron.ParseStandard(cfg.CronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", cfg.CronExpr, err)
	}

	return &Scheduler{
		fetcher:    fetcher,
		store:      store,
		deliverer:  deliverer,
		feeds:      cfg.Feeds,
		schedule:   schedule,
		window:     cfg.Mute,
		maxWorkers: cfg.MaxWorkers,
		now:        time.Now,
	}, nil
}

// Run executes ticks at schedule-defined instants until the context is
// canceled. The next fire is computed after the current tick completes, so a
// tick that overruns its slot coalesces the missed trigger instead of running
// concurrently with it. Only an auth rejection aborts the run.
func (s *Scheduler) Run(ctx context.Context) error {
	lgr.Printf("[INFO] scheduler started, %d feeds, cron next run %s", len(s.feeds), s.schedule.Next(s.now()).Format(time.RFC3339))

	for {
		next := s.schedule.Next(s.now())
		timer := time.NewTimer(next.Sub(s.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			lgr.Printf("[INFO] scheduler stopped")
			return nil
		case <-timer.C:
		}

		if err := s.RunTick(ctx); err != nil {
			return fmt.Errorf("tick aborted: %w", err)
		}
	}
}

// RunTick executes one fetch-filter-deliver cycle. Per-feed and per-article
// failures are contained; the returned error is non-nil only for failures
// that will not self-heal (rejected credentials).
func (s *Scheduler) RunTick(ctx context.Context) error {
	start := s.now()
	lgr.Printf("[INFO] tick started, polling %d feeds", len(s.feeds))

	candidates := s.fetchAll(ctx)
	candidates, err := s.dropSeen(ctx, candidates)
	if err != nil {
		// proceeding with unknown seen-state risks duplicate delivery
		lgr.Printf("[ERROR] tick aborted, seen-state unavailable: %v", err)
		s.finishTick(start, 0, 0)
		return nil
	}

	if s.window.Contains(start) {
		lgr.Printf("[INFO] mute window active, deferring %d articles", len(candidates))
		s.finishTick(start, 0, len(candidates))
		return nil
	}

	delivered, err := s.deliver(ctx, candidates)
	s.finishTick(start, delivered, 0)
	if err != nil {
		return err
	}

	lgr.Printf("[INFO] tick completed, %d delivered out of %d new", delivered, len(candidates))
	return nil
}

// Status reports the scheduler state for the status endpoint
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	return Status{
		Feeds:          len(s.feeds),
		LastTick:       s.lastTick,
		NextTick:       s.schedule.Next(now),
		Delivered:      s.delivered,
		DeferredByMute: s.deferred,
		Muted:          s.window.Contains(now),
	}
}

// fetchAll pulls all feeds concurrently and returns new-candidate articles in
// a deterministic order: oldest published first, id as the tie-break. A
// failing feed is logged and skipped, it never aborts the cycle.
func (s *Scheduler) fetchAll(ctx context.Context) []domain.Article {
	var mu sync.Mutex
	var collected []domain.Article

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxWorkers)

	for _, feedURL := range s.feeds {
		g.Go(func() error {
			articles, err := s.fetcher.Parse(gctx, feedURL)
			if err != nil {
				lgr.Printf("[WARN] skipping feed %s for this tick: %v", feedURL, err)
				return nil
			}
			lgr.Printf("[DEBUG] feed %s returned %d articles", feedURL, len(articles))
			mu.Lock()
			collected = append(collected, articles...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, they log and skip

	// two feeds may carry the same id, deliver it once
	byID := make(map[string]struct{}, len(collected))
	unique := collected[:0]
	for _, a := range collected {
		if _, ok := byID[a.ID]; ok {
			continue
		}
		byID[a.ID] = struct{}{}
		unique = append(unique, a)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if !unique[i].Published.Equal(unique[j].Published) {
			return unique[i].Published.Before(unique[j].Published)
		}
		return unique[i].ID < unique[j].ID
	})

	return unique
}

// dropSeen filters out articles already delivered. A store read failure
// aborts the whole tick since the seen-state can no longer be trusted.
func (s *Scheduler) dropSeen(ctx context.Context, articles []domain.Article) ([]domain.Article, error) {
	fresh := articles[:0]
	for _, a := range articles {
		seen, err := s.store.IsSeen(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("check seen state for %s: %w", a.ID, err)
		}
		if !seen {
			fresh = append(fresh, a)
		}
	}
	return fresh, nil
}

// deliver sends candidates one by one, marking each seen only after the send
// was confirmed. Cancellation is honored between articles only: the attempt
// in flight and its seen-record run on a detached context, so a send is never
// confirmed without being recorded. Exhausted retries leave the article
// unseen for the next tick; a rejected credential aborts the remaining run.
func (s *Scheduler) deliver(ctx context.Context, candidates []domain.Article) (int, error) {
	delivered := 0
	for _, article := range candidates {
		if ctx.Err() != nil {
			lgr.Printf("[INFO] delivery interrupted, %d of %d sent", delivered, len(candidates))
			return delivered, nil
		}

		sendErr, markErr := s.sendAndMark(ctx, article)
		switch {
		case errors.Is(sendErr, matrix.ErrAuth):
			lgr.Printf("[ERROR] credentials rejected, aborting run: %v", sendErr)
			return delivered, sendErr
		case sendErr != nil:
			lgr.Printf("[WARN] delivery failed for %s (%s), will retry next tick: %v", article.ID, article.Link, sendErr)
			continue
		case markErr != nil:
			// delivered but unrecorded: stop the tick rather than risk
			// compounding the problem across remaining candidates
			lgr.Printf("[ERROR] failed to mark %s seen, aborting tick: %v", article.ID, markErr)
			return delivered, nil
		}
		delivered++
		lgr.Printf("[INFO] delivered %q (%s)", article.Title, article.Link)
	}
	return delivered, nil
}

// sendAndMark runs one delivery attempt and its seen-record as a pair.
// A termination signal mid-send must not split the pair: a sent but unmarked
// article would be re-delivered on the next run.
func (s *Scheduler) sendAndMark(ctx context.Context, article domain.Article) (sendErr, markErr error) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryGrace)
	defer cancel()

	if err := s.deliverer.SendArticle(dctx, article); err != nil {
		return err, nil
	}
	return nil, s.store.MarkSeen(dctx, article.ID, s.now())
}

func (s *Scheduler) finishTick(start time.Time, delivered, deferred int) {
	s.mu.Lock()
	s.lastTick = start
	s.delivered += int64(delivered)
	s.deferred = deferred
	s.mu.Unlock()
}
