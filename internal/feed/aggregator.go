// internal/feed/aggregator.go
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/novasniper/novadash/internal/metrics"
	"github.com/novasniper/novadash/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TokenFetcher pulls one categorized token feed from the pipeline gateway.
type TokenFetcher interface {
	FetchTokens(ctx context.Context, category types.FeedCategory) ([]types.Token, error)
}

// Snapshot is one merged view over the three categorized feeds. Token order
// within each category is exactly as received.
type Snapshot struct {
	Early     []types.Token
	Confirmed []types.Token
	Targets   []types.Token
	FetchedAt time.Time
	Duration  time.Duration
}

// Category returns the tokens of one bucket.
func (s *Snapshot) Category(cat types.FeedCategory) []types.Token {
	switch cat {
	case types.FeedEarly:
		return s.Early
	case types.FeedConfirmed:
		return s.Confirmed
	case types.FeedTargets:
		return s.Targets
	}
	return nil
}

// Total returns the token count across all buckets.
func (s *Snapshot) Total() int {
	return len(s.Early) + len(s.Confirmed) + len(s.Targets)
}

// Aggregator fetches and merges the three categorized token feeds.
type Aggregator struct {
	fetcher       TokenFetcher
	slowThreshold time.Duration
	logger        *zap.Logger
}

// NewAggregator creates a data aggregator. slowThreshold flags refreshes
// that exceed it; zero falls back to the 4s default.
func NewAggregator(fetcher TokenFetcher, slowThreshold time.Duration, logger *zap.Logger) *Aggregator {
	if slowThreshold <= 0 {
		slowThreshold = 4 * time.Second
	}
	return &Aggregator{
		fetcher:       fetcher,
		slowThreshold: slowThreshold,
		logger:        logger.Named("feed"),
	}
}

// Refresh concurrently fetches all three feeds. The result is all-or-nothing:
// if any feed fails, the whole refresh fails and already resolved feeds are
// discarded, never published.
func (a *Aggregator) Refresh(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	start := time.Now()

	err := metrics.MeasureRefresh(func() error {
		g, gCtx := errgroup.WithContext(ctx)

		g.Go(func() error {
			tokens, err := a.fetcher.FetchTokens(gCtx, types.FeedEarly)
			if err != nil {
				return err
			}
			snap.Early = tokens
			return nil
		})
		g.Go(func() error {
			tokens, err := a.fetcher.FetchTokens(gCtx, types.FeedConfirmed)
			if err != nil {
				return err
			}
			snap.Confirmed = tokens
			return nil
		})
		g.Go(func() error {
			tokens, err := a.fetcher.FetchTokens(gCtx, types.FeedTargets)
			if err != nil {
				return err
			}
			snap.Targets = tokens
			return nil
		})

		return g.Wait()
	})

	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("feed refresh: %w", err)
	}

	snap.FetchedAt = time.Now()
	snap.Duration = elapsed

	if elapsed > a.slowThreshold {
		a.logger.Warn("⏱️ Slow feed refresh",
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", a.slowThreshold),
			zap.Int("tokens", snap.Total()))
	}

	a.logger.Debug("Feed refresh complete",
		zap.Int("early", len(snap.Early)),
		zap.Int("confirmed", len(snap.Confirmed)),
		zap.Int("targets", len(snap.Targets)),
		zap.Duration("elapsed", elapsed))

	return snap, nil
}
