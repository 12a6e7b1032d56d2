package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/novasniper/novadash/internal/types"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	calls   int32
	failOn  types.FeedCategory
	tokens  map[types.FeedCategory][]types.Token
	latency time.Duration
}

func (f *fakeFetcher) FetchTokens(ctx context.Context, category types.FeedCategory) ([]types.Token, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if category == f.failOn {
		return nil, errors.New("feed unavailable")
	}
	return f.tokens[category], nil
}

func someTokens(n int, prefix string) []types.Token {
	out := make([]types.Token, n)
	for i := range out {
		out[i] = types.Token{Address: prefix, Symbol: prefix}
	}
	return out
}

func TestRefreshMergesAllFeeds(t *testing.T) {
	fetcher := &fakeFetcher{tokens: map[types.FeedCategory][]types.Token{
		types.FeedEarly:     someTokens(2, "EARLY"),
		types.FeedConfirmed: someTokens(3, "CONF"),
		types.FeedTargets:   someTokens(1, "TGT"),
	}}
	agg := NewAggregator(fetcher, time.Second, zap.NewNop())

	snap, err := agg.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if snap.Total() != 6 {
		t.Errorf("total = %d, want 6", snap.Total())
	}
	if len(snap.Early) != 2 || len(snap.Confirmed) != 3 || len(snap.Targets) != 1 {
		t.Errorf("bucket sizes = %d/%d/%d, want 2/3/1",
			len(snap.Early), len(snap.Confirmed), len(snap.Targets))
	}
	if snap.FetchedAt.IsZero() {
		t.Error("snapshot must be stamped")
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 3 {
		t.Errorf("fetch calls = %d, want 3", got)
	}
}

func TestRefreshAllOrNothing(t *testing.T) {
	fetcher := &fakeFetcher{
		failOn: types.FeedConfirmed,
		tokens: map[types.FeedCategory][]types.Token{
			types.FeedEarly:   someTokens(2, "EARLY"),
			types.FeedTargets: someTokens(2, "TGT"),
		},
	}
	agg := NewAggregator(fetcher, time.Second, zap.NewNop())

	snap, err := agg.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected refresh to fail when one feed fails")
	}
	if snap != nil {
		t.Error("a failed refresh must not return a partial snapshot")
	}
}

func TestRefreshRespectsContext(t *testing.T) {
	fetcher := &fakeFetcher{
		latency: 200 * time.Millisecond,
		tokens:  map[types.FeedCategory][]types.Token{},
	}
	agg := NewAggregator(fetcher, time.Second, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := agg.Refresh(ctx); err == nil {
		t.Fatal("expected refresh to fail on context timeout")
	}
}

func TestSnapshotCategory(t *testing.T) {
	snap := &Snapshot{
		Early:     someTokens(1, "E"),
		Confirmed: someTokens(2, "C"),
		Targets:   someTokens(3, "T"),
	}
	if got := len(snap.Category(types.FeedConfirmed)); got != 2 {
		t.Errorf("confirmed bucket = %d, want 2", got)
	}
	if snap.Category(types.FeedCategory("bogus")) != nil {
		t.Error("unknown category must return nil")
	}
}
