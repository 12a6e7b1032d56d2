// internal/poller/scheduler.go
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/novasniper/novadash/internal/feed"
	"github.com/novasniper/novadash/internal/metrics"
	"go.uber.org/zap"
)

// StatusReader reports whether the session is in a state that allows
// polling. The scheduler only reads it; it never drives transitions.
type StatusReader interface {
	IsMonitoring() bool
}

// RefreshFunc performs one silent data refresh.
type RefreshFunc func(ctx context.Context) (*feed.Snapshot, error)

// PublishFunc receives a refresh result that passed the staleness guard.
type PublishFunc func(*feed.Snapshot)

// Scheduler runs a refresh on a fixed cadence while the session is
// monitoring. Ticks re-check the status at fire time and failures are
// silent. Overlapping fetches are allowed, but publication is serialized
// by a monotonically increasing tick token plus an arm generation, so a
// slow early fetch never overwrites the result of a later one and a fetch
// launched before a disarm can never publish into a later arm.
type Scheduler struct {
	status  StatusReader
	refresh RefreshFunc
	publish PublishFunc
	period  time.Duration
	logger  *zap.Logger

	mu         sync.Mutex
	armed      bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	generation uint64
	nextToken  uint64
	published  uint64
	latest     *feed.Snapshot
}

// NewScheduler creates a polling scheduler. period zero falls back to the
// 5s default.
func NewScheduler(status StatusReader, refresh RefreshFunc, publish PublishFunc,
	period time.Duration, logger *zap.Logger) *Scheduler {
	if period <= 0 {
		period = 5 * time.Second
	}
	return &Scheduler{
		status:  status,
		refresh: refresh,
		publish: publish,
		period:  period,
		logger:  logger.Named("poller"),
	}
}

// Arm starts periodic execution, beginning with an immediate tick. Calling
// Arm while armed is a no-op; re-arming after Disarm never leaves two
// concurrent timers behind.
func (s *Scheduler) Arm(ctx context.Context) {
	s.mu.Lock()
	if s.armed {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.armed = true
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Debug("Scheduler armed", zap.Duration("period", s.period))

	s.wg.Add(1)
	go s.run(runCtx)
}

// Disarm stops future ticks immediately. An in-flight fetch is not
// cancelled; bumping the generation here guarantees its result is
// discarded even if the scheduler is re-armed before it resolves.
// Idempotent.
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return
	}
	s.armed = false
	s.generation++
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.logger.Debug("Scheduler disarmed")
}

// Wait blocks until the run loop has exited after Disarm.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Latest returns the most recently published snapshot, if any.
func (s *Scheduler) Latest() (*feed.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, false
	}
	return s.latest, true
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	// First refresh fires immediately on arm.
	s.tick(ctx)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// tick issues one silent refresh. The status is re-checked here, not only
// at arm time; a tick that fires after the session left MONITORING is a
// no-op. Each tick fetches in its own goroutine so a slow refresh never
// blocks the cadence.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.status.IsMonitoring() {
		metrics.TickSkipped()
		return
	}

	s.mu.Lock()
	s.nextToken++
	token := s.nextToken
	generation := s.generation
	s.mu.Unlock()

	metrics.TickFired()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		snap, err := s.refresh(ctx)
		if err != nil {
			// Silent tick: log at debug, no notification, no busy flag.
			s.logger.Debug("Silent refresh failed", zap.Uint64("token", token), zap.Error(err))
			return
		}
		s.applyTick(generation, token, snap)
	}()
}

// applyTick publishes a silent refresh result unless it is stale: the
// scheduler was disarmed (a new generation began), or a younger tick
// already published.
func (s *Scheduler) applyTick(generation, token uint64, snap *feed.Snapshot) {
	s.mu.Lock()
	if !s.armed || generation != s.generation || token <= s.published {
		s.mu.Unlock()
		metrics.TickStale()
		s.logger.Debug("Discarding stale refresh result",
			zap.Uint64("generation", generation), zap.Uint64("token", token))
		return
	}
	s.published = token
	s.latest = snap
	publish := s.publish
	s.mu.Unlock()

	if publish != nil {
		publish(snap)
	}
}

// RefreshNow runs one refresh on the caller's behalf, outside the silent
// cadence: the error is returned instead of swallowed, and the result is
// delivered whether or not the scheduler is armed. It still passes through
// the staleness guard, so it can never clobber a younger periodic result,
// and the snapshot is returned to the caller even when a disarm raced the
// fetch and suppressed publication.
func (s *Scheduler) RefreshNow(ctx context.Context) (*feed.Snapshot, error) {
	s.mu.Lock()
	s.nextToken++
	token := s.nextToken
	generation := s.generation
	s.mu.Unlock()

	snap, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if generation != s.generation || token <= s.published {
		s.mu.Unlock()
		return snap, nil
	}
	s.published = token
	s.latest = snap
	publish := s.publish
	s.mu.Unlock()

	if publish != nil {
		publish(snap)
	}
	return snap, nil
}
