// internal/app/runner.go
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/novasniper/novadash/internal/alerting"
	"github.com/novasniper/novadash/internal/config"
	"github.com/novasniper/novadash/internal/events"
	"github.com/novasniper/novadash/internal/feed"
	"github.com/novasniper/novadash/internal/gateway"
	applog "github.com/novasniper/novadash/internal/logger"
	"github.com/novasniper/novadash/internal/notify"
	"github.com/novasniper/novadash/internal/poller"
	"github.com/novasniper/novadash/internal/safety"
	"github.com/novasniper/novadash/internal/session"
	"github.com/novasniper/novadash/internal/types"
	"github.com/novasniper/novadash/internal/watchlist"
	"go.uber.org/zap"
)

// Runner wires the dashboard core: gateway client, session controller,
// polling scheduler, alert engine, watchlist tracker and notification
// center. It owns startup order and graceful shutdown.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger
	ring   *applog.Ring

	Gateway   *gateway.Client
	Bus       *events.Bus
	Center    *notify.Center
	Feeds     *feed.Aggregator
	Scheduler *poller.Scheduler
	Session   *session.Controller
	Alerts    *alerting.Engine
	Safety    *safety.Checker
	Watchlist *watchlist.Tracker
	User      *types.User

	shutdown *ShutdownHandler
}

// NewRunner creates a runner from loaded configuration. ring feeds the
// diagnostics view and may be nil.
func NewRunner(cfg *config.Config, logger *zap.Logger, ring *applog.Ring) *Runner {
	return &Runner{
		cfg:      cfg,
		logger:   logger,
		ring:     ring,
		shutdown: NewShutdownHandler(logger, 15*time.Second),
	}
}

// Diagnostics returns the most recent captured log entries, newest last.
func (r *Runner) Diagnostics(limit int) []applog.Entry {
	if r.ring == nil {
		return nil
	}
	return r.ring.Recent(limit)
}

// Initialize connects to the pipeline gateway and constructs every
// component. The gateway reachability probe is the only place in the
// program that retries; core operations never do.
func (r *Runner) Initialize(ctx context.Context) error {
	r.Gateway = gateway.NewClient(
		r.cfg.GatewayURL,
		time.Duration(r.cfg.GatewayTimeout)*time.Second,
		r.logger,
	)

	user, err := r.probeGateway(ctx)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	r.User = user
	r.logger.Info("🔐 Authenticated",
		zap.String("email", user.Email),
		zap.String("name", user.FullName))

	r.Bus = events.NewBus(r.logger, 256)
	r.Center = notify.NewCenter(notify.Config{
		RoutineTTL: time.Duration(r.cfg.NotifyTTL) * time.Second,
		AlertTTL:   time.Duration(r.cfg.NotifyAlertTTL) * time.Second,
	}, r.logger)

	r.Feeds = feed.NewAggregator(
		r.Gateway,
		time.Duration(r.cfg.SlowRefreshMillis)*time.Millisecond,
		r.logger,
	)

	r.Session = session.NewController(r.Gateway, nil, r.Center, r.Bus, r.logger)
	r.Scheduler = poller.NewScheduler(
		r.Session,
		r.refreshFeeds,
		r.publishSnapshot,
		time.Duration(r.cfg.FeedPollInterval)*time.Second,
		r.logger,
	)
	r.Session.SetScheduler(r.Scheduler)
	r.observeEvents()

	r.Alerts = alerting.NewEngine(r.Gateway, r.Center, r.Bus, r.logger)
	r.Safety = safety.NewChecker(
		r.Gateway,
		time.Duration(r.cfg.SafetyCacheTTL)*time.Second,
		r.logger,
	)
	r.Watchlist = watchlist.NewTracker(r.Gateway, r.Safety, r.Center, r.Bus, user.Email, r.logger)

	return nil
}

// Run starts the alert cadences and the session, then blocks until a
// shutdown signal arrives.
func (r *Runner) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := r.Watchlist.Load(runCtx); err != nil {
		// Not fatal: the watchlist view reloads on demand.
		r.logger.Warn("Initial watchlist load failed", zap.Error(err))
	}

	go r.Alerts.RunPanelLoop(runCtx, time.Duration(r.cfg.AlertPanelPoll)*time.Second)
	go r.Alerts.RunStatusLoop(runCtx, time.Duration(r.cfg.AlertStatusPoll)*time.Second)

	if err := r.Session.Start(runCtx); err != nil {
		// Session stays in ERROR; the user can retry from the dashboard.
		r.logger.Error("Initial session start failed", zap.Error(err))
	}

	// LIFO close order: loops stop first, the bus drains last so the
	// session stop event still reaches its observers.
	r.shutdown.AddFunc("event_bus", func() error {
		busCtx, busCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer busCancel()
		return r.Bus.Shutdown(busCtx)
	})
	r.shutdown.Add("notifications", r.Center)
	r.shutdown.AddFunc("scheduler", func() error {
		r.Scheduler.Disarm()
		r.Scheduler.Wait()
		return nil
	})
	r.shutdown.AddFunc("session", func() error {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		return r.Session.Stop(stopCtx)
	})
	r.shutdown.AddFunc("alert_loops", func() error {
		cancel()
		return nil
	})

	r.shutdown.HandleShutdown()
	return nil
}

// probeGateway waits for the gateway to become reachable, resolving the
// authenticated user in the process.
func (r *Runner) probeGateway(ctx context.Context) (*types.User, error) {
	op := func() (*types.User, error) {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return r.Gateway.WhoAmI(probeCtx)
	}

	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
}

// refreshFeeds is the scheduler's refresh operation. Failures stay silent
// toward the user but are still published for observers.
func (r *Runner) refreshFeeds(ctx context.Context) (*feed.Snapshot, error) {
	snap, err := r.Feeds.Refresh(ctx)
	if err != nil && r.Bus != nil {
		_ = r.Bus.Publish(events.FeedRefreshFailedEvent{
			BaseEvent: events.Base(events.FeedRefreshFailed),
			Error:     err,
			Silent:    true,
		})
	}
	return snap, err
}

// RefreshNow fetches the feeds on demand, outside the polling cadence.
// Unlike the scheduler's own ticks, a failure here is surfaced to the user.
func (r *Runner) RefreshNow(ctx context.Context) (*feed.Snapshot, error) {
	snap, err := r.Scheduler.RefreshNow(ctx)
	if err != nil {
		r.Center.Notify("❌ Failed to refresh token feeds", notify.KindError)
		return nil, err
	}
	return snap, nil
}

// observeEvents attaches the runner's own observers, which log lifecycle
// and trigger events into the diagnostics stream.
func (r *Runner) observeEvents() {
	r.Bus.SubscribeFunc(events.SessionStarted, func(ctx context.Context, e events.Event) error {
		r.logger.Info("📡 Session event", zap.String("type", string(e.Type())))
		return nil
	})
	r.Bus.SubscribeFunc(events.SessionStopped, func(ctx context.Context, e events.Event) error {
		r.logger.Info("📡 Session event", zap.String("type", string(e.Type())))
		return nil
	})
	r.Bus.SubscribeFunc(events.FeedRefreshFailed, func(ctx context.Context, e events.Event) error {
		if failed, ok := e.(events.FeedRefreshFailedEvent); ok {
			r.logger.Debug("Feed refresh failed", zap.Error(failed.Error), zap.Bool("silent", failed.Silent))
		}
		return nil
	})
	r.Bus.SubscribeFunc(events.AlertsTriggered, func(ctx context.Context, e events.Event) error {
		if triggered, ok := e.(events.AlertsTriggeredEvent); ok {
			r.logger.Info("🔔 Alert trigger event",
				zap.Int("count", triggered.Count),
				zap.String("surface", triggered.Surface))
		}
		return nil
	})
}

func (r *Runner) publishSnapshot(snap *feed.Snapshot) {
	if r.Bus == nil {
		return
	}
	_ = r.Bus.Publish(events.FeedRefreshedEvent{
		BaseEvent:      events.Base(events.FeedRefreshed),
		EarlyCount:     len(snap.Early),
		ConfirmedCount: len(snap.Confirmed),
		TargetsCount:   len(snap.Targets),
		Duration:       snap.Duration,
		Silent:         true,
	})
}
