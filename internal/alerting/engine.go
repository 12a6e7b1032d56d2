// internal/alerting/engine.go
package alerting

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/novasniper/novadash/internal/events"
	"github.com/novasniper/novadash/internal/gateway"
	"github.com/novasniper/novadash/internal/metrics"
	"github.com/novasniper/novadash/internal/notify"
	"github.com/novasniper/novadash/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// recentTriggerWindow bounds how far back the status surface looks for
// recently triggered alerts.
const recentTriggerWindow = 4 * time.Hour

// maxRecentTriggers caps the recent-trigger badges on the status surface.
const maxRecentTriggers = 3

// AlertService is the single remote call every engine operation maps to.
type AlertService interface {
	PriceAlertSystem(ctx context.Context, req gateway.AlertRequest) (*gateway.AlertResponse, error)
}

// Notifier surfaces alert outcomes to the user.
type Notifier interface {
	Notify(message string, kind notify.Kind) notify.Notification
}

// Stats is the coarse aggregate consumed by the status surface. Breaching
// counts active alerts whose last price sample already satisfies the drop
// condition and are waiting on the next server evaluation.
type Stats struct {
	ActiveAlerts    int
	TriggeredAlerts int
	Breaching       int
	LastCheck       time.Time
	RecentTriggers  []types.PriceAlert
}

// Engine polls, creates and deletes per-token price alerts and consumes the
// pipeline's trigger evaluations. It runs on its own cadences, independent
// of the session status.
type Engine struct {
	service  AlertService
	notifier Notifier
	bus      *events.Bus
	logger   *zap.Logger

	// Concurrent monitor passes from the panel and status cadences
	// coalesce into one remote evaluation.
	monitorGroup singleflight.Group

	mu        sync.RWMutex
	alerts    []types.PriceAlert
	lastCheck time.Time
}

// NewEngine creates an alert engine. bus may be nil.
func NewEngine(service AlertService, notifier Notifier, bus *events.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		service:  service,
		notifier: notifier,
		bus:      bus,
		logger:   logger.Named("alerting"),
	}
}

// List fetches the caller's alerts and refreshes the local snapshot.
func (e *Engine) List(ctx context.Context) ([]types.PriceAlert, error) {
	resp, err := e.service.PriceAlertSystem(ctx, gateway.AlertRequest{Action: gateway.AlertActionList})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.alerts = resp.Alerts
	e.lastCheck = time.Now()
	e.mu.Unlock()

	return resp.Alerts, nil
}

// Create registers a new alert. Input is validated locally; a
// ValidationError means no remote call was issued. The created alert starts
// active with its peak price initialized from the current token price.
func (e *Engine) Create(ctx context.Context, tokenAddress string, alertType types.AlertType, threshold float64) (*types.PriceAlert, error) {
	if err := validateCreate(tokenAddress, alertType, threshold); err != nil {
		e.notifier.Notify(fmt.Sprintf("⚠️ %v", err), notify.KindWarning)
		return nil, err
	}

	resp, err := e.service.PriceAlertSystem(ctx, gateway.AlertRequest{
		Action:       gateway.AlertActionCreate,
		TokenAddress: tokenAddress,
		AlertType:    alertType,
		Threshold:    threshold,
	})
	if err != nil {
		e.notifier.Notify(fmt.Sprintf("❌ Error creating alert: %v", err), notify.KindError)
		return nil, err
	}

	symbol := tokenAddress
	if resp.Alert != nil && resp.Alert.TokenSymbol != "" {
		symbol = resp.Alert.TokenSymbol
	}
	e.notifier.Notify(fmt.Sprintf("✅ Price alert created for %s", symbol), notify.KindSuccess)
	e.logger.Info("Alert created",
		zap.String("token", tokenAddress),
		zap.String("type", string(alertType)),
		zap.Float64("threshold", threshold))
	return resp.Alert, nil
}

// Delete removes the alert for a token. Deleting an absent alert succeeds.
func (e *Engine) Delete(ctx context.Context, tokenAddress string) error {
	_, err := e.service.PriceAlertSystem(ctx, gateway.AlertRequest{
		Action:       gateway.AlertActionDelete,
		TokenAddress: tokenAddress,
	})
	if err != nil {
		e.notifier.Notify(fmt.Sprintf("❌ Error deleting alert: %v", err), notify.KindError)
		return err
	}
	e.notifier.Notify("✅ Alert deleted", notify.KindSuccess)
	return nil
}

// Monitor runs one server-side evaluation pass and returns the count of
// alerts newly triggered by it. Concurrent calls share a single remote
// invocation.
func (e *Engine) Monitor(ctx context.Context) (int, error) {
	v, err, _ := e.monitorGroup.Do("monitor", func() (interface{}, error) {
		resp, err := e.service.PriceAlertSystem(ctx, gateway.AlertRequest{Action: gateway.AlertActionMonitor})
		if err != nil {
			return 0, err
		}
		if resp.Monitoring == nil {
			return 0, nil
		}
		return resp.Monitoring.AlertsTriggered, nil
	})
	if err != nil {
		return 0, err
	}

	triggered := v.(int)
	metrics.AlertsTriggered(triggered)
	return triggered, nil
}

// RunPanelLoop is the alert panel cadence: List+Monitor together every
// interval (default 30s), surfacing newly triggered alerts. Blocks until
// ctx is done.
func (e *Engine) RunPanelLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	e.runLoop(ctx, interval, "panel", true)
}

// RunStatusLoop is the independent status indicator cadence (default
// 120s). It consumes the same List+Monitor pair but stays silent; the
// status surface reads Stats instead. Blocks until ctx is done.
func (e *Engine) RunStatusLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 120 * time.Second
	}
	e.runLoop(ctx, interval, "status", false)
}

func (e *Engine) runLoop(ctx context.Context, interval time.Duration, surface string, notifyTriggers bool) {
	e.logger.Info("Alert loop started",
		zap.String("surface", surface),
		zap.Duration("interval", interval))

	e.pass(ctx, surface, notifyTriggers)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.pass(ctx, surface, notifyTriggers)
		case <-ctx.Done():
			e.logger.Debug("Alert loop stopped", zap.String("surface", surface))
			return
		}
	}
}

// pass runs one List+Monitor pair. Timer-driven failures are logged and
// swallowed; the next tick is a fresh attempt.
func (e *Engine) pass(ctx context.Context, surface string, notifyTriggers bool) {
	if _, err := e.List(ctx); err != nil {
		e.logger.Debug("Alert list failed", zap.String("surface", surface), zap.Error(err))
		return
	}

	triggered, err := e.Monitor(ctx)
	if err != nil {
		e.logger.Debug("Alert monitor failed", zap.String("surface", surface), zap.Error(err))
		return
	}
	if triggered == 0 {
		return
	}

	e.logger.Info("🔔 Alerts triggered",
		zap.Int("count", triggered),
		zap.String("surface", surface))

	if notifyTriggers {
		e.notifier.Notify(fmt.Sprintf("🔔 %d PRICE ALERTS TRIGGERED!", triggered), notify.KindAlert)
		// Refresh the snapshot so the panel shows the flipped records.
		if _, err := e.List(ctx); err != nil {
			e.logger.Debug("Post-trigger list failed", zap.Error(err))
		}
	}

	if e.bus != nil {
		_ = e.bus.Publish(events.AlertsTriggeredEvent{
			BaseEvent: events.Base(events.AlertsTriggered),
			Count:     triggered,
			Surface:   surface,
		})
	}
}

// Stats summarizes the last observed alert snapshot for the status surface.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := Stats{LastCheck: e.lastCheck}
	cutoff := time.Now().Add(-recentTriggerWindow)

	for _, a := range e.alerts {
		if a.IsActive {
			stats.ActiveAlerts++
			if a.ConditionMet() {
				stats.Breaching++
			}
			continue
		}
		if a.TriggeredAt == nil {
			continue
		}
		stats.TriggeredAlerts++
		if a.TriggeredAt.After(cutoff) && len(stats.RecentTriggers) < maxRecentTriggers {
			stats.RecentTriggers = append(stats.RecentTriggers, a)
		}
	}
	return stats
}

// validateCreate enforces the local preconditions for alert creation:
// a parsable token address and a positive finite threshold.
func validateCreate(tokenAddress string, alertType types.AlertType, threshold float64) error {
	if tokenAddress == "" {
		return &ValidationError{Field: "tokenAddress", Reason: "missing"}
	}
	if _, err := solana.PublicKeyFromBase58(tokenAddress); err != nil {
		return &ValidationError{Field: "tokenAddress", Reason: "not a valid token address"}
	}
	if threshold <= 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return &ValidationError{Field: "threshold", Reason: "must be a positive percentage"}
	}
	if !alertType.Valid() {
		return &ValidationError{Field: "alertType", Reason: "unknown alert type"}
	}
	return nil
}
