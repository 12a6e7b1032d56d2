// internal/session/controller.go
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/novasniper/novadash/internal/events"
	"github.com/novasniper/novadash/internal/notify"
	"go.uber.org/zap"
)

// Status is the pipeline activation state as observed by the client.
// Exactly one value exists process-wide; the controller is the only writer.
type Status string

const (
	StatusStandby    Status = "STANDBY"
	StatusStarting   Status = "STARTING"
	StatusMonitoring Status = "MONITORING"
	StatusStopping   Status = "STOPPING"
	StatusError      Status = "ERROR"
)

// Activator is the remote pipeline lifecycle surface.
type Activator interface {
	StartAllPhases(ctx context.Context) error
	StopAllPhases(ctx context.Context) error
}

// Armer is the polling scheduler toggled by session transitions.
type Armer interface {
	Arm(ctx context.Context)
	Disarm()
}

// Notifier surfaces session outcomes to the user.
type Notifier interface {
	Notify(message string, kind notify.Kind) notify.Notification
}

// Controller is the session state machine. Transitions:
// STANDBY→STARTING→{MONITORING|ERROR} and MONITORING→STOPPING→STANDBY.
// Invalid calls are no-ops.
type Controller struct {
	mu        sync.RWMutex
	status    Status
	pipeline  Activator
	scheduler Armer
	notifier  Notifier
	bus       *events.Bus
	logger    *zap.Logger
}

// NewController creates a session controller in STANDBY. bus may be nil.
func NewController(pipeline Activator, scheduler Armer, notifier Notifier,
	bus *events.Bus, logger *zap.Logger) *Controller {
	return &Controller{
		status:    StatusStandby,
		pipeline:  pipeline,
		scheduler: scheduler,
		notifier:  notifier,
		bus:       bus,
		logger:    logger.Named("session"),
	}
}

// SetScheduler installs the polling scheduler. The scheduler reads the
// controller's status, so the two are constructed in sequence and linked
// here before the first Start.
func (c *Controller) SetScheduler(scheduler Armer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduler = scheduler
}

// Status returns the current session status.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// IsMonitoring reports whether the poll scheduler should be acting.
func (c *Controller) IsMonitoring() bool {
	return c.Status() == StatusMonitoring
}

// Start activates the remote pipeline. Valid only from STANDBY or ERROR;
// anything else is a no-op. On success the scheduler is armed, which also
// triggers the immediate first refresh. No automatic retry on failure.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusStandby && c.status != StatusError {
		c.mu.Unlock()
		c.logger.Debug("Start ignored", zap.String("status", string(c.status)))
		return nil
	}
	c.status = StatusStarting
	c.mu.Unlock()

	c.notifier.Notify("🚀 Activating real-time orchestrator...", notify.KindInfo)
	c.logger.Info("🚀 Starting detection pipeline")

	if err := c.pipeline.StartAllPhases(ctx); err != nil {
		c.setStatus(StatusError)
		c.notifier.Notify(fmt.Sprintf("❌ Activation failed: %v", err), notify.KindError)
		c.logger.Error("Pipeline activation failed", zap.Error(err))
		c.publish(events.SessionFailedEvent{BaseEvent: events.Base(events.SessionFailed), Error: err})
		return fmt.Errorf("start session: %w", err)
	}

	c.setStatus(StatusMonitoring)
	c.scheduler.Arm(ctx)
	c.notifier.Notify("✅ All systems active! Real-time polling initiated.", notify.KindSuccess)
	c.logger.Info("✅ Session monitoring")
	c.publish(events.SessionStartedEvent{BaseEvent: events.Base(events.SessionStarted)})
	return nil
}

// Stop deactivates the remote pipeline. Valid only from MONITORING. The
// scheduler is disarmed synchronously with leaving MONITORING, before the
// remote call resolves, so no orphaned poll can fire during deactivation.
// The session ends in STANDBY whether or not the remote call succeeded.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusMonitoring {
		c.mu.Unlock()
		c.logger.Debug("Stop ignored", zap.String("status", string(c.status)))
		return nil
	}
	c.status = StatusStopping
	c.mu.Unlock()

	c.scheduler.Disarm()
	c.notifier.Notify("🛑 Deactivating real-time systems...", notify.KindWarning)
	c.logger.Info("🛑 Stopping detection pipeline")

	err := c.pipeline.StopAllPhases(ctx)
	c.setStatus(StatusStandby)

	if err != nil {
		c.notifier.Notify(fmt.Sprintf("❌ Deactivation failed: %v", err), notify.KindError)
		c.logger.Error("Pipeline deactivation failed", zap.Error(err))
	} else {
		c.notifier.Notify("⏹️ System is now STANDBY.", notify.KindInfo)
		c.logger.Info("Session standby")
	}
	c.publish(events.SessionStoppedEvent{BaseEvent: events.Base(events.SessionStopped), Reason: "manual_stop"})

	if err != nil {
		return fmt.Errorf("stop session: %w", err)
	}
	return nil
}

func (c *Controller) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Controller) publish(event events.Event) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(event); err != nil {
		c.logger.Debug("Event publish failed", zap.Error(err))
	}
}
