// internal/notify/center.go
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind classifies a user-facing notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
	KindAlert   Kind = "alert"
)

// Notification is one ephemeral user-facing message.
type Notification struct {
	ID        string
	Message   string
	Kind      Kind
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Center holds at most one visible notification at a time. A new Notify
// replaces the current message whether or not it has expired or been
// observed; overwritten messages are retained in a bounded history ring for
// diagnostics.
type Center struct {
	mu         sync.Mutex
	current    *Notification
	expiry     *time.Timer
	routineTTL time.Duration
	alertTTL   time.Duration
	history    []Notification
	maxHistory int
	logger     *zap.Logger
}

// Config holds notification display durations.
type Config struct {
	RoutineTTL time.Duration // success/error/warning/info
	AlertTTL   time.Duration // alert-class messages
	MaxHistory int
}

// DefaultConfig returns the standard display durations.
func DefaultConfig() Config {
	return Config{
		RoutineTTL: 3 * time.Second,
		AlertTTL:   5 * time.Second,
		MaxHistory: 100,
	}
}

// NewCenter creates a notification center.
func NewCenter(cfg Config, logger *zap.Logger) *Center {
	if cfg.RoutineTTL <= 0 {
		cfg.RoutineTTL = 3 * time.Second
	}
	if cfg.AlertTTL <= 0 {
		cfg.AlertTTL = 5 * time.Second
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 100
	}
	return &Center{
		routineTTL: cfg.RoutineTTL,
		alertTTL:   cfg.AlertTTL,
		history:    make([]Notification, 0, cfg.MaxHistory),
		maxHistory: cfg.MaxHistory,
		logger:     logger.Named("notify"),
	}
}

// Notify replaces the visible notification. Last write wins: a pending
// message that has not expired yet is silently discarded.
func (c *Center) Notify(message string, kind Kind) Notification {
	ttl := c.routineTTL
	if kind == KindAlert {
		ttl = c.alertTTL
	}

	now := time.Now()
	n := Notification{
		ID:        uuid.New().String(),
		Message:   message,
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.expiry != nil {
		c.expiry.Stop()
	}
	c.current = &n
	c.appendHistory(n)

	id := n.ID
	c.expiry = time.AfterFunc(ttl, func() {
		c.expire(id)
	})

	c.logger.Debug("notification shown",
		zap.String("kind", string(kind)),
		zap.String("message", message))
	return n
}

// Current returns the visible notification, if any. An expired message is
// never returned even if the expiry callback has not run yet.
func (c *Center) Current() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || time.Now().After(c.current.ExpiresAt) {
		return Notification{}, false
	}
	return *c.current, true
}

// History returns the most recent notifications, newest last.
func (c *Center) History(limit int) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit <= 0 || limit > len(c.history) {
		limit = len(c.history)
	}
	out := make([]Notification, limit)
	copy(out, c.history[len(c.history)-limit:])
	return out
}

// Close stops the pending expiry timer.
func (c *Center) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
	c.current = nil
	return nil
}

// expire clears the slot only if the message that scheduled it is still the
// one on display. A newer Notify already replaced both slot and timer.
func (c *Center) expire(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.ID == id {
		c.current = nil
	}
}

func (c *Center) appendHistory(n Notification) {
	if len(c.history) >= c.maxHistory {
		c.history = c.history[1:]
	}
	c.history = append(c.history, n)
}
