// internal/watchlist/tracker.go
package watchlist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/novasniper/novadash/internal/events"
	"github.com/novasniper/novadash/internal/gateway"
	"github.com/novasniper/novadash/internal/notify"
	"github.com/novasniper/novadash/internal/types"
	"go.uber.org/zap"
)

// Store is the watchlist CRUD surface.
type Store interface {
	ListWatchlist(ctx context.Context, userEmail string) ([]types.WatchlistEntry, error)
	UpdateWatchlist(ctx context.Context, id string, patch gateway.WatchlistPatch) error
	DeleteWatchlist(ctx context.Context, id string) error
}

// SafetyChecker evaluates a token's safety on demand.
type SafetyChecker interface {
	Check(ctx context.Context, tokenAddress string) (*types.SafetyCheck, error)
}

// Notifier surfaces watchlist outcomes to the user.
type Notifier interface {
	Notify(message string, kind notify.Kind) notify.Notification
}

// SortOrder selects the watchlist presentation order.
type SortOrder string

const (
	SortDateAdded    SortOrder = "dateAdded"
	SortAlphabetical SortOrder = "alphabetical"
	SortPerformance  SortOrder = "performance"
)

// Settings is the per-entry configuration applied by UpdateSettings. Tags
// is a comma-separated list; entries are trimmed and empties dropped.
type Settings struct {
	Threshold float64
	Interval  int
	Tags      string
	Notes     string
}

// Stats summarizes the loaded watchlist.
type Stats struct {
	Total         int
	AlertsEnabled int
	BestPeakGain  float64
	BestSymbol    string
}

// Tracker maintains one user's watch entries. Every mutation is a CRUD
// call followed by a full reload; there is no optimistic local patching.
type Tracker struct {
	store     Store
	safety    SafetyChecker
	notifier  Notifier
	bus       *events.Bus
	logger    *zap.Logger
	userEmail string

	mu      sync.RWMutex
	entries []types.WatchlistEntry
}

// NewTracker creates a watchlist tracker for one user. bus may be nil.
func NewTracker(store Store, safety SafetyChecker, notifier Notifier,
	bus *events.Bus, userEmail string, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:     store,
		safety:    safety,
		notifier:  notifier,
		bus:       bus,
		userEmail: userEmail,
		logger:    logger.Named("watchlist"),
	}
}

// Load fetches the user's watchlist and replaces the local snapshot. An
// entry's peak price never decreases across reloads while it exists.
func (t *Tracker) Load(ctx context.Context) ([]types.WatchlistEntry, error) {
	entries, err := t.store.ListWatchlist(ctx, t.userEmail)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}

	t.mu.Lock()
	previous := make(map[string]float64, len(t.entries))
	for _, e := range t.entries {
		previous[e.TokenAddress] = e.PeakPrice
	}
	for i := range entries {
		if peak, ok := previous[entries[i].TokenAddress]; ok && peak > entries[i].PeakPrice {
			entries[i].PeakPrice = peak
		}
	}
	t.entries = entries
	t.mu.Unlock()

	t.logger.Info(fmt.Sprintf("📋 Watchlist loaded: %d tokens for %s", len(entries), t.userEmail))
	return t.Entries(), nil
}

// Entries returns a copy of the current snapshot.
func (t *Tracker) Entries() []types.WatchlistEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.WatchlistEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ToggleAlert flips the alert flag of one entry, then reloads.
func (t *Tracker) ToggleAlert(ctx context.Context, id string) error {
	entry, ok := t.byID(id)
	if !ok {
		return fmt.Errorf("watchlist entry %s not found", id)
	}

	enabled := !entry.AlertEnabled
	patch := gateway.WatchlistPatch{AlertEnabled: &enabled}
	if err := t.store.UpdateWatchlist(ctx, id, patch); err != nil {
		t.notifier.Notify("❌ Failed to update settings", notify.KindError)
		return fmt.Errorf("toggle alert: %w", err)
	}
	if _, err := t.Load(ctx); err != nil {
		return err
	}

	t.publishChange("toggle_alert", id)
	return nil
}

// UpdateSettings validates and applies per-entry alert settings, then
// reloads. A ValidationError means no remote call was issued.
func (t *Tracker) UpdateSettings(ctx context.Context, id string, settings Settings) error {
	if _, ok := t.byID(id); !ok {
		return fmt.Errorf("watchlist entry %s not found", id)
	}
	if err := validateSettings(settings); err != nil {
		t.notifier.Notify(fmt.Sprintf("⚠️ %v", err), notify.KindWarning)
		return err
	}

	tags := splitTags(settings.Tags)
	notes := settings.Notes
	patch := gateway.WatchlistPatch{
		AlertThreshold: &settings.Threshold,
		AlertInterval:  &settings.Interval,
		Tags:           &tags,
		Notes:          &notes,
	}
	if err := t.store.UpdateWatchlist(ctx, id, patch); err != nil {
		t.notifier.Notify("❌ Failed to update settings", notify.KindError)
		return fmt.Errorf("update settings: %w", err)
	}
	if _, err := t.Load(ctx); err != nil {
		return err
	}

	t.notifier.Notify("✅ Token settings updated", notify.KindSuccess)
	t.publishChange("update_settings", id)
	return nil
}

// Remove deletes the entry watching the given token, then reloads.
// Removing an unwatched token is a no-op.
func (t *Tracker) Remove(ctx context.Context, tokenAddress string) error {
	entry, ok := t.byAddress(tokenAddress)
	if !ok {
		return nil
	}

	if err := t.store.DeleteWatchlist(ctx, entry.ID); err != nil {
		t.notifier.Notify("❌ Failed to remove token", notify.KindError)
		return fmt.Errorf("remove from watchlist: %w", err)
	}
	if _, err := t.Load(ctx); err != nil {
		return err
	}

	t.notifier.Notify(fmt.Sprintf("✅ %s removed from watchlist", entry.TokenSymbol), notify.KindSuccess)
	t.publishChange("remove", entry.ID)
	return nil
}

// EvaluateSafety requests the safety verdict for a tracked token. Requests
// for the same address are de-duplicated by the checker, not here.
func (t *Tracker) EvaluateSafety(ctx context.Context, tokenAddress string) (*types.SafetyCheck, error) {
	return t.safety.Check(ctx, tokenAddress)
}

// Filtered returns the snapshot filtered by tag ("all" or empty keeps
// everything) and sorted by the given order.
func (t *Tracker) Filtered(tag string, order SortOrder) []types.WatchlistEntry {
	entries := t.Entries()

	if tag != "" && tag != "all" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.HasTag(tag) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	switch order {
	case SortAlphabetical:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].TokenSymbol < entries[j].TokenSymbol
		})
	case SortPerformance:
		sort.SliceStable(entries, func(i, j int) bool {
			gi, _ := entries[i].PeakGain()
			gj, _ := entries[j].PeakGain()
			return gi > gj
		})
	default: // SortDateAdded, newest first
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		})
	}
	return entries
}

// AllTags returns the distinct tags across the snapshot, sorted.
func (t *Tracker) AllTags() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range t.entries {
		for _, tag := range e.Tags {
			seen[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Stats summarizes the snapshot for the header dashboard.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := Stats{Total: len(t.entries)}
	for _, e := range t.entries {
		if e.AlertEnabled {
			stats.AlertsEnabled++
		}
		if gain, ok := e.PeakGain(); ok && gain > stats.BestPeakGain {
			stats.BestPeakGain = gain
			stats.BestSymbol = e.TokenSymbol
		}
	}
	return stats
}

func (t *Tracker) byID(id string) (types.WatchlistEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.ID == id {
			return e, true
		}
	}
	return types.WatchlistEntry{}, false
}

func (t *Tracker) byAddress(tokenAddress string) (types.WatchlistEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.TokenAddress == tokenAddress {
			return e, true
		}
	}
	return types.WatchlistEntry{}, false
}

func (t *Tracker) publishChange(operation, id string) {
	if t.bus == nil {
		return
	}
	_ = t.bus.Publish(events.WatchlistChangedEvent{
		BaseEvent: events.Base(events.WatchlistChanged),
		Operation: operation,
		EntryID:   id,
	})
}

func validateSettings(s Settings) error {
	if s.Threshold <= 0 {
		return &ValidationError{Field: "threshold", Reason: "must be a positive percentage"}
	}
	if s.Interval <= 0 {
		return &ValidationError{Field: "interval", Reason: "must be a positive number of seconds"}
	}
	return nil
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if tag := strings.TrimSpace(p); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
