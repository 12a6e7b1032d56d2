// internal/logger/ring.go
package logger

import (
	"sync"
	"time"
)

// Entry is a single captured log line for the diagnostics view.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Logger    string                 `json:"logger,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Ring is a thread-safe ring buffer of recent log entries. Oldest entries
// are overwritten once the buffer wraps.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	wrapped bool
	total   uint64
}

// NewRing creates a ring holding up to maxSize entries.
func NewRing(maxSize int) *Ring {
	if maxSize <= 0 {
		maxSize = 500
	}
	return &Ring{entries: make([]Entry, maxSize)}
}

// Add appends an entry, overwriting the oldest when full.
func (r *Ring) Add(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 && r.total > 0 {
		r.wrapped = true
	}
	r.total++
}

// Recent returns up to limit entries, oldest first.
func (r *Ring) Recent(limit int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := r.next
	start := 0
	if r.wrapped {
		count = len(r.entries)
		start = r.next
	}
	if limit > 0 && limit < count {
		start = (start + count - limit) % len(r.entries)
		count = limit
	}

	out := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, r.entries[(start+i)%len(r.entries)])
	}
	return out
}

// Total returns the number of entries ever added.
func (r *Ring) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
