package logger

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func entryN(n int) Entry {
	return Entry{
		Timestamp: time.Now(),
		Level:     "info",
		Message:   fmt.Sprintf("entry %d", n),
	}
}

func TestRingRecentBeforeWrap(t *testing.T) {
	r := NewRing(5)
	for i := 0; i < 3; i++ {
		r.Add(entryN(i))
	}

	got := r.Recent(0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Message != "entry 0" || got[2].Message != "entry 2" {
		t.Errorf("order = [%q .. %q], want oldest first", got[0].Message, got[2].Message)
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Add(entryN(i))
	}

	got := r.Recent(0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Message != "entry 2" {
		t.Errorf("oldest retained = %q, want entry 2", got[0].Message)
	}
	if got[2].Message != "entry 4" {
		t.Errorf("newest = %q, want entry 4", got[2].Message)
	}
	if r.Total() != 5 {
		t.Errorf("total = %d, want 5", r.Total())
	}
}

func TestRingRecentLimit(t *testing.T) {
	r := NewRing(10)
	for i := 0; i < 6; i++ {
		r.Add(entryN(i))
	}

	got := r.Recent(2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Message != "entry 4" || got[1].Message != "entry 5" {
		t.Errorf("limited window = [%q %q], want the newest two", got[0].Message, got[1].Message)
	}
}

func TestRingConcurrentAccess(t *testing.T) {
	r := NewRing(100)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.Add(entryN(id*100 + i))
				_ = r.Recent(10)
			}
		}(g)
	}
	wg.Wait()

	if r.Total() != 400 {
		t.Errorf("total = %d, want 400", r.Total())
	}
}
