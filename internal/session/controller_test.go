package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/novasniper/novadash/internal/notify"
	"go.uber.org/zap"
)

// callRecorder captures the order of pipeline and scheduler calls.
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *callRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

type mockPipeline struct {
	rec      *callRecorder
	startErr error
	stopErr  error
}

func (m *mockPipeline) StartAllPhases(ctx context.Context) error {
	m.rec.record("start_all_phases")
	return m.startErr
}

func (m *mockPipeline) StopAllPhases(ctx context.Context) error {
	m.rec.record("stop_all_phases")
	return m.stopErr
}

type mockArmer struct {
	rec *callRecorder
}

func (m *mockArmer) Arm(ctx context.Context) { m.rec.record("arm") }
func (m *mockArmer) Disarm()                 { m.rec.record("disarm") }

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(message string, kind notify.Kind) notify.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return notify.Notification{Message: message, Kind: kind}
}

func newTestController(startErr, stopErr error) (*Controller, *callRecorder, *mockNotifier) {
	rec := &callRecorder{}
	pipeline := &mockPipeline{rec: rec, startErr: startErr, stopErr: stopErr}
	notifier := &mockNotifier{}
	c := NewController(pipeline, &mockArmer{rec: rec}, notifier, nil, zap.NewNop())
	return c, rec, notifier
}

func TestStartSuccess(t *testing.T) {
	c, rec, _ := newTestController(nil, nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := c.Status(); got != StatusMonitoring {
		t.Errorf("status = %s, want %s", got, StatusMonitoring)
	}
	if !c.IsMonitoring() {
		t.Error("IsMonitoring must be true after a successful start")
	}

	calls := rec.snapshot()
	if len(calls) != 2 || calls[0] != "start_all_phases" || calls[1] != "arm" {
		t.Errorf("calls = %v, want [start_all_phases arm]", calls)
	}
}

func TestStartFailure(t *testing.T) {
	c, rec, _ := newTestController(errors.New("orchestrator down"), nil)

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail")
	}
	if got := c.Status(); got != StatusError {
		t.Errorf("status = %s, want %s", got, StatusError)
	}

	for _, call := range rec.snapshot() {
		if call == "arm" {
			t.Error("scheduler must not be armed after a failed start")
		}
	}
}

func TestStartRetryableFromError(t *testing.T) {
	c, _, _ := newTestController(errors.New("boom"), nil)
	_ = c.Start(context.Background())
	if c.Status() != StatusError {
		t.Fatalf("precondition: status = %s", c.Status())
	}

	// Swap the pipeline for a healthy one via a fresh controller state:
	// ERROR is a valid origin for Start.
	c.pipeline = &mockPipeline{rec: &callRecorder{}}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("restart from ERROR: %v", err)
	}
	if c.Status() != StatusMonitoring {
		t.Errorf("status = %s, want %s", c.Status(), StatusMonitoring)
	}
}

func TestStartIgnoredWhileMonitoring(t *testing.T) {
	c, rec, _ := newTestController(nil, nil)
	_ = c.Start(context.Background())

	before := len(rec.snapshot())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("redundant start must be a no-op, got %v", err)
	}
	if got := len(rec.snapshot()); got != before {
		t.Errorf("redundant start issued calls: %d -> %d", before, got)
	}
	if c.Status() != StatusMonitoring {
		t.Errorf("status = %s, want %s", c.Status(), StatusMonitoring)
	}
}

func TestStopDisarmsBeforeRemoteCall(t *testing.T) {
	c, rec, _ := newTestController(nil, nil)
	_ = c.Start(context.Background())

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if c.Status() != StatusStandby {
		t.Errorf("status = %s, want %s", c.Status(), StatusStandby)
	}

	calls := rec.snapshot()
	disarmIdx, stopIdx := -1, -1
	for i, call := range calls {
		switch call {
		case "disarm":
			disarmIdx = i
		case "stop_all_phases":
			stopIdx = i
		}
	}
	if disarmIdx == -1 || stopIdx == -1 {
		t.Fatalf("calls = %v, missing disarm or stop_all_phases", calls)
	}
	if disarmIdx > stopIdx {
		t.Errorf("calls = %v: scheduler must be disarmed before the remote stop", calls)
	}
}

func TestStopFailureStillEndsStandby(t *testing.T) {
	c, _, _ := newTestController(nil, errors.New("network down"))
	_ = c.Start(context.Background())

	if err := c.Stop(context.Background()); err == nil {
		t.Fatal("expected stop to surface the remote error")
	}
	if c.Status() != StatusStandby {
		t.Errorf("status = %s, want %s even when the remote call failed", c.Status(), StatusStandby)
	}
}

func TestStopIgnoredWhileStandby(t *testing.T) {
	c, rec, _ := newTestController(nil, nil)

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("stop from standby must be a no-op, got %v", err)
	}
	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("stop from standby issued %d calls", got)
	}
	if c.Status() != StatusStandby {
		t.Errorf("status = %s, want %s", c.Status(), StatusStandby)
	}
}
