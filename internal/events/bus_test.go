package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	}()

	var received int32
	bus.SubscribeFunc(SessionStarted, func(ctx context.Context, e Event) error {
		atomic.AddInt32(&received, 1)
		return nil
	})

	if err := bus.Publish(SessionStartedEvent{BaseEvent: Base(SessionStarted)}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&received) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event was not delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishSkipsOtherEventTypes(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)

	var received int32
	bus.SubscribeFunc(AlertsTriggered, func(ctx context.Context, e Event) error {
		atomic.AddInt32(&received, 1)
		return nil
	})

	if err := bus.PublishSync(context.Background(), SessionStoppedEvent{BaseEvent: Base(SessionStopped)}); err != nil {
		t.Fatalf("publish sync: %v", err)
	}
	if got := atomic.LoadInt32(&received); got != 0 {
		t.Errorf("handler for another event type received %d events", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = bus.Shutdown(ctx)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)

	var received int32
	sub := bus.SubscribeFunc(FeedRefreshed, func(ctx context.Context, e Event) error {
		atomic.AddInt32(&received, 1)
		return nil
	})
	sub.Unsubscribe()

	if err := bus.PublishSync(context.Background(), FeedRefreshedEvent{BaseEvent: Base(FeedRefreshed)}); err != nil {
		t.Fatalf("publish sync: %v", err)
	}
	if got := atomic.LoadInt32(&received); got != 0 {
		t.Errorf("unsubscribed handler received %d events", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = bus.Shutdown(ctx)
}

func TestPublishSyncCollectsHandlerErrors(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)

	bus.SubscribeFunc(WatchlistChanged, func(ctx context.Context, e Event) error {
		return errors.New("handler boom")
	})

	err := bus.PublishSync(context.Background(), WatchlistChangedEvent{BaseEvent: Base(WatchlistChanged)})
	if err == nil {
		t.Fatal("expected handler errors to surface")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = bus.Shutdown(ctx)
}

func TestPublishAfterShutdown(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bus.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := bus.Publish(SessionStartedEvent{BaseEvent: Base(SessionStarted)}); err == nil {
		t.Error("publish after shutdown must fail")
	}
}

func TestBaseEventStamped(t *testing.T) {
	before := time.Now()
	e := Base(SessionStarted)
	if e.Type() != SessionStarted {
		t.Errorf("type = %s, want %s", e.Type(), SessionStarted)
	}
	if e.Timestamp().Before(before) {
		t.Error("timestamp must not predate creation")
	}
}
