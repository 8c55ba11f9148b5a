package event

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBusSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var received Event
	var wg sync.WaitGroup
	wg.Add(1)

	unsub := bus.Subscribe(SessionOpened, func(e Event) {
		received = e
		wg.Done()
	})
	defer unsub()

	bus.Publish(Event{Type: SessionOpened, Data: SessionOpenedData{SessionID: "s1"}})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if received.Type != SessionOpened {
			t.Errorf("expected SessionOpened, got %v", received.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	var wg sync.WaitGroup
	wg.Add(3)

	unsub := bus.SubscribeAll(func(e Event) {
		atomic.AddInt32(&count, 1)
		wg.Done()
	})
	defer unsub()

	bus.Publish(Event{Type: SessionOpened})
	bus.Publish(Event{Type: TurnStarted})
	bus.Publish(Event{Type: SessionClosed})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for events")
	}

	if got := atomic.LoadInt32(&count); got != 3 {
		t.Errorf("expected 3 events, got %d", got)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	unsub := bus.Subscribe(TurnCompleted, func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.PublishSync(Event{Type: TurnCompleted})
	unsub()
	bus.PublishSync(Event{Type: TurnCompleted})

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("expected 1 delivery after unsubscribe, got %d", got)
	}
}

func TestBusPublishSyncOrdering(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var order []Type
	bus.SubscribeAll(func(e Event) {
		order = append(order, e.Type)
	})

	bus.PublishSync(Event{Type: TurnStarted})
	bus.PublishSync(Event{Type: TurnCompleted})

	if len(order) != 2 || order[0] != TurnStarted || order[1] != TurnCompleted {
		t.Errorf("unexpected delivery order: %v", order)
	}
}

func TestBusClosedIsNoop(t *testing.T) {
	bus := NewBus()
	bus.Close()

	called := false
	bus.Subscribe(SessionOpened, func(e Event) { called = true })
	bus.PublishSync(Event{Type: SessionOpened})

	if called {
		t.Error("closed bus should not deliver events")
	}
}
