package events

import (
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub()

	ch1, cancel1 := hub.Subscribe()
	defer cancel1()
	ch2, cancel2 := hub.Subscribe()
	defer cancel2()

	hub.Publish(Event{Type: TypeXPAwarded, UserID: "u1", Data: map[string]interface{}{"amount": 90}})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != TypeXPAwarded || ev.UserID != "u1" {
				t.Fatalf("subscriber %d got unexpected event %+v", i, ev)
			}
			if ev.At.IsZero() {
				t.Fatalf("subscriber %d got event without timestamp", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive event", i)
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe()
	cancel()
	// Cancel is idempotent.
	cancel()

	if hub.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", hub.SubscriberCount())
	}

	hub.Publish(Event{Type: TypeLevelUp, UserID: "u1"})

	if _, open := <-ch; open {
		t.Fatal("expected closed channel after cancel")
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()

	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*4; i++ {
			hub.Publish(Event{Type: TypeCheckIn, UserID: "u1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
