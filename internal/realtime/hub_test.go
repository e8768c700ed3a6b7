package realtime

import (
	"testing"
	"time"

	"github.com/iliyamo/screening-seat-engine/internal/model"
)

func event(screeningID, version uint64) model.ChangeEvent {
	return model.ChangeEvent{Kind: model.EventHoldUpdated, ScreeningID: screeningID, Version: version}
}

func TestPublish_ReachesOnlyThatScreening(t *testing.T) {
	h := NewHub(4)
	a := h.Subscribe(1)
	b := h.Subscribe(1)
	other := h.Subscribe(2)

	h.Publish(event(1, 1))

	for _, sub := range []*Subscription{a, b} {
		select {
		case ev := <-sub.Events:
			if ev.Version != 1 {
				t.Fatalf("unexpected event %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s got nothing", sub.ID)
		}
	}
	select {
	case ev := <-other.Events:
		t.Fatalf("screening 2 received %+v", ev)
	default:
	}
}

func TestPublish_PreservesOrder(t *testing.T) {
	h := NewHub(8)
	sub := h.Subscribe(5)
	for v := uint64(1); v <= 5; v++ {
		h.Publish(event(5, v))
	}
	for want := uint64(1); want <= 5; want++ {
		ev := <-sub.Events
		if ev.Version != want {
			t.Fatalf("expected version %d, got %d", want, ev.Version)
		}
	}
}

func TestPublish_DropsForSlowSubscriberWithoutBlocking(t *testing.T) {
	h := NewHub(1)
	slow := h.Subscribe(1)
	fast := h.Subscribe(1)

	done := make(chan struct{})
	go func() {
		h.Publish(event(1, 1))
		<-fast.Events
		h.Publish(event(1, 2))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked on a full subscriber")
	}
	if ev := <-slow.Events; ev.Version != 1 {
		t.Fatalf("slow subscriber should keep the first event, got %d", ev.Version)
	}
	if ev := <-fast.Events; ev.Version != 2 {
		t.Fatalf("fast subscriber should get the second event, got %d", ev.Version)
	}
}

func TestUnsubscribe_IdempotentAndClosesChannel(t *testing.T) {
	h := NewHub(1)
	sub := h.Subscribe(3)
	if h.Subscribers(3) != 1 {
		t.Fatalf("expected 1 subscriber")
	}
	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	if h.Subscribers(3) != 0 {
		t.Fatalf("expected 0 subscribers, got %d", h.Subscribers(3))
	}
	if _, ok := <-sub.Events; ok {
		t.Fatalf("channel should be closed")
	}
	h.Publish(event(3, 1)) // must not panic on a closed channel
}

func TestSubscribe_UniqueIDs(t *testing.T) {
	h := NewHub(0)
	a, b := h.Subscribe(1), h.Subscribe(1)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
}
