package audit

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(4)
	defer b.Unsubscribe(ch)

	ev := NewEvent("s1", EventToolBlocked, SeverityHigh, ActionBlocked, "blocked")
	b.Publish(ev)

	select {
	case got := <-ch:
		if got.ID != ev.ID {
			t.Fatalf("got event %q, want %q", got.ID, ev.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBrokerDropsOnFullBuffer(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(1)
	defer b.Unsubscribe(ch)

	b.Publish(NewEvent("s1", EventTaintRegistered, SeverityInfo, ActionLogged, "one"))
	b.Publish(NewEvent("s1", EventTaintRegistered, SeverityInfo, ActionLogged, "two"))

	if got := b.DroppedCount(); got != 1 {
		t.Fatalf("DroppedCount() = %d, want 1", got)
	}
	got := <-ch
	if got.Details != "one" {
		t.Fatalf("kept event %q, want %q", got.Details, "one")
	}
}

func TestBrokerCloseClosesSubscribers(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(1)
	b.Close()

	if _, open := <-ch; open {
		t.Fatal("subscriber channel still open after Close")
	}

	// Publish after close is a no-op, Close is idempotent.
	b.Publish(NewEvent("s1", EventTaintRegistered, SeverityInfo, ActionLogged, "late"))
	b.Close()

	ch2 := b.Subscribe(1)
	if _, open := <-ch2; open {
		t.Fatal("Subscribe after Close returned an open channel")
	}
}

func TestBrokerUnsubscribeIdempotent(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(1)
	b.Unsubscribe(ch)
	b.Unsubscribe(ch)
}
