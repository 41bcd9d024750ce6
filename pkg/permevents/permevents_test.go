package permevents

import (
	"testing"
	"time"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(1)
	defer b.Unsubscribe(sub)

	b.Publish(Event{Kind: KindUserPermission, Entity: "alice", Path: "a.b"})

	select {
	case e := <-sub:
		if e.Entity != "alice" || e.Path != "a.b" {
			t.Errorf("received %+v, want entity=alice path=a.b", e)
		}
		if e.Time.IsZero() {
			t.Error("expected Publish to stamp a zero Time with the current time")
		}
	case <-time.After(time.Second):
		t.Fatal("expected to receive the published event")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(1)
	defer b.Unsubscribe(sub)

	b.Publish(Event{Kind: KindUserPermission, Entity: "a"})
	b.Publish(Event{Kind: KindUserPermission, Entity: "b"})

	select {
	case e := <-sub:
		if e.Entity != "a" {
			t.Errorf("expected the first event to survive, got %+v", e)
		}
	default:
		t.Fatal("expected the first published event to be buffered")
	}

	select {
	case e := <-sub:
		t.Errorf("expected the second event to be dropped (buffer full), got %+v", e)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(1)
	b.Unsubscribe(sub)

	_, ok := <-sub
	if ok {
		t.Error("expected the subscriber channel to be closed after Unsubscribe")
	}
}

func TestPublishIgnoresUnsubscribed(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(1)
	b.Unsubscribe(sub)

	b.Publish(Event{Kind: KindDefaultChange, Entity: "*"})
}

func TestWebSocketBroadcasterRunAndStopDrainsBus(t *testing.T) {
	b := NewBus()
	wsb := NewWebSocketBroadcaster(b)
	wsb.Run()

	b.Publish(Event{Kind: KindUserPermission, Entity: "alice", Path: "a.b"})

	stopped := make(chan struct{})
	go func() {
		wsb.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("expected Stop to return once the broadcast loop drains and exits")
	}
}
