package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan StreamCrashedEvent, 1)

	unsub := bus.Subscribe(func(e StreamCrashedEvent) {
		received <- e
	})
	defer unsub()

	event := StreamCrashedEvent{
		StreamID:  "sailboat",
		ExitCode:  1,
		Timestamp: "2026-08-25T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.StreamID != event.StreamID {
		t.Errorf("Expected stream_id %s, got %s", event.StreamID, got.StreamID)
	}
	if got.ExitCode != 1 {
		t.Errorf("Expected exit_code 1, got %d", got.ExitCode)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan StreamStartedEvent, 1)
	received2 := make(chan StreamStartedEvent, 1)

	unsub1 := bus.Subscribe(func(e StreamStartedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e StreamStartedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(StreamStartedEvent{StreamID: "sailboat", LoopCount: -1})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan VideoAddedEvent, 1)

	unsub := bus.Subscribe(func(e VideoAddedEvent) {
		received <- e
	})

	bus.Publish(VideoAddedEvent{Path: "/videos/a.mp4"})
	<-received

	unsub()

	bus.Publish(VideoAddedEvent{Path: "/videos/b.mp4"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_UnknownHandlerType(t *testing.T) {
	bus := New()

	unsub := bus.Subscribe(func(int) {})
	if unsub == nil {
		t.Fatal("expected no-op unsubscribe, got nil")
	}
	unsub()
}
