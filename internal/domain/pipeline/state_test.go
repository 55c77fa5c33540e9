package pipeline

import (
	"testing"
	"time"

	"snapquiz-server-go/internal/domain/eventbus"
)

func TestTracker_PublishesOutsideLock(t *testing.T) {
	bus := eventbus.New()
	tracker := NewTracker(bus)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	if err := bus.SubscribeStatus(func(eventbus.StatusEvent) {
		entered <- struct{}{}
		<-release
	}); err != nil {
		t.Fatalf("SubscribeStatus error: %v", err)
	}
	defer close(release)

	go tracker.SetStatus("cycle-1", StatusCapturing)
	<-entered

	// The subscriber is stalled mid-publication. The write already landed
	// before the publish, so reads must return without waiting for it.
	done := make(chan RunState, 1)
	go func() { done <- tracker.Snapshot() }()
	select {
	case st := <-done:
		if st.Status != StatusCapturing {
			t.Fatalf("status = %q, want %q", st.Status, StatusCapturing)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Snapshot blocked by a stalled subscriber")
	}

	answers := make(chan string, 1)
	go func() { answers <- tracker.LastAnswer() }()
	select {
	case <-answers:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("LastAnswer blocked by a stalled subscriber")
	}
}

func TestTracker_PublishedEventMatchesStateAtWrite(t *testing.T) {
	bus := eventbus.New()
	tracker := NewTracker(bus)

	events := make(chan eventbus.StatusEvent, 4)
	if err := bus.SubscribeStatus(func(ev eventbus.StatusEvent) {
		events <- ev
	}); err != nil {
		t.Fatalf("SubscribeStatus error: %v", err)
	}

	tracker.StartSession("session-1")
	tracker.SetStatus("cycle-1", StatusExtracting)

	first := <-events
	if !first.IsCapturing || first.SessionID != "session-1" {
		t.Fatalf("start event = %+v", first)
	}
	second := <-events
	if second.Status != StatusExtracting || second.CycleID != "cycle-1" {
		t.Fatalf("status event = %+v", second)
	}
}
