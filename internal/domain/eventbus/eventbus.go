package eventbus

import (
	"time"

	evbus "github.com/asaskevich/EventBus"
)

// Topics published by the capture pipeline.
const (
	TopicStatus = "capture.status"
	TopicAnswer = "capture.answer"
	TopicFrame  = "capture.frame"
)

// StatusEvent describes a run-state change.
type StatusEvent struct {
	SessionID   string    `json:"session_id,omitempty"`
	CycleID     string    `json:"cycle_id,omitempty"`
	IsCapturing bool      `json:"is_capturing"`
	Status      string    `json:"status"`
	At          time.Time `json:"at"`
}

// AnswerEvent carries a new (or cleared) answer value.
type AnswerEvent struct {
	SessionID string    `json:"session_id,omitempty"`
	CycleID   string    `json:"cycle_id,omitempty"`
	Answer    string    `json:"answer"`
	At        time.Time `json:"at"`
}

// FrameEvent announces a freshly buffered frame.
type FrameEvent struct {
	Format string    `json:"format"`
	Bytes  int       `json:"bytes"`
	At     time.Time `json:"at"`
}

// Bus is a thin wrapper around EventBus keeping topic names in one place.
type Bus struct {
	bus evbus.Bus
}

func New() *Bus {
	return &Bus{bus: evbus.New()}
}

func (b *Bus) PublishStatus(ev StatusEvent) {
	b.bus.Publish(TopicStatus, ev)
}

func (b *Bus) PublishAnswer(ev AnswerEvent) {
	b.bus.Publish(TopicAnswer, ev)
}

func (b *Bus) PublishFrame(ev FrameEvent) {
	b.bus.Publish(TopicFrame, ev)
}

func (b *Bus) SubscribeStatus(fn func(StatusEvent)) error {
	return b.bus.Subscribe(TopicStatus, fn)
}

func (b *Bus) SubscribeAnswer(fn func(AnswerEvent)) error {
	return b.bus.Subscribe(TopicAnswer, fn)
}

func (b *Bus) SubscribeFrame(fn func(FrameEvent)) error {
	return b.bus.Subscribe(TopicFrame, fn)
}

func (b *Bus) UnsubscribeStatus(fn func(StatusEvent)) error {
	return b.bus.Unsubscribe(TopicStatus, fn)
}

func (b *Bus) UnsubscribeAnswer(fn func(AnswerEvent)) error {
	return b.bus.Unsubscribe(TopicAnswer, fn)
}

func (b *Bus) UnsubscribeFrame(fn func(FrameEvent)) error {
	return b.bus.Unsubscribe(TopicFrame, fn)
}
