package pipeline

import (
	"sync"
	"time"

	"snapquiz-server-go/internal/domain/eventbus"
)

// RunState is the observable pipeline state: the current lifecycle phrase and
// the most recent answer. It is written only by the pipeline and the session
// manager; everything else reads snapshots.
type RunState struct {
	IsCapturing bool      `json:"is_capturing"`
	Status      string    `json:"status"`
	LastAnswer  string    `json:"last_answer"`
	SessionID   string    `json:"session_id,omitempty"`
	CycleID     string    `json:"cycle_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tracker guards the run state and publishes every change on the event bus.
// Publication happens on a snapshot taken after the lock is released, so a
// slow subscriber can never block Snapshot or the next state write.
type Tracker struct {
	mu    sync.RWMutex
	state RunState
	bus   *eventbus.Bus
	now   func() time.Time
}

func NewTracker(bus *eventbus.Bus) *Tracker {
	return &Tracker{
		state: RunState{Status: StatusIdle},
		bus:   bus,
		now:   time.Now,
	}
}

// Snapshot returns a copy of the current run state.
func (t *Tracker) Snapshot() RunState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Tracker) publishStatus(st RunState) {
	if t.bus == nil {
		return
	}
	t.bus.PublishStatus(eventbus.StatusEvent{
		SessionID:   st.SessionID,
		CycleID:     st.CycleID,
		IsCapturing: st.IsCapturing,
		Status:      st.Status,
		At:          st.UpdatedAt,
	})
}

func (t *Tracker) publishAnswer(st RunState) {
	if t.bus == nil {
		return
	}
	t.bus.PublishAnswer(eventbus.AnswerEvent{
		SessionID: st.SessionID,
		CycleID:   st.CycleID,
		Answer:    st.LastAnswer,
		At:        st.UpdatedAt,
	})
}

// StartSession marks the pipeline active for the given session.
func (t *Tracker) StartSession(sessionID string) {
	t.mu.Lock()
	t.state.IsCapturing = true
	t.state.SessionID = sessionID
	t.state.CycleID = ""
	t.state.Status = StatusCapturing
	t.state.UpdatedAt = t.now()
	st := t.state
	t.mu.Unlock()
	t.publishStatus(st)
}

// SetStatus records a new lifecycle phrase for the running cycle.
func (t *Tracker) SetStatus(cycleID, status string) {
	t.mu.Lock()
	t.state.CycleID = cycleID
	t.state.Status = status
	t.state.UpdatedAt = t.now()
	st := t.state
	t.mu.Unlock()
	t.publishStatus(st)
}

// SetAnswer records a new answer value (or the error marker).
func (t *Tracker) SetAnswer(cycleID, answer string) {
	t.mu.Lock()
	t.state.CycleID = cycleID
	t.state.LastAnswer = answer
	t.state.UpdatedAt = t.now()
	st := t.state
	t.mu.Unlock()
	t.publishAnswer(st)
}

// ClearAnswer drops the previous answer, used when a cycle finds no text.
func (t *Tracker) ClearAnswer(cycleID string) {
	t.SetAnswer(cycleID, "")
}

// EndSession marks the pipeline idle with a terminal status (Idle after a
// user stop, or the configuration-error phrase on auto-stop).
func (t *Tracker) EndSession(status string) {
	t.mu.Lock()
	t.state.IsCapturing = false
	t.state.SessionID = ""
	t.state.CycleID = ""
	t.state.Status = status
	t.state.UpdatedAt = t.now()
	st := t.state
	t.mu.Unlock()
	t.publishStatus(st)
}

// LastAnswer returns just the answer field.
func (t *Tracker) LastAnswer() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.LastAnswer
}
