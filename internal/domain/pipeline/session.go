package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"snapquiz-server-go/internal/platform/logging"
	platformerrors "snapquiz-server-go/internal/platform/errors"
)

// ErrAlreadyActive is returned when a start request arrives while a session
// is running.
var ErrAlreadyActive = platformerrors.New(platformerrors.KindSession, "session.start", "capture session already active")

// Session is the handle returned by Start. Stopping happens through the
// manager; Done unblocks once the session loop has fully exited.
type Session struct {
	ID     string
	stopCh chan struct{}
	done   chan struct{}
	stop   sync.Once
}

// Done is closed when the session loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) requestStop() {
	s.stop.Do(func() { close(s.stopCh) })
}

// Manager owns the repeating schedule around the cycle runner: start runs one
// cycle immediately and then re-runs on the configured interval until stopped.
//
// Cycles are serialized: the next cycle is scheduled only after the previous
// one finishes, so overlapping cycles cannot occur even when a call outlasts
// the interval.
type Manager struct {
	runner *Runner
	state  *Tracker
	logger *logging.Logger

	mu     sync.Mutex
	active *Session
}

func NewManager(runner *Runner, state *Tracker, logger *logging.Logger) *Manager {
	return &Manager{
		runner: runner,
		state:  state,
		logger: logger,
	}
}

// Active reports whether a capture session is currently running.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Start begins a capture session. The first cycle runs immediately; the
// provided context bounds the whole application lifetime, not a single
// session, so a user stop lets an in-flight cycle finish.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	session := &Session{
		ID:     uuid.New().String(),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	m.active = session
	m.mu.Unlock()

	m.state.StartSession(session.ID)
	if m.logger != nil {
		m.logger.InfoTag("CAPTURE", "session %s started", session.ID)
	}

	go m.loop(ctx, session)
	return session, nil
}

func (m *Manager) loop(ctx context.Context, session *Session) {
	defer close(session.done)
	defer m.clear(session)

	for {
		outcome := m.runner.RunCycle(ctx, session.ID)
		if outcome.StopSession {
			// The runner already reported the terminal status.
			return
		}
		if outcome.Interval <= 0 {
			outcome.Interval = 40 * time.Second
		}

		timer := time.NewTimer(outcome.Interval)
		select {
		case <-session.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (m *Manager) clear(session *Session) {
	m.mu.Lock()
	if m.active == session {
		m.active = nil
	}
	m.mu.Unlock()
}

// Stop ends the active session. The in-flight cycle, if any, completes and
// publishes its outcome once more; no further cycles are scheduled. Returns
// false when no session was running.
func (m *Manager) Stop() bool {
	m.mu.Lock()
	session := m.active
	m.active = nil
	m.mu.Unlock()

	if session == nil {
		return false
	}

	session.requestStop()
	m.state.EndSession(StatusIdle)
	if m.logger != nil {
		m.logger.InfoTag("CAPTURE", "session %s stopped", session.ID)
	}
	return true
}
