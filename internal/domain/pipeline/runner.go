package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"snapquiz-server-go/internal/domain/frame"
	"snapquiz-server-go/internal/domain/history"
	"snapquiz-server-go/internal/domain/settings"
	"snapquiz-server-go/internal/platform/logging"
	"snapquiz-server-go/internal/platform/observability"
	platformerrors "snapquiz-server-go/internal/platform/errors"
)

// TextRecognizer extracts text from a captured frame.
type TextRecognizer interface {
	Recognize(ctx context.Context, f *frame.Frame, apiKey string) (string, error)
}

// AnswerProvider turns extracted text into a short answer token.
type AnswerProvider interface {
	Answer(ctx context.Context, text, prompt, apiKey string) (string, error)
}

// SettingsSource yields the current capture settings. The runner reads it at
// the start of every cycle so edits apply on the next cycle, never mid-cycle.
type SettingsSource interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// Runner drives one end-to-end capture cycle: precondition check, capture,
// text extraction, answer retrieval. Every failure is converted into a status
// phrase at the step where it happens; nothing propagates past the cycle.
type Runner struct {
	frames     frame.Source
	recognizer TextRecognizer
	answerer   AnswerProvider
	settings   SettingsSource
	state      *Tracker
	history    history.Store
	logger     *logging.Logger
}

// Options wires the runner's collaborators.
type Options struct {
	Frames     frame.Source
	Recognizer TextRecognizer
	Answerer   AnswerProvider
	Settings   SettingsSource
	State      *Tracker
	History    history.Store
	Logger     *logging.Logger
}

func NewRunner(opts Options) (*Runner, error) {
	if opts.Frames == nil {
		return nil, platformerrors.New(platformerrors.KindSession, "pipeline.new", "frame source is required")
	}
	if opts.Recognizer == nil {
		return nil, platformerrors.New(platformerrors.KindSession, "pipeline.new", "text recognizer is required")
	}
	if opts.Answerer == nil {
		return nil, platformerrors.New(platformerrors.KindSession, "pipeline.new", "answer provider is required")
	}
	if opts.Settings == nil {
		return nil, platformerrors.New(platformerrors.KindSession, "pipeline.new", "settings source is required")
	}
	if opts.State == nil {
		opts.State = NewTracker(nil)
	}
	return &Runner{
		frames:     opts.Frames,
		recognizer: opts.Recognizer,
		answerer:   opts.Answerer,
		settings:   opts.Settings,
		state:      opts.State,
		history:    opts.History,
		logger:     opts.Logger,
	}, nil
}

// CycleOutcome reports how a cycle finished and when the next one is due.
type CycleOutcome struct {
	CycleID     string
	Status      string
	Interval    time.Duration
	StopSession bool
}

// RunCycle executes one capture cycle. It never returns an error: every
// failure mode ends in a status phrase and an outcome, and a panic-free
// return keeps the schedule alive unless the configuration is missing.
func (r *Runner) RunCycle(ctx context.Context, sessionID string) CycleOutcome {
	cycleID := uuid.New().String()
	started := time.Now()
	defer func() {
		observability.RecordMetric(ctx, "capture.cycle.duration_ms",
			float64(time.Since(started).Milliseconds()),
			map[string]string{"status": r.state.Snapshot().Status})
	}()

	st, err := r.settings.Load(ctx)
	if err != nil {
		r.warn("CAPTURE", "settings unavailable: %v", err)
		r.state.EndSession(StatusSettingsUnavailable)
		return r.finish(ctx, sessionID, cycleID, StatusSettingsUnavailable, 0, 0, true)
	}
	interval := time.Duration(st.IntervalSeconds) * time.Second

	// Precondition: both service keys must be present, otherwise the whole
	// session stops rather than burning cycles that can never succeed.
	if !st.HasKeys() {
		r.warn("CAPTURE", "session %s stopped: API keys missing", sessionID)
		r.state.EndSession(StatusKeysMissing)
		return r.finish(ctx, sessionID, cycleID, StatusKeysMissing, interval, 0, true)
	}

	r.state.SetStatus(cycleID, StatusCapturing)
	f, err := r.frames.Still(ctx)
	if err != nil {
		// A missing frame is a reported outcome, not a fatal error; the
		// previous answer stays on screen.
		r.warn("CAPTURE", "no frame available: %v", err)
		r.state.SetStatus(cycleID, StatusCaptureFailed)
		return r.finish(ctx, sessionID, cycleID, StatusCaptureFailed, interval, 0, false)
	}

	r.state.SetStatus(cycleID, StatusExtracting)
	text, err := r.recognizer.Recognize(ctx, f, st.OCRAPIKey)
	if err != nil {
		r.warn("OCR", "recognition failed: %v", err)
		r.state.SetStatus(cycleID, StatusExtractFailed)
		return r.finish(ctx, sessionID, cycleID, StatusExtractFailed, interval, 0, false)
	}
	if strings.TrimSpace(text) == "" {
		r.state.ClearAnswer(cycleID)
		r.state.SetStatus(cycleID, StatusNoText)
		return r.finish(ctx, sessionID, cycleID, StatusNoText, interval, 0, false)
	}

	r.state.SetStatus(cycleID, StatusAnswering)
	answer, err := r.answerer.Answer(ctx, text, st.Prompt, st.CompletionAPIKey)
	if err != nil {
		r.warn("LLM", "answer lookup failed: %v", err)
		r.state.SetAnswer(cycleID, AnswerErrorMarker)
		r.state.SetStatus(cycleID, StatusAnswerFailed)
		return r.finish(ctx, sessionID, cycleID, StatusAnswerFailed, interval, len(text), false)
	}

	r.state.SetAnswer(cycleID, answer)
	r.state.SetStatus(cycleID, StatusComplete)
	r.info("CAPTURE", "cycle complete, answer %q", answer)
	return r.finish(ctx, sessionID, cycleID, StatusComplete, interval, len(text), false)
}

func (r *Runner) finish(ctx context.Context, sessionID, cycleID, status string, interval time.Duration, textChars int, stop bool) CycleOutcome {
	if r.history != nil {
		entry := history.Entry{
			CycleID:   cycleID,
			SessionID: sessionID,
			Status:    status,
			Answer:    r.state.LastAnswer(),
			TextChars: textChars,
			CreatedAt: time.Now(),
		}
		if err := r.history.Append(ctx, entry); err != nil {
			r.warn("STORE", "history append failed: %v", err)
		}
	}
	return CycleOutcome{
		CycleID:     cycleID,
		Status:      status,
		Interval:    interval,
		StopSession: stop,
	}
}

func (r *Runner) info(tag, format string, args ...interface{}) {
	if r.logger != nil {
		r.logger.InfoTag(tag, format, args...)
	}
}

func (r *Runner) warn(tag, format string, args ...interface{}) {
	if r.logger != nil {
		r.logger.WarnTag(tag, format, args...)
	}
}
