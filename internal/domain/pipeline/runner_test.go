package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"snapquiz-server-go/internal/domain/frame"
	"snapquiz-server-go/internal/domain/history"
	"snapquiz-server-go/internal/domain/settings"
)

type fakeFrames struct {
	frame *frame.Frame
	err   error
	calls int
}

func (f *fakeFrames) Still(ctx context.Context) (*frame.Frame, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.frame, nil
}

type fakeRecognizer struct {
	text   string
	err    error
	gotKey string
	calls  int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, fr *frame.Frame, apiKey string) (string, error) {
	f.calls++
	f.gotKey = apiKey
	return f.text, f.err
}

type fakeAnswerer struct {
	answer    string
	err       error
	gotText   string
	gotPrompt string
	gotKey    string
	calls     int
}

func (f *fakeAnswerer) Answer(ctx context.Context, text, prompt, apiKey string) (string, error) {
	f.calls++
	f.gotText = text
	f.gotPrompt = prompt
	f.gotKey = apiKey
	return f.answer, f.err
}

type fakeSettings struct {
	st    settings.Settings
	err   error
	calls int
}

func (f *fakeSettings) Load(ctx context.Context) (settings.Settings, error) {
	f.calls++
	return f.st, f.err
}

func validSettings() settings.Settings {
	return settings.Settings{
		OCRAPIKey:        "ocr-key",
		CompletionAPIKey: "llm-key",
		Prompt:           "answer with one letter",
		IntervalSeconds:  40,
	}
}

func testFrame() *frame.Frame {
	return &frame.Frame{
		DataURI:    "data:image/png;base64,aGVsbG8=",
		Format:     "png",
		Size:       5,
		CapturedAt: time.Now(),
	}
}

type fixture struct {
	frames     *fakeFrames
	recognizer *fakeRecognizer
	answerer   *fakeAnswerer
	settings   *fakeSettings
	state      *Tracker
	history    history.Store
	runner     *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		frames:     &fakeFrames{frame: testFrame()},
		recognizer: &fakeRecognizer{text: "Which letter comes first? A) a B) b"},
		answerer:   &fakeAnswerer{answer: "A"},
		settings:   &fakeSettings{st: validSettings()},
		state:      NewTracker(nil),
		history:    history.NewMemory(history.Config{Capacity: 10}),
	}
	runner, err := NewRunner(Options{
		Frames:     fx.frames,
		Recognizer: fx.recognizer,
		Answerer:   fx.answerer,
		Settings:   fx.settings,
		State:      fx.state,
		History:    fx.history,
	})
	if err != nil {
		t.Fatalf("NewRunner error: %v", err)
	}
	fx.runner = runner
	return fx
}

func TestNewRunner_RequiresCollaborators(t *testing.T) {
	base := Options{
		Frames:     &fakeFrames{},
		Recognizer: &fakeRecognizer{},
		Answerer:   &fakeAnswerer{},
		Settings:   &fakeSettings{},
	}

	mutations := map[string]func(*Options){
		"frames":     func(o *Options) { o.Frames = nil },
		"recognizer": func(o *Options) { o.Recognizer = nil },
		"answerer":   func(o *Options) { o.Answerer = nil },
		"settings":   func(o *Options) { o.Settings = nil },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			opts := base
			mutate(&opts)
			if _, err := NewRunner(opts); err == nil {
				t.Fatal("expected an error for missing collaborator")
			}
		})
	}
}

func TestRunCycle_Complete(t *testing.T) {
	fx := newFixture(t)

	outcome := fx.runner.RunCycle(context.Background(), "session-1")

	if outcome.Status != StatusComplete {
		t.Fatalf("status = %q, want %q", outcome.Status, StatusComplete)
	}
	if outcome.StopSession {
		t.Fatal("a successful cycle must not stop the session")
	}
	if outcome.Interval != 40*time.Second {
		t.Fatalf("interval = %v, want 40s", outcome.Interval)
	}

	state := fx.state.Snapshot()
	if state.LastAnswer != "A" {
		t.Fatalf("last answer = %q, want %q", state.LastAnswer, "A")
	}
	if state.Status != StatusComplete {
		t.Fatalf("state status = %q, want %q", state.Status, StatusComplete)
	}

	if fx.recognizer.gotKey != "ocr-key" {
		t.Fatalf("recognizer key = %q", fx.recognizer.gotKey)
	}
	if fx.answerer.gotKey != "llm-key" {
		t.Fatalf("answerer key = %q", fx.answerer.gotKey)
	}
	if fx.answerer.gotText != fx.recognizer.text {
		t.Fatalf("answerer text = %q, want the recognized text", fx.answerer.gotText)
	}
	if fx.answerer.gotPrompt != "answer with one letter" {
		t.Fatalf("answerer prompt = %q", fx.answerer.gotPrompt)
	}

	entries, err := fx.history.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if entries[0].Status != StatusComplete || entries[0].Answer != "A" {
		t.Fatalf("history entry = %+v", entries[0])
	}
	if entries[0].SessionID != "session-1" {
		t.Fatalf("history session = %q", entries[0].SessionID)
	}
}

func TestRunCycle_KeysMissingStopsSession(t *testing.T) {
	fx := newFixture(t)
	fx.settings.st.OCRAPIKey = ""

	outcome := fx.runner.RunCycle(context.Background(), "session-1")

	if !outcome.StopSession {
		t.Fatal("missing keys must stop the session")
	}
	if outcome.Status != StatusKeysMissing {
		t.Fatalf("status = %q, want %q", outcome.Status, StatusKeysMissing)
	}
	if fx.frames.calls != 0 {
		t.Fatal("no capture must happen without keys")
	}
	state := fx.state.Snapshot()
	if state.IsCapturing {
		t.Fatal("state must report not capturing")
	}
	if state.Status != StatusKeysMissing {
		t.Fatalf("state status = %q", state.Status)
	}
}

func TestRunCycle_SettingsUnavailableStopsSession(t *testing.T) {
	fx := newFixture(t)
	fx.settings.err = errors.New("database locked")

	outcome := fx.runner.RunCycle(context.Background(), "session-1")

	if !outcome.StopSession {
		t.Fatal("unreadable settings must stop the session")
	}
	if outcome.Status != StatusSettingsUnavailable {
		t.Fatalf("status = %q, want %q", outcome.Status, StatusSettingsUnavailable)
	}
}

func TestRunCycle_CaptureFailureKeepsAnswer(t *testing.T) {
	fx := newFixture(t)
	fx.state.SetAnswer("warmup", "B")
	fx.frames.err = frame.ErrNoFrame

	outcome := fx.runner.RunCycle(context.Background(), "session-1")

	if outcome.Status != StatusCaptureFailed {
		t.Fatalf("status = %q, want %q", outcome.Status, StatusCaptureFailed)
	}
	if outcome.StopSession {
		t.Fatal("a capture failure must not stop the session")
	}
	if got := fx.state.LastAnswer(); got != "B" {
		t.Fatalf("last answer = %q, want the previous answer kept", got)
	}
	if fx.recognizer.calls != 0 {
		t.Fatal("recognition must not run without a frame")
	}
}

func TestRunCycle_ExtractFailureKeepsAnswer(t *testing.T) {
	fx := newFixture(t)
	fx.state.SetAnswer("warmup", "B")
	fx.recognizer.err = errors.New("service down")

	outcome := fx.runner.RunCycle(context.Background(), "session-1")

	if outcome.Status != StatusExtractFailed {
		t.Fatalf("status = %q, want %q", outcome.Status, StatusExtractFailed)
	}
	if got := fx.state.LastAnswer(); got != "B" {
		t.Fatalf("last answer = %q, want the previous answer kept", got)
	}
	if fx.answerer.calls != 0 {
		t.Fatal("answer lookup must not run after a failed extraction")
	}
}

func TestRunCycle_NoTextClearsAnswer(t *testing.T) {
	fx := newFixture(t)
	fx.state.SetAnswer("warmup", "B")
	fx.recognizer.text = "  \n\t "

	outcome := fx.runner.RunCycle(context.Background(), "session-1")

	if outcome.Status != StatusNoText {
		t.Fatalf("status = %q, want %q", outcome.Status, StatusNoText)
	}
	if got := fx.state.LastAnswer(); got != "" {
		t.Fatalf("last answer = %q, want cleared", got)
	}
	if fx.answerer.calls != 0 {
		t.Fatal("answer lookup must not run without text")
	}
}

func TestRunCycle_AnswerFailureSetsErrorMarker(t *testing.T) {
	fx := newFixture(t)
	fx.answerer.err = errors.New("quota exceeded")

	outcome := fx.runner.RunCycle(context.Background(), "session-1")

	if outcome.Status != StatusAnswerFailed {
		t.Fatalf("status = %q, want %q", outcome.Status, StatusAnswerFailed)
	}
	if got := fx.state.LastAnswer(); got != AnswerErrorMarker {
		t.Fatalf("last answer = %q, want %q", got, AnswerErrorMarker)
	}
}

func TestRunCycle_ReadsSettingsEveryCycle(t *testing.T) {
	fx := newFixture(t)

	fx.runner.RunCycle(context.Background(), "session-1")
	fx.settings.st.IntervalSeconds = 5
	outcome := fx.runner.RunCycle(context.Background(), "session-1")

	if fx.settings.calls != 2 {
		t.Fatalf("settings loads = %d, want 2", fx.settings.calls)
	}
	if outcome.Interval != 5*time.Second {
		t.Fatalf("interval = %v, want the edited value applied", outcome.Interval)
	}
}
