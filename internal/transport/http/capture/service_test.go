package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"snapquiz-server-go/internal/domain/frame"
	"snapquiz-server-go/internal/domain/history"
	"snapquiz-server-go/internal/domain/pipeline"
	"snapquiz-server-go/internal/domain/settings"
	httptransport "snapquiz-server-go/internal/transport/http"
)

type stubRecognizer struct{}

func (stubRecognizer) Recognize(ctx context.Context, f *frame.Frame, apiKey string) (string, error) {
	return "What is 2+2? A) 3 B) 4", nil
}

type stubAnswerer struct{}

func (stubAnswerer) Answer(ctx context.Context, text, prompt, apiKey string) (string, error) {
	return "B", nil
}

type stubSettings struct{}

func (stubSettings) Load(ctx context.Context) (settings.Settings, error) {
	return settings.Settings{
		OCRAPIKey:        "k1",
		CompletionAPIKey: "k2",
		Prompt:           "one letter",
		IntervalSeconds:  40,
	}, nil
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

type env struct {
	engine  *gin.Engine
	state   *pipeline.Tracker
	buffer  *frame.LatestBuffer
	history history.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	state := pipeline.NewTracker(nil)
	buffer := frame.NewLatestBuffer(time.Minute)
	store := history.NewMemory(history.Config{Capacity: 10})

	runner, err := pipeline.NewRunner(pipeline.Options{
		Frames:     buffer,
		Recognizer: stubRecognizer{},
		Answerer:   stubAnswerer{},
		Settings:   stubSettings{},
		State:      state,
		History:    store,
	})
	if err != nil {
		t.Fatalf("NewRunner error: %v", err)
	}
	manager := pipeline.NewManager(runner, state, nil)
	t.Cleanup(func() { manager.Stop() })

	svc, err := NewService(Options{
		Manager: manager,
		State:   state,
		Buffer:  buffer,
		Limits:  frame.DefaultLimits(),
		History: store,
	})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	engine := gin.New()
	if err := svc.Register(context.Background(), engine.Group("/api")); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	return &env{engine: engine, state: state, buffer: buffer, history: store}
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, httptransport.APIResponse) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var envelope httptransport.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad envelope %q: %v", rec.Body.String(), err)
	}
	return rec, envelope
}

func TestStatusEndpoint(t *testing.T) {
	e := newEnv(t)

	rec, envelope := doJSON(t, e.engine, http.MethodGet, "/api/capture/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	if !envelope.Success {
		t.Fatalf("envelope = %+v", envelope)
	}

	data, _ := json.Marshal(envelope.Data)
	var state pipeline.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("state decode: %v", err)
	}
	if state.IsCapturing {
		t.Fatal("fresh server must report not capturing")
	}
	if state.Status != pipeline.StatusIdle {
		t.Fatalf("status = %q, want %q", state.Status, pipeline.StatusIdle)
	}
}

func TestFrameUploadJSON(t *testing.T) {
	e := newEnv(t)

	body, _ := json.Marshal(map[string]string{"data": pngDataURI(t)})
	rec, envelope := doJSON(t, e.engine, http.MethodPost, "/api/capture/frame", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", rec.Code, rec.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("envelope = %+v", envelope)
	}

	if _, err := e.buffer.Still(context.Background()); err != nil {
		t.Fatalf("buffer must hold the uploaded frame: %v", err)
	}
}

func TestFrameUploadRejectsGarbage(t *testing.T) {
	e := newEnv(t)

	body := `{"data":"data:image/png;base64,bm90IGFuIGltYWdl"}`
	rec, envelope := doJSON(t, e.engine, http.MethodPost, "/api/capture/frame", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want 400", rec.Code)
	}
	if envelope.Success {
		t.Fatal("envelope must report failure")
	}
}

func TestStartStopFlow(t *testing.T) {
	e := newEnv(t)

	// A frame must be buffered before the first cycle runs.
	body, _ := json.Marshal(map[string]string{"data": pngDataURI(t)})
	doJSON(t, e.engine, http.MethodPost, "/api/capture/frame", string(body))

	rec, envelope := doJSON(t, e.engine, http.MethodPost, "/api/capture/start", "")
	if rec.Code != http.StatusOK || !envelope.Success {
		t.Fatalf("start failed: %d %+v", rec.Code, envelope)
	}

	rec, _ = doJSON(t, e.engine, http.MethodPost, "/api/capture/start", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second start = %d, want 409", rec.Code)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if e.state.Snapshot().Status == pipeline.StatusComplete {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := e.state.LastAnswer(); got != "B" {
		t.Fatalf("answer = %q, want %q", got, "B")
	}

	rec, _ = doJSON(t, e.engine, http.MethodPost, "/api/capture/stop", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stop = %d", rec.Code)
	}
	if e.state.Snapshot().Status != pipeline.StatusIdle {
		t.Fatalf("status after stop = %q", e.state.Snapshot().Status)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	e := newEnv(t)

	entry := history.Entry{CycleID: "c1", SessionID: "s1", Status: pipeline.StatusComplete, Answer: "A", CreatedAt: time.Now()}
	if err := e.history.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	rec, envelope := doJSON(t, e.engine, http.MethodGet, "/api/capture/history?limit=5", "")
	if rec.Code != http.StatusOK || !envelope.Success {
		t.Fatalf("history failed: %d %+v", rec.Code, envelope)
	}

	data, _ := json.Marshal(envelope.Data)
	var entries []history.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("entries decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Answer != "A" {
		t.Fatalf("entries = %+v", entries)
	}

	rec, _ = doJSON(t, e.engine, http.MethodGet, "/api/capture/history?limit=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit = %d, want 400", rec.Code)
	}
}
