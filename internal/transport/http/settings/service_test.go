package settingsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"snapquiz-server-go/internal/domain/settings"
	httptransport "snapquiz-server-go/internal/transport/http"
)

type fakeRepo struct {
	stored *settings.Settings
}

func (f *fakeRepo) Load(ctx context.Context) (settings.Settings, error) {
	if f.stored == nil {
		return settings.Settings{}, settings.ErrNotFound
	}
	return *f.stored, nil
}

func (f *fakeRepo) Save(ctx context.Context, s settings.Settings) error {
	f.stored = &s
	return nil
}

func newEnv(t *testing.T, repo settings.Repository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	domainSvc, err := settings.NewService(settings.Options{Repository: repo})
	if err != nil {
		t.Fatalf("settings.NewService error: %v", err)
	}
	svc, err := NewService(domainSvc, nil)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	engine := gin.New()
	if err := svc.Register(context.Background(), engine.Group("/api")); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	return engine
}

func do(t *testing.T, engine *gin.Engine, method, body string) (*httptest.ResponseRecorder, view) {
	t.Helper()
	req := httptest.NewRequest(method, "/api/settings", strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var envelope httptransport.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad envelope %q: %v", rec.Body.String(), err)
	}
	var v view
	if envelope.Data != nil {
		data, _ := json.Marshal(envelope.Data)
		if err := json.Unmarshal(data, &v); err != nil {
			t.Fatalf("view decode: %v", err)
		}
	}
	return rec, v
}

func TestGetMasksKeys(t *testing.T) {
	repo := &fakeRepo{stored: &settings.Settings{
		OCRAPIKey:        "secret-ocr",
		CompletionAPIKey: "secret-llm",
		Prompt:           "one letter",
		IntervalSeconds:  30,
	}}
	engine := newEnv(t, repo)

	rec, v := do(t, engine, http.MethodGet, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if v.OCRAPIKey != keyMask || v.CompletionAPIKey != keyMask {
		t.Fatalf("keys must be masked, got %+v", v)
	}
	if !v.HasKeys {
		t.Fatal("has_keys must be true")
	}
	if v.Prompt != "one letter" || v.IntervalSeconds != 30 {
		t.Fatalf("view = %+v", v)
	}
}

func TestGetEmptyStore(t *testing.T) {
	engine := newEnv(t, &fakeRepo{})

	rec, v := do(t, engine, http.MethodGet, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if v.OCRAPIKey != "" || v.CompletionAPIKey != "" {
		t.Fatalf("empty keys must stay empty, got %+v", v)
	}
	if v.HasKeys {
		t.Fatal("has_keys must be false")
	}
	if v.IntervalSeconds <= 0 {
		t.Fatal("defaults must fill the interval")
	}
}

func TestPutSavesAndMasks(t *testing.T) {
	repo := &fakeRepo{}
	engine := newEnv(t, repo)

	body := `{"ocr_api_key":"k1","completion_api_key":"k2","prompt":"pick one","interval_seconds":15}`
	rec, v := do(t, engine, http.MethodPut, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if v.OCRAPIKey != keyMask || !v.HasKeys {
		t.Fatalf("response = %+v", v)
	}
	if repo.stored.OCRAPIKey != "k1" || repo.stored.CompletionAPIKey != "k2" {
		t.Fatalf("stored = %+v", repo.stored)
	}
	if repo.stored.IntervalSeconds != 15 {
		t.Fatalf("interval = %d", repo.stored.IntervalSeconds)
	}
}

func TestPutMaskKeepsStoredKey(t *testing.T) {
	repo := &fakeRepo{stored: &settings.Settings{
		OCRAPIKey:        "secret-ocr",
		CompletionAPIKey: "secret-llm",
		Prompt:           "one letter",
		IntervalSeconds:  30,
	}}
	engine := newEnv(t, repo)

	body := `{"ocr_api_key":"` + keyMask + `","completion_api_key":"","prompt":"changed","interval_seconds":45}`
	rec, _ := do(t, engine, http.MethodPut, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if repo.stored.OCRAPIKey != "secret-ocr" || repo.stored.CompletionAPIKey != "secret-llm" {
		t.Fatalf("stored keys must survive, got %+v", repo.stored)
	}
	if repo.stored.Prompt != "changed" || repo.stored.IntervalSeconds != 45 {
		t.Fatalf("stored = %+v", repo.stored)
	}
}

func TestPutRejectsBadInterval(t *testing.T) {
	engine := newEnv(t, &fakeRepo{})

	rec, _ := do(t, engine, http.MethodPut, `{"interval_seconds":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
