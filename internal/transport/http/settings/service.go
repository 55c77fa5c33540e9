package settingsapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"snapquiz-server-go/internal/domain/settings"
	"snapquiz-server-go/internal/platform/errors"
	"snapquiz-server-go/internal/platform/logging"
	httptransport "snapquiz-server-go/internal/transport/http"
)

// keyMask is what GET returns in place of a stored API key. A PUT carrying
// the mask (or an empty string) keeps the stored value, so the browser page
// can round-trip the form without ever seeing the real keys.
const keyMask = "********"

// Service exposes the persisted capture settings over HTTP.
type Service struct {
	settings *settings.Service
	logger   *logging.Logger
}

func NewService(svc *settings.Service, logger *logging.Logger) (*Service, error) {
	if svc == nil {
		return nil, errors.New(errors.KindTransport, "settingsapi.new", "settings service is required")
	}
	return &Service{settings: svc, logger: logger}, nil
}

// Register mounts the settings routes on the given group.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.GET("/settings", s.handleGet)
	router.PUT("/settings", s.handlePut)

	if s.logger != nil {
		s.logger.InfoTag("HTTP", "settings routes registered")
	}
	return nil
}

// view is the wire shape: key fields are write-only.
type view struct {
	OCRAPIKey        string `json:"ocr_api_key"`
	CompletionAPIKey string `json:"completion_api_key"`
	Prompt           string `json:"prompt"`
	IntervalSeconds  int    `json:"interval_seconds"`
	HasKeys          bool   `json:"has_keys"`
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	return keyMask
}

func (s *Service) handleGet(c *gin.Context) {
	st, err := s.settings.Load(c.Request.Context())
	if err != nil {
		if s.logger != nil {
			s.logger.WarnTag("STORE", "settings load failed: %v", err)
		}
		httptransport.RespondError(c, http.StatusInternalServerError, "settings unavailable", nil)
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, view{
		OCRAPIKey:        maskKey(st.OCRAPIKey),
		CompletionAPIKey: maskKey(st.CompletionAPIKey),
		Prompt:           st.Prompt,
		IntervalSeconds:  st.IntervalSeconds,
		HasKeys:          st.HasKeys(),
	}, "")
}

func (s *Service) handlePut(c *gin.Context) {
	var in view
	if err := c.ShouldBindJSON(&in); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid settings payload", nil)
		return
	}

	current, err := s.settings.Load(c.Request.Context())
	if err != nil {
		if s.logger != nil {
			s.logger.WarnTag("STORE", "settings load failed: %v", err)
		}
		httptransport.RespondError(c, http.StatusInternalServerError, "settings unavailable", nil)
		return
	}

	next := settings.Settings{
		OCRAPIKey:        resolveKey(in.OCRAPIKey, current.OCRAPIKey),
		CompletionAPIKey: resolveKey(in.CompletionAPIKey, current.CompletionAPIKey),
		Prompt:           in.Prompt,
		IntervalSeconds:  in.IntervalSeconds,
	}

	saved, err := s.settings.Save(c.Request.Context(), next)
	if err != nil {
		if errors.IsKind(err, errors.KindConfig) {
			httptransport.RespondError(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		if s.logger != nil {
			s.logger.WarnTag("STORE", "settings save failed: %v", err)
		}
		httptransport.RespondError(c, http.StatusInternalServerError, "settings save failed", nil)
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, view{
		OCRAPIKey:        maskKey(saved.OCRAPIKey),
		CompletionAPIKey: maskKey(saved.CompletionAPIKey),
		Prompt:           saved.Prompt,
		IntervalSeconds:  saved.IntervalSeconds,
		HasKeys:          saved.HasKeys(),
	}, "settings saved")
}

// resolveKey keeps the stored secret when the client sends the mask or an
// empty field.
func resolveKey(incoming, stored string) string {
	if incoming == "" || incoming == keyMask {
		return stored
	}
	return incoming
}
