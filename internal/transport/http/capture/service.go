package capture

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"snapquiz-server-go/internal/domain/eventbus"
	"snapquiz-server-go/internal/domain/frame"
	"snapquiz-server-go/internal/domain/history"
	"snapquiz-server-go/internal/domain/pipeline"
	"snapquiz-server-go/internal/platform/errors"
	"snapquiz-server-go/internal/platform/logging"
	httptransport "snapquiz-server-go/internal/transport/http"
)

// Service exposes the capture pipeline over HTTP: session lifecycle, frame
// uploads from the browser page, run state and cycle history.
type Service struct {
	manager *pipeline.Manager
	state   *pipeline.Tracker
	buffer  *frame.LatestBuffer
	limits  frame.Limits
	history history.Store
	bus     *eventbus.Bus
	logger  *logging.Logger

	// baseCtx outlives individual requests so a session keeps running after
	// the start request returns.
	baseCtx context.Context
}

type Options struct {
	Manager *pipeline.Manager
	State   *pipeline.Tracker
	Buffer  *frame.LatestBuffer
	Limits  frame.Limits
	History history.Store
	Bus     *eventbus.Bus
	Logger  *logging.Logger
	BaseCtx context.Context
}

func NewService(opts Options) (*Service, error) {
	if opts.Manager == nil {
		return nil, errors.New(errors.KindTransport, "capture.new", "session manager is required")
	}
	if opts.State == nil {
		return nil, errors.New(errors.KindTransport, "capture.new", "state tracker is required")
	}
	if opts.Buffer == nil {
		return nil, errors.New(errors.KindTransport, "capture.new", "frame buffer is required")
	}
	baseCtx := opts.BaseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Service{
		manager: opts.Manager,
		state:   opts.State,
		buffer:  opts.Buffer,
		limits:  opts.Limits,
		history: opts.History,
		bus:     opts.Bus,
		logger:  opts.Logger,
		baseCtx: baseCtx,
	}, nil
}

// Register mounts the capture routes on the given group.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	group := router.Group("/capture")
	group.POST("/start", s.handleStart)
	group.POST("/stop", s.handleStop)
	group.GET("/status", s.handleStatus)
	group.POST("/frame", s.handleFrame)
	group.GET("/history", s.handleHistory)

	if s.logger != nil {
		s.logger.InfoTag("HTTP", "capture routes registered")
	}
	return nil
}

func (s *Service) handleStart(c *gin.Context) {
	session, err := s.manager.Start(s.baseCtx)
	if err != nil {
		if errors.IsKind(err, errors.KindSession) {
			httptransport.RespondError(c, http.StatusConflict, "capture session already active", nil)
			return
		}
		httptransport.RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"session_id": session.ID}, "capture started")
}

func (s *Service) handleStop(c *gin.Context) {
	stopped := s.manager.Stop()
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"stopped": stopped}, "capture stopped")
}

func (s *Service) handleStatus(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, s.state.Snapshot(), "")
}

type framePayload struct {
	Data string `json:"data"`
}

// handleFrame accepts either a multipart upload (field "file") or a JSON body
// with a base64 data URI, the format the browser page produces from a canvas.
func (s *Service) handleFrame(c *gin.Context) {
	f, err := s.readFrame(c)
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	s.buffer.Put(f)
	if s.bus != nil {
		s.bus.PublishFrame(eventbus.FrameEvent{
			Format: f.Format,
			Bytes:  int(f.Size),
			At:     f.CapturedAt,
		})
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"format": f.Format,
		"bytes":  f.Size,
	}, "frame accepted")
}

func (s *Service) readFrame(c *gin.Context) (*frame.Frame, error) {
	now := time.Now()

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return nil, errors.Wrap(errors.KindTransport, "capture.frame", "missing file field", err)
		}
		if s.limits.MaxBytes > 0 && fileHeader.Size > s.limits.MaxBytes {
			return nil, errors.New(errors.KindTransport, "capture.frame",
				"frame exceeds "+strconv.FormatInt(s.limits.MaxBytes, 10)+" bytes")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return nil, errors.Wrap(errors.KindTransport, "capture.frame", "unreadable upload", err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, errors.Wrap(errors.KindTransport, "capture.frame", "unreadable upload", err)
		}
		return frame.FromBytes(data, "", s.limits, now)
	}

	var payload framePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		return nil, errors.Wrap(errors.KindTransport, "capture.frame", "invalid frame payload", err)
	}
	return frame.FromDataURI(payload.Data, s.limits, now)
}

func (s *Service) handleHistory(c *gin.Context) {
	if s.history == nil {
		httptransport.RespondSuccess(c, http.StatusOK, []history.Entry{}, "")
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httptransport.RespondError(c, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	entries, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnTag("STORE", "history read failed: %v", err)
		}
		httptransport.RespondError(c, http.StatusInternalServerError, "history unavailable", nil)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	httptransport.RespondSuccess(c, http.StatusOK, entries, "")
}
