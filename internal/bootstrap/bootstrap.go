package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	domainauth "snapquiz-server-go/internal/domain/auth"
	"snapquiz-server-go/internal/domain/completion"
	"snapquiz-server-go/internal/domain/eventbus"
	"snapquiz-server-go/internal/domain/frame"
	"snapquiz-server-go/internal/domain/history"
	"snapquiz-server-go/internal/domain/ocr"
	"snapquiz-server-go/internal/domain/pipeline"
	"snapquiz-server-go/internal/domain/settings"
	platformconfig "snapquiz-server-go/internal/platform/config"
	platformerrors "snapquiz-server-go/internal/platform/errors"
	platformlogging "snapquiz-server-go/internal/platform/logging"
	platformobservability "snapquiz-server-go/internal/platform/observability"
	platformstorage "snapquiz-server-go/internal/platform/storage"
	httptransport "snapquiz-server-go/internal/transport/http"
	httpcapture "snapquiz-server-go/internal/transport/http/capture"
	httpsettings "snapquiz-server-go/internal/transport/http/settings"
	wstransport "snapquiz-server-go/internal/transport/ws"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	slogger               *slog.Logger
	observabilityShutdown platformobservability.ShutdownFunc

	db           *gorm.DB
	settingsSvc  *settings.Service
	historyStore history.Store
	bus          *eventbus.Bus
	buffer       *frame.LatestBuffer
	frameSource  frame.Source
	tracker      *pipeline.Tracker
	manager      *pipeline.Manager
	accessToken  *domainauth.AccessToken
}

// Run drives the whole service lifecycle: configuration, dependency
// initialisation, the HTTP server and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	if state.manager == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"capture pipeline not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	if shutdown := state.observabilityShutdown; shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.WarnTag("BOOT", "observability shutdown failed: %v", err)
			}
		}()
	}

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return fmt.Errorf("http server start failed: %w", err)
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	state.manager.Stop()
	if state.historyStore != nil {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := state.historyStore.Close(closeCtx); err != nil {
			logger.WarnTag("STORE", "history store close failed: %v", err)
		}
		closeCancel()
	}

	logger.InfoTag("BOOT", "shutdown complete")
	logger.Close()
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "initialisation order")
	for _, step := range steps {
		logger.InfoTag("BOOT", "  %s - %s", step.ID, step.Title)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "settings:init-service",
			Title:     "Initialise settings service",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindStorage,
			Execute:   initSettingsStep,
		},
		{
			ID:        "history:init-store",
			Title:     "Initialise history store",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindStorage,
			Execute:   initHistoryStep,
		},
		{
			ID:        "auth:init-token",
			Title:     "Initialise access token",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindAuth,
			Execute:   initAuthStep,
		},
		{
			ID:        "pipeline:init",
			Title:     "Initialise capture pipeline",
			DependsOn: []string{"settings:init-service", "history:init-store", "observability:setup-hooks"},
			Kind:      platformerrors.KindSession,
			Execute:   initPipelineStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().WithDotEnv(true).Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level: state.config.Log.Level,
		Dir:   state.config.Log.Dir,
		File:  state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logger = logger
	state.slogger = logger.Slog()

	source := state.configPath
	if source == "" {
		source = "defaults"
	}
	logger.InfoTag("BOOT", "logging ready [%s] config=%s", state.config.Log.Level, source)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state == nil || state.logger == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup-hooks",
			"config/logger not initialised",
		)
	}

	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}
	shutdown, err := platformobservability.Setup(ctx, cfg, state.slogger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	db, err := platformstorage.Open(state.config.Storage.DataDir)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-database", "failed to open database", err)
	}
	state.db = db
	return nil
}

func initSettingsStep(ctx context.Context, state *appState) error {
	svc, err := settings.NewService(settings.Options{
		Repository:      platformstorage.NewSettingsRepository(state.db),
		Logger:          state.logger,
		DefaultPrompt:   state.config.Capture.DefaultPrompt,
		DefaultInterval: state.config.Capture.DefaultIntervalSeconds,
	})
	if err != nil {
		return err
	}
	if err := svc.SeedFromEnv(ctx); err != nil {
		return err
	}
	state.settingsSvc = svc
	return nil
}

func initHistoryStep(_ context.Context, state *appState) error {
	cfg := history.Config{
		Driver:   state.config.History.Type,
		Capacity: state.config.History.Capacity,
	}
	if cfg.Driver == history.DriverRedis {
		cfg.Redis = &history.RedisConfig{
			Addr:     state.config.History.Redis.Addr,
			Username: state.config.History.Redis.Username,
			Password: state.config.History.Redis.Password,
			DB:       state.config.History.Redis.DB,
			Prefix:   state.config.History.Redis.Prefix,
		}
	}

	store, err := history.New(cfg, history.Dependencies{DB: state.db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "history:init-store", "failed to create history store", err)
	}
	state.historyStore = store
	state.logger.InfoTag("STORE", "history store ready (%s)", cfg.Driver)
	return nil
}

func initAuthStep(_ context.Context, state *appState) error {
	if !state.config.Auth.Enabled {
		return nil
	}
	if state.config.Auth.Secret == "" {
		return platformerrors.New(platformerrors.KindAuth, "auth:init-token", "auth enabled but no secret configured")
	}

	token := domainauth.NewAccessToken(state.config.Auth.Secret)
	if raw := strings.TrimSpace(state.config.Auth.TTL); raw != "" {
		ttl, err := time.ParseDuration(raw)
		switch {
		case err != nil:
			state.logger.WarnTag("AUTH", "unparseable token TTL %q, using default: %v", raw, err)
		case ttl <= 0:
			state.logger.WarnTag("AUTH", "token TTL %q must be positive, using default", raw)
		default:
			token = token.WithTTL(ttl)
		}
	}
	state.accessToken = token
	state.logger.InfoTag("AUTH", "API access token enabled")
	return nil
}

func initPipelineStep(_ context.Context, state *appState) error {
	state.bus = eventbus.New()
	state.tracker = pipeline.NewTracker(state.bus)

	limits := frameLimits(state.config)
	state.buffer = frame.NewLatestBuffer(time.Duration(state.config.Capture.FrameMaxAgeSeconds) * time.Second)

	// Headless deployments can point the pipeline at a directory instead of
	// the browser upload buffer.
	state.frameSource = frame.Source(state.buffer)
	if dir := state.config.Capture.FrameDir; dir != "" {
		state.frameSource = frame.NewDirSource(dir, limits)
		state.logger.InfoTag("CAPTURE", "using directory frame source %s", dir)
	}

	recognizer, err := ocr.NewClient(ocr.Options{
		Endpoint: state.config.OCR.Endpoint,
		Language: state.config.OCR.Language,
		Timeout:  time.Duration(state.config.OCR.TimeoutSeconds) * time.Second,
		Logger:   state.logger,
	})
	if err != nil {
		return err
	}

	answerer, err := completion.NewClient(completion.Options{
		BaseURL:   state.config.Completion.BaseURL,
		Model:     state.config.Completion.Model,
		MaxTokens: state.config.Completion.MaxTokens,
		Timeout:   time.Duration(state.config.Completion.TimeoutSeconds) * time.Second,
		Logger:    state.logger,
	})
	if err != nil {
		return err
	}

	runner, err := pipeline.NewRunner(pipeline.Options{
		Frames:     state.frameSource,
		Recognizer: recognizer,
		Answerer:   answerer,
		Settings:   state.settingsSvc,
		State:      state.tracker,
		History:    state.historyStore,
		Logger:     state.logger,
	})
	if err != nil {
		return err
	}

	state.manager = pipeline.NewManager(runner, state.tracker, state.logger)
	return nil
}

func frameLimits(cfg *platformconfig.Config) frame.Limits {
	limits := frame.DefaultLimits()
	if cfg.Capture.FrameMaxBytes > 0 {
		limits.MaxBytes = cfg.Capture.FrameMaxBytes
	}
	return limits
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	var authMiddleware gin.HandlerFunc
	if state.accessToken != nil {
		authMiddleware = httptransport.AuthMiddleware(state.accessToken)
	}

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config:         config,
		Logger:         logger,
		AuthMiddleware: authMiddleware,
		StaticRoot:     config.Web.StaticDir,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			httptransport.RespondError(c, http.StatusNotFound, "api not found", gin.H{})
			return
		}
		c.File(config.Web.StaticDir + "/index.html")
	})

	captureService, err := httpcapture.NewService(httpcapture.Options{
		Manager: state.manager,
		State:   state.tracker,
		Buffer:  state.buffer,
		Limits:  frameLimits(config),
		History: state.historyStore,
		Bus:     state.bus,
		Logger:  logger,
		BaseCtx: groupCtx,
	})
	if err != nil {
		return nil, err
	}

	settingsService, err := httpsettings.NewService(state.settingsSvc, logger)
	if err != nil {
		return nil, err
	}

	if state.accessToken != nil {
		httpRouter.API.POST("/auth/token", httptransport.TokenIssueHandler(state.accessToken, config.Auth.Secret))
	}

	if err := captureService.Register(groupCtx, httpRouter.Secured); err != nil {
		return nil, err
	}
	if err := settingsService.Register(groupCtx, httpRouter.Secured); err != nil {
		return nil, err
	}

	hub, err := wstransport.NewHub(state.bus, logger)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "ws:init-hub", "failed to create websocket hub", err)
	}
	wsHandler := wstransport.NewHandler(hub, state.tracker, logger)
	router.GET("/ws", wsHandler.Handle)

	httpServer := &http.Server{
		Addr:    config.Server.IP + ":" + strconv.Itoa(config.Server.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "server listening on http://localhost:%d", config.Server.Port)

		go func() {
			<-groupCtx.Done()
			hub.Close()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server stopped")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "shutdown signal received: %v", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("BOOT", "shutdown timed out")
		return errors.New("shutdown timed out")
	}
	return nil
}
