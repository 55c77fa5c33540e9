package settings

import (
	"context"
	"errors"
	"fmt"
	"os"

	platformerrors "snapquiz-server-go/internal/platform/errors"
	"snapquiz-server-go/internal/platform/logging"
)

// Repository abstracts the persistence of the single settings record.
type Repository interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// Service mediates settings access: reads fall back to seeded defaults,
// writes are validated and persisted immediately.
type Service struct {
	repo            Repository
	logger          *logging.Logger
	defaultPrompt   string
	defaultInterval int
}

// Options configures the settings service.
type Options struct {
	Repository      Repository
	Logger          *logging.Logger
	DefaultPrompt   string
	DefaultInterval int
}

func NewService(opts Options) (*Service, error) {
	if opts.Repository == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "settings.new", "repository is required")
	}
	if opts.DefaultInterval <= 0 {
		opts.DefaultInterval = 40
	}
	return &Service{
		repo:            opts.Repository,
		logger:          opts.Logger,
		defaultPrompt:   opts.DefaultPrompt,
		defaultInterval: opts.DefaultInterval,
	}, nil
}

// Load returns the current settings. When nothing has been saved yet it
// returns the defaults without touching the store.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Settings{}.Normalize(s.defaultPrompt, s.defaultInterval), nil
		}
		return Settings{}, platformerrors.Wrap(platformerrors.KindStorage, "settings.load", "read settings", err)
	}
	return stored.Normalize(s.defaultPrompt, s.defaultInterval), nil
}

// Save validates and persists the settings immediately.
func (s *Service) Save(ctx context.Context, in Settings) (Settings, error) {
	if in.IntervalSeconds <= 0 {
		return Settings{}, platformerrors.New(platformerrors.KindConfig, "settings.save",
			fmt.Sprintf("interval must be positive, got %d", in.IntervalSeconds))
	}
	normalized := in.Normalize(s.defaultPrompt, s.defaultInterval)
	if err := s.repo.Save(ctx, normalized); err != nil {
		return Settings{}, platformerrors.Wrap(platformerrors.KindStorage, "settings.save", "persist settings", err)
	}
	if s.logger != nil {
		s.logger.InfoTag("STORE", "settings saved (interval=%ds)", normalized.IntervalSeconds)
	}
	return normalized, nil
}

// SeedFromEnv writes key material from the environment on first run so a
// deployment can start capturing without opening the settings panel.
// Existing settings are never overwritten.
func (s *Service) SeedFromEnv(ctx context.Context) error {
	if _, err := s.repo.Load(ctx); !errors.Is(err, ErrNotFound) {
		return err
	}

	seed := Settings{
		OCRAPIKey:        os.Getenv("OCR_API_KEY"),
		CompletionAPIKey: os.Getenv("COMPLETION_API_KEY"),
	}.Normalize(s.defaultPrompt, s.defaultInterval)

	if seed.OCRAPIKey == "" && seed.CompletionAPIKey == "" {
		return nil
	}
	if err := s.repo.Save(ctx, seed); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "settings.seed", "persist seeded settings", err)
	}
	if s.logger != nil {
		s.logger.InfoTag("STORE", "settings seeded from environment")
	}
	return nil
}
