package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"snapquiz-server-go/internal/domain/settings"
)

// SettingsRepository persists the single settings row via gorm.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Load returns the stored settings. settings.ErrNotFound is returned when no
// row has been saved yet so the caller can seed defaults.
func (r *SettingsRepository) Load(ctx context.Context) (settings.Settings, error) {
	var record SettingsRecord
	err := r.db.WithContext(ctx).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return settings.Settings{}, settings.ErrNotFound
		}
		return settings.Settings{}, err
	}
	return settings.Settings{
		OCRAPIKey:        record.OCRAPIKey,
		CompletionAPIKey: record.CompletionAPIKey,
		Prompt:           record.Prompt,
		IntervalSeconds:  record.IntervalSeconds,
	}, nil
}

// Save upserts the settings row. The store holds exactly one record.
func (r *SettingsRepository) Save(ctx context.Context, s settings.Settings) error {
	var record SettingsRecord
	err := r.db.WithContext(ctx).First(&record).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	record.OCRAPIKey = s.OCRAPIKey
	record.CompletionAPIKey = s.CompletionAPIKey
	record.Prompt = s.Prompt
	record.IntervalSeconds = s.IntervalSeconds

	return r.db.WithContext(ctx).Save(&record).Error
}
