package storage

import (
	"time"

	"gorm.io/datatypes"
)

// SettingsRecord is the single persisted capture-settings row. The web
// surface is the only writer; the pipeline reads it at the start of every
// cycle.
type SettingsRecord struct {
	ID               uint   `gorm:"primaryKey"`
	OCRAPIKey        string `gorm:"column:ocr_api_key"`
	CompletionAPIKey string `gorm:"column:completion_api_key"`
	Prompt           string `gorm:"type:text"`
	IntervalSeconds  int    `gorm:"default:40"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (SettingsRecord) TableName() string {
	return "settings"
}

// CycleEvent stores one finished capture cycle when the database history
// backend is selected.
type CycleEvent struct {
	ID        uint           `gorm:"primaryKey"`
	CycleID   string         `gorm:"index;not null"`
	SessionID string         `gorm:"index"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"index"`
}

func (CycleEvent) TableName() string {
	return "cycle_events"
}
