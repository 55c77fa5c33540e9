package history

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"snapquiz-server-go/internal/platform/storage"
)

type databaseStore struct {
	db       *gorm.DB
	capacity int
}

// NewDatabase persists cycle outcomes into the SQLite database so history
// survives restarts.
func NewDatabase(db *gorm.DB, cfg Config) Store {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 100
	}
	return &databaseStore{db: db, capacity: capacity}
}

func (s *databaseStore) Append(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	record := storage.CycleEvent{
		CycleID:   entry.CycleID,
		SessionID: entry.SessionID,
		Payload:   datatypes.JSON(payload),
		CreatedAt: entry.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	// Keep the table bounded; old rows beyond capacity are dropped.
	var count int64
	if err := s.db.WithContext(ctx).Model(&storage.CycleEvent{}).Count(&count).Error; err != nil {
		return err
	}
	if count > int64(s.capacity) {
		return s.db.WithContext(ctx).
			Where("id NOT IN (?)",
				s.db.Model(&storage.CycleEvent{}).Select("id").Order("id DESC").Limit(s.capacity),
			).
			Delete(&storage.CycleEvent{}).Error
	}
	return nil
}

func (s *databaseStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.capacity {
		limit = s.capacity
	}

	var records []storage.CycleEvent
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(records))
	for _, record := range records {
		var entry Entry
		if err := json.Unmarshal(record.Payload, &entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *databaseStore) Close(ctx context.Context) error {
	return nil
}
