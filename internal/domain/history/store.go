package history

import (
	"context"
	"time"
)

// Entry records the outcome of one finished capture cycle.
type Entry struct {
	CycleID   string    `json:"cycle_id"`
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Answer    string    `json:"answer"`
	TextChars int       `json:"text_chars"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps recent cycle outcomes for the web surface.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close(ctx context.Context) error
}

// Config describes the store selection parameters.
type Config struct {
	Driver   string
	Capacity int
	Redis    *RedisConfig
}

// RedisConfig captures connection options for the redis driver.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
