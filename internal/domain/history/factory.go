package history

import (
	"fmt"

	"gorm.io/gorm"
)

// Driver identifiers supported by the history domain.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverDatabase = "database"
)

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	DB *gorm.DB
}

// New creates a history store based on the provided configuration.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg), nil
	case DriverRedis:
		return NewRedis(cfg)
	case DriverDatabase:
		if deps.DB == nil {
			return nil, fmt.Errorf("database driver requires database handle")
		}
		return NewDatabase(deps.DB, cfg), nil
	default:
		return nil, fmt.Errorf("unsupported history store driver: %s", driver)
	}
}
