package storage

import (
	"fmt"

	"github.com/vitos/signal_trader/internal/domain"
)

const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Store is a last-trade store that owns an open file.
type Store interface {
	domain.LastTradeStore
	Close() error
}

// Open returns the store for driver, backed by the file at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLiteStore(path)
	case DriverBolt:
		return NewBoltStore(path)
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}
