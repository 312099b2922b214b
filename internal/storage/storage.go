// Package storage selects the backend that holds the task collection.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"taskstore/internal/models"
	"taskstore/internal/storage/memory"
	"taskstore/internal/storage/sqlite"
)

// Supported backend drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Store is the set of operations every backend provides over the ordered
// task collection.
type Store interface {
	CreateTask(ctx context.Context, title, description string) (models.Task, error)
	ListTasks(ctx context.Context, search string) ([]models.Task, error)
	UpdateTask(ctx context.Context, id, title, description string) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ToggleTask(ctx context.Context, id string) (models.Task, error)
	Close() error
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
)

// Open builds the backend named by driver. dsn is only used by sqlite and
// falls back to an in-memory database when empty.
func Open(driver, dsn string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch driver {
	case "", DriverMemory:
		logger.Info("using in-memory task store")
		return memory.New(memory.WithLogger(logger)), nil
	case DriverSQLite:
		if dsn == "" {
			dsn = sqlite.DefaultDSN
		}
		logger.Info("using sqlite task store", slog.String("dsn", dsn))
		return sqlite.Open(dsn, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
