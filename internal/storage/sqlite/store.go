package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"taskstore/internal/models"
)

// DefaultDSN keeps the database in process memory for the lifetime of the store.
const DefaultDSN = "file:taskstore?mode=memory&cache=shared"

const taskColumns = `id, title, description, completed_at, created_at, updated_at`

// Store wraps access to the SQLite database and exposes high level helpers.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the time source used for task timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dsn string, logger *slog.Logger, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty database dsn")
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// An in-memory database lives as long as its connection does.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)

	s := &Store{
		db:     conn,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            completed_at DATETIME NULL,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        );`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// CreateTask inserts a new incomplete task at the end of the collection.
func (s *Store) CreateTask(ctx context.Context, title, description string) (models.Task, error) {
	if title == "" || description == "" {
		return models.Task{}, models.ErrMissingFields
	}

	now := s.now()
	t := models.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks(id, title, description, completed_at, created_at, updated_at)
        VALUES(?, ?, ?, NULL, ?, ?)`, t.ID, t.Title, t.Description, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	s.logger.Debug("task created", slog.String("id", t.ID))
	return s.getTask(ctx, s.db, t.ID)
}

// ListTasks returns tasks in insertion order, filtered by a case-sensitive
// substring of title or description when search is not empty.
func (s *Store) ListTasks(ctx context.Context, search string) ([]models.Task, error) {
	tasks := make([]models.Task, 0)

	var err error
	if search == "" {
		err = s.db.SelectContext(ctx, &tasks, `SELECT `+taskColumns+` FROM tasks ORDER BY seq`)
	} else {
		// instr is case-sensitive, unlike LIKE.
		err = s.db.SelectContext(ctx, &tasks, `SELECT `+taskColumns+` FROM tasks
            WHERE instr(title, ?) > 0 OR instr(description, ?) > 0 ORDER BY seq`, search, search)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask overwrites the non-empty fields of an existing task.
func (s *Store) UpdateTask(ctx context.Context, id, title, description string) (models.Task, error) {
	var updated models.Task
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if title == "" && description == "" {
			return models.ErrNothingToUpdate
		}

		if title != "" {
			current.Title = title
		}
		if description != "" {
			current.Description = description
		}
		current.UpdatedAt = s.now()

		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
			current.Title, current.Description, current.UpdatedAt, id); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		updated, err = s.getTask(ctx, tx, id)
		return err
	})
	if err != nil {
		return models.Task{}, err
	}
	return updated, nil
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ToggleTask sets completed_at when it is empty and clears it otherwise.
func (s *Store) ToggleTask(ctx context.Context, id string) (models.Task, error) {
	var toggled models.Task
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.getTask(ctx, tx, id)
		if err != nil {
			return err
		}

		now := s.now()
		var completedAt any
		if current.CompletedAt == nil {
			completedAt = now
		}

		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET completed_at = ?, updated_at = ? WHERE id = ?`,
			completedAt, now, id); err != nil {
			return fmt.Errorf("toggle task: %w", err)
		}
		toggled, err = s.getTask(ctx, tx, id)
		return err
	})
	if err != nil {
		return models.Task{}, err
	}
	return toggled, nil
}

func (s *Store) getTask(ctx context.Context, q sqlx.QueryerContext, id string) (models.Task, error) {
	var t models.Task
	err := sqlx.GetContext(ctx, q, &t, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, models.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// inTx runs fn in a transaction, so read-modify-write sequences are atomic.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
