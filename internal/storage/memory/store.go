package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskstore/internal/models"
)

// Store keeps tasks in insertion order inside process memory.
type Store struct {
	mu     sync.RWMutex
	tasks  []models.Task
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the time source used for task timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger attaches a logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		tasks: make([]models.Task, 0),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Close is a no-op; memory is released with the store.
func (s *Store) Close() error {
	return nil
}

// CreateTask appends a new incomplete task.
func (s *Store) CreateTask(_ context.Context, title, description string) (models.Task, error) {
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

	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()

	s.logger.Debug("task created", slog.String("id", t.ID))
	return t.Clone(), nil
}

// ListTasks returns tasks whose title or description contains search,
// or every task when search is empty.
func (s *Store) ListTasks(_ context.Context, search string) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.Matches(search) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// UpdateTask overwrites the non-empty fields of an existing task.
func (s *Store) UpdateTask(_ context.Context, id, title, description string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Task{}, models.ErrNotFound
	}
	if title == "" && description == "" {
		return models.Task{}, models.ErrNothingToUpdate
	}

	t := &s.tasks[i]
	if title != "" {
		t.Title = title
	}
	if description != "" {
		t.Description = description
	}
	t.UpdatedAt = s.now()
	return t.Clone(), nil
}

// DeleteTask removes a task, keeping the order of the rest.
func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.ErrNotFound
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return nil
}

// ToggleTask flips the completion state of a task.
func (s *Store) ToggleTask(_ context.Context, id string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Task{}, models.ErrNotFound
	}

	now := s.now()
	t := &s.tasks[i]
	if t.CompletedAt == nil {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
	t.UpdatedAt = now
	return t.Clone(), nil
}

// indexOf must be called with s.mu held.
func (s *Store) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
