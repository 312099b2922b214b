package models

import (
	"strings"
	"time"
)

// Task is a single to-do record held by the store.
type Task struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Completed reports whether the task has a completion timestamp.
func (t Task) Completed() bool {
	return t.CompletedAt != nil
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	out := t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

// Matches reports whether title or description contains search.
// The match is case-sensitive; an empty search matches everything.
func (t Task) Matches(search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(t.Title, search) || strings.Contains(t.Description, search)
}

// ImportSummary counts the rows handled by a bulk import.
type ImportSummary struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
