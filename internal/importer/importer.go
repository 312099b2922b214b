// Package importer bulk-creates tasks from CSV files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"taskstore/internal/models"
)

const bom = "\uFEFF"

// TaskCreator is the part of the store the importer writes through.
type TaskCreator interface {
	CreateTask(ctx context.Context, title, description string) (models.Task, error)
}

// Importer streams CSV rows into a task store.
type Importer struct {
	store  TaskCreator
	logger *slog.Logger
}

// New returns an importer writing into store.
func New(store TaskCreator, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: store, logger: logger}
}

// Import reads the CSV file at path row by row and creates a task for every
// row with a non-empty title and description. Other rows are skipped.
// On failure the returned summary still counts the rows handled so far.
func (im *Importer) Import(ctx context.Context, path string) (models.ImportSummary, error) {
	var summary models.ImportSummary

	f, err := os.Open(path)
	if err != nil {
		return summary, &ImportError{Path: path, Err: err}
	}
	defer f.Close()

	rows, err := newRowReader(f)
	if errors.Is(err, io.EOF) {
		im.logger.Info("import source is empty", slog.String("path", path))
		return summary, nil
	}
	if err != nil {
		return summary, &ImportError{Path: path, Err: err}
	}

	for {
		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			im.logger.Warn("import aborted",
				slog.String("path", path),
				slog.Int("imported", summary.Imported),
				slog.String("error", err.Error()))
			return summary, &ImportError{Path: path, Err: err}
		}

		title, description := row["title"], row["description"]
		if title == "" || description == "" {
			summary.Skipped++
			continue
		}
		if _, err := im.store.CreateTask(ctx, title, description); err != nil {
			return summary, &ImportError{Path: path, Err: fmt.Errorf("create task: %w", err)}
		}
		summary.Imported++
	}

	im.logger.Info("import finished",
		slog.String("path", path),
		slog.Int("imported", summary.Imported),
		slog.Int("skipped", summary.Skipped))
	return summary, nil
}

// rowReader yields one header-keyed row at a time with trimmed values.
type rowReader struct {
	r      *csv.Reader
	header []string
}

// newRowReader consumes the header row. It returns io.EOF for an empty source.
func newRowReader(src io.Reader) (*rowReader, error) {
	r := csv.NewReader(src)
	r.ReuseRecord = true
	r.TrimLeadingSpace = true
	// Zero means every row must have as many fields as the header.
	r.FieldsPerRecord = 0

	record, err := r.Read()
	if err != nil {
		return nil, err
	}

	header := make([]string, len(record))
	for i, name := range record {
		if i == 0 {
			name = strings.TrimPrefix(name, bom)
		}
		header[i] = strings.TrimSpace(name)
	}
	return &rowReader{r: r, header: header}, nil
}

// Next returns the following row, or io.EOF once the source is exhausted.
func (rr *rowReader) Next() (map[string]string, error) {
	record, err := rr.r.Read()
	if err != nil {
		return nil, err
	}

	row := make(map[string]string, len(rr.header))
	for i, name := range rr.header {
		row[name] = strings.TrimSpace(record[i])
	}
	return row, nil
}
