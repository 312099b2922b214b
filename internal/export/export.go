// Package export renders task lists as downloadable documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"taskstore/internal/models"
)

// Format names a supported export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

// CSVHeader is the column order of CSV exports. It is accepted back by the importer.
var CSVHeader = []string{"id", "title", "description", "completed_at", "created_at", "updated_at"}

// ParseFormat maps a user supplied name to a Format. An empty name means CSV.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", name)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Write encodes tasks to w in the given format.
func Write(w io.Writer, format Format, tasks []models.Task) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, tasks)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	case FormatPDF:
		return writePDF(w, tasks)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func writeCSV(w io.Writer, tasks []models.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, t := range tasks {
		record := []string{
			t.ID,
			t.Title,
			t.Description,
			formatTime(t.CompletedAt),
			t.CreatedAt.Format(time.RFC3339Nano),
			t.UpdatedAt.Format(time.RFC3339Nano),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writePDF(w io.Writer, tasks []models.Task) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Tasks")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 10)

	// gofpdf core fonts are cp1252.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, t := range tasks {
		status := "open"
		if t.Completed() {
			status = "done " + t.CompletedAt.Format(time.DateOnly)
		}
		line := fmt.Sprintf("[%s] %s - %s (%s)", status, t.Title, t.Description, t.ID)
		pdf.MultiCell(0, 6, tr(line), "0", "L", false)
	}
	if len(tasks) == 0 {
		pdf.Cell(40, 6, "No tasks.")
	}
	return pdf.Output(w)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
