package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskstore/internal/export"
	"taskstore/internal/importer"
)

type importRequest struct {
	Path string `json:"path" binding:"required"`
}

// handleImportTasks bulk-creates tasks from a CSV file on the server's disk.
// The response is sent once the whole file has been consumed.
func (s *Server) handleImportTasks(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("path is required"))
		return
	}

	// A client going away must not stop an import halfway.
	ctx := context.WithoutCancel(c.Request.Context())

	summary, err := s.importer.Import(ctx, req.Path)
	if err != nil {
		var importErr *importer.ImportError
		if !errors.As(err, &importErr) {
			s.respondError(c, http.StatusInternalServerError, err)
			return
		}
		s.logger.Error("import failed",
			"request_id", c.GetString(requestIDKey),
			"path", req.Path,
			"imported", summary.Imported,
			"error", importErr.Err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "Failed to import CSV",
			"details":  importErr.Err.Error(),
			"imported": summary.Imported,
		})
		return
	}

	respondSuccess(c, http.StatusCreated, gin.H{
		"message":  "Tasks imported successfully!",
		"imported": summary.Imported,
		"skipped":  summary.Skipped,
	})
}

// handleExportTasks downloads the task list as csv, json or pdf.
func (s *Server) handleExportTasks(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), c.Query("search"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}

	c.Header("Content-Type", format.ContentType())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="tasks.%s"`, format))
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, format, tasks); err != nil {
		s.logger.Error("export failed",
			"request_id", c.GetString(requestIDKey),
			"format", string(format),
			"error", err)
	}
}
