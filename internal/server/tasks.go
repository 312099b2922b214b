package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// bindTask decodes the request body. An empty body counts as an empty object
// so the store decides between not found and missing fields.
func (s *Server) bindTask(c *gin.Context) (taskRequest, bool) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(c, http.StatusBadRequest, err)
		return taskRequest{}, false
	}
	return req, true
}

// handleListTasks returns all tasks, optionally filtered by ?search=.
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.store.ListTasks(c.Request.Context(), c.Query("search"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleCreateTask appends a new task.
func (s *Server) handleCreateTask(c *gin.Context) {
	req, ok := s.bindTask(c)
	if !ok {
		return
	}

	task, err := s.store.CreateTask(c.Request.Context(), getString(req.Title), getString(req.Description))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, task)
}

// handleUpdateTask replaces the title and/or description of a task.
func (s *Server) handleUpdateTask(c *gin.Context) {
	req, ok := s.bindTask(c)
	if !ok {
		return
	}

	task, err := s.store.UpdateTask(c.Request.Context(), c.Param("id"), getString(req.Title), getString(req.Description))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, task)
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.store.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}

// handleToggleTask marks a task complete, or incomplete if it already was.
func (s *Server) handleToggleTask(c *gin.Context) {
	task, err := s.store.ToggleTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, task)
}

func getString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
