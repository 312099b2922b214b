package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"taskstore/internal/models"
	"taskstore/internal/storage/memory"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := New(memory.New(), nil)
	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decodeTask(t *testing.T, data []byte) models.Task {
	t.Helper()
	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("unmarshal task: %v; body=%s", err, string(data))
	}
	return task
}

func decodeList(t *testing.T, data []byte) []models.Task {
	t.Helper()
	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("unmarshal list: %v; body=%s", err, string(data))
	}
	return tasks
}

func decodeMap(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v; body=%s", err, string(data))
	}
	return payload
}

func mustCreate(t *testing.T, ts *httptest.Server, title, description string) models.Task {
	t.Helper()
	resp, body := doJSON(t, ts, http.MethodPost, "/tasks", map[string]any{
		"title":       title,
		"description": description,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	return decodeTask(t, body)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatalf("expected %s header", RequestIDHeader)
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/tasks", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(RequestIDHeader, "req-42")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get(RequestIDHeader); got != "req-42" {
		t.Fatalf("request id=%q", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	if decodeMap(t, body)["error"] == "" {
		t.Fatalf("expected error message")
	}
}

func TestCreateSearchDeleteScenario(t *testing.T) {
	ts := newTestServer(t)

	created := mustCreate(t, ts, "A", "B")
	if created.ID == "" {
		t.Fatalf("expected id")
	}
	if created.CompletedAt != nil {
		t.Fatalf("expected completed_at to be nil")
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("created_at=%v updated_at=%v", created.CreatedAt, created.UpdatedAt)
	}

	resp, body := doJSON(t, ts, http.MethodGet, "/tasks?search=A", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	items := decodeList(t, body)
	if len(items) != 1 || items[0].ID != created.ID {
		t.Fatalf("unexpected search result %+v", items)
	}

	resp, body = doJSON(t, ts, http.MethodDelete, "/tasks/"+created.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	if len(body) != 0 {
		t.Fatalf("expected empty body, got %s", string(body))
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/tasks", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	if strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("expected empty list, got %s", string(body))
	}

	resp, body = doJSON(t, ts, http.MethodDelete, "/tasks/"+created.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
}

func TestCreateTask_Validation(t *testing.T) {
	ts := newTestServer(t)

	bodies := []any{
		map[string]any{"title": "only title"},
		map[string]any{"description": "only description"},
		map[string]any{"title": "", "description": "x"},
		nil,
	}
	for _, b := range bodies {
		resp, body := doJSON(t, ts, http.MethodPost, "/tasks", b)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %v: status=%d body=%s", b, resp.StatusCode, string(body))
		}
		if msg, _ := decodeMap(t, body)["error"].(string); msg != models.ErrMissingFields.Error() {
			t.Fatalf("error=%q", msg)
		}
	}

	resp, body := doJSON(t, ts, http.MethodGet, "/tasks", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	if len(decodeList(t, body)) != 0 {
		t.Fatalf("failed creates must not add tasks: %s", string(body))
	}
}

func TestCreateTask_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Post(ts.URL+"/tasks", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestUpdateTask(t *testing.T) {
	ts := newTestServer(t)
	task := mustCreate(t, ts, "old", "desc")

	resp, body := doJSON(t, ts, http.MethodPut, "/tasks/"+task.ID, map[string]any{"title": "new"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	updated := decodeTask(t, body)
	if updated.Title != "new" || updated.Description != "desc" {
		t.Fatalf("unexpected task %+v", updated)
	}
	if updated.UpdatedAt.Before(task.UpdatedAt) {
		t.Fatalf("updated_at went backwards")
	}

	resp, body = doJSON(t, ts, http.MethodPut, "/tasks/"+task.ID, map[string]any{"title": "", "description": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}

	resp, body = doJSON(t, ts, http.MethodPut, "/tasks/"+task.ID, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty body: status=%d body=%s", resp.StatusCode, string(body))
	}

	resp, body = doJSON(t, ts, http.MethodPut, "/tasks/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	resp, body = doJSON(t, ts, http.MethodPut, "/tasks/missing", map[string]any{"title": "x"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
}

func TestToggleTaskScenario(t *testing.T) {
	ts := newTestServer(t)
	task := mustCreate(t, ts, "A", "B")

	resp, body := doJSON(t, ts, http.MethodPatch, "/tasks/"+task.ID+"/complete", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	done := decodeTask(t, body)
	if done.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}
	t1 := *done.CompletedAt

	resp, body = doJSON(t, ts, http.MethodPatch, "/tasks/"+task.ID+"/complete", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	undone := decodeTask(t, body)
	if undone.CompletedAt != nil {
		t.Fatalf("expected completed_at to be null")
	}
	if undone.UpdatedAt.Before(t1) {
		t.Fatalf("updated_at %v before %v", undone.UpdatedAt, t1)
	}
	if !strings.Contains(string(body), `"completed_at":null`) {
		t.Fatalf("expected explicit null completed_at, got %s", string(body))
	}

	resp, body = doJSON(t, ts, http.MethodPatch, "/tasks/missing/complete", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
}

func TestImportTasks(t *testing.T) {
	ts := newTestServer(t)

	path := filepath.Join(t.TempDir(), "tasks.csv")
	if err := os.WriteFile(path, []byte("title,description\nX,Y\n,Z\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	resp, body := doJSON(t, ts, http.MethodPost, "/tasks/import", map[string]any{"path": path})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	payload := decodeMap(t, body)
	if payload["message"] == "" || payload["imported"] != float64(1) || payload["skipped"] != float64(1) {
		t.Fatalf("unexpected payload %v", payload)
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/tasks", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	items := decodeList(t, body)
	if len(items) != 1 || items[0].Title != "X" || items[0].Description != "Y" {
		t.Fatalf("unexpected tasks %+v", items)
	}
}

func TestImportTasks_Failures(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/tasks/import", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing path: status=%d body=%s", resp.StatusCode, string(body))
	}

	missing := filepath.Join(t.TempDir(), "missing.csv")
	resp, body = doJSON(t, ts, http.MethodPost, "/tasks/import", map[string]any{"path": missing})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	payload := decodeMap(t, body)
	if payload["error"] != "Failed to import CSV" {
		t.Fatalf("error=%v", payload["error"])
	}
	if details, _ := payload["details"].(string); details == "" {
		t.Fatalf("expected details, got %v", payload)
	}
}

func TestExportTasks(t *testing.T) {
	ts := newTestServer(t)
	mustCreate(t, ts, "Export me", "please")
	mustCreate(t, ts, "Other", "task")

	resp, body := doJSON(t, ts, http.MethodGet, "/tasks/export?format=csv&search=Export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content-type=%q", ct)
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "Export me") {
		t.Fatalf("unexpected csv %q", string(body))
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/tasks/export?format=pdf", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		t.Fatalf("expected pdf output")
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/tasks/export?format=xml", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
}

func TestExportThenImportRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	mustCreate(t, ts, "Round", "trip")

	resp, body := doJSON(t, ts, http.MethodGet, "/tasks/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}

	resp, body = doJSON(t, ts, http.MethodPost, "/tasks/import", map[string]any{"path": path})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/tasks?search=Round", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
	items := decodeList(t, body)
	if len(items) != 2 || items[0].ID == items[1].ID {
		t.Fatalf("expected original and re-imported task, got %+v", items)
	}
}
