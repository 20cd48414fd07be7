package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/kanban/internal/adapters/server/common"
	"github.com/evanschultz/kanban/internal/app"
)

// stubTaskService provides deterministic task responses for handler tests.
type stubTaskService struct {
	tasks      []app.TaskRecord
	created    app.TaskRecord
	board      common.BoardSnapshot
	err        error
	lastList   common.ListTasksRequest
	lastCreate common.CreateTaskRequest
	lastMove   common.MoveTaskRequest
	lastDelete int64
	events     []app.ChangeEventRecord
	lastLimit  int
}

// ListTasks records the request and returns fixture rows.
func (s *stubTaskService) ListTasks(_ context.Context, req common.ListTasksRequest) ([]app.TaskRecord, error) {
	s.lastList = req
	if s.err != nil {
		return nil, s.err
	}
	return append([]app.TaskRecord(nil), s.tasks...), nil
}

// CreateTask records the request and returns the fixture task.
func (s *stubTaskService) CreateTask(_ context.Context, req common.CreateTaskRequest) (app.TaskRecord, error) {
	s.lastCreate = req
	if s.err != nil {
		return app.TaskRecord{}, s.err
	}
	return s.created, nil
}

// MoveTask records the request and echoes an updated result.
func (s *stubTaskService) MoveTask(_ context.Context, req common.MoveTaskRequest) (common.MutationResult, error) {
	s.lastMove = req
	if s.err != nil {
		return common.MutationResult{}, s.err
	}
	return common.MutationResult{ID: req.ID, Result: "updated", Status: req.Status}, nil
}

// DeleteTask records the id and echoes a deleted result.
func (s *stubTaskService) DeleteTask(_ context.Context, id int64) (common.MutationResult, error) {
	s.lastDelete = id
	if s.err != nil {
		return common.MutationResult{}, s.err
	}
	return common.MutationResult{ID: id, Result: "deleted"}, nil
}

// Board returns the fixture snapshot.
func (s *stubTaskService) Board(context.Context) (common.BoardSnapshot, error) {
	if s.err != nil {
		return common.BoardSnapshot{}, s.err
	}
	return s.board, nil
}

// History records the limit and returns fixture events.
func (s *stubTaskService) History(_ context.Context, req common.HistoryRequest) ([]app.ChangeEventRecord, error) {
	s.lastLimit = req.Limit
	if s.err != nil {
		return nil, s.err
	}
	return append([]app.ChangeEventRecord(nil), s.events...), nil
}

// serve runs one request through the handler and returns the recorder.
func serve(handler http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// decodeEnvelope decodes one structured error body.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var envelope ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return envelope
}

// TestHandlerListTasks verifies list responses and the status query passthrough.
func TestHandlerListTasks(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := &stubTaskService{
		tasks: []app.TaskRecord{{ID: 1, Title: "Write report", Status: "doing", CreatedAt: created}},
	}
	handler := NewHandler(svc)

	rec := serve(handler, http.MethodGet, "/tasks?status=doing", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.lastList.Status != "doing" {
		t.Fatalf("status filter = %q, want doing", svc.lastList.Status)
	}
	var got struct {
		Tasks []map[string]any `json:"tasks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got.Tasks) != 1 {
		t.Fatalf("tasks = %#v, want one row", got.Tasks)
	}
	if got.Tasks[0]["title"] != "Write report" || got.Tasks[0]["description"] != nil {
		t.Fatalf("unexpected task row %#v", got.Tasks[0])
	}
	if got.Tasks[0]["created_at"] != "2026-03-01T09:00:00Z" {
		t.Fatalf("created_at = %#v, want RFC3339", got.Tasks[0]["created_at"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected generated X-Request-ID header")
	}
}

// TestHandlerKeepsCallerRequestID verifies a supplied correlation id is echoed.
func TestHandlerKeepsCallerRequestID(t *testing.T) {
	handler := NewHandler(&stubTaskService{})
	req := httptest.NewRequest(http.MethodGet, "/board", nil)
	req.Header.Set("X-Request-ID", "req-7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-7" {
		t.Fatalf("X-Request-ID = %q, want req-7", got)
	}
}

// TestHandlerHistory verifies the activity ledger route and limit parsing.
func TestHandlerHistory(t *testing.T) {
	occurred := time.Date(2026, 3, 1, 9, 0, 2, 0, time.UTC)
	svc := &stubTaskService{
		events: []app.ChangeEventRecord{{
			ID:         2,
			TaskID:     1,
			Operation:  "move",
			Metadata:   map[string]string{"from_status": "todo", "to_status": "doing"},
			OccurredAt: occurred,
		}},
	}
	handler := NewHandler(svc)

	rec := serve(handler, http.MethodGet, "/history?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.lastLimit != 5 {
		t.Fatalf("limit = %d, want 5", svc.lastLimit)
	}
	var got struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got.Events) != 1 || got.Events[0]["operation"] != "move" || got.Events[0]["occurred_at"] != "2026-03-01T09:00:02Z" {
		t.Fatalf("unexpected events %#v", got.Events)
	}

	if rec := serve(handler, http.MethodGet, "/history?limit=many", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	svc.err = common.ErrInvalidRequest
	if rec := serve(handler, http.MethodGet, "/history?limit=-1", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative limit status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	rec = serve(handler, http.MethodPost, "/history", nil)
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != http.MethodGet {
		t.Fatalf("POST /history = %d allow=%q", rec.Code, rec.Header().Get("Allow"))
	}
}

// TestHandlerCreateTask verifies strict body decoding and 201 responses.
func TestHandlerCreateTask(t *testing.T) {
	svc := &stubTaskService{created: app.TaskRecord{ID: 3, Title: "Ship", Status: "todo"}}
	handler := NewHandler(svc)

	rec := serve(handler, http.MethodPost, "/tasks", strings.NewReader(`{"title":"Ship","description":"v1"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d body=%s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if svc.lastCreate.Title != "Ship" || svc.lastCreate.Description == nil || *svc.lastCreate.Description != "v1" {
		t.Fatalf("unexpected create request %#v", svc.lastCreate)
	}

	rec = serve(handler, http.MethodPost, "/tasks", strings.NewReader(`{"title":"Ship","priority":"high"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if envelope := decodeEnvelope(t, rec); envelope.Error.Code != "invalid_request" {
		t.Fatalf("error.code = %q, want invalid_request", envelope.Error.Code)
	}

	rec = serve(handler, http.MethodPost, "/tasks", strings.NewReader(`{"title":"a"}{"title":"b"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("trailing payload status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// TestHandlerMoveAndDelete verifies id routing for PATCH and DELETE.
func TestHandlerMoveAndDelete(t *testing.T) {
	svc := &stubTaskService{}
	handler := NewHandler(svc)

	rec := serve(handler, http.MethodPatch, "/tasks/5", strings.NewReader(`{"status":"done"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.lastMove.ID != 5 || svc.lastMove.Status != "done" {
		t.Fatalf("unexpected move request %#v", svc.lastMove)
	}

	rec = serve(handler, http.MethodDelete, "/tasks/9/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.lastDelete != 9 {
		t.Fatalf("delete id = %d, want 9", svc.lastDelete)
	}

	rec = serve(handler, http.MethodDelete, "/tasks/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = serve(handler, http.MethodPut, "/tasks/5", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if allow := rec.Header().Get("Allow"); allow != "PATCH, DELETE" {
		t.Fatalf("Allow = %q, want PATCH, DELETE", allow)
	}
}

// TestHandlerErrorMapping verifies structured status mapping for service errors.
func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid request",
			err:        errors.Join(common.ErrInvalidRequest, errors.New("bad status")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "not found",
			err:        errors.Join(common.ErrNotFound, errors.New("missing")),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "unavailable",
			err:        common.ErrServiceUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "service_unavailable",
		},
		{
			name:       "internal error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(&stubTaskService{err: tt.err})
			rec := serve(handler, http.MethodPatch, "/tasks/1", strings.NewReader(`{"status":"done"}`))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if envelope := decodeEnvelope(t, rec); envelope.Error.Code != tt.wantCode {
				t.Fatalf("error.code = %q, want %q", envelope.Error.Code, tt.wantCode)
			}
		})
	}
}

// TestHandlerUnknownEndpoint verifies unknown paths return a structured 404.
func TestHandlerUnknownEndpoint(t *testing.T) {
	rec := serve(NewHandler(&stubTaskService{}), http.MethodGet, "/projects", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if envelope := decodeEnvelope(t, rec); envelope.Error.Code != "not_found" {
		t.Fatalf("error.code = %q, want not_found", envelope.Error.Code)
	}
}

// TestHandlerWithoutService verifies fail-closed behavior when no service is wired.
func TestHandlerWithoutService(t *testing.T) {
	rec := serve(NewHandler(nil), http.MethodGet, "/tasks", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
