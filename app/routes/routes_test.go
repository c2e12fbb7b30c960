package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"tasks-api/app/controllers"
	"tasks-api/app/logging"
	"tasks-api/app/models"
	"tasks-api/app/services"
	"tasks-api/app/storage"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close(context.Background()) })

	logger := log.New(io.Discard)
	controller := controllers.NewTaskController(services.NewTaskService(store, logger), logger)
	return NewHandler(controller, logger)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func expectOK(t *testing.T, resp *httptest.ResponseRecorder, code int) {
	t.Helper()
	if resp.Code != code {
		t.Fatalf("expected status %d, got %d: %s", code, resp.Code, resp.Body.String())
	}
	if strings.TrimSpace(resp.Body.String()) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func listTasks(t *testing.T, h http.Handler) []models.Task {
	t.Helper()
	resp := do(t, h, http.MethodGet, "/tasks", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("list: expected status 200, got %d", resp.Code)
	}
	var tasks []models.Task
	if err := json.Unmarshal(resp.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("failed to unmarshal list: %v", err)
	}
	return tasks
}

func TestSetupIsIdempotent(t *testing.T) {
	h := newTestServer(t)
	expectOK(t, do(t, h, http.MethodPost, "/tasks", `{"title":"A"}`), http.StatusCreated)

	for i := 0; i < 2; i++ {
		expectOK(t, do(t, h, http.MethodPost, "/setup_database", ""), http.StatusOK)
		if tasks := listTasks(t, h); len(tasks) != 0 {
			t.Fatalf("expected empty list after setup #%d, got %+v", i+1, tasks)
		}
	}
}

func TestCreateListRoundTrip(t *testing.T) {
	h := newTestServer(t)
	expectOK(t, do(t, h, http.MethodPost, "/setup_database", ""), http.StatusOK)

	expectOK(t, do(t, h, http.MethodPost, "/tasks", `{"title":"A","description":"first one"}`), http.StatusCreated)
	expectOK(t, do(t, h, http.MethodPost, "/tasks", `{"title":"B","completed":true}`), http.StatusCreated)

	tasks := listTasks(t, h)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID == tasks[1].ID {
		t.Fatalf("ids must be unique: %+v", tasks)
	}
	if tasks[0].Title != "A" || tasks[0].Description == nil || *tasks[0].Description != "first one" || tasks[0].Completed {
		t.Errorf("unexpected first task: %+v", tasks[0])
	}
	if tasks[1].Title != "B" || tasks[1].Description != nil || !tasks[1].Completed {
		t.Errorf("unexpected second task: %+v", tasks[1])
	}
}

func TestListRepresentation(t *testing.T) {
	h := newTestServer(t)
	expectOK(t, do(t, h, http.MethodPost, "/tasks", `{"title":"A"}`), http.StatusCreated)

	resp := do(t, h, http.MethodGet, "/tasks?test=anything", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var raw []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("expected 1 task, got %d", len(raw))
	}
	for _, key := range []string{"id", "title", "description", "completed"} {
		if _, ok := raw[0][key]; !ok {
			t.Errorf("task representation missing %q: %v", key, raw[0])
		}
	}
	if raw[0]["description"] != nil {
		t.Errorf("description should be null, got %v", raw[0]["description"])
	}
}

func TestCreateRejectsLongDescription(t *testing.T) {
	h := newTestServer(t)
	resp := do(t, h, http.MethodPost, "/tasks", `{"title":"A","description":"`+strings.Repeat("x", 21)+`"}`)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", resp.Code)
	}
	if tasks := listTasks(t, h); len(tasks) != 0 {
		t.Fatalf("no row should be persisted, got %+v", tasks)
	}
}

func TestCreateRejectsMissingTitle(t *testing.T) {
	h := newTestServer(t)
	resp := do(t, h, http.MethodPost, "/tasks", `{"description":"x"}`)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", resp.Code)
	}
}

func TestUpdateTask(t *testing.T) {
	h := newTestServer(t)
	expectOK(t, do(t, h, http.MethodPost, "/tasks", `{"title":"A","description":"d"}`), http.StatusCreated)
	id := listTasks(t, h)[0].ID

	for i := 0; i < 2; i++ {
		expectOK(t, do(t, h, http.MethodPatch, "/tasks/"+itoa(id), `{"completed":false,"title":"ignored"}`), http.StatusOK)
		task := listTasks(t, h)[0]
		if !task.Completed {
			t.Fatalf("task not completed after update #%d", i+1)
		}
		if task.Title != "A" {
			t.Fatalf("update must not change title, got %q", task.Title)
		}
	}
}

func TestUpdateMissingTaskIsNotFound(t *testing.T) {
	h := newTestServer(t)
	resp := do(t, h, http.MethodPatch, "/tasks/404", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["detail"] != "Task not found" {
		t.Errorf("unexpected detail: %v", body)
	}
}

func TestDeleteTask(t *testing.T) {
	h := newTestServer(t)
	expectOK(t, do(t, h, http.MethodPost, "/tasks", `{"title":"A"}`), http.StatusCreated)
	expectOK(t, do(t, h, http.MethodPost, "/tasks", `{"title":"B"}`), http.StatusCreated)
	tasks := listTasks(t, h)

	expectOK(t, do(t, h, http.MethodDelete, "/tasks/"+itoa(tasks[0].ID), ""), http.StatusOK)
	expectOK(t, do(t, h, http.MethodDelete, "/tasks/"+itoa(tasks[0].ID), ""), http.StatusOK)
	expectOK(t, do(t, h, http.MethodDelete, "/tasks/987654", ""), http.StatusOK)

	remaining := listTasks(t, h)
	if len(remaining) != 1 || remaining[0].Title != "B" {
		t.Fatalf("unexpected tasks after delete: %+v", remaining)
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestServer(t)

	resp := do(t, h, http.MethodGet, "/tasks", "")
	if resp.Header().Get(logging.RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set(logging.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(logging.RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/tasks/1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "content-type, x-custom-header")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the request origin", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
	}
	if got := strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")); !strings.Contains(got, "x-custom-header") {
		t.Errorf("Access-Control-Allow-Headers = %q, want x-custom-header allowed", got)
	}
}

func TestCORSSimpleRequest(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.org" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the request origin", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
	}
}

func TestTrailingSlash(t *testing.T) {
	h := newTestServer(t)

	expectOK(t, do(t, h, http.MethodPost, "/tasks/", `{"title":"A"}`), http.StatusCreated)

	resp := do(t, h, http.MethodGet, "/tasks/", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	id := listTasks(t, h)[0].ID
	expectOK(t, do(t, h, http.MethodPatch, "/tasks/"+itoa(id)+"/", ""), http.StatusOK)
	expectOK(t, do(t, h, http.MethodPost, "/setup_database/", ""), http.StatusOK)
}

func expectDetail(t *testing.T, resp *httptest.ResponseRecorder, code int, detail string) {
	t.Helper()
	if resp.Code != code {
		t.Fatalf("expected status %d, got %d: %s", code, resp.Code, resp.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", resp.Body.String(), err)
	}
	if body["detail"] != detail {
		t.Errorf("detail = %q, want %q", body["detail"], detail)
	}
}

func TestUnknownMethod(t *testing.T) {
	h := newTestServer(t)
	expectDetail(t, do(t, h, http.MethodPut, "/tasks/1", ""), http.StatusMethodNotAllowed, "Method Not Allowed")
}

func TestUnknownRoute(t *testing.T) {
	h := newTestServer(t)
	expectDetail(t, do(t, h, http.MethodGet, "/nope", ""), http.StatusNotFound, "Not Found")
}

func TestUnmatchedAndPanickingRequestsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "info", "logfmt")

	router := mux.NewRouter()
	router.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
	router.NotFoundHandler = http.HandlerFunc(controllers.NotFound)
	h := wrap(router, logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	out := buf.String()
	for _, want := range []string{"path=/boom status=500", "path=/missing status=404"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
