package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"tasks-api/app/models"
	"tasks-api/app/services"
	"tasks-api/app/storage"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// TaskController handles HTTP requests for tasks.
type TaskController struct {
	Service *services.TaskService
	logger  *log.Logger
}

// NewTaskController creates a new TaskController.
func NewTaskController(service *services.TaskService, logger *log.Logger) *TaskController {
	return &TaskController{Service: service, logger: logger}
}

// SetupDatabase handles POST /setup_database.
func (c *TaskController) SetupDatabase(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.SetupDatabase(r.Context()); err != nil {
		c.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success())
}

// CreateTask handles POST /tasks.
func (c *TaskController) CreateTask(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := models.ParseTaskAdd(body)
	var verrs models.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": verrs})
		return
	case errors.Is(err, models.ErrMalformedBody):
		writeDetail(w, http.StatusBadRequest, "Invalid request payload")
		return
	case err != nil:
		c.internalError(w, err)
		return
	}

	if _, err := c.Service.CreateTask(r.Context(), task); err != nil {
		c.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.Success())
}

// UpdateTask handles PATCH /tasks/{taskID}. It only ever marks the task completed.
func (c *TaskController) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	err := c.Service.CompleteTask(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrTaskNotFound):
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	case err != nil:
		c.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success())
}

// DeleteTask handles DELETE /tasks/{taskID}.
func (c *TaskController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := c.Service.DeleteTask(r.Context(), id); err != nil {
		c.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success())
}

// GetTasks handles GET /tasks.
func (c *TaskController) GetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := c.Service.GetTasks(r.Context())
	if err != nil {
		c.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// NotFound answers requests that match no route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusNotFound, "Not Found")
}

// MethodNotAllowed answers requests whose path matches a route but whose method does not.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// taskID parses the {taskID} path variable, writing a 422 when it is not an integer.
func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["taskID"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": models.ValidationErrors{{
			Loc:  []string{"path", "task_id"},
			Msg:  "Input should be a valid integer",
			Type: "int_parsing",
		}}})
		return 0, false
	}
	return id, true
}

func (c *TaskController) internalError(w http.ResponseWriter, err error) {
	c.logger.Error("request failed", "err", err)
	writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
