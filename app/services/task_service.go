package services

import (
	"context"
	"errors"

	"tasks-api/app/models"
	"tasks-api/app/storage"

	"github.com/charmbracelet/log"
)

// TaskService handles task-related operations.
type TaskService struct {
	store  storage.TaskStore
	logger *log.Logger
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(store storage.TaskStore, logger *log.Logger) *TaskService {
	return &TaskService{store: store, logger: logger}
}

// SetupDatabase drops and recreates the task schema.
func (s *TaskService) SetupDatabase(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		s.logger.Error("reset schema", "err", err)
		return err
	}
	s.logger.Warn("task schema reset, all tasks deleted")
	return nil
}

// CreateTask persists a validated create payload.
func (s *TaskService) CreateTask(ctx context.Context, task models.TaskAdd) (int64, error) {
	id, err := s.store.Create(ctx, task)
	if err != nil {
		s.logger.Error("create task", "err", err)
		return 0, err
	}
	s.logger.Debug("task created", "task_id", id)
	return id, nil
}

// CompleteTask marks a task completed. Unknown ids yield storage.ErrTaskNotFound.
func (s *TaskService) CompleteTask(ctx context.Context, id int64) error {
	err := s.store.Complete(ctx, id)
	switch {
	case errors.Is(err, storage.ErrTaskNotFound):
		s.logger.Debug("complete: task not found", "task_id", id)
		return err
	case err != nil:
		s.logger.Error("complete task", "task_id", id, "err", err)
		return err
	}
	s.logger.Debug("task completed", "task_id", id)
	return nil
}

// DeleteTask removes a task. Deleting an unknown id succeeds.
func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error("delete task", "task_id", id, "err", err)
		return err
	}
	s.logger.Debug("task deleted", "task_id", id)
	return nil
}

// GetTasks retrieves all tasks in insertion order.
func (s *TaskService) GetTasks(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("list tasks", "err", err)
		return nil, err
	}
	return tasks, nil
}
