// Package storage holds the task schema and the stores that persist it.
package storage

import (
	"context"
	"errors"

	"tasks-api/app/models"
)

// ErrTaskNotFound is returned when an operation targets an id with no stored task.
var ErrTaskNotFound = errors.New("task not found")

// TaskStore persists tasks. Every call runs in its own unit of work.
type TaskStore interface {
	// Reset drops and recreates the task schema, deleting all tasks.
	Reset(ctx context.Context) error
	// Create inserts a task and returns the id the store assigned.
	Create(ctx context.Context, task models.TaskAdd) (int64, error)
	// Complete marks a task completed. Returns ErrTaskNotFound for unknown ids.
	Complete(ctx context.Context, id int64) error
	// Delete removes a task. Unknown ids are not an error.
	Delete(ctx context.Context, id int64) error
	// List returns all tasks in id order.
	List(ctx context.Context) ([]models.Task, error)
	Close(ctx context.Context) error
}
