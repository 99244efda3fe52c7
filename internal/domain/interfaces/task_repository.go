package interfaces

import (
	"context"

	"github.com/drujensen/tasktracker/internal/domain/entities"
)

// TaskRepository stores a whole task collection. ReplaceTasks overwrites
// everything previously stored; ListTasks returns tasks in stored order.
type TaskRepository interface {
	ReplaceTasks(ctx context.Context, tasks []*entities.Task) error
	ListTasks(ctx context.Context) ([]*entities.Task, error)
	Name() string
}

// TaskValidator checks a raw task file before it is decoded.
type TaskValidator interface {
	Validate(data []byte) error
}
