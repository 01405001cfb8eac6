package repo

import (
	"context"
	"time"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами.
// Update и Delete не проверяют существование заранее: это делает сервис,
// а сами операции условные и возвращают ErrorNotFound, если строки нет.
type TaskRepository interface {
	List(ctx context.Context) ([]model.Task, error)
	FindByID(ctx context.Context, id string) (model.Task, bool, error)
	Insert(ctx context.Context, in model.TaskInput) (model.Task, error)
	UpdateByID(ctx context.Context, id string, patch model.TaskPatch, modifiedAt time.Time) (model.Task, error)
	DeleteByID(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
