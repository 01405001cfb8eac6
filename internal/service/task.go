package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("task not found")
)

const deletedMessage = "Task deleted successfully"

type TaskService struct {
	repo repo.TaskRepository
	now  func() time.Time
}

type Option func(*TaskService)

// WithClock overrides the time source used to stamp modifiedAt.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

func NewTaskService(repo repo.TaskRepository, opts ...Option) *TaskService {
	s := &TaskService{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List возвращает все задачи без фильтра по пользователю: приложение однопользовательское
func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	return s.repo.List(ctx)
}

func (s *TaskService) Get(ctx context.Context, id string) (model.Task, error) {
	t, ok, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if !ok {
		return model.Task{}, ErrNotFound
	}
	return t, nil
}

func (s *TaskService) Create(ctx context.Context, in model.TaskInput) (model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Status == "" { // статус по умолчанию
		in.Status = model.StatusTodo
	}
	if err := validateInput(in); err != nil {
		return model.Task{}, err
	}

	// ConflictError из репозитория пробрасываем как есть
	return s.repo.Insert(ctx, in)
}

func (s *TaskService) Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if err := validatePatch(patch); err != nil {
		return model.Task{}, err
	}

	current, ok, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if !ok {
		return model.Task{}, ErrNotFound
	}

	updated, err := s.repo.UpdateByID(ctx, id, patch, s.nextModifiedAt(current))
	if errors.Is(err, repo.ErrorNotFound) { // задачу удалили между проверкой и обновлением
		return model.Task{}, ErrNotFound
	}
	return updated, err
}

func (s *TaskService) Delete(ctx context.Context, id string) (model.DeleteResult, error) {
	_, ok, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.DeleteResult{}, err
	}
	if !ok {
		return model.DeleteResult{}, ErrNotFound
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repo.ErrorNotFound) {
			return model.DeleteResult{}, ErrNotFound
		}
		return model.DeleteResult{}, err
	}
	return model.DeleteResult{Message: deletedMessage}, nil
}

// nextModifiedAt keeps modifiedAt strictly increasing at storage precision.
func (s *TaskService) nextModifiedAt(current model.Task) time.Time {
	now := s.now().UTC().Truncate(time.Microsecond)
	if floor := current.ModifiedAt.Add(time.Microsecond); now.Before(floor) {
		return floor
	}
	return now
}

func validateInput(in model.TaskInput) error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, in.Status)
	}
	return nil
}

func validatePatch(p model.TaskPatch) error {
	if p.Title != nil && *p.Title == "" {
		return fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, *p.Status)
	}
	return nil
}
