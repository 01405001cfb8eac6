package repo

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
)

const duplicateEntryMessage = "Duplicate entry: A unique constraint was violated."

// ConflictError is returned when a write violates a unique constraint.
// It matches ErrorConflict with errors.Is and unwraps to the driver error.
type ConflictError struct {
	Message string
	Err     error
}

func newConflictError(err error) *ConflictError {
	return &ConflictError{Message: duplicateEntryMessage, Err: err}
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Is(target error) bool { return target == ErrorConflict }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		t      model.Task
		status string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.CreatedAt, &t.ModifiedAt)
	t.Status = model.Status(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.ModifiedAt = t.ModifiedAt.UTC()
	return t, err
}

// Время храним с точностью до микросекунды, как timestamptz в Postgres
func storeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func newTaskID() string {
	return uuid.NewString()
}

func statusOrDefault(s model.Status) string {
	if s == "" {
		return string(model.StatusTodo)
	}
	return string(s)
}

func patchStatus(p model.TaskPatch) *string {
	if p.Status == nil {
		return nil
	}
	s := string(*p.Status)
	return &s
}
