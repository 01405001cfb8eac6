package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
)

// MockTaskRepository - мок репозитория
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) List(ctx context.Context) ([]model.Task, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) FindByID(ctx context.Context, id string) (model.Task, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Task), args.Bool(1), args.Error(2)
}

func (m *MockTaskRepository) Insert(ctx context.Context, in model.TaskInput) (model.Task, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) UpdateByID(ctx context.Context, id string, patch model.TaskPatch, modifiedAt time.Time) (model.Task, error) {
	args := m.Called(ctx, id, patch, modifiedAt)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func statusPtr(s model.Status) *model.Status { return &s }

var (
	created  = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	existing = model.Task{
		ID:          "task-1",
		Title:       "Buy milk",
		Description: strPtr("2%"),
		Status:      model.StatusTodo,
		CreatedAt:   created,
		ModifiedAt:  created,
	}
)

func TestTaskService_Create(t *testing.T) {
	tests := []struct {
		name      string
		input     model.TaskInput
		setupMock func(*MockTaskRepository)
		wantErr   error
		check     func(*testing.T, model.Task)
	}{
		{
			name:  "status defaults to TODO",
			input: model.TaskInput{Title: "Buy milk", Description: strPtr("2%")},
			setupMock: func(m *MockTaskRepository) {
				m.On("Insert", mock.Anything, model.TaskInput{
					Title:       "Buy milk",
					Description: strPtr("2%"),
					Status:      model.StatusTodo,
				}).Return(existing, nil)
			},
			check: func(t *testing.T, task model.Task) {
				assert.Equal(t, "task-1", task.ID)
				assert.Equal(t, model.StatusTodo, task.Status)
				assert.Equal(t, "2%", *task.Description)
			},
		},
		{
			name:  "explicit status is kept",
			input: model.TaskInput{Title: "Ship", Status: model.StatusInProgress},
			setupMock: func(m *MockTaskRepository) {
				m.On("Insert", mock.Anything, mock.MatchedBy(func(in model.TaskInput) bool {
					return in.Status == model.StatusInProgress
				})).Return(model.Task{ID: "task-2", Title: "Ship", Status: model.StatusInProgress}, nil)
			},
			check: func(t *testing.T, task model.Task) {
				assert.Equal(t, model.StatusInProgress, task.Status)
			},
		},
		{
			name:  "title is trimmed",
			input: model.TaskInput{Title: "  padded  "},
			setupMock: func(m *MockTaskRepository) {
				m.On("Insert", mock.Anything, mock.MatchedBy(func(in model.TaskInput) bool {
					return in.Title == "padded"
				})).Return(model.Task{ID: "task-3", Title: "padded", Status: model.StatusTodo}, nil)
			},
		},
		{
			name:      "validation error - empty title",
			input:     model.TaskInput{Title: ""},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "validation error - whitespace title",
			input:     model.TaskInput{Title: "   "},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "validation error - unknown status",
			input:     model.TaskInput{Title: "Task", Status: "ARCHIVED"},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:  "conflict propagates unchanged",
			input: model.TaskInput{Title: "dup"},
			setupMock: func(m *MockTaskRepository) {
				m.On("Insert", mock.Anything, mock.Anything).
					Return(model.Task{}, &repo.ConflictError{Message: "Duplicate entry: A unique constraint was violated."})
			},
			wantErr: repo.ErrorConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			service := NewTaskService(mockRepo)
			result, err := service.Create(context.Background(), tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, result.ID)
				if tt.check != nil {
					tt.check(t, result)
				}
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_List(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockRepo.On("List", mock.Anything).Return([]model.Task{existing}, nil)

	service := NewTaskService(mockRepo)
	tasks, err := service.List(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []model.Task{existing}, tasks)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_Get(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByID", mock.Anything, "task-1").Return(existing, true, nil)

		task, err := NewTaskService(mockRepo).Get(context.Background(), "task-1")
		require.NoError(t, err)
		assert.Equal(t, existing, task)
	})

	t.Run("missing", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByID", mock.Anything, "nonexistent-1").Return(model.Task{}, false, nil)

		_, err := NewTaskService(mockRepo).Get(context.Background(), "nonexistent-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTaskService_Update(t *testing.T) {
	now := created.Add(time.Hour)
	clock := WithClock(func() time.Time { return now })

	t.Run("status only leaves other fields and stamps modifiedAt", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		patch := model.TaskPatch{Status: statusPtr(model.StatusDone)}
		want := existing
		want.Status = model.StatusDone
		want.ModifiedAt = now

		mockRepo.On("FindByID", mock.Anything, "task-1").Return(existing, true, nil)
		mockRepo.On("UpdateByID", mock.Anything, "task-1", patch, now).Return(want, nil)

		result, err := NewTaskService(mockRepo, clock).Update(context.Background(), "task-1", patch)

		require.NoError(t, err)
		assert.Equal(t, "Buy milk", result.Title)
		assert.Equal(t, "2%", *result.Description)
		assert.Equal(t, model.StatusDone, result.Status)
		assert.Equal(t, existing.CreatedAt, result.CreatedAt)
		assert.True(t, result.ModifiedAt.After(existing.ModifiedAt))
		mockRepo.AssertExpectations(t)
	})

	t.Run("empty patch only stamps modifiedAt", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		want := existing
		want.ModifiedAt = now

		mockRepo.On("FindByID", mock.Anything, "task-1").Return(existing, true, nil)
		mockRepo.On("UpdateByID", mock.Anything, "task-1", model.TaskPatch{}, now).Return(want, nil)

		result, err := NewTaskService(mockRepo, clock).Update(context.Background(), "task-1", model.TaskPatch{})
		require.NoError(t, err)
		assert.Equal(t, now, result.ModifiedAt)
		mockRepo.AssertExpectations(t)
	})

	t.Run("modifiedAt strictly increases when the clock lags", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		stale := WithClock(func() time.Time { return created.Add(-time.Minute) })
		floor := created.Add(time.Microsecond)

		mockRepo.On("FindByID", mock.Anything, "task-1").Return(existing, true, nil)
		mockRepo.On("UpdateByID", mock.Anything, "task-1", mock.Anything, floor).Return(existing, nil)

		_, err := NewTaskService(mockRepo, stale).Update(context.Background(), "task-1", model.TaskPatch{})
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing task is not found and store untouched", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByID", mock.Anything, "nonexistent-1").Return(model.Task{}, false, nil)

		_, err := NewTaskService(mockRepo, clock).Update(context.Background(), "nonexistent-1",
			model.TaskPatch{Title: strPtr("x")})

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, "task not found", err.Error())
		mockRepo.AssertNotCalled(t, "UpdateByID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("row deleted between check and update", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByID", mock.Anything, "task-1").Return(existing, true, nil)
		mockRepo.On("UpdateByID", mock.Anything, "task-1", mock.Anything, now).Return(model.Task{}, repo.ErrorNotFound)

		_, err := NewTaskService(mockRepo, clock).Update(context.Background(), "task-1", model.TaskPatch{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("validation errors skip the store", func(t *testing.T) {
		for _, patch := range []model.TaskPatch{
			{Title: strPtr("  ")},
			{Status: statusPtr("ARCHIVED")},
		} {
			mockRepo := new(MockTaskRepository)
			_, err := NewTaskService(mockRepo, clock).Update(context.Background(), "task-1", patch)
			assert.ErrorIs(t, err, ErrValidation)
			mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		}
	})

	t.Run("store errors propagate unchanged", func(t *testing.T) {
		boom := errors.New("connection reset")
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByID", mock.Anything, "task-1").Return(model.Task{}, false, boom)

		_, err := NewTaskService(mockRepo, clock).Update(context.Background(), "task-1", model.TaskPatch{})
		assert.Equal(t, boom, err)
	})
}

func TestTaskService_Delete(t *testing.T) {
	t.Run("existing task", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByID", mock.Anything, "task-1").Return(existing, true, nil)
		mockRepo.On("DeleteByID", mock.Anything, "task-1").Return(nil)

		result, err := NewTaskService(mockRepo).Delete(context.Background(), "task-1")
		require.NoError(t, err)
		assert.Equal(t, "Task deleted successfully", result.Message)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown id", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByID", mock.Anything, "nonexistent-1").Return(model.Task{}, false, nil)

		_, err := NewTaskService(mockRepo).Delete(context.Background(), "nonexistent-1")
		assert.ErrorIs(t, err, ErrNotFound)
		mockRepo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
	})

	t.Run("row deleted between check and delete", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByID", mock.Anything, "task-1").Return(existing, true, nil)
		mockRepo.On("DeleteByID", mock.Anything, "task-1").Return(repo.ErrorNotFound)

		_, err := NewTaskService(mockRepo).Delete(context.Background(), "task-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
