package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

const uniqueViolation = "23505"

const taskColumns = `id, title, description, status, created_at, modified_at`

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT,
		status      TEXT NOT NULL DEFAULT 'TODO' CHECK (status IN ('TODO', 'IN_PROGRESS', 'DONE')),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		modified_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks (created_at, id)`,
}

var _ TaskRepository = (*TaskRepo)(nil)

type TaskRepo struct { // Репозиторий для работы непосредственно с Postgres
	pool  *pgxpool.Pool
	newID func() string
	now   func() time.Time
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool:  pool,
		newID: newTaskID,
		now:   time.Now,
	}
}

// EnsureSchema creates the tasks table if it does not exist yet.
func (r *TaskRepo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure task schema: %w", err)
		}
	}
	return nil
}

func (r *TaskRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *TaskRepo) List(ctx context.Context) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) FindByID(ctx context.Context, id string) (model.Task, bool, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1
	`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Task{}, false, nil
	}
	if err != nil {
		return model.Task{}, false, err
	}
	return t, true, nil
}

func (r *TaskRepo) Insert(ctx context.Context, in model.TaskInput) (model.Task, error) {
	now := storeTime(r.now())
	t, err := scanTask(r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, title, description, status, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+taskColumns,
		r.newID(), in.Title, in.Description, statusOrDefault(in.Status), now,
	))
	if err != nil {
		return model.Task{}, r.mapError(err)
	}
	return t, nil
}

// UpdateByID перезаписывает только переданные поля.
// Если строки уже нет (удалили между проверкой и обновлением), возвращает ErrorNotFound.
func (r *TaskRepo) UpdateByID(ctx context.Context, id string, patch model.TaskPatch, modifiedAt time.Time) (model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = COALESCE($2::text, title),
		    description = COALESCE($3::text, description),
		    status = COALESCE($4::text, status),
		    modified_at = $5
		WHERE id = $1
		RETURNING `+taskColumns,
		id, patch.Title, patch.Description, patchStatus(patch), storeTime(modifiedAt),
	))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Task{}, ErrorNotFound
	}
	if err != nil {
		return model.Task{}, r.mapError(err)
	}
	return t, nil
}

func (r *TaskRepo) DeleteByID(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return newConflictError(err)
	}
	return err
}
