package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

// Время в SQLite храним как unix-микросекунды: сортировка и сравнение работают без парсинга строк
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT,
		status      TEXT NOT NULL DEFAULT 'TODO' CHECK (status IN ('TODO', 'IN_PROGRESS', 'DONE')),
		created_at  INTEGER NOT NULL,
		modified_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks (created_at, id)`,
}

var _ TaskRepository = (*SQLiteTaskRepo)(nil)

// SQLiteTaskRepo is the embedded-database variant of TaskRepo.
type SQLiteTaskRepo struct {
	db    *sql.DB
	newID func() string
	now   func() time.Time
}

func NewSQLiteTaskRepo(db *sql.DB) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{
		db:    db,
		newID: newTaskID,
		now:   time.Now,
	}
}

func (r *SQLiteTaskRepo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure task schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteTaskRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteTaskRepo) List(ctx context.Context) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
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
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *SQLiteTaskRepo) FindByID(ctx context.Context, id string) (model.Task, bool, error) {
	t, err := scanSQLiteTask(r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = ?1
	`, id))

	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, false, nil
	}
	if err != nil {
		return model.Task{}, false, err
	}
	return t, true, nil
}

func (r *SQLiteTaskRepo) Insert(ctx context.Context, in model.TaskInput) (model.Task, error) {
	now := storeTime(r.now()).UnixMicro()
	t, err := scanSQLiteTask(r.db.QueryRowContext(ctx, `
		INSERT INTO tasks (id, title, description, status, created_at, modified_at)
		VALUES (?1, ?2, ?3, ?4, ?5, ?5)
		RETURNING `+taskColumns,
		r.newID(), in.Title, in.Description, statusOrDefault(in.Status), now,
	))
	if err != nil {
		return model.Task{}, r.mapError(err)
	}
	return t, nil
}

func (r *SQLiteTaskRepo) UpdateByID(ctx context.Context, id string, patch model.TaskPatch, modifiedAt time.Time) (model.Task, error) {
	t, err := scanSQLiteTask(r.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET title = COALESCE(?2, title),
		    description = COALESCE(?3, description),
		    status = COALESCE(?4, status),
		    modified_at = ?5
		WHERE id = ?1
		RETURNING `+taskColumns,
		id, patch.Title, patch.Description, patchStatus(patch), storeTime(modifiedAt).UnixMicro(),
	))

	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrorNotFound
	}
	if err != nil {
		return model.Task{}, r.mapError(err)
	}
	return t, nil
}

func (r *SQLiteTaskRepo) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *SQLiteTaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return newConflictError(err)
		}
	}
	return err
}

func scanSQLiteTask(row rowScanner) (model.Task, error) {
	var (
		t                 model.Task
		status            string
		created, modified int64
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &created, &modified); err != nil {
		return model.Task{}, err
	}
	t.Status = model.Status(status)
	t.CreatedAt = time.UnixMicro(created).UTC()
	t.ModifiedAt = time.UnixMicro(modified).UTC()
	return t, nil
}
