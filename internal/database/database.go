// Package database owns the single process-wide store handle.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/BuzzLyutic/task-tracker/internal/config"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
)

type schemaRepository interface {
	repo.TaskRepository
	EnsureSchema(ctx context.Context) error
}

// DB is opened once at startup and closed once at shutdown.
type DB struct {
	Tasks repo.TaskRepository

	close     func()
	closeOnce sync.Once
}

func Open(ctx context.Context, cfg config.Database, logger *zap.Logger) (*DB, error) {
	var (
		tasks schemaRepository
		closeFn func()
	)

	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		tasks, closeFn = repo.NewTaskRepo(pool), pool.Close
	case config.DriverSQLite:
		db, err := sql.Open("sqlite", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// один писатель: SQLite не любит конкурентные записи, а :memory: иначе будет своя у каждого соединения
		db.SetMaxOpenConns(1)
		tasks, closeFn = repo.NewSQLiteTaskRepo(db), func() { db.Close() }
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	if err := tasks.Ping(ctx); err != nil {
		closeFn()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	if err := tasks.EnsureSchema(ctx); err != nil {
		closeFn()
		return nil, err
	}

	logger.Info("Successfully connected to the Database!", zap.String("driver", cfg.Driver))
	return &DB{Tasks: tasks, close: closeFn}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Tasks.Ping(ctx)
}

func (db *DB) Close() {
	db.closeOnce.Do(db.close)
}
