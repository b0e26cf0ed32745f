package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/ytget/social-downloader/internal/model"
)

var pgMigration = []string{
	`CREATE TABLE download_task (
id VARCHAR(64) PRIMARY KEY,
status VARCHAR(32) NOT NULL,
total INTEGER NOT NULL,
completed INTEGER NOT NULL,
save_dir TEXT NOT NULL DEFAULT '',
quality VARCHAR(32) NOT NULL DEFAULT '',
error TEXT NOT NULL DEFAULT '',
started_at TIMESTAMPTZ NOT NULL,
finished_at TIMESTAMPTZ
)`,
	`CREATE TABLE download_result (
task_id VARCHAR(64) NOT NULL REFERENCES download_task(id) ON DELETE CASCADE,
url TEXT NOT NULL,
status VARCHAR(32) NOT NULL,
filename TEXT NOT NULL DEFAULT '',
title TEXT NOT NULL DEFAULT '',
message TEXT NOT NULL DEFAULT '',
PRIMARY KEY (task_id, url)
)`,
	`CREATE INDEX download_task_started_at ON download_task (started_at DESC)`,
}

// Postgres is a history repository backed by PostgreSQL
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to dsn and migrates the schema
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	p, err := NewPostgres(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps db and applies missing migrations
func NewPostgres(db *sql.DB) (*Postgres, error) {
	p := &Postgres{db: db}
	if err := p.migrate(pgMigration); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return p, nil
}

// Close closes the database
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Save(ctx context.Context, task model.DownloadTask) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO download_task
(id, status, total, completed, save_dir, quality, error, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
status = EXCLUDED.status,
completed = EXCLUDED.completed,
error = EXCLUDED.error,
finished_at = EXCLUDED.finished_at`,
		task.ID, string(task.Status), task.Total, task.Completed, task.SaveDir,
		task.Quality, task.LastError, task.StartedAt, nullTime(task.FinishedAt)); err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM download_result WHERE task_id = $1`, task.ID); err != nil {
		return err
	}
	for _, r := range task.Results {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO download_result
(task_id, url, status, filename, title, message)
VALUES ($1, $2, $3, $4, $5, $6)`,
			task.ID, r.URL, string(r.Status), r.Filename, r.Title, r.Message); err != nil {
			return fmt.Errorf("failed to save result for %s: %w", r.URL, err)
		}
	}

	return tx.Commit()
}

func (p *Postgres) Get(ctx context.Context, id string) (model.DownloadTask, error) {
	row := p.db.QueryRowContext(ctx, `
SELECT id, status, total, completed, save_dir, quality, error, started_at, finished_at
FROM download_task
WHERE id = $1`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DownloadTask{}, ErrNotFound
	}
	if err != nil {
		return model.DownloadTask{}, err
	}
	if err := p.loadResults(ctx, &task); err != nil {
		return model.DownloadTask{}, err
	}
	return task, nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]model.DownloadTask, error) {
	rows, err := p.db.QueryContext(ctx, `
SELECT id, status, total, completed, save_dir, quality, error, started_at, finished_at
FROM download_task
ORDER BY started_at DESC
LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}

	tasks := []model.DownloadTask{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		tasks = append(tasks, task)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		if err := p.loadResults(ctx, &tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (p *Postgres) loadResults(ctx context.Context, task *model.DownloadTask) error {
	rows, err := p.db.QueryContext(ctx, `
SELECT url, status, filename, title, message
FROM download_result
WHERE task_id = $1`, task.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	task.Results = make(map[string]model.ItemResult)
	for rows.Next() {
		var r model.ItemResult
		var status string
		if err := rows.Scan(&r.URL, &status, &r.Filename, &r.Title, &r.Message); err != nil {
			return err
		}
		r.Status = model.ItemStatus(status)
		task.Results[r.URL] = r
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (model.DownloadTask, error) {
	var task model.DownloadTask
	var status string
	var finished sql.NullTime
	if err := s.Scan(&task.ID, &status, &task.Total, &task.Completed, &task.SaveDir,
		&task.Quality, &task.LastError, &task.StartedAt, &finished); err != nil {
		return model.DownloadTask{}, err
	}
	task.Status = model.TaskStatus(status)
	if finished.Valid {
		task.FinishedAt = finished.Time
	}
	return task, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (p *Postgres) migrate(wanted []string) error {
	query := `CREATE TABLE IF NOT EXISTS migration
("id" SERIAL PRIMARY KEY, "query" TEXT)`
	if _, err := p.db.Exec(query); err != nil {
		return err
	}

	rows, err := p.db.Query(`SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return err
	}

	existing := []string{}
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, query)
	}
	rows.Close()

	missing, err := compareMigrations(wanted, existing)
	if err != nil {
		return err
	}

	for _, query := range missing {
		if _, err := p.db.Exec(query); err != nil {
			return err
		}
		if _, err := p.db.Exec(`INSERT INTO migration (query) VALUES ($1)`, query); err != nil {
			return err
		}
	}

	return nil
}

func compareMigrations(wanted, existing []string) ([]string, error) {
	needed := []string{}
	if len(wanted) < len(existing) {
		return []string{}, fmt.Errorf("not enough migrations")
	}

	for i, want := range wanted {
		switch {
		case i >= len(existing):
			needed = append(needed, want)
		case want != existing[i]:
			return []string{}, fmt.Errorf("incompatible migration: %v", want)
		}
	}

	return needed, nil
}
