package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiplog-io/shiplog/internal/model"
)

// RunRepository persists and reads publish run records.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository returns a RunRepository using the given pool.
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Create inserts a new run in RUNNING state and fills in its ID.
func (r *RunRepository) Create(ctx context.Context, run *model.PublishRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = model.RunStatusRunning
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO publish_runs (id, log_group, log_stream, status, events_sent, batches_sent, error, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID,
		run.LogGroup,
		run.LogStream,
		run.Status,
		run.EventsSent,
		run.BatchesSent,
		run.Error,
		run.StartedAt,
	)
	return err
}

// Finish records the terminal state of a run.
func (r *RunRepository) Finish(ctx context.Context, run *model.PublishRun) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	_, err := r.pool.Exec(ctx, `
		UPDATE publish_runs
		SET status = $2, events_sent = $3, batches_sent = $4, error = $5, finished_at = $6
		WHERE id = $1`,
		run.ID,
		run.Status,
		run.EventsSent,
		run.BatchesSent,
		run.Error,
		run.FinishedAt,
	)
	return err
}

// List returns the most recent runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]model.PublishRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, log_group, log_stream, status, events_sent, batches_sent, error, started_at, finished_at
		FROM publish_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.PublishRun
	for rows.Next() {
		var run model.PublishRun
		if err := rows.Scan(
			&run.ID,
			&run.LogGroup,
			&run.LogStream,
			&run.Status,
			&run.EventsSent,
			&run.BatchesSent,
			&run.Error,
			&run.StartedAt,
			&run.FinishedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, run)
	}
	return list, rows.Err()
}

// GetByID returns one run by id, or nil if not found.
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PublishRun, error) {
	var run model.PublishRun
	err := r.pool.QueryRow(ctx, `
		SELECT id, log_group, log_stream, status, events_sent, batches_sent, error, started_at, finished_at
		FROM publish_runs WHERE id = $1`, id).Scan(
		&run.ID,
		&run.LogGroup,
		&run.LogStream,
		&run.Status,
		&run.EventsSent,
		&run.BatchesSent,
		&run.Error,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}
