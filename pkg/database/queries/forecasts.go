package queries

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/OldStager01/finy-forecast/pkg/models"
)

var ErrRunNotFound = errors.New("forecast run not found")

type ForecastRepository struct {
	db *sql.DB
}

func NewForecastRepository(db *sql.DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

func (r *ForecastRepository) Insert(ctx context.Context, run *models.ForecastRun, traceID string) error {
	query := `
		INSERT INTO forecast_runs
			(id, metric_id, requested, used, fallback, fallback_reason, projected, duration_ms, trace_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.MetricID,
		run.Requested,
		run.Used,
		run.Fallback,
		nullString(string(run.FallbackReason)),
		pq.Array(run.Values),
		run.DurationMs,
		nullString(traceID),
		run.CreatedAt,
	)
	return err
}

func (r *ForecastRepository) ListByMetric(ctx context.Context, metricID string, limit int) ([]models.ForecastRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, metric_id, requested, used, fallback, fallback_reason, projected, duration_ms, created_at
		FROM forecast_runs
		WHERE metric_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, metricID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ForecastRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

func (r *ForecastRepository) GetByID(ctx context.Context, id string) (*models.ForecastRun, error) {
	query := `
		SELECT id, metric_id, requested, used, fallback, fallback_reason, projected, duration_ms, created_at
		FROM forecast_runs
		WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return run, err
}

// DeleteOlderThan prunes history beyond keep runs per metric.
func (r *ForecastRepository) DeleteOlderThan(ctx context.Context, metricID string, keep int) (int64, error) {
	query := `
		DELETE FROM forecast_runs
		WHERE metric_id = $1 AND id NOT IN (
			SELECT id FROM forecast_runs
			WHERE metric_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)`

	res, err := r.db.ExecContext(ctx, query, metricID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*models.ForecastRun, error) {
	var (
		run    models.ForecastRun
		reason sql.NullString
		values pq.Float64Array
	)
	err := s.Scan(&run.ID, &run.MetricID, &run.Requested, &run.Used, &run.Fallback, &reason, &values, &run.DurationMs, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	run.FallbackReason = models.FallbackReason(reason.String)
	run.Values = []float64(values)
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
