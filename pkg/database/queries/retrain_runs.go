package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/churnwatch/churnwatch/pkg/models"
)

type RetrainRunRepository struct {
	db *sql.DB
}

func NewRetrainRunRepository(db *sql.DB) *RetrainRunRepository {
	return &RetrainRunRepository{db: db}
}

func (r *RetrainRunRepository) Insert(ctx context.Context, run *models.RetrainRun) error {
	oldMetrics, newMetrics, err := marshalRunMetrics(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO retrain_runs (id, reason, forced, status, decision, old_metrics, new_metrics, delta, failure_reason, started_at, finished_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, NULLIF($9, ''), $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.Reason, run.Forced, run.Status, string(run.Decision),
		oldMetrics, newMetrics, run.Delta, run.FailureReason, run.StartedAt, run.FinishedAt,
	)
	return err
}

func (r *RetrainRunRepository) Update(ctx context.Context, run *models.RetrainRun) error {
	oldMetrics, newMetrics, err := marshalRunMetrics(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE retrain_runs
		SET status = $2, decision = NULLIF($3, ''), old_metrics = $4, new_metrics = $5,
		    delta = $6, failure_reason = NULLIF($7, ''), finished_at = $8
		WHERE id = $1`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.Status, string(run.Decision), oldMetrics, newMetrics,
		run.Delta, run.FailureReason, run.FinishedAt,
	)
	return err
}

func (r *RetrainRunRepository) Get(ctx context.Context, id string) (*models.RetrainRun, error) {
	query := `
		SELECT id, reason, forced, status, COALESCE(decision, ''), old_metrics, new_metrics, delta, COALESCE(failure_reason, ''), started_at, finished_at
		FROM retrain_runs
		WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func (r *RetrainRunRepository) List(ctx context.Context, limit int) ([]*models.RetrainRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, reason, forced, status, COALESCE(decision, ''), old_metrics, new_metrics, delta, COALESCE(failure_reason, ''), started_at, finished_at
		FROM retrain_runs
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.RetrainRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.RetrainRun, error) {
	var run models.RetrainRun
	var decision string
	var oldMetrics, newMetrics []byte
	err := row.Scan(
		&run.ID, &run.Reason, &run.Forced, &run.Status, &decision,
		&oldMetrics, &newMetrics, &run.Delta, &run.FailureReason, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Decision = models.RunDecision(decision)
	if len(oldMetrics) > 0 {
		if err := json.Unmarshal(oldMetrics, &run.OldMetrics); err != nil {
			return nil, fmt.Errorf("unmarshal old metrics: %w", err)
		}
	}
	if len(newMetrics) > 0 {
		if err := json.Unmarshal(newMetrics, &run.NewMetrics); err != nil {
			return nil, fmt.Errorf("unmarshal new metrics: %w", err)
		}
	}
	return &run, nil
}

func marshalRunMetrics(run *models.RetrainRun) ([]byte, []byte, error) {
	var oldMetrics, newMetrics []byte
	var err error
	if run.OldMetrics != nil {
		if oldMetrics, err = json.Marshal(run.OldMetrics); err != nil {
			return nil, nil, fmt.Errorf("marshal old metrics: %w", err)
		}
	}
	if run.NewMetrics != nil {
		if newMetrics, err = json.Marshal(run.NewMetrics); err != nil {
			return nil, nil, fmt.Errorf("marshal new metrics: %w", err)
		}
	}
	return oldMetrics, newMetrics, nil
}
