package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/churnwatch/churnwatch/pkg/models"
)

type DriftReportRepository struct {
	db *sql.DB
}

func NewDriftReportRepository(db *sql.DB) *DriftReportRepository {
	return &DriftReportRepository{db: db}
}

func (r *DriftReportRepository) Insert(ctx context.Context, report *models.DriftReport) error {
	features, err := json.Marshal(report.Features)
	if err != nil {
		return fmt.Errorf("marshal feature scores: %w", err)
	}

	query := `
		INSERT INTO drift_reports (id, model_version, window_from, window_to, sample_count, features, aggregate_score, aggregate_drift, recommendation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.ExecContext(ctx, query,
		report.ID, report.ModelVersion, report.WindowFrom, report.WindowTo, report.SampleCount,
		features, report.AggregateScore, report.AggregateDrift, report.Recommendation, report.CreatedAt,
	)
	return err
}

func (r *DriftReportRepository) List(ctx context.Context, limit int) ([]*models.DriftReport, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, model_version, window_from, window_to, sample_count, features, aggregate_score, aggregate_drift, recommendation, created_at
		FROM drift_reports
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.DriftReport
	for rows.Next() {
		var rep models.DriftReport
		var features []byte
		err := rows.Scan(
			&rep.ID, &rep.ModelVersion, &rep.WindowFrom, &rep.WindowTo, &rep.SampleCount,
			&features, &rep.AggregateScore, &rep.AggregateDrift, &rep.Recommendation, &rep.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(features, &rep.Features); err != nil {
			return nil, fmt.Errorf("unmarshal feature scores: %w", err)
		}
		reports = append(reports, &rep)
	}

	return reports, rows.Err()
}

func (r *DriftReportRepository) Latest(ctx context.Context) (*models.DriftReport, error) {
	reports, err := r.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	return reports[0], nil
}
