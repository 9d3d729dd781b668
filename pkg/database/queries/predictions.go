package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/churnwatch/churnwatch/pkg/models"
)

type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Insert(ctx context.Context, p *models.PredictionRecord) error {
	features, err := json.Marshal(p.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	query := `
		INSERT INTO predictions (id, time, features, predicted_class, probability, risk_level, model_version, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.Timestamp, features, p.PredictedClass, p.Probability, p.RiskLevel, p.ModelVersion, p.LatencyMS,
	)
	return err
}

func (r *PredictionRepository) InsertBatch(ctx context.Context, records []*models.PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO predictions (id, time, features, predicted_class, probability, risk_level, model_version, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range records {
		features, err := json.Marshal(p.Features)
		if err != nil {
			return fmt.Errorf("marshal features: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			p.ID, p.Timestamp, features, p.PredictedClass, p.Probability, p.RiskLevel, p.ModelVersion, p.LatencyMS,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PredictionRepository) Window(ctx context.Context, from, to time.Time, limit int) ([]*models.PredictionRecord, error) {
	if limit <= 0 {
		limit = 10000
	}

	query := `
		SELECT id, time, features, predicted_class, probability, risk_level, model_version, latency_ms
		FROM predictions
		WHERE time >= $1 AND time < $2
		ORDER BY time ASC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.PredictionRecord
	for rows.Next() {
		var p models.PredictionRecord
		var features []byte
		err := rows.Scan(&p.ID, &p.Timestamp, &features, &p.PredictedClass, &p.Probability, &p.RiskLevel, &p.ModelVersion, &p.LatencyMS)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return nil, fmt.Errorf("unmarshal features: %w", err)
		}
		records = append(records, &p)
	}

	return records, rows.Err()
}

func (r *PredictionRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM predictions WHERE time >= $1`
	err := r.db.QueryRowContext(ctx, query, since).Scan(&count)
	return count, err
}

func (r *PredictionRepository) Stats(ctx context.Context, from, to time.Time) (*models.PredictionStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN predicted_class = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(probability), 0),
			COALESCE(SUM(CASE WHEN risk_level = 'low' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN risk_level = 'medium' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN risk_level = 'high' THEN 1 ELSE 0 END), 0)
		FROM predictions
		WHERE time >= $1 AND time < $2`

	stats := &models.PredictionStats{From: from, To: to, RiskCounts: map[models.RiskLevel]int{}}
	var low, medium, high int
	err := r.db.QueryRowContext(ctx, query, from, to).Scan(
		&stats.Total, &stats.PositiveCount, &stats.AvgProbability, &low, &medium, &high,
	)
	if err != nil {
		return nil, err
	}

	stats.RiskCounts[models.RiskLow] = low
	stats.RiskCounts[models.RiskMedium] = medium
	stats.RiskCounts[models.RiskHigh] = high
	if stats.Total > 0 {
		stats.PositiveRate = float64(stats.PositiveCount) / float64(stats.Total)
	}

	return stats, nil
}

func (r *PredictionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM predictions WHERE time < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
