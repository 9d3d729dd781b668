package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/churnwatch/churnwatch/pkg/models"
)

type ModelRepository struct {
	db *sql.DB
}

func NewModelRepository(db *sql.DB) *ModelRepository {
	return &ModelRepository{db: db}
}

// GetActive loads the currently served model together with its reference
// distribution. Returns (nil, nil) when no model has been promoted yet.
func (r *ModelRepository) GetActive(ctx context.Context) (*models.ModelHandle, error) {
	query := `
		SELECT version, metrics, base_rate, artifact_path, promoted_at
		FROM active_model
		WHERE singleton`

	var h models.ModelHandle
	var metrics []byte
	err := r.db.QueryRowContext(ctx, query).Scan(
		&h.Version, &metrics, &h.BaseRate, &h.ArtifactPath, &h.PromotedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metrics, &h.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}

	ref, err := r.GetReference(ctx, h.Version)
	if err != nil {
		return nil, err
	}
	h.Reference = ref

	return &h, nil
}

func (r *ModelRepository) GetReference(ctx context.Context, modelVersion string) (*models.ReferenceDistribution, error) {
	query := `
		SELECT model_version, captured_at, numeric_dists, categorical_dists
		FROM reference_distributions
		WHERE model_version = $1`

	ref := &models.ReferenceDistribution{}
	var numeric, categorical []byte
	err := r.db.QueryRowContext(ctx, query, modelVersion).Scan(
		&ref.ModelVersion, &ref.CapturedAt, &numeric, &categorical,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(numeric, &ref.Numeric); err != nil {
		return nil, fmt.Errorf("unmarshal numeric distributions: %w", err)
	}
	if err := json.Unmarshal(categorical, &ref.Categorical); err != nil {
		return nil, fmt.Errorf("unmarshal categorical distributions: %w", err)
	}

	return ref, nil
}

// Promote writes the new reference and replaces the active model row inside
// one transaction, so a crash mid-promotion never leaves a model without its
// matching reference.
func (r *ModelRepository) Promote(ctx context.Context, tx *sql.Tx, h *models.ModelHandle) error {
	if h.Reference == nil {
		return fmt.Errorf("model %s has no reference distribution", h.Version)
	}

	numeric, err := json.Marshal(h.Reference.Numeric)
	if err != nil {
		return fmt.Errorf("marshal numeric distributions: %w", err)
	}
	categorical, err := json.Marshal(h.Reference.Categorical)
	if err != nil {
		return fmt.Errorf("marshal categorical distributions: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reference_distributions (model_version, captured_at, numeric_dists, categorical_dists)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (model_version) DO UPDATE SET
			captured_at = EXCLUDED.captured_at,
			numeric_dists = EXCLUDED.numeric_dists,
			categorical_dists = EXCLUDED.categorical_dists`,
		h.Reference.ModelVersion, h.Reference.CapturedAt, numeric, categorical,
	)
	if err != nil {
		return fmt.Errorf("upsert reference: %w", err)
	}

	metrics, err := json.Marshal(h.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO active_model (singleton, version, metrics, base_rate, artifact_path, promoted_at)
		VALUES (TRUE, $1, $2, $3, $4, $5)
		ON CONFLICT (singleton) DO UPDATE SET
			version = EXCLUDED.version,
			metrics = EXCLUDED.metrics,
			base_rate = EXCLUDED.base_rate,
			artifact_path = EXCLUDED.artifact_path,
			promoted_at = EXCLUDED.promoted_at`,
		h.Version, metrics, h.BaseRate, h.ArtifactPath, h.PromotedAt,
	)
	if err != nil {
		return fmt.Errorf("replace active model: %w", err)
	}

	return nil
}
