package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/churnwatch/churnwatch/pkg/models"
)

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Insert(ctx context.Context, event *models.Event) error {
	var data []byte
	if event.Data != nil {
		var err error
		if data, err = json.Marshal(event.Data); err != nil {
			return fmt.Errorf("marshal event data: %w", err)
		}
	}

	query := `
		INSERT INTO monitor_alerts (id, event_type, severity, model_version, message, data, trace_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Type, event.Severity, event.ModelVersion, event.Message, data, event.TraceID, event.Timestamp,
	)
	return err
}

func (r *AlertRepository) List(ctx context.Context, severity models.EventSeverity, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, event_type, severity, COALESCE(model_version, ''), message, data, COALESCE(trace_id, ''), created_at
		FROM monitor_alerts`
	args := []any{}
	if severity != "" {
		query += ` WHERE severity = $1`
		args = append(args, severity)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var e models.Event
		var data []byte
		err := rows.Scan(&e.ID, &e.Type, &e.Severity, &e.ModelVersion, &e.Message, &data, &e.TraceID, &e.Timestamp)
		if err != nil {
			return nil, err
		}
		if len(data) > 0 {
			var payload any
			if err := json.Unmarshal(data, &payload); err == nil {
				e.Data = payload
			}
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}
