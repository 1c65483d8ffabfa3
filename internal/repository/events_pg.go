package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/jmoiron/sqlx"
)

// PostgresEventRepo persists emitted records for the analytics collaborator.
type PostgresEventRepo struct {
	db *sqlx.DB
}

func NewPostgresEventRepo(db *sqlx.DB) *PostgresEventRepo {
	repo := &PostgresEventRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

func (r *PostgresEventRepo) Insert(ctx context.Context, event *model.Event) error {
	if event == nil {
		return nil
	}
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO risk_events (id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, event.ID, string(event.Type), payload, event.Timestamp.UTC())
	return err
}

func (r *PostgresEventRepo) List(ctx context.Context, eventType string, limit int) ([]*model.Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `SELECT id, event_type, payload, created_at FROM risk_events`
	args := []interface{}{}
	if eventType != "" {
		query += ` WHERE event_type = $1`
		args = append(args, eventType)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		var (
			id        string
			evType    string
			payload   []byte
			createdAt time.Time
		)
		if err := rows.Scan(&id, &evType, &payload, &createdAt); err != nil {
			return nil, err
		}
		events = append(events, &model.Event{
			ID:        id,
			Type:      model.EventType(evType),
			Timestamp: createdAt.UTC(),
			Data:      json.RawMessage(payload),
		})
	}
	return events, rows.Err()
}

func (r *PostgresEventRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS risk_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_risk_events_type_time ON risk_events (event_type, created_at DESC)`)
	return nil
}

// Cleanup removes records older than the retention window.
func (r *PostgresEventRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	_, err := r.db.ExecContext(ctx, `DELETE FROM risk_events WHERE created_at < $1`, cutoff)
	return err
}
