package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/pkg/apperrors"
	"github.com/jmoiron/sqlx"
)

// PostgresRatingRepo is the durable RatingRepo. Point lookup by asset,
// overwrite-only upsert, survives restarts.
type PostgresRatingRepo struct {
	db *sqlx.DB
}

func NewPostgresRatingRepo(db *sqlx.DB) *PostgresRatingRepo {
	repo := &PostgresRatingRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

func (r *PostgresRatingRepo) Set(ctx context.Context, rating model.Rating) (int, error) {
	// The caller serializes writes; the read-then-upsert pair is not racing
	// anything. 0 means the asset had never been rated.
	var old int
	err := r.db.QueryRowxContext(ctx,
		`SELECT value FROM ratings WHERE asset = $1`, rating.Asset).Scan(&old)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ratings (asset, value, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset)
		DO UPDATE SET value = $2, last_updated = $3
	`, rating.Asset, rating.Value, rating.LastUpdated.UTC())
	if err != nil {
		return 0, err
	}
	return old, nil
}

func (r *PostgresRatingRepo) Get(ctx context.Context, asset string) (model.Rating, error) {
	var value int
	var lastUpdated time.Time
	err := r.db.QueryRowxContext(ctx,
		`SELECT value, last_updated FROM ratings WHERE asset = $1`, asset).
		Scan(&value, &lastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Rating{}, apperrors.Newf(apperrors.ErrNotRated,
				"asset %s has no rating on record", asset)
		}
		return model.Rating{}, err
	}
	return model.Rating{Asset: asset, Value: value, LastUpdated: lastUpdated.UTC()}, nil
}

func (r *PostgresRatingRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ratings (
			asset TEXT PRIMARY KEY,
			value INTEGER NOT NULL,
			last_updated TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}
