package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/pkg/apperrors"
	"github.com/redis/go-redis/v9"
)

// RedisRatingRepo stores one hash per asset. Durable enough for deployments
// that run Redis with persistence; Postgres remains the first choice.
type RedisRatingRepo struct {
	client *RedisClient
	prefix string
}

func NewRedisRatingRepo(client *RedisClient) *RedisRatingRepo {
	return &RedisRatingRepo{client: client, prefix: "rating"}
}

func (r *RedisRatingRepo) Set(ctx context.Context, rating model.Rating) (int, error) {
	key := r.makeKey(rating.Asset)

	old := 0
	if val, err := r.client.Client.HGet(ctx, key, "value").Result(); err == nil {
		if parsed, err := strconv.Atoi(val); err == nil {
			old = parsed
		}
	} else if err != redis.Nil {
		return 0, err
	}

	err := r.client.Client.HSet(ctx, key,
		"value", strconv.Itoa(rating.Value),
		"last_updated", strconv.FormatInt(rating.LastUpdated.UTC().Unix(), 10),
	).Err()
	if err != nil {
		return 0, err
	}
	return old, nil
}

func (r *RedisRatingRepo) Get(ctx context.Context, asset string) (model.Rating, error) {
	key := r.makeKey(asset)

	fields, err := r.client.Client.HGetAll(ctx, key).Result()
	if err != nil {
		return model.Rating{}, err
	}
	if len(fields) == 0 {
		return model.Rating{}, apperrors.Newf(apperrors.ErrNotRated,
			"asset %s has no rating on record", asset)
	}

	value, err := strconv.Atoi(fields["value"])
	if err != nil {
		return model.Rating{}, err
	}
	updated, err := strconv.ParseInt(fields["last_updated"], 10, 64)
	if err != nil {
		return model.Rating{}, err
	}

	return model.Rating{
		Asset:       asset,
		Value:       value,
		LastUpdated: time.Unix(updated, 0).UTC(),
	}, nil
}

func (r *RedisRatingRepo) makeKey(asset string) string {
	return r.prefix + ":" + asset
}
