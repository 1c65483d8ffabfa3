package repository

import (
	"context"
	"encoding/json"

	"github.com/GoStableSwap/riskgate/internal/model"
)

// RedisEventRepo keeps the most recent records in a capped list for cheap
// "what just happened" queries without a database round trip.
type RedisEventRepo struct {
	client  *RedisClient
	listKey string
	listMax int
}

func NewRedisEventRepo(client *RedisClient, listKey string, listMax int) *RedisEventRepo {
	if listKey == "" {
		listKey = "risk_events"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisEventRepo{
		client:  client,
		listKey: listKey,
		listMax: listMax,
	}
}

func (r *RedisEventRepo) Insert(ctx context.Context, event *model.Event) error {
	if event == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := r.client.Client.LPush(ctx, r.listKey, payload).Err(); err != nil {
		return err
	}
	_ = r.client.Client.LTrim(ctx, r.listKey, 0, int64(r.listMax-1)).Err()
	return nil
}

func (r *RedisEventRepo) List(ctx context.Context, eventType string, limit int) ([]*model.Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	// Over-fetch when filtering so a busy type doesn't starve the result.
	fetch := limit
	if eventType != "" {
		fetch = limit * 5
	}
	if fetch > r.listMax {
		fetch = r.listMax
	}

	raw, err := r.client.Client.LRange(ctx, r.listKey, 0, int64(fetch-1)).Result()
	if err != nil {
		return nil, err
	}

	events := make([]*model.Event, 0, limit)
	for _, item := range raw {
		var event model.Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			continue
		}
		if eventType != "" && string(event.Type) != eventType {
			continue
		}
		events = append(events, &event)
		if len(events) >= limit {
			break
		}
	}
	return events, nil
}
