package service

import (
	"context"
	"sync"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/pkg/apperrors"
)

// RatingRepo is the durable per-asset rating state. Set is the only mutator:
// it overwrites unconditionally and returns the previous value (0 if the asset
// had never been rated). Get fails with NOT_RATED for unknown assets — an
// unrated asset must never default to a "safe" rating.
type RatingRepo interface {
	Set(ctx context.Context, rating model.Rating) (old int, err error)
	Get(ctx context.Context, asset string) (model.Rating, error)
}

// MemoryRatingStore keeps ratings in process memory. Used when neither
// Postgres nor Redis is configured; state does not survive restarts.
type MemoryRatingStore struct {
	mu      sync.RWMutex
	ratings map[string]model.Rating
}

func NewMemoryRatingStore() *MemoryRatingStore {
	return &MemoryRatingStore{
		ratings: make(map[string]model.Rating),
	}
}

func (s *MemoryRatingStore) Set(ctx context.Context, rating model.Rating) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.ratings[rating.Asset].Value
	s.ratings[rating.Asset] = rating
	return old, nil
}

func (s *MemoryRatingStore) Get(ctx context.Context, asset string) (model.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rating, ok := s.ratings[asset]
	if !ok {
		return model.Rating{}, apperrors.Newf(apperrors.ErrNotRated, "asset %s has no rating on record", asset)
	}
	return rating, nil
}
