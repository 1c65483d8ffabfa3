package service

import (
	"context"
	"sync"

	"github.com/GoStableSwap/riskgate/internal/config"
	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/pkg/apperrors"
	"github.com/GoStableSwap/riskgate/internal/pkg/metrics"
)

// EventSink receives the generated records for off-chain consumption.
// Emission must never block or fail the caller.
type EventSink interface {
	Emit(eventType model.EventType, data any)
}

// PolicyEngine computes the per-trade fee and circuit-breaker decision from
// the two legs' current ratings. It also owns the per-pair risk-mode state
// machine: level-triggered, no timers, no hysteresis — a pair that improves
// returns to a lower mode on the very next evaluation.
//
// A single mutex serializes Evaluate and SetRating so no trade observes a
// half-updated pair of ratings and no rating write lands between the two
// lookups of one evaluation.
type PolicyEngine struct {
	mu      sync.Mutex
	ratings RatingRepo
	events  EventSink

	feeTable          map[int]int
	elevatedThreshold int
	frozenThreshold   int
	circuitBreaker    bool

	pairs map[string]model.RiskMode
}

func NewPolicyEngine(ratings RatingRepo, cfg config.RiskConfig, events EventSink) (*PolicyEngine, error) {
	feeTable, err := cfg.FeeTable()
	if err != nil {
		return nil, err
	}
	return &PolicyEngine{
		ratings:           ratings,
		events:            events,
		feeTable:          feeTable,
		elevatedThreshold: cfg.ElevatedThreshold,
		frozenThreshold:   cfg.FrozenThreshold,
		circuitBreaker:    cfg.CircuitBreaker,
		pairs:             make(map[string]model.RiskMode),
	}, nil
}

// Evaluate decides whether a trade between the two assets may execute and at
// what fee. Failure kinds the caller must treat as "trade blocked": NOT_RATED
// (missing data) and SWAP_BLOCKED (circuit breaker engaged).
func (e *PolicyEngine) Evaluate(ctx context.Context, assetA, assetB string) (*model.PolicyDecision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pair := model.PairKey(assetA, assetB)

	ratingA, errA := e.ratings.Get(ctx, assetA)
	ratingB, errB := e.ratings.Get(ctx, assetB)

	// The worse leg dominates: max, never average, so a high-quality asset
	// cannot mask a degraded one. Unrated legs show up as 0 in the record.
	effective := ratingA.Value
	if ratingB.Value > effective {
		effective = ratingB.Value
	}

	// RiskCheck is the one record emitted on every call, success or failure.
	e.events.Emit(model.EventRiskCheck, model.RiskCheck{
		PairKey:   pair,
		RatingA:   ratingA.Value,
		RatingB:   ratingB.Value,
		Effective: effective,
	})

	if errA != nil {
		metrics.RiskChecks.WithLabelValues("unrated").Inc()
		return nil, errA
	}
	if errB != nil {
		metrics.RiskChecks.WithLabelValues("unrated").Inc()
		return nil, errB
	}

	newMode := e.modeFor(effective)
	metrics.RiskChecks.WithLabelValues(string(newMode)).Inc()

	// Level-triggered transition detection against the last observed mode;
	// a no-op rating update produces no mode-change event.
	if prev := e.pairMode(pair); newMode != prev {
		e.pairs[pair] = newMode
		e.events.Emit(model.EventRiskModeChanged, model.RiskModeChanged{
			PairKey: pair,
			NewMode: newMode,
		})
	}

	// The transition into Frozen is committed and reported above even though
	// the trade itself is refused.
	if newMode == model.ModeFrozen {
		metrics.SwapsBlocked.Inc()
		return nil, apperrors.Newf(apperrors.ErrSwapBlocked,
			"pair %s is frozen at effective rating %d", pair, effective)
	}

	fee := e.feeTable[effective]
	metrics.FeeBps.Observe(float64(fee))
	e.events.Emit(model.EventFeeApplied, model.FeeApplied{
		PairKey:   pair,
		Effective: effective,
		FeeBps:    fee,
	})

	return &model.PolicyDecision{
		Allow:           true,
		Pair:            pair,
		EffectiveRating: effective,
		Mode:            newMode,
		FeeBps:          fee,
	}, nil
}

// SetRating writes a rating through the engine's mutual-exclusion domain so
// ingestion never interleaves with an in-flight evaluation, and emits the
// RatingChanged record. This is the only write path into the rating store.
func (e *PolicyEngine) SetRating(ctx context.Context, rating model.Rating) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	old, err := e.ratings.Set(ctx, rating)
	if err != nil {
		return 0, apperrors.Wrap(err)
	}
	e.events.Emit(model.EventRatingChanged, model.RatingChanged{
		Asset: rating.Asset,
		Old:   old,
		New:   rating.Value,
	})
	return old, nil
}

// Rating reads one asset's current rating.
func (e *PolicyEngine) Rating(ctx context.Context, asset string) (model.Rating, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ratings.Get(ctx, asset)
}

// PairMode reports the pair's current risk mode. Pairs never evaluated are
// Normal.
func (e *PolicyEngine) PairMode(assetA, assetB string) model.RiskMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pairMode(model.PairKey(assetA, assetB))
}

// modeFor maps an effective rating to a mode, most severe threshold first.
// Ordering matters when the configured bands overlap.
func (e *PolicyEngine) modeFor(effective int) model.RiskMode {
	switch {
	case e.circuitBreaker && effective >= e.frozenThreshold:
		return model.ModeFrozen
	case effective >= e.elevatedThreshold:
		return model.ModeElevated
	default:
		return model.ModeNormal
	}
}

func (e *PolicyEngine) pairMode(pair string) model.RiskMode {
	if mode, ok := e.pairs[pair]; ok {
		return mode
	}
	return model.ModeNormal
}
