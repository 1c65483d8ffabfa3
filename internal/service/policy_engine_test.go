package service

import (
	"context"
	"testing"

	"github.com/GoStableSwap/riskgate/internal/config"
	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures emitted events in order for assertions.
type recordingSink struct {
	types []model.EventType
	data  []any
}

func (s *recordingSink) Emit(eventType model.EventType, data any) {
	s.types = append(s.types, eventType)
	s.data = append(s.data, data)
}

func (s *recordingSink) ofType(t model.EventType) []any {
	var out []any
	for i, et := range s.types {
		if et == t {
			out = append(out, s.data[i])
		}
	}
	return out
}

func defaultRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		ElevatedThreshold: 3,
		FrozenThreshold:   5,
		CircuitBreaker:    true,
		FeeBps:            map[string]int{"1": 70, "2": 85, "3": 100, "4": 150, "5": 300},
	}
}

func newTestEngine(t *testing.T, cfg config.RiskConfig) (*PolicyEngine, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	engine, err := NewPolicyEngine(NewMemoryRatingStore(), cfg, sink)
	require.NoError(t, err)
	return engine, sink
}

func setRating(t *testing.T, engine *PolicyEngine, asset string, value int) {
	t.Helper()
	_, err := engine.SetRating(context.Background(), model.Rating{Asset: asset, Value: value})
	require.NoError(t, err)
}

func TestEvaluate_BothHealthy(t *testing.T) {
	engine, sink := newTestEngine(t, defaultRiskConfig())
	setRating(t, engine, "USDC", 1)
	setRating(t, engine, "USDT", 1)

	decision, err := engine.Evaluate(context.Background(), "USDC", "USDT")
	require.NoError(t, err)
	assert.True(t, decision.Allow)
	assert.Equal(t, "USDC/USDT", decision.Pair)
	assert.Equal(t, 1, decision.EffectiveRating)
	assert.Equal(t, model.ModeNormal, decision.Mode)
	assert.Equal(t, 70, decision.FeeBps)

	assert.Len(t, sink.ofType(model.EventRiskCheck), 1)
	assert.Len(t, sink.ofType(model.EventFeeApplied), 1)
	assert.Empty(t, sink.ofType(model.EventRiskModeChanged))
}

func TestEvaluate_WorseLegDominates(t *testing.T) {
	engine, sink := newTestEngine(t, defaultRiskConfig())
	setRating(t, engine, "USDC", 1)
	setRating(t, engine, "FRAX", 3)

	decision, err := engine.Evaluate(context.Background(), "USDC", "FRAX")
	require.NoError(t, err)
	assert.True(t, decision.Allow)
	assert.Equal(t, 3, decision.EffectiveRating)
	assert.Equal(t, model.ModeElevated, decision.Mode)
	assert.Equal(t, 100, decision.FeeBps)

	changes := sink.ofType(model.EventRiskModeChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, model.RiskModeChanged{
		PairKey: "FRAX/USDC",
		NewMode: model.ModeElevated,
	}, changes[0])
}

func TestEvaluate_FrozenBlocksSwap(t *testing.T) {
	engine, sink := newTestEngine(t, defaultRiskConfig())
	setRating(t, engine, "USDC", 1)
	setRating(t, engine, "DEPEG", 5)

	_, err := engine.Evaluate(context.Background(), "USDC", "DEPEG")
	assert.True(t, apperrors.Is(err, apperrors.ErrSwapBlocked), "got %v", err)

	// The transition into Frozen is reported even though the trade fails.
	changes := sink.ofType(model.EventRiskModeChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ModeFrozen, changes[0].(model.RiskModeChanged).NewMode)

	// No fee on a refused trade.
	assert.Empty(t, sink.ofType(model.EventFeeApplied))
}

func TestEvaluate_Escalation(t *testing.T) {
	engine, sink := newTestEngine(t, defaultRiskConfig())
	setRating(t, engine, "USDC", 1)

	ctx := context.Background()
	for _, step := range []struct {
		rating  int
		allowed bool
		mode    model.RiskMode
	}{
		{1, true, model.ModeNormal},
		{3, true, model.ModeElevated},
		{5, false, model.ModeFrozen},
	} {
		setRating(t, engine, "FRAX", step.rating)
		decision, err := engine.Evaluate(ctx, "USDC", "FRAX")
		if step.allowed {
			require.NoError(t, err)
			assert.Equal(t, step.mode, decision.Mode)
		} else {
			assert.True(t, apperrors.Is(err, apperrors.ErrSwapBlocked))
		}
		assert.Equal(t, step.mode, engine.PairMode("USDC", "FRAX"))
	}

	changes := sink.ofType(model.EventRiskModeChanged)
	require.Len(t, changes, 2)
	assert.Equal(t, model.ModeElevated, changes[0].(model.RiskModeChanged).NewMode)
	assert.Equal(t, model.ModeFrozen, changes[1].(model.RiskModeChanged).NewMode)
}

func TestEvaluate_RecoveryWithoutHysteresis(t *testing.T) {
	engine, sink := newTestEngine(t, defaultRiskConfig())
	ctx := context.Background()
	setRating(t, engine, "USDC", 1)
	setRating(t, engine, "FRAX", 5)

	_, err := engine.Evaluate(ctx, "USDC", "FRAX")
	require.Error(t, err)
	assert.Equal(t, model.ModeFrozen, engine.PairMode("USDC", "FRAX"))

	// A good rating unfreezes on the very next evaluation, no cooldown.
	setRating(t, engine, "FRAX", 1)
	decision, err := engine.Evaluate(ctx, "USDC", "FRAX")
	require.NoError(t, err)
	assert.True(t, decision.Allow)
	assert.Equal(t, model.ModeNormal, decision.Mode)

	changes := sink.ofType(model.EventRiskModeChanged)
	require.Len(t, changes, 2)
	assert.Equal(t, model.ModeNormal, changes[1].(model.RiskModeChanged).NewMode)
}

func TestEvaluate_NoModeChangeEventWhenModeHolds(t *testing.T) {
	engine, sink := newTestEngine(t, defaultRiskConfig())
	ctx := context.Background()
	setRating(t, engine, "USDC", 1)
	setRating(t, engine, "USDT", 2)

	for i := 0; i < 3; i++ {
		_, err := engine.Evaluate(ctx, "USDC", "USDT")
		require.NoError(t, err)
	}

	assert.Empty(t, sink.ofType(model.EventRiskModeChanged))
	assert.Len(t, sink.ofType(model.EventRiskCheck), 3)
}

func TestEvaluate_UnratedLegFailsClosed(t *testing.T) {
	engine, sink := newTestEngine(t, defaultRiskConfig())
	setRating(t, engine, "USDC", 1)

	_, err := engine.Evaluate(context.Background(), "USDC", "UNKNOWN")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotRated), "got %v", err)

	// The check is still recorded, with the unrated leg showing as 0.
	checks := sink.ofType(model.EventRiskCheck)
	require.Len(t, checks, 1)
	check := checks[0].(model.RiskCheck)
	assert.Equal(t, 1, check.RatingA)
	assert.Equal(t, 0, check.RatingB)

	assert.Empty(t, sink.ofType(model.EventFeeApplied))
}

func TestEvaluate_CircuitBreakerDisabled(t *testing.T) {
	cfg := defaultRiskConfig()
	cfg.CircuitBreaker = false
	engine, _ := newTestEngine(t, cfg)
	setRating(t, engine, "USDC", 5)
	setRating(t, engine, "USDT", 5)

	// With the breaker off the worst rating still trades, at the top fee tier.
	decision, err := engine.Evaluate(context.Background(), "USDC", "USDT")
	require.NoError(t, err)
	assert.True(t, decision.Allow)
	assert.Equal(t, model.ModeElevated, decision.Mode)
	assert.Equal(t, 300, decision.FeeBps)
}

func TestEvaluate_PairKeyOrderInsensitive(t *testing.T) {
	engine, sink := newTestEngine(t, defaultRiskConfig())
	ctx := context.Background()
	setRating(t, engine, "USDC", 1)
	setRating(t, engine, "FRAX", 3)

	_, err := engine.Evaluate(ctx, "USDC", "FRAX")
	require.NoError(t, err)
	_, err = engine.Evaluate(ctx, "FRAX", "USDC")
	require.NoError(t, err)

	// Both orderings address the same pair, so the mode transition fires once.
	assert.Len(t, sink.ofType(model.EventRiskModeChanged), 1)
	assert.Equal(t, model.ModeElevated, engine.PairMode("FRAX", "USDC"))
}

func TestSetRating_EmitsRatingChanged(t *testing.T) {
	engine, sink := newTestEngine(t, defaultRiskConfig())

	old, err := engine.SetRating(context.Background(), model.Rating{Asset: "USDC", Value: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, old)

	old, err = engine.SetRating(context.Background(), model.Rating{Asset: "USDC", Value: 4})
	require.NoError(t, err)
	assert.Equal(t, 2, old)

	changes := sink.ofType(model.EventRatingChanged)
	require.Len(t, changes, 2)
	assert.Equal(t, model.RatingChanged{Asset: "USDC", Old: 2, New: 4}, changes[1])
}

func TestNewPolicyEngine_RejectsIncompleteFeeTable(t *testing.T) {
	cfg := defaultRiskConfig()
	delete(cfg.FeeBps, "4")

	_, err := NewPolicyEngine(NewMemoryRatingStore(), cfg, &recordingSink{})
	assert.Error(t, err)
}
