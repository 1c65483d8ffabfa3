package service

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEventService(t *testing.T, bufferSize int) *EventService {
	t.Helper()
	svc, err := NewEventService(t.TempDir(), bufferSize, nil)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestEventService_ListNewestFirst(t *testing.T) {
	svc := newTestEventService(t, 16)

	svc.Emit(model.EventRatingChanged, model.RatingChanged{Asset: "USDC", Old: 0, New: 1})
	svc.Emit(model.EventRatingChanged, model.RatingChanged{Asset: "USDT", Old: 0, New: 2})
	svc.Emit(model.EventRiskCheck, model.RiskCheck{PairKey: "USDC/USDT", RatingA: 1, RatingB: 2, Effective: 2})

	events, err := svc.List(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, model.EventRiskCheck, events[0].Type)
	assert.Equal(t, model.EventRatingChanged, events[2].Type)
	assert.NotEmpty(t, events[0].ID)
}

func TestEventService_ListFiltersByType(t *testing.T) {
	svc := newTestEventService(t, 16)

	svc.Emit(model.EventRatingChanged, model.RatingChanged{Asset: "USDC", Old: 0, New: 1})
	svc.Emit(model.EventFeeApplied, model.FeeApplied{PairKey: "USDC/USDT", Effective: 1, FeeBps: 70})
	svc.Emit(model.EventRatingChanged, model.RatingChanged{Asset: "USDC", Old: 1, New: 3})

	events, err := svc.List(context.Background(), string(model.EventRatingChanged), 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, model.EventRatingChanged, ev.Type)
	}
}

func TestEventService_RingBufferOverwritesOldest(t *testing.T) {
	svc := newTestEventService(t, 2)

	svc.Emit(model.EventRatingChanged, model.RatingChanged{Asset: "A", New: 1})
	svc.Emit(model.EventRatingChanged, model.RatingChanged{Asset: "B", New: 2})
	svc.Emit(model.EventRatingChanged, model.RatingChanged{Asset: "C", New: 3})

	events, err := svc.List(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "C", events[0].Data.(model.RatingChanged).Asset)
	assert.Equal(t, "B", events[1].Data.(model.RatingChanged).Asset)
}

func TestEventService_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewEventService(dir, 16, nil)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	svc.Emit(model.EventFeeApplied, model.FeeApplied{PairKey: "USDC/USDT", Effective: 1, FeeBps: 70})
	svc.Emit(model.EventRiskCheck, model.RiskCheck{PairKey: "USDC/USDT", RatingA: 1, RatingB: 1, Effective: 1})

	path := filepath.Join(dir, "events-"+time.Now().UTC().Format("2006-01-02")+".jsonl")

	// The file writer runs on its own goroutine.
	require.Eventually(t, func() bool {
		return countJSONLines(t, path) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func countJSONLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev model.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		n++
	}
	return n
}
