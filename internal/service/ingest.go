package service

import (
	"context"
	"strings"
	"time"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/oracle"
	"github.com/GoStableSwap/riskgate/internal/pkg/apperrors"
	"github.com/GoStableSwap/riskgate/internal/pkg/logger"
	"github.com/GoStableSwap/riskgate/internal/pkg/metrics"
)

// IngestService runs the verify → normalize → store cycle for incoming
// signed reports, and hosts the manual override path.
type IngestService struct {
	verifier     *oracle.ReportVerifier
	registry     *oracle.SourceRegistry
	engine       *PolicyEngine
	maxStaleness time.Duration
}

func NewIngestService(verifier *oracle.ReportVerifier, registry *oracle.SourceRegistry, engine *PolicyEngine, maxStaleness time.Duration) *IngestService {
	return &IngestService{
		verifier:     verifier,
		registry:     registry,
		engine:       engine,
		maxStaleness: maxStaleness,
	}
}

// IngestReport authenticates and normalizes a raw report blob for the given
// asset, then overwrites the asset's rating. Any failure leaves the rating
// store untouched.
func (s *IngestService) IngestReport(ctx context.Context, asset string, raw []byte) (*model.IngestReportResponse, error) {
	sourceID, err := s.registry.SourceFor(asset)
	if err != nil {
		return nil, s.reject(asset, err)
	}

	payload, err := s.verifier.Verify(raw, sourceID)
	if err != nil {
		return nil, s.reject(asset, err)
	}

	rating, err := oracle.Normalize(payload, time.Now().UTC(), s.maxStaleness)
	if err != nil {
		return nil, s.reject(asset, err)
	}
	rating.Asset = asset

	old, err := s.engine.SetRating(ctx, rating)
	if err != nil {
		return nil, s.reject(asset, err)
	}

	metrics.ReportsTotal.WithLabelValues("accepted").Inc()
	logger.Info("rating updated from verified report",
		"asset", asset, "old", old, "new", rating.Value)

	return &model.IngestReportResponse{
		Asset:       asset,
		OldRating:   old,
		NewRating:   rating.Value,
		LastUpdated: rating.LastUpdated,
	}, nil
}

// OverrideRating bypasses the oracle trust layer entirely and writes directly
// to the rating store. Policy consumers cannot distinguish an override from a
// verified rating — a documented weakening for environments without a live
// feed, which is why this lives behind its own admin-gated entry point.
func (s *IngestService) OverrideRating(ctx context.Context, asset string, value int) (*model.IngestReportResponse, error) {
	if value < model.MinRating || value > model.MaxRating {
		return nil, apperrors.Newf(apperrors.ErrInvalidRating,
			"override rating %d outside [%d,%d]", value, model.MinRating, model.MaxRating)
	}

	now := time.Now().UTC()
	old, err := s.engine.SetRating(ctx, model.Rating{
		Asset:       asset,
		Value:       value,
		LastUpdated: now,
	})
	if err != nil {
		return nil, err
	}

	metrics.RatingOverrides.Inc()
	logger.Warn("rating set by manual override, bypassing verification",
		"asset", asset, "old", old, "new", value)

	return &model.IngestReportResponse{
		Asset:       asset,
		OldRating:   old,
		NewRating:   value,
		LastUpdated: now,
	}, nil
}

func (s *IngestService) reject(asset string, err error) error {
	appErr := apperrors.Wrap(err)
	reason := strings.ToLower(string(appErr.Type))
	metrics.ReportsTotal.WithLabelValues("rejected").Inc()
	metrics.ReportRejects.WithLabelValues(reason).Inc()
	logger.Warn("report rejected", "asset", asset, "reason", reason, "error", appErr.Error())
	return appErr
}
