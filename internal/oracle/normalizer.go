package oracle

import (
	"math/big"
	"time"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/pkg/apperrors"
)

// fixedPointScale is the 1e18 scale of the raw value on the wire.
var fixedPointScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Normalize converts an authenticated payload into a bounded rating after
// enforcing both freshness windows.
//
// The source's own expiry rejects very old data outright; the staleness bound
// additionally rejects old-but-not-yet-expired observations, so a report with
// a far-future expiry can still fail Stale.
//
// The fixed-point value truncates (2.9e18 normalizes to 2, not 3). This is a
// deliberate, load-bearing contract: truncation shifts fractional ratings into
// the next-lower fee tier, and changing it to rounding would change observable
// fee outcomes.
func Normalize(p *model.AuthenticatedPayload, now time.Time, maxStaleness time.Duration) (model.Rating, error) {
	if now.After(p.Expiry) {
		return model.Rating{}, apperrors.Newf(apperrors.ErrExpired,
			"report expired at %s", p.Expiry.Format(time.RFC3339))
	}
	if now.After(p.ValidFrom.Add(maxStaleness)) {
		return model.Rating{}, apperrors.Newf(apperrors.ErrStale,
			"report validFrom %s is older than the %s staleness bound",
			p.ValidFrom.Format(time.RFC3339), maxStaleness)
	}

	if p.Raw == nil || p.Raw.Sign() < 0 {
		return model.Rating{}, apperrors.Newf(apperrors.ErrInvalidRating,
			"raw rating value is negative or missing")
	}

	value := new(big.Int).Quo(p.Raw, fixedPointScale)
	if !value.IsInt64() || value.Int64() < model.MinRating || value.Int64() > model.MaxRating {
		return model.Rating{}, apperrors.Newf(apperrors.ErrInvalidRating,
			"normalized rating %s outside [%d,%d]", value, model.MinRating, model.MaxRating)
	}

	return model.Rating{
		Value:       int(value.Int64()),
		LastUpdated: p.ValidFrom,
	}, nil
}
