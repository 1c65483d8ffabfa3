package model

import "time"

// IngestReportRequest carries a raw signed report and the asset it claims to
// rate. Report is the 0x-prefixed hex encoding of the blob as fetched from
// the feed.
type IngestReportRequest struct {
	Asset  string `json:"asset" binding:"required"`
	Report string `json:"report" binding:"required"`
}

type IngestReportResponse struct {
	Asset       string    `json:"asset"`
	OldRating   int       `json:"old_rating"`
	NewRating   int       `json:"new_rating"`
	LastUpdated time.Time `json:"last_updated"`
}

// SwapCheckRequest is the trade-time query. Amount is the optional trade
// notional as a decimal string; when present the response includes the fee
// amount in addition to the fee tier.
type SwapCheckRequest struct {
	AssetIn  string `json:"asset_in" binding:"required"`
	AssetOut string `json:"asset_out" binding:"required"`
	Amount   string `json:"amount"`
}

type SwapCheckResponse struct {
	Allow           bool     `json:"allow"`
	Pair            string   `json:"pair"`
	EffectiveRating int      `json:"effective_rating"`
	Mode            RiskMode `json:"mode"`
	FeeBps          int      `json:"fee_bps"`
	FeeAmount       string   `json:"fee_amount,omitempty"`
}

// OverrideRatingRequest is the administrative path that bypasses the oracle
// trust layer entirely. Non-production use only.
type OverrideRatingRequest struct {
	Rating int `json:"rating" binding:"required"`
}

type PairModeResponse struct {
	Pair string   `json:"pair"`
	Mode RiskMode `json:"mode"`
}
