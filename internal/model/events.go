package model

import "time"

// EventType tags the records consumed by the off-chain analytics collaborator.
type EventType string

const (
	EventRatingChanged   EventType = "rating_changed"
	EventRiskModeChanged EventType = "risk_mode_changed"
	EventRiskCheck       EventType = "risk_check"
	EventFeeApplied      EventType = "fee_applied"
)

// Event is the envelope written to every sink (file, DB, Redis, websocket).
// Data holds one of the payload structs below; field order inside each payload
// is fixed because downstream indexers rely on it.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// RatingChanged is emitted on every successful rating write, verified or
// manual. Old is 0 when the asset was rated for the first time.
type RatingChanged struct {
	Asset string `json:"asset"`
	Old   int    `json:"old"`
	New   int    `json:"new"`
}

// RiskModeChanged is emitted when a pair's computed mode differs from the
// previously stored one.
type RiskModeChanged struct {
	PairKey string   `json:"pair_key"`
	NewMode RiskMode `json:"new_mode"`
}

// RiskCheck is emitted on every evaluation, success or failure.
// Unrated legs are recorded as 0.
type RiskCheck struct {
	PairKey   string `json:"pair_key"`
	RatingA   int    `json:"rating_a"`
	RatingB   int    `json:"rating_b"`
	Effective int    `json:"effective"`
}

// FeeApplied is emitted when an evaluation allows the trade.
type FeeApplied struct {
	PairKey   string `json:"pair_key"`
	Effective int    `json:"effective"`
	FeeBps    int    `json:"fee_bps"`
}
