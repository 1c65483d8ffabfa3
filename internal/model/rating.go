package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Rating value bounds. 0 means "unset" and must never be persisted.
const (
	MinRating = 1
	MaxRating = 5
)

// Rating is the normalized risk score for a single asset.
// 1 = minimal risk, 5 = high risk. LastUpdated is the observation's
// validFrom, not the wall-clock time of processing.
type Rating struct {
	Asset       string    `json:"asset"`
	Value       int       `json:"value"`
	LastUpdated time.Time `json:"last_updated"`
}

// AuthenticatedPayload is a decoded report the trust anchor vouches for.
// It only exists between verification and normalization; it is never persisted.
type AuthenticatedPayload struct {
	SourceID   common.Hash
	ValidFrom  time.Time
	ObservedAt time.Time
	Expiry     time.Time
	Raw        *big.Int // 1e18 fixed point, int256 on the wire
	Status     uint64   // 0 = OK, anything else marks the observation unusable
}

// RiskMode is the per-pair state derived from the effective rating.
type RiskMode string

const (
	ModeNormal   RiskMode = "NORMAL"
	ModeElevated RiskMode = "ELEVATED_RISK"
	ModeFrozen   RiskMode = "FROZEN"
)

// PairKey returns the canonical key for an unordered asset pair.
// Both trade directions must resolve to the same pair state, so the two
// identifiers are sorted before joining.
func PairKey(assetA, assetB string) string {
	if assetB < assetA {
		assetA, assetB = assetB, assetA
	}
	return assetA + "/" + assetB
}

// PolicyDecision is what the settlement engine acts on.
type PolicyDecision struct {
	Allow           bool     `json:"allow"`
	Pair            string   `json:"pair"`
	EffectiveRating int      `json:"effective_rating"`
	Mode            RiskMode `json:"mode"`
	FeeBps          int      `json:"fee_bps"`
}
