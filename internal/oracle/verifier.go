package oracle

import (
	"fmt"

	"github.com/GoStableSwap/riskgate/internal/config"
	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TrustAnchor is the authenticity primitive the verifier delegates to.
// Either it returns a decoded payload it vouches for, or it fails with
// VERIFICATION_FAILED. Implementations must be safe for concurrent use.
type TrustAnchor interface {
	Authenticate(raw []byte) (*model.AuthenticatedPayload, error)
}

type signerSet struct {
	addresses map[common.Address]bool
	threshold int
}

// ECDSAAnchor authenticates reports via threshold ECDSA: every attached
// signature must recover to a distinct address in the source's registered
// signer set, and at least the source's threshold count must be present.
type ECDSAAnchor struct {
	sets map[common.Hash]signerSet
}

func NewECDSAAnchor(sources []config.SourceConfig) (*ECDSAAnchor, error) {
	sets := make(map[common.Hash]signerSet, len(sources))
	for _, src := range sources {
		id, err := parseSourceID(src.SourceID)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Asset, err)
		}
		addrs := make(map[common.Address]bool, len(src.Signers))
		for _, s := range src.Signers {
			if !common.IsHexAddress(s) {
				return nil, fmt.Errorf("source %s: invalid signer address %q", src.Asset, s)
			}
			addrs[common.HexToAddress(s)] = true
		}
		sets[id] = signerSet{addresses: addrs, threshold: src.Threshold}
	}
	return &ECDSAAnchor{sets: sets}, nil
}

func (a *ECDSAAnchor) Authenticate(raw []byte) (*model.AuthenticatedPayload, error) {
	if len(raw) < PayloadSize+SignatureSize || (len(raw)-PayloadSize)%SignatureSize != 0 {
		return nil, apperrors.Newf(apperrors.ErrVerificationFailed,
			"malformed report blob of %d bytes", len(raw))
	}

	payload := raw[:PayloadSize]
	p, err := DecodePayload(payload)
	if err != nil {
		return nil, err
	}

	set, ok := a.sets[p.SourceID]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrVerificationFailed,
			"unknown report source %s", p.SourceID.Hex())
	}

	digest := Digest(payload)
	seen := make(map[common.Address]bool)
	for off := PayloadSize; off < len(raw); off += SignatureSize {
		sig := make([]byte, SignatureSize)
		copy(sig, raw[off:off+SignatureSize])
		// crypto.SigToPub wants recovery id 0/1, wire carries 27/28
		if sig[64] >= 27 {
			sig[64] -= 27
		}
		pub, err := crypto.SigToPub(digest, sig)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrVerificationFailed,
				"signature recovery failed", err)
		}
		addr := crypto.PubkeyToAddress(*pub)
		if !set.addresses[addr] {
			return nil, apperrors.Newf(apperrors.ErrVerificationFailed,
				"signer %s not in source signer set", addr.Hex())
		}
		if seen[addr] {
			return nil, apperrors.Newf(apperrors.ErrVerificationFailed,
				"duplicate signature from %s", addr.Hex())
		}
		seen[addr] = true
	}
	if len(seen) < set.threshold {
		return nil, apperrors.Newf(apperrors.ErrVerificationFailed,
			"%d valid signatures, threshold is %d", len(seen), set.threshold)
	}

	if p.Status != 0 {
		return nil, apperrors.Newf(apperrors.ErrVerificationFailed,
			"source flagged observation unusable (status %d)", p.Status)
	}

	return p, nil
}

// ReportVerifier is the front door of the oracle trust layer. Authenticity
// is delegated to the anchor; the verifier's own job is binding the report
// to the source the caller expects, so a report for one asset can never be
// replayed against another.
type ReportVerifier struct {
	anchor TrustAnchor
}

func NewReportVerifier(anchor TrustAnchor) *ReportVerifier {
	return &ReportVerifier{anchor: anchor}
}

// Verify authenticates raw report bytes and checks they belong to the
// expected source. Pure: no side effects, identical results for identical
// input.
func (v *ReportVerifier) Verify(raw []byte, expectedSourceID common.Hash) (*model.AuthenticatedPayload, error) {
	p, err := v.anchor.Authenticate(raw)
	if err != nil {
		return nil, err
	}
	if p.SourceID != expectedSourceID {
		return nil, apperrors.Newf(apperrors.ErrInvalidSource,
			"report source %s does not match expected %s",
			p.SourceID.Hex(), expectedSourceID.Hex())
	}
	return p, nil
}

// SourceRegistry resolves which source feed each asset's reports must come
// from.
type SourceRegistry struct {
	byAsset map[string]common.Hash
}

func NewSourceRegistry(sources []config.SourceConfig) (*SourceRegistry, error) {
	byAsset := make(map[string]common.Hash, len(sources))
	for _, src := range sources {
		id, err := parseSourceID(src.SourceID)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Asset, err)
		}
		byAsset[src.Asset] = id
	}
	return &SourceRegistry{byAsset: byAsset}, nil
}

// SourceFor returns the configured source for the asset. Assets without a
// configured feed cannot be rated through the verified path.
func (r *SourceRegistry) SourceFor(asset string) (common.Hash, error) {
	id, ok := r.byAsset[asset]
	if !ok {
		return common.Hash{}, apperrors.Newf(apperrors.ErrInvalidSource,
			"no oracle source configured for asset %s", asset)
	}
	return id, nil
}

func parseSourceID(s string) (common.Hash, error) {
	b := common.FromHex(s)
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("source id %q is not 32 bytes", s)
	}
	return common.BytesToHash(b), nil
}
