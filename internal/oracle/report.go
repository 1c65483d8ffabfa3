package oracle

import (
	"math/big"
	"time"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// Report wire format: 6 big-endian 32-byte words followed by one or more
// 65-byte ECDSA signatures over keccak256 of the words.
//
//	word 0: source identifier (bytes32)
//	word 1: validFrom  (uint256, unix seconds)
//	word 2: observedAt (uint256, unix seconds)
//	word 3: expiry     (uint256, unix seconds)
//	word 4: raw value  (int256 two's complement, 1e18 fixed point)
//	word 5: status flag (uint256, 0 = OK)
const (
	PayloadSize   = 32 * 6
	SignatureSize = 65
)

var tt256 = new(big.Int).Lsh(big.NewInt(1), 256)

// DecodePayload decodes the fixed-layout payload words. It performs no
// authenticity or freshness checking.
func DecodePayload(payload []byte) (*model.AuthenticatedPayload, error) {
	if len(payload) != PayloadSize {
		return nil, apperrors.Newf(apperrors.ErrVerificationFailed,
			"report payload is %d bytes, want %d", len(payload), PayloadSize)
	}

	raw := new(big.Int).SetBytes(payload[128:160])
	// int256 two's complement: high bit set means negative
	if raw.Bit(255) == 1 {
		raw.Sub(raw, tt256)
	}

	return &model.AuthenticatedPayload{
		SourceID:   common.BytesToHash(payload[0:32]),
		ValidFrom:  wordToTime(payload[32:64]),
		ObservedAt: wordToTime(payload[64:96]),
		Expiry:     wordToTime(payload[96:128]),
		Raw:        raw,
		Status:     new(big.Int).SetBytes(payload[160:192]).Uint64(),
	}, nil
}

// EncodePayload is the inverse of DecodePayload, used by the inspector CLI
// and by tests to craft report blobs.
func EncodePayload(p *model.AuthenticatedPayload) []byte {
	data := make([]byte, PayloadSize)
	copy(data[0:32], p.SourceID.Bytes())
	copy(data[32:64], math.U256Bytes(big.NewInt(p.ValidFrom.Unix())))
	copy(data[64:96], math.U256Bytes(big.NewInt(p.ObservedAt.Unix())))
	copy(data[96:128], math.U256Bytes(big.NewInt(p.Expiry.Unix())))
	copy(data[128:160], math.U256Bytes(new(big.Int).Set(p.Raw)))
	copy(data[160:192], math.U256Bytes(new(big.Int).SetUint64(p.Status)))
	return data
}

// Digest returns the message the source signers commit to.
func Digest(payload []byte) []byte {
	return crypto.Keccak256(payload)
}

func wordToTime(word []byte) time.Time {
	return time.Unix(new(big.Int).SetBytes(word).Int64(), 0).UTC()
}
