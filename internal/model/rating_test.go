package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKey(t *testing.T) {
	assert.Equal(t, "USDC/USDT", PairKey("USDC", "USDT"))
	assert.Equal(t, "USDC/USDT", PairKey("USDT", "USDC"), "order of arguments must not matter")
	assert.Equal(t, "DAI/FRAX", PairKey("FRAX", "DAI"))
	assert.Equal(t, "USDC/USDC", PairKey("USDC", "USDC"))
}
