package handler

import (
	"net/http"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/pkg/apperrors"
	"github.com/GoStableSwap/riskgate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PolicyHandler struct {
	engine *service.PolicyEngine
}

func NewPolicyHandler(engine *service.PolicyEngine) *PolicyHandler {
	return &PolicyHandler{engine: engine}
}

// CheckSwap is the trade-time query the settlement engine calls before each
// trade. Any error response means the trade must not execute.
// POST /v1/swaps/check
func (h *PolicyHandler) CheckSwap(c *gin.Context) {
	var req model.SwapCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err))
		return
	}
	if req.AssetIn == req.AssetOut {
		c.Error(apperrors.Newf(apperrors.ErrInvalidRequest, "asset_in and asset_out are the same asset"))
		return
	}

	decision, err := h.engine.Evaluate(c.Request.Context(), req.AssetIn, req.AssetOut)
	if err != nil {
		c.Error(err)
		return
	}

	resp := model.SwapCheckResponse{
		Allow:           decision.Allow,
		Pair:            decision.Pair,
		EffectiveRating: decision.EffectiveRating,
		Mode:            decision.Mode,
		FeeBps:          decision.FeeBps,
	}

	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || amount.IsNegative() {
			c.Error(apperrors.Newf(apperrors.ErrInvalidRequest, "amount %q is not a valid decimal", req.Amount))
			return
		}
		fee := amount.Mul(decimal.NewFromInt(int64(decision.FeeBps))).Div(decimal.NewFromInt(10000))
		resp.FeeAmount = fee.String()
	}

	c.JSON(http.StatusOK, resp)
}

// GetRating returns an asset's current rating.
// GET /v1/ratings/:asset
func (h *PolicyHandler) GetRating(c *gin.Context) {
	asset := c.Param("asset")
	if asset == "" {
		c.Error(apperrors.Newf(apperrors.ErrInvalidRequest, "asset is required"))
		return
	}

	rating, err := h.engine.Rating(c.Request.Context(), asset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, rating)
}

// GetPairMode reports the current risk mode for a pair. Pairs that have
// never been evaluated are Normal.
// GET /v1/pairs/:a/:b
func (h *PolicyHandler) GetPairMode(c *gin.Context) {
	assetA, assetB := c.Param("a"), c.Param("b")
	if assetA == "" || assetB == "" {
		c.Error(apperrors.Newf(apperrors.ErrInvalidRequest, "both pair assets are required"))
		return
	}

	c.JSON(http.StatusOK, model.PairModeResponse{
		Pair: model.PairKey(assetA, assetB),
		Mode: h.engine.PairMode(assetA, assetB),
	})
}
