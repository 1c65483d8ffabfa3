package handler

import (
	"net/http"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/pkg/apperrors"
	"github.com/GoStableSwap/riskgate/internal/service"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	svc *service.IngestService
}

func NewReportHandler(svc *service.IngestService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// IngestReport accepts a raw signed report blob for an asset.
// POST /v1/reports
func (h *ReportHandler) IngestReport(c *gin.Context) {
	var req model.IngestReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err))
		return
	}

	raw, err := hexutil.Decode(req.Report)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInvalidRequest, "report must be 0x-prefixed hex", err))
		return
	}

	resp, err := h.svc.IngestReport(c.Request.Context(), req.Asset, raw)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// OverrideRating writes a rating directly, skipping verification.
// PUT /v1/ratings/:asset (admin only)
func (h *ReportHandler) OverrideRating(c *gin.Context) {
	asset := c.Param("asset")
	if asset == "" {
		c.Error(apperrors.Newf(apperrors.ErrInvalidRequest, "asset is required"))
		return
	}

	var req model.OverrideRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err))
		return
	}

	resp, err := h.svc.OverrideRating(c.Request.Context(), asset, req.Rating)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
