package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GoStableSwap/riskgate/internal/config"
	"github.com/GoStableSwap/riskgate/internal/middleware"
	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSink struct{}

func (nopSink) Emit(model.EventType, any) {}

func newPolicyRouter(t *testing.T) (*gin.Engine, *service.PolicyEngine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine, err := service.NewPolicyEngine(service.NewMemoryRatingStore(), config.RiskConfig{
		ElevatedThreshold: 3,
		FrozenThreshold:   5,
		CircuitBreaker:    true,
		FeeBps:            map[string]int{"1": 70, "2": 85, "3": 100, "4": 150, "5": 300},
	}, nopSink{})
	require.NoError(t, err)

	h := NewPolicyHandler(engine)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.POST("/v1/swaps/check", h.CheckSwap)
	r.GET("/v1/ratings/:asset", h.GetRating)
	r.GET("/v1/pairs/:a/:b", h.GetPairMode)
	return r, engine
}

func mustRate(t *testing.T, engine *service.PolicyEngine, asset string, value int) {
	t.Helper()
	_, err := engine.SetRating(context.Background(), model.Rating{Asset: asset, Value: value})
	require.NoError(t, err)
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func putJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getPath(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestCheckSwap_Allowed(t *testing.T) {
	r, engine := newPolicyRouter(t)
	mustRate(t, engine, "USDC", 1)
	mustRate(t, engine, "USDT", 2)

	w := postJSON(r, "/v1/swaps/check", model.SwapCheckRequest{AssetIn: "USDC", AssetOut: "USDT"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.SwapCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Allow)
	assert.Equal(t, "USDC/USDT", resp.Pair)
	assert.Equal(t, 2, resp.EffectiveRating)
	assert.Equal(t, model.ModeNormal, resp.Mode)
	assert.Equal(t, 85, resp.FeeBps)
	assert.Empty(t, resp.FeeAmount)
}

func TestCheckSwap_FeeAmount(t *testing.T) {
	r, engine := newPolicyRouter(t)
	mustRate(t, engine, "USDC", 1)
	mustRate(t, engine, "USDT", 1)

	w := postJSON(r, "/v1/swaps/check", model.SwapCheckRequest{
		AssetIn:  "USDC",
		AssetOut: "USDT",
		Amount:   "10000",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.SwapCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 70, resp.FeeBps)
	assert.Equal(t, "70", resp.FeeAmount)
}

func TestCheckSwap_Blocked(t *testing.T) {
	r, engine := newPolicyRouter(t)
	mustRate(t, engine, "USDC", 1)
	mustRate(t, engine, "DEPEG", 5)

	w := postJSON(r, "/v1/swaps/check", model.SwapCheckRequest{AssetIn: "USDC", AssetOut: "DEPEG"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SWAP_BLOCKED", errorCode(t, w))
}

func TestCheckSwap_UnratedLeg(t *testing.T) {
	r, engine := newPolicyRouter(t)
	mustRate(t, engine, "USDC", 1)

	w := postJSON(r, "/v1/swaps/check", model.SwapCheckRequest{AssetIn: "USDC", AssetOut: "UNKNOWN"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_RATED", errorCode(t, w))
}

func TestCheckSwap_BadRequests(t *testing.T) {
	r, engine := newPolicyRouter(t)
	mustRate(t, engine, "USDC", 1)
	mustRate(t, engine, "USDT", 1)

	cases := []struct {
		name string
		body any
	}{
		{"missing asset_out", model.SwapCheckRequest{AssetIn: "USDC"}},
		{"same asset both legs", model.SwapCheckRequest{AssetIn: "USDC", AssetOut: "USDC"}},
		{"bad amount", model.SwapCheckRequest{AssetIn: "USDC", AssetOut: "USDT", Amount: "lots"}},
		{"negative amount", model.SwapCheckRequest{AssetIn: "USDC", AssetOut: "USDT", Amount: "-5"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(r, "/v1/swaps/check", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))
		})
	}
}

func TestGetRating(t *testing.T) {
	r, engine := newPolicyRouter(t)
	mustRate(t, engine, "USDC", 2)

	w := getPath(r, "/v1/ratings/USDC")
	require.Equal(t, http.StatusOK, w.Code)

	var rating model.Rating
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rating))
	assert.Equal(t, 2, rating.Value)

	w = getPath(r, "/v1/ratings/UNKNOWN")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_RATED", errorCode(t, w))
}

func TestGetPairMode(t *testing.T) {
	r, engine := newPolicyRouter(t)
	mustRate(t, engine, "USDC", 1)
	mustRate(t, engine, "FRAX", 4)

	// Never-evaluated pairs report Normal.
	w := getPath(r, "/v1/pairs/USDC/FRAX")
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.PairModeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "FRAX/USDC", resp.Pair)
	assert.Equal(t, model.ModeNormal, resp.Mode)

	postJSON(r, "/v1/swaps/check", model.SwapCheckRequest{AssetIn: "USDC", AssetOut: "FRAX"})

	// Asset order in the URL does not matter.
	w = getPath(r, "/v1/pairs/FRAX/USDC")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.ModeElevated, resp.Mode)
}
