package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"tycoon/internal/config"
	"tycoon/internal/game"
	"tycoon/internal/store"
)

func newTestServer(t *testing.T, limit float64, burst int) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules := game.DefaultRules()
	rules.CashLossChance = 0
	rules.CargoLossChance = 0
	svc := game.NewService(store.NewMemory(), rules, logger)
	return New(config.APIConfig{RateLimit: limit, RateBurst: burst}, logger, svc).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthAndCatalog(t *testing.T) {
	h := newTestServer(t, 100, 100)
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cat := decode[game.Catalog](t, rec)
	require.Len(t, cat.Products, 16)
	require.Len(t, cat.Locations, 7)
	require.Len(t, cat.Facilities, 3)
}

func TestGamePlayOverHTTP(t *testing.T) {
	h := newTestServer(t, 100, 100)

	rec := do(t, h, http.MethodPost, "/v1/games", map[string]any{"player_name": "Ada", "home_base": "europe"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[game.View](t, rec)
	base := "/v1/games/" + view.ID

	rec = do(t, h, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, base+"/market", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[game.MarketView](t, rec)
	require.NotEmpty(t, board.Quotes)

	rec = do(t, h, http.MethodGet, base+"/market/asia", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/buy", map[string]any{"product_id": "wheat", "quantity": 2}, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodPost, base+"/buy", map[string]any{"product_id": "wheat", "quantity": 2}, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/buy", map[string]any{"product_id": "diamonds", "quantity": 1})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/sell", map[string]any{"product_id": "wheat", "quantity": 9})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/bank/deposit", map[string]any{"amount_cents": 10000})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(10000), decode[game.View](t, rec).Bank)

	rec = do(t, h, http.MethodPost, base+"/staff/hire", map[string]any{"role": "wizard"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/travel", map[string]any{"destination": "africa"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	trip := decode[game.TravelResult](t, rec)
	require.Equal(t, 2, trip.Day)

	rec = do(t, h, http.MethodPost, base+"/score", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/retire", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, base+"/score", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/leaderboard?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board2 := decode[struct {
		Rows []game.LeaderboardRow `json:"rows"`
	}](t, rec)
	require.Len(t, board2.Rows, 1)
	require.Equal(t, view.ID, board2.Rows[0].GameID)
}

func TestBadRequests(t *testing.T) {
	h := newTestServer(t, 100, 100)

	rec := do(t, h, http.MethodPost, "/v1/games", map[string]any{"player_name": "Ada", "home_base": "europe", "extra": true})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/games", map[string]any{"player_name": "Ada", "home_base": "atlantis"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/games", map[string]any{"player_name": "Ada", "home_base": "europe", "seed": 7})
	require.Equal(t, http.StatusBadRequest, rec.Code, "clients cannot pick the market seed")

	rec = do(t, h, http.MethodGet, "/v1/games/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, decode[map[string]string](t, rec)["error"], "not found")

	rec = do(t, h, http.MethodGet, "/v1/leaderboard?limit=abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHugeAmountsRejected(t *testing.T) {
	h := newTestServer(t, 100, 100)

	rec := do(t, h, http.MethodPost, "/v1/games", map[string]any{"player_name": "Ada", "home_base": "europe"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	base := "/v1/games/" + decode[game.View](t, rec).ID

	for _, amount := range []int64{math.MaxInt64, math.MaxInt64 - 1_000_000, game.MaxAmount + 1, -1} {
		rec = do(t, h, http.MethodPost, base+"/loan/take", map[string]any{"amount_cents": amount})
		require.Equal(t, http.StatusBadRequest, rec.Code, "amount %d", amount)
	}

	rec = do(t, h, http.MethodPost, base+"/loan/take", map[string]any{"amount_cents": game.MaxAmount})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[game.View](t, rec)
	require.Zero(t, view.Loan)
	require.Equal(t, game.DefaultStartingCash, view.Cash)
}

func TestRateLimitPerIP(t *testing.T) {
	h := newTestServer(t, 0.001, 2)
	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/v1/catalog", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/v1/catalog", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
