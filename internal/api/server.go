package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tycoon/internal/config"
	"tycoon/internal/game"
	"tycoon/internal/market"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	game    *game.Service
	limiter *ipLimiter
	mux     *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		game:    gameSvc,
		limiter: newIPLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Get("/catalog", s.handleCatalog)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Post("/games", s.handleNewGame)

		r.Route("/games/{id}", func(r chi.Router) {
			r.Get("/", s.handleGame)
			r.Get("/market", s.handleMarket)
			r.Get("/market/{region}", s.handleMarket)
			r.Post("/buy", s.handleTrade(s.game.Buy))
			r.Post("/sell", s.handleTrade(s.game.Sell))
			r.Post("/travel", s.handleTravel)
			r.Post("/bank/deposit", s.handleAmount(s.game.Deposit))
			r.Post("/bank/withdraw", s.handleAmount(s.game.Withdraw))
			r.Post("/loan/take", s.handleAmount(s.game.TakeLoan))
			r.Post("/loan/repay", s.handleAmount(s.game.RepayLoan))
			r.Post("/build", s.handleBuild)
			r.Post("/staff/hire", s.handleStaff(s.game.Hire))
			r.Post("/staff/fire", s.handleStaff(s.game.Fire))
			r.Post("/retire", s.handleRetire)
			r.Post("/score", s.handleScore)
		})
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Catalog())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	out, err := s.game.Leaderboard(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": out})
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlayerName string `json:"player_name"`
		HomeBase   string `json:"home_base"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.game.NewGame(r.Context(), game.NewGameInput{
		PlayerName: in.PlayerName,
		HomeBase:   in.HomeBase,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	view, err := s.game.Game(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Market(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "region"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTrade(fn func(ctx context.Context, in game.TradeInput) (game.TradeResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out, err := fn(r.Context(), game.TradeInput{
			GameID:         chi.URLParam(r, "id"),
			ProductID:      in.ProductID,
			Quantity:       in.Quantity,
			IdempotencyKey: idempotencyKey(r),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleTravel(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Destination string `json:"destination"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Travel(r.Context(), game.TravelInput{
		GameID:         chi.URLParam(r, "id"),
		Destination:    in.Destination,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAmount(fn func(ctx context.Context, in game.AmountInput) (game.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			AmountCents int64 `json:"amount_cents"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !game.ValidAmount(in.AmountCents) {
			writeDomainError(w, game.ErrInvalidAmount)
			return
		}
		out, err := fn(r.Context(), game.AmountInput{
			GameID:         chi.URLParam(r, "id"),
			Amount:         in.AmountCents,
			IdempotencyKey: idempotencyKey(r),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Facility string `json:"facility"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Build(r.Context(), game.BuildInput{
		GameID:         chi.URLParam(r, "id"),
		Facility:       in.Facility,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStaff(fn func(ctx context.Context, in game.StaffInput) (game.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Role string `json:"role"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out, err := fn(r.Context(), game.StaffInput{
			GameID:         chi.URLParam(r, "id"),
			Role:           in.Role,
			IdempotencyKey: idempotencyKey(r),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleRetire(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Retire(r.Context(), chi.URLParam(r, "id"), idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.SubmitScore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.log.Info("leaderboard entry", "game_id", out.GameID, "net_worth", out.NetWorth, "request_id", middleware.GetReqID(r.Context()))
	writeJSON(w, http.StatusCreated, out)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrDuplicateIdempotency), errors.Is(err, game.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrGameNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrGameOver), errors.Is(err, game.ErrGameInProgress), errors.Is(err, game.ErrScoreSubmitted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrProductLocked), errors.Is(err, game.ErrNoOffice):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds), errors.Is(err, game.ErrInsufficientBank),
		errors.Is(err, game.ErrInsufficientStock), errors.Is(err, game.ErrInsufficientGoods),
		errors.Is(err, game.ErrStorageFull), errors.Is(err, game.ErrLoanLimit), errors.Is(err, game.ErrNoLoan),
		errors.Is(err, game.ErrAlreadyBuilt), errors.Is(err, game.ErrStaffLimit), errors.Is(err, game.ErrNoStaff),
		errors.Is(err, game.ErrSameLocation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, game.ErrInvalidQuantity), errors.Is(err, game.ErrInvalidAmount), errors.Is(err, game.ErrInvalidName),
		errors.Is(err, market.ErrUnknownProduct), errors.Is(err, market.ErrUnknownRegion),
		errors.Is(err, game.ErrUnknownFacility), errors.Is(err, game.ErrUnknownRole):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}
