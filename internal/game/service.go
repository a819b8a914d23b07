package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tycoon/internal/market"
	"tycoon/internal/store"
)

// Service plays games on behalf of clients. The stored save is the only source of truth:
// every action is load, apply, save with optimistic versioning.
type Service struct {
	store store.Store
	rules Rules
	log   *slog.Logger
	mu    sync.Mutex
	rand  *mathrand.Rand
	now   func() time.Time
}

func NewService(st store.Store, rules Rules, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: st,
		rules: rules.Normalize(),
		log:   logger,
		rand:  mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Rules() Rules { return s.rules }

type Catalog struct {
	Products   []market.Product  `json:"products"`
	Locations  []market.Location `json:"locations"`
	Events     []market.EventDef `json:"events"`
	Facilities []FacilityOption  `json:"facilities"`
	Staff      []StaffOption     `json:"staff"`
	Rules      Rules             `json:"rules"`
}

func (s *Service) Catalog() Catalog {
	return Catalog{
		Products:   market.Catalog(),
		Locations:  market.Locations(),
		Events:     market.Events(),
		Facilities: FacilityOptions(),
		Staff:      StaffOptions(),
		Rules:      s.rules,
	}
}

type MarketView struct {
	GameID string         `json:"game_id"`
	Region market.Region  `json:"region"`
	Name   string         `json:"name"`
	Day    int            `json:"day"`
	Remote bool           `json:"remote"`
	Quotes []market.Quote `json:"quotes"`
}

func (s *Service) NewGame(ctx context.Context, in NewGameInput) (View, error) {
	seed := in.Seed
	if seed == 0 {
		seed = s.nextInt63()
	}
	g, err := New(s.rules, uuid.NewString(), seed, in.PlayerName, in.HomeBase)
	if err != nil {
		return View{}, err
	}
	g.CreatedAt = s.now()
	g.UpdatedAt = g.CreatedAt
	blob, err := Encode(g)
	if err != nil {
		return View{}, err
	}
	rec := store.GameRecord{ID: g.ID, PlayerName: g.PlayerName, Status: string(g.Status), Blob: blob, CreatedAt: g.CreatedAt}
	if err := s.store.CreateGame(ctx, rec); err != nil {
		return View{}, fmt.Errorf("create game: %w", err)
	}
	s.log.Info("game created", "game_id", g.ID, "player", g.PlayerName, "home_base", g.HomeBase)
	return g.View(), nil
}

func (s *Service) Game(ctx context.Context, gameID string) (View, error) {
	g, _, err := s.load(ctx, gameID)
	if err != nil {
		return View{}, err
	}
	return g.View(), nil
}

// Market quotes the current location, or a remote region where the player runs an office.
func (s *Service) Market(ctx context.Context, gameID, region string) (MarketView, error) {
	g, _, err := s.load(ctx, gameID)
	if err != nil {
		return MarketView{}, err
	}
	target := g.Location
	if strings.TrimSpace(region) != "" {
		if target, err = market.ParseRegion(region); err != nil {
			return MarketView{}, err
		}
	}
	remote := target != g.Location
	if remote && !g.HasFacility(Office, target) {
		return MarketView{}, fmt.Errorf("%w: %s", ErrNoOffice, regionName(target))
	}
	quotes, err := g.Board(target)
	if err != nil {
		return MarketView{}, err
	}
	return MarketView{GameID: g.ID, Region: target, Name: regionName(target), Day: g.Day, Remote: remote, Quotes: quotes}, nil
}

func (s *Service) Buy(ctx context.Context, in TradeInput) (TradeResult, error) {
	var out TradeResult
	_, err := s.mutate(ctx, in.GameID, in.IdempotencyKey, "buy", func(g *State, _ *mathrand.Rand) error {
		var err error
		out, err = g.Buy(strings.ToLower(strings.TrimSpace(in.ProductID)), in.Quantity)
		return err
	})
	return out, err
}

func (s *Service) Sell(ctx context.Context, in TradeInput) (TradeResult, error) {
	var out TradeResult
	_, err := s.mutate(ctx, in.GameID, in.IdempotencyKey, "sell", func(g *State, _ *mathrand.Rand) error {
		var err error
		out, err = g.Sell(strings.ToLower(strings.TrimSpace(in.ProductID)), in.Quantity)
		return err
	})
	return out, err
}

func (s *Service) Travel(ctx context.Context, in TravelInput) (TravelResult, error) {
	var out TravelResult
	g, err := s.mutate(ctx, in.GameID, in.IdempotencyKey, "travel", func(g *State, rng *mathrand.Rand) error {
		var err error
		out, err = g.Travel(in.Destination, rng)
		return err
	})
	if err == nil {
		s.log.Info("travel", "game_id", g.ID, "to", out.To, "day", out.Day, "incidents", len(out.Incidents), "finished", out.Finished)
	}
	return out, err
}

func (s *Service) Deposit(ctx context.Context, in AmountInput) (View, error) {
	return s.viewAction(ctx, in.GameID, in.IdempotencyKey, "deposit", func(g *State) error { return g.Deposit(in.Amount) })
}

func (s *Service) Withdraw(ctx context.Context, in AmountInput) (View, error) {
	return s.viewAction(ctx, in.GameID, in.IdempotencyKey, "withdraw", func(g *State) error { return g.Withdraw(in.Amount) })
}

func (s *Service) TakeLoan(ctx context.Context, in AmountInput) (View, error) {
	return s.viewAction(ctx, in.GameID, in.IdempotencyKey, "loan_take", func(g *State) error { return g.TakeLoan(in.Amount) })
}

func (s *Service) RepayLoan(ctx context.Context, in AmountInput) (View, error) {
	return s.viewAction(ctx, in.GameID, in.IdempotencyKey, "loan_repay", func(g *State) error {
		_, err := g.RepayLoan(in.Amount)
		return err
	})
}

func (s *Service) Build(ctx context.Context, in BuildInput) (View, error) {
	return s.viewAction(ctx, in.GameID, in.IdempotencyKey, "build", func(g *State) error {
		_, err := g.Build(in.Facility)
		return err
	})
}

func (s *Service) Hire(ctx context.Context, in StaffInput) (View, error) {
	return s.viewAction(ctx, in.GameID, in.IdempotencyKey, "hire", func(g *State) error {
		_, err := g.Hire(in.Role)
		return err
	})
}

func (s *Service) Fire(ctx context.Context, in StaffInput) (View, error) {
	return s.viewAction(ctx, in.GameID, in.IdempotencyKey, "fire", func(g *State) error {
		_, err := g.Fire(in.Role)
		return err
	})
}

func (s *Service) Retire(ctx context.Context, gameID, idem string) (View, error) {
	return s.viewAction(ctx, gameID, idem, "retire", func(g *State) error { return g.Retire() })
}

// SubmitScore records the final net worth of a finished game. The score is computed here
// from the stored save; clients never send it.
func (s *Service) SubmitScore(ctx context.Context, gameID string) (Score, error) {
	g, _, err := s.load(ctx, gameID)
	if err != nil {
		return Score{}, err
	}
	if g.Status != StatusFinished {
		return Score{}, ErrGameInProgress
	}
	if g.ScoreSubmitted {
		return Score{}, ErrScoreSubmitted
	}
	score := Score{
		GameID:      g.ID,
		PlayerName:  g.PlayerName,
		HomeBase:    g.HomeBase,
		NetWorth:    g.NetWorth(),
		Day:         g.Day,
		SubmittedAt: s.now(),
	}
	err = s.store.SubmitScore(ctx, store.Score{
		GameID:      score.GameID,
		PlayerName:  score.PlayerName,
		HomeBase:    string(score.HomeBase),
		NetWorth:    score.NetWorth,
		Day:         score.Day,
		SubmittedAt: score.SubmittedAt,
	})
	if errors.Is(err, store.ErrScoreExists) {
		return Score{}, ErrScoreSubmitted
	}
	if err != nil {
		return Score{}, err
	}
	if _, err := s.mutate(ctx, gameID, "", "score", func(g *State, _ *mathrand.Rand) error {
		g.ScoreSubmitted = true
		return nil
	}); err != nil {
		s.log.Warn("mark score submitted failed", "game_id", gameID, "err", err)
	}
	s.log.Info("score submitted", "game_id", gameID, "player", score.PlayerName, "net_worth", score.NetWorth)
	return score, nil
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	rows, err := s.store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardRow, 0, len(rows))
	for i, r := range rows {
		out = append(out, LeaderboardRow{
			Rank: int64(i + 1),
			Score: Score{
				GameID:      r.GameID,
				PlayerName:  r.PlayerName,
				HomeBase:    market.Region(r.HomeBase),
				NetWorth:    r.NetWorth,
				Day:         r.Day,
				SubmittedAt: r.SubmittedAt,
			},
		})
	}
	return out, nil
}

// PruneStale deletes unfinished games nobody touched for olderThan.
func (s *Service) PruneStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.store.PruneStale(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("pruned stale games", "count", n, "older_than", olderThan.String())
	}
	return n, nil
}

func (s *Service) viewAction(ctx context.Context, gameID, idem, action string, fn func(g *State) error) (View, error) {
	g, err := s.mutate(ctx, gameID, idem, action, func(g *State, _ *mathrand.Rand) error { return fn(g) })
	if err != nil {
		return View{}, err
	}
	return g.View(), nil
}

func (s *Service) load(ctx context.Context, gameID string) (*State, store.GameRecord, error) {
	rec, err := s.store.LoadGame(ctx, strings.TrimSpace(gameID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, rec, ErrGameNotFound
		}
		return nil, rec, err
	}
	g, err := Decode(rec.Blob)
	if err != nil {
		return nil, rec, err
	}
	return g, rec, nil
}

// mutate applies fn to the stored game and saves it against the version it was loaded at,
// retrying with backoff when another writer got there first.
func (s *Service) mutate(ctx context.Context, gameID, idem, action string, fn func(g *State, rng *mathrand.Rand) error) (*State, error) {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		g, rec, err := s.load(ctx, gameID)
		if err != nil {
			return nil, err
		}
		rng := mathrand.New(mathrand.NewSource(s.nextInt63()))
		if err := fn(g, rng); err != nil {
			return nil, err
		}
		g.TrackPeak()
		g.UpdatedAt = s.now()
		blob, err := Encode(g)
		if err != nil {
			return nil, err
		}
		next := store.GameRecord{ID: g.ID, PlayerName: g.PlayerName, Status: string(g.Status), Blob: blob}
		err = s.store.SaveGame(ctx, next, rec.Version, idem, action)
		if err == nil {
			return g, nil
		}
		switch {
		case errors.Is(err, store.ErrDuplicateIdempotency):
			return nil, ErrDuplicateIdempotency
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrGameNotFound
		case !errors.Is(err, store.ErrVersionConflict):
			return nil, err
		}
		if attempt == maxAttempts-1 {
			return nil, ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return nil, err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return nil, ErrTxConflict
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) nextInt63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Int63()
}
