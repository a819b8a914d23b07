package game

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"tycoon/internal/market"
)

const (
	CentsPerDollar = market.CentsPerDollar

	DefaultTotalDays    = 100
	DefaultStartingCash = int64(10_000) * CentsPerDollar
	DefaultBaseStorage  = 100

	MinLoanLimit = int64(5_000) * CentsPerDollar
	// MaxAmount caps any single money movement so cents arithmetic stays far from int64 limits.
	MaxAmount = int64(1_000_000_000) * CentsPerDollar

	MaxReputation = 100
	logLimit      = 50
)

var (
	ErrGameNotFound         = errors.New("game not found")
	ErrGameOver             = errors.New("game is over")
	ErrGameInProgress       = errors.New("game is still in progress")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidAmount        = errors.New("amount must be > 0 and at most $1,000,000,000")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientBank     = errors.New("insufficient bank balance")
	ErrInsufficientStock    = errors.New("not enough stock available")
	ErrInsufficientGoods    = errors.New("not enough goods in inventory")
	ErrStorageFull          = errors.New("not enough storage capacity")
	ErrProductLocked        = errors.New("product locked: reputation too low")
	ErrSameLocation         = errors.New("already at that location")
	ErrLoanLimit            = errors.New("loan limit exceeded")
	ErrNoLoan               = errors.New("no outstanding loan")
	ErrAlreadyBuilt         = errors.New("facility already built here")
	ErrStaffLimit           = errors.New("staff limit reached for role")
	ErrNoStaff              = errors.New("no staff of that role to dismiss")
	ErrNoOffice             = errors.New("price intel requires an office in that region")
	ErrUnknownFacility      = errors.New("unknown facility")
	ErrUnknownRole          = errors.New("unknown staff role")
	ErrInvalidName          = errors.New("invalid player name")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrTxConflict           = errors.New("game was updated concurrently, retry")
	ErrScoreSubmitted       = errors.New("score already submitted for this game")
)

// Rules holds the balance knobs of a game. Zero values are replaced by defaults in Normalize.
type Rules struct {
	TotalDays        int     `json:"total_days" yaml:"total_days"`
	StartingCash     int64   `json:"starting_cash_cents" yaml:"starting_cash_cents"`
	BaseStorage      int     `json:"base_storage" yaml:"base_storage"`
	SpreadRate       float64 `json:"spread_rate" yaml:"spread_rate"`
	TravelCostPerDay int64   `json:"travel_cost_per_day_cents" yaml:"travel_cost_per_day_cents"`
	BankDailyRate    float64 `json:"bank_daily_rate" yaml:"bank_daily_rate"`
	LoanDailyRate    float64 `json:"loan_daily_rate" yaml:"loan_daily_rate"`
	LoanLimitRatio   float64 `json:"loan_limit_ratio" yaml:"loan_limit_ratio"`
	CashLossChance   float64 `json:"cash_loss_chance" yaml:"cash_loss_chance"`
	CargoLossChance  float64 `json:"cargo_loss_chance" yaml:"cargo_loss_chance"`
}

func DefaultRules() Rules {
	return Rules{
		TotalDays:        DefaultTotalDays,
		StartingCash:     DefaultStartingCash,
		BaseStorage:      DefaultBaseStorage,
		SpreadRate:       market.DefaultSpreadRate,
		TravelCostPerDay: 150 * CentsPerDollar,
		BankDailyRate:    0.001,
		LoanDailyRate:    0.005,
		LoanLimitRatio:   0.5,
		CashLossChance:   0.04,
		CargoLossChance:  0.03,
	}
}

func (r Rules) Normalize() Rules {
	d := DefaultRules()
	if r.TotalDays <= 0 {
		r.TotalDays = d.TotalDays
	}
	if r.StartingCash <= 0 {
		r.StartingCash = d.StartingCash
	}
	if r.BaseStorage <= 0 {
		r.BaseStorage = d.BaseStorage
	}
	if r.SpreadRate <= 0 || r.SpreadRate >= 0.9 {
		r.SpreadRate = d.SpreadRate
	}
	if r.TravelCostPerDay < 0 {
		r.TravelCostPerDay = d.TravelCostPerDay
	}
	if r.BankDailyRate < 0 {
		r.BankDailyRate = d.BankDailyRate
	}
	if r.LoanDailyRate < 0 {
		r.LoanDailyRate = d.LoanDailyRate
	}
	if r.LoanLimitRatio <= 0 {
		r.LoanLimitRatio = d.LoanLimitRatio
	}
	r.CashLossChance = clamp01(r.CashLossChance)
	r.CargoLossChance = clamp01(r.CargoLossChance)
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ValidAmount reports whether a money movement in cents is positive and below MaxAmount.
func ValidAmount(cents int64) bool {
	return cents > 0 && cents <= MaxAmount
}

func DollarsToCents(v float64) int64 {
	return int64(math.Round(v * float64(CentsPerDollar)))
}

func CentsToDollars(v int64) float64 {
	return float64(v) / float64(CentsPerDollar)
}

var playerNameRE = regexp.MustCompile(`^[A-Za-z0-9 _.-]{2,32}$`)

var blockedNameFragments = []string{
	"admin",
	"moderator",
	"support",
	"shit",
	"fuck",
	"bitch",
	"nazi",
}

func ValidatePlayerName(name string) error {
	clean := strings.TrimSpace(name)
	if !playerNameRE.MatchString(clean) {
		return fmt.Errorf("%w: use 2-32 letters, digits, spaces, '.', '_' or '-'", ErrInvalidName)
	}
	lower := strings.ToLower(clean)
	for _, fragment := range blockedNameFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("%w: contains blocked content", ErrInvalidName)
		}
	}
	return nil
}

// LoanLimit is the most a player may owe, given net worth before the loan is subtracted.
func LoanLimit(grossWorth int64, ratio float64) int64 {
	limit := int64(math.Round(float64(grossWorth) * ratio))
	if limit < MinLoanLimit {
		return MinLoanLimit
	}
	return limit
}
