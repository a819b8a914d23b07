package game

import (
	"time"

	"tycoon/internal/market"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

type State struct {
	ID             string               `json:"id"`
	Seed           int64                `json:"seed"`
	Rules          Rules                `json:"rules"`
	PlayerName     string               `json:"player_name"`
	HomeBase       market.Region        `json:"home_base"`
	Location       market.Region        `json:"location"`
	Day            int                  `json:"day"`
	Cash           int64                `json:"cash_cents"`
	Bank           int64                `json:"bank_cents"`
	Loan           int64                `json:"loan_cents"`
	Reputation     int                  `json:"reputation"`
	Inventory      map[string]Holding   `json:"inventory"`
	Facilities     []Facility           `json:"facilities"`
	Staff          map[StaffRole]int    `json:"staff"`
	Events         []market.ActiveEvent `json:"events"`
	Purchased      map[string]int       `json:"purchased"`
	Stats          Stats                `json:"stats"`
	Log            []LogEntry           `json:"log"`
	Status         Status               `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	ScoreSubmitted bool                 `json:"score_submitted"`
}

type Holding struct {
	Quantity int   `json:"quantity"`
	AvgCost  int64 `json:"avg_cost_cents"`
}

type Facility struct {
	Type     FacilityType  `json:"type"`
	Region   market.Region `json:"region"`
	BuiltDay int           `json:"built_day"`
}

type Stats struct {
	Trades         int   `json:"trades"`
	Travels        int   `json:"travels"`
	RealizedProfit int64 `json:"realized_profit_cents"`
	PeakNetWorth   int64 `json:"peak_net_worth_cents"`
	RiskLosses     int64 `json:"risk_losses_cents"`
}

type LogEntry struct {
	Day     int    `json:"day"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type View struct {
	ID          string            `json:"id"`
	PlayerName  string            `json:"player_name"`
	HomeBase    market.Region     `json:"home_base"`
	Location    market.Region     `json:"location"`
	Day         int               `json:"day"`
	TotalDays   int               `json:"total_days"`
	DaysLeft    int               `json:"days_left"`
	Status      Status            `json:"status"`
	Cash        int64             `json:"cash_cents"`
	Bank        int64             `json:"bank_cents"`
	Loan        int64             `json:"loan_cents"`
	LoanLimit   int64             `json:"loan_limit_cents"`
	NetWorth    int64             `json:"net_worth_cents"`
	Reputation  int               `json:"reputation"`
	StorageUsed int               `json:"storage_used"`
	StorageCap  int               `json:"storage_capacity"`
	DailyCosts  int64             `json:"daily_costs_cents"`
	Inventory   []HoldingView     `json:"inventory"`
	Facilities  []Facility        `json:"facilities"`
	Staff       map[StaffRole]int `json:"staff"`
	Events      []EventView       `json:"events"`
	Stats       Stats             `json:"stats"`
	Log         []LogEntry        `json:"log"`
}

type HoldingView struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	AvgCost      int64  `json:"avg_cost_cents"`
	SellPrice    int64  `json:"sell_price_cents"`
	MarketValue  int64  `json:"market_value_cents"`
	Unrealized   int64  `json:"unrealized_cents"`
	StorageUnits int    `json:"storage_units"`
}

type EventView struct {
	market.ActiveEvent
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Multiplier  float64  `json:"multiplier"`
	MarketWide  bool     `json:"market_wide"`
	Products    []string `json:"products,omitempty"`
}

type TradeResult struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price_cents"`
	Total      int64  `json:"total_cents"`
	Profit     int64  `json:"profit_cents,omitempty"`
	Cash       int64  `json:"cash_cents"`
	Reputation int    `json:"reputation"`
}

type TravelResult struct {
	From       market.Region        `json:"from"`
	To         market.Region        `json:"to"`
	Days       int                  `json:"days"`
	Cost       int64                `json:"cost_cents"`
	DailyCosts int64                `json:"daily_costs_cents"`
	Interest   int64                `json:"interest_cents"`
	Incidents  []Incident           `json:"incidents,omitempty"`
	NewEvents  []market.ActiveEvent `json:"new_events,omitempty"`
	Expired    []string             `json:"expired_events,omitempty"`
	Day        int                  `json:"day"`
	Finished   bool                 `json:"finished"`
}

type Incident struct {
	Kind      string `json:"kind"`
	ProductID string `json:"product_id,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
	Amount    int64  `json:"amount_cents,omitempty"`
	Message   string `json:"message"`
}

type Score struct {
	GameID      string        `json:"game_id"`
	PlayerName  string        `json:"player_name"`
	HomeBase    market.Region `json:"home_base"`
	NetWorth    int64         `json:"net_worth_cents"`
	Day         int           `json:"day"`
	SubmittedAt time.Time     `json:"submitted_at"`
}

type LeaderboardRow struct {
	Rank int64 `json:"rank"`
	Score
}

type NewGameInput struct {
	PlayerName string
	HomeBase   string
	// Seed is never taken from clients. Zero draws one from the service RNG.
	Seed       int64
}

type TradeInput struct {
	GameID         string
	ProductID      string
	Quantity       int
	IdempotencyKey string
}

type TravelInput struct {
	GameID         string
	Destination    string
	IdempotencyKey string
}

type AmountInput struct {
	GameID         string
	Amount         int64
	IdempotencyKey string
}

type BuildInput struct {
	GameID         string
	Facility       string
	IdempotencyKey string
}

type StaffInput struct {
	GameID         string
	Role           string
	IdempotencyKey string
}
