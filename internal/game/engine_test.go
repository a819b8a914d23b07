package game

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"tycoon/internal/market"
)

func newTestGame(t *testing.T, tweak func(*Rules)) *State {
	t.Helper()
	rules := DefaultRules()
	rules.CashLossChance = 0
	rules.CargoLossChance = 0
	if tweak != nil {
		tweak(&rules)
	}
	g, err := New(rules, "test-game", 42, "Ada", "Europe")
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return g
}

func TestNewGameDefaults(t *testing.T) {
	g := newTestGame(t, nil)
	if g.Day != 1 || g.Location != market.Europe || g.HomeBase != market.Europe {
		t.Fatalf("unexpected start: day=%d location=%s home=%s", g.Day, g.Location, g.HomeBase)
	}
	if g.Cash != DefaultStartingCash {
		t.Fatalf("cash got %d", g.Cash)
	}
	if !g.HasFacility(Warehouse, market.Europe) {
		t.Fatalf("expected free warehouse at home base")
	}
	if got := g.StorageCapacity(); got != 200 {
		t.Fatalf("storage capacity got %d", got)
	}
	if got := g.DailyCosts(); got != 50*CentsPerDollar {
		t.Fatalf("daily costs got %d", got)
	}
	if got, want := g.NetWorth(), DefaultStartingCash+7_500*CentsPerDollar; got != want {
		t.Fatalf("net worth got %d want %d", got, want)
	}
	if len(g.Log) != 1 {
		t.Fatalf("expected opening log entry, got %d", len(g.Log))
	}

	if _, err := New(DefaultRules(), "x", 1, "Ada", "Atlantis"); !errors.Is(err, market.ErrUnknownRegion) {
		t.Fatalf("expected unknown region, got %v", err)
	}
	if _, err := New(DefaultRules(), "x", 1, "!", "Asia"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected invalid name, got %v", err)
	}
}

func TestBuyUpdatesHoldingAndDepletesMarket(t *testing.T) {
	g := newTestGame(t, nil)
	before, err := g.Quote(market.Europe, "wheat")
	if err != nil {
		t.Fatal(err)
	}
	if before.Available != 20 {
		t.Fatalf("expected 20 wheat on offer, got %d", before.Available)
	}

	res, err := g.Buy("wheat", 5)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if res.UnitPrice != before.BuyPrice || res.Total != before.BuyPrice*5 {
		t.Fatalf("unexpected trade %+v", res)
	}
	if _, err := g.Buy("wheat", 3); err != nil {
		t.Fatalf("second buy: %v", err)
	}

	h := g.Inventory["wheat"]
	if h.Quantity != 8 || h.AvgCost != before.BuyPrice {
		t.Fatalf("holding got %+v", h)
	}
	if g.Cash != DefaultStartingCash-before.BuyPrice*8 {
		t.Fatalf("cash got %d", g.Cash)
	}
	after, _ := g.Quote(market.Europe, "wheat")
	if after.Available != 12 {
		t.Fatalf("available got %d want 12", after.Available)
	}
	if _, err := g.Buy("wheat", 13); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected stock error, got %v", err)
	}
	if g.StorageUsed() != 16 {
		t.Fatalf("storage used got %d", g.StorageUsed())
	}
}

func TestBuyRejections(t *testing.T) {
	g := newTestGame(t, nil)
	if _, err := g.Buy("wheat", 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	if _, err := g.Buy("diamonds", 1); !errors.Is(err, ErrProductLocked) {
		t.Fatalf("expected locked product, got %v", err)
	}
	if _, err := g.Buy("unobtainium", 1); !errors.Is(err, market.ErrUnknownProduct) {
		t.Fatalf("expected unknown product, got %v", err)
	}

	g.Cash = 100
	if _, err := g.Buy("wheat", 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	small := newTestGame(t, func(r *Rules) { r.BaseStorage = 2 })
	small.Facilities = nil
	if _, err := small.Buy("wheat", 2); !errors.Is(err, ErrStorageFull) {
		t.Fatalf("expected storage full, got %v", err)
	}
}

func TestSellRealizesProfitAndReputation(t *testing.T) {
	g := newTestGame(t, nil)
	if _, err := g.Buy("wheat", 5); err != nil {
		t.Fatal(err)
	}
	h := g.Inventory["wheat"]
	h.AvgCost = 1
	g.Inventory["wheat"] = h

	q, _ := g.Quote(market.Europe, "wheat")
	cash := g.Cash
	res, err := g.Sell("wheat", 5)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if res.UnitPrice != q.SellPrice || g.Cash != cash+q.SellPrice*5 {
		t.Fatalf("unexpected sale %+v cash=%d", res, g.Cash)
	}
	if res.Profit != (q.SellPrice-1)*5 || g.Stats.RealizedProfit != res.Profit {
		t.Fatalf("profit got %d", res.Profit)
	}
	if g.Reputation != 2 {
		t.Fatalf("wide margin should add 2 reputation, got %d", g.Reputation)
	}
	if _, ok := g.Inventory["wheat"]; ok {
		t.Fatalf("sold out holding should be removed")
	}
	if _, err := g.Sell("wheat", 1); !errors.Is(err, ErrInsufficientGoods) {
		t.Fatalf("expected insufficient goods, got %v", err)
	}
}

func TestSellAtLossKeepsReputation(t *testing.T) {
	g := newTestGame(t, nil)
	if _, err := g.Buy("cotton", 4); err != nil {
		t.Fatal(err)
	}
	res, err := g.Sell("cotton", 4)
	if err != nil {
		t.Fatal(err)
	}
	if res.Profit >= 0 {
		t.Fatalf("selling back at once should lose the spread, profit %d", res.Profit)
	}
	if g.Reputation != 0 {
		t.Fatalf("reputation got %d", g.Reputation)
	}
}

func TestTravelChargesPassageAndUpkeep(t *testing.T) {
	g := newTestGame(t, nil)
	g.Purchased["europe/wheat"] = 3
	res, err := g.Travel("Asia", rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("travel: %v", err)
	}
	if res.Days != 2 || res.Cost != 300*CentsPerDollar || res.DailyCosts != 100*CentsPerDollar {
		t.Fatalf("unexpected travel %+v", res)
	}
	if g.Day != 3 || g.Location != market.Asia || res.Finished {
		t.Fatalf("day=%d location=%s finished=%v", g.Day, g.Location, res.Finished)
	}
	if g.Cash != DefaultStartingCash-400*CentsPerDollar {
		t.Fatalf("cash got %d", g.Cash)
	}
	if len(g.Purchased) != 0 {
		t.Fatalf("daily purchases should reset, got %v", g.Purchased)
	}
	if len(res.Incidents) != 0 {
		t.Fatalf("no risk configured, got %+v", res.Incidents)
	}

	if _, err := g.Travel("asia", rand.New(rand.NewSource(1))); !errors.Is(err, ErrSameLocation) {
		t.Fatalf("expected same location, got %v", err)
	}
	if _, err := g.Travel("atlantis", rand.New(rand.NewSource(1))); !errors.Is(err, market.ErrUnknownRegion) {
		t.Fatalf("expected unknown region, got %v", err)
	}
}

func TestTravelAccruesBankInterest(t *testing.T) {
	g := newTestGame(t, nil)
	if err := g.Deposit(1_000 * CentsPerDollar); err != nil {
		t.Fatal(err)
	}
	res, err := g.Travel("africa", rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatal(err)
	}
	if g.Bank != 100_100 || res.Interest != 100 {
		t.Fatalf("bank got %d interest %d", g.Bank, res.Interest)
	}
}

func TestDailyShortfallGoesOnLoan(t *testing.T) {
	g := newTestGame(t, func(r *Rules) { r.TravelCostPerDay = 0 })
	g.Cash = 0
	if _, err := g.Travel("africa", rand.New(rand.NewSource(3))); err != nil {
		t.Fatal(err)
	}
	if g.Loan != 50*CentsPerDollar || g.Cash != 0 {
		t.Fatalf("loan got %d cash %d", g.Loan, g.Cash)
	}
}

func TestTravelRisksFireIndependently(t *testing.T) {
	g := newTestGame(t, func(r *Rules) {
		r.CashLossChance = 1
		r.CargoLossChance = 1
	})
	if _, err := g.Buy("wheat", 10); err != nil {
		t.Fatal(err)
	}
	cashBefore := g.Cash - 150*CentsPerDollar - 50*CentsPerDollar

	res, err := g.Travel("africa", rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Incidents) != 2 {
		t.Fatalf("expected both incidents, got %+v", res.Incidents)
	}
	if res.Incidents[0].Kind != "cash_loss" || res.Incidents[1].Kind != "cargo_loss" {
		t.Fatalf("unexpected incident kinds %+v", res.Incidents)
	}
	lost := cashBefore - g.Cash
	if float64(lost) < float64(cashBefore)*0.099 || float64(lost) > float64(cashBefore)*0.251 {
		t.Fatalf("cash loss %d outside 10-25%% of %d", lost, cashBefore)
	}
	left := g.Inventory["wheat"].Quantity
	if left < 5 || left > 8 {
		t.Fatalf("cargo left %d outside expected range", left)
	}
	if g.Stats.RiskLosses <= lost {
		t.Fatalf("risk losses should include cash and cargo, got %d", g.Stats.RiskLosses)
	}
}

func TestGameFinishesOnLastDay(t *testing.T) {
	g := newTestGame(t, func(r *Rules) { r.TotalDays = 3 })
	res, err := g.Travel("oceania", rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Finished || g.Status != StatusFinished || g.Day != 3 {
		t.Fatalf("expected finished on day 3, got day=%d status=%s", g.Day, g.Status)
	}
	if _, err := g.Buy("wheat", 1); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected game over, got %v", err)
	}
	if err := g.Retire(); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected game over on retire, got %v", err)
	}
}

func TestRetire(t *testing.T) {
	g := newTestGame(t, nil)
	if err := g.Retire(); err != nil {
		t.Fatal(err)
	}
	if g.Status != StatusFinished || g.Stats.PeakNetWorth < g.NetWorth() {
		t.Fatalf("status=%s peak=%d", g.Status, g.Stats.PeakNetWorth)
	}
}

func TestBankAndLoan(t *testing.T) {
	g := newTestGame(t, nil)
	if err := g.Deposit(-1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := g.Deposit(g.Cash + 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := g.Deposit(2_000 * CentsPerDollar); err != nil {
		t.Fatal(err)
	}
	if err := g.Withdraw(3_000 * CentsPerDollar); !errors.Is(err, ErrInsufficientBank) {
		t.Fatalf("expected insufficient bank, got %v", err)
	}
	if err := g.Withdraw(2_000 * CentsPerDollar); err != nil {
		t.Fatal(err)
	}

	if got := g.LoanLimit(); got != 8_750*CentsPerDollar {
		t.Fatalf("loan limit got %d", got)
	}
	if err := g.TakeLoan(9_000 * CentsPerDollar); !errors.Is(err, ErrLoanLimit) {
		t.Fatalf("expected loan limit, got %v", err)
	}
	if err := g.TakeLoan(8_000 * CentsPerDollar); err != nil {
		t.Fatal(err)
	}
	paid, err := g.RepayLoan(10_000 * CentsPerDollar)
	if err != nil {
		t.Fatal(err)
	}
	if paid != 8_000*CentsPerDollar || g.Loan != 0 || g.Cash != DefaultStartingCash {
		t.Fatalf("paid=%d loan=%d cash=%d", paid, g.Loan, g.Cash)
	}
	if _, err := g.RepayLoan(1); !errors.Is(err, ErrNoLoan) {
		t.Fatalf("expected no loan, got %v", err)
	}
}

func TestTakeLoanRejectsOverflowingAmounts(t *testing.T) {
	g := newTestGame(t, nil)
	if err := g.TakeLoan(5_000 * CentsPerDollar); err != nil {
		t.Fatal(err)
	}
	g.Cash = 2_500 * CentsPerDollar
	cash, loan := g.Cash, g.Loan

	for _, amount := range []int64{math.MaxInt64 - g.Cash - 1, math.MaxInt64 - g.Loan + 1, MaxAmount} {
		err := g.TakeLoan(amount)
		if !errors.Is(err, ErrInvalidAmount) && !errors.Is(err, ErrLoanLimit) {
			t.Fatalf("amount %d: expected rejection, got %v", amount, err)
		}
		if g.Cash != cash || g.Loan != loan {
			t.Fatalf("amount %d changed state: cash=%d loan=%d", amount, g.Cash, g.Loan)
		}
	}
	if err := g.TakeLoan(MaxAmount + 1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount above the cap, got %v", err)
	}
	if err := g.TakeLoan(MaxAmount); !errors.Is(err, ErrLoanLimit) {
		t.Fatalf("expected loan limit at the cap, got %v", err)
	}

	if _, err := g.Travel("africa", rand.New(rand.NewSource(1))); err != nil {
		t.Fatal(err)
	}
	if g.Loan < loan || g.Cash < 0 {
		t.Fatalf("loan must stay positive: cash=%d loan=%d", g.Cash, g.Loan)
	}
}

func TestBonusesNeverPushSellAboveBuy(t *testing.T) {
	g := newTestGame(t, func(r *Rules) { r.SpreadRate = 0.02 })
	g.Cash = 100_000 * CentsPerDollar
	if _, err := g.Build("office"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < MaxStaffPerRole; i++ {
		if _, err := g.Hire("trader"); err != nil {
			t.Fatal(err)
		}
	}

	board, err := g.Board(market.Europe)
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range board {
		if q.BuyPrice > 1 && q.SellPrice >= q.BuyPrice {
			t.Fatalf("%s sell %d not below buy %d", q.ProductID, q.SellPrice, q.BuyPrice)
		}
	}

	cash := g.Cash
	if _, err := g.Buy("wheat", 5); err != nil {
		t.Fatal(err)
	}
	res, err := g.Sell("wheat", 5)
	if err != nil {
		t.Fatal(err)
	}
	if g.Cash >= cash || res.Profit >= 0 {
		t.Fatalf("round trip should lose money: cash %d -> %d profit %d", cash, g.Cash, res.Profit)
	}
}

func TestFacilitiesAndStaff(t *testing.T) {
	g := newTestGame(t, nil)
	if _, err := g.Build("office"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	g.Cash = 100_000 * CentsPerDollar

	if _, err := g.Build("office"); err != nil {
		t.Fatal(err)
	}
	if g.Reputation != 5 {
		t.Fatalf("office should add reputation, got %d", g.Reputation)
	}
	if _, err := g.Build("Office"); !errors.Is(err, ErrAlreadyBuilt) {
		t.Fatalf("expected already built, got %v", err)
	}
	if _, err := g.Build("distribution_center"); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Build("castle"); err == nil {
		t.Fatalf("expected unknown facility error")
	}
	if got := g.travelCost(market.Europe, 2); got != 225*CentsPerDollar {
		t.Fatalf("travel cost got %d", got)
	}
	if got := g.travelCost(market.Asia, 2); got != 300*CentsPerDollar {
		t.Fatalf("travel cost elsewhere got %d", got)
	}

	for i := 0; i < MaxStaffPerRole; i++ {
		if _, err := g.Hire("trader"); err != nil {
			t.Fatalf("hire %d: %v", i, err)
		}
	}
	if _, err := g.Hire("trader"); !errors.Is(err, ErrStaffLimit) {
		t.Fatalf("expected staff limit, got %v", err)
	}
	if n, err := g.Fire("trader"); err != nil || n != 4 {
		t.Fatalf("fire got n=%d err=%v", n, err)
	}
	if _, err := g.Fire("accountant"); !errors.Is(err, ErrNoStaff) {
		t.Fatalf("expected no staff, got %v", err)
	}

	if got, want := g.DailyCosts(), int64(620*CentsPerDollar); got != want {
		t.Fatalf("daily costs got %d want %d", got, want)
	}
	if got, want := g.Cash, int64(25_000*CentsPerDollar); got != want {
		t.Fatalf("cash got %d want %d", got, want)
	}

	raw, err := g.pricer().Quote(market.QuoteInput{ProductID: "wheat", Region: market.Europe, Day: g.Day, Reputation: g.Reputation})
	if err != nil {
		t.Fatal(err)
	}
	q, _ := g.Quote(market.Europe, "wheat")
	if want := int64(math.Round(float64(raw.BuyPrice) * 0.97)); q.BuyPrice != want {
		t.Fatalf("office buy price got %d want %d", q.BuyPrice, want)
	}
	if want := int64(math.Round(float64(raw.SellPrice) * 1.04)); q.SellPrice != want {
		t.Fatalf("trader sell price got %d want %d", q.SellPrice, want)
	}
}

func TestStaffModifiers(t *testing.T) {
	g := newTestGame(t, nil)
	g.Cash = 100_000 * CentsPerDollar
	for i := 0; i < 2; i++ {
		if _, err := g.Hire("logistics"); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 5; i++ {
		if _, err := g.Hire("accountant"); err != nil {
			t.Fatal(err)
		}
	}
	if got := g.riskFactor(); math.Abs(got-0.7225) > 1e-9 {
		t.Fatalf("risk factor got %f", got)
	}
	if got := g.bankRate(); math.Abs(got-0.002) > 1e-9 {
		t.Fatalf("bank rate got %f", got)
	}
	if got := g.loanRate(); math.Abs(got-0.0025) > 1e-9 {
		t.Fatalf("loan rate got %f", got)
	}
}

func TestLogIsBounded(t *testing.T) {
	g := newTestGame(t, nil)
	for i := 0; i < 60; i++ {
		g.logf("test", "entry %d", i)
	}
	if len(g.Log) != logLimit {
		t.Fatalf("log length got %d", len(g.Log))
	}
	if g.Log[len(g.Log)-1].Message != "entry 59" {
		t.Fatalf("newest entry got %q", g.Log[len(g.Log)-1].Message)
	}
}

func TestViewValuesInventory(t *testing.T) {
	g := newTestGame(t, nil)
	if _, err := g.Buy("wheat", 5); err != nil {
		t.Fatal(err)
	}
	v := g.View()
	if len(v.Inventory) != 1 || v.Inventory[0].Name != "Wheat" {
		t.Fatalf("inventory view got %+v", v.Inventory)
	}
	hv := v.Inventory[0]
	if hv.MarketValue != hv.SellPrice*5 || hv.Unrealized != hv.MarketValue-hv.AvgCost*5 {
		t.Fatalf("holding valuation got %+v", hv)
	}
	if v.StorageUsed != 10 || v.StorageCap != 200 || v.DaysLeft != 99 {
		t.Fatalf("view got used=%d cap=%d left=%d", v.StorageUsed, v.StorageCap, v.DaysLeft)
	}
	if v.NetWorth != g.NetWorth() {
		t.Fatalf("net worth mismatch %d vs %d", v.NetWorth, g.NetWorth())
	}
}
