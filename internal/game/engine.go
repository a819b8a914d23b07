package game

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"tycoon/internal/market"
)

// New starts a game at the chosen home base with a free warehouse there.
func New(rules Rules, id string, seed int64, playerName, homeBase string) (*State, error) {
	if err := ValidatePlayerName(playerName); err != nil {
		return nil, err
	}
	home, err := market.ParseRegion(homeBase)
	if err != nil {
		return nil, err
	}
	rules = rules.Normalize()
	g := &State{
		ID:         id,
		Seed:       seed,
		Rules:      rules,
		PlayerName: strings.TrimSpace(playerName),
		HomeBase:   home,
		Location:   home,
		Day:        1,
		Cash:       rules.StartingCash,
		Inventory:  map[string]Holding{},
		Facilities: []Facility{{Type: Warehouse, Region: home, BuiltDay: 1}},
		Staff:      map[StaffRole]int{},
		Purchased:  map[string]int{},
		Status:     StatusActive,
	}
	g.Stats.PeakNetWorth = g.NetWorth()
	g.logf("start", "%s opened for business in %s with %s", g.PlayerName, regionName(home), FormatCents(g.Cash))
	return g, nil
}

func (g *State) pricer() *market.Pricer {
	return market.NewPricer(g.Seed, g.Rules.TotalDays).WithSpread(g.Rules.SpreadRate)
}

func (g *State) ensureActive() error {
	if g.Status != StatusActive {
		return ErrGameOver
	}
	return nil
}

// Quote prices one product in a region for today, with this player's discounts applied
// and the day's availability reduced by what the player already bought there.
func (g *State) Quote(region market.Region, productID string) (market.Quote, error) {
	q, err := g.pricer().Quote(market.QuoteInput{
		ProductID:  productID,
		Region:     region,
		Day:        g.Day,
		Reputation: g.Reputation,
		Events:     g.Events,
	})
	if err != nil {
		return q, err
	}
	return g.adjustQuote(q), nil
}

func (g *State) Board(region market.Region) ([]market.Quote, error) {
	quotes, err := g.pricer().Board(region, g.Day, g.Reputation, g.Events)
	if err != nil {
		return nil, err
	}
	for i := range quotes {
		quotes[i] = g.adjustQuote(quotes[i])
	}
	return quotes, nil
}

// adjustQuote applies facility and staff modifiers. Sell stays strictly below buy
// whenever buy is above one cent.
func (g *State) adjustQuote(q market.Quote) market.Quote {
	if d := g.buyDiscount(q.Region); d > 0 {
		q.BuyPrice = max(int64(math.Round(float64(q.BuyPrice)*(1-d))), 1)
	}
	if bonus := g.sellBonus(); bonus > 0 {
		q.SellPrice = int64(math.Round(float64(q.SellPrice) * (1 + bonus)))
	}
	if q.SellPrice >= q.BuyPrice {
		q.SellPrice = max(q.BuyPrice-1, 1)
	}
	q.Available -= g.Purchased[purchaseKey(q.Region, q.ProductID)]
	if q.Available < 0 {
		q.Available = 0
	}
	return q
}

func purchaseKey(region market.Region, productID string) string {
	return string(region) + "/" + productID
}

func (g *State) Buy(productID string, qty int) (TradeResult, error) {
	var out TradeResult
	if err := g.ensureActive(); err != nil {
		return out, err
	}
	if qty <= 0 {
		return out, ErrInvalidQuantity
	}
	product, err := market.Lookup(productID)
	if err != nil {
		return out, err
	}
	q, err := g.Quote(g.Location, product.ID)
	if err != nil {
		return out, err
	}
	if q.Locked {
		return out, fmt.Errorf("%w: %s needs reputation %d (have %d)", ErrProductLocked, product.Name, product.RequiredReputation, g.Reputation)
	}
	if qty > q.Available {
		return out, fmt.Errorf("%w: %d %s left today", ErrInsufficientStock, q.Available, product.Name)
	}
	total := q.BuyPrice * int64(qty)
	if total > g.Cash {
		return out, fmt.Errorf("%w: %d %s costs %s, cash %s", ErrInsufficientFunds, qty, product.Name, FormatCents(total), FormatCents(g.Cash))
	}
	if need := g.StorageUsed() + product.StorageUnits*qty; need > g.StorageCapacity() {
		return out, fmt.Errorf("%w: need %d of %d units", ErrStorageFull, need, g.StorageCapacity())
	}

	h := g.Inventory[product.ID]
	cost := h.AvgCost*int64(h.Quantity) + total
	h.Quantity += qty
	h.AvgCost = int64(math.Round(float64(cost) / float64(h.Quantity)))
	if g.Inventory == nil {
		g.Inventory = map[string]Holding{}
	}
	g.Inventory[product.ID] = h
	if g.Purchased == nil {
		g.Purchased = map[string]int{}
	}
	g.Purchased[purchaseKey(g.Location, product.ID)] += qty
	g.Cash -= total
	g.Stats.Trades++
	g.logf("buy", "Bought %d %s at %s", qty, product.Name, FormatCents(q.BuyPrice))

	out = TradeResult{
		ProductID:  product.ID,
		Quantity:   qty,
		UnitPrice:  q.BuyPrice,
		Total:      total,
		Cash:       g.Cash,
		Reputation: g.Reputation,
	}
	return out, nil
}

func (g *State) Sell(productID string, qty int) (TradeResult, error) {
	var out TradeResult
	if err := g.ensureActive(); err != nil {
		return out, err
	}
	if qty <= 0 {
		return out, ErrInvalidQuantity
	}
	product, err := market.Lookup(productID)
	if err != nil {
		return out, err
	}
	h := g.Inventory[product.ID]
	if h.Quantity < qty {
		return out, fmt.Errorf("%w: holding %d %s", ErrInsufficientGoods, h.Quantity, product.Name)
	}
	q, err := g.Quote(g.Location, product.ID)
	if err != nil {
		return out, err
	}
	total := q.SellPrice * int64(qty)
	profit := (q.SellPrice - h.AvgCost) * int64(qty)

	h.Quantity -= qty
	if h.Quantity == 0 {
		delete(g.Inventory, product.ID)
	} else {
		g.Inventory[product.ID] = h
	}
	g.Cash += total
	g.Stats.Trades++
	g.Stats.RealizedProfit += profit
	if profit > 0 {
		gain := 1
		if float64(q.SellPrice) >= float64(h.AvgCost)*1.2 {
			gain = 2
		}
		g.addReputation(gain)
	}
	g.logf("sell", "Sold %d %s at %s (%s)", qty, product.Name, FormatCents(q.SellPrice), signedCents(profit))

	out = TradeResult{
		ProductID:  product.ID,
		Quantity:   qty,
		UnitPrice:  q.SellPrice,
		Total:      total,
		Profit:     profit,
		Cash:       g.Cash,
		Reputation: g.Reputation,
	}
	return out, nil
}

// Travel sails to another region. Each day at sea accrues interest and running costs;
// on arrival travel risks and a market event are rolled independently.
func (g *State) Travel(destination string, rng *rand.Rand) (TravelResult, error) {
	var out TravelResult
	if err := g.ensureActive(); err != nil {
		return out, err
	}
	to, err := market.ParseRegion(destination)
	if err != nil {
		return out, err
	}
	if to == g.Location {
		return out, ErrSameLocation
	}
	days := market.TravelDays(g.Location, to)
	cost := g.travelCost(g.Location, days)
	if cost > g.Cash {
		return out, fmt.Errorf("%w: passage to %s costs %s", ErrInsufficientFunds, regionName(to), FormatCents(cost))
	}

	out.From, out.To, out.Days, out.Cost = g.Location, to, days, cost
	g.Cash -= cost
	g.Location = to
	g.Stats.Travels++
	g.logf("travel", "Sailed from %s to %s (%d days, %s)", regionName(out.From), regionName(to), days, FormatCents(cost))

	for i := 0; i < days && g.Day < g.Rules.TotalDays; i++ {
		costs, interest, expired := g.advanceDay()
		out.DailyCosts += costs
		out.Interest += interest
		out.Expired = append(out.Expired, expired...)
	}

	out.Incidents = g.rollTravelRisks(rng)
	if ev, ok := market.RollEvent(rng, g.Day, g.Events); ok {
		g.Events = append(g.Events, ev)
		out.NewEvents = append(out.NewEvents, ev)
		if def, ok := market.LookupEvent(ev.ID); ok {
			g.logf("event", "%s: %s", def.Name, def.Description)
		}
	}

	if g.Day >= g.Rules.TotalDays {
		g.finish("The trading season has ended")
	}
	out.Day = g.Day
	out.Finished = g.Status == StatusFinished
	return out, nil
}

// advanceDay moves the calendar forward one day and settles interest and running costs.
func (g *State) advanceDay() (costs, interest int64, expired []string) {
	g.Day++

	bankInterest := int64(math.Round(float64(g.Bank) * g.bankRate()))
	loanInterest := int64(math.Round(float64(g.Loan) * g.loanRate()))
	g.Bank += bankInterest
	g.Loan += loanInterest
	interest = bankInterest - loanInterest

	costs = g.DailyCosts()
	g.pay(costs)

	kept := market.ExpireEvents(g.Day, g.Events)
	if len(kept) != len(g.Events) {
		running := make(map[string]bool, len(kept))
		for _, e := range kept {
			running[e.ID] = true
		}
		for _, e := range g.Events {
			if !running[e.ID] {
				expired = append(expired, e.ID)
			}
		}
	}
	g.Events = kept
	g.Purchased = map[string]int{}
	return costs, interest, expired
}

// pay takes an amount from cash, then the bank; any remainder is borrowed.
func (g *State) pay(amount int64) {
	if amount <= 0 {
		return
	}
	fromCash := min(amount, max(g.Cash, 0))
	g.Cash -= fromCash
	amount -= fromCash
	fromBank := min(amount, max(g.Bank, 0))
	g.Bank -= fromBank
	amount -= fromBank
	if amount > 0 {
		g.Loan += amount
		g.logf("debt", "Running costs forced %s onto the loan", FormatCents(amount))
	}
}

func (g *State) rollTravelRisks(rng *rand.Rand) []Incident {
	var out []Incident
	factor := g.riskFactor()

	cashRoll := rng.Float64()
	cargoRoll := rng.Float64()

	if cashRoll < g.Rules.CashLossChance*factor && g.Cash > 0 {
		pct := 0.10 + rng.Float64()*0.15
		loss := int64(math.Round(float64(g.Cash) * pct))
		if loss > 0 {
			g.Cash -= loss
			g.Stats.RiskLosses += loss
			msg := fmt.Sprintf("Pickpockets at the docks took %s", FormatCents(loss))
			g.logf("risk", "%s", msg)
			out = append(out, Incident{Kind: "cash_loss", Amount: loss, Message: msg})
		}
	}

	if cargoRoll < g.Rules.CargoLossChance*factor && len(g.Inventory) > 0 {
		held := make([]string, 0, len(g.Inventory))
		for id := range g.Inventory {
			held = append(held, id)
		}
		sort.Strings(held)
		id := held[rng.Intn(len(held))]
		h := g.Inventory[id]
		pct := 0.20 + rng.Float64()*0.30
		lost := int(math.Round(float64(h.Quantity) * pct))
		if lost < 1 {
			lost = 1
		}
		if lost > h.Quantity {
			lost = h.Quantity
		}
		h.Quantity -= lost
		if h.Quantity == 0 {
			delete(g.Inventory, id)
		} else {
			g.Inventory[id] = h
		}
		g.Stats.RiskLosses += h.AvgCost * int64(lost)
		msg := fmt.Sprintf("A storm swept %d %s overboard", lost, productName(id))
		g.logf("risk", "%s", msg)
		out = append(out, Incident{Kind: "cargo_loss", ProductID: id, Quantity: lost, Amount: h.AvgCost * int64(lost), Message: msg})
	}
	return out
}

func (g *State) Deposit(amount int64) error {
	if err := g.ensureActive(); err != nil {
		return err
	}
	if !ValidAmount(amount) {
		return ErrInvalidAmount
	}
	if amount > g.Cash {
		return fmt.Errorf("%w: cash %s", ErrInsufficientFunds, FormatCents(g.Cash))
	}
	g.Cash -= amount
	g.Bank += amount
	g.logf("bank", "Deposited %s", FormatCents(amount))
	return nil
}

func (g *State) Withdraw(amount int64) error {
	if err := g.ensureActive(); err != nil {
		return err
	}
	if !ValidAmount(amount) {
		return ErrInvalidAmount
	}
	if amount > g.Bank {
		return fmt.Errorf("%w: bank %s", ErrInsufficientBank, FormatCents(g.Bank))
	}
	g.Bank -= amount
	g.Cash += amount
	g.logf("bank", "Withdrew %s", FormatCents(amount))
	return nil
}

func (g *State) LoanLimit() int64 {
	return LoanLimit(g.NetWorth()+g.Loan, g.Rules.LoanLimitRatio)
}

func (g *State) TakeLoan(amount int64) error {
	if err := g.ensureActive(); err != nil {
		return err
	}
	if !ValidAmount(amount) {
		return ErrInvalidAmount
	}
	limit := g.LoanLimit()
	if amount > limit-g.Loan {
		return fmt.Errorf("%w: can borrow %s more", ErrLoanLimit, FormatCents(max(limit-g.Loan, 0)))
	}
	g.Loan += amount
	g.Cash += amount
	g.logf("loan", "Borrowed %s", FormatCents(amount))
	return nil
}

// RepayLoan pays down the loan; amounts above the balance owed are capped.
func (g *State) RepayLoan(amount int64) (int64, error) {
	if err := g.ensureActive(); err != nil {
		return 0, err
	}
	if !ValidAmount(amount) {
		return 0, ErrInvalidAmount
	}
	if g.Loan == 0 {
		return 0, ErrNoLoan
	}
	amount = min(amount, g.Loan)
	if amount > g.Cash {
		return 0, fmt.Errorf("%w: cash %s", ErrInsufficientFunds, FormatCents(g.Cash))
	}
	g.Cash -= amount
	g.Loan -= amount
	g.logf("loan", "Repaid %s", FormatCents(amount))
	return amount, nil
}

func (g *State) Retire() error {
	if err := g.ensureActive(); err != nil {
		return err
	}
	g.finish("Retired early")
	return nil
}

func (g *State) finish(reason string) {
	g.Status = StatusFinished
	g.TrackPeak()
	g.logf("end", "%s on day %d with net worth %s", reason, g.Day, FormatCents(g.NetWorth()))
}

// NetWorth values inventory at today's local sell price and facilities at half their cost.
func (g *State) NetWorth() int64 {
	worth := g.Cash + g.Bank - g.Loan + g.facilityValue()
	for id, h := range g.Inventory {
		q, err := g.Quote(g.Location, id)
		if err != nil {
			continue
		}
		worth += q.SellPrice * int64(h.Quantity)
	}
	return worth
}

func (g *State) TrackPeak() {
	if nw := g.NetWorth(); nw > g.Stats.PeakNetWorth {
		g.Stats.PeakNetWorth = nw
	}
}

func (g *State) StorageUsed() int {
	used := 0
	for id, h := range g.Inventory {
		if p, err := market.Lookup(id); err == nil {
			used += p.StorageUnits * h.Quantity
		}
	}
	return used
}

func (g *State) addReputation(delta int) {
	g.Reputation += delta
	if g.Reputation > MaxReputation {
		g.Reputation = MaxReputation
	}
	if g.Reputation < 0 {
		g.Reputation = 0
	}
}

func (g *State) logf(kind, format string, args ...any) {
	g.Log = append(g.Log, LogEntry{Day: g.Day, Kind: kind, Message: fmt.Sprintf(format, args...)})
	if len(g.Log) > logLimit {
		g.Log = append([]LogEntry(nil), g.Log[len(g.Log)-logLimit:]...)
	}
}

func (g *State) View() View {
	v := View{
		ID:          g.ID,
		PlayerName:  g.PlayerName,
		HomeBase:    g.HomeBase,
		Location:    g.Location,
		Day:         g.Day,
		TotalDays:   g.Rules.TotalDays,
		DaysLeft:    max(g.Rules.TotalDays-g.Day, 0),
		Status:      g.Status,
		Cash:        g.Cash,
		Bank:        g.Bank,
		Loan:        g.Loan,
		LoanLimit:   g.LoanLimit(),
		NetWorth:    g.NetWorth(),
		Reputation:  g.Reputation,
		StorageUsed: g.StorageUsed(),
		StorageCap:  g.StorageCapacity(),
		DailyCosts:  g.DailyCosts(),
		Facilities:  g.Facilities,
		Staff:       g.Staff,
		Stats:       g.Stats,
		Log:         g.Log,
	}
	ids := make([]string, 0, len(g.Inventory))
	for id := range g.Inventory {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		h := g.Inventory[id]
		hv := HoldingView{ProductID: id, Name: productName(id), Quantity: h.Quantity, AvgCost: h.AvgCost}
		if p, err := market.Lookup(id); err == nil {
			hv.StorageUnits = p.StorageUnits * h.Quantity
		}
		if q, err := g.Quote(g.Location, id); err == nil {
			hv.SellPrice = q.SellPrice
			hv.MarketValue = q.SellPrice * int64(h.Quantity)
			hv.Unrealized = hv.MarketValue - h.AvgCost*int64(h.Quantity)
		}
		v.Inventory = append(v.Inventory, hv)
	}
	for _, e := range g.Events {
		ev := EventView{ActiveEvent: e, Name: e.ID}
		if def, ok := market.LookupEvent(e.ID); ok {
			ev.Name = def.Name
			ev.Description = def.Description
			ev.Multiplier = def.Multiplier
			ev.MarketWide = def.MarketWide
			ev.Products = def.Products
		}
		v.Events = append(v.Events, ev)
	}
	return v
}

func regionName(r market.Region) string {
	if loc, err := market.LocationFor(r); err == nil {
		return loc.Name
	}
	return string(r)
}

func productName(id string) string {
	if p, err := market.Lookup(id); err == nil {
		return p.Name
	}
	return id
}

// FormatCents renders an amount as dollars with thousands separators, e.g. -$1,234.50.
func FormatCents(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / CentsPerDollar
	frac := v % CentsPerDollar
	s := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), frac)
}

func signedCents(v int64) string {
	if v >= 0 {
		return "+" + FormatCents(v)
	}
	return FormatCents(v)
}
