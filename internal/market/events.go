package market

import (
	"math/rand"
)

// EventChance is the probability that a new economic event starts on a travel action.
const EventChance = 0.20

type EventDef struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Products     []string `json:"products,omitempty"`
	MarketWide   bool     `json:"market_wide"`
	Multiplier   float64  `json:"multiplier"`
	DurationDays int      `json:"duration_days"`
	Weight       int      `json:"weight"`
}

type ActiveEvent struct {
	ID       string `json:"id"`
	StartDay int    `json:"start_day"`
	EndDay   int    `json:"end_day"`
}

var events = []EventDef{
	{
		ID: "oil_crisis", Name: "Oil Crisis",
		Description: "Pipeline sabotage sends energy prices soaring.",
		Products:    []string{"crude_oil", "natural_gas"}, Multiplier: 1.6, DurationDays: 5, Weight: 8,
	},
	{
		ID: "tech_boom", Name: "Tech Boom",
		Description: "A gadget craze lifts technology prices.",
		Products:    []string{"electronics", "semiconductors"}, Multiplier: 1.4, DurationDays: 7, Weight: 8,
	},
	{
		ID: "chip_shortage", Name: "Chip Shortage",
		Description: "Fab outages squeeze chip supply.",
		Products:    []string{"semiconductors", "electronics", "machinery"}, Multiplier: 1.7, DurationDays: 5, Weight: 5,
	},
	{
		ID: "harvest_failure", Name: "Harvest Failure",
		Description: "Drought ruins crops across the growing belts.",
		Products:    []string{"wheat", "coffee", "cotton"}, Multiplier: 1.5, DurationDays: 6, Weight: 8,
	},
	{
		ID: "bumper_harvest", Name: "Bumper Harvest",
		Description: "Record yields flood the market with crops.",
		Products:    []string{"wheat", "coffee", "cotton"}, Multiplier: 0.7, DurationDays: 5, Weight: 8,
	},
	{
		ID: "mining_strike", Name: "Mining Strike",
		Description: "Miners down tools; ore and metal get scarce.",
		Products:    []string{"iron_ore", "copper", "gold"}, Multiplier: 1.45, DurationDays: 4, Weight: 7,
	},
	{
		ID: "luxury_craze", Name: "Luxury Craze",
		Description: "Celebrity endorsements spark a luxury buying spree.",
		Products:    []string{"gold", "diamonds", "fine_wine", "spices"}, Multiplier: 1.3, DurationDays: 6, Weight: 6,
	},
	{
		ID: "trade_war", Name: "Trade War",
		Description: "Tariffs drive up the price of manufactured imports.",
		Products:    []string{"machinery", "textiles", "electronics"}, Multiplier: 1.35, DurationDays: 5, Weight: 6,
	},
	{
		ID: "timber_glut", Name: "Timber Glut",
		Description: "Cleared forests leave yards overflowing with logs.",
		Products:    []string{"timber"}, Multiplier: 0.6, DurationDays: 4, Weight: 5,
	},
	{
		ID: "market_crash", Name: "Market Crash",
		Description: "Panic selling drags every price down.",
		MarketWide:  true, Multiplier: 0.7, DurationDays: 4, Weight: 4,
	},
	{
		ID: "economic_boom", Name: "Economic Boom",
		Description: "Easy credit lifts prices across the board.",
		MarketWide:  true, Multiplier: 1.25, DurationDays: 6, Weight: 4,
	},
}

var eventIndex = map[string]int{}

func init() {
	for i, e := range events {
		eventIndex[e.ID] = i
	}
}

func Events() []EventDef {
	out := make([]EventDef, len(events))
	copy(out, events)
	return out
}

func LookupEvent(id string) (EventDef, bool) {
	i, ok := eventIndex[id]
	if !ok {
		return EventDef{}, false
	}
	return events[i], true
}

func (e EventDef) Affects(productID string) bool {
	if e.MarketWide {
		return true
	}
	for _, p := range e.Products {
		if p == productID {
			return true
		}
	}
	return false
}

// EventModifier multiplies together every active event touching the product.
// Unknown event ids are ignored so old saves keep loading after the table changes.
func EventModifier(productID string, active []ActiveEvent) float64 {
	mod := 1.0
	for _, a := range active {
		def, ok := LookupEvent(a.ID)
		if !ok {
			continue
		}
		if def.Affects(productID) {
			mod *= def.Multiplier
		}
	}
	return mod
}

// RollEvent draws at most one new event. It returns false when the roll misses or
// every event is already running.
func RollEvent(rng *rand.Rand, day int, active []ActiveEvent) (ActiveEvent, bool) {
	if rng.Float64() >= EventChance {
		return ActiveEvent{}, false
	}
	running := make(map[string]bool, len(active))
	for _, a := range active {
		running[a.ID] = true
	}
	total := 0
	for _, e := range events {
		if !running[e.ID] {
			total += e.Weight
		}
	}
	if total == 0 {
		return ActiveEvent{}, false
	}
	pick := rng.Intn(total)
	for _, e := range events {
		if running[e.ID] {
			continue
		}
		if pick < e.Weight {
			return ActiveEvent{ID: e.ID, StartDay: day, EndDay: day + e.DurationDays}, true
		}
		pick -= e.Weight
	}
	return ActiveEvent{}, false
}

func ExpireEvents(day int, active []ActiveEvent) []ActiveEvent {
	out := active[:0:0]
	for _, a := range active {
		if a.EndDay > day {
			out = append(out, a)
		}
	}
	return out
}
