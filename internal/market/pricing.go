package market

import (
	"math"

	"github.com/ojrac/opensimplex-go"
)

const (
	DefaultSpreadRate       = 0.10
	SeasonalAmplitude       = 0.15
	MaxReputationDiscount   = 0.10
	MinAvailable            = 1
	MaxAvailable            = 25
	supplyPerAvailableUnit  = 4.0
	priceNoiseDayFrequency  = 0.18
	priceNoiseRegionSpacing = 7.3
)

type Quote struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Region    Region  `json:"region"`
	Day       int     `json:"day"`
	BasePrice int64   `json:"base_price_cents"`
	BuyPrice  int64   `json:"buy_price_cents"`
	SellPrice int64   `json:"sell_price_cents"`
	Available int     `json:"available"`
	Locked    bool    `json:"locked"`
	Tier      float64 `json:"tier"`
	Seasonal  float64 `json:"seasonal"`
	Event     float64 `json:"event"`
	Discount  float64 `json:"discount"`
}

type QuoteInput struct {
	ProductID  string
	Region     Region
	Day        int
	Reputation int
	Events     []ActiveEvent
}

// Pricer is deterministic for a given seed: the same product, region and day always
// resolve to the same base price.
type Pricer struct {
	noise      opensimplex.Noise
	totalDays  int
	spreadRate float64
}

func NewPricer(seed int64, totalDays int) *Pricer {
	if totalDays <= 0 {
		totalDays = 1
	}
	return &Pricer{
		noise:      opensimplex.NewNormalized(seed),
		totalDays:  totalDays,
		spreadRate: DefaultSpreadRate,
	}
}

// WithSpread overrides the sell spread. Values outside [0, 0.9] are ignored.
func (p *Pricer) WithSpread(rate float64) *Pricer {
	if rate >= 0 && rate <= 0.9 {
		p.spreadRate = rate
	}
	return p
}

func (p *Pricer) TotalDays() int { return p.totalDays }

func (p *Pricer) BasePrice(product Product, region Region, day int) int64 {
	x := float64(productIndex[product.ID])*priceNoiseRegionSpacing + float64(locationIndex[region])
	y := float64(day) * priceNoiseDayFrequency
	n := p.noise.Eval2(x, y)
	if n < 0 {
		n = 0
	}
	if n > 1 {
		n = 1
	}
	span := float64(product.MaxPrice - product.MinPrice)
	return product.MinPrice + int64(math.Round(span*n))
}

func (p *Pricer) Quote(in QuoteInput) (Quote, error) {
	product, err := Lookup(in.ProductID)
	if err != nil {
		return Quote{}, err
	}
	if _, err := LocationFor(in.Region); err != nil {
		return Quote{}, err
	}
	supply, demand := SupplyDemand(product, in.Region)

	q := Quote{
		ProductID: product.ID,
		Name:      product.Name,
		Region:    in.Region,
		Day:       in.Day,
		BasePrice: p.BasePrice(product, in.Region, in.Day),
		Tier:      TierMultiplier(demand / supply),
		Seasonal:  SeasonalModifier(in.Day, p.totalDays),
		Event:     EventModifier(product.ID, in.Events),
		Discount:  ReputationDiscount(in.Reputation),
		Available: AvailableQuantity(supply),
		Locked:    in.Reputation < product.RequiredReputation,
	}

	buy := math.Round(float64(q.BasePrice) * q.Tier * q.Seasonal * q.Event * q.Discount)
	q.BuyPrice = int64(buy)
	if q.BuyPrice < 1 {
		q.BuyPrice = 1
	}
	q.SellPrice = SellPrice(q.BuyPrice, p.spreadRate)
	return q, nil
}

// SellPrice takes the spread off a buy price. The result is at least one cent and
// strictly below buy whenever buy is above one cent.
func SellPrice(buy int64, spread float64) int64 {
	sell := buy - int64(math.Round(float64(buy)*spread))
	if sell >= buy {
		sell = buy - 1
	}
	return max(sell, 1)
}

// Board quotes every catalog product in one region.
func (p *Pricer) Board(region Region, day, reputation int, events []ActiveEvent) ([]Quote, error) {
	out := make([]Quote, 0, len(products))
	for _, product := range Catalog() {
		q, err := p.Quote(QuoteInput{
			ProductID:  product.ID,
			Region:     region,
			Day:        day,
			Reputation: reputation,
			Events:     events,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func SupplyDemand(product Product, region Region) (supply, demand float64) {
	loc, err := LocationFor(region)
	if err != nil {
		return product.BaseSupply, product.BaseDemand
	}
	supply = product.BaseSupply * multiplier(loc.Supply, product.Category)
	demand = product.BaseDemand * multiplier(loc.Demand, product.Category)
	if supply < 1 {
		supply = 1
	}
	if demand < 1 {
		demand = 1
	}
	return supply, demand
}

func multiplier(m map[Category]float64, c Category) float64 {
	if v, ok := m[c]; ok && v > 0 {
		return v
	}
	return 1
}

func TierMultiplier(ratio float64) float64 {
	switch {
	case ratio >= 1.5:
		return 1.30
	case ratio >= 1.2:
		return 1.15
	case ratio >= 0.8:
		return 1.00
	case ratio >= 0.5:
		return 0.85
	default:
		return 0.70
	}
}

// SeasonalModifier completes one full cycle over the length of the game.
func SeasonalModifier(day, totalDays int) float64 {
	if totalDays <= 0 {
		return 1
	}
	return 1 + SeasonalAmplitude*math.Sin(2*math.Pi*float64(day)/float64(totalDays))
}

func ReputationDiscount(reputation int) float64 {
	if reputation < 0 {
		reputation = 0
	}
	if reputation > 100 {
		reputation = 100
	}
	return 1 - float64(reputation)/100*MaxReputationDiscount
}

func AvailableQuantity(supply float64) int {
	n := int(math.Round(supply / supplyPerAvailableUnit))
	if n < MinAvailable {
		return MinAvailable
	}
	if n > MaxAvailable {
		return MaxAvailable
	}
	return n
}
