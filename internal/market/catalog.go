package market

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const CentsPerDollar = int64(100)

type Category string

const (
	CategoryRaw          Category = "raw_materials"
	CategoryAgriculture  Category = "agriculture"
	CategoryEnergy       Category = "energy"
	CategoryManufactured Category = "manufactured"
	CategoryTechnology   Category = "technology"
	CategoryLuxury       Category = "luxury"
)

var Categories = []Category{
	CategoryRaw,
	CategoryAgriculture,
	CategoryEnergy,
	CategoryManufactured,
	CategoryTechnology,
	CategoryLuxury,
}

type Region string

const (
	NorthAmerica Region = "north_america"
	SouthAmerica Region = "south_america"
	Europe       Region = "europe"
	Africa       Region = "africa"
	Asia         Region = "asia"
	Oceania      Region = "oceania"
	MiddleEast   Region = "middle_east"
)

var Regions = []Region{NorthAmerica, SouthAmerica, Europe, Africa, Asia, Oceania, MiddleEast}

var (
	ErrUnknownProduct = errors.New("unknown product")
	ErrUnknownRegion  = errors.New("unknown region")
)

type Product struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Category           Category `json:"category"`
	MinPrice           int64    `json:"min_price_cents"`
	MaxPrice           int64    `json:"max_price_cents"`
	StorageUnits       int      `json:"storage_units"`
	RequiredReputation int      `json:"required_reputation"`
	BaseSupply         float64  `json:"base_supply"`
	BaseDemand         float64  `json:"base_demand"`
}

type Location struct {
	Region      Region               `json:"region"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Supply      map[Category]float64 `json:"supply"`
	Demand      map[Category]float64 `json:"demand"`
}

func dollars(v int64) int64 { return v * CentsPerDollar }

var products = []Product{
	{"iron_ore", "Iron Ore", CategoryRaw, dollars(40), dollars(80), 3, 0, 70, 50},
	{"copper", "Copper", CategoryRaw, dollars(90), dollars(160), 3, 0, 60, 55},
	{"timber", "Timber", CategoryRaw, dollars(30), dollars(60), 4, 0, 75, 45},
	{"wheat", "Wheat", CategoryAgriculture, dollars(20), dollars(45), 2, 0, 80, 60},
	{"cotton", "Cotton", CategoryAgriculture, dollars(35), dollars(70), 2, 0, 65, 55},
	{"coffee", "Coffee", CategoryAgriculture, dollars(60), dollars(120), 1, 10, 55, 65},
	{"crude_oil", "Crude Oil", CategoryEnergy, dollars(70), dollars(140), 4, 10, 60, 70},
	{"natural_gas", "Natural Gas", CategoryEnergy, dollars(50), dollars(100), 3, 20, 55, 60},
	{"textiles", "Textiles", CategoryManufactured, dollars(80), dollars(150), 2, 10, 60, 60},
	{"machinery", "Machinery", CategoryManufactured, dollars(300), dollars(550), 5, 30, 45, 55},
	{"electronics", "Electronics", CategoryTechnology, dollars(250), dollars(480), 1, 25, 50, 70},
	{"semiconductors", "Semiconductors", CategoryTechnology, dollars(600), dollars(1100), 1, 50, 35, 75},
	{"spices", "Spices", CategoryLuxury, dollars(150), dollars(300), 1, 20, 40, 60},
	{"fine_wine", "Fine Wine", CategoryLuxury, dollars(400), dollars(800), 2, 35, 40, 55},
	{"gold", "Gold", CategoryLuxury, dollars(1200), dollars(2000), 1, 40, 30, 60},
	{"diamonds", "Diamonds", CategoryLuxury, dollars(2500), dollars(4500), 1, 70, 20, 55},
}

func mults(raw, agri, energy, manu, tech, lux float64) map[Category]float64 {
	return map[Category]float64{
		CategoryRaw:          raw,
		CategoryAgriculture:  agri,
		CategoryEnergy:       energy,
		CategoryManufactured: manu,
		CategoryTechnology:   tech,
		CategoryLuxury:       lux,
	}
}

var locations = []Location{
	{
		Region:      NorthAmerica,
		Name:        "North America",
		Description: "Deep consumer market with strong appetite for technology.",
		Supply:      mults(1.0, 1.3, 1.1, 1.0, 1.2, 0.8),
		Demand:      mults(0.9, 0.8, 1.2, 1.1, 1.3, 1.2),
	},
	{
		Region:      SouthAmerica,
		Name:        "South America",
		Description: "Farmland and mines; coffee flows north from here.",
		Supply:      mults(1.3, 1.4, 1.0, 0.7, 0.6, 0.9),
		Demand:      mults(0.8, 0.7, 1.0, 1.2, 1.2, 0.9),
	},
	{
		Region:      Europe,
		Name:        "Europe",
		Description: "Wealthy buyers of luxury goods and a hub for machinery.",
		Supply:      mults(0.7, 1.0, 0.6, 1.3, 1.1, 1.2),
		Demand:      mults(1.2, 1.0, 1.3, 0.9, 1.1, 1.4),
	},
	{
		Region:      Africa,
		Name:        "Africa",
		Description: "Rich in raw materials; luxury demand is thin.",
		Supply:      mults(1.5, 1.1, 1.2, 0.6, 0.5, 1.1),
		Demand:      mults(0.7, 1.1, 0.9, 1.3, 1.2, 0.7),
	},
	{
		Region:      Asia,
		Name:        "Asia",
		Description: "The world's factory floor, hungry for raw inputs.",
		Supply:      mults(0.8, 1.0, 0.7, 1.5, 1.5, 0.9),
		Demand:      mults(1.4, 1.2, 1.3, 0.8, 0.9, 1.1),
	},
	{
		Region:      Oceania,
		Name:        "Oceania",
		Description: "Minerals and wool with a small but picky consumer base.",
		Supply:      mults(1.4, 1.2, 1.0, 0.6, 0.7, 0.9),
		Demand:      mults(0.8, 0.9, 1.0, 1.2, 1.1, 1.0),
	},
	{
		Region:      MiddleEast,
		Name:        "Middle East",
		Description: "Energy exporter with a taste for gold.",
		Supply:      mults(0.8, 0.6, 1.6, 0.7, 0.7, 1.0),
		Demand:      mults(1.0, 1.3, 0.6, 1.1, 1.1, 1.3),
	},
}

// distance is the travel time in days between two regions.
var distance = map[[2]Region]int{
	{NorthAmerica, SouthAmerica}: 2,
	{NorthAmerica, Europe}:       2,
	{NorthAmerica, Africa}:       3,
	{NorthAmerica, Asia}:         3,
	{NorthAmerica, Oceania}:      4,
	{NorthAmerica, MiddleEast}:   3,
	{SouthAmerica, Europe}:       3,
	{SouthAmerica, Africa}:       2,
	{SouthAmerica, Asia}:         4,
	{SouthAmerica, Oceania}:      3,
	{SouthAmerica, MiddleEast}:   4,
	{Europe, Africa}:             1,
	{Europe, Asia}:               2,
	{Europe, Oceania}:            4,
	{Europe, MiddleEast}:         1,
	{Africa, Asia}:               3,
	{Africa, Oceania}:            3,
	{Africa, MiddleEast}:         1,
	{Asia, Oceania}:              2,
	{Asia, MiddleEast}:           1,
	{Oceania, MiddleEast}:        3,
}

var (
	productIndex  = map[string]int{}
	locationIndex = map[Region]int{}
)

func init() {
	for i, p := range products {
		productIndex[p.ID] = i
	}
	for i, l := range locations {
		locationIndex[l.Region] = i
	}
}

// Catalog returns every product, ordered by unlock tier then name.
func Catalog() []Product {
	out := make([]Product, len(products))
	copy(out, products)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RequiredReputation != out[j].RequiredReputation {
			return out[i].RequiredReputation < out[j].RequiredReputation
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func Lookup(id string) (Product, error) {
	i, ok := productIndex[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Product{}, fmt.Errorf("%w: %q", ErrUnknownProduct, id)
	}
	return products[i], nil
}

func Locations() []Location {
	out := make([]Location, len(locations))
	copy(out, locations)
	return out
}

func LocationFor(region Region) (Location, error) {
	i, ok := locationIndex[region]
	if !ok {
		return Location{}, fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	return locations[i], nil
}

// ParseRegion accepts ids ("middle_east") as well as display names ("Middle East").
func ParseRegion(s string) (Region, error) {
	clean := strings.ToLower(strings.TrimSpace(s))
	clean = strings.NewReplacer(" ", "_", "-", "_").Replace(clean)
	r := Region(clean)
	if _, ok := locationIndex[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRegion, s)
	}
	return r, nil
}

// TravelDays returns the days needed to sail between two regions, 0 for the same region.
func TravelDays(from, to Region) int {
	if from == to {
		return 0
	}
	if d, ok := distance[[2]Region{from, to}]; ok {
		return d
	}
	if d, ok := distance[[2]Region{to, from}]; ok {
		return d
	}
	return 0
}
