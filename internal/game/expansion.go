package game

import (
	"fmt"
	"math"
	"strings"

	"tycoon/internal/market"
)

type FacilityType string

const (
	Warehouse          FacilityType = "warehouse"
	Office             FacilityType = "office"
	DistributionCenter FacilityType = "distribution_center"
)

const (
	officeBuyDiscount   = 0.03
	officeReputation    = 5
	distributionSavings = 0.25
	facilityResaleRatio = 0.5
)

type facilitySpec struct {
	Type         FacilityType
	DisplayName  string
	Cost         int64
	Upkeep       int64
	StorageBonus int
	Description  string
}

var facilityCatalog = []facilitySpec{
	{Type: Warehouse, DisplayName: "Warehouse", Cost: 15_000 * CentsPerDollar, Upkeep: 50 * CentsPerDollar, StorageBonus: 100, Description: "+100 storage capacity"},
	{Type: Office, DisplayName: "Trade Office", Cost: 25_000 * CentsPerDollar, Upkeep: 100 * CentsPerDollar, Description: "+5 reputation, 3% buy discount and remote price intel for this region"},
	{Type: DistributionCenter, DisplayName: "Distribution Center", Cost: 40_000 * CentsPerDollar, Upkeep: 150 * CentsPerDollar, Description: "25% cheaper travel departing this region"},
}

type StaffRole string

const (
	Trader     StaffRole = "trader"
	Logistics  StaffRole = "logistics"
	Accountant StaffRole = "accountant"

	MaxStaffPerRole = 5

	traderSellBonus        = 0.01
	logisticsRiskFactor    = 0.85
	accountantBankBonus    = 0.0002
	accountantLoanDiscount = 0.0005
)

type staffSpec struct {
	Role        StaffRole
	DisplayName string
	HireCost    int64
	Salary      int64
	Description string
}

var staffCatalog = []staffSpec{
	{Role: Trader, DisplayName: "Trader", HireCost: 2_000 * CentsPerDollar, Salary: 80 * CentsPerDollar, Description: "+1% on every sale"},
	{Role: Logistics, DisplayName: "Logistics Manager", HireCost: 2_500 * CentsPerDollar, Salary: 100 * CentsPerDollar, Description: "travel incidents 15% less likely"},
	{Role: Accountant, DisplayName: "Accountant", HireCost: 3_000 * CentsPerDollar, Salary: 120 * CentsPerDollar, Description: "+0.02%/day bank interest, -0.05%/day loan interest"},
}

type FacilityOption struct {
	Type        FacilityType `json:"type"`
	Name        string       `json:"name"`
	Cost        int64        `json:"cost_cents"`
	Upkeep      int64        `json:"upkeep_cents"`
	Description string       `json:"description"`
}

type StaffOption struct {
	Role        StaffRole `json:"role"`
	Name        string    `json:"name"`
	HireCost    int64     `json:"hire_cost_cents"`
	Salary      int64     `json:"salary_cents"`
	Description string    `json:"description"`
}

func FacilityOptions() []FacilityOption {
	out := make([]FacilityOption, 0, len(facilityCatalog))
	for _, f := range facilityCatalog {
		out = append(out, FacilityOption{Type: f.Type, Name: f.DisplayName, Cost: f.Cost, Upkeep: f.Upkeep, Description: f.Description})
	}
	return out
}

func StaffOptions() []StaffOption {
	out := make([]StaffOption, 0, len(staffCatalog))
	for _, s := range staffCatalog {
		out = append(out, StaffOption{Role: s.Role, Name: s.DisplayName, HireCost: s.HireCost, Salary: s.Salary, Description: s.Description})
	}
	return out
}

func facilityByType(kind string) (facilitySpec, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	for _, spec := range facilityCatalog {
		if string(spec.Type) == kind {
			return spec, nil
		}
	}
	return facilitySpec{}, fmt.Errorf("%w: %q", ErrUnknownFacility, kind)
}

func staffByRole(role string) (staffSpec, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, spec := range staffCatalog {
		if string(spec.Role) == role {
			return spec, nil
		}
	}
	return staffSpec{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
}

// Build constructs a facility at the current location.
func (g *State) Build(kind string) (Facility, error) {
	if err := g.ensureActive(); err != nil {
		return Facility{}, err
	}
	spec, err := facilityByType(kind)
	if err != nil {
		return Facility{}, err
	}
	if g.HasFacility(spec.Type, g.Location) {
		return Facility{}, fmt.Errorf("%w: %s in %s", ErrAlreadyBuilt, spec.Type, g.Location)
	}
	if g.Cash < spec.Cost {
		return Facility{}, fmt.Errorf("%w: %s costs %s", ErrInsufficientFunds, spec.DisplayName, FormatCents(spec.Cost))
	}
	g.Cash -= spec.Cost
	f := Facility{Type: spec.Type, Region: g.Location, BuiltDay: g.Day}
	g.Facilities = append(g.Facilities, f)
	if spec.Type == Office {
		g.addReputation(officeReputation)
	}
	g.logf("build", "Built a %s in %s for %s", spec.DisplayName, regionName(g.Location), FormatCents(spec.Cost))
	return f, nil
}

func (g *State) HasFacility(kind FacilityType, region market.Region) bool {
	for _, f := range g.Facilities {
		if f.Type == kind && f.Region == region {
			return true
		}
	}
	return false
}

func (g *State) Hire(role string) (int, error) {
	if err := g.ensureActive(); err != nil {
		return 0, err
	}
	spec, err := staffByRole(role)
	if err != nil {
		return 0, err
	}
	if g.Staff[spec.Role] >= MaxStaffPerRole {
		return g.Staff[spec.Role], fmt.Errorf("%w: %s (max %d)", ErrStaffLimit, spec.Role, MaxStaffPerRole)
	}
	if g.Cash < spec.HireCost {
		return g.Staff[spec.Role], fmt.Errorf("%w: hiring a %s costs %s", ErrInsufficientFunds, spec.DisplayName, FormatCents(spec.HireCost))
	}
	if g.Staff == nil {
		g.Staff = map[StaffRole]int{}
	}
	g.Cash -= spec.HireCost
	g.Staff[spec.Role]++
	g.logf("staff", "Hired a %s (%d on payroll)", spec.DisplayName, g.Staff[spec.Role])
	return g.Staff[spec.Role], nil
}

func (g *State) Fire(role string) (int, error) {
	if err := g.ensureActive(); err != nil {
		return 0, err
	}
	spec, err := staffByRole(role)
	if err != nil {
		return 0, err
	}
	if g.Staff[spec.Role] <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoStaff, spec.Role)
	}
	g.Staff[spec.Role]--
	g.logf("staff", "Let a %s go (%d left)", spec.DisplayName, g.Staff[spec.Role])
	return g.Staff[spec.Role], nil
}

// DailyCosts is the upkeep of every facility plus staff salaries.
func (g *State) DailyCosts() int64 {
	var total int64
	for _, f := range g.Facilities {
		if spec, err := facilityByType(string(f.Type)); err == nil {
			total += spec.Upkeep
		}
	}
	for role, n := range g.Staff {
		if spec, err := staffByRole(string(role)); err == nil {
			total += spec.Salary * int64(n)
		}
	}
	return total
}

func (g *State) StorageCapacity() int {
	capacity := g.Rules.BaseStorage
	for _, f := range g.Facilities {
		if spec, err := facilityByType(string(f.Type)); err == nil {
			capacity += spec.StorageBonus
		}
	}
	return capacity
}

func (g *State) facilityValue() int64 {
	var total int64
	for _, f := range g.Facilities {
		if spec, err := facilityByType(string(f.Type)); err == nil {
			total += int64(math.Round(float64(spec.Cost) * facilityResaleRatio))
		}
	}
	return total
}

func (g *State) sellBonus() float64 {
	return traderSellBonus * float64(g.Staff[Trader])
}

func (g *State) riskFactor() float64 {
	return math.Pow(logisticsRiskFactor, float64(g.Staff[Logistics]))
}

func (g *State) bankRate() float64 {
	return g.Rules.BankDailyRate + accountantBankBonus*float64(g.Staff[Accountant])
}

func (g *State) loanRate() float64 {
	rate := g.Rules.LoanDailyRate - accountantLoanDiscount*float64(g.Staff[Accountant])
	if floor := g.Rules.LoanDailyRate / 4; rate < floor {
		return floor
	}
	return rate
}

func (g *State) buyDiscount(region market.Region) float64 {
	if g.HasFacility(Office, region) {
		return officeBuyDiscount
	}
	return 0
}

func (g *State) travelCost(from market.Region, days int) int64 {
	cost := g.Rules.TravelCostPerDay * int64(days)
	if g.HasFacility(DistributionCenter, from) {
		cost = int64(math.Round(float64(cost) * (1 - distributionSavings)))
	}
	return cost
}
