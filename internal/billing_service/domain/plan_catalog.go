package domain

import "fmt"

// Add-on module identifiers, as stored in a subscription's active modules.
const (
	ModuleTransport  = "transport"
	ModuleCanteen    = "canteen"
	ModuleLibrary    = "library"
	ModuleDiscipline = "discipline"
	ModuleHR         = "hr"
	ModuleMessaging  = "messaging"
)

var planOrder = []PlanName{PlanEssentiel, PlanPro, PlanPremium}

var planCatalog = map[PlanName]PlanTier{
	PlanEssentiel: {
		Name:                  PlanEssentiel,
		IncludedStudents:      50,
		IncludedCycles:        1,
		BasePrice:             15000,
		StorageLimitGB:        1,
		PerStudentOverageRate: 500,
		PerCycleOverageRate:   10000,
		Features:              []string{"students", "billing", "attendance"},
	},
	PlanPro: {
		Name:                  PlanPro,
		IncludedStudents:      300,
		IncludedCycles:        3,
		BasePrice:             45000,
		StorageLimitGB:        10,
		PerStudentOverageRate: 300,
		PerCycleOverageRate:   7500,
		Features:              []string{"students", "billing", "attendance", "grades", "messaging", "reports"},
	},
	PlanPremium: {
		Name:                  PlanPremium,
		IncludedStudents:      Unlimited,
		IncludedCycles:        Unlimited,
		BasePrice:             95000,
		StorageLimitGB:        UnlimitedStorage,
		PerStudentOverageRate: 0,
		PerCycleOverageRate:   0,
		Features:              []string{"students", "billing", "attendance", "grades", "messaging", "reports", "hr", "api_access", "priority_support"},
	},
}

// modulePrices is the monthly price of each optional add-on.
var modulePrices = map[string]int64{
	ModuleTransport:  5000,
	ModuleCanteen:    5000,
	ModuleLibrary:    3000,
	ModuleDiscipline: 2000,
	ModuleHR:         7500,
	ModuleMessaging:  2500,
}

// LookupPlan returns the tier registered under name, or ErrUnknownPlan.
func LookupPlan(name PlanName) (PlanTier, error) {
	plan, ok := planCatalog[name]
	if !ok {
		return PlanTier{}, fmt.Errorf("%w: %q", ErrUnknownPlan, name)
	}
	return plan, nil
}

// AllPlans returns the catalog in upgrade order, Essentiel first.
func AllPlans() []PlanTier {
	plans := make([]PlanTier, 0, len(planOrder))
	for _, name := range planOrder {
		plans = append(plans, planCatalog[name])
	}
	return plans
}

// LookupModulePrice returns the add-on price for moduleID.
func LookupModulePrice(moduleID string) (int64, bool) {
	price, ok := modulePrices[moduleID]
	return price, ok
}
