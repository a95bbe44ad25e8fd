package domain

// PlanName identifies a subscription tier.
type PlanName string

const (
	PlanEssentiel PlanName = "Essentiel"
	PlanPro       PlanName = "Pro"
	PlanPremium   PlanName = "Premium"
)

// Unlimited marks an integer quota without a ceiling.
const Unlimited int64 = -1

// UnlimitedStorage marks a storage quota without a ceiling.
const UnlimitedStorage float64 = -1

// PlanTier is a row of the static plan catalog. Prices and rates are in
// minor currency units (CFA francs).
type PlanTier struct {
	Name                  PlanName `json:"name"`
	IncludedStudents      int64    `json:"included_students"` // Unlimited (-1) when uncapped
	IncludedCycles        int64    `json:"included_cycles"`   // Unlimited (-1) when uncapped
	BasePrice             int64    `json:"base_price"`
	StorageLimitGB        float64  `json:"storage_limit_gb"` // UnlimitedStorage (-1) when uncapped
	PerStudentOverageRate int64    `json:"per_student_overage_rate"`
	PerCycleOverageRate   int64    `json:"per_cycle_overage_rate"`
	Features              []string `json:"features"`
}

func (p PlanTier) UnlimitedStudents() bool { return p.IncludedStudents == Unlimited }
func (p PlanTier) UnlimitedCycles() bool   { return p.IncludedCycles == Unlimited }
func (p PlanTier) UnlimitedStorage() bool  { return p.StorageLimitGB == UnlimitedStorage }

// HasFeature reports whether feature is part of the tier.
func (p PlanTier) HasFeature(feature string) bool {
	for _, f := range p.Features {
		if f == feature {
			return true
		}
	}
	return false
}
