package app

import (
	"github.com/ecolix/golang_services/internal/billing_service/domain"
)

// ComputeProjection prices a subscription against a usage snapshot. It is pure:
// the same inputs always give the same projection. The only failure is a plan
// name missing from the catalog.
func ComputeProjection(sub domain.SubscriptionRecord, usage domain.UsageSnapshot) (domain.BillingProjection, error) {
	plan, err := domain.LookupPlan(sub.Plan)
	if err != nil {
		return domain.BillingProjection{}, err
	}

	var supplements domain.Supplements
	supplements.Students = overage(usage.StudentsCount, plan.IncludedStudents) * plan.PerStudentOverageRate
	supplements.Cycles = overage(usage.CyclesCount, plan.IncludedCycles) * plan.PerCycleOverageRate

	var unknown []string
	seen := make(map[string]struct{}, len(sub.ActiveModules))
	for _, module := range sub.ActiveModules {
		if _, dup := seen[module]; dup {
			continue
		}
		seen[module] = struct{}{}

		price, ok := domain.LookupModulePrice(module)
		if !ok {
			unknown = append(unknown, module)
			continue
		}
		supplements.Modules += price
	}

	return domain.BillingProjection{
		Base:           plan.BasePrice,
		Supplements:    supplements,
		Total:          plan.BasePrice + supplements.Students + supplements.Cycles + supplements.Modules,
		UnknownModules: unknown,
	}, nil
}

// overage is how far used goes past included. An unlimited quota never overflows.
func overage(used, included int64) int64 {
	if included == domain.Unlimited || used <= included {
		return 0
	}
	return used - included
}

// BuildUsageReport compares usage with each of the plan's quotas.
func BuildUsageReport(plan domain.PlanTier, usage domain.UsageSnapshot) domain.UsageReport {
	return domain.UsageReport{
		Plan:     plan.Name,
		Students: countQuota(usage.StudentsCount, plan.IncludedStudents),
		Cycles:   countQuota(usage.CyclesCount, plan.IncludedCycles),
		Storage:  storageQuota(usage.StorageUsedGB, plan.StorageLimitGB),
	}
}

func countQuota(used, limit int64) domain.QuotaUsage {
	if limit == domain.Unlimited {
		return domain.QuotaUsage{Used: float64(used), Limit: -1, Unlimited: true}
	}
	return domain.QuotaUsage{Used: float64(used), Limit: float64(limit), Exceeded: used > limit}
}

func storageQuota(usedGB, limitGB float64) domain.QuotaUsage {
	if limitGB == domain.UnlimitedStorage {
		return domain.QuotaUsage{Used: usedGB, Limit: -1, Unlimited: true}
	}
	return domain.QuotaUsage{Used: usedGB, Limit: limitGB, Exceeded: usedGB > limitGB}
}
