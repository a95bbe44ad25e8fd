package domain

// BytesPerGB converts stored bytes to the GB unit used by plan quotas.
const BytesPerGB = 1024 * 1024 * 1024

// UsageSnapshot is a tenant's consumption at query time. It is built fresh for
// every request and never cached.
type UsageSnapshot struct {
	StudentsCount int64   `json:"students_count"`
	CyclesCount   int64   `json:"cycles_count"`
	StorageUsedGB float64 `json:"storage_used_gb"`
}

// QuotaUsage compares one usage dimension against its plan limit.
type QuotaUsage struct {
	Used      float64 `json:"used"`
	Limit     float64 `json:"limit"`
	Unlimited bool    `json:"unlimited"`
	Exceeded  bool    `json:"exceeded"`
}

// UsageReport is what the dashboard shows next to the billing projection.
type UsageReport struct {
	Plan     PlanName   `json:"plan"`
	Students QuotaUsage `json:"students"`
	Cycles   QuotaUsage `json:"cycles"`
	Storage  QuotaUsage `json:"storage"`
}
