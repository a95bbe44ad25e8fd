package domain

// Supplements are the charges added on top of the plan's base price.
type Supplements struct {
	Students int64 `json:"students"`
	Cycles   int64 `json:"cycles"`
	Modules  int64 `json:"modules"`
}

// BillingProjection is the amount a tenant would be billed for the current
// period. Total is always Base plus every supplement.
type BillingProjection struct {
	Base        int64       `json:"base"`
	Supplements Supplements `json:"supplements"`
	Total       int64       `json:"total"`

	// UnknownModules lists active module ids missing from the add-on table.
	// They contributed nothing to Supplements.Modules.
	UnknownModules []string `json:"-"`
}
