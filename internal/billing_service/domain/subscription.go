package domain

import "fmt"

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// ParseSubscriptionStatus rejects values outside the four known states.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch status := SubscriptionStatus(s); status {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue, SubscriptionCanceled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown subscription status %q", s)
	}
}

// SubscriptionRecord is the subscription part of the tenant aggregate. The
// billing engine only reads it.
type SubscriptionRecord struct {
	TenantID      string             `json:"tenant_id"`
	Plan          PlanName           `json:"plan"`
	Status        SubscriptionStatus `json:"status"`
	ActiveModules []string           `json:"active_modules"`
}
