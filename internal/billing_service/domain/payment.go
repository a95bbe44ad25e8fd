package domain

import (
	"encoding/json"
	"fmt"
)

// Provider names a payment gateway.
type Provider string

const (
	ProviderStripe   Provider = "stripe"
	ProviderWave     Provider = "wave"
	ProviderGenius   Provider = "genius"
	ProviderPayDunya Provider = "paydunya"
	ProviderOrange   Provider = "orange"
	ProviderMTN      Provider = "mtn"
)

// Providers lists every gateway the dispatcher knows how to talk to.
var Providers = []Provider{ProviderStripe, ProviderWave, ProviderGenius, ProviderPayDunya, ProviderOrange, ProviderMTN}

// PurposeType tells what a payment is for.
type PurposeType string

const (
	PurposeSubscription PurposeType = "subscription"
	PurposeTuition      PurposeType = "tuition"
)

// DefaultDescription is the label shown to the payer when the caller gave none.
func (p PurposeType) DefaultDescription() string {
	switch p {
	case PurposeTuition:
		return "Frais de scolarité"
	case PurposeSubscription:
		return "Abonnement Ecolix"
	default:
		return "Paiement Ecolix"
	}
}

// PaymentIntent is one checkout attempt. It is never persisted by the billing
// service. SubordinateID holds a student id for tuition and a duration token
// (e.g. "monthly") for subscriptions.
type PaymentIntent struct {
	Provider       Provider    `json:"provider" validate:"required"`
	PurposeType    PurposeType `json:"purposeType" validate:"required,oneof=subscription tuition"`
	TenantID       string      `json:"tenantId" validate:"required"`
	SubordinateID  string      `json:"subordinateId,omitempty"`
	Amount         int64       `json:"amount" validate:"required,gt=0"`
	PayerEmail     string      `json:"payerEmail,omitempty" validate:"omitempty,email"`
	PayerName      string      `json:"payerName,omitempty"`
	PayerPhone     string      `json:"payerPhone,omitempty"`
	Description    string      `json:"description,omitempty"`
	IdempotencyKey string      `json:"idempotencyKey,omitempty"`
}

// ResolvedDescription returns Description or the purpose's default label.
func (i PaymentIntent) ResolvedDescription() string {
	if i.Description != "" {
		return i.Description
	}
	return i.PurposeType.DefaultDescription()
}

// Reference builds the reconciliation token for this intent.
func (i PaymentIntent) Reference() string {
	return EncodeReference(i.PurposeType, i.TenantID, i.SubordinateID, i.Amount)
}

// PushAcknowledgement is the outcome of a provider-initiated push flow, where
// the payer confirms on their phone instead of following a redirect.
type PushAcknowledgement struct {
	Accepted   bool
	Message    string
	PendingURL string
}

// PaymentInitiationResult is either a redirect (RedirectURL set) or a push
// acknowledgement (Push set).
type PaymentInitiationResult struct {
	RedirectURL string
	Push        *PushAcknowledgement
}

func NewRedirectResult(url string) *PaymentInitiationResult {
	return &PaymentInitiationResult{RedirectURL: url}
}

func NewPushResult(accepted bool, message, pendingURL string) *PaymentInitiationResult {
	return &PaymentInitiationResult{Push: &PushAcknowledgement{Accepted: accepted, Message: message, PendingURL: pendingURL}}
}

// IsPush reports whether the result came from a push flow.
func (r PaymentInitiationResult) IsPush() bool { return r.Push != nil }

type redirectWire struct {
	URL string `json:"url"`
}

type pushWire struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// MarshalJSON emits {url} for redirects and {success, message, url} for pushes.
func (r PaymentInitiationResult) MarshalJSON() ([]byte, error) {
	if r.Push != nil {
		return json.Marshal(pushWire{Success: r.Push.Accepted, Message: r.Push.Message, URL: r.Push.PendingURL})
	}
	return json.Marshal(redirectWire{URL: r.RedirectURL})
}

func (r *PaymentInitiationResult) UnmarshalJSON(data []byte) error {
	var wire struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode payment initiation result: %w", err)
	}
	if wire.Success != nil {
		*r = PaymentInitiationResult{Push: &PushAcknowledgement{Accepted: *wire.Success, Message: wire.Message, PendingURL: wire.URL}}
		return nil
	}
	*r = PaymentInitiationResult{RedirectURL: wire.URL}
	return nil
}
