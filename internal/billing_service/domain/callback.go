package domain

import (
	"net/http"
	"net/url"
	"time"
)

type CallbackStatus string

const (
	CallbackSucceeded CallbackStatus = "succeeded"
	CallbackFailed    CallbackStatus = "failed"
	CallbackPending   CallbackStatus = "pending"
)

// CallbackRequest is the raw webhook delivery handed to a provider parser.
type CallbackRequest struct {
	Payload []byte
	Header  http.Header
	Query   url.Values
}

// PaymentCallback is a provider callback normalized to our vocabulary.
// Amount is nil when the provider does not report one.
type PaymentCallback struct {
	Provider      Provider
	Reference     string
	Status        CallbackStatus
	ProviderTxnID string
	Amount        *int64
}

// PaymentSettledEvent is published for the store's webhook consumers once a
// callback has been reconciled to its reference.
type PaymentSettledEvent struct {
	Provider      Provider       `json:"provider"`
	PurposeType   PurposeType    `json:"purpose_type"`
	TenantID      string         `json:"tenant_id"`
	SubordinateID string         `json:"subordinate_id"`
	Amount        int64          `json:"amount"`
	Status        CallbackStatus `json:"status"`
	ProviderTxnID string         `json:"provider_txn_id,omitempty"`
	Reference     string         `json:"reference"`
	ReceivedAt    time.Time      `json:"received_at"`
}

// Subject is the NATS subject the event is published on.
func (e PaymentSettledEvent) Subject() string {
	return "billing.payments." + string(e.PurposeType) + "." + string(e.Status)
}

// MessageID identifies the delivery for stream-side deduplication.
func (e PaymentSettledEvent) MessageID() string {
	id := e.ProviderTxnID
	if id == "" {
		id = e.Reference
	}
	return string(e.Provider) + ":" + id + ":" + string(e.Status)
}
