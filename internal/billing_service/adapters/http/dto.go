package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
)

// FlexibleAmount accepts a JSON number or a numeric string ("5000").
type FlexibleAmount int64

func (a *FlexibleAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*a = 0
			return nil
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("amount must be a whole number, got %s", string(data))
	}
	*a = FlexibleAmount(n)
	return nil
}

// InitiatePaymentRequest is the POST /v1/payments body.
type InitiatePaymentRequest struct {
	Provider       string         `json:"provider"`
	PurposeType    string         `json:"purposeType"`
	TenantID       string         `json:"tenantId"`
	SubordinateID  string         `json:"subordinateId,omitempty"`
	Amount         FlexibleAmount `json:"amount"`
	PayerEmail     string         `json:"payerEmail,omitempty"`
	PayerName      string         `json:"payerName,omitempty"`
	PayerPhone     string         `json:"payerPhone,omitempty"`
	Description    string         `json:"description,omitempty"`
	IdempotencyKey string         `json:"idempotencyKey,omitempty"`
}

func (r InitiatePaymentRequest) toDomain() domain.PaymentIntent {
	return domain.PaymentIntent{
		Provider:       domain.Provider(strings.ToLower(strings.TrimSpace(r.Provider))),
		PurposeType:    domain.PurposeType(r.PurposeType),
		TenantID:       r.TenantID,
		SubordinateID:  r.SubordinateID,
		Amount:         int64(r.Amount),
		PayerEmail:     r.PayerEmail,
		PayerName:      r.PayerName,
		PayerPhone:     r.PayerPhone,
		Description:    r.Description,
		IdempotencyKey: r.IdempotencyKey,
	}
}

// PlansResponse wraps the catalog for GET /v1/plans.
type PlansResponse struct {
	Plans []domain.PlanTier `json:"plans"`
}

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Error string `json:"error"`
}
