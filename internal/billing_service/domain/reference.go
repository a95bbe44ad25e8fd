package domain

import (
	"strconv"
	"strings"
)

// ReferenceDelimiter separates the four fields of a reference token.
// Identifiers containing it cannot round-trip.
const ReferenceDelimiter = "|"

const referenceFieldCount = 4

// Reference is the decoded content of a reference token.
type Reference struct {
	PurposeType   PurposeType `json:"purpose_type"`
	TenantID      string      `json:"tenant_id"`
	SubordinateID string      `json:"subordinate_id"`
	Amount        int64       `json:"amount"`
}

// EncodeReference joins the fields into the opaque token handed to providers as
// their client reference. It never fails.
func EncodeReference(purpose PurposeType, tenantID, subordinateID string, amount int64) string {
	return strings.Join([]string{
		string(purpose),
		tenantID,
		subordinateID,
		strconv.FormatInt(amount, 10),
	}, ReferenceDelimiter)
}

// DecodeReference splits a token produced by EncodeReference. The amount must
// be a plain run of decimal digits.
func DecodeReference(token string) (Reference, error) {
	parts := strings.Split(token, ReferenceDelimiter)
	if len(parts) != referenceFieldCount {
		return Reference{}, &DecodeError{Token: token, Reason: "expected 4 fields, got " + strconv.Itoa(len(parts))}
	}

	amountPart := parts[3]
	if amountPart == "" || strings.TrimLeft(amountPart, "0123456789") != "" {
		return Reference{}, &DecodeError{Token: token, Reason: "amount is not a non-negative integer"}
	}
	amount, err := strconv.ParseInt(amountPart, 10, 64)
	if err != nil {
		return Reference{}, &DecodeError{Token: token, Reason: "amount out of range"}
	}

	return Reference{
		PurposeType:   PurposeType(parts[0]),
		TenantID:      parts[1],
		SubordinateID: parts[2],
		Amount:        amount,
	}, nil
}

// ContainsDelimiter reports whether s would break a reference token.
func ContainsDelimiter(s string) bool {
	return strings.Contains(s, ReferenceDelimiter)
}
