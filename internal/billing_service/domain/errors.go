package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPlan means a stored subscription names a plan missing from the
	// catalog. It signals data corruption.
	ErrUnknownPlan = errors.New("unknown plan")
	// ErrProviderNotConfigured means the provider's credentials are missing.
	ErrProviderNotConfigured = errors.New("payment provider not configured")
	ErrTenantNotFound        = errors.New("tenant not found")
	ErrInvalidSignature      = errors.New("webhook signature verification failed")
	ErrAmountMismatch        = errors.New("callback amount does not match reference")
	ErrIdempotencyInFlight   = errors.New("a payment with this idempotency key is already in progress")
	ErrCallbackNotSupported  = errors.New("provider does not support callbacks")
	// ErrCallbackIgnored marks well-formed callbacks that carry no settlement.
	ErrCallbackIgnored = errors.New("callback event ignored")
	// ErrCallbackTokenNotFound means no notification token is held for an
	// order, either because it was never issued or it was already settled.
	ErrCallbackTokenNotFound = errors.New("callback token not found")
)

// MissingParameterError is returned before any provider call when a required
// intent field is absent.
type MissingParameterError struct {
	Field string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter: %s", e.Field)
}

// InvalidParameterError is returned when a field is present but unusable.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported payment provider: %q", e.Provider)
}

type DecodeError struct {
	Token  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid reference token %q: %s", e.Token, e.Reason)
}

// MeasurementError names the usage sub-query that failed.
type MeasurementError struct {
	Query string
	Err   error
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("usage measurement failed on %s: %v", e.Query, e.Err)
}

func (e *MeasurementError) Unwrap() error { return e.Err }

// UpstreamError wraps a failure reported by, or on the way to, a gateway.
// Message is the provider's own text when it gave one.
type UpstreamError struct {
	Provider   Provider
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "payment initiation failed"
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Kind groups errors by who has to act on them.
type Kind int

const (
	KindInternal Kind = iota
	KindConfiguration
	KindClientInput
	KindUpstream
	KindMeasurement
	KindConflict
	KindNotFound
)

// ErrorKind classifies err for transport layers.
func ErrorKind(err error) Kind {
	var (
		missing     *MissingParameterError
		invalid     *InvalidParameterError
		unsupported *UnsupportedProviderError
		decode      *DecodeError
		measurement *MeasurementError
		upstream    *UpstreamError
	)
	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &missing), errors.As(err, &invalid), errors.As(err, &unsupported),
		errors.As(err, &decode), errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrAmountMismatch):
		return KindClientInput
	case errors.Is(err, ErrUnknownPlan), errors.Is(err, ErrProviderNotConfigured):
		return KindConfiguration
	case errors.As(err, &measurement):
		return KindMeasurement
	case errors.As(err, &upstream):
		return KindUpstream
	case errors.Is(err, ErrIdempotencyInFlight):
		return KindConflict
	case errors.Is(err, ErrTenantNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
