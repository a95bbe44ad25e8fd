package paymentgateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/go-playground/validator/v10"
)

// Dispatcher validates payment intents and routes them to the adapter of the
// selected provider. It performs no retries.
type Dispatcher struct {
	adapters    map[domain.Provider]Adapter
	validate    *validator.Validate
	idempotency IdempotencyStore
	logger      *slog.Logger
}

// NewDispatcher registers adapters by their Provider(). idempotency may be nil,
// in which case caller idempotency keys are only forwarded to providers that
// accept one.
func NewDispatcher(logger *slog.Logger, idempotency IdempotencyStore, adapters ...Adapter) *Dispatcher {
	registry := make(map[domain.Provider]Adapter, len(adapters))
	for _, a := range adapters {
		registry[a.Provider()] = a
	}
	return &Dispatcher{
		adapters:    registry,
		validate:    NewIntentValidator(),
		idempotency: idempotency,
		logger:      logger.With("component", "payment_dispatcher"),
	}
}

// NewIntentValidator reports field errors under their JSON names.
func NewIntentValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// InitiatePayment checks the intent and makes exactly one provider call.
// Every validation step runs before any network I/O.
func (d *Dispatcher) InitiatePayment(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error) {
	adapter, err := d.prepare(ctx, intent)
	if err != nil {
		paymentInitiationsCounter.WithLabelValues(providerLabel(d, intent.Provider), "rejected").Inc()
		d.logger.InfoContext(ctx, "Payment intent rejected", "provider", intent.Provider, "tenant_id", intent.TenantID, "error", err)
		return nil, err
	}

	if intent.IdempotencyKey == "" || d.idempotency == nil {
		return d.initiate(ctx, adapter, intent)
	}

	key := idempotencyKey(intent)
	replay, token, err := d.idempotency.Reserve(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrIdempotencyInFlight) {
			paymentInitiationsCounter.WithLabelValues(string(intent.Provider), "in_flight").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if replay != nil {
		paymentInitiationsCounter.WithLabelValues(string(intent.Provider), "replayed").Inc()
		d.logger.InfoContext(ctx, "Replaying stored payment initiation", "provider", intent.Provider, "tenant_id", intent.TenantID)
		return replay, nil
	}

	result, err := d.initiate(ctx, adapter, intent)
	if err != nil {
		if relErr := d.idempotency.Release(ctx, key, token); relErr != nil {
			d.logger.ErrorContext(ctx, "Failed to release idempotency key", "provider", intent.Provider, "error", relErr)
		}
		return nil, err
	}
	if err := d.idempotency.Complete(ctx, key, token, result); err != nil {
		// The provider call succeeded; the result is returned even if it cannot be stored.
		d.logger.ErrorContext(ctx, "Failed to store payment initiation result", "provider", intent.Provider, "error", err)
	}
	return result, nil
}

func (d *Dispatcher) prepare(ctx context.Context, intent domain.PaymentIntent) (Adapter, error) {
	if err := d.validate.StructCtx(ctx, intent); err != nil {
		return nil, validationError(err)
	}

	adapter, ok := d.adapters[intent.Provider]
	if !ok {
		return nil, &domain.UnsupportedProviderError{Provider: string(intent.Provider)}
	}

	if domain.ContainsDelimiter(intent.TenantID) {
		return nil, &domain.InvalidParameterError{Field: "tenantId", Reason: "must not contain " + domain.ReferenceDelimiter}
	}
	if domain.ContainsDelimiter(intent.SubordinateID) {
		return nil, &domain.InvalidParameterError{Field: "subordinateId", Reason: "must not contain " + domain.ReferenceDelimiter}
	}

	if err := adapter.Validate(intent); err != nil {
		return nil, err
	}
	return adapter, nil
}

func (d *Dispatcher) initiate(ctx context.Context, adapter Adapter, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error) {
	result, err := adapter.Initiate(ctx, intent)
	if err != nil {
		outcome := "error"
		var upstream *domain.UpstreamError
		switch {
		case errors.Is(err, domain.ErrProviderNotConfigured):
			outcome = "not_configured"
		case errors.As(err, &upstream):
			outcome = "upstream_error"
		}
		paymentInitiationsCounter.WithLabelValues(string(intent.Provider), outcome).Inc()
		d.logger.WarnContext(ctx, "Payment initiation failed", "provider", intent.Provider, "tenant_id", intent.TenantID, "error", err)
		return nil, err
	}
	paymentInitiationsCounter.WithLabelValues(string(intent.Provider), "success").Inc()
	return result, nil
}

// ParseCallback hands a webhook delivery to the provider's parser.
func (d *Dispatcher) ParseCallback(ctx context.Context, provider string, req domain.CallbackRequest) (*domain.PaymentCallback, error) {
	adapter, ok := d.adapters[domain.Provider(provider)]
	if !ok {
		return nil, &domain.UnsupportedProviderError{Provider: provider}
	}
	parser, ok := adapter.(CallbackParser)
	if !ok {
		return nil, fmt.Errorf("%s: %w", provider, domain.ErrCallbackNotSupported)
	}
	return parser.ParseCallback(ctx, req)
}

// Providers lists the registered providers.
func (d *Dispatcher) Providers() []domain.Provider {
	out := make([]domain.Provider, 0, len(d.adapters))
	for _, p := range domain.Providers {
		if _, ok := d.adapters[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate payment intent: %w", err)
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return &domain.MissingParameterError{Field: fe.Field()}
	}
	reason := "failed " + fe.Tag()
	switch fe.Tag() {
	case "gt":
		reason = "must be greater than " + fe.Param()
	case "oneof":
		reason = "must be one of: " + fe.Param()
	case "email":
		reason = "must be a valid email address"
	}
	return &domain.InvalidParameterError{Field: fe.Field(), Reason: reason}
}

func idempotencyKey(intent domain.PaymentIntent) string {
	return string(intent.Provider) + ":" + intent.Reference() + ":" + intent.IdempotencyKey
}

// providerLabel keeps arbitrary client input out of metric labels.
func providerLabel(d *Dispatcher, p domain.Provider) string {
	if _, ok := d.adapters[p]; ok {
		return string(p)
	}
	return "unknown"
}
