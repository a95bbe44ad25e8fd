package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/ecolix/golang_services/internal/billing_service/repository"
)

// UsageMeasurer is satisfied by *UsageMeter.
type UsageMeasurer interface {
	MeasureUsage(ctx context.Context, tenantID string) (domain.UsageSnapshot, error)
}

// PaymentDispatcher routes intents and callbacks to the provider adapters.
type PaymentDispatcher interface {
	InitiatePayment(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error)
	ParseCallback(ctx context.Context, provider string, req domain.CallbackRequest) (*domain.PaymentCallback, error)
}

// EventPublisher publishes with a message id the stream uses for deduplication.
type EventPublisher interface {
	Publish(ctx context.Context, subject, msgID string, data []byte) error
}

// BillingService provides the billing use cases exposed over HTTP.
type BillingService struct {
	subscriptions repository.SubscriptionRepository
	meter         UsageMeasurer
	payments      PaymentDispatcher
	events        EventPublisher
	logger        *slog.Logger
	now           func() time.Time
}

func NewBillingService(
	subscriptions repository.SubscriptionRepository,
	meter UsageMeasurer,
	payments PaymentDispatcher,
	events EventPublisher,
	logger *slog.Logger,
) *BillingService {
	return &BillingService{
		subscriptions: subscriptions,
		meter:         meter,
		payments:      payments,
		events:        events,
		logger:        logger.With("service", "billing"),
		now:           time.Now,
	}
}

// ListPlans returns the plan catalog in upgrade order.
func (s *BillingService) ListPlans() []domain.PlanTier {
	return domain.AllPlans()
}

// GetProjection computes what the tenant would be billed right now.
func (s *BillingService) GetProjection(ctx context.Context, tenantID string) (*domain.BillingProjection, error) {
	sub, usage, err := s.load(ctx, tenantID)
	if err != nil {
		projectionsComputedCounter.WithLabelValues("unknown", "error").Inc()
		return nil, err
	}

	projection, err := ComputeProjection(*sub, usage)
	if err != nil {
		// A stored plan outside the catalog is data corruption, not a client error.
		s.logger.ErrorContext(ctx, "Subscription references unknown plan", "tenant_id", tenantID, "plan", sub.Plan, "error", err)
		projectionsComputedCounter.WithLabelValues(string(sub.Plan), "error").Inc()
		return nil, err
	}
	if len(projection.UnknownModules) > 0 {
		s.logger.WarnContext(ctx, "Active modules missing from add-on price table",
			"tenant_id", tenantID, "modules", projection.UnknownModules)
	}

	projectionsComputedCounter.WithLabelValues(string(sub.Plan), "success").Inc()
	s.logger.DebugContext(ctx, "Billing projection computed", "tenant_id", tenantID, "plan", sub.Plan, "total", projection.Total)
	return &projection, nil
}

// GetUsageReport compares the tenant's usage against its plan quotas.
func (s *BillingService) GetUsageReport(ctx context.Context, tenantID string) (*domain.UsageReport, error) {
	sub, usage, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	plan, err := domain.LookupPlan(sub.Plan)
	if err != nil {
		s.logger.ErrorContext(ctx, "Subscription references unknown plan", "tenant_id", tenantID, "plan", sub.Plan, "error", err)
		return nil, err
	}
	report := BuildUsageReport(plan, usage)
	return &report, nil
}

func (s *BillingService) load(ctx context.Context, tenantID string) (*domain.SubscriptionRecord, domain.UsageSnapshot, error) {
	sub, err := s.subscriptions.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, domain.UsageSnapshot{}, fmt.Errorf("load subscription: %w", err)
	}
	usage, err := s.meter.MeasureUsage(ctx, tenantID)
	if err != nil {
		return nil, domain.UsageSnapshot{}, err
	}
	return sub, usage, nil
}

// InitiatePayment hands the intent to the dispatcher.
func (s *BillingService) InitiatePayment(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error) {
	result, err := s.payments.InitiatePayment(ctx, intent)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Payment initiated",
		"provider", intent.Provider, "tenant_id", intent.TenantID, "purpose", intent.PurposeType, "push", result.IsPush())
	return result, nil
}

// HandlePaymentCallback reconciles a provider callback to the reference it
// carries and publishes the outcome. Callbacks the provider marks as
// informational are acknowledged without publishing.
func (s *BillingService) HandlePaymentCallback(ctx context.Context, provider string, req domain.CallbackRequest) error {
	logger := s.logger.With("provider", provider)

	cb, err := s.payments.ParseCallback(ctx, provider, req)
	if err != nil {
		if errors.Is(err, domain.ErrCallbackIgnored) {
			paymentCallbacksCounter.WithLabelValues(provider, "ignored").Inc()
			logger.DebugContext(ctx, "Ignoring payment callback", "reason", err)
			return nil
		}
		paymentCallbacksCounter.WithLabelValues(provider, "error").Inc()
		return err
	}

	ref, err := domain.DecodeReference(cb.Reference)
	if err != nil {
		paymentCallbacksCounter.WithLabelValues(provider, "error").Inc()
		logger.WarnContext(ctx, "Callback carries an undecodable reference", "reference", cb.Reference, "error", err)
		return err
	}
	if cb.Amount != nil && *cb.Amount != ref.Amount {
		paymentCallbacksCounter.WithLabelValues(provider, "error").Inc()
		logger.WarnContext(ctx, "Callback amount differs from reference",
			"reference", cb.Reference, "reported", *cb.Amount, "expected", ref.Amount)
		return fmt.Errorf("%w: reported %d, expected %d", domain.ErrAmountMismatch, *cb.Amount, ref.Amount)
	}

	event := domain.PaymentSettledEvent{
		Provider:      cb.Provider,
		PurposeType:   ref.PurposeType,
		TenantID:      ref.TenantID,
		SubordinateID: ref.SubordinateID,
		Amount:        ref.Amount,
		Status:        cb.Status,
		ProviderTxnID: cb.ProviderTxnID,
		Reference:     cb.Reference,
		ReceivedAt:    s.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}
	if err := s.events.Publish(ctx, event.Subject(), event.MessageID(), data); err != nil {
		paymentCallbacksCounter.WithLabelValues(provider, "error").Inc()
		logger.ErrorContext(ctx, "Failed to publish payment event", "subject", event.Subject(), "error", err)
		return fmt.Errorf("publish payment event: %w", err)
	}

	paymentCallbacksCounter.WithLabelValues(provider, string(cb.Status)).Inc()
	logger.InfoContext(ctx, "Payment callback reconciled",
		"tenant_id", ref.TenantID, "purpose", ref.PurposeType, "status", cb.Status, "provider_txn_id", cb.ProviderTxnID)
	return nil
}
