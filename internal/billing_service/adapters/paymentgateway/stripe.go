package paymentgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/stripe/stripe-go/v82"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeMinorUnitFactor converts whole CFA francs into the unit_amount Stripe
// is sent.
const stripeMinorUnitFactor = 100

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	// APIURL overrides the Stripe API base URL. Empty uses api.stripe.com.
	APIURL string
}

// StripeAdapter creates hosted Checkout sessions.
type StripeAdapter struct {
	sessions      stripesession.Client
	webhookSecret string
	currency      string
	urls          RedirectURLs
	logger        *slog.Logger
}

func NewStripeAdapter(cfg StripeConfig, urls RedirectURLs, httpClient *http.Client, logger *slog.Logger) *StripeAdapter {
	if httpClient == nil {
		httpClient = DefaultHTTPClient(0)
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "xof"
	}
	return &StripeAdapter{
		sessions: stripesession.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		urls:          urls,
		logger:        logger.With("provider", string(domain.ProviderStripe)),
	}
}

func (a *StripeAdapter) Provider() domain.Provider { return domain.ProviderStripe }

func (a *StripeAdapter) Validate(intent domain.PaymentIntent) error {
	if intent.PayerEmail == "" {
		return &domain.MissingParameterError{Field: "payerEmail"}
	}
	return nil
}

func (a *StripeAdapter) Initiate(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error) {
	reference := intent.Reference()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(a.urls.Success + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(a.urls.Cancel),
		CustomerEmail:     stripe.String(intent.PayerEmail),
		ClientReferenceID: stripe.String(reference),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(a.currency),
					UnitAmount: stripe.Int64(intent.Amount * stripeMinorUnitFactor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(intent.ResolvedDescription()),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"reference":      reference,
			"purpose_type":   string(intent.PurposeType),
			"tenant_id":      intent.TenantID,
			"subordinate_id": intent.SubordinateID,
		},
	}
	params.Context = ctx
	if intent.IdempotencyKey != "" {
		params.SetIdempotencyKey(intent.IdempotencyKey)
	}

	sess, err := a.sessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			a.logger.WarnContext(ctx, "Stripe rejected checkout session", "status_code", stripeErr.HTTPStatusCode, "code", stripeErr.Code)
			return nil, &domain.UpstreamError{Provider: domain.ProviderStripe, StatusCode: stripeErr.HTTPStatusCode, Message: stripeErr.Msg}
		}
		return nil, &domain.UpstreamError{Provider: domain.ProviderStripe, Err: err}
	}
	if sess.URL == "" {
		return nil, &domain.UpstreamError{Provider: domain.ProviderStripe, Message: "checkout session has no url"}
	}

	a.logger.InfoContext(ctx, "Stripe checkout session created", "session_id", sess.ID)
	return domain.NewRedirectResult(sess.URL), nil
}

// ParseCallback verifies the Stripe-Signature header and maps Checkout
// session events.
func (a *StripeAdapter) ParseCallback(ctx context.Context, req domain.CallbackRequest) (*domain.PaymentCallback, error) {
	if a.webhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret: %w", domain.ErrProviderNotConfigured)
	}
	event, err := webhook.ConstructEventWithOptions(req.Payload, req.Header.Get("Stripe-Signature"), a.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	var status domain.CallbackStatus
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		status = domain.CallbackSucceeded
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		status = domain.CallbackFailed
	default:
		return nil, fmt.Errorf("stripe event %s: %w", event.Type, domain.ErrCallbackIgnored)
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, &domain.DecodeError{Token: string(event.Type), Reason: "invalid checkout session payload"}
	}
	if status == domain.CallbackSucceeded && sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		status = domain.CallbackPending
	}

	cb := &domain.PaymentCallback{
		Provider:      domain.ProviderStripe,
		Reference:     sess.ClientReferenceID,
		Status:        status,
		ProviderTxnID: sess.ID,
	}
	if sess.AmountTotal > 0 {
		amount := sess.AmountTotal / stripeMinorUnitFactor
		cb.Amount = &amount
	}
	a.logger.DebugContext(ctx, "Stripe event parsed", "event_id", event.ID, "type", event.Type, "status", status)
	return cb, nil
}
