package paymentgateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
)

// Adapter turns a validated intent into one outbound call to a provider.
type Adapter interface {
	Provider() domain.Provider
	// Validate checks the provider-specific fields. It must not do any I/O.
	Validate(intent domain.PaymentIntent) error
	Initiate(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error)
}

// CallbackParser is implemented by adapters whose provider posts payment
// notifications back to us. Informational deliveries return domain.ErrCallbackIgnored.
type CallbackParser interface {
	ParseCallback(ctx context.Context, req domain.CallbackRequest) (*domain.PaymentCallback, error)
}

// IdempotencyStore remembers initiation results per caller key.
//
// Reserve returns a reservation token when the caller now owns key, the
// stored result when a previous call completed, or
// domain.ErrIdempotencyInFlight while another call holds the key. Complete and
// Release only act while key still holds that token.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (replay *domain.PaymentInitiationResult, token string, err error)
	Complete(ctx context.Context, key, token string, result *domain.PaymentInitiationResult) error
	Release(ctx context.Context, key, token string) error
}

// RedirectURLs are the pages and endpoints providers send the payer or their
// notifications to.
type RedirectURLs struct {
	Success  string
	Cancel   string
	Pending  string
	Callback string
}

func NewRedirectURLs(publicBaseURL string) RedirectURLs {
	base := strings.TrimRight(publicBaseURL, "/")
	return RedirectURLs{
		Success:  base + "/payment/success",
		Cancel:   base + "/payment/cancel",
		Pending:  base + "/payment/pending",
		Callback: base + "/webhooks/payments",
	}
}

// CallbackFor is the webhook URL registered for provider p.
func (u RedirectURLs) CallbackFor(p domain.Provider) string {
	return u.Callback + "/" + string(p)
}

// unconfiguredAdapter stands in for a provider whose credentials are missing.
type unconfiguredAdapter struct {
	provider domain.Provider
}

// NewUnconfiguredAdapter registers p so that intents for it fail with
// domain.ErrProviderNotConfigured instead of an unsupported-provider error.
func NewUnconfiguredAdapter(p domain.Provider) Adapter {
	return unconfiguredAdapter{provider: p}
}

func (a unconfiguredAdapter) Provider() domain.Provider { return a.provider }

func (a unconfiguredAdapter) Validate(domain.PaymentIntent) error { return nil }

func (a unconfiguredAdapter) Initiate(context.Context, domain.PaymentIntent) (*domain.PaymentInitiationResult, error) {
	return nil, fmt.Errorf("%s: %w", a.provider, domain.ErrProviderNotConfigured)
}

func (a unconfiguredAdapter) ParseCallback(context.Context, domain.CallbackRequest) (*domain.PaymentCallback, error) {
	return nil, fmt.Errorf("%s: %w", a.provider, domain.ErrProviderNotConfigured)
}
