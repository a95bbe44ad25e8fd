package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
)

type GeniusConfig struct {
	APIKey        string
	APISecret     string
	APIURL        string
	WebhookSecret string
}

// GeniusAdapter creates GeniusPay hosted payments.
type GeniusAdapter struct {
	httpClient    *http.Client
	apiURL        string
	apiKey        string
	apiSecret     string
	webhookSecret string
	urls          RedirectURLs
	logger        *slog.Logger
}

func NewGeniusAdapter(cfg GeniusConfig, urls RedirectURLs, httpClient *http.Client, logger *slog.Logger) *GeniusAdapter {
	if httpClient == nil {
		httpClient = DefaultHTTPClient(0)
	}
	return &GeniusAdapter{
		httpClient:    httpClient,
		apiURL:        strings.TrimRight(cfg.APIURL, "/"),
		apiKey:        cfg.APIKey,
		apiSecret:     cfg.APISecret,
		webhookSecret: cfg.WebhookSecret,
		urls:          urls,
		logger:        logger.With("provider", string(domain.ProviderGenius)),
	}
}

type geniusCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type geniusMetadata struct {
	PurposeType   string `json:"purpose_type"`
	TenantID      string `json:"tenant_id"`
	SubordinateID string `json:"subordinate_id"`
}

type geniusPaymentRequest struct {
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Description string         `json:"description"`
	OrderID     string         `json:"orderId"`
	Customer    geniusCustomer `json:"customer"`
	SuccessURL  string         `json:"success_url"`
	ErrorURL    string         `json:"error_url"`
	CallbackURL string         `json:"callback_url"`
	Metadata    geniusMetadata `json:"metadata"`
}

type geniusPaymentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Reference  string `json:"reference"`
		PaymentURL string `json:"payment_url"`
	} `json:"data"`
}

func (a *GeniusAdapter) Provider() domain.Provider { return domain.ProviderGenius }

func (a *GeniusAdapter) Validate(intent domain.PaymentIntent) error {
	switch {
	case intent.PayerName == "":
		return &domain.MissingParameterError{Field: "payerName"}
	case intent.PayerEmail == "":
		return &domain.MissingParameterError{Field: "payerEmail"}
	case intent.PayerPhone == "":
		return &domain.MissingParameterError{Field: "payerPhone"}
	}
	return nil
}

func (a *GeniusAdapter) Initiate(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error) {
	headers := map[string]string{
		"X-API-Key":    a.apiKey,
		"X-API-Secret": a.apiSecret,
	}
	resp, err := postJSON(ctx, a.httpClient, a.logger, domain.ProviderGenius, a.apiURL+"/api/v1/merchant/payments", headers, geniusPaymentRequest{
		Amount:      intent.Amount,
		Currency:    "XOF",
		Description: intent.ResolvedDescription(),
		OrderID:     intent.Reference(),
		Customer: geniusCustomer{
			Name:  intent.PayerName,
			Email: intent.PayerEmail,
			Phone: intent.PayerPhone,
		},
		SuccessURL:  a.urls.Success,
		ErrorURL:    a.urls.Cancel,
		CallbackURL: a.urls.CallbackFor(domain.ProviderGenius),
		Metadata: geniusMetadata{
			PurposeType:   string(intent.PurposeType),
			TenantID:      intent.TenantID,
			SubordinateID: intent.SubordinateID,
		},
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError(domain.ProviderGenius, resp)
	}

	var out geniusPaymentResponse
	if err := decodeResponse(domain.ProviderGenius, resp, &out); err != nil {
		return nil, err
	}
	if out.Data.PaymentURL == "" {
		return nil, &domain.UpstreamError{Provider: domain.ProviderGenius, StatusCode: resp.StatusCode, Message: out.Message}
	}

	a.logger.InfoContext(ctx, "Genius payment created", "provider_reference", out.Data.Reference)
	return domain.NewRedirectResult(out.Data.PaymentURL), nil
}

type geniusWebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		OrderID   string `json:"orderId"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
	} `json:"data"`
}

// ParseCallback checks X-Webhook-Signature, the hex HMAC-SHA256 of the body.
func (a *GeniusAdapter) ParseCallback(ctx context.Context, req domain.CallbackRequest) (*domain.PaymentCallback, error) {
	if a.webhookSecret == "" {
		return nil, fmt.Errorf("genius webhook secret: %w", domain.ErrProviderNotConfigured)
	}
	if !verifyHexMAC(hmacSHA256Hex(a.webhookSecret, req.Payload), req.Header.Get("X-Webhook-Signature")) {
		return nil, domain.ErrInvalidSignature
	}

	var event geniusWebhookEvent
	if err := json.Unmarshal(req.Payload, &event); err != nil {
		return nil, &domain.DecodeError{Token: "genius webhook", Reason: err.Error()}
	}

	var status domain.CallbackStatus
	switch event.Event {
	case "payment.success":
		status = domain.CallbackSucceeded
	case "payment.failed", "payment.cancelled", "payment.expired":
		status = domain.CallbackFailed
	case "payment.pending":
		status = domain.CallbackPending
	default:
		return nil, fmt.Errorf("genius event %s: %w", event.Event, domain.ErrCallbackIgnored)
	}

	cb := &domain.PaymentCallback{
		Provider:      domain.ProviderGenius,
		Reference:     event.Data.OrderID,
		Status:        status,
		ProviderTxnID: event.Data.Reference,
	}
	if event.Data.Amount > 0 {
		amount := event.Data.Amount
		cb.Amount = &amount
	}
	a.logger.DebugContext(ctx, "Genius event parsed", "event", event.Event)
	return cb, nil
}
