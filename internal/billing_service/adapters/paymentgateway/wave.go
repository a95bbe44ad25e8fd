package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
)

const waveCurrency = "XOF"

type WaveConfig struct {
	APIKey        string
	APIURL        string
	WebhookSecret string
}

// WaveAdapter creates Wave checkout sessions.
type WaveAdapter struct {
	httpClient    *http.Client
	apiURL        string
	apiKey        string
	webhookSecret string
	urls          RedirectURLs
	logger        *slog.Logger
}

func NewWaveAdapter(cfg WaveConfig, urls RedirectURLs, httpClient *http.Client, logger *slog.Logger) *WaveAdapter {
	if httpClient == nil {
		httpClient = DefaultHTTPClient(0)
	}
	return &WaveAdapter{
		httpClient:    httpClient,
		apiURL:        strings.TrimRight(cfg.APIURL, "/"),
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		urls:          urls,
		logger:        logger.With("provider", string(domain.ProviderWave)),
	}
}

type waveCheckoutRequest struct {
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	ErrorURL        string `json:"error_url"`
	SuccessURL      string `json:"success_url"`
	ClientReference string `json:"client_reference"`
}

type waveCheckoutResponse struct {
	ID            string `json:"id"`
	WaveLaunchURL string `json:"wave_launch_url"`
}

func (a *WaveAdapter) Provider() domain.Provider { return domain.ProviderWave }

func (a *WaveAdapter) Validate(domain.PaymentIntent) error { return nil }

func (a *WaveAdapter) Initiate(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error) {
	headers := map[string]string{"Authorization": "Bearer " + a.apiKey}
	if intent.IdempotencyKey != "" {
		headers["Idempotency-Key"] = intent.IdempotencyKey
	}

	resp, err := postJSON(ctx, a.httpClient, a.logger, domain.ProviderWave, a.apiURL+"/v1/checkout/sessions", headers, waveCheckoutRequest{
		Amount:          strconv.FormatInt(intent.Amount, 10),
		Currency:        waveCurrency,
		ErrorURL:        a.urls.Cancel,
		SuccessURL:      a.urls.Success,
		ClientReference: intent.Reference(),
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError(domain.ProviderWave, resp)
	}

	var out waveCheckoutResponse
	if err := decodeResponse(domain.ProviderWave, resp, &out); err != nil {
		return nil, err
	}
	if out.WaveLaunchURL == "" {
		return nil, &domain.UpstreamError{Provider: domain.ProviderWave, StatusCode: resp.StatusCode, Message: "checkout session has no launch url"}
	}

	a.logger.InfoContext(ctx, "Wave checkout session created", "session_id", out.ID)
	return domain.NewRedirectResult(out.WaveLaunchURL), nil
}

type waveWebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ID              string `json:"id"`
		Amount          string `json:"amount"`
		ClientReference string `json:"client_reference"`
		PaymentStatus   string `json:"payment_status"`
		TransactionID   string `json:"transaction_id"`
	} `json:"data"`
}

// ParseCallback checks the Wave-Signature header ("t=<ts>,v1=<hex>", an
// HMAC-SHA256 of timestamp followed by body) and maps checkout events.
func (a *WaveAdapter) ParseCallback(ctx context.Context, req domain.CallbackRequest) (*domain.PaymentCallback, error) {
	if a.webhookSecret == "" {
		return nil, fmt.Errorf("wave webhook secret: %w", domain.ErrProviderNotConfigured)
	}
	if !a.verifySignature(req.Header.Get("Wave-Signature"), req.Payload) {
		return nil, domain.ErrInvalidSignature
	}

	var event waveWebhookEvent
	if err := json.Unmarshal(req.Payload, &event); err != nil {
		return nil, &domain.DecodeError{Token: "wave webhook", Reason: err.Error()}
	}

	var status domain.CallbackStatus
	switch event.Type {
	case "checkout.session.completed":
		status = domain.CallbackSucceeded
		if event.Data.PaymentStatus != "" && event.Data.PaymentStatus != "succeeded" {
			status = domain.CallbackPending
		}
	case "checkout.session.payment_failed":
		status = domain.CallbackFailed
	default:
		return nil, fmt.Errorf("wave event %s: %w", event.Type, domain.ErrCallbackIgnored)
	}

	cb := &domain.PaymentCallback{
		Provider:      domain.ProviderWave,
		Reference:     event.Data.ClientReference,
		Status:        status,
		ProviderTxnID: event.Data.TransactionID,
	}
	if cb.ProviderTxnID == "" {
		cb.ProviderTxnID = event.Data.ID
	}
	if amount, err := strconv.ParseInt(event.Data.Amount, 10, 64); err == nil {
		cb.Amount = &amount
	}
	a.logger.DebugContext(ctx, "Wave event parsed", "event_id", event.ID, "type", event.Type)
	return cb, nil
}

func (a *WaveAdapter) verifySignature(header string, body []byte) bool {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return false
	}
	expected := hmacSHA256Hex(a.webhookSecret, []byte(timestamp), body)
	for _, sig := range signatures {
		if verifyHexMAC(expected, sig) {
			return true
		}
	}
	return false
}
