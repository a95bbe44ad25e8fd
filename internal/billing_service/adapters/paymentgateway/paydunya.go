package paymentgateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
)

const paydunyaSuccessCode = "00"

type PayDunyaConfig struct {
	MasterKey  string
	PrivateKey string
	Token      string
	APIURL     string
	StoreName  string
}

// PayDunyaAdapter creates PayDunya checkout invoices. PayDunya reports most
// failures in-band with HTTP 200.
type PayDunyaAdapter struct {
	httpClient *http.Client
	cfg        PayDunyaConfig
	apiURL     string
	urls       RedirectURLs
	logger     *slog.Logger
}

func NewPayDunyaAdapter(cfg PayDunyaConfig, urls RedirectURLs, httpClient *http.Client, logger *slog.Logger) *PayDunyaAdapter {
	if httpClient == nil {
		httpClient = DefaultHTTPClient(0)
	}
	return &PayDunyaAdapter{
		httpClient: httpClient,
		cfg:        cfg,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		urls:       urls,
		logger:     logger.With("provider", string(domain.ProviderPayDunya)),
	}
}

type paydunyaInvoice struct {
	TotalAmount int64  `json:"total_amount"`
	Description string `json:"description"`
}

type paydunyaStore struct {
	Name string `json:"name"`
}

type paydunyaActions struct {
	CancelURL   string `json:"cancel_url"`
	ReturnURL   string `json:"return_url"`
	CallbackURL string `json:"callback_url"`
}

type paydunyaCustomData struct {
	Reference     string `json:"reference"`
	PurposeType   string `json:"purpose_type"`
	TenantID      string `json:"tenant_id"`
	SubordinateID string `json:"subordinate_id"`
}

type paydunyaInvoiceRequest struct {
	Invoice    paydunyaInvoice    `json:"invoice"`
	Store      paydunyaStore      `json:"store"`
	Actions    paydunyaActions    `json:"actions"`
	CustomData paydunyaCustomData `json:"custom_data"`
}

type paydunyaInvoiceResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseText string `json:"response_text"`
	Description  string `json:"description"`
	Token        string `json:"token"`
	Error        string `json:"error"`
}

func (a *PayDunyaAdapter) Provider() domain.Provider { return domain.ProviderPayDunya }

// Validate has nothing to add: the description falls back to the purpose label.
func (a *PayDunyaAdapter) Validate(domain.PaymentIntent) error { return nil }

func (a *PayDunyaAdapter) Initiate(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error) {
	headers := map[string]string{
		"PAYDUNYA-MASTER-KEY":  a.cfg.MasterKey,
		"PAYDUNYA-PRIVATE-KEY": a.cfg.PrivateKey,
		"PAYDUNYA-TOKEN":       a.cfg.Token,
	}
	resp, err := postJSON(ctx, a.httpClient, a.logger, domain.ProviderPayDunya, a.apiURL+"/v1/checkout-invoice/create", headers, paydunyaInvoiceRequest{
		Invoice: paydunyaInvoice{TotalAmount: intent.Amount, Description: intent.ResolvedDescription()},
		Store:   paydunyaStore{Name: a.cfg.StoreName},
		Actions: paydunyaActions{
			CancelURL:   a.urls.Cancel,
			ReturnURL:   a.urls.Success,
			CallbackURL: a.urls.CallbackFor(domain.ProviderPayDunya),
		},
		CustomData: paydunyaCustomData{
			Reference:     intent.Reference(),
			PurposeType:   string(intent.PurposeType),
			TenantID:      intent.TenantID,
			SubordinateID: intent.SubordinateID,
		},
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError(domain.ProviderPayDunya, resp)
	}

	var out paydunyaInvoiceResponse
	if err := decodeResponse(domain.ProviderPayDunya, resp, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &domain.UpstreamError{Provider: domain.ProviderPayDunya, StatusCode: resp.StatusCode, Message: out.Error}
	}
	if out.ResponseCode != paydunyaSuccessCode {
		msg := out.ResponseText
		if msg == "" {
			msg = out.Description
		}
		return nil, &domain.UpstreamError{Provider: domain.ProviderPayDunya, StatusCode: resp.StatusCode, Message: msg}
	}

	a.logger.InfoContext(ctx, "PayDunya invoice created", "invoice_token", out.Token)
	return domain.NewRedirectResult(out.ResponseText), nil
}

// ParseCallback reads PayDunya's form-encoded IPN. Its data[hash] field is the
// SHA-512 of the master key.
func (a *PayDunyaAdapter) ParseCallback(ctx context.Context, req domain.CallbackRequest) (*domain.PaymentCallback, error) {
	form, err := url.ParseQuery(string(req.Payload))
	if err != nil {
		return nil, &domain.DecodeError{Token: "paydunya ipn", Reason: err.Error()}
	}

	sum := sha512.Sum512([]byte(a.cfg.MasterKey))
	expected := hex.EncodeToString(sum[:])
	given := strings.ToLower(form.Get("data[hash]"))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(given)) != 1 {
		return nil, domain.ErrInvalidSignature
	}

	var status domain.CallbackStatus
	switch form.Get("data[status]") {
	case "completed":
		status = domain.CallbackSucceeded
	case "cancelled", "failed":
		status = domain.CallbackFailed
	case "pending":
		status = domain.CallbackPending
	default:
		return nil, fmt.Errorf("paydunya status %q: %w", form.Get("data[status]"), domain.ErrCallbackIgnored)
	}

	cb := &domain.PaymentCallback{
		Provider:      domain.ProviderPayDunya,
		Reference:     form.Get("data[custom_data][reference]"),
		Status:        status,
		ProviderTxnID: form.Get("data[invoice][token]"),
	}
	if amount, err := strconv.ParseInt(form.Get("data[invoice][total_amount]"), 10, 64); err == nil {
		cb.Amount = &amount
	}
	a.logger.DebugContext(ctx, "PayDunya IPN parsed", "status", status)
	return cb, nil
}
