package paymentgateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
)

type OrangeConfig struct {
	MerchantKey string
	AuthToken   string
	// APIURL is the WebPay base, e.g. https://api.orange.com/orange-money-webpay/dev/v1.
	APIURL   string
	Currency string
}

// OrangeAdapter starts Orange Money WebPay sessions.
//
// order_id is minted from the clock as OM_<epoch-ms> and is unrelated to the
// reference token, which travels separately in the reference field. The
// notif_token Orange returns is kept per order_id and must come back in the
// notification.
type OrangeAdapter struct {
	httpClient *http.Client
	tokens     CallbackTokenStore
	cfg        OrangeConfig
	apiURL     string
	urls       RedirectURLs
	logger     *slog.Logger
	now        func() time.Time
}

func NewOrangeAdapter(cfg OrangeConfig, urls RedirectURLs, httpClient *http.Client, logger *slog.Logger) *OrangeAdapter {
	if httpClient == nil {
		httpClient = DefaultHTTPClient(0)
	}
	if cfg.Currency == "" {
		cfg.Currency = "OUV"
	}
	return &OrangeAdapter{
		httpClient: httpClient,
		tokens:     NewMemoryCallbackTokenStore(0, 0),
		cfg:        cfg,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		urls:       urls,
		logger:     logger.With("provider", string(domain.ProviderOrange)),
		now:        time.Now,
	}
}

// WithCallbackTokens replaces the in-process notif_token store.
func (a *OrangeAdapter) WithCallbackTokens(store CallbackTokenStore) *OrangeAdapter {
	a.tokens = store
	return a
}

type orangeWebPaymentRequest struct {
	MerchantKey string `json:"merchant_key"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	ReturnURL   string `json:"return_url"`
	CancelURL   string `json:"cancel_url"`
	NotifURL    string `json:"notif_url"`
	Lang        string `json:"lang"`
	Reference   string `json:"reference"`
}

type orangeWebPaymentResponse struct {
	Status     int    `json:"status"`
	Message    string `json:"message"`
	PayToken   string `json:"pay_token"`
	PaymentURL string `json:"payment_url"`
	NotifToken string `json:"notif_token"`
}

func (a *OrangeAdapter) Provider() domain.Provider { return domain.ProviderOrange }

func (a *OrangeAdapter) Validate(domain.PaymentIntent) error { return nil }

func (a *OrangeAdapter) Initiate(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error) {
	reference := intent.Reference()
	orderID := "OM_" + strconv.FormatInt(a.now().UnixMilli(), 10)

	headers := map[string]string{"Authorization": "Bearer " + a.cfg.AuthToken}
	resp, err := postJSON(ctx, a.httpClient, a.logger, domain.ProviderOrange, a.apiURL+"/webpayment", headers, orangeWebPaymentRequest{
		MerchantKey: a.cfg.MerchantKey,
		Currency:    a.cfg.Currency,
		OrderID:     orderID,
		Amount:      intent.Amount,
		ReturnURL:   a.urls.Success,
		CancelURL:   a.urls.Cancel,
		NotifURL:    a.notifURL(reference, orderID),
		Lang:        "fr",
		Reference:   reference,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError(domain.ProviderOrange, resp)
	}

	var out orangeWebPaymentResponse
	if err := decodeResponse(domain.ProviderOrange, resp, &out); err != nil {
		return nil, err
	}
	if out.PaymentURL == "" || out.NotifToken == "" {
		return nil, &domain.UpstreamError{Provider: domain.ProviderOrange, StatusCode: resp.StatusCode, Message: out.Message}
	}
	if err := a.tokens.Put(ctx, orderID, out.NotifToken); err != nil {
		a.logger.ErrorContext(ctx, "Failed to keep Orange notif_token", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("keep notif_token for %s: %w", orderID, err)
	}

	a.logger.InfoContext(ctx, "Orange Money web payment created", "order_id", orderID)
	return domain.NewRedirectResult(out.PaymentURL), nil
}

// notifURL carries the reference and order_id under a MAC, since Orange's
// notification body only holds the status and tokens.
func (a *OrangeAdapter) notifURL(reference, orderID string) string {
	q := url.Values{}
	q.Set("reference", reference)
	q.Set("order_id", orderID)
	q.Set("sig", orangeNotifSig(a.cfg.MerchantKey, reference, orderID))
	return a.urls.CallbackFor(domain.ProviderOrange) + "?" + q.Encode()
}

func orangeNotifSig(merchantKey, reference, orderID string) string {
	return hmacSHA256Hex(merchantKey, []byte(orderID), []byte{':'}, []byte(reference))
}

type orangeNotification struct {
	Status     string `json:"status"`
	NotifToken string `json:"notif_token"`
	TxnID      string `json:"txnid"`
}

// ParseCallback accepts a notification only when its URL MAC is valid and its
// notif_token is the one Orange issued for the order. A settled order's token
// is dropped, so a notification cannot be replayed after the final one.
func (a *OrangeAdapter) ParseCallback(ctx context.Context, req domain.CallbackRequest) (*domain.PaymentCallback, error) {
	reference := req.Query.Get("reference")
	orderID := req.Query.Get("order_id")
	if reference == "" || orderID == "" || !verifyHexMAC(orangeNotifSig(a.cfg.MerchantKey, reference, orderID), req.Query.Get("sig")) {
		return nil, domain.ErrInvalidSignature
	}

	var n orangeNotification
	if err := json.Unmarshal(req.Payload, &n); err != nil {
		return nil, &domain.DecodeError{Token: "orange notification", Reason: err.Error()}
	}

	issued, err := a.tokens.Get(ctx, orderID)
	if errors.Is(err, domain.ErrCallbackTokenNotFound) {
		a.logger.WarnContext(ctx, "Orange notification for unknown or settled order", "order_id", orderID)
		return nil, domain.ErrInvalidSignature
	}
	if err != nil {
		return nil, fmt.Errorf("read notif_token for %s: %w", orderID, err)
	}
	if n.NotifToken == "" || subtle.ConstantTimeCompare([]byte(issued), []byte(n.NotifToken)) != 1 {
		return nil, domain.ErrInvalidSignature
	}

	var status domain.CallbackStatus
	switch strings.ToUpper(n.Status) {
	case "SUCCESS":
		status = domain.CallbackSucceeded
	case "FAILED", "EXPIRED":
		status = domain.CallbackFailed
	case "INITIATED", "PENDING":
		status = domain.CallbackPending
	default:
		return nil, fmt.Errorf("orange status %q: %w", n.Status, domain.ErrCallbackIgnored)
	}

	if status != domain.CallbackPending {
		if err := a.tokens.Delete(ctx, orderID); err != nil {
			a.logger.ErrorContext(ctx, "Failed to drop settled Orange notif_token", "order_id", orderID, "error", err)
		}
	}

	a.logger.DebugContext(ctx, "Orange notification parsed", "order_id", orderID, "status", status)
	return &domain.PaymentCallback{
		Provider:      domain.ProviderOrange,
		Reference:     reference,
		Status:        status,
		ProviderTxnID: n.TxnID,
	}, nil
}
