package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// mtnReferenceNamespace seeds the UUIDv5 X-Reference-Id derived from caller
// idempotency keys.
var mtnReferenceNamespace = uuid.MustParse("6f1c2a4e-9b7d-5c3e-8a21-4d0e7f9b1c35")

const mtnPushMessage = "Veuillez confirmer le paiement sur votre téléphone."

type MTNConfig struct {
	APIUser           string
	APIKey            string
	SubscriptionKey   string
	APIURL            string
	TargetEnvironment string
	Currency          string
}

// MTNAdapter sends MoMo Collection request-to-pay pushes. The payer confirms
// on their phone, so the result is an acknowledgement and not a redirect.
type MTNAdapter struct {
	httpClient *http.Client
	tokens     oauth2.TokenSource
	cfg        MTNConfig
	apiURL     string
	urls       RedirectURLs
	logger     *slog.Logger
}

func NewMTNAdapter(cfg MTNConfig, urls RedirectURLs, httpClient *http.Client, logger *slog.Logger) *MTNAdapter {
	if httpClient == nil {
		httpClient = DefaultHTTPClient(0)
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	if cfg.TargetEnvironment == "" {
		cfg.TargetEnvironment = "sandbox"
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")

	// The token endpoint wants the subscription key next to the basic credentials.
	tokenClient := &http.Client{
		Timeout:   httpClient.Timeout,
		Transport: &subscriptionKeyTransport{key: cfg.SubscriptionKey, base: httpClient.Transport},
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.APIUser,
		ClientSecret: cfg.APIKey,
		TokenURL:     apiURL + "/collection/token/",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenClient)

	return &MTNAdapter{
		httpClient: httpClient,
		tokens:     cc.TokenSource(tokenCtx),
		cfg:        cfg,
		apiURL:     apiURL,
		urls:       urls,
		logger:     logger.With("provider", string(domain.ProviderMTN)),
	}
}

type subscriptionKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *subscriptionKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Ocp-Apim-Subscription-Key", t.key)
	return base.RoundTrip(clone)
}

type mtnParty struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type mtnRequestToPay struct {
	Amount       string   `json:"amount"`
	Currency     string   `json:"currency"`
	ExternalID   string   `json:"externalId"`
	Payer        mtnParty `json:"payer"`
	PayerMessage string   `json:"payerMessage"`
	PayeeNote    string   `json:"payeeNote"`
}

func (a *MTNAdapter) Provider() domain.Provider { return domain.ProviderMTN }

func (a *MTNAdapter) Validate(intent domain.PaymentIntent) error {
	msisdn := normalizeMSISDN(intent.PayerPhone)
	if msisdn == "" {
		return &domain.MissingParameterError{Field: "payerPhone"}
	}
	if strings.Trim(msisdn, "0123456789") != "" {
		return &domain.InvalidParameterError{Field: "payerPhone", Reason: "must be an MSISDN"}
	}
	return nil
}

func (a *MTNAdapter) Initiate(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error) {
	token, err := a.tokens.Token()
	if err != nil {
		a.logger.ErrorContext(ctx, "MTN token exchange failed", "error", err)
		return nil, &domain.UpstreamError{Provider: domain.ProviderMTN, Message: "token exchange failed", Err: err}
	}

	referenceID := uuid.New()
	if intent.IdempotencyKey != "" {
		referenceID = uuid.NewSHA1(mtnReferenceNamespace, []byte(intent.TenantID+":"+intent.IdempotencyKey))
	}

	headers := map[string]string{
		"Authorization":             "Bearer " + token.AccessToken,
		"X-Reference-Id":            referenceID.String(),
		"X-Target-Environment":      a.cfg.TargetEnvironment,
		"X-Callback-Url":            a.callbackURL(intent.Reference(), referenceID.String()),
		"Ocp-Apim-Subscription-Key": a.cfg.SubscriptionKey,
	}
	description := intent.ResolvedDescription()
	resp, err := postJSON(ctx, a.httpClient, a.logger, domain.ProviderMTN, a.apiURL+"/collection/v1_0/requesttopay", headers, mtnRequestToPay{
		Amount:       strconv.FormatInt(intent.Amount, 10),
		Currency:     a.cfg.Currency,
		ExternalID:   intent.Reference(),
		Payer:        mtnParty{PartyIDType: "MSISDN", PartyID: normalizeMSISDN(intent.PayerPhone)},
		PayerMessage: description,
		PayeeNote:    description,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusAccepted {
		return nil, statusError(domain.ProviderMTN, resp)
	}

	a.logger.InfoContext(ctx, "MTN request-to-pay accepted", "reference_id", referenceID.String())
	return domain.NewPushResult(true, mtnPushMessage, a.urls.Pending), nil
}

// callbackURL carries the reference and the X-Reference-Id under a MAC keyed
// by the API key, since MoMo does not sign its callbacks.
func (a *MTNAdapter) callbackURL(reference, referenceID string) string {
	q := url.Values{}
	q.Set("reference", reference)
	q.Set("rid", referenceID)
	q.Set("sig", mtnCallbackSig(a.cfg.APIKey, reference, referenceID))
	return a.urls.CallbackFor(domain.ProviderMTN) + "?" + q.Encode()
}

func mtnCallbackSig(apiKey, reference, referenceID string) string {
	return hmacSHA256Hex(apiKey, []byte(referenceID), []byte{':'}, []byte(reference))
}

type mtnCallback struct {
	FinancialTransactionID string `json:"financialTransactionId"`
	ExternalID             string `json:"externalId"`
	Amount                 string `json:"amount"`
	Status                 string `json:"status"`
}

// ParseCallback authenticates the callback URL, then takes the status from
// MoMo's request-to-pay lookup rather than from the unsigned body.
func (a *MTNAdapter) ParseCallback(ctx context.Context, req domain.CallbackRequest) (*domain.PaymentCallback, error) {
	reference := req.Query.Get("reference")
	referenceID := req.Query.Get("rid")
	if reference == "" || referenceID == "" || !verifyHexMAC(mtnCallbackSig(a.cfg.APIKey, reference, referenceID), req.Query.Get("sig")) {
		return nil, domain.ErrInvalidSignature
	}

	var body mtnCallback
	if err := json.Unmarshal(req.Payload, &body); err != nil {
		return nil, &domain.DecodeError{Token: "mtn callback", Reason: err.Error()}
	}
	if body.ExternalID != reference {
		return nil, domain.ErrInvalidSignature
	}

	confirmed, err := a.requestToPayStatus(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if confirmed.ExternalID != reference {
		a.logger.WarnContext(ctx, "MTN status lookup returned another externalId", "reference_id", referenceID)
		return nil, domain.ErrInvalidSignature
	}

	var status domain.CallbackStatus
	switch confirmed.Status {
	case "SUCCESSFUL":
		status = domain.CallbackSucceeded
	case "FAILED", "REJECTED", "TIMEOUT":
		status = domain.CallbackFailed
	case "PENDING":
		status = domain.CallbackPending
	default:
		return nil, fmt.Errorf("mtn status %q: %w", confirmed.Status, domain.ErrCallbackIgnored)
	}

	cb := &domain.PaymentCallback{
		Provider:      domain.ProviderMTN,
		Reference:     reference,
		Status:        status,
		ProviderTxnID: confirmed.FinancialTransactionID,
	}
	if amount, err := strconv.ParseInt(confirmed.Amount, 10, 64); err == nil {
		cb.Amount = &amount
	}
	a.logger.DebugContext(ctx, "MTN callback confirmed", "reference_id", referenceID, "status", status)
	return cb, nil
}

func (a *MTNAdapter) requestToPayStatus(ctx context.Context, referenceID string) (*mtnCallback, error) {
	token, err := a.tokens.Token()
	if err != nil {
		a.logger.ErrorContext(ctx, "MTN token exchange failed", "error", err)
		return nil, &domain.UpstreamError{Provider: domain.ProviderMTN, Message: "token exchange failed", Err: err}
	}
	headers := map[string]string{
		"Authorization":             "Bearer " + token.AccessToken,
		"X-Target-Environment":      a.cfg.TargetEnvironment,
		"Ocp-Apim-Subscription-Key": a.cfg.SubscriptionKey,
	}
	resp, err := getJSON(ctx, a.httpClient, a.logger, domain.ProviderMTN, a.apiURL+"/collection/v1_0/requesttopay/"+url.PathEscape(referenceID), headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(domain.ProviderMTN, resp)
	}
	var out mtnCallback
	if err := decodeResponse(domain.ProviderMTN, resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// normalizeMSISDN strips the separators people type into phone numbers.
func normalizeMSISDN(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", ".", "", "+", "").Replace(phone)
}
