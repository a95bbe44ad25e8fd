package paymentgateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
)

const maxProviderResponseSize = 1 << 20 // 1 MB

// DefaultHTTPClient is used by adapters built without an explicit client.
func DefaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

type providerResponse struct {
	StatusCode int
	Body       []byte
}

func (r providerResponse) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// postJSON sends body as JSON and returns the raw response. Transport failures
// come back as *domain.UpstreamError; HTTP status handling is left to the caller.
func postJSON(ctx context.Context, client *http.Client, logger *slog.Logger, provider domain.Provider, url string, headers map[string]string, body interface{}) (*providerResponse, error) {
	reqBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", provider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", provider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return send(ctx, client, logger, provider, httpReq, headers)
}

// getJSON is postJSON for status lookups.
func getJSON(ctx context.Context, client *http.Client, logger *slog.Logger, provider domain.Provider, url string, headers map[string]string) (*providerResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", provider, err)
	}
	return send(ctx, client, logger, provider, httpReq, headers)
}

func send(ctx context.Context, client *http.Client, logger *slog.Logger, provider domain.Provider, httpReq *http.Request, headers map[string]string) (*providerResponse, error) {
	url := httpReq.URL.String()
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	logger.DebugContext(ctx, "Sending HTTP request to provider", "url", url)
	start := time.Now()
	httpResp, err := client.Do(httpReq)
	providerRequestDurationHist.WithLabelValues(string(provider)).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.ErrorContext(ctx, "Provider request failed", "url", url, "error", err)
		return nil, &domain.UpstreamError{Provider: provider, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxProviderResponseSize))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read provider response body", "status_code", httpResp.StatusCode, "error", err)
		return nil, &domain.UpstreamError{Provider: provider, StatusCode: httpResp.StatusCode, Err: err}
	}
	logger.DebugContext(ctx, "Received HTTP response from provider", "status_code", httpResp.StatusCode)

	return &providerResponse{StatusCode: httpResp.StatusCode, Body: respBody}, nil
}

// statusError builds the error for a non-2xx answer, passing through the
// provider's message when its body carries one in a "message" field.
func statusError(provider domain.Provider, resp *providerResponse) error {
	var body struct {
		Message     string `json:"message"`
		Description string `json:"description"`
		Error       string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		switch {
		case body.Message != "":
			msg = body.Message
		case body.Description != "":
			msg = body.Description
		case body.Error != "":
			msg = body.Error
		}
	}
	return &domain.UpstreamError{Provider: provider, StatusCode: resp.StatusCode, Message: msg}
}

func decodeResponse(provider domain.Provider, resp *providerResponse, out interface{}) error {
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &domain.UpstreamError{Provider: provider, StatusCode: resp.StatusCode, Message: "unreadable provider response", Err: err}
	}
	return nil
}

func hmacSHA256Hex(secret string, parts ...[]byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	for _, p := range parts {
		mac.Write(p)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyHexMAC compares a hex signature in constant time.
func verifyHexMAC(expected, given string) bool {
	want, err := hex.DecodeString(expected)
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(given)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}
