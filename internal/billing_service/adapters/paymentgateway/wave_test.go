package paymentgateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaveAdapter_Initiate(t *testing.T) {
	var got waveCheckoutRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cos-18qq25rgr100a","wave_launch_url":"https://pay.wave.com/c/cos-18qq25rgr100a"}`))
	}))
	defer srv.Close()

	adapter := NewWaveAdapter(WaveConfig{APIKey: "wave_sn_prod_key", APIURL: srv.URL}, testURLs, srv.Client(), testLogger())

	intent := tuitionIntent(domain.ProviderWave)
	intent.IdempotencyKey = "abc"
	result, err := adapter.Initiate(t.Context(), intent)
	require.NoError(t, err)

	assert.Equal(t, "https://pay.wave.com/c/cos-18qq25rgr100a", result.RedirectURL)
	assert.Equal(t, "Bearer wave_sn_prod_key", headers.Get("Authorization"))
	assert.Equal(t, "abc", headers.Get("Idempotency-Key"))
	assert.Equal(t, waveCheckoutRequest{
		Amount:          "150000",
		Currency:        "XOF",
		ErrorURL:        "https://app.ecolix.test/payment/cancel",
		SuccessURL:      "https://app.ecolix.test/payment/success",
		ClientReference: "tuition|s1|std1|150000",
	}, got)
}

func TestWaveAdapter_InitiateErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"Rejected", http.StatusBadRequest, `{"code":"request-validation-error","message":"Invalid amount"}`, "Invalid amount"},
		{"Missing launch url", http.StatusOK, `{"id":"cos-1"}`, "checkout session has no launch url"},
		{"Unreadable", http.StatusOK, `<html>`, "unreadable provider response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			adapter := NewWaveAdapter(WaveConfig{APIKey: "k", APIURL: srv.URL}, testURLs, srv.Client(), testLogger())
			_, err := adapter.Initiate(t.Context(), tuitionIntent(domain.ProviderWave))

			var upstream *domain.UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, tc.status, upstream.StatusCode)
			assert.Equal(t, tc.message, upstream.Message)
		})
	}
}

func TestWaveAdapter_ParseCallback(t *testing.T) {
	adapter := NewWaveAdapter(WaveConfig{APIKey: "k", WebhookSecret: "wave_secret"}, testURLs, nil, testLogger())

	sign := func(payload []byte) http.Header {
		h := http.Header{}
		h.Set("Wave-Signature", "t=1639081943,v1="+hmacSHA256Hex("wave_secret", []byte("1639081943"), payload))
		return h
	}

	t.Run("Completed", func(t *testing.T) {
		payload := []byte(`{"id":"EV_1","type":"checkout.session.completed","data":{"id":"cos-1","amount":"150000","client_reference":"tuition|s1|std1|150000","payment_status":"succeeded","transaction_id":"TCN4Y4ZC3FM"}}`)

		cb, err := adapter.ParseCallback(t.Context(), domain.CallbackRequest{Payload: payload, Header: sign(payload)})
		require.NoError(t, err)
		assert.Equal(t, domain.CallbackSucceeded, cb.Status)
		assert.Equal(t, "tuition|s1|std1|150000", cb.Reference)
		assert.Equal(t, "TCN4Y4ZC3FM", cb.ProviderTxnID)
		require.NotNil(t, cb.Amount)
		assert.Equal(t, int64(150000), *cb.Amount)
	})

	t.Run("Payment failed", func(t *testing.T) {
		payload := []byte(`{"id":"EV_2","type":"checkout.session.payment_failed","data":{"id":"cos-2","client_reference":"tuition|s1|std1|150000"}}`)

		cb, err := adapter.ParseCallback(t.Context(), domain.CallbackRequest{Payload: payload, Header: sign(payload)})
		require.NoError(t, err)
		assert.Equal(t, domain.CallbackFailed, cb.Status)
		assert.Equal(t, "cos-2", cb.ProviderTxnID)
	})

	t.Run("Ignored", func(t *testing.T) {
		payload := []byte(`{"id":"EV_3","type":"b2b.payment_received","data":{}}`)

		_, err := adapter.ParseCallback(t.Context(), domain.CallbackRequest{Payload: payload, Header: sign(payload)})
		assert.ErrorIs(t, err, domain.ErrCallbackIgnored)
	})

	t.Run("Tampered body", func(t *testing.T) {
		payload := []byte(`{"id":"EV_4","type":"checkout.session.completed","data":{}}`)
		header := sign(payload)

		_, err := adapter.ParseCallback(t.Context(), domain.CallbackRequest{Payload: []byte(`{"id":"EV_4"}`), Header: header})
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("Missing header", func(t *testing.T) {
		_, err := adapter.ParseCallback(t.Context(), domain.CallbackRequest{Payload: []byte(`{}`), Header: http.Header{}})
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})
}
