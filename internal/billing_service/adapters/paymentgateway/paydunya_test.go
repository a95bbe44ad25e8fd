package paymentgateway

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayDunyaServer(t *testing.T, body string, got *paydunyaInvoiceRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout-invoice/create", r.URL.Path)
		assert.Equal(t, "mk", r.Header.Get("PAYDUNYA-MASTER-KEY"))
		assert.Equal(t, "pk", r.Header.Get("PAYDUNYA-PRIVATE-KEY"))
		assert.Equal(t, "tk", r.Header.Get("PAYDUNYA-TOKEN"))
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestPayDunyaAdapter(srv *httptest.Server) *PayDunyaAdapter {
	return NewPayDunyaAdapter(PayDunyaConfig{MasterKey: "mk", PrivateKey: "pk", Token: "tk", APIURL: srv.URL, StoreName: "Ecolix"}, testURLs, srv.Client(), testLogger())
}

func TestPayDunyaAdapter_Initiate(t *testing.T) {
	var got paydunyaInvoiceRequest
	srv := newPayDunyaServer(t, `{"response_code":"00","response_text":"https://app.paydunya.com/sandbox-checkout/invoice/test_Jh2Qk","description":"Checkout Invoice Created","token":"test_Jh2Qk"}`, &got)

	result, err := newTestPayDunyaAdapter(srv).Initiate(t.Context(), tuitionIntent(domain.ProviderPayDunya))
	require.NoError(t, err)
	assert.Equal(t, "https://app.paydunya.com/sandbox-checkout/invoice/test_Jh2Qk", result.RedirectURL)

	assert.Equal(t, paydunyaInvoice{TotalAmount: 150000, Description: "Frais de scolarité"}, got.Invoice)
	assert.Equal(t, "Ecolix", got.Store.Name)
	assert.Equal(t, "tuition|s1|std1|150000", got.CustomData.Reference)
	assert.Equal(t, "https://app.ecolix.test/webhooks/payments/paydunya", got.Actions.CallbackURL)
}

func TestPayDunyaAdapter_InBandErrors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		message string
	}{
		{"Response code", `{"response_code":"1001","response_text":"Invalid Masterkey Specified"}`, "Invalid Masterkey Specified"},
		{"Description only", `{"response_code":"4002","description":"Store name is required"}`, "Store name is required"},
		{"Error field", `{"error":"Unauthorized"}`, "Unauthorized"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newPayDunyaServer(t, tc.body, nil)

			_, err := newTestPayDunyaAdapter(srv).Initiate(t.Context(), tuitionIntent(domain.ProviderPayDunya))
			var upstream *domain.UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, http.StatusOK, upstream.StatusCode)
			assert.Equal(t, tc.message, upstream.Message)
			assert.Equal(t, domain.KindUpstream, domain.ErrorKind(err))
		})
	}
}

func TestPayDunyaAdapter_ParseCallback(t *testing.T) {
	adapter := NewPayDunyaAdapter(PayDunyaConfig{MasterKey: "mk"}, testURLs, nil, testLogger())
	sum := sha512.Sum512([]byte("mk"))

	ipn := func(hash, status string) domain.CallbackRequest {
		form := url.Values{}
		form.Set("data[hash]", hash)
		form.Set("data[status]", status)
		form.Set("data[invoice][token]", "test_Jh2Qk")
		form.Set("data[invoice][total_amount]", "150000")
		form.Set("data[custom_data][reference]", "tuition|s1|std1|150000")
		return domain.CallbackRequest{Payload: []byte(form.Encode())}
	}

	cb, err := adapter.ParseCallback(t.Context(), ipn(hex.EncodeToString(sum[:]), "completed"))
	require.NoError(t, err)
	assert.Equal(t, domain.CallbackSucceeded, cb.Status)
	assert.Equal(t, "tuition|s1|std1|150000", cb.Reference)
	assert.Equal(t, "test_Jh2Qk", cb.ProviderTxnID)
	require.NotNil(t, cb.Amount)
	assert.Equal(t, int64(150000), *cb.Amount)

	cb, err = adapter.ParseCallback(t.Context(), ipn(hex.EncodeToString(sum[:]), "cancelled"))
	require.NoError(t, err)
	assert.Equal(t, domain.CallbackFailed, cb.Status)

	_, err = adapter.ParseCallback(t.Context(), ipn("00ff", "completed"))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}
