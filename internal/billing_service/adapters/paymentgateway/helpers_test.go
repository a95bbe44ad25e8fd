package paymentgateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingTransport counts every outbound request before delegating.
type countingTransport struct {
	calls atomic.Int64
	base  http.RoundTripper
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func countingClient() (*http.Client, *countingTransport) {
	transport := &countingTransport{}
	return &http.Client{Transport: transport}, transport
}

var testURLs = NewRedirectURLs("https://app.ecolix.test/")

func tuitionIntent(provider domain.Provider) domain.PaymentIntent {
	return domain.PaymentIntent{
		Provider:      provider,
		PurposeType:   domain.PurposeTuition,
		TenantID:      "s1",
		SubordinateID: "std1",
		Amount:        150000,
		PayerEmail:    "a@b.com",
		PayerName:     "Awa Diop",
		PayerPhone:    "0102030405",
	}
}

// allAdapters wires every provider against client, pointing at baseURL.
func allAdapters(baseURL string, client *http.Client) []Adapter {
	logger := testLogger()
	return []Adapter{
		NewStripeAdapter(StripeConfig{SecretKey: "sk_test_123", APIURL: baseURL}, testURLs, client, logger),
		NewWaveAdapter(WaveConfig{APIKey: "wave_key", APIURL: baseURL}, testURLs, client, logger),
		NewGeniusAdapter(GeniusConfig{APIKey: "gk", APISecret: "gs", APIURL: baseURL}, testURLs, client, logger),
		NewPayDunyaAdapter(PayDunyaConfig{MasterKey: "mk", PrivateKey: "pk", Token: "tk", APIURL: baseURL}, testURLs, client, logger),
		NewOrangeAdapter(OrangeConfig{MerchantKey: "om_key", AuthToken: "om_token", APIURL: baseURL}, testURLs, client, logger),
		NewMTNAdapter(MTNConfig{APIUser: "user", APIKey: "key", SubscriptionKey: "sub", APIURL: baseURL}, testURLs, client, logger),
	}
}

// memoryIdempotencyStore mirrors the Redis store's contract in memory.
type memoryIdempotencyStore struct {
	mu       sync.Mutex
	seq      int
	pending  map[string]string
	results  map[string]*domain.PaymentInitiationResult
	released []string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{
		pending: map[string]string{},
		results: map[string]*domain.PaymentInitiationResult{},
	}
}

func (s *memoryIdempotencyStore) Reserve(_ context.Context, key string) (*domain.PaymentInitiationResult, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.results[key]; ok {
		return r, "", nil
	}
	if _, ok := s.pending[key]; ok {
		return nil, "", domain.ErrIdempotencyInFlight
	}
	s.seq++
	token := "pending:" + strconv.Itoa(s.seq)
	s.pending[key] = token
	return nil, token, nil
}

func (s *memoryIdempotencyStore) Complete(_ context.Context, key, token string, result *domain.PaymentInitiationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[key] != token {
		return errors.New("reservation lost")
	}
	delete(s.pending, key)
	s.results[key] = result
	return nil
}

func (s *memoryIdempotencyStore) Release(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[key] == token {
		delete(s.pending, key)
	}
	s.released = append(s.released, key)
	return nil
}
