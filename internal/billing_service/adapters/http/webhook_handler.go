package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
)

const MaxRequestBodySize = 1 << 20 // 1 MB

// PaymentCallbackProcessor is implemented by app.BillingService.
type PaymentCallbackProcessor interface {
	HandlePaymentCallback(ctx context.Context, provider string, req domain.CallbackRequest) error
}

type WebhookHandler struct {
	appService PaymentCallbackProcessor
	logger     *slog.Logger
}

func NewWebhookHandler(appService PaymentCallbackProcessor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		appService: appService,
		logger:     logger.With("component", "webhook_handler"),
	}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/payments/{provider}", h.HandlePaymentWebhook)
}

// HandlePaymentWebhook receives callbacks from a payment gateway. Signature
// checks happen in the provider's adapter.
func (h *WebhookHandler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := chi.URLParam(r, "provider")
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx), "provider", provider)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "Method not allowed for webhook", "method", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	rawPayload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read webhook request body", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "Error reading request body", http.StatusBadRequest)
		}
		return
	}

	logger.InfoContext(ctx, "Received payment webhook",
		"remote_addr", r.RemoteAddr,
		"content_length", r.ContentLength,
		"payload_size", len(rawPayload))

	err = h.appService.HandlePaymentCallback(ctx, provider, domain.CallbackRequest{
		Payload: rawPayload,
		Header:  r.Header,
		Query:   r.URL.Query(),
	})
	if err != nil {
		logger.ErrorContext(ctx, "Error processing payment webhook", "error", err)

		var unsupported *domain.UnsupportedProviderError
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			http.Error(w, "Webhook signature verification failed", http.StatusBadRequest)
		case errors.As(err, &unsupported), errors.Is(err, domain.ErrCallbackNotSupported):
			http.Error(w, "Unknown webhook endpoint", http.StatusNotFound)
		case domain.ErrorKind(err) == domain.KindClientInput:
			http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		default:
			http.Error(w, "Internal server error processing webhook", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("Webhook received successfully")); err != nil {
		logger.WarnContext(ctx, "Failed to write webhook success response", "error", err)
	}
	logger.InfoContext(ctx, "Payment webhook processed successfully")
}
