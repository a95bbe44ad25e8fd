package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
)

// BillingUseCases is the part of app.BillingService the handlers call.
type BillingUseCases interface {
	ListPlans() []domain.PlanTier
	GetProjection(ctx context.Context, tenantID string) (*domain.BillingProjection, error)
	GetUsageReport(ctx context.Context, tenantID string) (*domain.UsageReport, error)
	InitiatePayment(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error)
}

type BillingHandler struct {
	billing BillingUseCases
	logger  *slog.Logger
}

func NewBillingHandler(billing BillingUseCases, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing: billing,
		logger:  logger.With("component", "billing_handler"),
	}
}

// RegisterRoutes mounts the public catalog and the authenticated /v1 routes.
func (h *BillingHandler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/v1/plans", h.ListPlans)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/v1/payments", h.InitiatePayment)

		r.Group(func(r chi.Router) {
			r.Use(RequireTenantAccess(h.logger))
			r.Get("/v1/tenants/{tenantID}/billing/projection", h.GetProjection)
			r.Get("/v1/tenants/{tenantID}/billing/usage", h.GetUsageReport)
		})
	})
}

func (h *BillingHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PlansResponse{Plans: h.billing.ListPlans()})
}

func (h *BillingHandler) GetProjection(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	projection, err := h.billing.GetProjection(r.Context(), tenantID)
	if err != nil {
		writeError(w, r, h.logger.With("tenant_id", tenantID), err, "GetProjection")
		return
	}
	writeJSON(w, http.StatusOK, projection)
}

func (h *BillingHandler) GetUsageReport(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	report, err := h.billing.GetUsageReport(r.Context(), tenantID)
	if err != nil {
		writeError(w, r, h.logger.With("tenant_id", tenantID), err, "GetUsageReport")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *BillingHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	var req InitiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "Failed to decode request body for InitiatePayment", "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	caller, ok := TenantFromContext(ctx)
	if !ok {
		logger.ErrorContext(ctx, "AuthenticatedTenant not found in context for InitiatePayment")
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	if req.TenantID != "" && !caller.canAccess(req.TenantID) {
		logger.WarnContext(ctx, "Payment requested for another tenant", "token_tenant_id", caller.TenantID, "tenant_id", req.TenantID)
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "Forbidden"})
		return
	}

	result, err := h.billing.InitiatePayment(ctx, req.toDomain())
	if err != nil {
		writeError(w, r, logger.With("provider", req.Provider), err, "InitiatePayment")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
