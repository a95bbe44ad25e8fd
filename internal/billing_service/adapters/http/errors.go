package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindClientInput:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUpstream:
		return http.StatusBadGateway
	case domain.KindMeasurement:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code. Client, conflict and upstream errors
// pass their message through; everything else gets a generic body.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, operation string) {
	ctx := r.Context()
	kind := domain.ErrorKind(err)
	status := statusForKind(kind)

	msg := err.Error()
	switch kind {
	case domain.KindClientInput, domain.KindConflict, domain.KindNotFound:
		logger.WarnContext(ctx, operation+" rejected", "error", err)
	case domain.KindUpstream:
		logger.WarnContext(ctx, operation+" failed at provider", "error", err)
	case domain.KindMeasurement:
		logger.ErrorContext(ctx, operation+" failed", "error", err)
		msg = "usage measurement unavailable"
	case domain.KindConfiguration:
		logger.ErrorContext(ctx, operation+" failed", "error", err)
	default:
		logger.ErrorContext(ctx, operation+" failed", "error", err)
		msg = "Internal server error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}
