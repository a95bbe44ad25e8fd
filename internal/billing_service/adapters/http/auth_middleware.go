package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const AuthenticatedTenantContextKey = ContextKey("authenticatedTenant")

// AuthenticatedTenant is what a verified access token says about the caller.
type AuthenticatedTenant struct {
	Subject  string
	TenantID string
	IsAdmin  bool
}

// TenantFromContext returns the caller set by AuthMiddleware.
func TenantFromContext(ctx context.Context) (AuthenticatedTenant, bool) {
	t, ok := ctx.Value(AuthenticatedTenantContextKey).(AuthenticatedTenant)
	return t, ok
}

func parseAccessToken(tokenString string, secret []byte) (AuthenticatedTenant, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return AuthenticatedTenant{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return AuthenticatedTenant{}, errors.New("invalid token claims")
	}

	tenantID, _ := claims["tenant_id"].(string)
	isAdmin, _ := claims["adm"].(bool)
	if tenantID == "" && !isAdmin {
		return AuthenticatedTenant{}, errors.New("token carries no tenant_id")
	}
	subject, _ := claims.GetSubject()
	return AuthenticatedTenant{Subject: subject, TenantID: tenantID, IsAdmin: isAdmin}, nil
}

// AuthMiddleware verifies the HS256 bearer token and stores the caller in the
// request context.
func AuthMiddleware(secret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Authorization header required"})
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				logger.WarnContext(r.Context(), "Unsupported Authorization scheme")
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Bearer token required"})
				return
			}

			caller, err := parseAccessToken(strings.TrimSpace(tokenString), key)
			if err != nil {
				logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired token"})
				return
			}

			ctx := context.WithValue(r.Context(), AuthenticatedTenantContextKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenantAccess rejects callers whose token is for another tenant than
// the {tenantID} route parameter. Admin tokens pass.
func RequireTenantAccess(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := TenantFromContext(r.Context())
			if !ok {
				logger.ErrorContext(r.Context(), "AuthenticatedTenant not found in context. AuthMiddleware must run first.")
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
				return
			}
			if !caller.canAccess(chi.URLParam(r, "tenantID")) {
				logger.WarnContext(r.Context(), "Tenant mismatch", "token_tenant_id", caller.TenantID, "tenant_id", chi.URLParam(r, "tenantID"))
				writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "Forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (t AuthenticatedTenant) canAccess(tenantID string) bool {
	return t.IsAdmin || (tenantID != "" && t.TenantID == tenantID)
}
