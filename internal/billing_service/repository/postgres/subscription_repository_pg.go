package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/ecolix/golang_services/internal/billing_service/repository"
	"github.com/jackc/pgx/v5"
)

const getSubscriptionSQL = `SELECT subscription_plan, subscription_status, COALESCE(active_modules, '{}') FROM tenants WHERE id = $1`

type PgSubscriptionRepository struct {
	db     repository.Querier
	logger *slog.Logger
}

func NewPgSubscriptionRepository(db repository.Querier, logger *slog.Logger) *PgSubscriptionRepository {
	return &PgSubscriptionRepository{db: db, logger: logger.With("repository", "subscription")}
}

// GetByTenantID reads the tenant's plan, status and add-on modules. The plan
// name is returned as stored; resolving it against the catalog is the caller's job.
func (r *PgSubscriptionRepository) GetByTenantID(ctx context.Context, tenantID string) (*domain.SubscriptionRecord, error) {
	var (
		plan    string
		status  string
		modules []string
	)
	err := r.db.QueryRow(ctx, getSubscriptionSQL, tenantID).Scan(&plan, &status, &modules)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tenant %q: %w", tenantID, domain.ErrTenantNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to load subscription", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf("get subscription for tenant %q: %w", tenantID, err)
	}

	parsedStatus, err := domain.ParseSubscriptionStatus(status)
	if err != nil {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, err)
	}

	return &domain.SubscriptionRecord{
		TenantID:      tenantID,
		Plan:          domain.PlanName(plan),
		Status:        parsedStatus,
		ActiveModules: modules,
	}, nil
}
