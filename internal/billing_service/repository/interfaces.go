package repository

import (
	"context"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/jackc/pgx/v5"
)

// Querier is the read surface shared by pgxpool.Pool, pgx.Tx and pgxmock.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// UsageRepository counts the records a tenant is billed on.
type UsageRepository interface {
	CountActiveStudents(ctx context.Context, tenantID string) (int64, error)
	CountActiveCycles(ctx context.Context, tenantID string) (int64, error)
}

// StorageMeter reports how many bytes a tenant stores.
type StorageMeter interface {
	StorageBytes(ctx context.Context, tenantID string) (int64, error)
}

// SubscriptionRepository reads the subscription part of the tenant aggregate.
// It returns domain.ErrTenantNotFound for unknown tenants.
type SubscriptionRepository interface {
	GetByTenantID(ctx context.Context, tenantID string) (*domain.SubscriptionRecord, error)
}
