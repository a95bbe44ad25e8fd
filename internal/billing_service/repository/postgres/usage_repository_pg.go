package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ecolix/golang_services/internal/billing_service/repository"
)

const (
	countActiveStudentsSQL = `SELECT COUNT(*) FROM students WHERE tenant_id = $1 AND status = 'active'`
	countActiveCyclesSQL   = `SELECT COUNT(*) FROM academic_cycles WHERE tenant_id = $1 AND is_active = TRUE`
	sumStoredBytesSQL      = `SELECT COALESCE(SUM(size_bytes), 0)::BIGINT FROM stored_files WHERE tenant_id = $1 AND deleted_at IS NULL`
)

// PgUsageRepository runs the usage counts against the tenant tables. Each call
// is a single statement with no surrounding transaction.
type PgUsageRepository struct {
	db     repository.Querier
	logger *slog.Logger
}

func NewPgUsageRepository(db repository.Querier, logger *slog.Logger) *PgUsageRepository {
	return &PgUsageRepository{db: db, logger: logger.With("repository", "usage")}
}

func (r *PgUsageRepository) CountActiveStudents(ctx context.Context, tenantID string) (int64, error) {
	return r.scalar(ctx, countActiveStudentsSQL, tenantID, "count active students")
}

func (r *PgUsageRepository) CountActiveCycles(ctx context.Context, tenantID string) (int64, error) {
	return r.scalar(ctx, countActiveCyclesSQL, tenantID, "count active cycles")
}

// StorageBytes sums the size of the tenant's live files.
func (r *PgUsageRepository) StorageBytes(ctx context.Context, tenantID string) (int64, error) {
	return r.scalar(ctx, sumStoredBytesSQL, tenantID, "sum stored bytes")
}

func (r *PgUsageRepository) scalar(ctx context.Context, query, tenantID, op string) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, query, tenantID).Scan(&n); err != nil {
		r.logger.ErrorContext(ctx, "Usage query failed", "op", op, "tenant_id", tenantID, "error", err)
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
