package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/ecolix/golang_services/internal/billing_service/repository"
	"golang.org/x/sync/errgroup"
)

// Sub-query names carried by domain.MeasurementError.
const (
	QueryStudents = "students"
	QueryCycles   = "cycles"
	QueryStorage  = "storage"
)

// UsageMeter measures a tenant's live consumption.
type UsageMeter struct {
	counts  repository.UsageRepository
	storage repository.StorageMeter
	logger  *slog.Logger
}

func NewUsageMeter(counts repository.UsageRepository, storage repository.StorageMeter, logger *slog.Logger) *UsageMeter {
	return &UsageMeter{
		counts:  counts,
		storage: storage,
		logger:  logger.With("component", "usage_meter"),
	}
}

// MeasureUsage runs the three sub-queries concurrently. If any of them fails
// the whole measurement fails with a *domain.MeasurementError naming it; a
// partial snapshot is never returned.
func (m *UsageMeter) MeasureUsage(ctx context.Context, tenantID string) (domain.UsageSnapshot, error) {
	start := time.Now()
	var students, cycles, storageBytes int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := m.counts.CountActiveStudents(gctx, tenantID)
		if err != nil {
			return &domain.MeasurementError{Query: QueryStudents, Err: err}
		}
		students = n
		return nil
	})
	g.Go(func() error {
		n, err := m.counts.CountActiveCycles(gctx, tenantID)
		if err != nil {
			return &domain.MeasurementError{Query: QueryCycles, Err: err}
		}
		cycles = n
		return nil
	})
	g.Go(func() error {
		n, err := m.storage.StorageBytes(gctx, tenantID)
		if err != nil {
			return &domain.MeasurementError{Query: QueryStorage, Err: err}
		}
		storageBytes = n
		return nil
	})

	err := g.Wait()
	usageMeasurementDurationHist.Observe(time.Since(start).Seconds())
	if err != nil {
		m.logger.WarnContext(ctx, "Usage measurement failed", "tenant_id", tenantID, "error", err)
		return domain.UsageSnapshot{}, err
	}

	return domain.UsageSnapshot{
		StudentsCount: students,
		CyclesCount:   cycles,
		StorageUsedGB: float64(storageBytes) / domain.BytesPerGB,
	}, nil
}
