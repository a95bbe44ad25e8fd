package app

import (
	"context"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/stretchr/testify/mock"
)

type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) CountActiveStudents(ctx context.Context, tenantID string) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsageRepository) CountActiveCycles(ctx context.Context, tenantID string) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

type MockStorageMeter struct {
	mock.Mock
}

func (m *MockStorageMeter) StorageBytes(ctx context.Context, tenantID string) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) GetByTenantID(ctx context.Context, tenantID string) (*domain.SubscriptionRecord, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubscriptionRecord), args.Error(1)
}

type MockUsageMeasurer struct {
	mock.Mock
}

func (m *MockUsageMeasurer) MeasureUsage(ctx context.Context, tenantID string) (domain.UsageSnapshot, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(domain.UsageSnapshot), args.Error(1)
}

type MockPaymentDispatcher struct {
	mock.Mock
}

func (m *MockPaymentDispatcher) InitiatePayment(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentInitiationResult, error) {
	args := m.Called(ctx, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentInitiationResult), args.Error(1)
}

func (m *MockPaymentDispatcher) ParseCallback(ctx context.Context, provider string, req domain.CallbackRequest) (*domain.PaymentCallback, error) {
	args := m.Called(ctx, provider, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentCallback), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject, msgID string, data []byte) error {
	args := m.Called(ctx, subject, msgID, data)
	return args.Error(0)
}
