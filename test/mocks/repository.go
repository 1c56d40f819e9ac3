package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/upi-guard/internal/checks"
	"github.com/richxcame/upi-guard/internal/reports"
	"github.com/richxcame/upi-guard/internal/transactions"
	"github.com/stretchr/testify/mock"
)

// MockCheckRepository is a mock implementation of the checks repository
type MockCheckRepository struct {
	mock.Mock
}

var _ checks.RepositoryInterface = (*MockCheckRepository)(nil)

// Create mocks storing a check
func (m *MockCheckRepository) Create(ctx context.Context, check *checks.Check) error {
	args := m.Called(ctx, check)
	return args.Error(0)
}

// GetByID mocks loading a check
func (m *MockCheckRepository) GetByID(ctx context.Context, id uuid.UUID) (*checks.Check, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checks.Check), args.Error(1)
}

// ListRecent mocks listing the newest checks
func (m *MockCheckRepository) ListRecent(ctx context.Context, limit int) ([]*checks.Check, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*checks.Check), args.Error(1)
}

// List mocks paginated listing
func (m *MockCheckRepository) List(ctx context.Context, limit, offset int) ([]*checks.Check, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*checks.Check), args.Get(1).(int64), args.Error(2)
}

// MockReportRepository is a mock implementation of the reports repository
type MockReportRepository struct {
	mock.Mock
}

var _ reports.RepositoryInterface = (*MockReportRepository)(nil)

// Create mocks storing a report
func (m *MockReportRepository) Create(ctx context.Context, report *reports.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

// ListRecent mocks listing the newest reports
func (m *MockReportRepository) ListRecent(ctx context.Context, limit int) ([]*reports.Report, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reports.Report), args.Error(1)
}

// ListByUPIID mocks listing reports for one id
func (m *MockReportRepository) ListByUPIID(ctx context.Context, upiID string, limit int) ([]*reports.Report, error) {
	args := m.Called(ctx, upiID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reports.Report), args.Error(1)
}

// Delete mocks removing a report
func (m *MockReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of the transactions repository
type MockTransactionRepository struct {
	mock.Mock
}

var _ transactions.RepositoryInterface = (*MockTransactionRepository)(nil)

// GetByUPIID mocks loading transaction history
func (m *MockTransactionRepository) GetByUPIID(ctx context.Context, upiID string, limit int) ([]*transactions.Transaction, error) {
	args := m.Called(ctx, upiID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transactions.Transaction), args.Error(1)
}
