package checks

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/upi-guard/internal/reports"
	"github.com/richxcame/upi-guard/internal/transactions"
)

// RepositoryInterface defines the interface for check repository operations
type RepositoryInterface interface {
	Create(ctx context.Context, check *Check) error
	GetByID(ctx context.Context, id uuid.UUID) (*Check, error)
	ListRecent(ctx context.Context, limit int) ([]*Check, error)
	List(ctx context.Context, limit, offset int) ([]*Check, int64, error)
}

// CacheInterface caches the newest checks and individual checks. The recent
// list is versioned by a generation that InvalidateRecent advances.
type CacheInterface interface {
	RecentGeneration(ctx context.Context) (int64, error)
	GetRecent(ctx context.Context, gen int64) ([]*Check, error)
	SetRecent(ctx context.Context, gen int64, checks []*Check) error
	InvalidateRecent(ctx context.Context) error
	GetCheck(ctx context.Context, id uuid.UUID) (*Check, error)
	SetCheck(ctx context.Context, check *Check) error
}

// HistoryProvider supplies transaction history for the result page
type HistoryProvider interface {
	GetHistory(ctx context.Context, upiID string, limit int) ([]*transactions.HistoryEntry, error)
}

// ReportsProvider supplies community reports for the result page
type ReportsProvider interface {
	ListReportsForUPI(ctx context.Context, upiID string) ([]*reports.Report, error)
}
