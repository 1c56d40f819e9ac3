package reports

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface defines the interface for report repository operations
type RepositoryInterface interface {
	Create(ctx context.Context, report *Report) error
	ListRecent(ctx context.Context, limit int) ([]*Report, error)
	ListByUPIID(ctx context.Context, upiID string, limit int) ([]*Report, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
