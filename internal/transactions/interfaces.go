package transactions

import "context"

// RepositoryInterface defines the interface for transaction repository operations
type RepositoryInterface interface {
	GetByUPIID(ctx context.Context, upiID string, limit int) ([]*Transaction, error)
}
