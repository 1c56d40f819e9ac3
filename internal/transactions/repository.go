package transactions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads upi_transactions
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new transactions repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetByUPIID returns the newest transactions for upiID
func (r *Repository) GetByUPIID(ctx context.Context, upiID string, limit int) ([]*Transaction, error) {
	query := `
		SELECT id, upi_id, amount::float8, status, transaction_date
		FROM upi_transactions
		WHERE upi_id = $1
		ORDER BY transaction_date DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, upiID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*Transaction, 0)
	for rows.Next() {
		tx := &Transaction{}
		if err := rows.Scan(&tx.ID, &tx.UPIID, &tx.Amount, &tx.Status, &tx.TransactionDate); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}
