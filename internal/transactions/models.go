package transactions

import (
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryLimit is the number of entries shown next to a check.
const DefaultHistoryLimit = 5

// MaxHistoryLimit caps client supplied limits
const MaxHistoryLimit = 50

// Transaction is one payment seen for a UPI id. Rows are written by the
// settlement importer; this service only reads them.
type Transaction struct {
	ID              uuid.UUID `json:"id"`
	UPIID           string    `json:"upi_id"`
	Amount          float64   `json:"amount"`
	Status          string    `json:"status"`
	TransactionDate time.Time `json:"transaction_date"`
}

// HistoryEntry is a transaction with a relative timestamp for display
type HistoryEntry struct {
	*Transaction
	TimeAgo string `json:"time_ago"`
}
