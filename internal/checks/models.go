package checks

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/upi-guard/internal/fraud"
	"github.com/richxcame/upi-guard/internal/reports"
	"github.com/richxcame/upi-guard/internal/transactions"
)

const (
	// DefaultRecentLimit is how many checks the landing page shows
	DefaultRecentLimit = 2
	// MaxRecentLimit is also the number of checks kept in the recent cache
	MaxRecentLimit = 50
	// DetailHistoryLimit is the number of transactions on a result page
	DetailHistoryLimit = 5
	// MaxUPIIDLength matches the upi_id column width, in characters
	MaxUPIIDLength = 255

	MsgUPIIDTooLong = "UPI ID must be at most 255 characters"
)

// Check is one stored classification
type Check struct {
	ID           uuid.UUID `json:"id"`
	UPIID        string    `json:"upi_id"`
	IsSuspicious bool      `json:"is_suspicious"`
	Domain       *string   `json:"domain"`
	Reasons      []string  `json:"reasons"`
	Status       string    `json:"status"`
	CheckedAt    time.Time `json:"checked_at"`
}

// CheckRequest is the body of POST /checks and POST /classify. upi_id is
// decoded loosely so that a non-string value is reported as a format error
// rather than a binding error.
type CheckRequest struct {
	UPIID interface{} `json:"upi_id"`
}

// Value returns upi_id as a string, or "" when it is not one
func (r CheckRequest) Value() string {
	s, _ := r.UPIID.(string)
	return s
}

// CheckResult is returned after a successful check
type CheckResult struct {
	Check   *Check        `json:"check"`
	Verdict fraud.Verdict `json:"verdict"`
}

// CheckDetails backs the result page
type CheckDetails struct {
	Check        *Check                       `json:"check"`
	Verdict      fraud.Verdict                `json:"verdict"`
	Transactions []*transactions.HistoryEntry `json:"transactions"`
	Reports      []*reports.Report            `json:"reports"`
}

// newCheck builds the row stored for a valid verdict. The id is assigned
// here so a retried insert lands on the same row.
func newCheck(upiID string, v fraud.Verdict) *Check {
	c := &Check{
		ID:           uuid.New(),
		UPIID:        upiID,
		IsSuspicious: v.IsSuspicious,
		Reasons:      v.Reasons,
		Status:       string(v.Status()),
	}
	if c.Reasons == nil {
		c.Reasons = []string{}
	}
	if v.Domain != "" {
		d := v.Domain
		c.Domain = &d
	}
	return c
}
