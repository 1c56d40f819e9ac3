package helpers

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/upi-guard/internal/checks"
	"github.com/richxcame/upi-guard/internal/reports"
	"github.com/richxcame/upi-guard/internal/transactions"
)

// CreateTestCheck creates a stored check for a recognised issuer
func CreateTestCheck() *checks.Check {
	domain := "paytm"
	return &checks.Check{
		ID:           uuid.New(),
		UPIID:        "alice@paytm",
		IsSuspicious: false,
		Domain:       &domain,
		Reasons:      []string{},
		Status:       "safe",
		CheckedAt:    time.Now().UTC(),
	}
}

// CreateSuspiciousCheck creates a stored check for an impersonating domain
func CreateSuspiciousCheck() *checks.Check {
	domain := "support-paytm"
	return &checks.Check{
		ID:           uuid.New(),
		UPIID:        "bob@support-paytm",
		IsSuspicious: true,
		Domain:       &domain,
		Reasons: []string{
			`Contains suspicious pattern: "support-paytm"`,
			"Domain contains suspicious special characters (hyphens or underscores)",
			`Domain contains suspicious keyword: "support"`,
		},
		Status:    "suspicious",
		CheckedAt: time.Now().UTC(),
	}
}

// CreateTestReport creates a community report with no reporter email
func CreateTestReport(upiID string) *reports.Report {
	return &reports.Report{
		ID:         uuid.New(),
		UPIID:      upiID,
		Reason:     "Caller posed as bank support and asked for my PIN",
		ReportedAt: time.Now().UTC(),
	}
}

// CreateTestTransaction creates a transaction made ago before now
func CreateTestTransaction(upiID string, amount float64, ago time.Duration) *transactions.Transaction {
	return &transactions.Transaction{
		ID:              uuid.New(),
		UPIID:           upiID,
		Amount:          amount,
		Status:          "success",
		TransactionDate: time.Now().UTC().Add(-ago),
	}
}

// CreateTestSubmitReportRequest creates a valid report submission
func CreateTestSubmitReportRequest() reports.SubmitReportRequest {
	return reports.SubmitReportRequest{
		UPIID:         "scam@ybl",
		Reason:        "Promised cashback and requested a collect payment",
		ReporterEmail: "reporter@example.com",
	}
}
