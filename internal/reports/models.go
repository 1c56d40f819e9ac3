package reports

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultRecentLimit is the size of the community alerts list
	DefaultRecentLimit = 20
	// MaxRecentLimit caps client supplied limits
	MaxRecentLimit = 100
	// MaxReportsPerUPI bounds the reports returned for a single id
	MaxReportsPerUPI = 100
)

// Report is a community report that a UPI id was used for fraud
type Report struct {
	ID            uuid.UUID `json:"id"`
	UPIID         string    `json:"upi_id"`
	Reason        string    `json:"report_reason"`
	ReporterEmail *string   `json:"reporter_email"`
	ReportedAt    time.Time `json:"reported_at"`
}

// SubmitReportRequest is the body of POST /reports. Fields are trimmed
// before validation.
type SubmitReportRequest struct {
	UPIID         string `json:"upi_id" validate:"required,max=255"`
	Reason        string `json:"report_reason" validate:"required,max=1000"`
	ReporterEmail string `json:"reporter_email" validate:"omitempty,email,max=255"`
}
