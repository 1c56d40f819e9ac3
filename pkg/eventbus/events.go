package eventbus

import "time"

// SubjectPrefix is captured by the service stream.
const SubjectPrefix = "upi."

const (
	SubjectCheckCompleted  = "upi.checks.completed"
	SubjectReportSubmitted = "upi.reports.submitted"
	SubjectReportDeleted   = "upi.reports.deleted"
)

const (
	TypeCheckCompleted  = "check.completed"
	TypeReportSubmitted = "report.submitted"
	TypeReportDeleted   = "report.deleted"
)

// CheckCompletedData is published after a check is stored.
type CheckCompletedData struct {
	CheckID      string    `json:"check_id"`
	UPIID        string    `json:"upi_id"`
	Domain       *string   `json:"domain"`
	IsSuspicious bool      `json:"is_suspicious"`
	Status       string    `json:"status"`
	Reasons      []string  `json:"reasons"`
	CheckedAt    time.Time `json:"checked_at"`
}

// ReportSubmittedData is published after a community report is stored.
type ReportSubmittedData struct {
	ReportID   string    `json:"report_id"`
	UPIID      string    `json:"upi_id"`
	Reason     string    `json:"report_reason"`
	ReportedAt time.Time `json:"reported_at"`
}

// ReportDeletedData is published when a moderator removes a report.
type ReportDeletedData struct {
	ReportID  string    `json:"report_id"`
	DeletedBy string    `json:"deleted_by"`
	DeletedAt time.Time `json:"deleted_at"`
}
