package reports

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/upi-guard/internal/upi"
	"github.com/richxcame/upi-guard/pkg/common"
	"github.com/richxcame/upi-guard/pkg/database"
	"github.com/richxcame/upi-guard/pkg/eventbus"
	"github.com/richxcame/upi-guard/pkg/logger"
	"github.com/richxcame/upi-guard/pkg/resilience"
	"github.com/richxcame/upi-guard/pkg/tracing"
	"github.com/richxcame/upi-guard/pkg/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const eventSource = "reports-service"

// Service handles community report business logic
type Service struct {
	repo   RepositoryInterface
	policy *resilience.Policy
	events eventbus.Publisher
	now    func() time.Time
}

// NewService creates a new reports service. policy and events may be nil.
func NewService(repo RepositoryInterface, policy *resilience.Policy, events eventbus.Publisher) *Service {
	return &Service{repo: repo, policy: policy, events: events, now: time.Now}
}

// SubmitReport stores a community report. The UPI id must parse; an empty
// email is stored as NULL.
func (s *Service) SubmitReport(ctx context.Context, req SubmitReportRequest) (*Report, error) {
	req.UPIID = strings.TrimSpace(req.UPIID)
	req.Reason = strings.TrimSpace(req.Reason)
	req.ReporterEmail = strings.TrimSpace(req.ReporterEmail)

	if err := upi.Validate(req.UPIID); err != nil {
		return nil, common.NewBadRequestError(err.Error(), err)
	}
	if err := validation.ValidateStruct(&req); err != nil {
		return nil, err
	}

	report := &Report{ID: uuid.New(), UPIID: req.UPIID, Reason: req.Reason}
	if req.ReporterEmail != "" {
		email := req.ReporterEmail
		report.ReporterEmail = &email
	}

	ctx, span := tracing.StartSpan(ctx, "reports.SubmitReport")
	defer span.End()

	if err := s.policy.Exec(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, report)
	}); err != nil {
		tracing.RecordError(span, err)
		return nil, database.StoreError("failed to submit report", err)
	}

	logger.WithContext(ctx).Info("report submitted",
		zap.String("report_id", report.ID.String()),
		zap.String("upi_id", report.UPIID),
	)

	s.publish(ctx, eventbus.SubjectReportSubmitted, eventbus.TypeReportSubmitted, eventbus.ReportSubmittedData{
		ReportID:   report.ID.String(),
		UPIID:      report.UPIID,
		Reason:     report.Reason,
		ReportedAt: report.ReportedAt,
	})

	return report, nil
}

// ListRecentReports returns the newest reports. A non-positive limit means
// DefaultRecentLimit.
func (s *Service) ListRecentReports(ctx context.Context, limit int) ([]*Report, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	ctx, span := tracing.StartSpan(ctx, "reports.ListRecentReports", attribute.Int("limit", limit))
	defer span.End()

	result, err := s.policy.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListRecent(ctx, limit)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, database.StoreError("failed to list reports", err)
	}
	reports, _ := result.([]*Report)
	return reports, nil
}

// ListReportsForUPI returns the reports filed against one id, newest first
func (s *Service) ListReportsForUPI(ctx context.Context, upiID string) ([]*Report, error) {
	upiID = strings.TrimSpace(upiID)
	if err := upi.Validate(upiID); err != nil {
		return nil, common.NewBadRequestError(err.Error(), err)
	}

	ctx, span := tracing.StartSpan(ctx, "reports.ListReportsForUPI")
	defer span.End()

	result, err := s.policy.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListByUPIID(ctx, upiID, MaxReportsPerUPI)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, database.StoreError("failed to list reports", err)
	}
	reports, _ := result.([]*Report)
	return reports, nil
}

// DeleteReport removes a report on behalf of a moderator
func (s *Service) DeleteReport(ctx context.Context, id uuid.UUID, deletedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "reports.DeleteReport")
	defer span.End()

	err := s.policy.Exec(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		if database.IsNotFound(err) {
			return common.NewNotFoundError("Report not found", err)
		}
		tracing.RecordError(span, err)
		return database.StoreError("failed to delete report", err)
	}

	logger.WithContext(ctx).Info("report deleted",
		zap.String("report_id", id.String()),
		zap.String("deleted_by", deletedBy),
	)

	s.publish(ctx, eventbus.SubjectReportDeleted, eventbus.TypeReportDeleted, eventbus.ReportDeletedData{
		ReportID:  id.String(),
		DeletedBy: deletedBy,
		DeletedAt: s.now().UTC(),
	})
	return nil
}

// publish emits an event best effort; the report is already stored.
func (s *Service) publish(ctx context.Context, subject, eventType string, data interface{}) {
	if s.events == nil {
		return
	}
	event, err := eventbus.NewEvent(eventType, eventSource, data)
	if err == nil {
		err = s.events.Publish(ctx, subject, event)
	}
	if err != nil {
		logger.WithContext(ctx).Warn("failed to publish event",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}
