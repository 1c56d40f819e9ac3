package checks

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/richxcame/upi-guard/internal/fraud"
	"github.com/richxcame/upi-guard/internal/reports"
	"github.com/richxcame/upi-guard/internal/transactions"
	"github.com/richxcame/upi-guard/internal/upi"
	"github.com/richxcame/upi-guard/pkg/common"
	"github.com/richxcame/upi-guard/pkg/database"
	"github.com/richxcame/upi-guard/pkg/eventbus"
	"github.com/richxcame/upi-guard/pkg/logger"
	redisClient "github.com/richxcame/upi-guard/pkg/redis"
	"github.com/richxcame/upi-guard/pkg/resilience"
	"github.com/richxcame/upi-guard/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	eventSource   = "checks-service"
	metricsSource = "api"
)

// Service runs UPI checks and serves their history
type Service struct {
	repo       RepositoryInterface
	classifier *fraud.Classifier
	policy     *resilience.Policy

	cache   CacheInterface
	events  eventbus.Publisher
	history HistoryProvider
	reports ReportsProvider
}

// NewService creates a new checks service. policy may be nil; a nil
// classifier uses the built-in registry.
func NewService(repo RepositoryInterface, classifier *fraud.Classifier, policy *resilience.Policy) *Service {
	if classifier == nil {
		classifier = fraud.NewClassifier(nil)
	}
	return &Service{repo: repo, classifier: classifier, policy: policy}
}

// SetCache enables Redis caching of recent and individual checks
func (s *Service) SetCache(cache CacheInterface) {
	s.cache = cache
}

// SetEventPublisher enables check.completed events
func (s *Service) SetEventPublisher(events eventbus.Publisher) {
	s.events = events
}

// SetDetailSources wires the providers used by GetCheckDetails
func (s *Service) SetDetailSources(history HistoryProvider, reports ReportsProvider) {
	s.history = history
	s.reports = reports
}

// Classify evaluates raw without storing anything
func (s *Service) Classify(raw string) fraud.Verdict {
	v := s.classifier.Classify(strings.TrimSpace(raw))
	fraud.RecordVerdict(metricsSource, v)
	return v
}

// CheckUPI classifies raw and stores the outcome. Malformed ids are
// rejected with the parser's message and not stored.
func (s *Service) CheckUPI(ctx context.Context, raw string) (*CheckResult, error) {
	upiID := strings.TrimSpace(raw)
	if utf8.RuneCountInString(upiID) > MaxUPIIDLength {
		return nil, common.NewBadRequestError(MsgUPIIDTooLong, nil)
	}
	addr, err := upi.Parse(upiID)
	if err != nil {
		return nil, common.NewBadRequestError(err.Error(), err)
	}

	ctx, span := tracing.StartSpan(ctx, "checks.CheckUPI", attribute.String("upi.domain", addr.Domain))
	defer span.End()

	verdict := s.classifier.ClassifyAddress(addr)
	fraud.RecordVerdict(metricsSource, verdict)
	span.SetAttributes(attribute.String("upi.status", string(verdict.Status())))

	check := newCheck(upiID, verdict)
	if err := s.policy.Exec(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, check)
	}); err != nil {
		tracing.RecordError(span, err)
		return nil, database.StoreError("failed to save check", err)
	}

	log := logger.WithContext(ctx)
	log.Info("upi checked",
		zap.String("check_id", check.ID.String()),
		zap.String("status", check.Status),
		zap.Bool("suspicious", check.IsSuspicious),
	)

	if s.cache != nil {
		if err := s.cache.InvalidateRecent(ctx); err != nil {
			log.Warn("failed to invalidate recent checks cache", zap.Error(err))
		}
	}

	s.publishCompleted(ctx, check)

	return &CheckResult{Check: check, Verdict: verdict}, nil
}

// GetCheck returns one stored check
func (s *Service) GetCheck(ctx context.Context, id uuid.UUID) (*Check, error) {
	ctx, span := tracing.StartSpan(ctx, "checks.GetCheck")
	defer span.End()

	if s.cache != nil {
		if check, err := s.cache.GetCheck(ctx, id); err == nil {
			return check, nil
		} else if !errors.Is(err, redisClient.ErrCacheMiss) {
			logger.WithContext(ctx).Warn("check cache read failed", zap.Error(err))
		}
	}

	result, err := s.policy.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		if database.IsNotFound(err) {
			return nil, common.NewNotFoundError("Check not found", err)
		}
		tracing.RecordError(span, err)
		return nil, database.StoreError("failed to get check", err)
	}
	check := result.(*Check)

	if s.cache != nil {
		if err := s.cache.SetCheck(ctx, check); err != nil {
			logger.WithContext(ctx).Warn("check cache write failed", zap.Error(err))
		}
	}
	return check, nil
}

// GetCheckDetails returns a check with a fresh verdict, its recent
// transactions and the community reports filed against the same id
func (s *Service) GetCheckDetails(ctx context.Context, id uuid.UUID) (*CheckDetails, error) {
	check, err := s.GetCheck(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &CheckDetails{
		Check:        check,
		Verdict:      s.classifier.Classify(check.UPIID),
		Transactions: []*transactions.HistoryEntry{},
		Reports:      []*reports.Report{},
	}

	if s.history != nil {
		txs, err := s.history.GetHistory(ctx, check.UPIID, DetailHistoryLimit)
		if err != nil {
			return nil, err
		}
		details.Transactions = txs
	}
	if s.reports != nil {
		reps, err := s.reports.ListReportsForUPI(ctx, check.UPIID)
		if err != nil {
			return nil, err
		}
		details.Reports = reps
	}

	return details, nil
}

// GetRecentChecks returns the newest checks, newest first. A non-positive
// limit means DefaultRecentLimit.
func (s *Service) GetRecentChecks(ctx context.Context, limit int) ([]*Check, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	ctx, span := tracing.StartSpan(ctx, "checks.GetRecentChecks", attribute.Int("limit", limit))
	defer span.End()

	gen := int64(-1)
	if s.cache != nil {
		gen = s.cachedGeneration(ctx)
	}
	if gen >= 0 {
		cached, err := s.cache.GetRecent(ctx, gen)
		if err == nil {
			return head(cached, limit), nil
		}
		if !errors.Is(err, redisClient.ErrCacheMiss) {
			logger.WithContext(ctx).Warn("recent checks cache read failed", zap.Error(err))
		}
	}

	result, err := s.policy.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListRecent(ctx, MaxRecentLimit)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, database.StoreError("failed to get recent checks", err)
	}
	recent := result.([]*Check)

	if gen >= 0 {
		if err := s.cache.SetRecent(ctx, gen, recent); err != nil {
			logger.WithContext(ctx).Warn("recent checks cache write failed", zap.Error(err))
		}
	}
	return head(recent, limit), nil
}

// cachedGeneration returns the recent list generation, or -1 when the cache
// cannot be used for this request
func (s *Service) cachedGeneration(ctx context.Context) int64 {
	gen, err := s.cache.RecentGeneration(ctx)
	if err != nil {
		logger.WithContext(ctx).Warn("recent checks generation read failed", zap.Error(err))
		return -1
	}
	return gen
}

// ListChecks returns one page of check history and the total count
func (s *Service) ListChecks(ctx context.Context, limit, offset int) ([]*Check, int64, error) {
	ctx, span := tracing.StartSpan(ctx, "checks.ListChecks")
	defer span.End()

	var total int64
	result, err := s.policy.Do(ctx, func(ctx context.Context) (interface{}, error) {
		checks, n, err := s.repo.List(ctx, limit, offset)
		total = n
		return checks, err
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, 0, database.StoreError("failed to list checks", err)
	}
	return result.([]*Check), total, nil
}

func (s *Service) publishCompleted(ctx context.Context, check *Check) {
	if s.events == nil {
		return
	}
	event, err := eventbus.NewEvent(eventbus.TypeCheckCompleted, eventSource, eventbus.CheckCompletedData{
		CheckID:      check.ID.String(),
		UPIID:        check.UPIID,
		Domain:       check.Domain,
		IsSuspicious: check.IsSuspicious,
		Status:       check.Status,
		Reasons:      check.Reasons,
		CheckedAt:    check.CheckedAt,
	})
	if err == nil {
		err = s.events.Publish(ctx, eventbus.SubjectCheckCompleted, event)
	}
	if err != nil {
		logger.WithContext(ctx).Warn("failed to publish event",
			zap.String("subject", eventbus.SubjectCheckCompleted),
			zap.Error(err),
		)
	}
}

func head(checks []*Check, n int) []*Check {
	if len(checks) > n {
		return checks[:n]
	}
	if checks == nil {
		return []*Check{}
	}
	return checks
}
