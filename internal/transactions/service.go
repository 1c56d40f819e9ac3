package transactions

import (
	"context"
	"strings"
	"time"

	"github.com/richxcame/upi-guard/internal/upi"
	"github.com/richxcame/upi-guard/pkg/common"
	"github.com/richxcame/upi-guard/pkg/database"
	"github.com/richxcame/upi-guard/pkg/resilience"
	"github.com/richxcame/upi-guard/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// Service serves transaction history
type Service struct {
	repo   RepositoryInterface
	policy *resilience.Policy
	now    func() time.Time
}

// NewService creates a new transactions service. policy may be nil.
func NewService(repo RepositoryInterface, policy *resilience.Policy) *Service {
	return &Service{repo: repo, policy: policy, now: time.Now}
}

// GetHistory returns the newest transactions for upiID. A non-positive limit
// means DefaultHistoryLimit.
func (s *Service) GetHistory(ctx context.Context, upiID string, limit int) ([]*HistoryEntry, error) {
	upiID = strings.TrimSpace(upiID)
	if err := upi.Validate(upiID); err != nil {
		return nil, common.NewBadRequestError(err.Error(), err)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	ctx, span := tracing.StartSpan(ctx, "transactions.GetHistory", attribute.Int("limit", limit))
	defer span.End()

	result, err := s.policy.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return s.repo.GetByUPIID(ctx, upiID, limit)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, database.StoreError("failed to load transaction history", err)
	}

	txs, _ := result.([]*Transaction)
	now := s.now()
	entries := make([]*HistoryEntry, 0, len(txs))
	for _, tx := range txs {
		entries = append(entries, &HistoryEntry{Transaction: tx, TimeAgo: TimeAgo(now, tx.TransactionDate)})
	}
	return entries, nil
}
