package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yehey123/spending-tracker/internal/cache"
	"github.com/yehey123/spending-tracker/internal/model"
)

// opCheckEligibility is the cache operation name for eligibility checks.
const opCheckEligibility = "check_eligibility"

// checkResult is the cached payload of one eligibility decision.
type checkResult struct {
	IsEligible bool `json:"is_eligible"`
}

// Service answers eligibility checks through the shared result cache, so
// repeated checks of the same transaction within the cache window skip the
// classifier.
type Service struct {
	memo   *cache.Memoizer
	logger *slog.Logger
}

// NewService creates an eligibility service backed by memo.
func NewService(memo *cache.Memoizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{memo: memo, logger: logger}
}

// CheckCached returns the eligibility decision for txn, consulting the cache
// first. A failure to persist a freshly computed decision is logged and
// swallowed; the decision is still returned. Any other cache failure is
// returned as an error.
func (s *Service) CheckCached(ctx context.Context, txn model.Transaction) (bool, error) {
	kwargs := map[string]any{
		"description": txn.Description,
		"amount":      txn.Amount.String(),
		"category":    txn.Category,
	}

	var result checkResult
	err := s.memo.Do(ctx, opCheckEligibility, nil, kwargs, &result, func(context.Context) (any, error) {
		return checkResult{IsEligible: Check(txn.Category)}, nil
	})
	if err != nil {
		if errors.Is(err, cache.ErrStoreFailed) {
			s.logger.Warn("eligibility result computed but not cached",
				"category", txn.Category,
				"error", err)
			return result.IsEligible, nil
		}
		return false, fmt.Errorf("failed to check eligibility: %w", err)
	}

	return result.IsEligible, nil
}
