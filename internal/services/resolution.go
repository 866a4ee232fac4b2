package services

import (
	"context"
	"strings"
	"time"

	"scontrini/internal/core"
	"scontrini/internal/log"
	"scontrini/internal/storage"
)

// ResolutionService applies user-supplied categories to a pending
// batch and commits it to the ledger.
type ResolutionService struct {
	store     storage.Store
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time
}

func NewResolutionService(store storage.Store, publisher EventPublisher, logger *log.Logger) *ResolutionService {
	return &ResolutionService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent("resolution"),
		now:       time.Now,
	}
}

// Resolve commits every item of the batch under the month active now
// (not the upload month), learning a classification rule for each item
// unconditionally. Positions missing from categories fall back to
// core.FallbackCategory. An unknown batch id is a no-op and returns
// false.
func (s *ResolutionService) Resolve(ctx context.Context, batchID string, categories map[int]string) (bool, error) {
	batch, ok, err := s.store.Batch(ctx, batchID)
	if err != nil {
		return false, core.Failure("store", core.FailureFailed, err)
	}
	if !ok {
		s.logger.WarnContext(ctx, "Resolution for unknown batch ignored", "batch_id", batchID)
		return false, nil
	}

	entries := make([]core.LedgerEntry, 0, len(batch.Items))
	rules := make([]core.Rule, 0, len(batch.Items))
	for i, item := range batch.Items {
		category := strings.TrimSpace(categories[i])
		if category == "" {
			category = core.FallbackCategory
		}
		entries = append(entries, core.LedgerEntry{
			Name:     item.Name,
			Amount:   item.Amount,
			Category: category,
		})
		// Learn from user input even when it is the fallback: the next
		// occurrence of this item should not need clarification again.
		rules = append(rules, core.Rule{
			Keyword:  strings.ToLower(item.Name),
			Category: category,
		})
	}

	month := core.MonthKey(s.now())
	ok, err = s.store.ResolveBatch(ctx, batchID, month, entries, rules)
	if err != nil {
		return false, core.Failure("store", core.FailureFailed, err)
	}
	if !ok {
		return false, nil
	}

	if s.publisher != nil {
		if err := s.publisher.PublishLedgerCommitted(ctx, month, entries); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish ledger commit event", "error", err)
		}
	}
	s.logger.InfoContext(ctx, "Resolved pending batch", "batch_id", batchID, "items", len(entries), "month", month)
	return true, nil
}
