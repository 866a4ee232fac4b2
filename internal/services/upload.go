// Package services orchestrates the upload, budget and resolution
// flows over the store and the extraction/classification components.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"scontrini/internal/classify"
	"scontrini/internal/core"
	"scontrini/internal/log"
	"scontrini/internal/storage"
)

// Extractor produces item candidates from a stored receipt image.
type Extractor interface {
	Extract(ctx context.Context, imagePath string) ([]core.Item, error)
}

// EventPublisher broadcasts ledger commits to interested consumers.
// Publishing is best-effort; a broken broker never fails an upload.
type EventPublisher interface {
	PublishLedgerCommitted(ctx context.Context, month string, entries []core.LedgerEntry) error
}

// UploadResult summarizes one processed receipt.
type UploadResult struct {
	Items      int
	Resolved   int
	Unresolved int
	BatchID    string
}

// UploadService runs the full receipt pipeline: persist the image,
// extract candidates, resolve categories, commit what resolved and
// queue the rest as a single pending batch.
type UploadService struct {
	store     storage.Store
	extractor Extractor
	lookup    classify.Lookuper
	publisher EventPublisher
	uploadDir string
	logger    *log.Logger

	now   func() time.Time
	newID func() string
}

// NewUploadService wires the pipeline. publisher and lookup may be nil.
func NewUploadService(store storage.Store, extractor Extractor, lookup classify.Lookuper, publisher EventPublisher, uploadDir string, logger *log.Logger) *UploadService {
	return &UploadService{
		store:     store,
		extractor: extractor,
		lookup:    lookup,
		publisher: publisher,
		uploadDir: uploadDir,
		logger:    logger.WithComponent("upload"),
		now:       time.Now,
		newID:     func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// ProcessUpload ingests one receipt image. Failures leave the store
// unchanged except for writes that already completed; the error carries
// a failure kind so callers can tell input problems from capability
// problems.
func (s *UploadService) ProcessUpload(ctx context.Context, filename string, file io.Reader) (UploadResult, error) {
	if strings.TrimSpace(filename) == "" {
		return UploadResult{}, core.Failure("upload", core.FailureInput, errors.New("missing receipt file"))
	}

	savedPath, err := s.saveReceipt(filename, file)
	if err != nil {
		return UploadResult{}, core.Failure("save", core.FailureFailed, err)
	}
	s.logger.InfoContext(ctx, "Saved uploaded receipt", "filename", filename, "path", savedPath)

	items, err := s.extractor.Extract(ctx, savedPath)
	if err != nil {
		return UploadResult{}, err
	}
	if len(items) == 0 {
		s.logger.WarnContext(ctx, "No line items extracted from receipt", "filename", filename)
	}

	rules, err := s.store.Rules(ctx)
	if err != nil {
		return UploadResult{}, core.Failure("store", core.FailureFailed, err)
	}
	resolver := classify.NewResolver(classify.NewTable(rules), s.lookup)

	var (
		resolved    []core.LedgerEntry
		unresolved  []core.ClassifiedItem
		uploadItems []core.UploadItem
		total       core.Money
	)
	for _, item := range items {
		category := resolver.Resolve(ctx, item.Name)
		total = total.Add(item.Amount)
		if category != "" {
			s.logger.DebugContext(ctx, "Classified item", "item", item.Name, "category", category)
			resolved = append(resolved, core.LedgerEntry{Name: item.Name, Amount: item.Amount, Category: category})
			uploadItems = append(uploadItems, core.UploadItem{
				Name: item.Name, Amount: item.Amount, Category: category, Status: core.StatusClassified,
			})
		} else {
			s.logger.DebugContext(ctx, "Could not classify item", "item", item.Name)
			unresolved = append(unresolved, core.ClassifiedItem{Name: item.Name, Amount: item.Amount})
			uploadItems = append(uploadItems, core.UploadItem{
				Name: item.Name, Amount: item.Amount, Status: core.StatusNeedsInput,
			})
		}
	}

	month := core.MonthKey(s.now())
	if err := s.store.AppendExpenses(ctx, month, resolved); err != nil {
		return UploadResult{}, core.Failure("store", core.FailureFailed, err)
	}
	if learned := resolver.Learned(); len(learned) > 0 {
		if err := s.store.LearnRules(ctx, learned); err != nil {
			return UploadResult{}, core.Failure("store", core.FailureFailed, err)
		}
	}

	result := UploadResult{Items: len(items), Resolved: len(resolved), Unresolved: len(unresolved)}

	if len(unresolved) > 0 {
		batch := core.PendingBatch{ID: s.newID(), Items: unresolved}
		if err := s.store.CreateBatch(ctx, batch); err != nil {
			return UploadResult{}, core.Failure("store", core.FailureFailed, err)
		}
		result.BatchID = batch.ID
		s.logger.InfoContext(ctx, "Receipt has unresolved items pending clarification",
			"filename", filename, "batch_id", batch.ID, "count", len(unresolved))
	}

	if len(items) > 0 {
		record := core.UploadRecord{
			ID:        s.newID(),
			Filename:  filename,
			CreatedAt: core.UploadTimestamp(s.now()),
			Items:     uploadItems,
			Total:     total,
		}
		if err := s.store.AddRecentUpload(ctx, record); err != nil {
			return UploadResult{}, core.Failure("store", core.FailureFailed, err)
		}
	}

	s.publishCommit(ctx, month, resolved)
	s.logger.InfoContext(ctx, "Processed receipt",
		"filename", filename, "resolved", len(resolved), "unresolved", len(unresolved))
	return result, nil
}

func (s *UploadService) saveReceipt(filename string, file io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	path := filepath.Join(s.uploadDir, s.newID()+"_"+filepath.Base(filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("write receipt file: %w", err)
	}
	return path, nil
}

func (s *UploadService) publishCommit(ctx context.Context, month string, entries []core.LedgerEntry) {
	if s.publisher == nil || len(entries) == 0 {
		return
	}
	if err := s.publisher.PublishLedgerCommitted(ctx, month, entries); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger commit event", "error", err)
	}
}
