package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/channelport/backend/internal/domain/catalog"
	"github.com/channelport/backend/internal/domain/integration"
)

// CategorySyncer is the per-category attribute sync step of a batch run
type CategorySyncer interface {
	SyncCategory(ctx context.Context, ref catalog.LeafRef, force bool) (*AttributeSyncResult, error)
}

// ValuesSyncer is the per-dictionary sync step of a batch run
type ValuesSyncer interface {
	BeginRun()
	SyncDictionary(ctx context.Context, ref DictionaryRef, force bool) (*DictionarySyncResult, error)
}

// BatchRequest describes one batch run
type BatchRequest struct {
	// CategoryIDs restricts the run to specific categories; empty means
	// every known active leaf
	CategoryIDs []int64
	// IncludeDictionaries also synchronizes dictionary values of the
	// categories' dictionary-bearing attributes
	IncludeDictionaries bool
	// Force bypasses the freshness policy
	Force bool
	// Progress is an optional callback invoked after each category
	Progress BatchProgressFunc
}

// BatchProgressFunc receives running totals after every finished category
type BatchProgressFunc func(categoriesDone, categoriesTotal int, attributesSynced, valuesSynced int64)

// CategoryError records one isolated per-category failure
type CategoryError struct {
	CategoryID int64
	Err        string
}

// BatchReport is the aggregate outcome of one batch run
type BatchReport struct {
	// Success is true when no category failed
	Success bool
	// StartedAt and FinishedAt bound the run
	StartedAt  time.Time
	FinishedAt time.Time

	CategoriesProcessed int
	// CategoriesSkipped counts categories the marketplace no longer knows
	CategoriesSkipped int
	CategoriesFailed  int
	AttributesSynced  int64
	ValuesSynced      int64
	// Errors is bounded; TruncatedErrors counts failures beyond the cap
	Errors          []CategoryError
	TruncatedErrors int
}

// BatchCoordinator runs attribute (and optionally dictionary) synchronization
// across a set of leaf categories.
//
// Execution is strictly serial, one category at a time. Categories frequently
// share dictionaries, and concurrent writers on the same dictionary rows
// produce severe write-lock contention; serial execution trades wall-clock
// time for predictable, contention-free throughput. Every store write commits
// immediately, so a crash loses at most one category's work and the next run
// resumes from the cache state.
type BatchCoordinator struct {
	categories catalog.CategoryRepository
	attributes CategorySyncer
	values     ValuesSyncer
	maxErrors  int
	logger     *zap.Logger
}

// NewBatchCoordinator creates a new BatchCoordinator
func NewBatchCoordinator(
	categories catalog.CategoryRepository,
	attributes CategorySyncer,
	values ValuesSyncer,
	maxErrors int,
	logger *zap.Logger,
) *BatchCoordinator {
	if maxErrors <= 0 {
		maxErrors = 20
	}
	return &BatchCoordinator{
		categories: categories,
		attributes: attributes,
		values:     values,
		maxErrors:  maxErrors,
		logger:     logger.Named("batch_coordinator"),
	}
}

// Run executes one batch. Per-category failures are recorded and never abort
// the run; only context cancellation or a failure to enumerate the categories
// stops it early.
func (c *BatchCoordinator) Run(ctx context.Context, req BatchRequest) (*BatchReport, error) {
	report := &BatchReport{StartedAt: time.Now()}

	refs, err := c.resolveLeafRefs(ctx, req.CategoryIDs)
	if err != nil {
		return nil, fmt.Errorf("batch: failed to resolve leaf categories: %w", err)
	}

	c.logger.Info("batch run started",
		zap.Int("categories", len(refs)),
		zap.Bool("dictionaries", req.IncludeDictionaries),
		zap.Bool("force", req.Force),
	)

	c.values.BeginRun()

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now()
			return report, err
		}

		c.syncOne(ctx, ref, req, report)

		if req.Progress != nil {
			req.Progress(i+1, len(refs), report.AttributesSynced, report.ValuesSynced)
		}
	}

	report.FinishedAt = time.Now()
	report.Success = report.CategoriesFailed == 0

	c.logger.Info("batch run finished",
		zap.Bool("success", report.Success),
		zap.Int("processed", report.CategoriesProcessed),
		zap.Int("skipped", report.CategoriesSkipped),
		zap.Int("failed", report.CategoriesFailed),
		zap.Int64("attributes_synced", report.AttributesSynced),
		zap.Int64("values_synced", report.ValuesSynced),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// resolveLeafRefs enumerates the categories to process, stalest-first
func (c *BatchCoordinator) resolveLeafRefs(ctx context.Context, categoryIDs []int64) ([]catalog.LeafRef, error) {
	if len(categoryIDs) > 0 {
		return c.categories.FindLeafRefs(ctx, categoryIDs)
	}
	return c.categories.ListLeafRefs(ctx, 0)
}

// syncOne processes a single category edge, isolating its failures
func (c *BatchCoordinator) syncOne(ctx context.Context, ref catalog.LeafRef, req BatchRequest, report *BatchReport) {
	result, err := c.attributes.SyncCategory(ctx, ref, req.Force)
	if err != nil {
		if errors.Is(err, integration.ErrCategoryUnavailable) {
			// The marketplace retired the category. Not an error: the
			// rows age out through deprecation on the next tree sync.
			c.logger.Info("category unavailable on marketplace, skipping",
				zap.Int64("category_id", ref.CategoryID),
			)
			report.CategoriesSkipped++
			return
		}
		c.recordError(report, ref.CategoryID, err)
		return
	}

	report.CategoriesProcessed++
	report.AttributesSynced += result.Synced

	if !req.IncludeDictionaries {
		return
	}

	parentID := int64(0)
	if ref.ParentID != nil {
		parentID = *ref.ParentID
	}

	for i := range result.Attributes {
		attr := &result.Attributes[i]
		if !attr.HasDictionary() {
			continue
		}

		dictResult, err := c.values.SyncDictionary(ctx, DictionaryRef{
			DictionaryID:     attr.DictionaryID,
			AttributeID:      attr.AttributeID,
			CategoryID:       ref.CategoryID,
			ParentCategoryID: parentID,
		}, req.Force)
		if err != nil {
			c.recordError(report, ref.CategoryID, fmt.Errorf("dictionary %d: %w", attr.DictionaryID, err))
			continue
		}
		if !dictResult.Deduplicated {
			report.ValuesSynced += dictResult.Synced
		}
	}
}

// recordError registers an isolated failure, keeping the list bounded
func (c *BatchCoordinator) recordError(report *BatchReport, categoryID int64, err error) {
	c.logger.Error("category sync failed",
		zap.Int64("category_id", categoryID),
		zap.Error(err),
	)
	report.CategoriesFailed++
	if len(report.Errors) < c.maxErrors {
		report.Errors = append(report.Errors, CategoryError{
			CategoryID: categoryID,
			Err:        err.Error(),
		})
	} else {
		report.TruncatedErrors++
	}
}
