package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/channelport/backend/internal/domain/catalog"
	"github.com/channelport/backend/internal/domain/integration"
	"github.com/channelport/backend/internal/infrastructure/config"
)

// ProgressFunc reports running progress to an optional observer. Callbacks
// must return promptly; the syncers invoke them inline between writes.
type ProgressFunc func(processed, total int, label string)

// TreeSyncReport summarizes one tree synchronization run
type TreeSyncReport struct {
	// SkippedRun is true when the resync policy decided the cached tree is
	// authoritative and no fetch happened
	SkippedRun bool
	// Created and Updated count nodes written during the primary pass
	Created int64
	Updated int64
	// Mismatched counts secondary-pass nodes with no matching primary row
	Mismatched int64
	// MissingID counts nodes skipped because the remote omitted their ID
	MissingID int64
	// Deprecated counts nodes not seen by this run
	Deprecated int64
}

// TreeSyncer mirrors the marketplace category taxonomy into the local cache.
//
// A full run makes two passes over the remote tree: the primary-language pass
// creates and refreshes nodes, the secondary-language pass only merges display
// names into rows the primary pass produced. Nodes that stop appearing are
// soft-deprecated, never deleted.
type TreeSyncer struct {
	remote     integration.RemoteCatalog
	categories catalog.CategoryRepository
	policy     config.TreeResyncPolicy
	logger     *zap.Logger
}

// NewTreeSyncer creates a new TreeSyncer
func NewTreeSyncer(
	remote integration.RemoteCatalog,
	categories catalog.CategoryRepository,
	policy config.TreeResyncPolicy,
	logger *zap.Logger,
) *TreeSyncer {
	return &TreeSyncer{
		remote:     remote,
		categories: categories,
		policy:     policy,
		logger:     logger.Named("tree_syncer"),
	}
}

// SyncTree synchronizes the category taxonomy starting at rootID (nil for the
// whole tree). A non-forced full sync is skipped under the skip_if_cached
// policy whenever the cache already holds categories: full-tree syncs are
// expensive and the taxonomy changes rarely.
func (s *TreeSyncer) SyncTree(ctx context.Context, rootID *int64, force bool, progress ProgressFunc) (*TreeSyncReport, error) {
	report := &TreeSyncReport{}
	fullSync := rootID == nil

	if fullSync && !force && s.policy == config.TreeResyncSkipIfCached {
		count, err := s.categories.CountActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("tree sync: failed to inspect cache: %w", err)
		}
		if count > 0 {
			s.logger.Info("category tree already cached, skipping full sync",
				zap.Int64("cached_nodes", count),
			)
			report.SkippedRun = true
			return report, nil
		}
	}

	passStart := time.Now()

	primary, err := s.remote.FetchCategoryTree(ctx, rootID, integration.LanguagePrimary)
	if err != nil {
		return nil, fmt.Errorf("tree sync: primary pass fetch failed: %w", err)
	}

	// Count before writing so the progress total is stable.
	total := countNodes(primary)
	processed := 0

	for i := range primary {
		if err := s.walkPrimary(ctx, primary[i], nil, 0, &processed, total, progress, report); err != nil {
			return nil, err
		}
	}

	secondary, err := s.remote.FetchCategoryTree(ctx, rootID, integration.LanguageSecondary)
	if err != nil {
		return nil, fmt.Errorf("tree sync: secondary pass fetch failed: %w", err)
	}
	for i := range secondary {
		if err := s.walkSecondary(ctx, secondary[i], nil, report); err != nil {
			return nil, err
		}
	}

	if err := s.categories.RecomputeDisplayNames(ctx); err != nil {
		return nil, fmt.Errorf("tree sync: failed to recompute display names: %w", err)
	}

	// Nodes untouched by this run have disappeared upstream. Only a full
	// sync saw the whole taxonomy, so only a full sync may deprecate.
	if fullSync {
		deprecated, err := s.categories.DeprecateStale(ctx, passStart)
		if err != nil {
			return nil, fmt.Errorf("tree sync: failed to deprecate stale nodes: %w", err)
		}
		report.Deprecated = deprecated
	}

	s.logger.Info("category tree synchronized",
		zap.Int64("created", report.Created),
		zap.Int64("updated", report.Updated),
		zap.Int64("mismatched", report.Mismatched),
		zap.Int64("missing_id", report.MissingID),
		zap.Int64("deprecated", report.Deprecated),
	)
	return report, nil
}

// walkPrimary upserts one node and recurses into its children
func (s *TreeSyncer) walkPrimary(ctx context.Context, node integration.CategoryNode, parentID *int64, level int, processed *int, total int, progress ProgressFunc, report *TreeSyncReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if node.CategoryID == 0 {
		s.logger.Warn("skipping category node without an ID",
			zap.String("name", node.Name),
			zap.Int("level", level),
		)
		report.MissingID++
		return nil
	}

	created, err := s.categories.UpsertNode(ctx, node.CategoryID, parentID, node.Name, level, node.IsLeaf(), node.IsDisabled)
	if err != nil {
		return fmt.Errorf("tree sync: failed to upsert category %d: %w", node.CategoryID, err)
	}
	if created {
		report.Created++
	} else {
		report.Updated++
	}

	*processed++
	if progress != nil {
		progress(*processed, total, node.Name)
	}

	for i := range node.Children {
		if err := s.walkPrimary(ctx, node.Children[i], &node.CategoryID, level+1, processed, total, progress, report); err != nil {
			return err
		}
	}
	return nil
}

// walkSecondary merges names into existing rows only. A key present in the
// secondary tree but absent locally means the two language trees disagree;
// that is logged and skipped, never created.
func (s *TreeSyncer) walkSecondary(ctx context.Context, node integration.CategoryNode, parentID *int64, report *TreeSyncReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if node.CategoryID == 0 {
		report.MissingID++
		return nil
	}

	merged, err := s.categories.MergeSecondaryName(ctx, node.CategoryID, parentID, node.Name)
	if err != nil {
		return fmt.Errorf("tree sync: failed to merge secondary name for category %d: %w", node.CategoryID, err)
	}
	if !merged {
		s.logger.Warn("secondary-language node has no primary counterpart",
			zap.Int64("category_id", node.CategoryID),
			zap.String("name", node.Name),
		)
		report.Mismatched++
	}

	for i := range node.Children {
		if err := s.walkSecondary(ctx, node.Children[i], &node.CategoryID, report); err != nil {
			return err
		}
	}
	return nil
}

// countNodes counts every node in the forest, including ones later skipped
// for missing IDs
func countNodes(nodes []integration.CategoryNode) int {
	total := 0
	for i := range nodes {
		total += 1 + countNodes(nodes[i].Children)
	}
	return total
}
