package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/channelport/backend/internal/domain/catalog"
	"github.com/channelport/backend/internal/domain/integration"
	"github.com/channelport/backend/internal/domain/shared"
)

// AttributeSyncResult summarizes one category's attribute sync
type AttributeSyncResult struct {
	// Synced is the number of active attributes after the run
	Synced int64
	// FromCache is true when the freshness policy skipped all fetching
	FromCache bool
	// SecondaryOnly is true when only the secondary-language pass ran
	SecondaryOnly bool
	// Deprecated counts attributes not seen by this run
	Deprecated int64
	// Attributes holds the category's active attributes after the run, so
	// the caller can locate dictionary-bearing ones without a second query
	Attributes []catalog.Attribute
}

// AttributeSyncer keeps one leaf category's attribute schema cached locally.
//
// Each run resolves to one of three states: fresh-cached (skip entirely),
// needs-secondary-only (heal missing secondary-language fields), or
// needs-full-sync (both language passes plus deprecation).
type AttributeSyncer struct {
	remote     integration.RemoteCatalog
	attributes catalog.AttributeRepository
	window     time.Duration
	logger     *zap.Logger
}

// NewAttributeSyncer creates a new AttributeSyncer
func NewAttributeSyncer(
	remote integration.RemoteCatalog,
	attributes catalog.AttributeRepository,
	window time.Duration,
	logger *zap.Logger,
) *AttributeSyncer {
	return &AttributeSyncer{
		remote:     remote,
		attributes: attributes,
		window:     window,
		logger:     logger.Named("attribute_syncer"),
	}
}

// SyncCategory synchronizes the attribute schema of one leaf category edge.
// Returns integration.ErrCategoryUnavailable (wrapped) when the marketplace
// no longer knows the category, so callers can skip it without treating it
// as a hard failure.
func (s *AttributeSyncer) SyncCategory(ctx context.Context, ref catalog.LeafRef, force bool) (*AttributeSyncResult, error) {
	parentID := int64(0)
	if ref.ParentID != nil {
		parentID = *ref.ParentID
	}

	if !force {
		state, err := s.attributes.SyncState(ctx, ref.CategoryID, time.Now().Add(-s.window))
		if err != nil {
			return nil, fmt.Errorf("attribute sync: failed to read cache state: %w", err)
		}
		if state.IsFresh() {
			if state.MissingSecondary == 0 {
				s.logger.Debug("attributes fresh in cache, skipping",
					zap.Int64("category_id", ref.CategoryID),
				)
				return s.finish(ctx, ref.CategoryID, &AttributeSyncResult{FromCache: true})
			}
			if err := s.syncSecondary(ctx, parentID, ref.CategoryID); err != nil {
				return nil, err
			}
			return s.finish(ctx, ref.CategoryID, &AttributeSyncResult{SecondaryOnly: true})
		}
	}

	passStart := time.Now()

	remoteAttrs, err := s.remote.FetchAttributes(ctx, parentID, ref.CategoryID, integration.LanguagePrimary)
	if err != nil {
		return nil, fmt.Errorf("attribute sync: primary pass failed for category %d: %w", ref.CategoryID, err)
	}

	for i := range remoteAttrs {
		ra := &remoteAttrs[i]
		if ra.AttributeID == 0 {
			s.logger.Warn("skipping attribute without an ID",
				zap.Int64("category_id", ref.CategoryID),
				zap.String("name", ra.Name),
			)
			continue
		}
		attr := &catalog.Attribute{
			BaseEntity:         shared.NewBaseEntity(),
			CategoryID:         ref.CategoryID,
			AttributeID:        ra.AttributeID,
			NamePrimary:        ra.Name,
			DescriptionPrimary: ra.Description,
			Type:               ra.Type,
			IsRequired:         ra.IsRequired,
			IsCollection:       ra.IsCollection,
			IsAspect:           ra.IsAspect,
			DictionaryID:       ra.DictionaryID,
			GroupID:            ra.GroupID,
			GroupName:          ra.GroupName,
			CachedAt:           time.Now(),
		}
		if _, err := s.attributes.UpsertPrimary(ctx, attr); err != nil {
			return nil, fmt.Errorf("attribute sync: failed to upsert attribute %d: %w", ra.AttributeID, err)
		}
	}

	if err := s.syncSecondary(ctx, parentID, ref.CategoryID); err != nil {
		return nil, err
	}

	deprecated, err := s.attributes.DeprecateStale(ctx, ref.CategoryID, passStart)
	if err != nil {
		return nil, fmt.Errorf("attribute sync: failed to deprecate stale attributes: %w", err)
	}

	return s.finish(ctx, ref.CategoryID, &AttributeSyncResult{Deprecated: deprecated})
}

// syncSecondary runs the secondary-language pass: merge-only, then recompute
// the coalesced display fields
func (s *AttributeSyncer) syncSecondary(ctx context.Context, parentID, categoryID int64) error {
	remoteAttrs, err := s.remote.FetchAttributes(ctx, parentID, categoryID, integration.LanguageSecondary)
	if err != nil {
		return fmt.Errorf("attribute sync: secondary pass failed for category %d: %w", categoryID, err)
	}

	for i := range remoteAttrs {
		ra := &remoteAttrs[i]
		if ra.AttributeID == 0 {
			continue
		}
		merged, err := s.attributes.MergeSecondary(ctx, categoryID, ra.AttributeID, ra.Name, ra.Description)
		if err != nil {
			return fmt.Errorf("attribute sync: failed to merge secondary fields for attribute %d: %w", ra.AttributeID, err)
		}
		if !merged {
			s.logger.Debug("secondary-language attribute has no primary counterpart",
				zap.Int64("category_id", categoryID),
				zap.Int64("attribute_id", ra.AttributeID),
			)
		}
	}

	if err := s.attributes.RecomputeDisplay(ctx, categoryID); err != nil {
		return fmt.Errorf("attribute sync: failed to recompute display fields: %w", err)
	}
	return nil
}

// finish loads the post-run attribute set into the result
func (s *AttributeSyncer) finish(ctx context.Context, categoryID int64, result *AttributeSyncResult) (*AttributeSyncResult, error) {
	attrs, err := s.attributes.ListActive(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("attribute sync: failed to list attributes: %w", err)
	}
	result.Attributes = attrs
	result.Synced = int64(len(attrs))
	return result, nil
}
