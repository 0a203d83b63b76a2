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

// DictionaryRef identifies one dictionary together with the attribute and
// category edge it was discovered through. The marketplace paginates values
// by attribute, so the discovery coordinates are part of every request even
// though the cache is keyed by dictionary alone.
type DictionaryRef struct {
	DictionaryID     int64
	AttributeID      int64
	CategoryID       int64
	ParentCategoryID int64
}

// DictionarySyncResult summarizes one dictionary's sync
type DictionarySyncResult struct {
	// Synced is the number of active values after the run
	Synced int64
	// FromCache is true when the freshness policy skipped all fetching
	FromCache bool
	// Deduplicated is true when this dictionary was already handled earlier
	// in the same batch run
	Deduplicated bool
	// SecondaryOnly is true when only the secondary-language pass ran
	SecondaryOnly bool
	// Deprecated counts values not seen by this run
	Deprecated int64
}

// DictionarySyncer keeps enumerated dictionary values cached locally.
//
// Dictionaries are shared: many attributes across many categories reference
// the same dictionary_id. The syncer remembers which dictionaries the current
// batch run already handled and short-circuits repeats, so a dictionary is
// fetched at most once per run regardless of how many attributes point at it.
type DictionarySyncer struct {
	remote   integration.RemoteCatalog
	values   catalog.DictionaryValueRepository
	window   time.Duration
	pageSize int
	logger   *zap.Logger

	// seen tracks dictionary IDs handled in the current run. The engine is
	// strictly serial, so plain map access is safe.
	seen map[int64]struct{}
}

// NewDictionarySyncer creates a new DictionarySyncer
func NewDictionarySyncer(
	remote integration.RemoteCatalog,
	values catalog.DictionaryValueRepository,
	window time.Duration,
	pageSize int,
	logger *zap.Logger,
) *DictionarySyncer {
	return &DictionarySyncer{
		remote:   remote,
		values:   values,
		window:   window,
		pageSize: pageSize,
		logger:   logger.Named("dictionary_syncer"),
		seen:     make(map[int64]struct{}),
	}
}

// BeginRun clears the per-run de-duplication state. The coordinator calls it
// once at the start of every batch.
func (s *DictionarySyncer) BeginRun() {
	s.seen = make(map[int64]struct{})
}

// SyncDictionary synchronizes one dictionary's values
func (s *DictionarySyncer) SyncDictionary(ctx context.Context, ref DictionaryRef, force bool) (*DictionarySyncResult, error) {
	if ref.DictionaryID <= 0 {
		return nil, fmt.Errorf("dictionary sync: %w: attribute %d has no dictionary", shared.ErrInvalidInput, ref.AttributeID)
	}

	if _, done := s.seen[ref.DictionaryID]; done {
		return &DictionarySyncResult{Deduplicated: true}, nil
	}
	s.seen[ref.DictionaryID] = struct{}{}

	if !force {
		state, err := s.values.SyncState(ctx, ref.DictionaryID, time.Now().Add(-s.window))
		if err != nil {
			return nil, fmt.Errorf("dictionary sync: failed to read cache state: %w", err)
		}
		if state.IsFresh() {
			if state.MissingSecondary == 0 {
				s.logger.Debug("dictionary fresh in cache, skipping",
					zap.Int64("dictionary_id", ref.DictionaryID),
				)
				return s.finish(ctx, ref.DictionaryID, &DictionarySyncResult{FromCache: true})
			}
			if err := s.syncPass(ctx, ref, integration.LanguageSecondary); err != nil {
				return nil, err
			}
			if err := s.values.RecomputeDisplay(ctx, ref.DictionaryID); err != nil {
				return nil, fmt.Errorf("dictionary sync: failed to recompute display fields: %w", err)
			}
			return s.finish(ctx, ref.DictionaryID, &DictionarySyncResult{SecondaryOnly: true})
		}
	}

	passStart := time.Now()

	if err := s.syncPass(ctx, ref, integration.LanguagePrimary); err != nil {
		return nil, err
	}
	if err := s.syncPass(ctx, ref, integration.LanguageSecondary); err != nil {
		return nil, err
	}

	if err := s.values.RecomputeDisplay(ctx, ref.DictionaryID); err != nil {
		return nil, fmt.Errorf("dictionary sync: failed to recompute display fields: %w", err)
	}

	deprecated, err := s.values.DeprecateStale(ctx, ref.DictionaryID, passStart)
	if err != nil {
		return nil, fmt.Errorf("dictionary sync: failed to deprecate stale values: %w", err)
	}

	return s.finish(ctx, ref.DictionaryID, &DictionarySyncResult{Deprecated: deprecated})
}

// syncPass pulls every page of one language pass. The primary pass creates
// and refreshes rows; the secondary pass only merges into existing rows.
func (s *DictionarySyncer) syncPass(ctx context.Context, ref DictionaryRef, lang integration.Language) error {
	cursor := int64(0)
	for {
		page, hasNext, err := s.remote.FetchDictionaryPage(ctx, integration.DictionaryPageRequest{
			AttributeID:      ref.AttributeID,
			CategoryID:       ref.CategoryID,
			ParentCategoryID: ref.ParentCategoryID,
			AfterValueID:     cursor,
			PageSize:         s.pageSize,
			Language:         lang,
		})
		if err != nil {
			return fmt.Errorf("dictionary sync: %s page fetch failed for dictionary %d: %w", lang, ref.DictionaryID, err)
		}
		if len(page) == 0 {
			return nil
		}

		for i := range page {
			rv := &page[i]
			if rv.ValueID == 0 {
				s.logger.Warn("skipping dictionary value without an ID",
					zap.Int64("dictionary_id", ref.DictionaryID),
					zap.String("value", rv.Value),
				)
				continue
			}
			if lang == integration.LanguagePrimary {
				value := &catalog.DictionaryValue{
					BaseEntity:   shared.NewBaseEntity(),
					DictionaryID: ref.DictionaryID,
					ValueID:      rv.ValueID,
					ValuePrimary: rv.Value,
					InfoPrimary:  rv.Info,
					Picture:      rv.Picture,
					CachedAt:     time.Now(),
				}
				if _, err := s.values.UpsertPrimary(ctx, value); err != nil {
					return fmt.Errorf("dictionary sync: failed to upsert value %d: %w", rv.ValueID, err)
				}
			} else {
				merged, err := s.values.MergeSecondary(ctx, ref.DictionaryID, rv.ValueID, rv.Value, rv.Info)
				if err != nil {
					return fmt.Errorf("dictionary sync: failed to merge secondary fields for value %d: %w", rv.ValueID, err)
				}
				if !merged {
					s.logger.Debug("secondary-language value has no primary counterpart",
						zap.Int64("dictionary_id", ref.DictionaryID),
						zap.Int64("value_id", rv.ValueID),
					)
				}
			}
		}

		cursor = page[len(page)-1].ValueID
		if !hasNext {
			return nil
		}
	}
}

// finish loads the post-run value count into the result
func (s *DictionarySyncer) finish(ctx context.Context, dictionaryID int64, result *DictionarySyncResult) (*DictionarySyncResult, error) {
	count, err := s.values.CountActive(ctx, dictionaryID)
	if err != nil {
		return nil, fmt.Errorf("dictionary sync: failed to count values: %w", err)
	}
	result.Synced = count
	return result, nil
}
