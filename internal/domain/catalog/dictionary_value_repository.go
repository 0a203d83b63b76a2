package catalog

import (
	"context"
	"time"
)

// DictionaryValueRepository defines the persistence boundary for enumerated
// dictionary values, scoped by dictionary_id rather than attribute_id.
type DictionaryValueRepository interface {
	// UpsertPrimary creates or refreshes a value from a primary-language
	// pass, keyed by (dictionary_id, value_id). An existing deprecated row
	// is reactivated. Returns true if a new row was created.
	UpsertPrimary(ctx context.Context, value *DictionaryValue) (bool, error)

	// MergeSecondary merges secondary-language value/info into an existing
	// row. Never creates rows; returns false on unknown key.
	MergeSecondary(ctx context.Context, dictionaryID, valueID int64, value, info string) (bool, error)

	// RecomputeDisplay reapplies the coalesce rule for one dictionary.
	RecomputeDisplay(ctx context.Context, dictionaryID int64) error

	// DeprecateStale marks the dictionary's values whose cached_at
	// predates the pass start. Returns the number of rows deprecated.
	DeprecateStale(ctx context.Context, dictionaryID int64, before time.Time) (int64, error)

	// SyncState reports cache freshness for one dictionary against the
	// given staleness cutoff.
	SyncState(ctx context.Context, dictionaryID int64, staleBefore time.Time) (CacheState, error)

	// ListLocal returns a bounded page of the dictionary's non-deprecated
	// values for query-less lookups.
	ListLocal(ctx context.Context, dictionaryID int64, limit int) ([]DictionaryValue, error)

	// CountActive counts the dictionary's non-deprecated values.
	CountActive(ctx context.Context, dictionaryID int64) (int64, error)
}
