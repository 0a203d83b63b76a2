package catalog

import (
	"context"
	"time"
)

// CacheState summarizes the cache freshness of one entity set (a category's
// attributes or a dictionary's values), driving the three-state sync policy:
// fresh-cached, needs-secondary-only, needs-full-sync.
type CacheState struct {
	// Total is the number of non-deprecated rows cached.
	Total int64
	// Stale is how many of them were cached before the freshness cutoff.
	Stale int64
	// MissingSecondary is how many lack the secondary-language name.
	MissingSecondary int64
}

// IsFresh returns true when the whole set was cached within the window.
func (s CacheState) IsFresh() bool {
	return s.Total > 0 && s.Stale == 0
}

// AttributeRepository defines the persistence boundary for attribute schemas.
type AttributeRepository interface {
	// UpsertPrimary creates or refreshes an attribute from a
	// primary-language pass, keyed by (category_id, attribute_id).
	// Structural fields are always overwritten; an existing deprecated row
	// is reactivated. Returns true if a new row was created.
	UpsertPrimary(ctx context.Context, attr *Attribute) (bool, error)

	// MergeSecondary merges secondary-language name/description into an
	// existing row. Never creates rows; returns false on unknown key.
	MergeSecondary(ctx context.Context, categoryID, attributeID int64, name, description string) (bool, error)

	// RecomputeDisplay reapplies the coalesce rule for one category.
	RecomputeDisplay(ctx context.Context, categoryID int64) error

	// DeprecateStale marks the category's attributes whose cached_at
	// predates the pass start. Returns the number of rows deprecated.
	DeprecateStale(ctx context.Context, categoryID int64, before time.Time) (int64, error)

	// SyncState reports cache freshness for one category against the
	// given staleness cutoff.
	SyncState(ctx context.Context, categoryID int64, staleBefore time.Time) (CacheState, error)

	// ListActive returns the category's non-deprecated attributes.
	ListActive(ctx context.Context, categoryID int64) ([]Attribute, error)

	// CountActive counts the category's non-deprecated attributes.
	CountActive(ctx context.Context, categoryID int64) (int64, error)
}
