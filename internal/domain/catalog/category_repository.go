package catalog

import (
	"context"
	"time"
)

// LeafRef identifies one leaf edge of the taxonomy together with its sync
// age, used by the batch coordinator to order work stalest-first.
type LeafRef struct {
	CategoryID   int64
	ParentID     *int64
	LastSyncedAt time.Time
}

// CategoryRepository defines the persistence boundary for taxonomy nodes.
// All mutations are upserts keyed by the (CategoryID, ParentID) natural key;
// syncers never touch rows outside these operations.
type CategoryRepository interface {
	// FindByKey finds a node by its (category_id, parent_id) natural key.
	// Returns shared.ErrNotFound when no row exists.
	FindByKey(ctx context.Context, categoryID int64, parentID *int64) (*Category, error)

	// UpsertNode creates or refreshes a node from a primary-language pass.
	// Returns true if a new row was created. An existing deprecated row is
	// reactivated.
	UpsertNode(ctx context.Context, categoryID int64, parentID *int64, name string, level int, isLeaf, isDisabled bool) (bool, error)

	// MergeSecondaryName merges a secondary-language name into an existing
	// row. It never creates rows; returns false when the key is unknown
	// (the two language trees are inconsistent).
	MergeSecondaryName(ctx context.Context, categoryID int64, parentID *int64, name string) (bool, error)

	// RecomputeDisplayNames reapplies the coalesce rule to every row.
	RecomputeDisplayNames(ctx context.Context) error

	// DeprecateStale marks rows whose last_synced_at predates the given
	// pass-start time. Returns the number of rows deprecated.
	DeprecateStale(ctx context.Context, before time.Time) (int64, error)

	// CountActive counts non-deprecated nodes.
	CountActive(ctx context.Context) (int64, error)

	// ListLeafRefs lists active leaf edges ordered by last_synced_at
	// ascending (stalest first). A non-positive limit returns all.
	ListLeafRefs(ctx context.Context, limit int) ([]LeafRef, error)

	// FindLeafRefs resolves leaf edges for an explicit category ID list,
	// preserving stalest-first order.
	FindLeafRefs(ctx context.Context, categoryIDs []int64) ([]LeafRef, error)

	// Search performs a case-insensitive substring search over display
	// names of active nodes.
	Search(ctx context.Context, query string, leafOnly bool, limit int) ([]Category, error)

	// ListActive returns every non-deprecated node, roots and branches
	// included, for tree materialization.
	ListActive(ctx context.Context) ([]Category, error)
}
