package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/channelport/backend/internal/domain/catalog"
	"github.com/channelport/backend/internal/domain/integration"
	"github.com/channelport/backend/internal/infrastructure/persistence"
)

// fakeCategorySyncer returns scripted results per category and records order
type fakeCategorySyncer struct {
	results map[int64]*AttributeSyncResult
	errs    map[int64]error
	calls   []int64
}

func (f *fakeCategorySyncer) SyncCategory(ctx context.Context, ref catalog.LeafRef, force bool) (*AttributeSyncResult, error) {
	f.calls = append(f.calls, ref.CategoryID)
	if err, ok := f.errs[ref.CategoryID]; ok {
		return nil, err
	}
	if result, ok := f.results[ref.CategoryID]; ok {
		return result, nil
	}
	return &AttributeSyncResult{}, nil
}

// fakeValuesSyncer counts dictionary calls and simulates per-run de-duplication
type fakeValuesSyncer struct {
	runs  int
	calls []int64
	errs  map[int64]error
	seen  map[int64]struct{}
}

func (f *fakeValuesSyncer) BeginRun() {
	f.runs++
	f.seen = make(map[int64]struct{})
}

func (f *fakeValuesSyncer) SyncDictionary(ctx context.Context, ref DictionaryRef, force bool) (*DictionarySyncResult, error) {
	f.calls = append(f.calls, ref.DictionaryID)
	if err, ok := f.errs[ref.DictionaryID]; ok {
		return nil, err
	}
	if _, dup := f.seen[ref.DictionaryID]; dup {
		return &DictionarySyncResult{Deduplicated: true, Synced: 5}, nil
	}
	f.seen[ref.DictionaryID] = struct{}{}
	return &DictionarySyncResult{Synced: 5}, nil
}

// seedLeaves creates root 1 with the given leaves, staggering last_synced_at
// so that lower IDs are staler
func seedLeaves(t *testing.T, db *gorm.DB, repo *persistence.GormCategoryRepository, leafIDs ...int64) {
	ctx := context.Background()
	_, err := repo.UpsertNode(ctx, 1, nil, "Root", 0, false, false)
	require.NoError(t, err)

	base := time.Now().Add(-time.Duration(len(leafIDs)) * time.Hour)
	for i, id := range leafIDs {
		_, err := repo.UpsertNode(ctx, id, int64Ptr(1), "Leaf", 1, true, false)
		require.NoError(t, err)
		require.NoError(t, db.Model(&catalog.Category{}).
			Where("category_id = ?", id).
			Update("last_synced_at", base.Add(time.Duration(i)*time.Hour)).Error)
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}

func attrResult(synced int64, dictionaryIDs ...int64) *AttributeSyncResult {
	result := &AttributeSyncResult{Synced: synced}
	for _, id := range dictionaryIDs {
		result.Attributes = append(result.Attributes, catalog.Attribute{
			AttributeID:  id * 10,
			DictionaryID: id,
		})
	}
	return result
}

func TestBatchCoordinator_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("processes all leaves stalest-first", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormCategoryRepository(db)
		seedLeaves(t, db, repo, 10, 11, 12)

		attrs := &fakeCategorySyncer{results: map[int64]*AttributeSyncResult{
			10: attrResult(3),
			11: attrResult(2),
			12: attrResult(4),
		}}
		values := &fakeValuesSyncer{}
		coordinator := NewBatchCoordinator(repo, attrs, values, 20, testLogger())

		report, err := coordinator.Run(ctx, BatchRequest{})
		require.NoError(t, err)

		assert.True(t, report.Success)
		assert.Equal(t, 3, report.CategoriesProcessed)
		assert.Equal(t, int64(9), report.AttributesSynced)
		assert.Equal(t, []int64{10, 11, 12}, attrs.calls, "stalest category goes first")
		assert.Equal(t, 1, values.runs, "de-duplication state reset once per run")
	})

	t.Run("a failing category never aborts the batch", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormCategoryRepository(db)
		seedLeaves(t, db, repo, 10, 11, 12, 13, 14)

		attrs := &fakeCategorySyncer{
			results: map[int64]*AttributeSyncResult{
				10: attrResult(1), 11: attrResult(1), 13: attrResult(1), 14: attrResult(1),
			},
			errs: map[int64]error{12: errors.New("schema fetch exploded")},
		}
		coordinator := NewBatchCoordinator(repo, attrs, &fakeValuesSyncer{}, 20, testLogger())

		report, err := coordinator.Run(ctx, BatchRequest{})
		require.NoError(t, err)

		assert.False(t, report.Success)
		assert.Equal(t, 4, report.CategoriesProcessed)
		assert.Equal(t, 1, report.CategoriesFailed)
		require.Len(t, report.Errors, 1)
		assert.Equal(t, int64(12), report.Errors[0].CategoryID)
		assert.Len(t, attrs.calls, 5, "every category was attempted")
	})

	t.Run("unavailable categories count as skipped, not failed", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormCategoryRepository(db)
		seedLeaves(t, db, repo, 10, 11)

		attrs := &fakeCategorySyncer{
			results: map[int64]*AttributeSyncResult{11: attrResult(2)},
			errs:    map[int64]error{10: integration.ErrCategoryUnavailable},
		}
		coordinator := NewBatchCoordinator(repo, attrs, &fakeValuesSyncer{}, 20, testLogger())

		report, err := coordinator.Run(ctx, BatchRequest{})
		require.NoError(t, err)

		assert.True(t, report.Success)
		assert.Equal(t, 1, report.CategoriesSkipped)
		assert.Equal(t, 1, report.CategoriesProcessed)
		assert.Empty(t, report.Errors)
	})

	t.Run("dictionaries are synced once despite sharing", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormCategoryRepository(db)
		seedLeaves(t, db, repo, 10, 11)

		// Both categories carry attributes pointing at dictionary 77.
		attrs := &fakeCategorySyncer{results: map[int64]*AttributeSyncResult{
			10: attrResult(1, 77),
			11: attrResult(1, 77),
		}}
		values := &fakeValuesSyncer{}
		coordinator := NewBatchCoordinator(repo, attrs, values, 20, testLogger())

		report, err := coordinator.Run(ctx, BatchRequest{IncludeDictionaries: true})
		require.NoError(t, err)

		assert.Equal(t, []int64{77, 77}, values.calls)
		assert.Equal(t, int64(5), report.ValuesSynced, "deduplicated repeat contributes nothing")
	})

	t.Run("explicit category list restricts the run", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormCategoryRepository(db)
		seedLeaves(t, db, repo, 10, 11, 12)

		attrs := &fakeCategorySyncer{}
		coordinator := NewBatchCoordinator(repo, attrs, &fakeValuesSyncer{}, 20, testLogger())

		_, err := coordinator.Run(ctx, BatchRequest{CategoryIDs: []int64{11}})
		require.NoError(t, err)
		assert.Equal(t, []int64{11}, attrs.calls)
	})

	t.Run("error list is bounded", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormCategoryRepository(db)
		leafIDs := []int64{10, 11, 12, 13}
		seedLeaves(t, db, repo, leafIDs...)

		errs := make(map[int64]error, len(leafIDs))
		for _, id := range leafIDs {
			errs[id] = errors.New("boom")
		}
		attrs := &fakeCategorySyncer{errs: errs}
		coordinator := NewBatchCoordinator(repo, attrs, &fakeValuesSyncer{}, 2, testLogger())

		report, err := coordinator.Run(ctx, BatchRequest{})
		require.NoError(t, err)

		assert.Equal(t, 4, report.CategoriesFailed)
		assert.Len(t, report.Errors, 2)
		assert.Equal(t, 2, report.TruncatedErrors)
	})

	t.Run("progress reports running totals", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormCategoryRepository(db)
		seedLeaves(t, db, repo, 10, 11)

		attrs := &fakeCategorySyncer{results: map[int64]*AttributeSyncResult{
			10: attrResult(3),
			11: attrResult(2),
		}}
		coordinator := NewBatchCoordinator(repo, attrs, &fakeValuesSyncer{}, 20, testLogger())

		type snapshot struct {
			done, total int
			attrs       int64
		}
		var snapshots []snapshot
		_, err := coordinator.Run(ctx, BatchRequest{
			Progress: func(done, total int, attrsSynced, valuesSynced int64) {
				snapshots = append(snapshots, snapshot{done, total, attrsSynced})
			},
		})
		require.NoError(t, err)

		require.Len(t, snapshots, 2)
		assert.Equal(t, snapshot{1, 2, 3}, snapshots[0])
		assert.Equal(t, snapshot{2, 2, 5}, snapshots[1])
	})

	t.Run("cancellation stops between categories", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormCategoryRepository(db)
		seedLeaves(t, db, repo, 10, 11, 12)

		cancelCtx, cancel := context.WithCancel(ctx)
		attrs := &fakeCategorySyncer{}
		coordinator := NewBatchCoordinator(repo, attrs, &fakeValuesSyncer{}, 20, testLogger())

		report, err := coordinator.Run(cancelCtx, BatchRequest{
			Progress: func(done, total int, attrsSynced, valuesSynced int64) {
				if done == 1 {
					cancel()
				}
			},
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotNil(t, report)
		assert.Len(t, attrs.calls, 1)
	})
}
