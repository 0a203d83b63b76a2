package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/channelport/backend/internal/domain/catalog"
	"github.com/channelport/backend/internal/domain/integration"
	"github.com/channelport/backend/internal/domain/shared"
	"github.com/channelport/backend/internal/infrastructure/persistence"
)

// fakeSearchRemote serves scripted server-side dictionary searches
type fakeSearchRemote struct {
	integration.RemoteCatalog

	searchResults []integration.RemoteValue
	searchErr     error
	searchCalls   int
}

func (f *fakeSearchRemote) SearchDictionaryValues(ctx context.Context, req integration.DictionarySearchRequest) ([]integration.RemoteValue, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults, nil
}

func newQueryServiceFixture(t *testing.T) (*QueryService, *gorm.DB, *fakeSearchRemote) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&catalog.Category{}, &catalog.Attribute{}, &catalog.DictionaryValue{}))

	remote := &fakeSearchRemote{}
	service := NewQueryService(
		persistence.NewGormCategoryRepository(db),
		persistence.NewGormAttributeRepository(db),
		persistence.NewGormDictionaryValueRepository(db),
		remote,
		zap.NewNop(),
	)
	return service, db, remote
}

func seedCategory(t *testing.T, db *gorm.DB, categoryID int64, parentID *int64, name string, level int, isLeaf bool) {
	repo := persistence.NewGormCategoryRepository(db)
	_, err := repo.UpsertNode(context.Background(), categoryID, parentID, name, level, isLeaf, false)
	require.NoError(t, err)
}

func TestQueryService_SearchCategories(t *testing.T) {
	ctx := context.Background()
	service, db, _ := newQueryServiceFixture(t)

	one := int64(1)
	seedCategory(t, db, 1, nil, "Electronics", 0, false)
	seedCategory(t, db, 20, &one, "Audio Cables", 1, true)

	t.Run("rejects empty queries", func(t *testing.T) {
		_, err := service.SearchCategories(ctx, "", false, 10)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("finds matches", func(t *testing.T) {
		results, err := service.SearchCategories(ctx, "cables", true, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, int64(20), results[0].CategoryID)
	})
}

func TestQueryService_ListAttributes(t *testing.T) {
	ctx := context.Background()
	service, db, _ := newQueryServiceFixture(t)

	repo := persistence.NewGormAttributeRepository(db)
	_, err := repo.UpsertPrimary(ctx, &catalog.Attribute{
		CategoryID: 20, AttributeID: 1, NamePrimary: "Brand", CachedAt: time.Now(),
	})
	require.NoError(t, err)
	_, err = repo.UpsertPrimary(ctx, &catalog.Attribute{
		CategoryID: 20, AttributeID: 2, NamePrimary: "Retired", CachedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&catalog.Attribute{}).
		Where("attribute_id = ?", 2).
		Update("is_deprecated", true).Error)

	attrs, err := service.ListAttributes(ctx, 20)
	require.NoError(t, err)
	require.Len(t, attrs, 1, "deprecated attributes are hidden")
	assert.Equal(t, "Brand", attrs[0].Name)

	_, err = service.ListAttributes(ctx, 0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestQueryService_SearchDictionaryValues(t *testing.T) {
	ctx := context.Background()

	t.Run("no query serves the local cache", func(t *testing.T) {
		service, db, remote := newQueryServiceFixture(t)
		repo := persistence.NewGormDictionaryValueRepository(db)
		for i := int64(1); i <= 3; i++ {
			_, err := repo.UpsertPrimary(ctx, &catalog.DictionaryValue{
				DictionaryID: 77, ValueID: i, ValuePrimary: "Red", CachedAt: time.Now(),
			})
			require.NoError(t, err)
		}

		views, err := service.SearchDictionaryValues(ctx, DictionaryLookup{DictionaryID: 77, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, views, 2)
		assert.Equal(t, 0, remote.searchCalls)
	})

	t.Run("a query searches the marketplace", func(t *testing.T) {
		service, _, remote := newQueryServiceFixture(t)
		remote.searchResults = []integration.RemoteValue{
			{ValueID: 9, Value: "Crimson"},
			{Value: "dropped, no ID"},
		}

		views, err := service.SearchDictionaryValues(ctx, DictionaryLookup{
			DictionaryID: 77, AttributeID: 5, CategoryID: 20, Query: "crim",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, remote.searchCalls)
		require.Len(t, views, 1)
		assert.Equal(t, int64(9), views[0].ValueID)
	})

	t.Run("remote failures are surfaced, not emptied", func(t *testing.T) {
		service, _, remote := newQueryServiceFixture(t)
		remote.searchErr = integration.ErrRemoteUnavailable

		_, err := service.SearchDictionaryValues(ctx, DictionaryLookup{
			DictionaryID: 77, AttributeID: 5, CategoryID: 20, Query: "crim",
		})
		assert.ErrorIs(t, err, integration.ErrRemoteUnavailable)
	})

	t.Run("rejects missing dictionary ID", func(t *testing.T) {
		service, _, _ := newQueryServiceFixture(t)
		_, err := service.SearchDictionaryValues(ctx, DictionaryLookup{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestQueryService_CategoryTree(t *testing.T) {
	ctx := context.Background()
	service, db, _ := newQueryServiceFixture(t)

	one, two := int64(1), int64(2)
	seedCategory(t, db, 1, nil, "Electronics", 0, false)
	seedCategory(t, db, 2, nil, "Audio", 0, false)
	seedCategory(t, db, 20, &one, "Cables", 1, true)
	// Category 30 hangs under both roots.
	seedCategory(t, db, 30, &one, "Speakers", 1, true)
	seedCategory(t, db, 30, &two, "Speakers", 1, true)

	tree, err := service.CategoryTree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)

	byID := map[int64]*CategoryTreeNode{}
	for _, root := range tree {
		byID[root.CategoryID] = root
	}

	require.Len(t, byID[1].Children, 2)
	require.Len(t, byID[2].Children, 1)
	assert.Equal(t, int64(30), byID[2].Children[0].CategoryID,
		"shared leaf appears once per parent branch")
	assert.True(t, byID[2].Children[0].IsLeaf)
}
