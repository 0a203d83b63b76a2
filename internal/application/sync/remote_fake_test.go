package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/channelport/backend/internal/domain/catalog"
	"github.com/channelport/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// fakeRemote is a scripted RemoteCatalog for syncer tests
type fakeRemote struct {
	trees      map[integration.Language][]integration.CategoryNode
	attrs      map[integration.Language][]integration.RemoteAttribute
	valuePages map[integration.Language][][]integration.RemoteValue

	treeErr  error
	attrsErr error

	treeCalls  int
	attrCalls  int
	valueCalls int

	// valueCursors records the AfterValueID of every page request
	valueCursors []int64
}

func (f *fakeRemote) FetchCategoryTree(ctx context.Context, rootID *int64, lang integration.Language) ([]integration.CategoryNode, error) {
	f.treeCalls++
	if f.treeErr != nil {
		return nil, f.treeErr
	}
	return f.trees[lang], nil
}

func (f *fakeRemote) FetchAttributes(ctx context.Context, parentCategoryID, leafCategoryID int64, lang integration.Language) ([]integration.RemoteAttribute, error) {
	f.attrCalls++
	if f.attrsErr != nil {
		return nil, f.attrsErr
	}
	return f.attrs[lang], nil
}

func (f *fakeRemote) FetchDictionaryPage(ctx context.Context, req integration.DictionaryPageRequest) ([]integration.RemoteValue, bool, error) {
	f.valueCalls++
	f.valueCursors = append(f.valueCursors, req.AfterValueID)

	pages := f.valuePages[req.Language]
	// Resolve the page by cursor: zero cursor is the first page, otherwise
	// the page following the one ending at the cursor.
	idx := 0
	if req.AfterValueID != 0 {
		for i, page := range pages {
			if len(page) > 0 && page[len(page)-1].ValueID == req.AfterValueID {
				idx = i + 1
				break
			}
		}
	}
	if idx >= len(pages) {
		return nil, false, nil
	}
	return pages[idx], idx < len(pages)-1, nil
}

func (f *fakeRemote) SearchDictionaryValues(ctx context.Context, req integration.DictionarySearchRequest) ([]integration.RemoteValue, error) {
	return nil, nil
}

var _ integration.RemoteCatalog = (*fakeRemote)(nil)

// setupSyncTestDB opens an in-memory SQLite database with the catalog schema
func setupSyncTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&catalog.Category{}, &catalog.Attribute{}, &catalog.DictionaryValue{})
	require.NoError(t, err)

	return db
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
