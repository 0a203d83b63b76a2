package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelport/backend/internal/domain/catalog"
	"github.com/channelport/backend/internal/domain/integration"
	"github.com/channelport/backend/internal/infrastructure/persistence"
)

const testWindow = 8 * 24 * time.Hour

func leafRef(categoryID int64, parentID int64) catalog.LeafRef {
	return catalog.LeafRef{CategoryID: categoryID, ParentID: &parentID}
}

func twoLanguageAttrs() map[integration.Language][]integration.RemoteAttribute {
	return map[integration.Language][]integration.RemoteAttribute{
		integration.LanguagePrimary: {
			{AttributeID: 1, Name: "Marke", Type: "String", IsRequired: true, DictionaryID: 77},
			{AttributeID: 2, Name: "Gewicht", Type: "Decimal"},
		},
		integration.LanguageSecondary: {
			{AttributeID: 1, Name: "Brand", Type: "String", IsRequired: true, DictionaryID: 77},
			{AttributeID: 2, Name: "Weight", Type: "Decimal"},
		},
	}
}

func TestAttributeSyncer_SyncCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("full sync runs both passes and coalesces", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormAttributeRepository(db)
		remote := &fakeRemote{attrs: twoLanguageAttrs()}
		syncer := NewAttributeSyncer(remote, repo, testWindow, testLogger())

		result, err := syncer.SyncCategory(ctx, leafRef(10, 1), false)
		require.NoError(t, err)

		assert.Equal(t, int64(2), result.Synced)
		assert.False(t, result.FromCache)
		assert.Equal(t, 2, remote.attrCalls)

		require.Len(t, result.Attributes, 2)
		assert.Equal(t, "Marke", result.Attributes[0].Name)
		assert.Equal(t, "Brand", result.Attributes[0].NameSecondary)
		assert.True(t, result.Attributes[0].HasDictionary())
	})

	t.Run("fresh cache skips all fetching", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormAttributeRepository(db)
		remote := &fakeRemote{attrs: twoLanguageAttrs()}
		syncer := NewAttributeSyncer(remote, repo, testWindow, testLogger())

		_, err := syncer.SyncCategory(ctx, leafRef(10, 1), false)
		require.NoError(t, err)
		callsAfterFirst := remote.attrCalls

		result, err := syncer.SyncCategory(ctx, leafRef(10, 1), false)
		require.NoError(t, err)
		assert.True(t, result.FromCache)
		assert.Equal(t, int64(2), result.Synced)
		assert.Equal(t, callsAfterFirst, remote.attrCalls, "fresh cache means zero remote calls")
	})

	t.Run("missing secondary triggers the healing pass only", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormAttributeRepository(db)
		attrs := twoLanguageAttrs()
		// First run sees an empty secondary pass.
		remote := &fakeRemote{attrs: map[integration.Language][]integration.RemoteAttribute{
			integration.LanguagePrimary:   attrs[integration.LanguagePrimary],
			integration.LanguageSecondary: nil,
		}}
		syncer := NewAttributeSyncer(remote, repo, testWindow, testLogger())

		_, err := syncer.SyncCategory(ctx, leafRef(10, 1), false)
		require.NoError(t, err)

		// The secondary language becomes available.
		remote.attrs = attrs
		callsBefore := remote.attrCalls

		result, err := syncer.SyncCategory(ctx, leafRef(10, 1), false)
		require.NoError(t, err)
		assert.True(t, result.SecondaryOnly)
		assert.Equal(t, callsBefore+1, remote.attrCalls, "only the secondary pass runs")
		assert.Equal(t, "Brand", result.Attributes[0].NameSecondary)
	})

	t.Run("force re-syncs a fresh cache", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormAttributeRepository(db)
		remote := &fakeRemote{attrs: twoLanguageAttrs()}
		syncer := NewAttributeSyncer(remote, repo, testWindow, testLogger())

		_, err := syncer.SyncCategory(ctx, leafRef(10, 1), false)
		require.NoError(t, err)
		callsAfterFirst := remote.attrCalls

		result, err := syncer.SyncCategory(ctx, leafRef(10, 1), true)
		require.NoError(t, err)
		assert.False(t, result.FromCache)
		assert.Equal(t, callsAfterFirst+2, remote.attrCalls)
	})

	t.Run("vanished attributes are deprecated", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormAttributeRepository(db)
		remote := &fakeRemote{attrs: twoLanguageAttrs()}
		syncer := NewAttributeSyncer(remote, repo, testWindow, testLogger())

		_, err := syncer.SyncCategory(ctx, leafRef(10, 1), false)
		require.NoError(t, err)

		// Attribute 2 disappears upstream.
		remote.attrs = map[integration.Language][]integration.RemoteAttribute{
			integration.LanguagePrimary:   twoLanguageAttrs()[integration.LanguagePrimary][:1],
			integration.LanguageSecondary: twoLanguageAttrs()[integration.LanguageSecondary][:1],
		}

		result, err := syncer.SyncCategory(ctx, leafRef(10, 1), true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Deprecated)
		assert.Equal(t, int64(1), result.Synced)
	})

	t.Run("attributes without IDs are skipped", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormAttributeRepository(db)
		remote := &fakeRemote{attrs: map[integration.Language][]integration.RemoteAttribute{
			integration.LanguagePrimary: {
				{Name: "No ID"},
				{AttributeID: 1, Name: "Marke"},
			},
			integration.LanguageSecondary: nil,
		}}
		syncer := NewAttributeSyncer(remote, repo, testWindow, testLogger())

		result, err := syncer.SyncCategory(ctx, leafRef(10, 1), false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Synced)
	})

	t.Run("category unavailable is surfaced as the typed error", func(t *testing.T) {
		db := setupSyncTestDB(t)
		repo := persistence.NewGormAttributeRepository(db)
		remote := &fakeRemote{attrsErr: integration.ErrCategoryUnavailable}
		syncer := NewAttributeSyncer(remote, repo, testWindow, testLogger())

		_, err := syncer.SyncCategory(ctx, leafRef(10, 1), false)
		assert.ErrorIs(t, err, integration.ErrCategoryUnavailable)
	})
}
