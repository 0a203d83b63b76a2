package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguage_IsValid(t *testing.T) {
	assert.True(t, LanguagePrimary.IsValid())
	assert.True(t, LanguageSecondary.IsValid())
	assert.False(t, Language("FR").IsValid())
}

func TestCategoryNode_IsLeaf(t *testing.T) {
	assert.True(t, CategoryNode{CategoryID: 1}.IsLeaf())
	assert.False(t, CategoryNode{CategoryID: 1, Children: []CategoryNode{{CategoryID: 2}}}.IsLeaf())
}

func TestDictionaryPageRequest_Validate(t *testing.T) {
	t.Run("defaults the page size", func(t *testing.T) {
		req := DictionaryPageRequest{AttributeID: 1, CategoryID: 2, Language: LanguagePrimary}
		require.NoError(t, req.Validate())
		assert.Equal(t, 100, req.PageSize)
	})

	t.Run("requires identifiers and a valid language", func(t *testing.T) {
		assert.Error(t, (&DictionaryPageRequest{CategoryID: 2, Language: LanguagePrimary}).Validate())
		assert.Error(t, (&DictionaryPageRequest{AttributeID: 1, Language: LanguagePrimary}).Validate())
		assert.Error(t, (&DictionaryPageRequest{AttributeID: 1, CategoryID: 2}).Validate())
	})
}

func TestDictionarySearchRequest_Validate(t *testing.T) {
	t.Run("requires a query", func(t *testing.T) {
		req := DictionarySearchRequest{AttributeID: 1, CategoryID: 2, Language: LanguagePrimary}
		assert.Error(t, req.Validate())
	})

	t.Run("clamps the limit", func(t *testing.T) {
		req := DictionarySearchRequest{AttributeID: 1, CategoryID: 2, Query: "red", Limit: 9999, Language: LanguagePrimary}
		require.NoError(t, req.Validate())
		assert.Equal(t, 100, req.Limit)
	})
}
