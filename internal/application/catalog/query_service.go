package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/channelport/backend/internal/domain/catalog"
	"github.com/channelport/backend/internal/domain/integration"
	"github.com/channelport/backend/internal/domain/shared"
)

// CategoryTreeNode is one materialized node of the cached taxonomy. The same
// category can appear as a node under several branches; each appearance is
// its own node, mirroring the (category_id, parent_id) identity of the cache.
type CategoryTreeNode struct {
	CategoryID int64               `json:"category_id"`
	Name       string              `json:"name"`
	IsLeaf     bool                `json:"is_leaf"`
	IsDisabled bool                `json:"is_disabled"`
	Children   []*CategoryTreeNode `json:"children,omitempty"`
}

// DictionaryValueView is a language-coalesced dictionary value
type DictionaryValueView struct {
	ValueID int64  `json:"value_id"`
	Value   string `json:"value"`
	Info    string `json:"info,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// DictionaryLookup locates a dictionary for value queries. The remote
// paginates and searches by attribute, so the discovery coordinates ride
// along with the dictionary ID.
type DictionaryLookup struct {
	DictionaryID     int64
	AttributeID      int64
	CategoryID       int64
	ParentCategoryID int64
	// Query triggers a remote server-side search; empty means a bounded
	// page from the local cache
	Query string
	Limit int
}

// QueryService exposes read-only views over the cached catalog. Dictionary
// value search is the one read that may still reach the marketplace: full
// dictionaries can hold hundreds of thousands of values, so a query string
// is answered server-side rather than from a complete local copy.
type QueryService struct {
	categories catalog.CategoryRepository
	attributes catalog.AttributeRepository
	values     catalog.DictionaryValueRepository
	remote     integration.RemoteCatalog
	logger     *zap.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(
	categories catalog.CategoryRepository,
	attributes catalog.AttributeRepository,
	values catalog.DictionaryValueRepository,
	remote integration.RemoteCatalog,
	logger *zap.Logger,
) *QueryService {
	return &QueryService{
		categories: categories,
		attributes: attributes,
		values:     values,
		remote:     remote,
		logger:     logger.Named("catalog_query"),
	}
}

// SearchCategories searches active categories by display name
func (s *QueryService) SearchCategories(ctx context.Context, query string, leafOnly bool, limit int) ([]catalog.Category, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", shared.ErrInvalidInput)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.categories.Search(ctx, query, leafOnly, limit)
}

// ListAttributes returns the active attribute schema of one category
func (s *QueryService) ListAttributes(ctx context.Context, categoryID int64) ([]catalog.Attribute, error) {
	if categoryID <= 0 {
		return nil, fmt.Errorf("%w: category ID is required", shared.ErrInvalidInput)
	}
	return s.attributes.ListActive(ctx, categoryID)
}

// SearchDictionaryValues answers dictionary value lookups. With a query it
// searches the marketplace server-side; without one it serves a bounded page
// from the local cache. Errors are always surfaced, never collapsed into an
// empty result.
func (s *QueryService) SearchDictionaryValues(ctx context.Context, lookup DictionaryLookup) ([]DictionaryValueView, error) {
	if lookup.DictionaryID <= 0 {
		return nil, fmt.Errorf("%w: dictionary ID is required", shared.ErrInvalidInput)
	}
	if lookup.Limit <= 0 || lookup.Limit > 500 {
		lookup.Limit = 100
	}

	if lookup.Query == "" {
		values, err := s.values.ListLocal(ctx, lookup.DictionaryID, lookup.Limit)
		if err != nil {
			return nil, fmt.Errorf("dictionary lookup: %w", err)
		}
		views := make([]DictionaryValueView, 0, len(values))
		for i := range values {
			views = append(views, DictionaryValueView{
				ValueID: values[i].ValueID,
				Value:   values[i].Value,
				Info:    values[i].Info,
				Picture: values[i].Picture,
			})
		}
		return views, nil
	}

	remoteValues, err := s.remote.SearchDictionaryValues(ctx, integration.DictionarySearchRequest{
		AttributeID:      lookup.AttributeID,
		CategoryID:       lookup.CategoryID,
		ParentCategoryID: lookup.ParentCategoryID,
		Query:            lookup.Query,
		Limit:            lookup.Limit,
		Language:         integration.LanguagePrimary,
	})
	if err != nil {
		return nil, fmt.Errorf("dictionary search: %w", err)
	}

	views := make([]DictionaryValueView, 0, len(remoteValues))
	for i := range remoteValues {
		rv := &remoteValues[i]
		if rv.ValueID == 0 {
			s.logger.Warn("dropping searched value without an ID",
				zap.Int64("dictionary_id", lookup.DictionaryID),
				zap.String("value", rv.Value),
			)
			continue
		}
		views = append(views, DictionaryValueView{
			ValueID: rv.ValueID,
			Value:   rv.Value,
			Info:    rv.Info,
			Picture: rv.Picture,
		})
	}
	return views, nil
}

// CategoryTree materializes the cached taxonomy. Roots are rows without a
// parent edge; children attach wherever their parent_id matches a node's
// category_id, so shared subtrees appear once per branch.
func (s *QueryService) CategoryTree(ctx context.Context) ([]*CategoryTreeNode, error) {
	rows, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("category tree: %w", err)
	}

	childrenOf := make(map[int64][]*catalog.Category)
	var roots []*catalog.Category
	for i := range rows {
		row := &rows[i]
		if row.ParentID == nil {
			roots = append(roots, row)
		} else {
			childrenOf[*row.ParentID] = append(childrenOf[*row.ParentID], row)
		}
	}

	nodes := make([]*CategoryTreeNode, 0, len(roots))
	for _, root := range roots {
		nodes = append(nodes, buildTreeNode(root, childrenOf))
	}
	return nodes, nil
}

// buildTreeNode converts one row and attaches its subtree
func buildTreeNode(row *catalog.Category, childrenOf map[int64][]*catalog.Category) *CategoryTreeNode {
	node := &CategoryTreeNode{
		CategoryID: row.CategoryID,
		Name:       row.Name,
		IsLeaf:     row.IsLeaf,
		IsDisabled: row.IsDisabled,
	}
	for _, child := range childrenOf[row.CategoryID] {
		node.Children = append(node.Children, buildTreeNode(child, childrenOf))
	}
	return node
}
