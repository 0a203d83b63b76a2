package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/channelport/backend/internal/domain/catalog"
	"github.com/channelport/backend/internal/domain/shared"
)

// GormCategoryRepository implements catalog.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// byKey scopes a query to one (category_id, parent_id) pair. parent_id is
// nullable, so the predicate differs for root edges.
func byKey(q *gorm.DB, categoryID int64, parentID *int64) *gorm.DB {
	q = q.Where("category_id = ?", categoryID)
	if parentID == nil {
		return q.Where("parent_id IS NULL")
	}
	return q.Where("parent_id = ?", *parentID)
}

// FindByKey finds a node by its (category_id, parent_id) natural key
func (r *GormCategoryRepository) FindByKey(ctx context.Context, categoryID int64, parentID *int64) (*catalog.Category, error) {
	var category catalog.Category
	if err := byKey(r.db.WithContext(ctx), categoryID, parentID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// UpsertNode creates or refreshes a node from a primary-language pass
func (r *GormCategoryRepository) UpsertNode(ctx context.Context, categoryID int64, parentID *int64, name string, level int, isLeaf, isDisabled bool) (bool, error) {
	existing, err := r.FindByKey(ctx, categoryID, parentID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return false, err
		}
		node := catalog.NewCategory(categoryID, parentID, name, level, isLeaf, isDisabled)
		if err := r.db.WithContext(ctx).Create(node).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	existing.ApplyPrimary(name, level, isLeaf, isDisabled)
	if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
		return false, err
	}
	return false, nil
}

// MergeSecondaryName merges a secondary-language name into an existing row.
// Returns false when the key is unknown: the secondary pass never creates rows.
func (r *GormCategoryRepository) MergeSecondaryName(ctx context.Context, categoryID int64, parentID *int64, name string) (bool, error) {
	result := byKey(r.db.WithContext(ctx).Model(&catalog.Category{}), categoryID, parentID).
		Updates(map[string]interface{}{
			"name_secondary": name,
			"last_synced_at": time.Now(),
			"is_deprecated":  false,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecomputeDisplayNames reapplies the coalesce rule to every row
func (r *GormCategoryRepository) RecomputeDisplayNames(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&catalog.Category{}).
		Where("1 = 1").
		Update("name", gorm.Expr("CASE WHEN name_primary <> '' THEN name_primary ELSE name_secondary END")).
		Error
}

// DeprecateStale marks rows whose last_synced_at predates the pass start
func (r *GormCategoryRepository) DeprecateStale(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&catalog.Category{}).
		Where("is_deprecated = ? AND last_synced_at < ?", false, before).
		Updates(map[string]interface{}{
			"is_deprecated": true,
			"updated_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}

// CountActive counts non-deprecated nodes
func (r *GormCategoryRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&catalog.Category{}).
		Where("is_deprecated = ?", false).
		Count(&count).Error
	return count, err
}

// ListLeafRefs lists active leaf edges ordered stalest-first
func (r *GormCategoryRepository) ListLeafRefs(ctx context.Context, limit int) ([]catalog.LeafRef, error) {
	var refs []catalog.LeafRef
	query := r.db.WithContext(ctx).
		Model(&catalog.Category{}).
		Select("category_id", "parent_id", "last_synced_at").
		Where("is_leaf = ? AND is_deprecated = ?", true, false).
		Order("last_synced_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

// FindLeafRefs resolves leaf edges for an explicit category ID list
func (r *GormCategoryRepository) FindLeafRefs(ctx context.Context, categoryIDs []int64) ([]catalog.LeafRef, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	var refs []catalog.LeafRef
	if err := r.db.WithContext(ctx).
		Model(&catalog.Category{}).
		Select("category_id", "parent_id", "last_synced_at").
		Where("category_id IN ? AND is_leaf = ? AND is_deprecated = ?", categoryIDs, true, false).
		Order("last_synced_at ASC").
		Find(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

// Search performs a case-insensitive substring search over display names of
// active nodes
func (r *GormCategoryRepository) Search(ctx context.Context, query string, leafOnly bool, limit int) ([]catalog.Category, error) {
	var categories []catalog.Category
	q := r.db.WithContext(ctx).
		Where("is_deprecated = ?", false).
		Where("LOWER(name) LIKE LOWER(?)", "%"+query+"%")
	if leafOnly {
		q = q.Where("is_leaf = ?", true)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// ListActive returns every non-deprecated node for tree materialization
func (r *GormCategoryRepository) ListActive(ctx context.Context) ([]catalog.Category, error) {
	var categories []catalog.Category
	if err := r.db.WithContext(ctx).
		Where("is_deprecated = ?", false).
		Order("level ASC, name ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Ensure GormCategoryRepository implements catalog.CategoryRepository
var _ catalog.CategoryRepository = (*GormCategoryRepository)(nil)
