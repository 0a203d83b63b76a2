package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelport/backend/internal/domain/catalog"
	"github.com/channelport/backend/internal/domain/shared"
)

// GormAttributeRepository implements catalog.AttributeRepository using GORM
type GormAttributeRepository struct {
	db *gorm.DB
}

// NewGormAttributeRepository creates a new GormAttributeRepository
func NewGormAttributeRepository(db *gorm.DB) *GormAttributeRepository {
	return &GormAttributeRepository{db: db}
}

// UpsertPrimary creates or refreshes an attribute from a primary-language pass
func (r *GormAttributeRepository) UpsertPrimary(ctx context.Context, attr *catalog.Attribute) (bool, error) {
	var existing catalog.Attribute
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND attribute_id = ?", attr.CategoryID, attr.AttributeID).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
		if attr.ID == uuid.Nil {
			attr.BaseEntity = shared.NewBaseEntity()
		}
		attr.RecomputeDisplay()
		if err := r.db.WithContext(ctx).Create(attr).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	// Structural fields always come from the primary pass; the cached
	// secondary-language fields survive the refresh.
	existing.NamePrimary = attr.NamePrimary
	existing.DescriptionPrimary = attr.DescriptionPrimary
	existing.Type = attr.Type
	existing.IsRequired = attr.IsRequired
	existing.IsCollection = attr.IsCollection
	existing.IsAspect = attr.IsAspect
	existing.DictionaryID = attr.DictionaryID
	existing.GroupID = attr.GroupID
	existing.GroupName = attr.GroupName
	existing.CachedAt = time.Now()
	existing.IsDeprecated = false
	existing.UpdatedAt = time.Now()
	existing.RecomputeDisplay()

	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return false, err
	}
	return false, nil
}

// MergeSecondary merges secondary-language fields into an existing row.
// Returns false when the key is unknown: the secondary pass never creates rows.
func (r *GormAttributeRepository) MergeSecondary(ctx context.Context, categoryID, attributeID int64, name, description string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&catalog.Attribute{}).
		Where("category_id = ? AND attribute_id = ?", categoryID, attributeID).
		Updates(map[string]interface{}{
			"name_secondary":        name,
			"description_secondary": description,
			"cached_at":             time.Now(),
			"is_deprecated":         false,
			"updated_at":            time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecomputeDisplay reapplies the coalesce rule for one category's attributes
func (r *GormAttributeRepository) RecomputeDisplay(ctx context.Context, categoryID int64) error {
	return r.db.WithContext(ctx).
		Model(&catalog.Attribute{}).
		Where("category_id = ?", categoryID).
		Updates(map[string]interface{}{
			"name":        gorm.Expr("CASE WHEN name_primary <> '' THEN name_primary ELSE name_secondary END"),
			"description": gorm.Expr("CASE WHEN description_primary <> '' THEN description_primary ELSE description_secondary END"),
		}).Error
}

// DeprecateStale marks the category's attributes not seen since the pass start
func (r *GormAttributeRepository) DeprecateStale(ctx context.Context, categoryID int64, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&catalog.Attribute{}).
		Where("category_id = ? AND is_deprecated = ? AND cached_at < ?", categoryID, false, before).
		Updates(map[string]interface{}{
			"is_deprecated": true,
			"updated_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}

// cacheStateRow is the scan target for the freshness aggregate
type cacheStateRow struct {
	Total            int64
	Stale            int64
	MissingSecondary int64
}

// SyncState reports cache freshness for one category's attributes
func (r *GormAttributeRepository) SyncState(ctx context.Context, categoryID int64, staleBefore time.Time) (catalog.CacheState, error) {
	var row cacheStateRow
	err := r.db.WithContext(ctx).
		Model(&catalog.Attribute{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN cached_at < ? THEN 1 ELSE 0 END), 0) AS stale, "+
				"COALESCE(SUM(CASE WHEN name_secondary = '' THEN 1 ELSE 0 END), 0) AS missing_secondary",
			staleBefore,
		).
		Where("category_id = ? AND is_deprecated = ?", categoryID, false).
		Scan(&row).Error
	if err != nil {
		return catalog.CacheState{}, err
	}
	return catalog.CacheState{
		Total:            row.Total,
		Stale:            row.Stale,
		MissingSecondary: row.MissingSecondary,
	}, nil
}

// ListActive returns the category's non-deprecated attributes
func (r *GormAttributeRepository) ListActive(ctx context.Context, categoryID int64) ([]catalog.Attribute, error) {
	var attrs []catalog.Attribute
	if err := r.db.WithContext(ctx).
		Where("category_id = ? AND is_deprecated = ?", categoryID, false).
		Order("attribute_id ASC").
		Find(&attrs).Error; err != nil {
		return nil, err
	}
	return attrs, nil
}

// CountActive counts the category's non-deprecated attributes
func (r *GormAttributeRepository) CountActive(ctx context.Context, categoryID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&catalog.Attribute{}).
		Where("category_id = ? AND is_deprecated = ?", categoryID, false).
		Count(&count).Error
	return count, err
}

// Ensure GormAttributeRepository implements catalog.AttributeRepository
var _ catalog.AttributeRepository = (*GormAttributeRepository)(nil)
