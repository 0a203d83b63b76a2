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

// GormDictionaryValueRepository implements catalog.DictionaryValueRepository using GORM
type GormDictionaryValueRepository struct {
	db *gorm.DB
}

// NewGormDictionaryValueRepository creates a new GormDictionaryValueRepository
func NewGormDictionaryValueRepository(db *gorm.DB) *GormDictionaryValueRepository {
	return &GormDictionaryValueRepository{db: db}
}

// UpsertPrimary creates or refreshes a value from a primary-language pass
func (r *GormDictionaryValueRepository) UpsertPrimary(ctx context.Context, value *catalog.DictionaryValue) (bool, error) {
	var existing catalog.DictionaryValue
	err := r.db.WithContext(ctx).
		Where("dictionary_id = ? AND value_id = ?", value.DictionaryID, value.ValueID).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
		if value.ID == uuid.Nil {
			value.BaseEntity = shared.NewBaseEntity()
		}
		value.RecomputeDisplay()
		if err := r.db.WithContext(ctx).Create(value).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	existing.ValuePrimary = value.ValuePrimary
	existing.InfoPrimary = value.InfoPrimary
	existing.Picture = value.Picture
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
func (r *GormDictionaryValueRepository) MergeSecondary(ctx context.Context, dictionaryID, valueID int64, value, info string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&catalog.DictionaryValue{}).
		Where("dictionary_id = ? AND value_id = ?", dictionaryID, valueID).
		Updates(map[string]interface{}{
			"value_secondary": value,
			"info_secondary":  info,
			"cached_at":       time.Now(),
			"is_deprecated":   false,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecomputeDisplay reapplies the coalesce rule for one dictionary
func (r *GormDictionaryValueRepository) RecomputeDisplay(ctx context.Context, dictionaryID int64) error {
	return r.db.WithContext(ctx).
		Model(&catalog.DictionaryValue{}).
		Where("dictionary_id = ?", dictionaryID).
		Updates(map[string]interface{}{
			"value": gorm.Expr("CASE WHEN value_primary <> '' THEN value_primary ELSE value_secondary END"),
			"info":  gorm.Expr("CASE WHEN info_primary <> '' THEN info_primary ELSE info_secondary END"),
		}).Error
}

// DeprecateStale marks the dictionary's values not seen since the pass start
func (r *GormDictionaryValueRepository) DeprecateStale(ctx context.Context, dictionaryID int64, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&catalog.DictionaryValue{}).
		Where("dictionary_id = ? AND is_deprecated = ? AND cached_at < ?", dictionaryID, false, before).
		Updates(map[string]interface{}{
			"is_deprecated": true,
			"updated_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}

// SyncState reports cache freshness for one dictionary
func (r *GormDictionaryValueRepository) SyncState(ctx context.Context, dictionaryID int64, staleBefore time.Time) (catalog.CacheState, error) {
	var row cacheStateRow
	err := r.db.WithContext(ctx).
		Model(&catalog.DictionaryValue{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN cached_at < ? THEN 1 ELSE 0 END), 0) AS stale, "+
				"COALESCE(SUM(CASE WHEN value_secondary = '' THEN 1 ELSE 0 END), 0) AS missing_secondary",
			staleBefore,
		).
		Where("dictionary_id = ? AND is_deprecated = ?", dictionaryID, false).
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

// ListLocal returns a bounded page of the dictionary's non-deprecated values
func (r *GormDictionaryValueRepository) ListLocal(ctx context.Context, dictionaryID int64, limit int) ([]catalog.DictionaryValue, error) {
	var values []catalog.DictionaryValue
	query := r.db.WithContext(ctx).
		Where("dictionary_id = ? AND is_deprecated = ?", dictionaryID, false).
		Order("value_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

// CountActive counts the dictionary's non-deprecated values
func (r *GormDictionaryValueRepository) CountActive(ctx context.Context, dictionaryID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&catalog.DictionaryValue{}).
		Where("dictionary_id = ? AND is_deprecated = ?", dictionaryID, false).
		Count(&count).Error
	return count, err
}

// Ensure GormDictionaryValueRepository implements catalog.DictionaryValueRepository
var _ catalog.DictionaryValueRepository = (*GormDictionaryValueRepository)(nil)
