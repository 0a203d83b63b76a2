package catalog

import (
	"time"

	"github.com/channelport/backend/internal/domain/shared"
)

// Category is a cached node of the marketplace category taxonomy.
//
// The remote taxonomy is a DAG disguised as a tree: the same CategoryID can
// legitimately appear under several distinct parents, so the natural identity
// of a node is the (CategoryID, ParentID) pair. A nil ParentID denotes a root.
type Category struct {
	shared.BaseEntity
	CategoryID int64  `gorm:"not null;uniqueIndex:idx_categories_remote_key,priority:1;index"`
	ParentID   *int64 `gorm:"uniqueIndex:idx_categories_remote_key,priority:2"`

	// Name is the coalesced display name: primary language if present,
	// otherwise secondary. Recomputed after every sync pass.
	Name          string `gorm:"type:varchar(500);not null;default:'';index"`
	NamePrimary   string `gorm:"type:varchar(500);not null;default:''"`
	NameSecondary string `gorm:"type:varchar(500);not null;default:''"`

	IsLeaf       bool `gorm:"not null;default:false;index"`
	IsDisabled   bool `gorm:"not null;default:false"`
	Level        int  `gorm:"not null;default:0"`
	LastSyncedAt time.Time
	IsDeprecated bool `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "marketplace_categories"
}

// NewCategory creates a category row for a node first seen during the
// primary-language pass.
func NewCategory(categoryID int64, parentID *int64, name string, level int, isLeaf, isDisabled bool) *Category {
	c := &Category{
		BaseEntity:   shared.NewBaseEntity(),
		CategoryID:   categoryID,
		ParentID:     parentID,
		NamePrimary:  name,
		IsLeaf:       isLeaf,
		IsDisabled:   isDisabled,
		Level:        level,
		LastSyncedAt: time.Now(),
	}
	c.RecomputeName()
	return c
}

// ApplyPrimary refreshes the row from a primary-language pass. Seeing the
// node again reactivates it if it was previously deprecated.
func (c *Category) ApplyPrimary(name string, level int, isLeaf, isDisabled bool) {
	c.NamePrimary = name
	c.Level = level
	c.IsLeaf = isLeaf
	c.IsDisabled = isDisabled
	c.LastSyncedAt = time.Now()
	c.IsDeprecated = false
	c.UpdatedAt = time.Now()
	c.RecomputeName()
}

// ApplySecondary merges a secondary-language name. It never touches
// structural fields and never resurrects the row's sync timestamp beyond
// marking the pass.
func (c *Category) ApplySecondary(name string) {
	c.NameSecondary = name
	c.LastSyncedAt = time.Now()
	c.IsDeprecated = false
	c.UpdatedAt = time.Now()
	c.RecomputeName()
}

// RecomputeName applies the coalesce rule for the display name.
func (c *Category) RecomputeName() {
	c.Name = Coalesce(c.NamePrimary, c.NameSecondary)
}

// IsRoot returns true if this node has no parent edge
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// Coalesce returns the primary value when non-empty, otherwise the secondary
// value, otherwise the empty string.
func Coalesce(primary, secondary string) string {
	if primary != "" {
		return primary
	}
	return secondary
}
