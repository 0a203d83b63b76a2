package catalog

import (
	"time"

	"github.com/channelport/backend/internal/domain/shared"
)

// Attribute is a cached schema field of one leaf category. Identity is the
// (CategoryID, AttributeID) pair; the same attribute definition may exist
// under many categories with differing requirements.
type Attribute struct {
	shared.BaseEntity
	CategoryID  int64 `gorm:"not null;uniqueIndex:idx_attributes_remote_key,priority:1;index"`
	AttributeID int64 `gorm:"not null;uniqueIndex:idx_attributes_remote_key,priority:2"`

	Name                 string `gorm:"type:varchar(500);not null;default:''"`
	NamePrimary          string `gorm:"type:varchar(500);not null;default:''"`
	NameSecondary        string `gorm:"type:varchar(500);not null;default:''"`
	Description          string `gorm:"type:text;not null;default:''"`
	DescriptionPrimary   string `gorm:"type:text;not null;default:''"`
	DescriptionSecondary string `gorm:"type:text;not null;default:''"`

	Type         string `gorm:"type:varchar(50);not null;default:''"`
	IsRequired   bool   `gorm:"not null;default:false"`
	IsCollection bool   `gorm:"not null;default:false"`
	// IsAspect marks variant-defining attributes (items differing only in
	// aspect values are variants of one product).
	IsAspect bool `gorm:"not null;default:false"`
	// DictionaryID references the shared enumerated value set. Zero means
	// the attribute is free-text and has no dictionary.
	DictionaryID int64  `gorm:"not null;default:0;index"`
	GroupID      int64  `gorm:"not null;default:0"`
	GroupName    string `gorm:"type:varchar(255);not null;default:''"`

	CachedAt     time.Time
	IsDeprecated bool `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (Attribute) TableName() string {
	return "marketplace_attributes"
}

// HasDictionary returns true if the attribute's values are enumerated
func (a *Attribute) HasDictionary() bool {
	return a.DictionaryID > 0
}

// ApplySecondary merges secondary-language display fields only; structural
// fields always come from the primary pass.
func (a *Attribute) ApplySecondary(name, description string) {
	a.NameSecondary = name
	a.DescriptionSecondary = description
	a.CachedAt = time.Now()
	a.IsDeprecated = false
	a.UpdatedAt = time.Now()
	a.RecomputeDisplay()
}

// RecomputeDisplay applies the coalesce rule to the display fields.
func (a *Attribute) RecomputeDisplay() {
	a.Name = Coalesce(a.NamePrimary, a.NameSecondary)
	a.Description = Coalesce(a.DescriptionPrimary, a.DescriptionSecondary)
}
