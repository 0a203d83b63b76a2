package catalog

import (
	"time"

	"github.com/channelport/backend/internal/domain/shared"
)

// DictionaryValue is one enumerated option of an attribute dictionary.
// Values are shared by DictionaryID, not by attribute: many attributes may
// reference the same dictionary, so identity is (DictionaryID, ValueID).
type DictionaryValue struct {
	shared.BaseEntity
	DictionaryID int64 `gorm:"not null;uniqueIndex:idx_dictionary_values_remote_key,priority:1;index"`
	ValueID      int64 `gorm:"not null;uniqueIndex:idx_dictionary_values_remote_key,priority:2"`

	Value          string `gorm:"type:varchar(1000);not null;default:''"`
	ValuePrimary   string `gorm:"type:varchar(1000);not null;default:''"`
	ValueSecondary string `gorm:"type:varchar(1000);not null;default:''"`
	Info           string `gorm:"type:text;not null;default:''"`
	InfoPrimary    string `gorm:"type:text;not null;default:''"`
	InfoSecondary  string `gorm:"type:text;not null;default:''"`
	Picture        string `gorm:"type:varchar(1000);not null;default:''"`

	CachedAt     time.Time
	IsDeprecated bool `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (DictionaryValue) TableName() string {
	return "marketplace_dictionary_values"
}

// ApplySecondary merges secondary-language display fields only.
func (v *DictionaryValue) ApplySecondary(value, info string) {
	v.ValueSecondary = value
	v.InfoSecondary = info
	v.CachedAt = time.Now()
	v.IsDeprecated = false
	v.UpdatedAt = time.Now()
	v.RecomputeDisplay()
}

// RecomputeDisplay applies the coalesce rule to the display fields.
func (v *DictionaryValue) RecomputeDisplay() {
	v.Value = Coalesce(v.ValuePrimary, v.ValueSecondary)
	v.Info = Coalesce(v.InfoPrimary, v.InfoSecondary)
}
