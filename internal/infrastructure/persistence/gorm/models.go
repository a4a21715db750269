// Package gorm provides GORM model definitions and repository
// implementations for local persistence.
package gorm

import (
	"time"
)

// HistoryEntryModel is one saved itinerary in the bounded history list.
// The full itinerary travels as a JSON payload; position preserves the
// most-recent-first ordering across restarts.
type HistoryEntryModel struct {
	Timestamp int64  `gorm:"primaryKey"`
	Position  int    `gorm:"index;not null"`
	Title     string `gorm:"type:varchar(255)"`
	Payload   []byte `gorm:"type:blob;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (HistoryEntryModel) TableName() string {
	return "itinerary_history"
}
