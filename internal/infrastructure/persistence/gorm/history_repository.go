package gorm

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/wayfarer/v2/internal/domain/itinerary"
	"github.com/wayfarer/v2/internal/ports/outbound"
)

// HistoryRepository implements the history repository interface using GORM
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *gorm.DB) outbound.HistoryRepository {
	return &HistoryRepository{db: db}
}

// Load reads the saved itineraries, most recent first.
func (r *HistoryRepository) Load(ctx context.Context) ([]*itinerary.Itinerary, error) {
	var models []HistoryEntryModel
	result := r.db.WithContext(ctx).Order("position asc").Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	entries := make([]*itinerary.Itinerary, 0, len(models))
	for _, m := range models {
		var entry itinerary.Itinerary
		if err := json.Unmarshal(m.Payload, &entry); err != nil {
			return nil, fmt.Errorf("corrupt history entry %d: %w", m.Timestamp, err)
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// Replace rewrites the whole history in one transaction. The list is small
// and bounded, so a full rewrite is simpler than diffing.
func (r *HistoryRepository) Replace(ctx context.Context, entries []*itinerary.Itinerary) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&HistoryEntryModel{}).Error; err != nil {
			return err
		}
		for i, entry := range entries {
			payload, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("failed to marshal history entry: %w", err)
			}
			model := HistoryEntryModel{
				Timestamp: entry.Timestamp,
				Position:  i,
				Title:     entry.Title,
				Payload:   payload,
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
