// Package catalog merges externally supplied item lists into the local
// menu and exports it for cross-system comparison.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coffeebliss/models"
	"github.com/coffeebliss/store"
	"gorm.io/gorm"
)

// ExternalItem is one entry of an inbound catalog sync payload
type ExternalItem struct {
	ExternalID  string  `json:"external_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Available   *bool   `json:"available,omitempty"`
	Category    string  `json:"category"`
}

// SyncOutcome summarizes one sync batch
type SyncOutcome struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Syncer upserts external catalog data into the menu
type Syncer struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewSyncer creates a Syncer on top of an initialized database
func NewSyncer(db *gorm.DB) *Syncer {
	return &Syncer{
		db:  db,
		log: slog.Default().With("component", "catalog"),
	}
}

// SyncExternal merges the item list into the menu, keyed by external
// id. Existing items are updated in place; new items are created under
// their category (created on demand). Items without an external id are
// locally managed and skipped. Each item commits in its own
// transaction so one bad item cannot corrupt the rest of the batch.
func (s *Syncer) SyncExternal(items []ExternalItem) (*SyncOutcome, error) {
	outcome := &SyncOutcome{}

	for _, item := range items {
		if item.ExternalID == "" {
			outcome.Skipped++
			continue
		}

		created, err := s.syncOne(item)
		if err != nil {
			outcome.Failed++
			s.log.Error("catalog item sync failed", "external_id", item.ExternalID, "error", err)
			continue
		}
		if created {
			outcome.Created++
		} else {
			outcome.Updated++
		}
	}

	s.log.Info("catalog sync finished",
		"created", outcome.Created, "updated", outcome.Updated,
		"skipped", outcome.Skipped, "failed", outcome.Failed)
	return outcome, nil
}

func (s *Syncer) syncOne(item ExternalItem) (created bool, err error) {
	if item.Name == "" {
		return false, fmt.Errorf("item %q has no name", item.ExternalID)
	}
	if item.Price < 0 {
		return false, fmt.Errorf("item %q has negative price", item.ExternalID)
	}

	available := true
	if item.Available != nil {
		available = *item.Available
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		externalID := item.ExternalID

		var existing models.MenuItem
		findErr := tx.Where("external_id = ?", item.ExternalID).First(&existing).Error

		if findErr == nil {
			err := tx.Model(&existing).Updates(map[string]interface{}{
				"name":        item.Name,
				"description": item.Description,
				"price":       item.Price,
				"available":   available,
				"updated_at":  time.Now(),
			}).Error
			if err != nil {
				return err
			}
			return store.TouchSyncRecordTx(tx, "menu_item", existing.ID, &externalID, "synced")
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		category := item.Category
		if category == "" {
			category = "other"
		}
		categoryID, err := store.UpsertCategoryTx(tx, category)
		if err != nil {
			return err
		}

		newItem := models.MenuItem{
			CategoryID:  &categoryID,
			Name:        item.Name,
			Description: &item.Description,
			Price:       item.Price,
			Available:   available,
			ExternalID:  &externalID,
			SyncEnabled: true,
		}
		if err := tx.Create(&newItem).Error; err != nil {
			return err
		}
		created = true
		return store.TouchSyncRecordTx(tx, "menu_item", newItem.ID, &externalID, "synced")
	})
	return created, err
}

// ExportedItem is the flat catalog projection used for cross-system
// comparison.
type ExportedItem struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       float64 `json:"price"`
	Available   bool    `json:"available"`
	Category    *string `json:"category"`
	ExternalID  *string `json:"external_id"`
	SyncEnabled bool    `json:"sync_enabled"`
}

// Export returns every menu item as a flat projection, including items
// whose category was deleted.
func (s *Syncer) Export() ([]ExportedItem, error) {
	var items []ExportedItem
	err := s.db.Raw(`
		SELECT mi.id,
		       mi.name,
		       mi.description,
		       mi.price,
		       mi.available,
		       c.name as category,
		       mi.external_id,
		       mi.sync_enabled
		FROM menu_items mi
		LEFT JOIN categories c ON mi.category_id = c.id
		ORDER BY mi.id
	`).Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("export catalog: %w", err)
	}
	return items, nil
}
