// Package store owns durable CRUD against the relational schema. All
// other components touch persistent state only through this package or
// their own transactions on the same *gorm.DB.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/coffeebliss/models"
	"gorm.io/gorm"
)

// Store performs durable CRUD against the schema
type Store struct {
	db *gorm.DB
}

// New creates a Store on top of an initialized database
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UserProfileFields carries the mutable profile fields of a user.
// Nil fields are left untouched on merge.
type UserProfileFields struct {
	Username  *string
	FirstName string
	LastName  *string
	Phone     *string
	Email     *string
}

// UpsertUser registers a user or refreshes their profile. It is
// idempotent on telegram id: an existing user is merged (non-nil
// fields override, last_active is touched), never duplicated.
func (s *Store) UpsertUser(telegramID int64, fields UserProfileFields) (*models.User, error) {
	var user models.User

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("telegram_id = ?", telegramID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{
				TelegramID: telegramID,
				Username:   fields.Username,
				FirstName:  fields.FirstName,
				LastName:   fields.LastName,
				Phone:      fields.Phone,
				Email:      fields.Email,
				LastActive: time.Now(),
			}
			return tx.Create(&user).Error
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"last_active": time.Now()}
		if fields.Username != nil {
			updates["username"] = *fields.Username
		}
		if fields.FirstName != "" {
			updates["first_name"] = fields.FirstName
		}
		if fields.LastName != nil {
			updates["last_name"] = *fields.LastName
		}
		if fields.Phone != nil {
			updates["phone"] = *fields.Phone
		}
		if fields.Email != nil {
			updates["email"] = *fields.Email
		}

		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("telegram_id = ?", telegramID).First(&user).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user %d: %w", telegramID, err)
	}
	return &user, nil
}

// UserProfile is a user row with aggregates computed live from the
// orders table, so they cannot drift from the truth.
type UserProfile struct {
	models.User
	OrderCount    int     `json:"order_count"`
	SpentTotal    float64 `json:"spent_total"`
	AvgOrderValue float64 `json:"avg_order"`
}

// GetUserProfile returns a user with live order aggregates, or
// ErrUnknownUser if the telegram id was never registered.
func (s *Store) GetUserProfile(telegramID int64) (*UserProfile, error) {
	var user models.User
	err := s.db.Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}

	profile := UserProfile{User: user}
	row := s.db.Raw(`
		SELECT COUNT(*)                      as order_count,
		       COALESCE(SUM(total_amount), 0) as spent_total,
		       COALESCE(AVG(total_amount), 0) as avg_order_value
		FROM orders
		WHERE user_id = ?
	`, user.ID).Row()
	if err := row.Scan(&profile.OrderCount, &profile.SpentTotal, &profile.AvgOrderValue); err != nil {
		return nil, fmt.Errorf("aggregate orders for user %d: %w", telegramID, err)
	}

	return &profile, nil
}

// ListCategories returns categories ordered by display position
func (s *Store) ListCategories() ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.Order("position").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListMenuItems returns menu items ordered by (category position,
// item position). An empty category name means all categories;
// availableOnly filters out disabled items.
func (s *Store) ListMenuItems(category string, availableOnly bool) ([]models.MenuItem, error) {
	query := s.db.Model(&models.MenuItem{}).
		Joins("JOIN categories c ON menu_items.category_id = c.id").
		Preload("Category").
		Order("c.position, menu_items.position")

	if category != "" {
		query = query.Where("c.name = ?", category)
	}
	if availableOnly {
		query = query.Where("menu_items.available = ?", true)
	}

	var items []models.MenuItem
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

// UpsertCategory returns the id of the category with the given name,
// creating it at the end of the display order when absent.
func (s *Store) UpsertCategory(name string) (uint, error) {
	var id uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return upsertCategoryTx(tx, name, &id)
	})
	if err != nil {
		return 0, fmt.Errorf("upsert category %q: %w", name, err)
	}
	return id, nil
}

// upsertCategoryTx is the transactional body of UpsertCategory, shared
// with catalog sync so it can run inside a per-item transaction.
func upsertCategoryTx(tx *gorm.DB, name string, id *uint) error {
	var category models.Category
	err := tx.Where("name = ?", name).First(&category).Error
	if err == nil {
		*id = category.ID
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var maxPosition int
	if err := tx.Model(&models.Category{}).
		Select("COALESCE(MAX(position), 0)").Scan(&maxPosition).Error; err != nil {
		return err
	}

	category = models.Category{Name: name, Position: maxPosition + 1}
	if err := tx.Create(&category).Error; err != nil {
		return err
	}
	*id = category.ID
	return nil
}

// UpsertCategoryTx exposes category upsert for callers already inside
// a transaction.
func UpsertCategoryTx(tx *gorm.DB, name string) (uint, error) {
	var id uint
	if err := upsertCategoryTx(tx, name, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// ResolveUserID maps a telegram id to the internal user id, returning
// ErrUnknownUser when absent. Safe to call inside a transaction.
func ResolveUserID(tx *gorm.DB, telegramID int64) (uint, error) {
	var user models.User
	err := tx.Select("id").Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrUnknownUser
	}
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// TouchSyncRecord records the outcome of an external reconciliation
// for one entity, keyed by (entity type, entity id).
func (s *Store) TouchSyncRecord(entityType string, entityID uint, externalID *string, status string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return TouchSyncRecordTx(tx, entityType, entityID, externalID, status)
	})
	if err != nil {
		return fmt.Errorf("touch sync record %s/%d: %w", entityType, entityID, err)
	}
	return nil
}

// TouchSyncRecordTx upserts an external sync record inside an existing
// transaction.
func TouchSyncRecordTx(tx *gorm.DB, entityType string, entityID uint, externalID *string, status string) error {
	now := time.Now()

	var record models.ExternalSyncRecord
	err := tx.Where("entity_type = ? AND entity_id = ?", entityType, entityID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = models.ExternalSyncRecord{
			EntityType: entityType,
			EntityID:   entityID,
			ExternalID: externalID,
			SyncStatus: status,
			LastSync:   &now,
		}
		return tx.Create(&record).Error
	}
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"sync_status": status,
		"last_sync":   now,
	}
	if externalID != nil {
		updates["external_id"] = *externalID
	}
	return tx.Model(&record).Updates(updates).Error
}
