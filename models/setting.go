package models

import "time"

// Setting represents settings table (key/value runtime settings)
type Setting struct {
	Key       string    `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     *string   `gorm:"type:text" json:"value,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Setting
func (Setting) TableName() string {
	return "settings"
}

// ExternalSyncRecord represents external_sync table: one row per
// (entity type, entity id) pair tracking its last reconciliation with
// an external system.
type ExternalSyncRecord struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	EntityType string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_entity" json:"entity_type"`
	EntityID   uint       `gorm:"not null;uniqueIndex:idx_entity" json:"entity_id"`
	ExternalID *string    `gorm:"type:varchar(100)" json:"external_id,omitempty"`
	SyncStatus string     `gorm:"type:varchar(20);default:'pending'" json:"sync_status"`
	LastSync   *time.Time `json:"last_sync,omitempty"`
}

// TableName specifies the table name for ExternalSyncRecord
func (ExternalSyncRecord) TableName() string {
	return "external_sync"
}
