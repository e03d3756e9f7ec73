package models

import "time"

// LoyaltyPoint represents loyalty_points table: one signed entry in the
// append-only points ledger. A user's balance is always the sum of
// their entries; rows are never updated or deleted.
type LoyaltyPoint struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Points    int       `gorm:"not null" json:"points"`
	Reason    *string   `gorm:"type:text" json:"reason,omitempty"`
	OrderID   *uint     `json:"order_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Order *Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

// TableName specifies the table name for LoyaltyPoint
func (LoyaltyPoint) TableName() string {
	return "loyalty_points"
}

// LoyaltyLevel represents loyalty_levels table. Thresholds are strictly
// increasing; the current level is the highest MinPoints <= balance.
type LoyaltyLevel struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(50);not null" json:"name"`
	MinPoints int    `gorm:"not null" json:"min_points"`
	Discount  int    `gorm:"not null" json:"discount"`
	Color     string `gorm:"type:varchar(9);default:'#3498db'" json:"color"`
}

// TableName specifies the table name for LoyaltyLevel
func (LoyaltyLevel) TableName() string {
	return "loyalty_levels"
}
