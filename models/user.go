package models

import "time"

// User represents users table. TelegramID is the external platform
// identity and is immutable once set; TotalOrders/TotalSpent are
// denormalized caches updated only inside the order placement
// transaction.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TelegramID  int64     `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Username    *string   `gorm:"type:varchar(64)" json:"username,omitempty"`
	FirstName   string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName    *string   `gorm:"type:varchar(100)" json:"last_name,omitempty"`
	Phone       *string   `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Email       *string   `gorm:"type:varchar(100)" json:"email,omitempty"`
	Balance     float64   `gorm:"type:decimal(12,2);default:0" json:"balance"`
	TotalOrders int       `gorm:"default:0" json:"total_orders"`
	TotalSpent  float64   `gorm:"type:decimal(12,2);default:0" json:"total_spent"`
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
