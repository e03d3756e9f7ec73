package models

// Category represents categories table
type Category struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Name     string  `gorm:"type:varchar(100);not null;unique" json:"name"`
	Emoji    *string `gorm:"type:varchar(8)" json:"emoji,omitempty"`
	Position int     `gorm:"default:0" json:"position"`
}

// TableName specifies the table name for Category
func (Category) TableName() string {
	return "categories"
}

// MenuItem represents menu_items table. ExternalID links an item to an
// external catalog; items without one are locally managed and skipped
// by catalog sync.
type MenuItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	CategoryID  *uint   `json:"category_id,omitempty"`
	Name        string  `gorm:"type:varchar(200);not null" json:"name"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	Price       float64 `gorm:"type:decimal(12,2);not null;check:price >= 0" json:"price"`
	ImageURL    *string `gorm:"type:text" json:"image_url,omitempty"`
	Available   bool    `gorm:"default:true" json:"available"`
	Position    int     `gorm:"default:0" json:"position"`
	ExternalID  *string `gorm:"type:varchar(100);uniqueIndex" json:"external_id,omitempty"`
	SyncEnabled bool    `gorm:"default:false" json:"sync_enabled"`
	BaseModel

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
}

// TableName specifies the table name for MenuItem
func (MenuItem) TableName() string {
	return "menu_items"
}
