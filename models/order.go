package models

import "time"

// OrderStatus is the closed set of order lifecycle states
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusPreparing  OrderStatus = "preparing"
	StatusReady      OrderStatus = "ready"
	StatusOnDelivery OrderStatus = "on_delivery"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// statusTransitions is the order lifecycle graph. delivered and
// cancelled are terminal; cancelled is reachable from every
// non-terminal state.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusPreparing, StatusCancelled},
	StatusPreparing:  {StatusReady, StatusOnDelivery, StatusCancelled},
	StatusReady:      {StatusDelivered, StatusCancelled},
	StatusOnDelivery: {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are allowed from s
func (s OrderStatus) Terminal() bool {
	return len(statusTransitions[s]) == 0 && s.Valid()
}

// CanTransitionTo reports whether s → next is in the lifecycle graph
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order represents orders table
type Order struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UserID        uint        `gorm:"not null;index" json:"user_id"`
	TotalAmount   float64     `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status        OrderStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaymentMethod string      `gorm:"type:varchar(20);default:'cash'" json:"payment_method"`
	DeliveryType  string      `gorm:"type:varchar(20);default:'pickup'" json:"delivery_type"`
	Address       *string     `gorm:"type:text" json:"address,omitempty"`
	Phone         *string     `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Notes         *string     `gorm:"type:text" json:"notes,omitempty"`
	ScheduledTime *time.Time  `json:"scheduled_time,omitempty"`
	ExternalSync  bool        `gorm:"default:false" json:"external_sync"`
	BaseModel

	// Relationships
	User  *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// OrderItem represents order_items table. Price is a snapshot of the
// menu item price at order time and never follows later catalog edits.
type OrderItem struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	OrderID    uint    `gorm:"not null;index" json:"order_id"`
	MenuItemID uint    `gorm:"not null" json:"menu_item_id"`
	Quantity   int     `gorm:"not null;check:quantity >= 1" json:"quantity"`
	Price      float64 `gorm:"type:decimal(12,2);not null" json:"price"`
	Notes      *string `gorm:"type:text" json:"notes,omitempty"`

	// Relationships
	MenuItem *MenuItem `gorm:"foreignKey:MenuItemID" json:"menu_item,omitempty"`
}

// TableName specifies the table name for OrderItem
func (OrderItem) TableName() string {
	return "order_items"
}
