// Package orders implements the order ledger: atomic order placement
// with line items and user counters, and the order status lifecycle.
package orders

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/coffeebliss/models"
	"github.com/coffeebliss/store"
	"gorm.io/gorm"
)

// amountTolerance absorbs float representation noise when comparing a
// declared total against the computed item sum.
const amountTolerance = 1e-6

// Ledger creates orders and drives their status lifecycle
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a Ledger on top of an initialized database
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// LineItem is one position of an incoming order. Price is the unit
// price the client saw; it is stored as a snapshot on the order line.
type LineItem struct {
	MenuItemID uint    `json:"id"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Notes      *string `json:"notes,omitempty"`
}

// PlaceOrderRequest is the inbound "place order" payload
type PlaceOrderRequest struct {
	TelegramID    int64      `json:"telegram_id"`
	Total         float64    `json:"total"`
	Items         []LineItem `json:"items"`
	PaymentMethod string     `json:"paymentMethod"`
	DeliveryType  string     `json:"deliveryType"`
	Address       *string    `json:"address,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
}

// PlaceOrder persists an order with its items and updates the owning
// user's cached counters, all in one transaction. It fails with
// store.ErrUnknownUser for unregistered users, *AmountMismatchError
// when the declared total disagrees with the item sum, and
// store.ErrReferentialIntegrity when a line references a menu item
// that does not exist. On failure nothing is persisted.
func (l *Ledger) PlaceOrder(req PlaceOrderRequest) (uint, error) {
	if len(req.Items) == 0 {
		return 0, fmt.Errorf("place order: empty item list")
	}

	var computed float64
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return 0, fmt.Errorf("place order: quantity %d for item %d", item.Quantity, item.MenuItemID)
		}
		computed += item.Price * float64(item.Quantity)
	}
	if math.Abs(computed-req.Total) > amountTolerance {
		return 0, &AmountMismatchError{Declared: req.Total, Computed: computed}
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}
	deliveryType := req.DeliveryType
	if deliveryType == "" {
		deliveryType = "pickup"
	}

	var orderID uint
	err := l.db.Transaction(func(tx *gorm.DB) error {
		userID, err := store.ResolveUserID(tx, req.TelegramID)
		if err != nil {
			return err
		}

		// Verify line references before writing anything; FK error
		// strings differ between sqlite and postgres.
		ids := make([]uint, 0, len(req.Items))
		for _, item := range req.Items {
			ids = append(ids, item.MenuItemID)
		}
		var known int64
		if err := tx.Model(&models.MenuItem{}).Where("id IN ?", ids).Count(&known).Error; err != nil {
			return err
		}
		if known != int64(len(uniqueIDs(ids))) {
			return store.ErrReferentialIntegrity
		}

		order := models.Order{
			UserID:        userID,
			TotalAmount:   req.Total,
			Status:        models.StatusPending,
			PaymentMethod: paymentMethod,
			DeliveryType:  deliveryType,
			Address:       req.Address,
			Phone:         req.Phone,
			Notes:         req.Notes,
			ScheduledTime: req.ScheduledTime,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, item := range req.Items {
			orderItem := models.OrderItem{
				OrderID:    order.ID,
				MenuItemID: item.MenuItemID,
				Quantity:   item.Quantity,
				Price:      item.Price,
				Notes:      item.Notes,
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return err
			}
		}

		// Counter caches change only inside the same transaction as
		// the order they reflect.
		err = tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"total_orders": gorm.Expr("total_orders + 1"),
			"total_spent":  gorm.Expr("total_spent + ?", req.Total),
			"last_active":  time.Now(),
		}).Error
		if err != nil {
			return err
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrUnknownUser) || errors.Is(err, store.ErrReferentialIntegrity) {
			return 0, err
		}
		var mismatch *AmountMismatchError
		if errors.As(err, &mismatch) {
			return 0, err
		}
		return 0, fmt.Errorf("place order for user %d: %w", req.TelegramID, err)
	}
	return orderID, nil
}

// SetOrderStatus moves an order along the lifecycle graph and returns
// the updated snapshot. Transitions outside the graph fail with
// *InvalidTransitionError and leave the order untouched.
func (l *Ledger) SetOrderStatus(orderID uint, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, &InvalidTransitionError{From: "", To: next}
	}

	var order models.Order
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return &InvalidTransitionError{From: order.Status, To: next}
		}

		err := tx.Model(&order).Updates(map[string]interface{}{
			"status":     next,
			"updated_at": time.Now(),
		}).Error
		if err != nil {
			return err
		}
		return tx.First(&order, orderID).Error
	})
	if err != nil {
		var invalid *InvalidTransitionError
		if errors.As(err, &invalid) {
			return nil, err
		}
		return nil, fmt.Errorf("set order %d status: %w", orderID, err)
	}
	return &order, nil
}

// GetOrder returns one order with its items and owning user
func (l *Ledger) GetOrder(orderID uint) (*models.Order, error) {
	var order models.Order
	err := l.db.Preload("Items").Preload("User").First(&order, orderID).Error
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	return &order, nil
}

// ListUserOrders returns the user's orders, most recent first
func (l *Ledger) ListUserOrders(telegramID int64, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	userID, err := store.ResolveUserID(l.db, telegramID)
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	err = l.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders for user %d: %w", telegramID, err)
	}
	return orders, nil
}

// DailyStats aggregates one calendar day of orders plus user activity.
// Everything is computed from the orders/users tables at call time.
type DailyStats struct {
	TotalOrders      int     `json:"total_orders"`
	NewOrders        int     `json:"new_orders"`
	ProcessingOrders int     `json:"processing_orders"`
	CompletedOrders  int     `json:"completed_orders"`
	Revenue          float64 `json:"revenue"`
	AvgOrder         float64 `json:"avg_order"`
	NewUsers         int     `json:"new_users"`
	ActiveUsers      int     `json:"active_users"`
}

// GetDailyStats aggregates the calendar day containing the given time.
// Buckets: new = pending, processing = confirmed|preparing|on_delivery,
// completed = delivered|ready. Active users counts distinct users with
// an order in the trailing 7 days ending at the day's close.
func (l *Ledger) GetDailyStats(day time.Time) (*DailyStats, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	stats := DailyStats{}
	row := l.db.Raw(`
		SELECT COUNT(*)                                                                         as total_orders,
		       COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0)                 as new_orders,
		       COALESCE(SUM(CASE WHEN status IN ('confirmed', 'preparing', 'on_delivery') THEN 1 ELSE 0 END), 0) as processing_orders,
		       COALESCE(SUM(CASE WHEN status IN ('delivered', 'ready') THEN 1 ELSE 0 END), 0)   as completed_orders,
		       COALESCE(SUM(total_amount), 0)                                                   as revenue,
		       COALESCE(AVG(total_amount), 0)                                                   as avg_order
		FROM orders
		WHERE created_at >= ? AND created_at < ?
	`, dayStart, dayEnd).Row()
	err := row.Scan(&stats.TotalOrders, &stats.NewOrders, &stats.ProcessingOrders,
		&stats.CompletedOrders, &stats.Revenue, &stats.AvgOrder)
	if err != nil {
		return nil, fmt.Errorf("daily order stats: %w", err)
	}

	var newUsers int64
	err = l.db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Count(&newUsers).Error
	if err != nil {
		return nil, fmt.Errorf("daily new users: %w", err)
	}
	stats.NewUsers = int(newUsers)

	row = l.db.Raw(`
		SELECT COUNT(DISTINCT user_id)
		FROM orders
		WHERE created_at >= ? AND created_at < ?
	`, dayEnd.Add(-7*24*time.Hour), dayEnd).Row()
	if err := row.Scan(&stats.ActiveUsers); err != nil {
		return nil, fmt.Errorf("daily active users: %w", err)
	}

	return &stats, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
