package orders

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/coffeebliss/models"
	"github.com/coffeebliss/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	for _, model := range models.AllModels() {
		if err := db.AutoMigrate(model); err != nil {
			t.Fatalf("migrate %T: %v", model, err)
		}
	}
	return db
}

// seedUserAndMenu registers one user and two menu items and returns
// (telegramID, item ids).
func seedUserAndMenu(t *testing.T, db *gorm.DB) (int64, []uint) {
	t.Helper()

	user := models.User{TelegramID: 555, FirstName: "Carol", LastActive: time.Now()}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	items := []models.MenuItem{
		{Name: "Cappuccino", Price: 180, Available: true},
		{Name: "Croissant", Price: 10, Available: true},
	}
	ids := make([]uint, 0, len(items))
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
		ids = append(ids, items[i].ID)
	}
	return user.TelegramID, ids
}

func TestPlaceOrderPersistsAtomically(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	telegramID, items := seedUserAndMenu(t, db)

	orderID, err := ledger.PlaceOrder(PlaceOrderRequest{
		TelegramID: telegramID,
		Total:      370,
		Items: []LineItem{
			{MenuItemID: items[0], Quantity: 2, Price: 180},
			{MenuItemID: items[1], Quantity: 1, Price: 10},
		},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	order, err := ledger.GetOrder(orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if len(order.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(order.Items))
	}

	var sum float64
	for _, item := range order.Items {
		sum += item.Price * float64(item.Quantity)
	}
	if math.Abs(sum-order.TotalAmount) > 1e-9 {
		t.Errorf("item sum %.2f != total %.2f", sum, order.TotalAmount)
	}

	// User counters updated in the same transaction
	var user models.User
	if err := db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.TotalOrders != 1 || user.TotalSpent != 370 {
		t.Errorf("counters = (%d, %.2f), want (1, 370)", user.TotalOrders, user.TotalSpent)
	}
}

func TestPlaceOrderAmountMismatchLeavesNoRows(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	telegramID, items := seedUserAndMenu(t, db)

	// Declared 400 vs computed 370
	_, err := ledger.PlaceOrder(PlaceOrderRequest{
		TelegramID: telegramID,
		Total:      400,
		Items: []LineItem{
			{MenuItemID: items[0], Quantity: 2, Price: 180},
			{MenuItemID: items[1], Quantity: 1, Price: 10},
		},
	})

	var mismatch *AmountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected AmountMismatchError, got %v", err)
	}
	if mismatch.Declared != 400 || mismatch.Computed != 370 {
		t.Errorf("mismatch = %+v, want declared 400 computed 370", mismatch)
	}

	var orderCount, itemCount int64
	db.Model(&models.Order{}).Count(&orderCount)
	db.Model(&models.OrderItem{}).Count(&itemCount)
	if orderCount != 0 || itemCount != 0 {
		t.Errorf("rows persisted after failed placement: orders=%d items=%d", orderCount, itemCount)
	}

	var user models.User
	db.Where("telegram_id = ?", telegramID).First(&user)
	if user.TotalOrders != 0 || user.TotalSpent != 0 {
		t.Errorf("counters drifted: (%d, %.2f)", user.TotalOrders, user.TotalSpent)
	}
}

func TestPlaceOrderUnknownUser(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	_, items := seedUserAndMenu(t, db)

	_, err := ledger.PlaceOrder(PlaceOrderRequest{
		TelegramID: 424242,
		Total:      180,
		Items:      []LineItem{{MenuItemID: items[0], Quantity: 1, Price: 180}},
	})
	if !errors.Is(err, store.ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestPlaceOrderDanglingMenuItem(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	telegramID, _ := seedUserAndMenu(t, db)

	_, err := ledger.PlaceOrder(PlaceOrderRequest{
		TelegramID: telegramID,
		Total:      50,
		Items:      []LineItem{{MenuItemID: 9999, Quantity: 1, Price: 50}},
	})
	if !errors.Is(err, store.ErrReferentialIntegrity) {
		t.Fatalf("expected ErrReferentialIntegrity, got %v", err)
	}

	var orderCount int64
	db.Model(&models.Order{}).Count(&orderCount)
	if orderCount != 0 {
		t.Errorf("order persisted despite dangling reference")
	}
}

func TestSetOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []models.OrderStatus
		target  models.OrderStatus
		allowed bool
	}{
		{"pending to confirmed", nil, models.StatusConfirmed, true},
		{"pending to cancelled", nil, models.StatusCancelled, true},
		{"pending straight to delivered", nil, models.StatusDelivered, false},
		{"preparing to cancelled", []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing}, models.StatusCancelled, true},
		{"preparing to ready", []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing}, models.StatusReady, true},
		{"preparing to on_delivery", []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing}, models.StatusOnDelivery, true},
		{"ready to delivered", []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing, models.StatusReady}, models.StatusDelivered, true},
		{"delivered is terminal", []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusDelivered}, models.StatusCancelled, false},
		{"cancelled is terminal", []models.OrderStatus{models.StatusCancelled}, models.StatusConfirmed, false},
		{"unknown status", nil, models.OrderStatus("lost"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			ledger := NewLedger(db)
			telegramID, items := seedUserAndMenu(t, db)

			orderID, err := ledger.PlaceOrder(PlaceOrderRequest{
				TelegramID: telegramID,
				Total:      180,
				Items:      []LineItem{{MenuItemID: items[0], Quantity: 1, Price: 180}},
			})
			if err != nil {
				t.Fatalf("place order: %v", err)
			}

			for _, status := range tt.path {
				if _, err := ledger.SetOrderStatus(orderID, status); err != nil {
					t.Fatalf("walk to %s: %v", status, err)
				}
			}

			order, err := ledger.SetOrderStatus(orderID, tt.target)
			if tt.allowed {
				if err != nil {
					t.Fatalf("transition rejected: %v", err)
				}
				if order.Status != tt.target {
					t.Errorf("status = %s, want %s", order.Status, tt.target)
				}
				return
			}

			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidTransitionError, got %v", err)
			}

			// Rejected transition must leave the order untouched
			current, getErr := ledger.GetOrder(orderID)
			if getErr != nil {
				t.Fatalf("get order: %v", getErr)
			}
			want := models.StatusPending
			if len(tt.path) > 0 {
				want = tt.path[len(tt.path)-1]
			}
			if current.Status != want {
				t.Errorf("status changed to %s after rejected transition", current.Status)
			}
		})
	}
}

func TestListUserOrdersMostRecentFirst(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	telegramID, items := seedUserAndMenu(t, db)

	var ids []uint
	for i := 0; i < 3; i++ {
		id, err := ledger.PlaceOrder(PlaceOrderRequest{
			TelegramID: telegramID,
			Total:      180,
			Items:      []LineItem{{MenuItemID: items[0], Quantity: 1, Price: 180}},
		})
		if err != nil {
			t.Fatalf("place order %d: %v", i, err)
		}
		ids = append(ids, id)
		// created_at resolution on sqlite is coarse; space the rows out
		db.Model(&models.Order{}).Where("id = ?", id).
			Update("created_at", time.Now().Add(time.Duration(i)*time.Minute))
	}

	got, err := ledger.ListUserOrders(telegramID, 2)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != ids[2] || got[1].ID != ids[1] {
		t.Errorf("order = [%d %d], want [%d %d]", got[0].ID, got[1].ID, ids[2], ids[1])
	}
}

func TestGetDailyStats(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	telegramID, items := seedUserAndMenu(t, db)

	place := func() uint {
		id, err := ledger.PlaceOrder(PlaceOrderRequest{
			TelegramID: telegramID,
			Total:      180,
			Items:      []LineItem{{MenuItemID: items[0], Quantity: 1, Price: 180}},
		})
		if err != nil {
			t.Fatalf("place order: %v", err)
		}
		return id
	}

	place() // stays pending
	confirmed := place()
	if _, err := ledger.SetOrderStatus(confirmed, models.StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	done := place()
	for _, status := range []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusDelivered} {
		if _, err := ledger.SetOrderStatus(done, status); err != nil {
			t.Fatalf("walk: %v", err)
		}
	}

	stats, err := ledger.GetDailyStats(time.Now())
	if err != nil {
		t.Fatalf("daily stats: %v", err)
	}
	if stats.TotalOrders != 3 {
		t.Errorf("total = %d, want 3", stats.TotalOrders)
	}
	if stats.NewOrders != 1 {
		t.Errorf("new = %d, want 1", stats.NewOrders)
	}
	if stats.ProcessingOrders != 1 {
		t.Errorf("processing = %d, want 1", stats.ProcessingOrders)
	}
	if stats.CompletedOrders != 1 {
		t.Errorf("completed = %d, want 1", stats.CompletedOrders)
	}
	if stats.Revenue != 540 {
		t.Errorf("revenue = %.2f, want 540", stats.Revenue)
	}
	if stats.NewUsers != 1 {
		t.Errorf("new users = %d, want 1", stats.NewUsers)
	}
	if stats.ActiveUsers != 1 {
		t.Errorf("active users = %d, want 1", stats.ActiveUsers)
	}
}
