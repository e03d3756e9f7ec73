// Command simulate runs a demo flow against a fresh database:
// register a user, place an order, award points, redeem, and print
// the resulting stats. Useful for eyeballing the whole core without
// the bot front-end.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/coffeebliss/config"
	"github.com/coffeebliss/database"
	"github.com/coffeebliss/loyalty"
	"github.com/coffeebliss/models"
	"github.com/coffeebliss/orders"
	"github.com/coffeebliss/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := database.InitializeWithOptions(&cfg.Database, true); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if err := database.SeedData(db); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	st := store.New(db)
	ledger := orders.NewLedger(db)
	engine := loyalty.NewEngine(db, cfg.Loyalty, cfg.Sync, nil)

	const telegramID = 900001
	username := "demo"
	user, err := st.UpsertUser(telegramID, store.UserProfileFields{
		Username:  &username,
		FirstName: "Demo",
	})
	if err != nil {
		log.Fatalf("Upsert user: %v", err)
	}
	fmt.Printf("Registered user #%d (telegram %d)\n", user.ID, user.TelegramID)

	var items []models.MenuItem
	if err := db.Order("id").Limit(2).Find(&items).Error; err != nil || len(items) < 2 {
		log.Fatalf("Need seeded menu items: %v", err)
	}

	total := items[0].Price*2 + items[1].Price
	orderID, err := ledger.PlaceOrder(orders.PlaceOrderRequest{
		TelegramID: telegramID,
		Total:      total,
		Items: []orders.LineItem{
			{MenuItemID: items[0].ID, Quantity: 2, Price: items[0].Price},
			{MenuItemID: items[1].ID, Quantity: 1, Price: items[1].Price},
		},
	})
	if err != nil {
		log.Fatalf("Place order: %v", err)
	}
	fmt.Printf("Placed order #%d for %.2f\n", orderID, total)

	points := int(total * cfg.Loyalty.PointsPerRuble)
	if err := engine.AwardPoints(telegramID, points, fmt.Sprintf("order #%d", orderID), &orderID); err != nil {
		log.Fatalf("Award points: %v", err)
	}

	for _, status := range []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusDelivered} {
		if _, err := ledger.SetOrderStatus(orderID, status); err != nil {
			log.Fatalf("Status %s: %v", status, err)
		}
	}
	fmt.Println("Order walked through the full lifecycle")

	level, err := engine.Level(telegramID)
	if err != nil {
		log.Fatalf("Level: %v", err)
	}
	fmt.Printf("Balance %d points, level %s (%d%%)\n", level.Points, level.Name, level.Discount)

	result, err := engine.Redeem(telegramID, 100, loyalty.TargetDiscount)
	if err != nil {
		log.Fatalf("Redeem: %v", err)
	}
	fmt.Printf("Redeem: success=%v discount=%.2f\n", result.Success, result.Discount)

	daily, err := ledger.GetDailyStats(time.Now())
	if err != nil {
		log.Fatalf("Daily stats: %v", err)
	}
	fmt.Printf("Today: %d orders, revenue %.2f, %d active users\n",
		daily.TotalOrders, daily.Revenue, daily.ActiveUsers)

	stats, err := engine.GetStats()
	if err != nil {
		log.Fatalf("Loyalty stats: %v", err)
	}
	fmt.Printf("Loyalty: earned %d, spent %d, %d users with entries\n",
		stats.PointsEarned, stats.PointsSpent, stats.ActiveUsers)
}
