package loyalty

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coffeebliss/config"
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

func defaultConfig() config.LoyaltyConfig {
	return config.LoyaltyConfig{Enabled: true, PointsPerRuble: 1, RublesPerPoint: 100}
}

func seedUser(t *testing.T, db *gorm.DB, telegramID int64) {
	t.Helper()
	user := models.User{TelegramID: telegramID, FirstName: "Dana", LastActive: time.Now()}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func seedLevels(t *testing.T, db *gorm.DB, levels []models.LoyaltyLevel) {
	t.Helper()
	for i := range levels {
		if err := db.Create(&levels[i]).Error; err != nil {
			t.Fatalf("seed level: %v", err)
		}
	}
}

type fakeFetcher struct {
	balance int
	err     error
	calls   int
}

func (f *fakeFetcher) FetchBalance(ctx context.Context, telegramID int64) (int, error) {
	f.calls++
	return f.balance, f.err
}

func TestBalanceIsSignedSumOfEntries(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, defaultConfig(), config.SyncConfig{}, nil)
	seedUser(t, db, 42)

	balance, err := engine.Balance(42)
	if err != nil {
		t.Fatalf("empty balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("empty ledger balance = %d, want 0", balance)
	}

	for _, delta := range []int{100, -30, 250, -70, 1} {
		if err := engine.AwardPoints(42, delta, "test", nil); err != nil {
			t.Fatalf("award %d: %v", delta, err)
		}
	}

	balance, err = engine.Balance(42)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 251 {
		t.Errorf("balance = %d, want 251", balance)
	}

	// Ledger is append-only: one row per award, none mutated
	var count int64
	db.Model(&models.LoyaltyPoint{}).Count(&count)
	if count != 5 {
		t.Errorf("ledger rows = %d, want 5", count)
	}
}

func TestAwardPointsUnknownUser(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, defaultConfig(), config.SyncConfig{}, nil)

	err := engine.AwardPoints(404, 10, "test", nil)
	if !errors.Is(err, store.ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestLevelThresholds(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, defaultConfig(), config.SyncConfig{}, nil)
	seedUser(t, db, 42)
	seedLevels(t, db, []models.LoyaltyLevel{
		{Name: "Novice", MinPoints: 0, Discount: 0, Color: "#95a5a6"},
		{Name: "Fan", MinPoints: 100, Discount: 5, Color: "#3498db"},
	})

	if err := engine.AwardPoints(42, 80, "welcome", nil); err != nil {
		t.Fatalf("award: %v", err)
	}

	info, err := engine.Level(42)
	if err != nil {
		t.Fatalf("level: %v", err)
	}
	if info.Name != "Novice" || info.Discount != 0 {
		t.Errorf("level = %s/%d%%, want Novice/0%%", info.Name, info.Discount)
	}
	if info.NextLevel == nil || *info.NextLevel != "Fan" {
		t.Errorf("next level = %v, want Fan", info.NextLevel)
	}
	if info.PointsNeeded != 20 {
		t.Errorf("points needed = %d, want 20", info.PointsNeeded)
	}

	// Crossing the threshold promotes and clears the next level
	if err := engine.AwardPoints(42, 20, "promo", nil); err != nil {
		t.Fatalf("award: %v", err)
	}
	info, err = engine.Level(42)
	if err != nil {
		t.Fatalf("level: %v", err)
	}
	if info.Name != "Fan" || info.Discount != 5 {
		t.Errorf("level = %s/%d%%, want Fan/5%%", info.Name, info.Discount)
	}
	if info.NextLevel != nil {
		t.Errorf("next level = %v, want nil at top tier", *info.NextLevel)
	}
	if info.PointsNeeded != 0 {
		t.Errorf("points needed = %d, want 0 at top tier", info.PointsNeeded)
	}
}

func TestLevelMonotonicInBalance(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, defaultConfig(), config.SyncConfig{}, nil)
	seedUser(t, db, 42)
	seedLevels(t, db, []models.LoyaltyLevel{
		{Name: "Novice", MinPoints: 0, Discount: 0},
		{Name: "Fan", MinPoints: 100, Discount: 5},
		{Name: "Regular", MinPoints: 500, Discount: 10},
	})

	prevDiscount := -1
	for _, delta := range []int{0, 50, 49, 1, 300, 200} {
		if delta > 0 {
			if err := engine.AwardPoints(42, delta, "step", nil); err != nil {
				t.Fatalf("award: %v", err)
			}
		}
		info, err := engine.Level(42)
		if err != nil {
			t.Fatalf("level: %v", err)
		}
		if info.Discount < prevDiscount {
			t.Fatalf("discount decreased from %d to %d with rising balance", prevDiscount, info.Discount)
		}
		if info.PointsNeeded < 0 {
			t.Fatalf("points needed negative: %d", info.PointsNeeded)
		}
		if (info.PointsNeeded == 0) != (info.NextLevel == nil) {
			t.Fatalf("points_needed 0 must coincide with no next level: %+v", info)
		}
		prevDiscount = info.Discount
	}
}

func TestRedeemDiscount(t *testing.T) {
	db := newTestDB(t)
	// 2 points per ruble: 100 points -> 50 discount
	cfg := config.LoyaltyConfig{Enabled: true, PointsPerRuble: 2, RublesPerPoint: 0.5}
	engine := NewEngine(db, cfg, config.SyncConfig{}, nil)
	seedUser(t, db, 42)

	if err := engine.AwardPoints(42, 120, "seed", nil); err != nil {
		t.Fatalf("award: %v", err)
	}

	result, err := engine.Redeem(42, 100, TargetDiscount)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !result.Success {
		t.Fatalf("redeem failed: %s", result.Message)
	}
	if result.Discount != 50 {
		t.Errorf("discount = %.2f, want 50", result.Discount)
	}
	if result.PointsSpent != 100 {
		t.Errorf("points spent = %d, want 100", result.PointsSpent)
	}

	balance, _ := engine.Balance(42)
	if balance != 20 {
		t.Errorf("balance = %d, want 20 after redemption", balance)
	}
}

func TestRedeemInsufficientPoints(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, defaultConfig(), config.SyncConfig{}, nil)
	seedUser(t, db, 42)

	if err := engine.AwardPoints(42, 30, "seed", nil); err != nil {
		t.Fatalf("award: %v", err)
	}

	result, err := engine.Redeem(42, 100, TargetDiscount)
	if err != nil {
		t.Fatalf("over-redemption must be a result, not an error: %v", err)
	}
	if result.Success {
		t.Fatalf("over-redemption succeeded")
	}

	balance, _ := engine.Balance(42)
	if balance != 30 {
		t.Errorf("balance = %d, want unchanged 30", balance)
	}
}

func TestRedeemProductListsWithoutDeducting(t *testing.T) {
	db := newTestDB(t)
	// 1 point buys 10 rubles of product
	cfg := config.LoyaltyConfig{Enabled: true, PointsPerRuble: 1, RublesPerPoint: 10}
	engine := NewEngine(db, cfg, config.SyncConfig{}, nil)
	seedUser(t, db, 42)

	for i, price := range []float64{50, 150, 250, 400, 90} {
		item := models.MenuItem{Name: "Item", Price: price, Available: i != 3}
		if err := db.Create(&item).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}

	if err := engine.AwardPoints(42, 20, "seed", nil); err != nil {
		t.Fatalf("award: %v", err)
	}

	// Budget: 20 * 10 = 200 rubles
	result, err := engine.Redeem(42, 20, TargetProduct)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !result.Success {
		t.Fatalf("redeem failed: %s", result.Message)
	}
	if len(result.Products) != 3 {
		t.Fatalf("products = %d, want 3 affordable available items", len(result.Products))
	}
	for i := 1; i < len(result.Products); i++ {
		if result.Products[i].Price > result.Products[i-1].Price {
			t.Errorf("products not ordered by price descending")
		}
	}

	// Product redemption must not touch the ledger
	balance, _ := engine.Balance(42)
	if balance != 20 {
		t.Errorf("balance = %d, want 20 (no deduction on product listing)", balance)
	}
}

func TestReconcileExternalAppendsAdjustment(t *testing.T) {
	db := newTestDB(t)
	fetcher := &fakeFetcher{balance: 500}
	sync := config.SyncConfig{Enabled: true, LoyaltyAPI: "http://loyalty.example"}
	engine := NewEngine(db, defaultConfig(), sync, fetcher)
	seedUser(t, db, 42)

	if err := engine.AwardPoints(42, 420, "seed", nil); err != nil {
		t.Fatalf("award: %v", err)
	}

	result := engine.ReconcileExternal(context.Background(), 42)
	if result == nil {
		t.Fatal("expected sync result")
	}
	if !result.Synced || result.PointsAdded != 80 || result.NewTotal != 500 {
		t.Errorf("result = %+v, want synced +80 total 500", result)
	}

	balance, _ := engine.Balance(42)
	if balance != 500 {
		t.Errorf("balance = %d, want 500 after reconciliation", balance)
	}

	var entry models.LoyaltyPoint
	if err := db.Order("id DESC").First(&entry).Error; err != nil {
		t.Fatalf("load adjustment: %v", err)
	}
	if entry.Points != 80 {
		t.Errorf("adjustment = %d, want 80", entry.Points)
	}
	if entry.Reason == nil || *entry.Reason != ExternalSyncReason {
		t.Errorf("reason = %v, want %q", entry.Reason, ExternalSyncReason)
	}

	// Balances already equal: no further entries
	result = engine.ReconcileExternal(context.Background(), 42)
	if result == nil || result.PointsAdded != 0 {
		t.Errorf("second sync = %+v, want synced +0", result)
	}
	var count int64
	db.Model(&models.LoyaltyPoint{}).Count(&count)
	if count != 2 {
		t.Errorf("ledger rows = %d, want 2", count)
	}
}

func TestReconcileExternalDisabledOrFailing(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, 42)

	// Disabled sync never touches the fetcher
	fetcher := &fakeFetcher{balance: 500}
	engine := NewEngine(db, defaultConfig(), config.SyncConfig{}, fetcher)
	if result := engine.ReconcileExternal(context.Background(), 42); result != nil {
		t.Errorf("disabled sync returned %+v", result)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called with sync disabled")
	}

	// External failure is swallowed and leaves the ledger alone
	failing := &fakeFetcher{err: errors.New("connection refused")}
	sync := config.SyncConfig{Enabled: true, LoyaltyAPI: "http://loyalty.example"}
	engine = NewEngine(db, defaultConfig(), sync, failing)
	if result := engine.ReconcileExternal(context.Background(), 42); result != nil {
		t.Errorf("failing sync returned %+v", result)
	}
	var count int64
	db.Model(&models.LoyaltyPoint{}).Count(&count)
	if count != 0 {
		t.Errorf("failed sync wrote %d ledger rows", count)
	}
}

func TestGetStats(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, defaultConfig(), config.SyncConfig{}, nil)
	seedLevels(t, db, []models.LoyaltyLevel{
		{Name: "Novice", MinPoints: 0, Discount: 0},
		{Name: "Fan", MinPoints: 100, Discount: 5},
	})

	users := []models.User{
		{TelegramID: 1, FirstName: "A", LastActive: time.Now()},
		{TelegramID: 2, FirstName: "B", LastActive: time.Now()},
		{TelegramID: 3, FirstName: "C", LastActive: time.Now()},
	}
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	// User 1: 150 earned, 30 spent. User 2: 50 earned. User 3: no entries.
	engine.AwardPoints(1, 150, "seed", nil)
	engine.AwardPoints(1, -30, "redeem", nil)
	engine.AwardPoints(2, 50, "seed", nil)

	stats, err := engine.GetStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PointsEarned != 200 {
		t.Errorf("earned = %d, want 200", stats.PointsEarned)
	}
	if stats.PointsSpent != 30 {
		t.Errorf("spent = %d, want 30", stats.PointsSpent)
	}
	if stats.TotalPoints != 170 {
		t.Errorf("total = %d, want 170", stats.TotalPoints)
	}
	if stats.ActiveUsers != 2 {
		t.Errorf("active users = %d, want 2", stats.ActiveUsers)
	}

	// Histogram buckets are cumulative: every user (including the one
	// with no entries) meets the 0 threshold, only user 1 meets 100.
	if len(stats.Levels) != 2 {
		t.Fatalf("levels = %d, want 2", len(stats.Levels))
	}
	if stats.Levels[0].Level != "Novice" || stats.Levels[0].Users != 3 {
		t.Errorf("Novice bucket = %+v, want 3 users", stats.Levels[0])
	}
	if stats.Levels[1].Level != "Fan" || stats.Levels[1].Users != 1 {
		t.Errorf("Fan bucket = %+v, want 1 user", stats.Levels[1])
	}
}

func TestHistoryMostRecentFirst(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, defaultConfig(), config.SyncConfig{}, nil)
	seedUser(t, db, 42)

	for _, delta := range []int{10, 20, 30} {
		if err := engine.AwardPoints(42, delta, "step", nil); err != nil {
			t.Fatalf("award: %v", err)
		}
	}

	history, err := engine.History(42, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len = %d, want 2", len(history))
	}
	if history[0].Points != 30 || history[1].Points != 20 {
		t.Errorf("history = [%d %d], want [30 20]", history[0].Points, history[1].Points)
	}
}
