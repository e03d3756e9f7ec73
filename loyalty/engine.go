// Package loyalty implements the points ledger engine: balances, tier
// computation, redemption and reconciliation against an external
// loyalty system.
package loyalty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coffeebliss/config"
	"github.com/coffeebliss/models"
	"github.com/coffeebliss/store"
	"gorm.io/gorm"
)

// ExternalSyncReason tags the adjusting ledger entry written by
// reconciliation.
const ExternalSyncReason = "external sync"

// Engine computes balances and tiers over the append-only points ledger
type Engine struct {
	db      *gorm.DB
	cfg     config.LoyaltyConfig
	sync    config.SyncConfig
	fetcher BalanceFetcher
	log     *slog.Logger
}

// NewEngine creates a loyalty engine. fetcher may be nil when external
// sync is disabled.
func NewEngine(db *gorm.DB, cfg config.LoyaltyConfig, sync config.SyncConfig, fetcher BalanceFetcher) *Engine {
	return &Engine{
		db:      db,
		cfg:     cfg,
		sync:    sync,
		fetcher: fetcher,
		log:     slog.Default().With("component", "loyalty"),
	}
}

// Balance returns the signed sum of all ledger entries for the user,
// 0 when there are none.
func (e *Engine) Balance(telegramID int64) (int, error) {
	var balance int
	row := e.db.Raw(`
		SELECT COALESCE(SUM(lp.points), 0)
		FROM loyalty_points lp
		JOIN users u ON lp.user_id = u.id
		WHERE u.telegram_id = ?
	`, telegramID).Row()
	if err := row.Scan(&balance); err != nil {
		return 0, fmt.Errorf("balance for user %d: %w", telegramID, err)
	}
	return balance, nil
}

// AwardPoints appends one signed entry to the points ledger. Negative
// deltas record redemptions and corrections. Prior entries are never
// mutated.
func (e *Engine) AwardPoints(telegramID int64, delta int, reason string, orderID *uint) error {
	err := e.db.Transaction(func(tx *gorm.DB) error {
		userID, err := store.ResolveUserID(tx, telegramID)
		if err != nil {
			return err
		}
		entry := models.LoyaltyPoint{
			UserID:  userID,
			Points:  delta,
			Reason:  &reason,
			OrderID: orderID,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		if errors.Is(err, store.ErrUnknownUser) {
			return err
		}
		return fmt.Errorf("award %d points to user %d: %w", delta, telegramID, err)
	}

	e.log.Info("points awarded", "telegram_id", telegramID, "delta", delta, "reason", reason)
	return nil
}

// LevelInfo describes a user's current tier and the distance to the
// next one.
type LevelInfo struct {
	Name         string  `json:"name"`
	Discount     int     `json:"discount"`
	Color        string  `json:"color"`
	Points       int     `json:"points"`
	NextLevel    *string `json:"next_level"`
	PointsNeeded int     `json:"points_needed"`
}

// Level returns the user's tier: the level with the greatest threshold
// not exceeding the balance. NextLevel is the smallest threshold
// strictly above the balance, nil at the top tier; PointsNeeded is 0
// exactly when there is no next level.
func (e *Engine) Level(telegramID int64) (*LevelInfo, error) {
	balance, err := e.Balance(telegramID)
	if err != nil {
		return nil, err
	}

	info := LevelInfo{
		// Fallback mirrors the bottom seed level in case an operator
		// emptied the levels table.
		Name:   "Novice",
		Color:  "#95a5a6",
		Points: balance,
	}

	var current models.LoyaltyLevel
	err = e.db.Where("min_points <= ?", balance).
		Order("min_points DESC").
		First(&current).Error
	if err == nil {
		info.Name = current.Name
		info.Discount = current.Discount
		info.Color = current.Color
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("current level for user %d: %w", telegramID, err)
	}

	var next models.LoyaltyLevel
	err = e.db.Where("min_points > ?", balance).
		Order("min_points ASC").
		First(&next).Error
	if err == nil {
		info.NextLevel = &next.Name
		info.PointsNeeded = next.MinPoints - balance
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("next level for user %d: %w", telegramID, err)
	}

	return &info, nil
}

// HistoryEntry is one row of a user's points history
type HistoryEntry struct {
	Points    int       `json:"points"`
	Reason    *string   `json:"reason"`
	OrderID   *uint     `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

// History returns the user's most recent ledger entries
func (e *Engine) History(telegramID int64, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []HistoryEntry
	err := e.db.Raw(`
		SELECT lp.points, lp.reason, lp.order_id, lp.created_at
		FROM loyalty_points lp
		JOIN users u ON lp.user_id = u.id
		WHERE u.telegram_id = ?
		ORDER BY lp.created_at DESC, lp.id DESC
		LIMIT ?
	`, telegramID, limit).Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("points history for user %d: %w", telegramID, err)
	}
	return entries, nil
}

// RedeemTarget selects what points are exchanged for
type RedeemTarget string

const (
	TargetDiscount RedeemTarget = "discount"
	TargetProduct  RedeemTarget = "product"
)

// RedeemableProduct is a menu item affordable with the offered points
type RedeemableProduct struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL *string `json:"image_url"`
}

// RedeemResult is a typed outcome: over-redemption is a failure result,
// not an error.
type RedeemResult struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	Discount    float64             `json:"discount,omitempty"`
	PointsSpent int                 `json:"points_spent,omitempty"`
	Products    []RedeemableProduct `json:"available_products,omitempty"`
}

// Redeem exchanges points for a discount or lists products affordable
// with them. Discount redemption appends a negative ledger entry for
// the full point amount. Product redemption deliberately does NOT
// deduct points: it only lists up to 10 affordable items by price
// descending, and the caller must follow up with a negative
// AwardPoints once the product exchange completes.
func (e *Engine) Redeem(telegramID int64, points int, target RedeemTarget) (*RedeemResult, error) {
	balance, err := e.Balance(telegramID)
	if err != nil {
		return nil, err
	}

	if points > balance {
		return &RedeemResult{Success: false, Message: "insufficient points"}, nil
	}

	switch target {
	case TargetDiscount:
		discount := float64(points) / e.cfg.PointsPerRuble
		reason := fmt.Sprintf("redeemed for %.2f discount", discount)
		if err := e.AwardPoints(telegramID, -points, reason, nil); err != nil {
			return nil, err
		}
		return &RedeemResult{
			Success:     true,
			Message:     fmt.Sprintf("discount of %.2f granted", discount),
			Discount:    discount,
			PointsSpent: points,
		}, nil

	case TargetProduct:
		products, err := e.redeemableProducts(points)
		if err != nil {
			return nil, err
		}
		return &RedeemResult{
			Success:     true,
			PointsSpent: points,
			Products:    products,
		}, nil
	}

	return &RedeemResult{Success: false, Message: "unknown redeem target"}, nil
}

func (e *Engine) redeemableProducts(points int) ([]RedeemableProduct, error) {
	budget := float64(points) * e.cfg.RublesPerPoint

	var products []RedeemableProduct
	err := e.db.Raw(`
		SELECT id, name, price, image_url
		FROM menu_items
		WHERE available = ? AND price <= ?
		ORDER BY price DESC
		LIMIT 10
	`, true, budget).Scan(&products).Error
	if err != nil {
		return nil, fmt.Errorf("redeemable products: %w", err)
	}
	return products, nil
}

// SyncResult describes the outcome of external reconciliation
type SyncResult struct {
	Synced      bool `json:"synced"`
	PointsAdded int  `json:"points_added"`
	NewTotal    int  `json:"new_total"`
}

// ReconcileExternal reconciles the local balance against the external
// loyalty system, which is authoritative. When balances differ it
// appends one adjusting ledger entry equal to the difference. Returns
// nil without error when sync is disabled or unconfigured, and on any
// external failure (logged, never raised past this boundary).
func (e *Engine) ReconcileExternal(ctx context.Context, telegramID int64) *SyncResult {
	if !e.sync.Enabled || e.sync.LoyaltyAPI == "" || e.fetcher == nil {
		return nil
	}

	external, err := e.fetcher.FetchBalance(ctx, telegramID)
	if err != nil {
		e.log.Error("external loyalty sync failed", "telegram_id", telegramID, "error", err)
		return nil
	}

	local, err := e.Balance(telegramID)
	if err != nil {
		e.log.Error("local balance read failed during sync", "telegram_id", telegramID, "error", err)
		return nil
	}

	diff := external - local
	if diff == 0 {
		return &SyncResult{Synced: true, PointsAdded: 0, NewTotal: external}
	}

	if err := e.AwardPoints(telegramID, diff, ExternalSyncReason, nil); err != nil {
		e.log.Error("failed to append sync adjustment", "telegram_id", telegramID, "error", err)
		return nil
	}

	return &SyncResult{Synced: true, PointsAdded: diff, NewTotal: external}
}

// LevelBucket is one row of the level histogram in Stats
type LevelBucket struct {
	Level string `json:"level"`
	Users int    `json:"users"`
}

// Stats summarizes the loyalty program
type Stats struct {
	TotalPoints  int           `json:"total_points"`
	PointsEarned int           `json:"points_earned"`
	PointsSpent  int           `json:"points_spent"`
	ActiveUsers  int           `json:"active_users"`
	Levels       []LevelBucket `json:"levels"`
}

// GetStats aggregates the whole ledger: points ever earned, points
// ever spent (absolute value of negative entries), distinct users with
// at least one entry, and a per-level histogram counting, for each
// level, the users whose live balance meets its threshold. A user
// counts toward every level they qualify for; the histogram is
// descriptive, not a partition.
func (e *Engine) GetStats() (*Stats, error) {
	stats := Stats{}
	row := e.db.Raw(`
		SELECT COALESCE(SUM(points), 0)                                          as total_points,
		       COUNT(DISTINCT user_id)                                           as active_users,
		       COALESCE(SUM(CASE WHEN points > 0 THEN points ELSE 0 END), 0)     as points_earned,
		       COALESCE(SUM(CASE WHEN points < 0 THEN -points ELSE 0 END), 0)    as points_spent
		FROM loyalty_points
	`).Row()
	err := row.Scan(&stats.TotalPoints, &stats.ActiveUsers, &stats.PointsEarned, &stats.PointsSpent)
	if err != nil {
		return nil, fmt.Errorf("loyalty totals: %w", err)
	}

	var levels []models.LoyaltyLevel
	if err := e.db.Order("min_points").Find(&levels).Error; err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}

	for _, level := range levels {
		var count int
		row := e.db.Raw(`
			SELECT COUNT(*)
			FROM users u
			WHERE (SELECT COALESCE(SUM(points), 0)
			       FROM loyalty_points lp
			       WHERE lp.user_id = u.id) >= ?
		`, level.MinPoints).Row()
		if err := row.Scan(&count); err != nil {
			return nil, fmt.Errorf("level histogram for %q: %w", level.Name, err)
		}
		stats.Levels = append(stats.Levels, LevelBucket{Level: level.Name, Users: count})
	}

	return &stats, nil
}
