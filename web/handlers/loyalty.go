package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/coffeebliss/loyalty"
	"github.com/coffeebliss/store"
)

// GetLoyalty returns the mini-app loyalty widget payload: balance,
// level and recent history for ?telegram_id=.
func (h *Handler) GetLoyalty(c *fiber.Ctx) error {
	telegramID, err := parseTelegramID(c.Query("telegram_id"))
	if err != nil {
		return err
	}

	balance, err := h.Loyalty.Balance(telegramID)
	if err != nil {
		return err
	}
	level, err := h.Loyalty.Level(telegramID)
	if err != nil {
		return err
	}
	history, err := h.Loyalty.History(telegramID, 5)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"enabled": h.Cfg.Loyalty.Enabled,
		"points":  balance,
		"level":   level,
		"history": history,
	})
}

// RedeemPoints exchanges points for a discount or lists redeemable
// products.
func (h *Handler) RedeemPoints(c *fiber.Ctx) error {
	var req struct {
		TelegramID int64                `json:"telegram_id"`
		Points     int                  `json:"points"`
		Target     loyalty.RedeemTarget `json:"target"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Points <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "points must be positive")
	}

	result, err := h.Loyalty.Redeem(req.TelegramID, req.Points, req.Target)
	if err != nil {
		if errors.Is(err, store.ErrUnknownUser) {
			return fiber.NewError(fiber.StatusNotFound, "user is not registered")
		}
		return err
	}

	return c.JSON(result)
}

// SyncLoyalty triggers reconciliation against the external loyalty
// system. A disabled or failing external system yields synced=false,
// never an error.
func (h *Handler) SyncLoyalty(c *fiber.Ctx) error {
	var req struct {
		TelegramID int64 `json:"telegram_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result := h.Loyalty.ReconcileExternal(c.Context(), req.TelegramID)
	if result == nil {
		return c.JSON(fiber.Map{"synced": false})
	}
	return c.JSON(result)
}

// GetLoyaltyStats returns program-wide loyalty statistics
func (h *Handler) GetLoyaltyStats(c *fiber.Ctx) error {
	stats, err := h.Loyalty.GetStats()
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
