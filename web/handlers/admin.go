package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coffeebliss/catalog"
)

// GetDailyStats returns order/user aggregates for one calendar day
// (?day=2006-01-02, default today).
func (h *Handler) GetDailyStats(c *fiber.Ctx) error {
	day := time.Now()
	if raw := c.Query("day"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "day must be formatted as 2006-01-02")
		}
		day = parsed
	}

	stats, err := h.Ledger.GetDailyStats(day)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// SyncMenu pulls the external menu and merges it into the catalog. The
// payload may also be posted directly as a JSON item list when no menu
// API is configured.
func (h *Handler) SyncMenu(c *fiber.Ctx) error {
	if len(c.Body()) > 0 {
		var items []catalog.ExternalItem
		if err := c.BodyParser(&items); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid item list")
		}

		outcome, err := h.Syncer.SyncExternal(items)
		if err != nil {
			return err
		}
		return c.JSON(outcome)
	}

	if h.MenuFetcher == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "external menu API is not configured")
	}

	items, err := h.MenuFetcher.FetchMenu(c.Context())
	if err != nil {
		// External failures are soft: report, do not propagate
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"synced": false,
			"error":  "external menu fetch failed",
		})
	}

	outcome, err := h.Syncer.SyncExternal(items)
	if err != nil {
		return err
	}
	return c.JSON(outcome)
}

// ExportMenu returns the flat catalog projection
func (h *Handler) ExportMenu(c *fiber.Ctx) error {
	items, err := h.Syncer.Export()
	if err != nil {
		return err
	}
	return c.JSON(items)
}
