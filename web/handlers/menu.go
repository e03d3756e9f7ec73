package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// ListCategories returns categories in display order
func (h *Handler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.Store.ListCategories()
	if err != nil {
		return err
	}
	return c.JSON(categories)
}

// ListMenuItems returns menu items, optionally filtered by category.
// Pass all=true to include unavailable items.
func (h *Handler) ListMenuItems(c *fiber.Ctx) error {
	category := c.Query("category", "")
	availableOnly := !c.QueryBool("all", false)

	items, err := h.Store.ListMenuItems(category, availableOnly)
	if err != nil {
		return err
	}
	return c.JSON(items)
}
