package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/coffeebliss/models"
	"github.com/coffeebliss/orders"
	"github.com/coffeebliss/store"
)

// PlaceOrder accepts the mini-app checkout payload, persists the order
// and awards loyalty points for it.
func (h *Handler) PlaceOrder(c *fiber.Ctx) error {
	var req orders.PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.TelegramID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "telegram_id is required")
	}

	orderID, err := h.Ledger.PlaceOrder(req)
	if err != nil {
		var mismatch *orders.AmountMismatchError
		switch {
		case errors.As(err, &mismatch):
			return fiber.NewError(fiber.StatusUnprocessableEntity, mismatch.Error())
		case errors.Is(err, store.ErrUnknownUser):
			return fiber.NewError(fiber.StatusNotFound, "user is not registered")
		case errors.Is(err, store.ErrReferentialIntegrity):
			return fiber.NewError(fiber.StatusUnprocessableEntity, "order references unknown menu items")
		}
		return err
	}

	// Points for the purchase, same rate the bot advertises
	pointsEarned := 0
	if h.Cfg.Loyalty.Enabled {
		pointsEarned = int(req.Total * h.Cfg.Loyalty.PointsPerRuble)
		if pointsEarned > 0 {
			reason := fmt.Sprintf("order #%d", orderID)
			if err := h.Loyalty.AwardPoints(req.TelegramID, pointsEarned, reason, &orderID); err != nil {
				return err
			}
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_id":      orderID,
		"points_earned": pointsEarned,
	})
}

// GetOrder returns one order with its items
func (h *Handler) GetOrder(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c.Params("id"))
	if err != nil {
		return err
	}

	order, err := h.Ledger.GetOrder(orderID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	}

	return c.JSON(order)
}

// SetOrderStatus moves an order along its lifecycle
func (h *Handler) SetOrderStatus(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c.Params("id"))
	if err != nil {
		return err
	}

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.Ledger.SetOrderStatus(orderID, req.Status)
	if err != nil {
		var invalid *orders.InvalidTransitionError
		if errors.As(err, &invalid) {
			return fiber.NewError(fiber.StatusConflict, invalid.Error())
		}
		return err
	}

	return c.JSON(order)
}

// ListUserOrders returns a user's orders, most recent first
func (h *Handler) ListUserOrders(c *fiber.Ctx) error {
	telegramID, err := parseTelegramID(c.Params("telegramID"))
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 10)

	userOrders, err := h.Ledger.ListUserOrders(telegramID, limit)
	if err != nil {
		return err
	}

	return c.JSON(userOrders)
}

func parseOrderID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}
	return uint(id), nil
}
