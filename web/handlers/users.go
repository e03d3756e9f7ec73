package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/coffeebliss/store"
)

// UpsertUser registers a user or refreshes their profile
func (h *Handler) UpsertUser(c *fiber.Ctx) error {
	var req struct {
		TelegramID int64   `json:"telegram_id"`
		Username   *string `json:"username"`
		FirstName  string  `json:"first_name"`
		LastName   *string `json:"last_name"`
		Phone      *string `json:"phone"`
		Email      *string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.TelegramID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "telegram_id is required")
	}

	user, err := h.Store.UpsertUser(req.TelegramID, store.UserProfileFields{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
	})
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// GetUserProfile returns a user with live order aggregates
func (h *Handler) GetUserProfile(c *fiber.Ctx) error {
	telegramID, err := parseTelegramID(c.Params("telegramID"))
	if err != nil {
		return err
	}

	profile, err := h.Store.GetUserProfile(telegramID)
	if err != nil {
		return err
	}

	return c.JSON(profile)
}

func parseTelegramID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid telegram id")
	}
	return id, nil
}
