package handlers

import (
	"github.com/gofiber/fiber/v2"

	"inkwell/internal/services"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

// GET /api/v1/books/:id/availability
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, "availability", err)
	}
	avail, err := h.Inv.Availability(c.UserContext(), id)
	if err != nil {
		return apiError(c, "availability", err)
	}
	return c.JSON(avail)
}
