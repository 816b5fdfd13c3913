package handlers

import (
	"github.com/gofiber/fiber/v2"

	"minimall/internal/services"
	"minimall/internal/validate"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	skuID, ok := validate.SkuID(c.Query("skuId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing or invalid skuId",
		})
	}

	avail, err := h.Inv.CheckAvailability(skuID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(avail)
}
