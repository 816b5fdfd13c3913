package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "minimall/internal/log"
	"minimall/internal/services"
)

type CartHandler struct {
	Cart *services.CartService
}

type cartItemRequest struct {
	SkuID    int64 `json:"sku_id"`
	Count    int   `json:"count"`
	Selected *bool `json:"selected"`
}

func (r cartItemRequest) selected() bool {
	// New entries default to selected, like the storefront checkbox.
	if r.Selected == nil {
		return true
	}
	return *r.Selected
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	uid, _ := c.Locals("uid").(int64)

	var req cartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.SkuID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing sku_id"})
	}
	if req.Count < 1 {
		req.Count = 1
	}
	if req.Count > 50 {
		req.Count = 50
	} // clamp to avoid abuse

	if err := h.Cart.Add(c.Context(), uid, req.SkuID, req.Count, req.selected()); err != nil {
		if err == services.ErrSkuNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "sku not found"})
		}
		applog.Error(c, "cart.add.fail", err, map[string]any{"sku_id": req.SkuID})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
}

func (h *CartHandler) Update(c *fiber.Ctx) error {
	uid, _ := c.Locals("uid").(int64)

	var req cartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.SkuID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing sku_id"})
	}

	if err := h.Cart.Update(c.Context(), uid, req.SkuID, req.Count, req.selected()); err != nil {
		if err == services.ErrSkuNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "sku not found"})
		}
		applog.Error(c, "cart.update.fail", err, map[string]any{"sku_id": req.SkuID})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

type cartDeleteRequest struct {
	SkuIDs []int64 `json:"sku_ids"`
}

func (h *CartHandler) Delete(c *fiber.Ctx) error {
	uid, _ := c.Locals("uid").(int64)

	var req cartDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if len(req.SkuIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing sku_ids"})
	}

	if err := h.Cart.Remove(c.Context(), uid, req.SkuIDs); err != nil {
		applog.Error(c, "cart.delete.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	uid, _ := c.Locals("uid").(int64)

	view, err := h.Cart.View(c.Context(), uid)
	if err != nil {
		applog.Error(c, "cart.view.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(view)
}
