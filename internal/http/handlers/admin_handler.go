package handlers

import (
	"github.com/gofiber/fiber/v2"

	"minimall/internal/domain"
	applog "minimall/internal/log"
	"minimall/internal/repos"
)

type AdminHandler struct {
	Orders *repos.OrderRepo
	Skus   *repos.SkuRepo
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	ords, err := h.Orders.ListLatest(100)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"orders": ords})
}

var adminStatuses = map[string]bool{
	domain.OrderStatusUnsend:     true,
	domain.OrderStatusUnreceived: true,
	domain.OrderStatusUncomment:  true,
	domain.OrderStatusFinished:   true,
	domain.OrderStatusCanceled:   true,
}

type statusRequest struct {
	Status string `json:"status"`
}

// POST /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if id == "" || !adminStatuses[req.Status] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing id or invalid status"})
	}

	if err := h.Orders.UpdateStatus(id, req.Status); err != nil {
		applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "could not update status"})
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": req.Status})
	return c.JSON(fiber.Map{"ok": true})
}

// GET /admin/inventory
func (h *AdminHandler) Inventory(c *fiber.Ctx) error {
	rows, err := h.Skus.ListInventory()
	if err != nil {
		applog.Error(c, "admin.inventory.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"skus": rows})
}

type inventoryRequest struct {
	SkuID int64 `json:"sku_id"`
	Stock int   `json:"stock"`
}

// POST /admin/inventory
func (h *AdminHandler) UpdateInventory(c *fiber.Ctx) error {
	var req inventoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.SkuID <= 0 || req.Stock < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.Skus.SetStock(req.SkuID, req.Stock); err != nil {
		applog.Error(c, "admin.inventory.save.fail", err, map[string]any{"sku_id": req.SkuID})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "could not save inventory"})
	}
	applog.Audit(c, "admin.inventory.save", map[string]any{"sku_id": req.SkuID, "stock": req.Stock})
	return c.JSON(fiber.Map{"ok": true})
}
