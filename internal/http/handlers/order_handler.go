package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"minimall/internal/domain"
	applog "minimall/internal/log"
	"minimall/internal/repos"
	"minimall/internal/services"
	"minimall/internal/validate"
)

type OrderHandler struct {
	Order *services.OrderService
	Repo  *repos.OrderRepo
}

// Settlement returns the non-committal quote for the selected cart entries.
func (h *OrderHandler) Settlement(c *fiber.Ctx) error {
	uid, _ := c.Locals("uid").(int64)

	st, err := h.Order.Settle(c.Context(), uid)
	if err != nil {
		applog.Error(c, "order.settle.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(st)
}

type placeRequest struct {
	AddressID int64  `json:"address_id"`
	PayMethod string `json:"pay_method"`
}

func (h *OrderHandler) Place(c *fiber.Ctx) error {
	uid, _ := c.Locals("uid").(int64)

	var req placeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	payMethod, ok := validate.PayMethod(req.PayMethod)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid pay_method"})
	}
	if req.AddressID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing address_id"})
	}

	order, err := h.Order.Place(c.Context(), uid, req.AddressID, payMethod)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientStock):
			applog.Security(c, "order.place.fail", map[string]any{"reason": "insufficient_stock"})
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "insufficient stock"})
		case errors.Is(err, services.ErrStockContention):
			applog.Security(c, "order.place.fail", map[string]any{"reason": "contention"})
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "stock contention, try again"})
		case errors.Is(err, services.ErrCartEmpty):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no selected items in cart"})
		case errors.Is(err, services.ErrAddressNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "address not found"})
		case errors.Is(err, services.ErrSkuNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sku not found"})
		}
		applog.Error(c, "order.place.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	applog.Audit(c, "order.place", map[string]any{
		"order_id":     order.ID,
		"total_count":  order.TotalCount,
		"total_amount": order.TotalAmount.String(),
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_id":     order.ID,
		"status":       order.Status,
		"total_count":  order.TotalCount,
		"total_amount": order.TotalAmount,
		"freight":      order.Freight,
	})
}

func (h *OrderHandler) View(c *fiber.Ctx) error {
	oid := c.Params("id")
	if oid == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
	}

	o, items, err := h.Repo.Get(oid)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
	}

	// Ownership check: the buyer or an admin.
	u, _ := c.Locals("user").(*domain.User)
	if u == nil || (u.ID != o.UserID && u.Role != "ADMIN") {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": oid})
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
	}

	return c.JSON(fiber.Map{"order": o, "items": items})
}

// History lists orders for the current logged-in user.
func (h *OrderHandler) History(c *fiber.Ctx) error {
	uid, _ := c.Locals("uid").(int64)

	orders, err := h.Repo.ListByUser(uid)
	if err != nil {
		applog.Error(c, "orders.history.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"orders": orders})
}
