package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "minimall/internal/log"
	"minimall/internal/services"
)

type PaymentHandler struct {
	Order   *services.OrderService
	Gateway *services.PaymentGateway
}

// PayURL returns the signed gateway redirect for an unpaid online order.
func (h *PaymentHandler) PayURL(c *fiber.Ctx) error {
	uid, _ := c.Locals("uid").(int64)
	oid := c.Params("id")

	u, err := h.Order.PaymentURL(uid, oid)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		case errors.Is(err, services.ErrOrderNotPayable):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "order not payable"})
		}
		applog.Error(c, "payment.url.fail", err, map[string]any{"order_id": oid})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"pay_url": u})
}

// Status is the gateway webhook: verify the callback signature, then
// confirm the payment. Replays return the same response without further
// state changes.
func (h *PaymentHandler) Status(c *fiber.Ctx) error {
	params := map[string]string{}
	for k, v := range c.Queries() {
		params[k] = v
	}
	signature := params["sign"]
	delete(params, "sign")
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing signature"})
	}

	if !h.Gateway.Verify(params, signature) {
		applog.Security(c, "payment.callback.badsign", map[string]any{"order_id": params["out_trade_no"]})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad signature"})
	}

	orderID := params["out_trade_no"]
	tradeID := params["trade_no"]
	if orderID == "" || tradeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing trade parameters"})
	}

	if err := h.Order.ConfirmPayment(orderID, tradeID); err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		}
		applog.Error(c, "payment.confirm.fail", err, map[string]any{"order_id": orderID})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	applog.Audit(c, "payment.confirm", map[string]any{"order_id": orderID, "trade_id": tradeID})
	return c.JSON(fiber.Map{"trade_id": tradeID})
}
