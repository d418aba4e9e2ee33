package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	applog "inkwell/internal/log"
	"inkwell/internal/services"
	"inkwell/internal/validate"
)

type OrderHandler struct {
	Cart  *services.CartService
	Order *services.OrderService
}

// GET /checkout
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	cv, err := h.Cart.View(c.UserContext(), userCtx(c))
	if err != nil {
		return pageError(c, "checkout.load", err)
	}
	return render(c, "checkout", fiber.Map{"Cart": cv})
}

// POST /orders
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	o, err := h.Order.Place(c.UserContext(), userCtx(c))
	if err != nil {
		return pageError(c, "order.place", err)
	}
	applog.Audit(c, "order.place", map[string]any{"order_id": o.ID, "total": o.Total.StringFixed(2), "items": len(o.Items)})
	return c.Redirect("/orders/" + strconv.FormatInt(o.ID, 10))
}

// GET /orders/:id
func (h *OrderHandler) View(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Order not found"})
	}
	o, err := h.Order.Get(c.UserContext(), userCtx(c), id)
	if err != nil {
		return pageError(c, "order.view", err)
	}
	return render(c, "order", fiber.Map{"Order": o})
}

// GET /orders
func (h *OrderHandler) History(c *fiber.Ctx) error {
	orders, err := h.Order.ListMine(c.UserContext(), userCtx(c))
	if err != nil {
		return pageError(c, "orders.history", err)
	}
	return render(c, "order_history", fiber.Map{"Orders": orders})
}

// POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Order not found"})
	}
	o, err := h.Order.Cancel(c.UserContext(), userCtx(c), id)
	if err != nil {
		return pageError(c, "order.cancel", err)
	}
	applog.Audit(c, "order.cancel", map[string]any{"order_id": o.ID})
	return c.Redirect("/orders/" + strconv.FormatInt(o.ID, 10))
}

// GET /api/v1/orders lists the caller's orders; admins may pass ?all=1.
func (h *OrderHandler) APIList(c *fiber.Ctx) error {
	uc := userCtx(c)
	if c.QueryBool("all") {
		orders, err := h.Order.ListAll(c.UserContext(), uc, c.QueryInt("limit", 100))
		if err != nil {
			return apiError(c, "orders.list", err)
		}
		return c.JSON(orders)
	}
	orders, err := h.Order.ListMine(c.UserContext(), uc)
	if err != nil {
		return apiError(c, "orders.list", err)
	}
	return c.JSON(orders)
}

// POST /api/v1/orders
func (h *OrderHandler) APIPlace(c *fiber.Ctx) error {
	o, err := h.Order.Place(c.UserContext(), userCtx(c))
	if err != nil {
		return apiError(c, "order.place", err)
	}
	applog.Audit(c, "order.place", map[string]any{"order_id": o.ID, "total": o.Total.StringFixed(2), "items": len(o.Items)})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// GET /api/v1/orders/:id
func (h *OrderHandler) APIGet(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, "order.get", err)
	}
	o, err := h.Order.Get(c.UserContext(), userCtx(c), id)
	if err != nil {
		return apiError(c, "order.get", err)
	}
	return c.JSON(o)
}

// POST /api/v1/orders/:id/cancel
func (h *OrderHandler) APICancel(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, "order.cancel", err)
	}
	o, err := h.Order.Cancel(c.UserContext(), userCtx(c), id)
	if err != nil {
		return apiError(c, "order.cancel", err)
	}
	applog.Audit(c, "order.cancel", map[string]any{"order_id": id})
	return c.JSON(o)
}

// POST /api/v1/orders/:id/complete
func (h *OrderHandler) APIComplete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, "order.complete", err)
	}
	o, err := h.Order.Complete(c.UserContext(), userCtx(c), id)
	if err != nil {
		return apiError(c, "order.complete", err)
	}
	applog.Audit(c, "order.complete", map[string]any{"order_id": id})
	return c.JSON(o)
}

// PATCH /api/v1/orders/:id
func (h *OrderHandler) APIUpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, "order.status", err)
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return apiError(c, "order.status", err)
	}
	o, err := h.Order.UpdateStatus(c.UserContext(), userCtx(c), id, req.Status)
	if err != nil {
		return apiError(c, "order.status", err)
	}
	applog.Audit(c, "order.status", map[string]any{"order_id": id, "status": req.Status})
	return c.JSON(o)
}

// DELETE /api/v1/orders/:id
func (h *OrderHandler) APIDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, "order.delete", err)
	}
	if err := h.Order.Delete(c.UserContext(), userCtx(c), id); err != nil {
		return apiError(c, "order.delete", err)
	}
	applog.Audit(c, "order.delete", map[string]any{"order_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
