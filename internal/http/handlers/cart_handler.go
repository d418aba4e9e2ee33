package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"inkwell/internal/domain"
	applog "inkwell/internal/log"
	"inkwell/internal/services"
	"inkwell/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

// addStatus treats an unknown book as bad input: the caller sent an id that does not exist.
func addStatus(err error) int {
	if errors.Is(err, domain.ErrNotFound) {
		return fiber.StatusBadRequest
	}
	return statusFor(err)
}

// GET /cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(c.UserContext(), userCtx(c))
	if err != nil {
		return pageError(c, "cart.view", err)
	}
	return render(c, "cart", fiber.Map{"Cart": cv})
}

// POST /cart
func (h *CartHandler) Add(c *fiber.Ctx) error {
	bookID, ok := validate.ID(c.FormValue("book_id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book_id"})
		return c.Status(fiber.StatusBadRequest).SendString("missing book_id")
	}
	qty, ok := validate.Qty(c.FormValue("quantity"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("quantity must be a whole number")
	}
	line, err := h.Cart.Add(c.UserContext(), userCtx(c), bookID, qty)
	if err != nil {
		c.Status(addStatus(err))
		logFailure(c, "cart.add", err, addStatus(err))
		return render(c, "notfound", fiber.Map{"Message": publicMessage(err, addStatus(err))})
	}
	applog.Info(c, "cart.add", map[string]any{"book_id": bookID, "qty": line.Quantity})
	return c.Redirect("/cart")
}

// POST /cart/remove/:id
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Cart line not found"})
	}
	if err := h.Cart.Remove(c.UserContext(), userCtx(c), id); err != nil {
		return pageError(c, "cart.remove", err)
	}
	return c.Redirect("/cart")
}

// GET /api/v1/cart
func (h *CartHandler) APIView(c *fiber.Ctx) error {
	cv, err := h.Cart.View(c.UserContext(), userCtx(c))
	if err != nil {
		return apiError(c, "cart.view", err)
	}
	return c.JSON(cv)
}

// POST /api/v1/cart
func (h *CartHandler) APIAdd(c *fiber.Ctx) error {
	var req addLineRequest
	if err := bind(c, &req); err != nil {
		return apiError(c, "cart.add", err)
	}
	line, err := h.Cart.Add(c.UserContext(), userCtx(c), req.BookID, req.Quantity)
	if err != nil {
		return apiErrorStatus(c, "cart.add", err, addStatus(err))
	}
	cv, err := h.Cart.View(c.UserContext(), userCtx(c))
	if err != nil {
		return apiError(c, "cart.view", err)
	}
	applog.Info(c, "cart.add", map[string]any{"book_id": req.BookID, "qty": line.Quantity})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"line": line, "cart": cv})
}

// POST /api/v1/cart/add_books
func (h *CartHandler) APIAddMany(c *fiber.Ctx) error {
	var req addManyRequest
	if err := bind(c, &req); err != nil {
		return apiError(c, "cart.add_many", err)
	}
	lines, err := h.Cart.AddMany(c.UserContext(), userCtx(c), req.Items)
	if err != nil {
		status := addStatus(err)
		logFailure(c, "cart.add_many", err, status)
		return c.Status(status).JSON(fiber.Map{"error": publicMessage(err, status), "added": lines})
	}
	applog.Info(c, "cart.add_many", map[string]any{"lines": len(lines)})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"added": lines})
}

// DELETE /api/v1/cart/:id
func (h *CartHandler) APIRemove(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, "cart.remove", err)
	}
	if err := h.Cart.Remove(c.UserContext(), userCtx(c), id); err != nil {
		return apiError(c, "cart.remove", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
