package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	applog "inkwell/internal/log"
	"inkwell/internal/services"
	"inkwell/internal/validate"
)

type AdminHandler struct {
	Orders  *services.OrderService
	Catalog *services.CatalogService
	Auth    *services.AuthService
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	ords, err := h.Orders.ListAll(c.UserContext(), userCtx(c), 10)
	if err != nil {
		return pageError(c, "admin.dashboard", err)
	}
	books, err := h.Catalog.List(c.UserContext())
	if err != nil {
		return pageError(c, "admin.dashboard", err)
	}
	low := books[:0:0]
	for _, b := range books {
		if b.Quantity < services.LowStockThreshold {
			low = append(low, b)
		}
	}
	return render(c, "admin_dashboard", fiber.Map{"Orders": ords, "LowStock": low})
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	ords, err := h.Orders.ListAll(c.UserContext(), userCtx(c), 100)
	if err != nil {
		return pageError(c, "admin.orders.list", err)
	}
	return render(c, "admin_orders", fiber.Map{"Orders": ords})
}

// POST /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	status := c.FormValue("status")
	if !ok || status == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing id or status")
	}
	if _, err := h.Orders.UpdateStatus(c.UserContext(), userCtx(c), id, status); err != nil {
		return pageError(c, "admin.orders.update", err)
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": status})
	return c.Redirect("/admin/orders")
}

// GET /admin/books
func (h *AdminHandler) BooksPage(c *fiber.Ctx) error {
	books, err := h.Catalog.List(c.UserContext())
	if err != nil {
		return pageError(c, "admin.books.list", err)
	}
	return render(c, "admin_books", fiber.Map{"Books": books})
}

// POST /admin/books/:id/stock
func (h *AdminHandler) UpdateStock(c *fiber.Ctx) error {
	id, okID := validate.ID(c.Params("id"))
	qty, okQty := validate.Qty(c.FormValue("quantity"))
	if !okID || !okQty || qty == nil || *qty < 0 {
		applog.Security(c, "validation.fail", map[string]any{"field": "stock"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid input")
	}
	b, err := h.Catalog.SetStock(c.UserContext(), userCtx(c), id, *qty)
	if err != nil {
		return pageError(c, "admin.stock.save", err)
	}
	applog.Audit(c, "admin.stock.save", map[string]any{"book_id": id, "qty": b.Quantity})
	return c.Redirect("/admin/books")
}

// GET /admin/users
func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	users, err := h.Auth.ListUsers(c.UserContext(), userCtx(c))
	if err != nil {
		return pageError(c, "admin.users.list", err)
	}
	return render(c, "admin_users", fiber.Map{"Users": users})
}

// POST /admin/users/:id/role
func (h *AdminHandler) SetRole(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing id")
	}
	role := c.FormValue("role")
	if err := h.Auth.SetRole(c.UserContext(), userCtx(c), id, role); err != nil {
		return pageError(c, "admin.users.role", err)
	}
	applog.Audit(c, "admin.users.role", map[string]any{"user_id": strconv.FormatInt(id, 10), "role": role})
	return c.Redirect("/admin/users")
}
