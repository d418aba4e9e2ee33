package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "inkwell/internal/log"
	"inkwell/internal/services"
	"inkwell/internal/validate"
)

type BookHandler struct {
	Catalog *services.CatalogService
	Reviews *services.ReviewService
}

// GET /
func (h *BookHandler) Home(c *fiber.Ctx) error {
	books, err := h.Catalog.List(c.UserContext())
	if err != nil {
		return pageError(c, "catalog.list", err)
	}
	return render(c, "home", fiber.Map{"Books": books})
}

// GET /books/:id
func (h *BookHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book"})
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "This book is no longer available"})
	}
	b, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return pageError(c, "catalog.get", err)
	}
	reviews, err := h.Reviews.List(c.UserContext(), &id)
	if err != nil {
		return pageError(c, "reviews.list", err)
	}
	return render(c, "book", fiber.Map{"Book": b, "Reviews": reviews})
}

// GET /api/v1/books
func (h *BookHandler) APIList(c *fiber.Ctx) error {
	books, err := h.Catalog.List(c.UserContext())
	if err != nil {
		return apiError(c, "catalog.list", err)
	}
	return c.JSON(books)
}

// GET /api/v1/books/:id
func (h *BookHandler) APIGet(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, "catalog.get", err)
	}
	b, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return apiError(c, "catalog.get", err)
	}
	return c.JSON(b)
}

// POST /api/v1/books
func (h *BookHandler) APICreate(c *fiber.Ctx) error {
	var req bookRequest
	if err := bind(c, &req); err != nil {
		return apiError(c, "catalog.create", err)
	}
	b, err := h.Catalog.Create(c.UserContext(), userCtx(c), req.book())
	if err != nil {
		return apiError(c, "catalog.create", err)
	}
	applog.Audit(c, "catalog.create", map[string]any{"book_id": b.ID, "title": b.Title})
	return c.Status(fiber.StatusCreated).JSON(b)
}

// PUT /api/v1/books/:id
func (h *BookHandler) APIUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, "catalog.update", err)
	}
	var req bookRequest
	if err := bind(c, &req); err != nil {
		return apiError(c, "catalog.update", err)
	}
	in := req.book()
	in.ID = id
	b, err := h.Catalog.Update(c.UserContext(), userCtx(c), in)
	if err != nil {
		return apiError(c, "catalog.update", err)
	}
	applog.Audit(c, "catalog.update", map[string]any{"book_id": id, "price": b.Price.StringFixed(2)})
	return c.JSON(b)
}

// DELETE /api/v1/books/:id
func (h *BookHandler) APIDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, "catalog.delete", err)
	}
	if err := h.Catalog.Delete(c.UserContext(), userCtx(c), id); err != nil {
		return apiError(c, "catalog.delete", err)
	}
	applog.Audit(c, "catalog.delete", map[string]any{"book_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// PUT /api/v1/books/:id/stock takes either {"quantity": n} or {"delta": n}.
func (h *BookHandler) APISetStock(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, "stock.save", err)
	}
	var req stockRequest
	if err := bind(c, &req); err != nil {
		return apiError(c, "stock.save", err)
	}
	switch {
	case req.Quantity != nil && req.Delta == nil:
		b, err := h.Catalog.SetStock(c.UserContext(), userCtx(c), id, *req.Quantity)
		if err != nil {
			return apiError(c, "stock.save", err)
		}
		applog.Audit(c, "stock.save", map[string]any{"book_id": id, "qty": b.Quantity})
		return c.JSON(b)
	case req.Delta != nil && req.Quantity == nil:
		b, err := h.Catalog.AdjustStock(c.UserContext(), userCtx(c), id, *req.Delta)
		if err != nil {
			return apiError(c, "stock.adjust", err)
		}
		applog.Audit(c, "stock.adjust", map[string]any{"book_id": id, "delta": *req.Delta, "qty": b.Quantity})
		return c.JSON(b)
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "send exactly one of quantity or delta"})
}
