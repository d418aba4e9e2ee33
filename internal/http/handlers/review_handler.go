package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	applog "inkwell/internal/log"
	"inkwell/internal/services"
	"inkwell/internal/validate"
)

type ReviewHandler struct {
	Reviews *services.ReviewService
}

// POST /books/:id/reviews
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	bookID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "This book is no longer available"})
	}
	rating, ok := validate.Rating(c.FormValue("rating"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "rating"})
		return c.Status(fiber.StatusBadRequest).SendString("rating must be between 1 and 5")
	}
	r, err := h.Reviews.Create(c.UserContext(), userCtx(c), bookID, rating, c.FormValue("comment"))
	if err != nil {
		return pageError(c, "review.create", err)
	}
	applog.Info(c, "review.create", map[string]any{"review_id": r.ID, "book_id": bookID})
	return c.Redirect("/books/" + strconv.FormatInt(bookID, 10))
}

// GET /api/v1/reviews?book_id=
func (h *ReviewHandler) APIList(c *fiber.Ctx) error {
	var bookID *int64
	if raw := c.Query("book_id"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "book_id must be a positive integer"})
		}
		bookID = &id
	}
	reviews, err := h.Reviews.List(c.UserContext(), bookID)
	if err != nil {
		return apiError(c, "reviews.list", err)
	}
	return c.JSON(reviews)
}

// POST /api/v1/reviews
func (h *ReviewHandler) APICreate(c *fiber.Ctx) error {
	var req reviewRequest
	if err := bind(c, &req); err != nil {
		return apiError(c, "review.create", err)
	}
	r, err := h.Reviews.Create(c.UserContext(), userCtx(c), req.BookID, req.Rating, req.Comment)
	if err != nil {
		return apiError(c, "review.create", err)
	}
	applog.Info(c, "review.create", map[string]any{"review_id": r.ID, "book_id": req.BookID})
	return c.Status(fiber.StatusCreated).JSON(r)
}

// DELETE /api/v1/reviews/:id
func (h *ReviewHandler) APIDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, "review.delete", err)
	}
	if err := h.Reviews.Delete(c.UserContext(), userCtx(c), id); err != nil {
		return apiError(c, "review.delete", err)
	}
	applog.Audit(c, "review.delete", map[string]any{"review_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
