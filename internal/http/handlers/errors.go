package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"inkwell/internal/domain"
	applog "inkwell/internal/log"
)

// statusFor is the single mapping from the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidStateTransition):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrTransactionFailed):
		return fiber.StatusConflict
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func publicMessage(err error, status int) string {
	switch {
	case status >= fiber.StatusInternalServerError:
		return "Something went wrong. Please try again."
	case errors.Is(err, domain.ErrTransactionFailed):
		return "The order could not be completed. Nothing was charged; please try again."
	}
	return err.Error()
}

// apiError writes the JSON error body for err and logs it under action.
func apiError(c *fiber.Ctx, action string, err error) error {
	return apiErrorStatus(c, action, err, statusFor(err))
}

func apiErrorStatus(c *fiber.Ctx, action string, err error, status int) error {
	body := fiber.Map{"error": publicMessage(err, status)}
	var stock *domain.InsufficientStockError
	if errors.As(err, &stock) {
		body["book_id"] = stock.BookID
		body["requested"] = stock.Requested
		body["available"] = stock.Available
	}
	c.Status(status)
	logFailure(c, action, err, status)
	return c.JSON(body)
}

// pageError renders the error page for browser routes.
func pageError(c *fiber.Ctx, action string, err error) error {
	status := statusFor(err)
	c.Status(status)
	logFailure(c, action, err, status)
	return render(c, "notfound", fiber.Map{"Message": publicMessage(err, status)})
}

func logFailure(c *fiber.Ctx, action string, err error, status int) {
	switch {
	case status >= fiber.StatusInternalServerError:
		applog.Error(c, action+".fail", err, nil)
	case status == fiber.StatusUnauthorized, status == fiber.StatusForbidden:
		applog.Security(c, "access.denied", map[string]any{"op": action, "reason": err.Error()})
	default:
		applog.Info(c, action+".rejected", map[string]any{"reason": err.Error()})
	}
}
