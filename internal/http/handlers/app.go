package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"inkwell/internal/config"
	applog "inkwell/internal/log"
	"inkwell/web"
)

const csrfCookie = "csrf_"

func isAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}

// ErrorHandler never shows internals. API callers get JSON, browsers the error page.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		status = fe.Code
		msg = fe.Message
	}
	if status >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
	} else {
		applog.Info(c, "server.reject", map[string]any{"status": status, "reason": msg})
	}
	c.Status(status)
	if isAPI(c) {
		return c.JSON(fiber.Map{"error": msg})
	}
	if rerr := c.Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.SendString(msg)
	}
	return nil
}

// NewApp builds the HTTP surface: browser pages under / and the JSON API under /api/v1.
func NewApp(cfg config.Config, deps *Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:        web.NewEngine(),
		ErrorHandler: ErrorHandler,
		BodyLimit:    cfg.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Output: applog.Writer(),
		Format: "${time} ${status} ${latency} ${method} ${path} ${locals:requestid}\n",
	}))
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).SendString("too many requests")
		},
	}))

	// Browsers are identified by the sid cookie, API clients only by bearer tokens.
	sessions := SessionUser(deps.Auth)
	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Next()
		}
		return sessions(c)
	})
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     csrfCookie,
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		ContextKey:     "csrf",
		Next:           isAPI,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"reason": err.Error()})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))

	mountWeb(app, cfg, deps)
	mountAPI(app, cfg, deps)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	})
	return app
}

func mountWeb(app *fiber.App, cfg config.Config, deps *Deps) {
	authH := deps.AuthHandler
	app.Get("/", deps.BookHandler.Home)
	app.Get("/books/:id", deps.BookHandler.Detail)
	app.Post("/books/:id/reviews", RequireUser(), deps.ReviewHandler.Create)

	app.Get("/login", authH.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        cfg.LoginLimit,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), authH.Login)
	app.Post("/logout", authH.Logout)
	app.Get("/register", authH.RegisterForm)
	app.Post("/register", authH.Register)

	app.Get("/cart", RequireUser(), deps.CartHandler.View)
	app.Post("/cart", RequireUser(), deps.CartHandler.Add)
	app.Post("/cart/remove/:id", RequireUser(), deps.CartHandler.Remove)
	app.Get("/checkout", RequireUser(), deps.OrderHandler.Checkout)
	app.Post("/orders", RequireUser(), deps.OrderHandler.Place)
	app.Get("/orders", RequireUser(), deps.OrderHandler.History)
	app.Get("/orders/:id", RequireUser(), deps.OrderHandler.View)
	app.Post("/orders/:id/cancel", RequireUser(), deps.OrderHandler.Cancel)

	adminH := deps.AdminHandler
	admin := app.Group("/admin", RequireAdmin())
	admin.Get("/", adminH.Dashboard)
	admin.Get("/orders", adminH.OrdersPage)
	admin.Post("/orders/:id/status", adminH.UpdateOrderStatus)
	admin.Get("/books", adminH.BooksPage)
	admin.Post("/books/:id/stock", adminH.UpdateStock)
	admin.Get("/users", adminH.UsersPage)
	admin.Post("/users/:id/role", adminH.SetRole)
}

func mountAPI(app *fiber.App, cfg config.Config, deps *Deps) {
	api := app.Group("/api/v1",
		cors.New(cors.Config{
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			AllowMethods: "GET,POST,PUT,PATCH,DELETE",
		}),
		BearerToken(deps.Auth.Secret()),
		TokenUser(deps.Auth),
	)

	api.Post("/register", deps.AuthHandler.APIRegister)
	api.Post("/login", limiter.New(limiter.Config{
		Max:        cfg.LoginLimit,
		Expiration: 10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|token"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts, retry later"})
		},
	}), deps.AuthHandler.APIToken)

	books := deps.BookHandler
	api.Get("/books", books.APIList)
	api.Post("/books", books.APICreate)
	api.Get("/books/:id", books.APIGet)
	api.Put("/books/:id", books.APIUpdate)
	api.Delete("/books/:id", books.APIDelete)
	api.Put("/books/:id/stock", books.APISetStock)
	api.Get("/books/:id/availability", limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}), deps.InventoryHandler.Check)

	cart := deps.CartHandler
	api.Get("/cart", cart.APIView)
	api.Post("/cart", cart.APIAdd)
	api.Post("/cart/add_books", cart.APIAddMany)
	api.Delete("/cart/:id", cart.APIRemove)

	orders := deps.OrderHandler
	api.Get("/orders", orders.APIList)
	api.Post("/orders", orders.APIPlace)
	api.Get("/orders/:id", orders.APIGet)
	api.Patch("/orders/:id", orders.APIUpdateStatus)
	api.Delete("/orders/:id", orders.APIDelete)
	api.Post("/orders/:id/cancel", orders.APICancel)
	api.Post("/orders/:id/complete", orders.APIComplete)

	reviews := deps.ReviewHandler
	api.Get("/reviews", reviews.APIList)
	api.Post("/reviews", reviews.APICreate)
	api.Delete("/reviews/:id", reviews.APIDelete)
}
