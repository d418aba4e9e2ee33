package handlers

import (
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"

	"inkwell/internal/domain"
	applog "inkwell/internal/log"
	"inkwell/internal/services"
)

const tokenKey = "token"

// userCtx is the caller's identity for this request; anonymous when nobody signed in.
func userCtx(c *fiber.Ctx) domain.UserContext {
	uc, _ := c.Locals(applog.UserKey).(domain.UserContext)
	return uc
}

func setUser(c *fiber.Ctx, u *domain.User) {
	c.Locals("user", u)
	c.Locals(applog.UserKey, u.Context())
}

// SessionUser attaches the user behind the sid cookie, if any. The role is read fresh on every request.
func SessionUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := auth.CurrentUser(c.UserContext(), sid); err == nil {
				setUser(c, u)
			}
		}
		return c.Next()
	}
}

// RequireUser sends anonymous browsers to the login page.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !userCtx(c).Authenticated() {
			return c.Redirect("/login")
		}
		return c.Next()
	}
}

func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := userCtx(c)
		if !uc.Authenticated() {
			return c.Redirect("/login")
		}
		if !uc.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"role": uc.Role.String()})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied"})
		}
		return c.Next()
	}
}

// BearerToken verifies an Authorization: Bearer token when one is sent.
// Requests without the header pass through anonymous; the operations decide whether that is enough.
func BearerToken(secret []byte) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: secret,
		ContextKey: tokenKey,
		Filter:     func(c *fiber.Ctx) bool { return c.Get(fiber.HeaderAuthorization) == "" },
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "auth.token.invalid", map[string]any{"reason": err.Error()})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		},
	})
}

// TokenUser resolves the verified token to a user and their current role.
func TokenUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok, _ := c.Locals(tokenKey).(*jwt.Token)
		if tok == nil {
			return c.Next()
		}
		id, ok := services.UserIDFromToken(tok)
		if !ok {
			applog.Security(c, "auth.token.claims", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}
		u, err := auth.ByID(c.UserContext(), id)
		if err != nil {
			applog.Security(c, "auth.token.unknown_user", map[string]any{"user_id": id})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}
		setUser(c, u)
		return c.Next()
	}
}
