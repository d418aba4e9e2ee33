package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"inkwell/internal/domain"
	applog "inkwell/internal/log"
	"inkwell/internal/services"
	"inkwell/internal/validate"
)

const sidCookie = "sid"

type AuthHandler struct {
	Auth         *services.AuthService
	CookieSecure bool
}

func (h *AuthHandler) ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies(sidCookie)
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     sidCookie,
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   h.CookieSecure,
		})
	}
	return sid
}

// GET /login
func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": ""})
}

// POST /login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	username := c.FormValue("username")
	pass := c.FormValue("password")
	if _, ok := validate.Username(username); !ok {
		applog.Security(c, "auth.login.fail", map[string]any{"username": username, "reason": "bad_format"})
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{"Err": "Invalid username or password", "CSRFToken": c.Cookies(csrfCookie)})
	}
	// A fresh session id on every login; an id planted before sign-in is never promoted.
	if old := c.Cookies(sidCookie); old != "" {
		_ = h.Auth.Logout(c.UserContext(), old)
		c.Request().Header.DelCookie(sidCookie)
	}
	sid := h.ensureSID(c)
	u, err := h.Auth.Login(c.UserContext(), sid, username, pass)
	if err != nil {
		reason := "bad_credentials"
		if !errors.Is(err, services.ErrBadCreds) {
			reason = "error"
			applog.Error(c, "auth.login.error", err, nil)
		}
		applog.Security(c, "auth.login.fail", map[string]any{"username": username, "reason": reason})
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{"Err": "Invalid username or password", "CSRFToken": c.Cookies(csrfCookie)})
	}
	setUser(c, u)
	applog.Audit(c, "auth.login.success", map[string]any{"username": u.Username})
	return c.Redirect("/")
}

// POST /logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies(sidCookie); sid != "" {
		if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
			applog.Error(c, "auth.logout.fail", err, nil)
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     sidCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.CookieSecure,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	applog.Audit(c, "auth.logout", nil)
	return c.Redirect("/")
}

// GET /register
func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return render(c, "register", fiber.Map{"Err": ""})
}

// POST /register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	u, err := h.Auth.Register(c.UserContext(),
		c.FormValue("username"), c.FormValue("email"),
		c.FormValue("password"), c.FormValue("password2"))
	if err != nil {
		status := statusFor(err)
		logFailure(c, "auth.register", err, status)
		c.Status(status)
		return render(c, "register", fiber.Map{"Err": publicMessage(err, status), "Username": c.FormValue("username"), "Email": c.FormValue("email")})
	}
	applog.Audit(c, "auth.register", map[string]any{"username": u.Username, "user_id": u.ID})
	return c.Redirect("/login")
}

// POST /api/v1/register
func (h *AuthHandler) APIRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return apiError(c, "auth.register", err)
	}
	u, err := h.Auth.Register(c.UserContext(), req.Username, req.Email, req.Password, req.Password2)
	if err != nil {
		return apiError(c, "auth.register", err)
	}
	applog.Audit(c, "auth.register", map[string]any{"username": u.Username, "user_id": u.ID})
	return c.Status(fiber.StatusCreated).JSON(u)
}

// POST /api/v1/login exchanges credentials for a bearer token.
func (h *AuthHandler) APIToken(c *fiber.Ctx) error {
	var req tokenRequest
	if err := bind(c, &req); err != nil {
		return apiError(c, "auth.token", err)
	}
	u, err := h.Auth.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		applog.Security(c, "auth.token.fail", map[string]any{"username": req.Username})
		return apiErrorStatus(c, "auth.token", domain.ErrUnauthenticated, fiber.StatusUnauthorized)
	}
	tok, exp, err := h.Auth.IssueToken(u)
	if err != nil {
		return apiError(c, "auth.token", err)
	}
	applog.Audit(c, "auth.token.issued", map[string]any{"username": u.Username})
	return c.JSON(fiber.Map{
		"access_token": tok,
		"token_type":   "Bearer",
		"expires_at":   exp.UTC().Format(time.RFC3339),
		"user":         u,
	})
}
