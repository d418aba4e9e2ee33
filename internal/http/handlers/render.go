package handlers

import "github.com/gofiber/fiber/v2"

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := c.Locals("user"); u != nil {
		data["User"] = u
		data["IsAdmin"] = userCtx(c).IsAdmin()
	}
	// The CSRF middleware stores its token in Locals; fall back to the cookie it set.
	if _, ok := data["CSRFToken"]; !ok {
		tok, _ := c.Locals("csrf").(string)
		if tok == "" {
			tok = c.Cookies(csrfCookie)
		}
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}
