package log

import (
	"io"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"inkwell/internal/domain"
)

// UserKey is the fiber Locals key holding the request's domain.UserContext.
const UserKey = "uc"

type sink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

var (
	out  = &sink{w: os.Stdout}
	base = zerolog.New(out).With().Timestamp().Logger()
)

// SetOutput redirects every logger in the process and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	out.mu.Lock()
	defer out.mu.Unlock()
	prev := out.w
	out.w = w
	return prev
}

// Writer is the shared sink, for middleware that writes its own lines.
func Writer() io.Writer { return out }

// Logger is the process logger for code that runs outside a request.
func Logger() *zerolog.Logger { return &base }

func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func write(lvl zerolog.Level, kind string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	ev := base.WithLevel(lvl)
	if ev == nil {
		return
	}
	ev = ev.Str("kind", kind).Str("action", action)
	if c != nil {
		ev = ev.Str("ip", c.IP()).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode())
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ev = ev.Str("req_id", rid)
		}
		if uc, ok := c.Locals(UserKey).(domain.UserContext); ok && uc.Authenticated() {
			ev = ev.Int64("user_id", uc.UserID).Str("role", uc.Role.String())
		}
	}
	if err != nil {
		ev = ev.Err(err)
	}
	if len(fields) > 0 {
		ev = ev.Interface("fields", fields)
	}
	ev.Send()
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	write(zerolog.InfoLevel, "info", c, action, nil, fields)
}

func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write(zerolog.InfoLevel, "audit", c, action, nil, fields)
}

func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(zerolog.WarnLevel, "security", c, action, nil, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(zerolog.ErrorLevel, "error", c, action, err, fields)
}
