// Package web holds the HTML templates, compiled into the binary.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templates embed.FS

// NewEngine parses every page and partial under templates/.
func NewEngine() fiber.Views {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("money", func(d decimal.Decimal) string { return "$" + d.StringFixed(2) })
	return engine
}
