package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"inkwell/internal/domain"
	"inkwell/internal/validate"
)

var checker = newChecker()

// newChecker reports fields by their JSON names.
func newChecker() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type registerRequest struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2" validate:"required"`
}

type tokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type addLineRequest struct {
	BookID   int64 `json:"book_id" validate:"required"`
	Quantity *int  `json:"quantity"`
}

type addManyRequest struct {
	Items []domain.AddItem `json:"items"`
}

type bookRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Author      string          `json:"author" validate:"required,max=200"`
	Genre       string          `json:"genre" validate:"max=100"`
	Description string          `json:"description" validate:"max=4000"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
}

func (r bookRequest) book() domain.Book {
	return domain.Book{
		Title: r.Title, Author: r.Author, Genre: r.Genre,
		Description: r.Description, Price: r.Price, Quantity: r.Quantity,
	}
}

type stockRequest struct {
	Quantity *int `json:"quantity"`
	Delta    *int `json:"delta"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed cancelled"`
}

type reviewRequest struct {
	BookID  int64  `json:"book_id" validate:"required"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// bind parses the JSON body into dst and runs its validate tags.
// Failures come back as domain.ErrInvalidInput naming the offending fields.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return domain.Invalid("malformed request body")
	}
	if err := checker.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return domain.Invalid("invalid fields: %s", strings.Join(fields, ", "))
		}
		return domain.Invalid("%v", err)
	}
	return nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, ok := validate.ID(c.Params(name))
	if !ok {
		return 0, domain.Invalid("%s must be a positive integer", name)
	}
	return id, nil
}
