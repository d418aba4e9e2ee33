package repos

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"inkwell/internal/domain"
	applog "inkwell/internal/log"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Users []struct {
		Username string `yaml:"username"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
	} `yaml:"users"`
	Books []struct {
		Title       string `yaml:"title"`
		Author      string `yaml:"author"`
		Genre       string `yaml:"genre"`
		Description string `yaml:"description"`
		Price       string `yaml:"price"`
		Quantity    int    `yaml:"quantity"`
	} `yaml:"books"`
}

// SeedDefaults loads the embedded demo catalog and accounts.
func SeedDefaults(ctx context.Context, db *sqlx.DB) error {
	return seed(ctx, db, defaultSeed)
}

// SeedFromFile loads an operator-supplied YAML file with the same layout as seed.yaml.
func SeedFromFile(ctx context.Context, db *sqlx.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return seed(ctx, db, b)
}

func seed(ctx context.Context, db *sqlx.DB, raw []byte) error {
	var sf seedFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}

	users := NewUserRepo(db)
	for _, u := range sf.Users {
		if _, err := users.ByUsername(ctx, u.Username); err == nil {
			continue
		}
		role, err := domain.ParseRole(u.Role)
		if err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		err = InTx(ctx, db, func(tx *sqlx.Tx) error {
			_, err := users.WithTx(tx).Create(ctx, u.Username, u.Email, string(hash), role)
			return err
		})
		if err != nil && !IsUniqueViolation(err) {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}

	var n int
	if err := getx(ctx, db, &n, `SELECT COUNT(*) FROM books`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	books := NewBookRepo(db)
	for _, b := range sf.Books {
		price, err := decimal.NewFromString(b.Price)
		if err != nil {
			return fmt.Errorf("seed book %q: %w", b.Title, err)
		}
		book := domain.Book{
			Title: b.Title, Author: b.Author, Genre: b.Genre,
			Description: b.Description, Price: price, Quantity: b.Quantity,
		}
		if err := books.Create(ctx, &book); err != nil {
			return err
		}
	}
	applog.Logger().Info().Int("books", len(sf.Books)).Int("users", len(sf.Users)).Msg("[seed] demo data loaded")
	return nil
}
