package services_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"inkwell/internal/domain"
	"inkwell/internal/repos"
	"inkwell/internal/services"
)

type fixture struct {
	db      *sqlx.DB
	users   *repos.UserRepo
	books   *repos.BookRepo
	cart    *services.CartService
	orders  *services.OrderService
	catalog *services.CatalogService
	inv     *services.InventoryService
	reviews *services.ReviewService
	auth    *services.AuthService
}

// newFixture opens a migrated and seeded in-memory store.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureAt(t, ":memory:")
}

// newFileFixture opens a store in a database file, so transactions use separate connections.
func newFileFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureAt(t, filepath.Join(t.TempDir(), "inkwell.db"))
}

func newFixtureAt(t *testing.T, dsn string) *fixture {
	t.Helper()
	db, err := repos.OpenDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repos.NewUserRepo(db)
	books := repos.NewBookRepo(db)
	carts := repos.NewCartRepo(db)
	orders := repos.NewOrderRepo(db)
	reviews := repos.NewReviewRepo(db)
	return &fixture{
		db:      db,
		users:   users,
		books:   books,
		cart:    services.NewCartService(db, carts, books),
		orders:  services.NewOrderService(db, carts, books, orders),
		catalog: services.NewCatalogService(db, books),
		inv:     services.NewInventoryService(books),
		reviews: services.NewReviewService(reviews, books),
		auth:    services.NewAuthService(db, users, []byte("test-secret"), time.Hour),
	}
}

// as returns the identity of a seeded account.
func (f *fixture) as(t *testing.T, username string) domain.UserContext {
	t.Helper()
	u, err := f.users.ByUsername(context.Background(), username)
	require.NoError(t, err)
	return u.Context()
}

func (f *fixture) newBook(t *testing.T, title, price string, qty int) domain.Book {
	t.Helper()
	b := domain.Book{Title: title, Author: "Test Author", Price: decimal.RequireFromString(price), Quantity: qty}
	require.NoError(t, f.books.Create(context.Background(), &b))
	return b
}

func (f *fixture) stock(t *testing.T, bookID int64) int {
	t.Helper()
	n, err := f.books.Quantity(context.Background(), bookID)
	require.NoError(t, err)
	return n
}

func intp(n int) *int { return &n }
func idp(n int64) *int64 { return &n }
