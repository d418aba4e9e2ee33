package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"inkwell/internal/domain"
	"inkwell/internal/repos"
)

type CatalogService struct {
	db    *sqlx.DB
	Books *repos.BookRepo
}

func NewCatalogService(db *sqlx.DB, books *repos.BookRepo) *CatalogService {
	return &CatalogService{db: db, Books: books}
}

func (s *CatalogService) List(ctx context.Context) ([]domain.Book, error) {
	return s.Books.List(ctx)
}

func (s *CatalogService) Get(ctx context.Context, id int64) (domain.Book, error) {
	return s.Books.Get(ctx, id)
}

func checkBook(b *domain.Book) error {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.Genre = strings.TrimSpace(b.Genre)
	switch {
	case b.Title == "":
		return domain.Invalid("title is required")
	case b.Author == "":
		return domain.Invalid("author is required")
	case b.Price.IsNegative():
		return domain.Invalid("price must not be negative")
	case b.Quantity < 0:
		return domain.Invalid("quantity must not be negative")
	case b.Quantity > domain.MaxStock:
		return domain.Invalid("quantity must not exceed %d", domain.MaxStock)
	}
	return nil
}

func (s *CatalogService) Create(ctx context.Context, uc domain.UserContext, b domain.Book) (domain.Book, error) {
	if err := uc.RequireAdmin(); err != nil {
		return domain.Book{}, err
	}
	if err := checkBook(&b); err != nil {
		return domain.Book{}, err
	}
	if err := s.Books.Create(ctx, &b); err != nil {
		return domain.Book{}, fmt.Errorf("catalog create: %w", err)
	}
	return b, nil
}

// Update changes title, author, genre, description and price. Stock has its own entry points.
func (s *CatalogService) Update(ctx context.Context, uc domain.UserContext, b domain.Book) (domain.Book, error) {
	if err := uc.RequireAdmin(); err != nil {
		return domain.Book{}, err
	}
	if err := checkBook(&b); err != nil {
		return domain.Book{}, err
	}
	if err := s.Books.Update(ctx, b); err != nil {
		return domain.Book{}, err
	}
	return s.Books.Get(ctx, b.ID)
}

// Delete refuses books that appear in any order.
func (s *CatalogService) Delete(ctx context.Context, uc domain.UserContext, id int64) error {
	if err := uc.RequireAdmin(); err != nil {
		return err
	}
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		books := s.Books.WithTx(tx)
		ordered, err := books.Ordered(ctx, id)
		if err != nil {
			return err
		}
		if ordered {
			return domain.Invalid("book %d has been ordered and cannot be deleted", id)
		}
		return books.Delete(ctx, id)
	})
	switch {
	case err == nil, domain.IsKind(err):
		return err
	case repos.IsForeignKeyViolation(err):
		// an order for the book landed after the check
		return domain.Invalid("book %d has been ordered and cannot be deleted", id)
	}
	return fmt.Errorf("catalog delete: %w", err)
}

func (s *CatalogService) SetStock(ctx context.Context, uc domain.UserContext, id int64, qty int) (domain.Book, error) {
	if err := uc.RequireAdmin(); err != nil {
		return domain.Book{}, err
	}
	if qty < 0 || qty > domain.MaxStock {
		return domain.Book{}, domain.Invalid("quantity must be between 0 and %d", domain.MaxStock)
	}
	if err := s.Books.SetQuantity(ctx, id, qty); err != nil {
		return domain.Book{}, err
	}
	return s.Books.Get(ctx, id)
}

// AdjustStock applies a relative change, e.g. a delivery (+) or a write-off (-).
func (s *CatalogService) AdjustStock(ctx context.Context, uc domain.UserContext, id int64, delta int) (domain.Book, error) {
	if err := uc.RequireAdmin(); err != nil {
		return domain.Book{}, err
	}
	if delta < -domain.MaxStock || delta > domain.MaxStock {
		return domain.Book{}, domain.Invalid("stock change must be within ±%d", domain.MaxStock)
	}
	b, err := s.Books.Get(ctx, id)
	if err != nil {
		return domain.Book{}, err
	}
	qty, ok, err := s.Books.Adjust(ctx, id, delta)
	if err != nil {
		return domain.Book{}, fmt.Errorf("stock adjust: %w", err)
	}
	if !ok && delta > 0 {
		return domain.Book{}, domain.Invalid("stock of book %d would exceed %d", id, domain.MaxStock)
	}
	if !ok {
		avail, err := s.Books.Quantity(ctx, id)
		if err != nil {
			return domain.Book{}, err
		}
		return domain.Book{}, &domain.InsufficientStockError{BookID: id, Title: b.Title, Requested: -delta, Available: avail}
	}
	b.Quantity = qty
	return b, nil
}
