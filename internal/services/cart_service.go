package services

import (
	"context"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"inkwell/internal/domain"
	"inkwell/internal/repos"
)

type CartService struct {
	db    *sqlx.DB
	Carts *repos.CartRepo
	Books *repos.BookRepo
}

func NewCartService(db *sqlx.DB, carts *repos.CartRepo, books *repos.BookRepo) *CartService {
	return &CartService{db: db, Carts: carts, Books: books}
}

// Add puts quantity copies of a book in the caller's cart, merging with an existing line.
// A nil quantity means one.
func (s *CartService) Add(ctx context.Context, uc domain.UserContext, bookID int64, quantity *int) (domain.CartLineView, error) {
	if err := uc.RequireAuthenticated(); err != nil {
		return domain.CartLineView{}, err
	}
	qty := 1
	if quantity != nil {
		qty = *quantity
	}
	if qty < 1 {
		return domain.CartLineView{}, domain.Invalid("quantity must be a positive integer, got %d", qty)
	}
	if bookID <= 0 {
		return domain.CartLineView{}, domain.Invalid("book_id is required")
	}

	var line domain.CartLineView
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		carts := s.Carts.WithTx(tx)
		b, err := s.Books.WithTx(tx).Get(ctx, bookID)
		if err != nil {
			return err
		}
		have, err := carts.LineQty(ctx, uc.UserID, bookID)
		if err != nil {
			return err
		}
		// compared as a difference: have+qty can overflow
		if qty > b.Quantity-have {
			requested := qty
			if qty <= math.MaxInt-have {
				requested += have
			}
			return &domain.InsufficientStockError{BookID: b.ID, Title: b.Title, Requested: requested, Available: b.Quantity}
		}
		id, n, err := carts.Upsert(ctx, uc.UserID, bookID, qty)
		if err != nil {
			return err
		}
		line = domain.CartLineView{
			ID: id, BookID: b.ID, Title: b.Title, Author: b.Author,
			UnitPrice: b.Price, Quantity: n, Stock: b.Quantity,
		}
		line.LineTotal = line.Subtotal()
		return nil
	})
	if err != nil && !domain.IsKind(err) {
		return domain.CartLineView{}, fmt.Errorf("cart add: %w", err)
	}
	return line, err
}

// AddMany validates the whole batch shape first, then applies each item with Add.
// Items are independent: a failure stops the batch but keeps the lines already added.
func (s *CartService) AddMany(ctx context.Context, uc domain.UserContext, items []domain.AddItem) ([]domain.CartLineView, error) {
	if err := uc.RequireAuthenticated(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.Invalid("no items given")
	}
	for i, it := range items {
		switch {
		case it.BookID == nil:
			return nil, domain.Invalid("items[%d]: book_id is required", i)
		case it.Quantity == nil:
			return nil, domain.Invalid("items[%d]: quantity is required", i)
		}
	}
	added := make([]domain.CartLineView, 0, len(items))
	for i, it := range items {
		line, err := s.Add(ctx, uc, *it.BookID, it.Quantity)
		if err != nil {
			return added, fmt.Errorf("items[%d]: %w", i, err)
		}
		added = append(added, line)
	}
	return added, nil
}

// Remove deletes one of the caller's lines. Someone else's line id reads as not found.
func (s *CartService) Remove(ctx context.Context, uc domain.UserContext, lineID int64) error {
	if err := uc.RequireAuthenticated(); err != nil {
		return err
	}
	ok, err := s.Carts.Delete(ctx, uc.UserID, lineID)
	if err != nil {
		return fmt.Errorf("cart remove: %w", err)
	}
	if !ok {
		return domain.NotFound("cart line", lineID)
	}
	return nil
}

func (s *CartService) View(ctx context.Context, uc domain.UserContext) (domain.CartView, error) {
	if err := uc.RequireAuthenticated(); err != nil {
		return domain.CartView{}, err
	}
	lines, err := s.Carts.Lines(ctx, uc.UserID)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("cart view: %w", err)
	}
	cv := domain.CartView{Lines: lines, Total: decimal.Zero}
	for _, l := range lines {
		cv.Count += l.Quantity
		cv.Total = cv.Total.Add(l.LineTotal)
	}
	return cv, nil
}
