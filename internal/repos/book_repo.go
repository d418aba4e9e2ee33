package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"inkwell/internal/domain"
)

type BookRepo struct{ q sqlx.ExtContext }

func NewBookRepo(db *sqlx.DB) *BookRepo { return &BookRepo{q: db} }

func (r *BookRepo) WithTx(tx *sqlx.Tx) *BookRepo { return &BookRepo{q: tx} }

const bookCols = `id, title, author, genre, description, price, quantity, created_at, updated_at`

func (r *BookRepo) List(ctx context.Context) ([]domain.Book, error) {
	out := []domain.Book{}
	err := selectx(ctx, r.q, &out, `SELECT `+bookCols+` FROM books ORDER BY title, id`)
	return out, err
}

func (r *BookRepo) Get(ctx context.Context, id int64) (domain.Book, error) {
	var b domain.Book
	err := getx(ctx, r.q, &b, `SELECT `+bookCols+` FROM books WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Book{}, domain.NotFound("book", id)
	}
	return b, err
}

// Create inserts b and fills in its id and timestamps.
func (r *BookRepo) Create(ctx context.Context, b *domain.Book) error {
	ts := now()
	err := getx(ctx, r.q, &b.ID, `
		INSERT INTO books(title, author, genre, description, price, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		b.Title, b.Author, b.Genre, b.Description, b.Price.StringFixed(2), b.Quantity, ts, ts)
	if err != nil {
		return err
	}
	b.CreatedAt, b.UpdatedAt = ts, ts
	return nil
}

// Update rewrites the descriptive fields. Stock goes through SetQuantity/Adjust.
func (r *BookRepo) Update(ctx context.Context, b domain.Book) error {
	n, err := execx(ctx, r.q, `
		UPDATE books SET title = ?, author = ?, genre = ?, description = ?, price = ?, updated_at = ?
		WHERE id = ?`,
		b.Title, b.Author, b.Genre, b.Description, b.Price.StringFixed(2), now(), b.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("book", b.ID)
	}
	return nil
}

func (r *BookRepo) Delete(ctx context.Context, id int64) error {
	n, err := execx(ctx, r.q, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("book", id)
	}
	return nil
}

// Ordered reports whether any order item references the book.
func (r *BookRepo) Ordered(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := getx(ctx, r.q, &n, `SELECT COUNT(*) FROM order_items WHERE book_id = ?`, id); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *BookRepo) Quantity(ctx context.Context, id int64) (int, error) {
	var qty int
	err := getx(ctx, r.q, &qty, `SELECT quantity FROM books WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NotFound("book", id)
	}
	return qty, err
}

// SetQuantity overwrites the stock count of one book.
func (r *BookRepo) SetQuantity(ctx context.Context, id int64, qty int) error {
	n, err := execx(ctx, r.q, `UPDATE books SET quantity = ?, updated_at = ? WHERE id = ?`, qty, now(), id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("book", id)
	}
	return nil
}

// Adjust adds delta to the stock unless that would take it below zero or above domain.MaxStock.
// It reports false, without error, when the guard rejected the change.
func (r *BookRepo) Adjust(ctx context.Context, id int64, delta int) (int, bool, error) {
	var qty int
	err := getx(ctx, r.q, &qty, `
		UPDATE books SET quantity = quantity + ?, updated_at = ?
		WHERE id = ? AND quantity >= ? AND quantity <= ?
		RETURNING quantity`, delta, now(), id, -delta, domain.MaxStock-delta)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return qty, true, nil
}

// Decrement takes by units of stock only if at least that many are left.
func (r *BookRepo) Decrement(ctx context.Context, id int64, by int) (bool, error) {
	n, err := execx(ctx, r.q, `
		UPDATE books
		SET quantity = quantity - ?, updated_at = ?
		WHERE id = ? AND quantity >= ?`, by, now(), id, by)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
