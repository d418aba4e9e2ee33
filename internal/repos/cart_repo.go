package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"inkwell/internal/domain"
)

type CartRepo struct{ q sqlx.ExtContext }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{q: db} }

func (r *CartRepo) WithTx(tx *sqlx.Tx) *CartRepo { return &CartRepo{q: tx} }

// Upsert adds qty to the user's line for bookID, creating it if needed,
// and returns the line id with its resulting quantity.
func (r *CartRepo) Upsert(ctx context.Context, userID, bookID int64, qty int) (int64, int, error) {
	var row struct {
		ID       int64 `db:"id"`
		Quantity int   `db:"quantity"`
	}
	ts := now()
	err := getx(ctx, r.q, &row, `
		INSERT INTO cart_lines(user_id, book_id, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, book_id) DO UPDATE
		SET quantity = cart_lines.quantity + excluded.quantity, updated_at = excluded.updated_at
		RETURNING id, quantity`, userID, bookID, qty, ts, ts)
	return row.ID, row.Quantity, err
}

// LineQty is the quantity already in the cart for bookID, zero when there is no line.
func (r *CartRepo) LineQty(ctx context.Context, userID, bookID int64) (int, error) {
	var qty int
	err := getx(ctx, r.q, &qty, `SELECT quantity FROM cart_lines WHERE user_id = ? AND book_id = ?`, userID, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

// Lines returns the user's cart joined with current book data, oldest line first.
func (r *CartRepo) Lines(ctx context.Context, userID int64) ([]domain.CartLineView, error) {
	rows := []domain.CartLineView{}
	err := selectx(ctx, r.q, &rows, `
		SELECT cl.id, cl.book_id, b.title, b.author, b.price, cl.quantity, b.quantity AS stock
		FROM cart_lines cl
		JOIN books b ON b.id = cl.book_id
		WHERE cl.user_id = ?
		ORDER BY cl.id`, userID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].LineTotal = rows[i].Subtotal()
	}
	return rows, nil
}

// Delete removes a line only when it belongs to userID.
func (r *CartRepo) Delete(ctx context.Context, userID, lineID int64) (bool, error) {
	n, err := execx(ctx, r.q, `DELETE FROM cart_lines WHERE id = ? AND user_id = ?`, lineID, userID)
	return n == 1, err
}

func (r *CartRepo) Clear(ctx context.Context, userID int64) error {
	_, err := execx(ctx, r.q, `DELETE FROM cart_lines WHERE user_id = ?`, userID)
	return err
}

func (r *CartRepo) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	err := getx(ctx, r.q, &n, `SELECT COUNT(*) FROM cart_lines WHERE user_id = ?`, userID)
	return n, err
}
