package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"inkwell/internal/domain"
)

type OrderRepo struct{ q sqlx.ExtContext }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{q: db} }

func (r *OrderRepo) WithTx(tx *sqlx.Tx) *OrderRepo { return &OrderRepo{q: tx} }

const orderCols = `id, user_id, status, total, created_at, updated_at`

// Create inserts an order header with a zero total; SetTotal fills it once items exist.
func (r *OrderRepo) Create(ctx context.Context, userID int64, status domain.OrderStatus) (domain.Order, error) {
	o := domain.Order{UserID: userID, Status: status, Total: decimal.Zero}
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt
	err := getx(ctx, r.q, &o.ID, `
		INSERT INTO orders(user_id, status, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`, userID, status.String(), "0", o.CreatedAt, o.UpdatedAt)
	return o, err
}

func (r *OrderRepo) InsertItem(ctx context.Context, it *domain.OrderItem) error {
	return getx(ctx, r.q, &it.ID, `
		INSERT INTO order_items(order_id, book_id, title, unit_price, quantity)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`, it.OrderID, it.BookID, it.Title, it.UnitPrice.StringFixed(2), it.Quantity)
}

func (r *OrderRepo) SetTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	_, err := execx(ctx, r.q, `UPDATE orders SET total = ? WHERE id = ?`, total.StringFixed(2), id)
	return err
}

func (r *OrderRepo) Get(ctx context.Context, id int64) (domain.Order, error) {
	var o domain.Order
	err := getx(ctx, r.q, &o, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.NotFound("order", id)
	}
	return o, err
}

func (r *OrderRepo) Items(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	items := []domain.OrderItem{}
	err := selectx(ctx, r.q, &items, `
		SELECT id, order_id, book_id, title, unit_price, quantity
		FROM order_items
		WHERE order_id = ?
		ORDER BY id`, orderID)
	return items, err
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	out := []domain.Order{}
	err := selectx(ctx, r.q, &out, `SELECT `+orderCols+` FROM orders WHERE user_id = ? ORDER BY id DESC`, userID)
	return out, err
}

func (r *OrderRepo) ListLatest(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []domain.Order{}
	err := selectx(ctx, r.q, &out, `SELECT `+orderCols+` FROM orders ORDER BY id DESC LIMIT ?`, limit)
	return out, err
}

// Transition moves the order from -> to only if it is still in from.
// False means another writer got there first (or the order is gone).
func (r *OrderRepo) Transition(ctx context.Context, id int64, from, to domain.OrderStatus) (bool, error) {
	n, err := execx(ctx, r.q, `
		UPDATE orders SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`, to.String(), now(), id, from.String())
	return n == 1, err
}

func (r *OrderRepo) Delete(ctx context.Context, id int64) error {
	n, err := execx(ctx, r.q, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("order", id)
	}
	return nil
}
