package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"inkwell/internal/domain"
	applog "inkwell/internal/log"
	"inkwell/internal/repos"
)

// OrderService turns carts into orders and moves orders through their states.
// Stock is taken when an order is placed; completing or cancelling never touches it.
type OrderService struct {
	db     *sqlx.DB
	Carts  *repos.CartRepo
	Books  *repos.BookRepo
	Orders *repos.OrderRepo
}

func NewOrderService(db *sqlx.DB, carts *repos.CartRepo, books *repos.BookRepo, orders *repos.OrderRepo) *OrderService {
	return &OrderService{db: db, Carts: carts, Books: books, Orders: orders}
}

// Place converts the caller's cart into a pending order in one transaction:
// header, item snapshots, stock decrements and cart clear all commit together or not at all.
func (s *OrderService) Place(ctx context.Context, uc domain.UserContext) (domain.OrderView, error) {
	if err := uc.RequireAuthenticated(); err != nil {
		return domain.OrderView{}, err
	}
	var view domain.OrderView
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		carts, books, orders := s.Carts.WithTx(tx), s.Books.WithTx(tx), s.Orders.WithTx(tx)

		lines, err := carts.Lines(ctx, uc.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.Invalid("cart is empty")
		}
		// fixed lock order across concurrent placements
		sort.Slice(lines, func(i, j int) bool { return lines[i].BookID < lines[j].BookID })

		o, err := orders.Create(ctx, uc.UserID, domain.StatusPending)
		if err != nil {
			return err
		}
		items := make([]domain.OrderItem, 0, len(lines))
		total := decimal.Zero
		for _, l := range lines {
			ok, err := books.Decrement(ctx, l.BookID, l.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				avail, err := books.Quantity(ctx, l.BookID)
				if err != nil {
					return err
				}
				return &domain.InsufficientStockError{BookID: l.BookID, Title: l.Title, Requested: l.Quantity, Available: avail}
			}
			it := domain.OrderItem{OrderID: o.ID, BookID: l.BookID, Title: l.Title, UnitPrice: l.UnitPrice, Quantity: l.Quantity}
			if err := orders.InsertItem(ctx, &it); err != nil {
				return err
			}
			items = append(items, it)
			total = total.Add(it.Subtotal())
		}
		if err := orders.SetTotal(ctx, o.ID, total); err != nil {
			return err
		}
		if err := carts.Clear(ctx, uc.UserID); err != nil {
			return err
		}
		o.Total = total
		view = domain.OrderView{Order: o, Items: items}
		return nil
	})
	if err != nil {
		return domain.OrderView{}, txFailure("order place", err)
	}
	return view, nil
}

// txFailure passes taxonomy errors through and folds everything else into ErrTransactionFailed.
func txFailure(op string, err error) error {
	if domain.IsKind(err) {
		return err
	}
	applog.Logger().Warn().Err(err).Str("op", op).Bool("retryable", repos.IsRetryable(err)).Msg("transaction rolled back")
	return fmt.Errorf("%s: %w: %v", op, domain.ErrTransactionFailed, err)
}

// Get returns an order with its items. Orders of other users read as not found.
func (s *OrderService) Get(ctx context.Context, uc domain.UserContext, id int64) (domain.OrderView, error) {
	if err := uc.RequireAuthenticated(); err != nil {
		return domain.OrderView{}, err
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.OrderView{}, err
	}
	if !uc.CanActOn(o.UserID) {
		return domain.OrderView{}, domain.NotFound("order", id)
	}
	return s.view(ctx, o)
}

func (s *OrderService) view(ctx context.Context, o domain.Order) (domain.OrderView, error) {
	items, err := s.Orders.Items(ctx, o.ID)
	if err != nil {
		return domain.OrderView{}, fmt.Errorf("order items: %w", err)
	}
	return domain.OrderView{Order: o, Items: items}, nil
}

func (s *OrderService) ListMine(ctx context.Context, uc domain.UserContext) ([]domain.Order, error) {
	if err := uc.RequireAuthenticated(); err != nil {
		return nil, err
	}
	return s.Orders.ListByUser(ctx, uc.UserID)
}

func (s *OrderService) ListAll(ctx context.Context, uc domain.UserContext, limit int) ([]domain.Order, error) {
	if err := uc.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.Orders.ListLatest(ctx, limit)
}

// Cancel is open to the order's owner and to admins, and only while the order is pending.
// Stock taken at placement is not returned.
func (s *OrderService) Cancel(ctx context.Context, uc domain.UserContext, id int64) (domain.OrderView, error) {
	if err := uc.RequireAuthenticated(); err != nil {
		return domain.OrderView{}, err
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.OrderView{}, err
	}
	if !uc.CanActOn(o.UserID) {
		return domain.OrderView{}, fmt.Errorf("%w: order %d belongs to another user", domain.ErrPermissionDenied, id)
	}
	return s.transition(ctx, o, domain.StatusCancelled)
}

// Complete is admin-only. It only changes status; stock left the shelf at placement.
func (s *OrderService) Complete(ctx context.Context, uc domain.UserContext, id int64) (domain.OrderView, error) {
	if err := uc.RequireAdmin(); err != nil {
		return domain.OrderView{}, err
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.OrderView{}, err
	}
	return s.transition(ctx, o, domain.StatusCompleted)
}

// UpdateStatus is the admin entry point that sets an order's status by name.
func (s *OrderService) UpdateStatus(ctx context.Context, uc domain.UserContext, id int64, status string) (domain.OrderView, error) {
	if err := uc.RequireAdmin(); err != nil {
		return domain.OrderView{}, err
	}
	to, err := domain.ParseOrderStatus(status)
	if err != nil {
		return domain.OrderView{}, err
	}
	switch to {
	case domain.StatusCompleted:
		return s.Complete(ctx, uc, id)
	case domain.StatusCancelled:
		return s.Cancel(ctx, uc, id)
	}
	return domain.OrderView{}, fmt.Errorf("%w: an order cannot be moved back to %s", domain.ErrInvalidStateTransition, to)
}

func (s *OrderService) transition(ctx context.Context, o domain.Order, to domain.OrderStatus) (domain.OrderView, error) {
	if !domain.CanTransition(o.Status, to) {
		return domain.OrderView{}, fmt.Errorf("%w: order %d is %s", domain.ErrInvalidStateTransition, o.ID, o.Status)
	}
	ok, err := s.Orders.Transition(ctx, o.ID, o.Status, to)
	if err != nil {
		return domain.OrderView{}, fmt.Errorf("order transition: %w", err)
	}
	if !ok {
		// lost a race; report what the order is now
		cur, err := s.Orders.Get(ctx, o.ID)
		if err != nil {
			return domain.OrderView{}, err
		}
		return domain.OrderView{}, fmt.Errorf("%w: order %d is %s", domain.ErrInvalidStateTransition, o.ID, cur.Status)
	}
	cur, err := s.Orders.Get(ctx, o.ID)
	if err != nil {
		return domain.OrderView{}, err
	}
	return s.view(ctx, cur)
}

// Delete removes an order and its items; owner or admin only.
func (s *OrderService) Delete(ctx context.Context, uc domain.UserContext, id int64) error {
	if err := uc.RequireAuthenticated(); err != nil {
		return err
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return err
	}
	if !uc.CanActOn(o.UserID) {
		return fmt.Errorf("%w: order %d belongs to another user", domain.ErrPermissionDenied, id)
	}
	return s.Orders.Delete(ctx, id)
}
