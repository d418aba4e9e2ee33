package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/domain"
)

func TestPlace_ConvertsCartAndTakesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.as(t, "alice")
	b := f.newBook(t, "Five Copies", "10.00", 5)

	_, err := f.cart.Add(ctx, alice, b.ID, intp(2))
	require.NoError(t, err)
	_, err = f.cart.Add(ctx, alice, b.ID, intp(1))
	require.NoError(t, err)

	o, err := f.orders.Place(ctx, alice)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, alice.UserID, o.UserID)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("30.00")), "total %s", o.Total)
	want := []domain.OrderItem{{OrderID: o.ID, BookID: b.ID, Title: "Five Copies", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 3}}
	if diff := cmp.Diff(want, o.Items, cmpopts.IgnoreFields(domain.OrderItem{}, "ID"), cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 2, f.stock(t, b.ID))
	cv, err := f.cart.View(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, cv.Lines)

	stored, err := f.orders.Get(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Total.Equal(o.Total))
	require.Len(t, stored.Items, 1)
}

func TestPlace_PriceSnapshotSurvivesPriceChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, admin := f.as(t, "alice"), f.as(t, "admin")
	b := f.newBook(t, "Snapshot", "12.50", 3)

	_, err := f.cart.Add(ctx, alice, b.ID, intp(2))
	require.NoError(t, err)
	o, err := f.orders.Place(ctx, alice)
	require.NoError(t, err)

	b.Price = decimal.RequireFromString("99.00")
	_, err = f.catalog.Update(ctx, admin, b)
	require.NoError(t, err)

	got, err := f.orders.Get(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, got.Total.Equal(decimal.RequireFromString("25.00")))
}

func TestPlace_EmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.orders.Place(context.Background(), f.as(t, "bob"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.orders.Place(context.Background(), domain.UserContext{})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestPlace_AllOrNothingOnShortStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, admin := f.as(t, "alice"), f.as(t, "admin")
	plenty := f.newBook(t, "Plenty", "5.00", 10)
	scarce := f.newBook(t, "Scarce", "7.00", 2)

	_, err := f.cart.Add(ctx, alice, plenty.ID, intp(4))
	require.NoError(t, err)
	_, err = f.cart.Add(ctx, alice, scarce.ID, intp(2))
	require.NoError(t, err)

	// stock drops after the cart was filled
	_, err = f.catalog.SetStock(ctx, admin, scarce.ID, 1)
	require.NoError(t, err)

	_, err = f.orders.Place(ctx, alice)
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr), "got %v", err)
	assert.Equal(t, scarce.ID, stockErr.BookID)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	assert.Equal(t, 10, f.stock(t, plenty.ID), "earlier decrement must roll back")
	assert.Equal(t, 1, f.stock(t, scarce.ID))
	mine, err := f.orders.ListMine(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, mine)
	cv, err := f.cart.View(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, cv.Lines, 2, "cart is kept when placement fails")
}

// Buyers racing for the last copies on separate connections: exactly as many win as there is stock.
func TestPlace_ConcurrentLastCopies(t *testing.T) {
	f := newFileFixture(t)
	ctx := context.Background()
	const stock, buyers = 3, 10
	b := f.newBook(t, "Last Copies", "20.00", stock)

	ucs := make([]domain.UserContext, buyers)
	for i := range ucs {
		name := fmt.Sprintf("buyer%02d", i)
		u, err := f.auth.Register(ctx, name, name+"@inkwell.test", "Passw0rd!", "Passw0rd!")
		require.NoError(t, err)
		ucs[i] = u.Context()
		_, err = f.cart.Add(ctx, ucs[i], b.ID, intp(1))
		require.NoError(t, err)
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i, uc := range ucs {
		wg.Add(1)
		go func(i int, uc domain.UserContext) {
			defer wg.Done()
			<-start
			_, errs[i] = f.orders.Place(ctx, uc)
		}(i, uc)
	}
	close(start)
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, stock, ok)
	assert.Equal(t, buyers-stock, short)
	assert.Equal(t, 0, f.stock(t, b.ID))

	var sold int
	require.NoError(t, f.db.Get(&sold, `SELECT COALESCE(SUM(quantity), 0) FROM order_items WHERE book_id = ?`, b.ID))
	assert.Equal(t, stock, sold)
}

func TestOrderTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, admin := f.as(t, "alice"), f.as(t, "bob"), f.as(t, "admin")
	b := f.newBook(t, "Transitions", "6.00", 10)

	place := func(t *testing.T) domain.OrderView {
		t.Helper()
		_, err := f.cart.Add(ctx, alice, b.ID, intp(1))
		require.NoError(t, err)
		o, err := f.orders.Place(ctx, alice)
		require.NoError(t, err)
		return o
	}

	t.Run("owner cancels once", func(t *testing.T) {
		o := place(t)
		before := f.stock(t, b.ID)
		got, err := f.orders.Cancel(ctx, alice, o.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, got.Status)
		assert.Equal(t, before, f.stock(t, b.ID), "cancel does not restock")

		_, err = f.orders.Cancel(ctx, alice, o.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
		_, err = f.orders.Complete(ctx, admin, o.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})

	t.Run("admin completes", func(t *testing.T) {
		o := place(t)
		before := f.stock(t, b.ID)
		_, err := f.orders.Complete(ctx, alice, o.ID)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)

		got, err := f.orders.Complete(ctx, admin, o.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, got.Status)
		assert.Equal(t, before, f.stock(t, b.ID))

		_, err = f.orders.Cancel(ctx, alice, o.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})

	t.Run("other users", func(t *testing.T) {
		o := place(t)
		_, err := f.orders.Get(ctx, bob, o.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = f.orders.Cancel(ctx, bob, o.ID)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
		err = f.orders.Delete(ctx, bob, o.ID)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)

		got, err := f.orders.Get(ctx, admin, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, got.ID)
		_, err = f.orders.Cancel(ctx, admin, o.ID)
		require.NoError(t, err)
	})

	t.Run("update status by name", func(t *testing.T) {
		o := place(t)
		_, err := f.orders.UpdateStatus(ctx, admin, o.ID, "shipped")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = f.orders.UpdateStatus(ctx, admin, o.ID, "pending")
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
		got, err := f.orders.UpdateStatus(ctx, admin, o.ID, "completed")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, got.Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.orders.Cancel(ctx, alice, 424242)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestOrderLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, admin := f.as(t, "alice"), f.as(t, "bob"), f.as(t, "admin")
	b := f.newBook(t, "Listed", "2.00", 10)

	for _, uc := range []domain.UserContext{alice, bob} {
		_, err := f.cart.Add(ctx, uc, b.ID, intp(1))
		require.NoError(t, err)
		_, err = f.orders.Place(ctx, uc)
		require.NoError(t, err)
	}

	mine, err := f.orders.ListMine(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, alice.UserID, mine[0].UserID)

	_, err = f.orders.ListAll(ctx, alice, 10)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	all, err := f.orders.ListAll(ctx, admin, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOrderDelete_KeepsStockAndRemovesItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.as(t, "alice")
	b := f.newBook(t, "Deletable", "3.00", 4)

	_, err := f.cart.Add(ctx, alice, b.ID, intp(2))
	require.NoError(t, err)
	o, err := f.orders.Place(ctx, alice)
	require.NoError(t, err)

	require.NoError(t, f.orders.Delete(ctx, alice, o.ID))
	_, err = f.orders.Get(ctx, alice, o.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var n int
	require.NoError(t, f.db.Get(&n, `SELECT COUNT(*) FROM order_items WHERE order_id = ?`, o.ID))
	assert.Zero(t, n)
	assert.Equal(t, 2, f.stock(t, b.ID))
}
