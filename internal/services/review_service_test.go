package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/domain"
)

func TestReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, editor := f.as(t, "alice"), f.as(t, "bob"), f.as(t, "editor")
	b := f.newBook(t, "Reviewed", "11.00", 1)

	first, err := f.reviews.Create(ctx, alice, b.ID, 5, "  loved it  ")
	require.NoError(t, err)
	assert.Equal(t, "loved it", first.Comment)
	assert.Equal(t, "alice", first.Username)

	// a second review of the same book is allowed
	_, err = f.reviews.Create(ctx, alice, b.ID, 3, "second read")
	require.NoError(t, err)

	got, err := f.reviews.List(ctx, &b.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	t.Run("rejects", func(t *testing.T) {
		_, err := f.reviews.Create(ctx, domain.UserContext{}, b.ID, 4, "")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		_, err = f.reviews.Create(ctx, bob, b.ID, 0, "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = f.reviews.Create(ctx, bob, b.ID, 6, "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = f.reviews.Create(ctx, bob, b.ID, 4, strings.Repeat("x", 2001))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = f.reviews.Create(ctx, bob, b.ID, 4, strings.Repeat("é", 2001))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = f.reviews.Create(ctx, bob, 9999, 4, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("length counts characters", func(t *testing.T) {
		long := strings.Repeat("é", 2000)
		rv, err := f.reviews.Create(ctx, bob, b.ID, 4, long)
		require.NoError(t, err)
		assert.Equal(t, long, rv.Comment)
	})

	t.Run("delete", func(t *testing.T) {
		err := f.reviews.Delete(ctx, bob, first.ID)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
		require.NoError(t, f.reviews.Delete(ctx, editor, first.ID))
		err = f.reviews.Delete(ctx, alice, first.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
