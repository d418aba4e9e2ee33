package services_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/domain"
	"inkwell/internal/services"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.auth.Register(ctx, "carol", "carol@inkwell.test", "S3cret-pass", "S3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, u.Role)
	assert.NotEqual(t, "S3cret-pass", u.Hash)

	_, err = f.auth.Register(ctx, "Carol", "other@inkwell.test", "S3cret-pass", "S3cret-pass")
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "usernames are unique regardless of case")

	bad := []struct{ name, user, email, pw, pw2 string }{
		{"short username", "cj", "cj@inkwell.test", "S3cret-pass", "S3cret-pass"},
		{"bad email", "dave", "not-an-email", "S3cret-pass", "S3cret-pass"},
		{"mismatch", "dave", "dave@inkwell.test", "S3cret-pass", "S3cret-pasS"},
		{"weak password", "dave", "dave@inkwell.test", "password", "password"},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, tc.user, tc.email, tc.pw, tc.pw2)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err = f.auth.Authenticate(ctx, "carol", "wrong")
	assert.ErrorIs(t, err, services.ErrBadCreds)
	_, err = f.auth.Authenticate(ctx, "nobody", "S3cret-pass")
	assert.ErrorIs(t, err, services.ErrBadCreds)

	got, err := f.auth.Login(ctx, "sid-1", "carol", "S3cret-pass")
	require.NoError(t, err)
	cur, err := f.auth.CurrentUser(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, got.ID, cur.ID)

	require.NoError(t, f.auth.Logout(ctx, "sid-1"))
	_, err = f.auth.CurrentUser(ctx, "sid-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIssueTokenRoundTrip(t *testing.T) {
	f := newFixture(t)
	u, err := f.auth.Authenticate(context.Background(), "alice", "Passw0rd!")
	require.NoError(t, err)

	raw, exp, err := f.auth.IssueToken(u)
	require.NoError(t, err)
	assert.False(t, exp.IsZero())

	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return f.auth.Secret(), nil })
	require.NoError(t, err)
	id, ok := services.UserIDFromToken(tok)
	require.True(t, ok)
	assert.Equal(t, u.ID, id)

	_, err = jwt.Parse(raw, func(*jwt.Token) (any, error) { return []byte("other-secret"), nil })
	assert.Error(t, err)
}

func TestSetRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root, admin, alice := f.as(t, "root"), f.as(t, "admin"), f.as(t, "alice")

	err := f.auth.SetRole(ctx, admin, alice.UserID, "admin")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	err = f.auth.SetRole(ctx, root, root.UserID, "customer")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	err = f.auth.SetRole(ctx, root, alice.UserID, "emperor")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, f.auth.SetRole(ctx, root, alice.UserID, "content_admin"))
	promoted := f.as(t, "alice")
	assert.True(t, promoted.IsAdmin())

	_, err = f.auth.ListUsers(ctx, f.as(t, "bob"))
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	users, err := f.auth.ListUsers(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 5)
}
