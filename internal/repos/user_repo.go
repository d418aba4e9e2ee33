package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"inkwell/internal/domain"
)

type UserRepo struct{ q sqlx.ExtContext }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{q: db} }

func (r *UserRepo) WithTx(tx *sqlx.Tx) *UserRepo { return &UserRepo{q: tx} }

const userCols = `u.id, u.username, u.email, u.password_hash, p.role, u.created_at`

// Create inserts the account and its profile. Run it inside a transaction so neither exists alone.
func (r *UserRepo) Create(ctx context.Context, username, email, hash string, role domain.Role) (int64, error) {
	var id int64
	err := getx(ctx, r.q, &id, `
		INSERT INTO users(username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`, username, email, hash, now())
	if err != nil {
		return 0, err
	}
	if _, err := execx(ctx, r.q, `INSERT INTO user_profiles(user_id, role) VALUES (?, ?)`, id, role.String()); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *UserRepo) one(ctx context.Context, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := getx(ctx, r.q, &u, `
		SELECT `+userCols+`
		FROM users u
		JOIN user_profiles p ON p.user_id = u.id
		WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.one(ctx, `LOWER(u.username) = LOWER(?)`, username)
}

func (r *UserRepo) ByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.one(ctx, `u.id = ?`, id)
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	out := []domain.User{}
	err := selectx(ctx, r.q, &out, `
		SELECT `+userCols+`
		FROM users u
		JOIN user_profiles p ON p.user_id = u.id
		ORDER BY u.username`)
	return out, err
}

func (r *UserRepo) SetRole(ctx context.Context, userID int64, role domain.Role) error {
	n, err := execx(ctx, r.q, `UPDATE user_profiles SET role = ? WHERE user_id = ?`, role.String(), userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("user", userID)
	}
	return nil
}

func (r *UserRepo) BindSession(ctx context.Context, sid string, userID int64) error {
	_, err := execx(ctx, r.q, `
		INSERT INTO sessions(id, user_id, last_seen) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, last_seen = excluded.last_seen`,
		sid, userID, now())
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	var u domain.User
	err := getx(ctx, r.q, &u, `
		SELECT `+userCols+`
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		JOIN user_profiles p ON p.user_id = u.id
		WHERE s.id = ?`, sid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := execx(ctx, r.q, `DELETE FROM sessions WHERE id = ?`, sid)
	return err
}
