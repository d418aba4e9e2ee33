package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"inkwell/internal/domain"
)

type ReviewRepo struct{ q sqlx.ExtContext }

func NewReviewRepo(db *sqlx.DB) *ReviewRepo { return &ReviewRepo{q: db} }

const reviewSelect = `
	SELECT r.id, r.book_id, r.user_id, u.username, r.rating, r.comment, r.created_at
	FROM reviews r
	JOIN users u ON u.id = r.user_id`

func (r *ReviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	rv.CreatedAt = now()
	return getx(ctx, r.q, &rv.ID, `
		INSERT INTO reviews(book_id, user_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`, rv.BookID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt)
}

func (r *ReviewRepo) Get(ctx context.Context, id int64) (domain.Review, error) {
	var rv domain.Review
	err := getx(ctx, r.q, &rv, reviewSelect+` WHERE r.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, domain.NotFound("review", id)
	}
	return rv, err
}

// List returns reviews newest first, optionally for one book.
func (r *ReviewRepo) List(ctx context.Context, bookID *int64) ([]domain.Review, error) {
	out := []domain.Review{}
	if bookID != nil {
		err := selectx(ctx, r.q, &out, reviewSelect+` WHERE r.book_id = ? ORDER BY r.id DESC`, *bookID)
		return out, err
	}
	err := selectx(ctx, r.q, &out, reviewSelect+` ORDER BY r.id DESC`)
	return out, err
}

func (r *ReviewRepo) Delete(ctx context.Context, id int64) error {
	n, err := execx(ctx, r.q, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("review", id)
	}
	return nil
}
