package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"inkwell/internal/domain"
	"inkwell/internal/repos"
)

const maxCommentLen = 2000

type ReviewService struct {
	Reviews *repos.ReviewRepo
	Books   *repos.BookRepo
}

func NewReviewService(reviews *repos.ReviewRepo, books *repos.BookRepo) *ReviewService {
	return &ReviewService{Reviews: reviews, Books: books}
}

// Create posts a review. A user may review the same book more than once.
func (s *ReviewService) Create(ctx context.Context, uc domain.UserContext, bookID int64, rating int, comment string) (domain.Review, error) {
	if err := uc.RequireAuthenticated(); err != nil {
		return domain.Review{}, err
	}
	if rating < 1 || rating > 5 {
		return domain.Review{}, domain.Invalid("rating must be between 1 and 5, got %d", rating)
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return domain.Review{}, domain.Invalid("comment longer than %d characters", maxCommentLen)
	}
	if _, err := s.Books.Get(ctx, bookID); err != nil {
		return domain.Review{}, err
	}
	rv := domain.Review{BookID: bookID, UserID: uc.UserID, Username: uc.Username, Rating: rating, Comment: comment}
	if err := s.Reviews.Create(ctx, &rv); err != nil {
		return domain.Review{}, fmt.Errorf("review create: %w", err)
	}
	return rv, nil
}

func (s *ReviewService) List(ctx context.Context, bookID *int64) ([]domain.Review, error) {
	return s.Reviews.List(ctx, bookID)
}

// Delete is allowed to the review's author and to admins.
func (s *ReviewService) Delete(ctx context.Context, uc domain.UserContext, id int64) error {
	if err := uc.RequireAuthenticated(); err != nil {
		return err
	}
	rv, err := s.Reviews.Get(ctx, id)
	if err != nil {
		return err
	}
	if !uc.CanActOn(rv.UserID) {
		return fmt.Errorf("%w: review %d belongs to another user", domain.ErrPermissionDenied, id)
	}
	return s.Reviews.Delete(ctx, id)
}
