package services

import (
	"context"

	"inkwell/internal/domain"
	"inkwell/internal/repos"
)

const LowStockThreshold = 5

type InventoryService struct {
	Books *repos.BookRepo
}

func NewInventoryService(books *repos.BookRepo) *InventoryService {
	return &InventoryService{Books: books}
}

// Availability maps a book's stock to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) Availability(ctx context.Context, bookID int64) (domain.Availability, error) {
	qty, err := s.Books.Quantity(ctx, bookID)
	if err != nil {
		return domain.Availability{}, err
	}
	status := "OUT_OF_STOCK"
	switch {
	case qty >= LowStockThreshold:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{BookID: bookID, Status: status, Qty: qty}, nil
}
