package handlers

import (
	"github.com/jmoiron/sqlx"

	"inkwell/internal/config"
	"inkwell/internal/repos"
	"inkwell/internal/services"
)

type Deps struct {
	Auth *services.AuthService

	AuthHandler      *AuthHandler
	BookHandler      *BookHandler
	InventoryHandler *InventoryHandler
	CartHandler      *CartHandler
	OrderHandler     *OrderHandler
	ReviewHandler    *ReviewHandler
	AdminHandler     *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	userRepo := repos.NewUserRepo(db)
	bookRepo := repos.NewBookRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	reviewRepo := repos.NewReviewRepo(db)

	authSvc := services.NewAuthService(db, userRepo, []byte(cfg.JWTSecret), cfg.TokenTTL)
	catalogSvc := services.NewCatalogService(db, bookRepo)
	invSvc := services.NewInventoryService(bookRepo)
	cartSvc := services.NewCartService(db, cartRepo, bookRepo)
	orderSvc := services.NewOrderService(db, cartRepo, bookRepo, orderRepo)
	reviewSvc := services.NewReviewService(reviewRepo, bookRepo)

	return &Deps{
		Auth:             authSvc,
		AuthHandler:      &AuthHandler{Auth: authSvc, CookieSecure: cfg.CookieSecure},
		BookHandler:      &BookHandler{Catalog: catalogSvc, Reviews: reviewSvc},
		InventoryHandler: &InventoryHandler{Inv: invSvc},
		CartHandler:      &CartHandler{Cart: cartSvc},
		OrderHandler:     &OrderHandler{Cart: cartSvc, Order: orderSvc},
		ReviewHandler:    &ReviewHandler{Reviews: reviewSvc},
		AdminHandler:     &AdminHandler{Orders: orderSvc, Catalog: catalogSvc, Auth: authSvc},
	}
}
