package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// MaxStock bounds a stock count and any single stock change, so sums of the two stay within int64.
const MaxStock = math.MaxInt32

type Book struct {
	ID          int64           `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Author      string          `db:"author" json:"author"`
	Genre       string          `db:"genre" json:"genre"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Quantity    int             `db:"quantity" json:"quantity"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
	UpdatedAt   string          `db:"updated_at" json:"updated_at"`
}

type Availability struct {
	BookID int64  `json:"book_id"`
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}

// CartLineView is one cart line priced against the current catalog.
type CartLineView struct {
	ID        int64           `db:"id" json:"id"`
	BookID    int64           `db:"book_id" json:"book_id"`
	Title     string          `db:"title" json:"title"`
	Author    string          `db:"author" json:"author"`
	UnitPrice decimal.Decimal `db:"price" json:"unit_price"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Stock     int             `db:"stock" json:"-"`
	LineTotal decimal.Decimal `db:"-" json:"line_total"`
}

func (l CartLineView) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type CartView struct {
	Lines []CartLineView  `json:"lines"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// AddItem is one entry of a batch add. Pointers distinguish missing fields from zero values.
type AddItem struct {
	BookID   *int64 `json:"book_id"`
	Quantity *int   `json:"quantity"`
}

type Order struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Status    OrderStatus     `db:"status" json:"status"`
	Total     decimal.Decimal `db:"total" json:"total_price"`
	CreatedAt string          `db:"created_at" json:"created_at"`
	UpdatedAt string          `db:"updated_at" json:"updated_at"`
}

// OrderItem is the purchase snapshot of one cart line; price and title are copied at placement.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	BookID    int64           `db:"book_id" json:"book_id"`
	Title     string          `db:"title" json:"title"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Quantity  int             `db:"quantity" json:"quantity"`
}

func (it OrderItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type OrderView struct {
	Order
	Items []OrderItem `json:"items"`
}

type Review struct {
	ID        int64  `db:"id" json:"id"`
	BookID    int64  `db:"book_id" json:"book_id"`
	UserID    int64  `db:"user_id" json:"user_id"`
	Username  string `db:"username" json:"user"`
	Rating    int    `db:"rating" json:"rating"`
	Comment   string `db:"comment" json:"comment"`
	CreatedAt string `db:"created_at" json:"created_at"`
}
