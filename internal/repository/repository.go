package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository struct {
	DB          *gorm.DB
	Variants    VariantRepo
	Inventories InventoryRepo
	Discounts   DiscountRepo
	Carts       CartRepo
	Orders      OrderRepo
	OrderItems  OrderItemRepo
}

func New(db *gorm.DB) *Repository {
	return &Repository{
		DB:          db,
		Variants:    NewVariantRepo(db),
		Inventories: NewInventoryRepo(db),
		Discounts:   NewDiscountRepo(db),
		Carts:       NewCartRepo(db),
		Orders:      NewOrderRepo(db),
		OrderItems:  NewOrderItemRepo(db),
	}
}

// WithTx runs fn inside one database transaction; every repo on the
// passed Repository is bound to that transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// IsRetryableTxError reports whether err is a serialization failure or a
// deadlock abort, i.e. the transaction may be retried as-is.
func IsRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// WithTxRetry retries fn a bounded number of times on serialization or
// deadlock failures. Business errors pass through untouched.
func (r *Repository) WithTxRetry(ctx context.Context, attempts int, fn func(tx *Repository) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = r.WithTx(ctx, fn)
		if err == nil || !IsRetryableTxError(err) {
			return err
		}
	}
	return err
}
