package repository

import (
	"context"
	"errors"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepo interface {
	// GetByUser returns the user's cart with items in insertion order,
	// or nil when the user has no cart yet.
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	EnsureForUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)

	UpsertItem(ctx context.Context, cartID, variantID uuid.UUID, quantity int32) error
	RemoveItem(ctx context.Context, cartID, variantID uuid.UUID) (int64, error)
	ClearItems(ctx context.Context, cartID uuid.UUID) (int64, error)
}

type cartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) CartRepo { return &cartRepo{db: db} }

func (r *cartRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC")
		}).
		First(&cart, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &cart, err
}

func (r *cartRepo) EnsureForUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := &models.Cart{UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(cart).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUser(ctx, userID)
}

func (r *cartRepo) UpsertItem(ctx context.Context, cartID, variantID uuid.UUID, quantity int32) error {
	item := &models.CartItem{CartID: cartID, VariantID: variantID, Quantity: quantity}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "variant_id"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": quantity, "updated_at": gorm.Expr("now()")}),
		}).
		Create(item).Error
}

func (r *cartRepo) RemoveItem(ctx context.Context, cartID, variantID uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("cart_id = ? AND variant_id = ?", cartID, variantID).
		Delete(&models.CartItem{})
	return tx.RowsAffected, tx.Error
}

func (r *cartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{})
	return tx.RowsAffected, tx.Error
}
