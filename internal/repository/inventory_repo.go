package repository

import (
	"context"
	"errors"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepo interface {
	Get(ctx context.Context, variantID uuid.UUID) (*models.Inventory, error)
	Ensure(ctx context.Context, variantID uuid.UUID) error

	// Reserve: if stock - reserved >= qty then reserved += qty.
	Reserve(ctx context.Context, variantID uuid.UUID, qty int32) (bool, error)
	// Release: reserved -= qty, clamped at zero.
	Release(ctx context.Context, variantID uuid.UUID, qty int32) error
	// SetStock: stock = newStock, refused when newStock < reserved.
	SetStock(ctx context.Context, variantID uuid.UUID, newStock int32) (bool, error)
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepo(db *gorm.DB) InventoryRepo { return &inventoryRepo{db: db} }

func (r *inventoryRepo) Get(ctx context.Context, variantID uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	err := r.db.WithContext(ctx).First(&inv, "variant_id = ?", variantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &inv, err
}

func (r *inventoryRepo) Ensure(ctx context.Context, variantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Inventory{VariantID: variantID}).Error
}

func (r *inventoryRepo) Reserve(ctx context.Context, variantID uuid.UUID, qty int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE inventories
SET reserved  = reserved + @q,
    updated_at = now()
WHERE variant_id = @vid
  AND stock - reserved >= @q
`, map[string]any{
		"vid": variantID,
		"q":   qty,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *inventoryRepo) Release(ctx context.Context, variantID uuid.UUID, qty int32) error {
	// Clamped at zero: double release after a data anomaly must not
	// drive reserved negative.
	return r.db.WithContext(ctx).Exec(`
UPDATE inventories
SET reserved  = GREATEST(reserved - @q, 0),
    updated_at = now()
WHERE variant_id = @vid
`, map[string]any{
		"vid": variantID,
		"q":   qty,
	}).Error
}

func (r *inventoryRepo) SetStock(ctx context.Context, variantID uuid.UUID, newStock int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE inventories
SET stock = @s,
    updated_at = now()
WHERE variant_id = @vid
  AND reserved <= @s
`, map[string]any{
		"vid": variantID,
		"s":   newStock,
	})
	return tx.RowsAffected > 0, tx.Error
}
