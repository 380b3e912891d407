package repository

import (
	"context"
	"errors"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DiscountRepo interface {
	Create(ctx context.Context, d *models.DiscountCode) error
	GetByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	// GetByCodeForUpdate row-locks the code so concurrent redemptions
	// serialize; call inside a transaction.
	GetByCodeForUpdate(ctx context.Context, code string) (*models.DiscountCode, error)

	// IncrementUsage bumps used_count, guarded by max_uses when set.
	IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error)
	InsertRedemption(ctx context.Context, red *models.DiscountRedemption) error
	List(ctx context.Context, limit, offset int) ([]models.DiscountCode, int64, error)
}

type discountRepo struct{ db *gorm.DB }

func NewDiscountRepo(db *gorm.DB) DiscountRepo { return &discountRepo{db: db} }

func (r *discountRepo) Create(ctx context.Context, d *models.DiscountCode) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *discountRepo) GetByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var d models.DiscountCode
	err := r.db.WithContext(ctx).First(&d, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &d, err
}

func (r *discountRepo) GetByCodeForUpdate(ctx context.Context, code string) (*models.DiscountCode, error) {
	var d models.DiscountCode
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&d, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &d, err
}

func (r *discountRepo) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE discount_codes
SET used_count = used_count + 1,
    updated_at = now()
WHERE id = @id
  AND (max_uses IS NULL OR used_count < max_uses)
`, map[string]any{"id": id})
	return tx.RowsAffected > 0, tx.Error
}

func (r *discountRepo) InsertRedemption(ctx context.Context, red *models.DiscountRedemption) error {
	return r.db.WithContext(ctx).Create(red).Error
}

func (r *discountRepo) List(ctx context.Context, limit, offset int) ([]models.DiscountCode, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.DiscountCode{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var list []models.DiscountCode
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}
