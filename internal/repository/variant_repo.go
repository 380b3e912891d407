package repository

import (
	"context"
	"errors"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VariantListFilter struct {
	Query      string
	OnlyActive bool
	Limit      int
	Offset     int
}

type VariantRepo interface {
	Create(ctx context.Context, v *models.Variant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Variant, error)
	GetBySKU(ctx context.Context, sku string) (*models.Variant, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	List(ctx context.Context, f VariantListFilter) ([]models.Variant, int64, error)
}

type variantRepo struct{ db *gorm.DB }

func NewVariantRepo(db *gorm.DB) VariantRepo { return &variantRepo{db: db} }

func (r *variantRepo) Create(ctx context.Context, v *models.Variant) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *variantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	var v models.Variant
	err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &v, err
}

func (r *variantRepo) GetBySKU(ctx context.Context, sku string) (*models.Variant, error) {
	var v models.Variant
	err := r.db.WithContext(ctx).First(&v, "sku = ?", sku).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &v, err
}

func (r *variantRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Variant{}).Where("id = ?", id).Updates(fields).Error
}

func (r *variantRepo) List(ctx context.Context, f VariantListFilter) ([]models.Variant, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Variant{})

	if f.Query != "" {
		q = q.Where("product_name ILIKE @q OR sku ILIKE @q", map[string]any{"q": "%" + f.Query + "%"})
	}
	if f.OnlyActive {
		q = q.Where("is_active = true")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []models.Variant
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}
