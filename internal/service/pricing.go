package service

import (
	"context"

	"storefront/internal/repository"

	"github.com/google/uuid"
)

// VariantInfo is the catalog's view of a sellable unit at this instant.
type VariantInfo struct {
	ID          uuid.UUID
	SKU         string
	ProductName string
	VariantName string
	PriceCents  int64
	IsActive    bool
}

// Catalog supplies current variant price, names and existence; nil means
// the variant does not exist.
type Catalog interface {
	GetVariant(ctx context.Context, variantID uuid.UUID) (*VariantInfo, error)
}

// dbCatalog serves the catalog from the variants table.
type dbCatalog struct {
	variants repository.VariantRepo
}

func NewDBCatalog(variants repository.VariantRepo) Catalog {
	return &dbCatalog{variants: variants}
}

func (c *dbCatalog) GetVariant(ctx context.Context, variantID uuid.UUID) (*VariantInfo, error) {
	v, err := c.variants.GetByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return &VariantInfo{
		ID:          v.ID,
		SKU:         v.SKU,
		ProductName: v.ProductName,
		VariantName: v.VariantName,
		PriceCents:  v.PriceCents,
		IsActive:    v.IsActive,
	}, nil
}
