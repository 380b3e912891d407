package service

import (
	"context"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VariantInput struct {
	SKU         string
	ProductName string
	VariantName string
	PriceCents  int64
	IsActive    bool
}

type VariantPatch struct {
	ProductName *string
	VariantName *string
	PriceCents  *int64
	IsActive    *bool
}

// InventoryService owns the catalog admin surface and the stock ledger's
// administrative operations. Reservation itself lives in the checkout
// transaction.
type InventoryService struct {
	repo *repository.Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewInventoryService(repo *repository.Repository, log *zap.Logger) *InventoryService {
	return &InventoryService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

func (s *InventoryService) CreateVariant(ctx context.Context, in VariantInput) (*models.Variant, error) {
	sku := strings.TrimSpace(in.SKU)
	if sku == "" || in.PriceCents < 0 {
		return nil, ErrVariantInvalid
	}

	v := &models.Variant{
		SKU:         sku,
		ProductName: strings.TrimSpace(in.ProductName),
		VariantName: strings.TrimSpace(in.VariantName),
		PriceCents:  in.PriceCents,
		IsActive:    in.IsActive,
	}

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if existing, err := tx.Variants.GetBySKU(ctx, sku); err != nil {
			return err
		} else if existing != nil {
			return ErrSKUAlreadyExists
		}
		if err := tx.Variants.Create(ctx, v); err != nil {
			return err
		}
		// 1:1 ledger row per variant.
		return tx.Inventories.Ensure(ctx, v.ID)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *InventoryService) UpdateVariant(ctx context.Context, id uuid.UUID, patch VariantPatch) (*models.Variant, error) {
	v, err := s.repo.Variants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVariantNotFound
	}

	fields := map[string]any{}
	if patch.ProductName != nil {
		fields["product_name"] = strings.TrimSpace(*patch.ProductName)
	}
	if patch.VariantName != nil {
		fields["variant_name"] = strings.TrimSpace(*patch.VariantName)
	}
	if patch.PriceCents != nil {
		fields["price_cents"] = *patch.PriceCents
	}
	if patch.IsActive != nil {
		fields["is_active"] = *patch.IsActive
	}
	if len(fields) == 0 {
		return v, nil
	}
	fields["updated_at"] = s.now()

	if err := s.repo.Variants.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.repo.Variants.GetByID(ctx, id)
}

func (s *InventoryService) ListVariants(ctx context.Context, f repository.VariantListFilter) ([]models.Variant, int64, error) {
	return s.repo.Variants.List(ctx, f)
}

func (s *InventoryService) GetStock(ctx context.Context, variantID uuid.UUID) (*models.Inventory, error) {
	inv, err := s.repo.Inventories.Get(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInventoryNotFound
	}
	return inv, nil
}

// SetStock sets the owned quantity; refused when it would drop below the
// currently reserved amount.
func (s *InventoryService) SetStock(ctx context.Context, variantID uuid.UUID, newStock int32) (*models.Inventory, error) {
	if newStock < 0 {
		return nil, ErrStockInvalid
	}

	ok, err := s.repo.Inventories.SetStock(ctx, variantID, newStock)
	if err != nil {
		return nil, err
	}
	if !ok {
		inv, err := s.repo.Inventories.Get(ctx, variantID)
		if err != nil {
			return nil, err
		}
		if inv == nil {
			return nil, ErrInventoryNotFound
		}
		return nil, ErrReservedExceedsStock
	}

	s.log.Info("stock updated",
		zap.String("variant_id", variantID.String()), zap.Int32("stock", newStock))
	return s.repo.Inventories.Get(ctx, variantID)
}
