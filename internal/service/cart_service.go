package service

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService manages transient pre-order state. No stock is reserved
// here; two users may both see an item in stock and only one wins at
// checkout.
type CartService struct {
	repo    *repository.Repository
	catalog Catalog
	log     *zap.Logger
}

func NewCartService(repo *repository.Repository, catalog Catalog, log *zap.Logger) *CartService {
	return &CartService{repo: repo, catalog: catalog, log: log}
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.repo.Carts.EnsureForUser(ctx, userID)
}

// PutItem sets the quantity of a variant in the user's cart.
func (s *CartService) PutItem(ctx context.Context, userID, variantID uuid.UUID, quantity int32) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, ErrQuantityInvalid
	}

	vi, err := s.catalog.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if vi == nil {
		return nil, ErrVariantNotFound
	}
	if !vi.IsActive {
		return nil, ErrVariantInactive
	}

	cart, err := s.repo.Carts.EnsureForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Carts.UpsertItem(ctx, cart.ID, variantID, quantity); err != nil {
		return nil, err
	}
	return s.repo.Carts.GetByUser(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, variantID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.Carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	if _, err := s.repo.Carts.RemoveItem(ctx, cart.ID, variantID); err != nil {
		return nil, err
	}
	return s.repo.Carts.GetByUser(ctx, userID)
}
