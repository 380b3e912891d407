package service

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"

	"go.uber.org/zap"
)

type DiscountInput struct {
	Code             string
	Percentage       int32
	MinSubtotalCents *int64
	MaxUses          *int32
	IsActive         bool
	StartsAt         *time.Time
	ExpiresAt        *time.Time
}

// DiscountService owns the admin surface of the discount ledger.
// Redemption runs inside the checkout transaction, not here.
type DiscountService struct {
	repo *repository.Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewDiscountService(repo *repository.Repository, log *zap.Logger) *DiscountService {
	return &DiscountService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

func (s *DiscountService) CreateDiscount(ctx context.Context, in DiscountInput) (*models.DiscountCode, error) {
	if in.Percentage < 1 || in.Percentage > 100 {
		return nil, ErrPercentageInvalid
	}
	code := NormalizeCode(in.Code)
	if code == "" {
		return nil, &DiscountError{Code: code, Reason: DiscountReasonNotFound}
	}

	d := &models.DiscountCode{
		Code:             code,
		Percentage:       in.Percentage,
		MinSubtotalCents: in.MinSubtotalCents,
		MaxUses:          in.MaxUses,
		IsActive:         in.IsActive,
		StartsAt:         in.StartsAt,
		ExpiresAt:        in.ExpiresAt,
	}

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if existing, err := tx.Discounts.GetByCode(ctx, code); err != nil {
			return err
		} else if existing != nil {
			return ErrCodeAlreadyExists
		}
		return tx.Discounts.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("discount code created", zap.String("code", code), zap.Int32("percentage", in.Percentage))
	return d, nil
}

// PreviewCode validates a code against a subtotal without locking or
// consuming a usage slot; checkout revalidates under the row lock.
func (s *DiscountService) PreviewCode(ctx context.Context, code string, subtotalCents int64) (*DiscountQuote, error) {
	normalized := NormalizeCode(code)
	d, err := s.repo.Discounts.GetByCode(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, &DiscountError{Code: normalized, Reason: DiscountReasonNotFound}
	}
	if reason := validateDiscount(d, subtotalCents, s.now()); reason != "" {
		return nil, &DiscountError{Code: normalized, Reason: reason}
	}
	return quoteFor(d, subtotalCents), nil
}

func (s *DiscountService) ListDiscounts(ctx context.Context, limit, offset int) ([]models.DiscountCode, int64, error) {
	return s.repo.Discounts.List(ctx, limit, offset)
}
