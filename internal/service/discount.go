package service

import (
	"context"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// DiscountQuote is the result of resolving a code against a subtotal.
type DiscountQuote struct {
	CodeID             uuid.UUID
	Code               string
	Percentage         int32
	AmountCents        int64
	FinalSubtotalCents int64
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// discountAmount computes the percentage discount on the pre-shipping
// subtotal, rounding half away from zero at the cent level.
func discountAmount(subtotalCents int64, percentage int32) int64 {
	amount := (subtotalCents*int64(percentage) + 50) / 100
	if amount > subtotalCents {
		amount = subtotalCents
	}
	return amount
}

func validateDiscount(d *models.DiscountCode, subtotalCents int64, now time.Time) string {
	if !d.IsActive {
		return DiscountReasonInactive
	}
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return DiscountReasonOutOfWindow
	}
	if d.ExpiresAt != nil && now.After(*d.ExpiresAt) {
		return DiscountReasonOutOfWindow
	}
	if d.MaxUses != nil && d.UsedCount >= *d.MaxUses {
		return DiscountReasonExhausted
	}
	if d.MinSubtotalCents != nil && subtotalCents < *d.MinSubtotalCents {
		return DiscountReasonBelowMinimum
	}
	return ""
}

func quoteFor(d *models.DiscountCode, subtotalCents int64) *DiscountQuote {
	amount := discountAmount(subtotalCents, d.Percentage)
	return &DiscountQuote{
		CodeID:             d.ID,
		Code:               d.Code,
		Percentage:         d.Percentage,
		AmountCents:        amount,
		FinalSubtotalCents: subtotalCents - amount,
	}
}

// resolveDiscountForUpdate row-locks the code and validates it against
// the subtotal. Must run inside the checkout transaction so the lock
// holds until the redemption commits or rolls back.
func resolveDiscountForUpdate(ctx context.Context, tx *repository.Repository, code string, subtotalCents int64, now time.Time) (*DiscountQuote, error) {
	normalized := NormalizeCode(code)

	d, err := tx.Discounts.GetByCodeForUpdate(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, &DiscountError{Code: normalized, Reason: DiscountReasonNotFound}
	}
	if reason := validateDiscount(d, subtotalCents, now); reason != "" {
		return nil, &DiscountError{Code: normalized, Reason: reason}
	}
	return quoteFor(d, subtotalCents), nil
}

// commitRedemption increments used_count and writes the audit row. Same
// transaction as resolve and the order insert, so a rollback leaves no
// phantom usage.
func commitRedemption(ctx context.Context, tx *repository.Repository, codeID, orderID, userID uuid.UUID, code string) error {
	ok, err := tx.Discounts.IncrementUsage(ctx, codeID)
	if err != nil {
		return err
	}
	if !ok {
		// Lost the cap race despite the row lock; expected only after a
		// data anomaly, treated as exhausted.
		return &DiscountError{Code: code, Reason: DiscountReasonExhausted}
	}
	return tx.Discounts.InsertRedemption(ctx, &models.DiscountRedemption{
		DiscountCodeID: codeID,
		OrderID:        orderID,
		UserID:         userID,
	})
}
