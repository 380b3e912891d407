package service

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentSession is the provider-side session created for a pending order.
type PaymentSession struct {
	Ref string
	URL string
}

// PaymentProvider requests a hosted payment session carrying the order id
// as an opaque reference.
type PaymentProvider interface {
	CreateSession(ctx context.Context, o *models.Order) (*PaymentSession, error)
}

type PlaceOrderInput struct {
	DiscountCode *string
}

// CheckoutService turns a cart into a durable order: stock reservation,
// discount redemption, order insert and cart clearing commit atomically
// in one transaction.
type CheckoutService struct {
	repo      *repository.Repository
	catalog   Catalog
	addresses AddressProvider
	shipping  ShippingPolicy
	payments  PaymentProvider
	log       *zap.Logger
	now       func() time.Time
}

func NewCheckoutService(
	repo *repository.Repository,
	catalog Catalog,
	addresses AddressProvider,
	shipping ShippingPolicy,
	payments PaymentProvider,
	log *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		repo:      repo,
		catalog:   catalog,
		addresses: addresses,
		shipping:  shipping,
		payments:  payments,
		log:       log,
		now:       time.Now,
	}
}

func (s *CheckoutService) PlaceOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*models.Order, error) {
	// Address and shipping cost resolve before the transaction: external
	// lookups must not run while row locks are held.
	addr, err := s.addresses.ShippingAddress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if addr == nil || addr.District == "" {
		return nil, ErrAddressRequired
	}
	shippingCost, ok := s.shipping.CostFor(addr.District)
	if !ok {
		return nil, ErrAddressRequired
	}

	var order *models.Order
	now := s.now()

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		cart, err := tx.Carts.GetByUser(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil || len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		// Price snapshot at this instant, before any lock is taken.
		var (
			subtotal int64
			items    = make([]models.OrderItem, 0, len(cart.Items))
		)
		for _, ci := range cart.Items {
			if ci.Quantity <= 0 {
				return ErrQuantityInvalid
			}
			vi, err := s.catalog.GetVariant(ctx, ci.VariantID)
			if err != nil {
				return err
			}
			if vi == nil {
				return ErrVariantNotFound
			}
			if !vi.IsActive {
				return ErrVariantInactive
			}
			line := vi.PriceCents * int64(ci.Quantity)
			subtotal += line
			items = append(items, models.OrderItem{
				VariantID:      vi.ID,
				SKU:            vi.SKU,
				ProductName:    vi.ProductName,
				VariantName:    vi.VariantName,
				UnitPriceCents: vi.PriceCents,
				Quantity:       ci.Quantity,
				LineTotalCents: line,
			})
		}

		// Reserve every item in cart insertion order. The first failure
		// aborts the whole batch: nothing stays reserved.
		for _, it := range items {
			reserved, err := tx.Inventories.Reserve(ctx, it.VariantID, it.Quantity)
			if err != nil {
				return err
			}
			if !reserved {
				available := int32(0)
				if inv, invErr := tx.Inventories.Get(ctx, it.VariantID); invErr == nil && inv != nil {
					available = inv.Stock - inv.Reserved
				}
				return &InsufficientStockError{
					VariantID: it.VariantID,
					SKU:       it.SKU,
					Requested: it.Quantity,
					Available: available,
				}
			}
		}

		// Stock first, discount second: a discount failure rolls the
		// reservations back with the transaction.
		var quote *DiscountQuote
		if in.DiscountCode != nil && *in.DiscountCode != "" {
			quote, err = resolveDiscountForUpdate(ctx, tx, *in.DiscountCode, subtotal, now)
			if err != nil {
				return err
			}
		}

		discounted := subtotal
		order = &models.Order{
			UserID:            userID,
			Status:            models.OrderStatusPendingPayment,
			PaymentStatus:     models.PaymentStatusPending,
			SubtotalCents:     subtotal,
			ShippingCostCents: shippingCost,
			ShippingDistrict:  addr.District,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if quote != nil {
			order.DiscountCode = &quote.Code
			order.DiscountPercentage = &quote.Percentage
			order.DiscountAmountCents = quote.AmountCents
			discounted = quote.FinalSubtotalCents
		}
		if discounted < 0 {
			discounted = 0
		}
		order.TotalCents = discounted + shippingCost

		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.OrderItems.BulkCreate(ctx, items); err != nil {
			return err
		}
		order.Items = items

		if quote != nil {
			if err := commitRedemption(ctx, tx, quote.CodeID, order.ID, userID, quote.Code); err != nil {
				return err
			}
		}

		if _, err := tx.Carts.ClearItems(ctx, cart.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int64("total_cents", order.TotalCents),
		zap.Int("items", len(order.Items)))

	// The reservation is durable once committed; the payment session is
	// external I/O and happens outside the transaction. A failure here
	// leaves the order pending for the expiry sweeper to reclaim.
	s.createPaymentSession(ctx, order)

	return order, nil
}

func (s *CheckoutService) createPaymentSession(ctx context.Context, order *models.Order) {
	if s.payments == nil {
		return
	}
	sess, err := s.payments.CreateSession(ctx, order)
	if err != nil {
		s.log.Error("payment session creation failed",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		return
	}
	if err := s.repo.Orders.UpdateFields(ctx, order.ID, map[string]any{
		"payment_ref": sess.Ref,
		"payment_url": sess.URL,
	}); err != nil {
		s.log.Error("failed to store payment session",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		return
	}
	order.PaymentRef = &sess.Ref
	order.PaymentURL = &sess.URL
}
