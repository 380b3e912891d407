package service

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const txAttempts = 3

type ListFilter struct {
	UserID *uuid.UUID
	Status *models.OrderStatus
	Limit  int
	Offset int
}

type OrderService struct {
	repo     *repository.Repository
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewOrderService(repo *repository.Repository, notifier Notifier, log *zap.Logger) *OrderService {
	return &OrderService{
		repo:     repo,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func (s *OrderService) deps() notifyDeps {
	return notifyDeps{notifier: s.notifier, orders: s.repo.Orders, log: s.log, now: s.now}
}

func (s *OrderService) GetOrder(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {
	ord, err := s.repo.Orders.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *OrderService) ListOrders(ctx context.Context, f ListFilter) ([]*models.Order, int64, error) {
	return s.repo.Orders.List(ctx, repository.OrderListFilter{
		UserID: f.UserID,
		Status: f.Status,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
}

// CancelOrder cancels the user's own pendingPayment order, releasing
// every reserved unit in the same transaction. Any other state fails
// with ErrNotCancellable; captured money is never auto-refunded here.
func (s *OrderService) CancelOrder(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		ord, err := tx.Orders.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if ord == nil || ord.UserID != userID {
			return ErrOrderNotFound
		}
		if ord.Status != models.OrderStatusPendingPayment {
			return ErrNotCancellable
		}
		return cancelLocked(ctx, tx, ord)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order cancelled", zap.String("order_id", id.String()), zap.String("user_id", userID.String()))
	return s.repo.Orders.GetByID(ctx, id)
}

// CancelExpired is the trusted internal cancellation path used by the
// expiry sweeper and the payment-expired webhook. An order that already
// left pendingPayment is a no-op, not an error.
func (s *OrderService) CancelExpired(ctx context.Context, id uuid.UUID) (cancelled bool, err error) {
	err = s.repo.WithTxRetry(ctx, txAttempts, func(tx *repository.Repository) error {
		ord, err := tx.Orders.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		if ord.Status != models.OrderStatusPendingPayment {
			s.log.Info("cancellation ignored",
				zap.String("order_id", id.String()),
				zap.String("reason", "status_not_pending"),
				zap.String("status", string(ord.Status)))
			cancelled = false
			return nil
		}
		cancelled = true
		return cancelLocked(ctx, tx, ord)
	})
	return cancelled, err
}

// cancelLocked releases the order's reservations and flips it to
// cancelled/rejected. Caller holds the order row lock.
func cancelLocked(ctx context.Context, tx *repository.Repository, ord *models.Order) error {
	items, err := tx.OrderItems.GetByOrderID(ctx, ord.ID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := tx.Inventories.Release(ctx, it.VariantID, it.Quantity); err != nil {
			return err
		}
	}
	return tx.Orders.UpdateFields(ctx, ord.ID, map[string]any{
		"status":         models.OrderStatusCancelled,
		"payment_status": models.PaymentStatusRejected,
	})
}

// MarkShipped moves a paid order to shipped. Gated on approved payment.
func (s *OrderService) MarkShipped(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	ord, err := s.transition(ctx, id, models.OrderStatusShipped)
	if err != nil {
		return nil, err
	}
	sendOrderEmail(ctx, s.deps(), ord, notifyShipped)
	return ord, nil
}

// MarkDelivered moves a shipped order to delivered.
func (s *OrderService) MarkDelivered(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	ord, err := s.transition(ctx, id, models.OrderStatusDelivered)
	if err != nil {
		return nil, err
	}
	sendOrderEmail(ctx, s.deps(), ord, notifyDelivered)
	return ord, nil
}

func (s *OrderService) transition(ctx context.Context, id uuid.UUID, to models.OrderStatus) (*models.Order, error) {
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		ord, err := tx.Orders.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		if !canTransition(ord.Status, to) {
			return ErrInvalidTransition
		}
		if ord.PaymentStatus != models.PaymentStatusApproved {
			return ErrInvalidTransition
		}
		return tx.Orders.UpdateFields(ctx, id, map[string]any{"status": to})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order status updated", zap.String("order_id", id.String()), zap.String("status", string(to)))
	return s.repo.Orders.GetByID(ctx, id)
}
