package service

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventResult reports how a payment event was handled. Ignored events
// are expected under at-least-once delivery and are not errors.
type EventResult struct {
	Applied bool
	Reason  string
}

const (
	eventReasonOrderNotFound    = "order_not_found"
	eventReasonStatusNotPending = "status_not_pending"
	eventReasonStatusCancelled  = "status_cancelled"
	eventReasonAlreadyPaid      = "already_paid"
)

// WebhookService applies external payment-provider events to orders
// idempotently: processing an event twice ends in the same state as once.
type WebhookService struct {
	repo   *repository.Repository
	orders *OrderService
	log    *zap.Logger
	now    func() time.Time
}

func NewWebhookService(repo *repository.Repository, orders *OrderService, log *zap.Logger) *WebhookService {
	return &WebhookService{
		repo:   repo,
		orders: orders,
		now:    time.Now,
		log:    log,
	}
}

// HandlePaymentCompleted marks the referenced order paid/approved and
// stores the provider's transaction reference. Replayed events are
// harmless: re-applying the same field values changes nothing, and an
// unknown order is logged and dropped rather than retried.
func (s *WebhookService) HandlePaymentCompleted(ctx context.Context, orderID uuid.UUID, providerRef string) (EventResult, error) {
	var res EventResult

	err := s.repo.WithTxRetry(ctx, txAttempts, func(tx *repository.Repository) error {
		ord, err := tx.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if ord == nil {
			s.log.Warn("payment completed event ignored",
				zap.String("order_id", orderID.String()),
				zap.String("reason", eventReasonOrderNotFound))
			res = EventResult{Reason: eventReasonOrderNotFound}
			return nil
		}

		switch ord.Status {
		case models.OrderStatusCancelled:
			// Cancelled is terminal; the capture is surfaced for manual
			// follow-up, never auto-applied.
			s.log.Warn("payment completed for cancelled order",
				zap.String("order_id", orderID.String()),
				zap.String("provider_ref", providerRef))
			res = EventResult{Reason: eventReasonStatusCancelled}
			return nil
		case models.OrderStatusPendingPayment:
			res = EventResult{Applied: true}
		default:
			// Already paid (or further along): duplicate delivery.
			res = EventResult{Reason: eventReasonAlreadyPaid}
		}

		fields := map[string]any{
			"payment_status": models.PaymentStatusApproved,
		}
		if ord.Status == models.OrderStatusPendingPayment {
			fields["status"] = models.OrderStatusPaid
		}
		if providerRef != "" {
			fields["payment_ref"] = providerRef
		}
		return tx.Orders.UpdateFields(ctx, orderID, fields)
	})
	if err != nil {
		return EventResult{}, err
	}

	if res.Applied {
		s.log.Info("payment completed", zap.String("order_id", orderID.String()))
		if ord, err := s.repo.Orders.GetByID(ctx, orderID); err == nil && ord != nil {
			sendOrderEmail(ctx, s.orders.deps(), ord, notifyPaid)
		}
	}
	return res, nil
}

// HandlePaymentExpired cancels the referenced order if it is still
// pendingPayment; anything else is an ignored out-of-order event.
func (s *WebhookService) HandlePaymentExpired(ctx context.Context, orderID uuid.UUID) (EventResult, error) {
	cancelled, err := s.orders.CancelExpired(ctx, orderID)
	if err != nil {
		if err == ErrOrderNotFound {
			s.log.Warn("payment expired event ignored",
				zap.String("order_id", orderID.String()),
				zap.String("reason", eventReasonOrderNotFound))
			return EventResult{Reason: eventReasonOrderNotFound}, nil
		}
		return EventResult{}, err
	}
	if !cancelled {
		return EventResult{Reason: eventReasonStatusNotPending}, nil
	}
	s.log.Info("payment session expired, order cancelled", zap.String("order_id", orderID.String()))
	return EventResult{Applied: true}, nil
}
