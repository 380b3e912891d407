package service

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"

	"go.uber.org/zap"
)

// Notifier is the outbound notification boundary. Delivery is
// best-effort: failures are logged and never roll back a transition.
type Notifier interface {
	OrderPaid(ctx context.Context, o *models.Order) error
	OrderShipped(ctx context.Context, o *models.Order) error
	OrderDelivered(ctx context.Context, o *models.Order) error
}

type notifyDeps struct {
	notifier Notifier
	orders   repository.OrderRepo
	log      *zap.Logger
	now      func() time.Time
}

type notifyKind string

const (
	notifyPaid      notifyKind = "paid"
	notifyShipped   notifyKind = "shipped"
	notifyDelivered notifyKind = "delivered"
)

// sendOrderEmail sends one notification at most once per order and kind,
// guarded by the order's sent-at marker. Call after the transition has
// committed.
func sendOrderEmail(ctx context.Context, deps notifyDeps, o *models.Order, kind notifyKind) {
	if deps.notifier == nil || o == nil {
		return
	}

	var (
		marker *time.Time
		column string
		send   func(context.Context, *models.Order) error
	)
	switch kind {
	case notifyPaid:
		marker, column, send = o.PaidEmailSentAt, "paid_email_sent_at", deps.notifier.OrderPaid
	case notifyShipped:
		marker, column, send = o.ShippedEmailSentAt, "shipped_email_sent_at", deps.notifier.OrderShipped
	case notifyDelivered:
		marker, column, send = o.DeliveredEmailSentAt, "delivered_email_sent_at", deps.notifier.OrderDelivered
	default:
		return
	}

	if marker != nil {
		deps.log.Debug("notification already sent",
			zap.String("order_id", o.ID.String()), zap.String("kind", string(kind)))
		return
	}

	if err := send(ctx, o); err != nil {
		deps.log.Error("notification send failed",
			zap.String("order_id", o.ID.String()), zap.String("kind", string(kind)), zap.Error(err))
		return
	}

	now := deps.now()
	if err := deps.orders.UpdateFields(ctx, o.ID, map[string]any{column: now}); err != nil {
		deps.log.Error("failed to record notification marker",
			zap.String("order_id", o.ID.String()), zap.String("kind", string(kind)), zap.Error(err))
		return
	}

	switch kind {
	case notifyPaid:
		o.PaidEmailSentAt = &now
	case notifyShipped:
		o.ShippedEmailSentAt = &now
	case notifyDelivered:
		o.DeliveredEmailSentAt = &now
	}
}
