package producer

import (
	"context"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// RecipientLookup resolves the email address for a user; supplied by the
// profile boundary.
type RecipientLookup interface {
	EmailFor(ctx context.Context, userID uuid.UUID) (string, error)
}

// OrderEmailNotifier publishes order lifecycle emails to kafka. It
// implements service.Notifier.
type OrderEmailNotifier struct {
	producer   *EmailProducer
	recipients RecipientLookup
}

func NewOrderEmailNotifier(producer *EmailProducer, recipients RecipientLookup) *OrderEmailNotifier {
	return &OrderEmailNotifier{producer: producer, recipients: recipients}
}

func (n *OrderEmailNotifier) OrderPaid(ctx context.Context, o *models.Order) error {
	return n.send(ctx, o, "Payment received", "order_paid")
}

func (n *OrderEmailNotifier) OrderShipped(ctx context.Context, o *models.Order) error {
	return n.send(ctx, o, "Your order has shipped", "order_shipped")
}

func (n *OrderEmailNotifier) OrderDelivered(ctx context.Context, o *models.Order) error {
	return n.send(ctx, o, "Your order was delivered", "order_delivered")
}

func (n *OrderEmailNotifier) send(ctx context.Context, o *models.Order, subject, template string) error {
	to, err := n.recipients.EmailFor(ctx, o.UserID)
	if err != nil {
		return err
	}
	return n.producer.SendEmail(ctx, o.ID.String(), EmailMessage{
		To:       to,
		Subject:  subject,
		Template: template,
		Data: map[string]any{
			"order_id":    o.ID.String(),
			"total_cents": o.TotalCents,
			"status":      string(o.Status),
		},
	})
}
