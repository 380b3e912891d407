package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingNotifier struct {
	paid, shipped, delivered int
	err                      error
}

func (n *countingNotifier) OrderPaid(ctx context.Context, o *models.Order) error {
	n.paid++
	return n.err
}
func (n *countingNotifier) OrderShipped(ctx context.Context, o *models.Order) error {
	n.shipped++
	return n.err
}
func (n *countingNotifier) OrderDelivered(ctx context.Context, o *models.Order) error {
	n.delivered++
	return n.err
}

type markerOrderRepo struct {
	repository.OrderRepo
	fields map[string]any
	err    error
}

func (r *markerOrderRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	r.fields = fields
	return r.err
}

func TestSendOrderEmail_AtMostOnce(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	notifier := &countingNotifier{}
	repo := &markerOrderRepo{}
	deps := notifyDeps{notifier: notifier, orders: repo, log: zap.NewNop(), now: func() time.Time { return fixed }}

	o := &models.Order{ID: uuid.New(), Status: models.OrderStatusPaid}

	sendOrderEmail(ctx, deps, o, notifyPaid)
	require.Equal(t, 1, notifier.paid)
	require.Equal(t, map[string]any{"paid_email_sent_at": fixed}, repo.fields)
	require.NotNil(t, o.PaidEmailSentAt)

	// The marker suppresses the second send.
	sendOrderEmail(ctx, deps, o, notifyPaid)
	require.Equal(t, 1, notifier.paid)
}

func TestSendOrderEmail_SendFailureLeavesMarkerClear(t *testing.T) {
	ctx := context.Background()
	notifier := &countingNotifier{err: errors.New("broker down")}
	repo := &markerOrderRepo{}
	deps := notifyDeps{notifier: notifier, orders: repo, log: zap.NewNop(), now: time.Now}

	o := &models.Order{ID: uuid.New(), Status: models.OrderStatusShipped}

	sendOrderEmail(ctx, deps, o, notifyShipped)
	require.Equal(t, 1, notifier.shipped)
	require.Nil(t, repo.fields, "failed send must not record a marker")
	require.Nil(t, o.ShippedEmailSentAt)

	// A later retry after the broker recovers goes through.
	notifier.err = nil
	sendOrderEmail(ctx, deps, o, notifyShipped)
	require.Equal(t, 2, notifier.shipped)
	require.NotNil(t, o.ShippedEmailSentAt)
}

func TestSendOrderEmail_NilNotifierIsNoop(t *testing.T) {
	deps := notifyDeps{log: zap.NewNop(), now: time.Now}
	sendOrderEmail(context.Background(), deps, &models.Order{ID: uuid.New()}, notifyDelivered)
}
