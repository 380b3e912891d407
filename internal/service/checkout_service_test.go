package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type staticAddresses struct {
	addr *service.Address
}

func (a staticAddresses) ShippingAddress(ctx context.Context, userID uuid.UUID) (*service.Address, error) {
	return a.addr, nil
}

type fakePayments struct {
	calls int
	fail  bool
}

func (p *fakePayments) CreateSession(ctx context.Context, o *models.Order) (*service.PaymentSession, error) {
	p.calls++
	if p.fail {
		return nil, errors.New("provider down")
	}
	ref := fmt.Sprintf("PAY-%d", p.calls)
	return &service.PaymentSession{Ref: ref, URL: "https://pay.example/" + ref}, nil
}

type checkoutEnv struct {
	repo     *repository.Repository
	checkout *service.CheckoutService
	orders   *service.OrderService
	webhooks *service.WebhookService
	payments *fakePayments
}

func newCheckoutEnv(t *testing.T) *checkoutEnv {
	t.Helper()
	repo := repository.New(testutil.SetupMigratedDB(t))
	log := zap.NewNop()

	catalog := service.NewDBCatalog(repo.Variants)
	addresses := staticAddresses{addr: &service.Address{District: "Downtown", City: "Springfield"}}
	shipping := service.DistrictTable{"downtown": 1000}
	payments := &fakePayments{}

	orders := service.NewOrderService(repo, nil, log)
	return &checkoutEnv{
		repo:     repo,
		checkout: service.NewCheckoutService(repo, catalog, addresses, shipping, payments, log),
		orders:   orders,
		webhooks: service.NewWebhookService(repo, orders, log),
		payments: payments,
	}
}

func (e *checkoutEnv) seedVariant(t *testing.T, sku string, price int64, stock int32) *models.Variant {
	t.Helper()
	ctx := context.Background()
	v := &models.Variant{SKU: sku, ProductName: "Widget", PriceCents: price, IsActive: true}
	if err := e.repo.Variants.Create(ctx, v); err != nil {
		t.Fatalf("create variant: %v", err)
	}
	if err := e.repo.Inventories.Ensure(ctx, v.ID); err != nil {
		t.Fatalf("ensure inventory: %v", err)
	}
	if ok, err := e.repo.Inventories.SetStock(ctx, v.ID, stock); err != nil || !ok {
		t.Fatalf("set stock: ok=%v err=%v", ok, err)
	}
	return v
}

func (e *checkoutEnv) fillCart(t *testing.T, userID uuid.UUID, items map[uuid.UUID]int32) {
	t.Helper()
	ctx := context.Background()
	cart, err := e.repo.Carts.EnsureForUser(ctx, userID)
	if err != nil {
		t.Fatalf("ensure cart: %v", err)
	}
	for variantID, qty := range items {
		if err := e.repo.Carts.UpsertItem(ctx, cart.ID, variantID, qty); err != nil {
			t.Fatalf("upsert cart item: %v", err)
		}
	}
}

func (e *checkoutEnv) reserved(t *testing.T, variantID uuid.UUID) int32 {
	t.Helper()
	inv, err := e.repo.Inventories.Get(context.Background(), variantID)
	if err != nil || inv == nil {
		t.Fatalf("get inventory: %v %v", inv, err)
	}
	return inv.Reserved
}

func TestPlaceOrder_WithDiscount_EndToEnd(t *testing.T) {
	env := newCheckoutEnv(t)
	ctx := context.Background()

	v := env.seedVariant(t, "SKU-1", 5000, 10)
	maxUses := int32(1)
	if err := env.repo.Discounts.Create(ctx, &models.DiscountCode{
		Code: "SAVE10", Percentage: 10, MaxUses: &maxUses, IsActive: true,
	}); err != nil {
		t.Fatalf("create discount: %v", err)
	}

	userID := uuid.New()
	env.fillCart(t, userID, map[uuid.UUID]int32{v.ID: 2})

	code := "save10" // normalized at redemption
	order, err := env.checkout.PlaceOrder(ctx, userID, service.PlaceOrderInput{DiscountCode: &code})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if order.SubtotalCents != 10000 {
		t.Fatalf("subtotal expected 10000 got %d", order.SubtotalCents)
	}
	if order.DiscountAmountCents != 1000 {
		t.Fatalf("discount expected 1000 got %d", order.DiscountAmountCents)
	}
	if order.ShippingCostCents != 1000 {
		t.Fatalf("shipping expected 1000 got %d", order.ShippingCostCents)
	}
	if order.TotalCents != 10000 {
		t.Fatalf("total expected 10000 got %d", order.TotalCents)
	}
	if order.Status != models.OrderStatusPendingPayment || order.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("unexpected statuses: %s / %s", order.Status, order.PaymentStatus)
	}
	if order.PaymentRef == nil || order.PaymentURL == nil {
		t.Fatalf("payment session not stored: %+v", order)
	}
	if got := env.reserved(t, v.ID); got != 2 {
		t.Fatalf("reserved expected 2 got %d", got)
	}

	// Usage consumed and audited.
	d, _ := env.repo.Discounts.GetByCode(ctx, "SAVE10")
	if d.UsedCount != 1 {
		t.Fatalf("used_count expected 1 got %d", d.UsedCount)
	}
	var redemptions int64
	if err := env.repo.DB.Model(&models.DiscountRedemption{}).Where("order_id = ?", order.ID).Count(&redemptions).Error; err != nil {
		t.Fatalf("count redemptions: %v", err)
	}
	if redemptions != 1 {
		t.Fatalf("redemptions expected 1 got %d", redemptions)
	}

	// Cart cleared on success.
	cart, _ := env.repo.Carts.GetByUser(ctx, userID)
	if len(cart.Items) != 0 {
		t.Fatalf("cart expected empty got %d items", len(cart.Items))
	}

	// Exhausted code fails the next checkout and rolls its reservation back.
	otherUser := uuid.New()
	env.fillCart(t, otherUser, map[uuid.UUID]int32{v.ID: 1})
	_, err = env.checkout.PlaceOrder(ctx, otherUser, service.PlaceOrderInput{DiscountCode: &code})
	var discountErr *service.DiscountError
	if !errors.As(err, &discountErr) || discountErr.Reason != service.DiscountReasonExhausted {
		t.Fatalf("expected exhausted discount error, got %v", err)
	}
	if got := env.reserved(t, v.ID); got != 2 {
		t.Fatalf("failed checkout leaked a reservation: reserved=%d", got)
	}
}

func TestPlaceOrder_Oversell_AllOrNothing(t *testing.T) {
	env := newCheckoutEnv(t)
	ctx := context.Background()

	a := env.seedVariant(t, "SKU-A", 1000, 5)
	b := env.seedVariant(t, "SKU-B", 2000, 1)

	userID := uuid.New()
	env.fillCart(t, userID, map[uuid.UUID]int32{a.ID: 2, b.ID: 5})

	_, err := env.checkout.PlaceOrder(ctx, userID, service.PlaceOrderInput{})
	var stockErr *service.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.SKU != "SKU-B" || stockErr.Requested != 5 || stockErr.Available != 1 {
		t.Fatalf("stock error mismatch: %+v", stockErr)
	}

	// Nothing stays reserved and the cart survives for a retry.
	if got := env.reserved(t, a.ID); got != 0 {
		t.Fatalf("variant A reservation leaked: %d", got)
	}
	if got := env.reserved(t, b.ID); got != 0 {
		t.Fatalf("variant B reservation leaked: %d", got)
	}
	cart, _ := env.repo.Carts.GetByUser(ctx, userID)
	if len(cart.Items) != 2 {
		t.Fatalf("cart expected intact got %d items", len(cart.Items))
	}
	if env.payments.calls != 0 {
		t.Fatalf("no payment session should be created on failure")
	}
}

func TestPlaceOrder_InputValidation(t *testing.T) {
	env := newCheckoutEnv(t)
	ctx := context.Background()

	// Empty cart.
	userID := uuid.New()
	if _, err := env.checkout.PlaceOrder(ctx, userID, service.PlaceOrderInput{}); !errors.Is(err, service.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart got %v", err)
	}

	// No address on file.
	env.checkout = service.NewCheckoutService(env.repo, service.NewDBCatalog(env.repo.Variants),
		staticAddresses{}, service.DistrictTable{"downtown": 1000}, env.payments, zap.NewNop())
	if _, err := env.checkout.PlaceOrder(ctx, userID, service.PlaceOrderInput{}); !errors.Is(err, service.ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired got %v", err)
	}

	// District missing from the shipping table.
	env.checkout = service.NewCheckoutService(env.repo, service.NewDBCatalog(env.repo.Variants),
		staticAddresses{addr: &service.Address{District: "atlantis"}},
		service.DistrictTable{"downtown": 1000}, env.payments, zap.NewNop())
	if _, err := env.checkout.PlaceOrder(ctx, userID, service.PlaceOrderInput{}); !errors.Is(err, service.ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired for unknown district got %v", err)
	}
}

func TestPlaceOrder_PaymentSessionFailureKeepsOrder(t *testing.T) {
	env := newCheckoutEnv(t)
	ctx := context.Background()
	env.payments.fail = true

	v := env.seedVariant(t, "SKU-1", 5000, 10)
	userID := uuid.New()
	env.fillCart(t, userID, map[uuid.UUID]int32{v.ID: 1})

	order, err := env.checkout.PlaceOrder(ctx, userID, service.PlaceOrderInput{})
	if err != nil {
		t.Fatalf("PlaceOrder should survive a payment provider outage: %v", err)
	}
	if order.Status != models.OrderStatusPendingPayment {
		t.Fatalf("order expected pending got %s", order.Status)
	}
	if order.PaymentRef != nil {
		t.Fatalf("payment ref should be empty after provider failure")
	}
	if got := env.reserved(t, v.ID); got != 1 {
		t.Fatalf("reservation must survive provider failure: %d", got)
	}
}

func TestCancelOrder_ReleasesExactQuantities(t *testing.T) {
	env := newCheckoutEnv(t)
	ctx := context.Background()

	a := env.seedVariant(t, "SKU-A", 1000, 10)
	b := env.seedVariant(t, "SKU-B", 2000, 10)

	userID := uuid.New()
	env.fillCart(t, userID, map[uuid.UUID]int32{a.ID: 3, b.ID: 2})

	order, err := env.checkout.PlaceOrder(ctx, userID, service.PlaceOrderInput{})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if env.reserved(t, a.ID) != 3 || env.reserved(t, b.ID) != 2 {
		t.Fatalf("reservations mismatch after checkout")
	}

	got, err := env.orders.CancelOrder(ctx, userID, order.ID)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if got.Status != models.OrderStatusCancelled || got.PaymentStatus != models.PaymentStatusRejected {
		t.Fatalf("unexpected statuses after cancel: %s / %s", got.Status, got.PaymentStatus)
	}
	if env.reserved(t, a.ID) != 0 || env.reserved(t, b.ID) != 0 {
		t.Fatalf("cancel did not release reservations")
	}

	// Cancelled is terminal for the shopper path.
	if _, err := env.orders.CancelOrder(ctx, userID, order.ID); !errors.Is(err, service.ErrNotCancellable) {
		t.Fatalf("expected ErrNotCancellable got %v", err)
	}

	// Another user cannot touch the order.
	if _, err := env.orders.CancelOrder(ctx, uuid.New(), order.ID); !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for foreign user got %v", err)
	}
}

func TestWebhook_PaymentCompleted_Idempotent(t *testing.T) {
	env := newCheckoutEnv(t)
	ctx := context.Background()

	v := env.seedVariant(t, "SKU-1", 5000, 10)
	userID := uuid.New()
	env.fillCart(t, userID, map[uuid.UUID]int32{v.ID: 1})
	order, err := env.checkout.PlaceOrder(ctx, userID, service.PlaceOrderInput{})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	res, err := env.webhooks.HandlePaymentCompleted(ctx, order.ID, "TXN-1")
	if err != nil || !res.Applied {
		t.Fatalf("first event: res=%+v err=%v", res, err)
	}

	// Duplicate delivery lands in the same state.
	res, err = env.webhooks.HandlePaymentCompleted(ctx, order.ID, "TXN-1")
	if err != nil || res.Applied {
		t.Fatalf("duplicate event should be ignored: res=%+v err=%v", res, err)
	}

	got, _ := env.repo.Orders.GetByID(ctx, order.ID)
	if got.Status != models.OrderStatusPaid || got.PaymentStatus != models.PaymentStatusApproved {
		t.Fatalf("unexpected statuses: %s / %s", got.Status, got.PaymentStatus)
	}
	if got.PaymentRef == nil || *got.PaymentRef != "TXN-1" {
		t.Fatalf("provider ref not stored: %+v", got.PaymentRef)
	}

	// Unknown order is dropped, not retried.
	res, err = env.webhooks.HandlePaymentCompleted(ctx, uuid.New(), "TXN-X")
	if err != nil || res.Applied {
		t.Fatalf("unknown order should be ignored: res=%+v err=%v", res, err)
	}
}

func TestWebhook_CompletedAfterCancel_DoesNotResurrect(t *testing.T) {
	env := newCheckoutEnv(t)
	ctx := context.Background()

	v := env.seedVariant(t, "SKU-1", 5000, 10)
	userID := uuid.New()
	env.fillCart(t, userID, map[uuid.UUID]int32{v.ID: 1})
	order, err := env.checkout.PlaceOrder(ctx, userID, service.PlaceOrderInput{})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if _, err := env.orders.CancelOrder(ctx, userID, order.ID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}

	res, err := env.webhooks.HandlePaymentCompleted(ctx, order.ID, "TXN-LATE")
	if err != nil || res.Applied {
		t.Fatalf("late capture should be ignored: res=%+v err=%v", res, err)
	}
	got, _ := env.repo.Orders.GetByID(ctx, order.ID)
	if got.Status != models.OrderStatusCancelled {
		t.Fatalf("cancelled order resurrected to %s", got.Status)
	}
	if env.reserved(t, v.ID) != 0 {
		t.Fatalf("late capture re-reserved stock")
	}
}

func TestCancelExpired_OnlyPendingOrders(t *testing.T) {
	env := newCheckoutEnv(t)
	ctx := context.Background()

	v := env.seedVariant(t, "SKU-1", 5000, 10)
	userID := uuid.New()
	env.fillCart(t, userID, map[uuid.UUID]int32{v.ID: 2})
	order, err := env.checkout.PlaceOrder(ctx, userID, service.PlaceOrderInput{})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	cancelled, err := env.orders.CancelExpired(ctx, order.ID)
	if err != nil || !cancelled {
		t.Fatalf("CancelExpired: cancelled=%v err=%v", cancelled, err)
	}
	if env.reserved(t, v.ID) != 0 {
		t.Fatalf("expiry did not release stock")
	}

	// Second pass is a no-op, not an error.
	cancelled, err = env.orders.CancelExpired(ctx, order.ID)
	if err != nil || cancelled {
		t.Fatalf("second CancelExpired: cancelled=%v err=%v", cancelled, err)
	}

	// A paid order is out of reach for expiry.
	env.fillCart(t, userID, map[uuid.UUID]int32{v.ID: 1})
	paidOrder, err := env.checkout.PlaceOrder(ctx, userID, service.PlaceOrderInput{})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if _, err := env.webhooks.HandlePaymentCompleted(ctx, paidOrder.ID, "TXN-2"); err != nil {
		t.Fatalf("HandlePaymentCompleted: %v", err)
	}
	cancelled, err = env.orders.CancelExpired(ctx, paidOrder.ID)
	if err != nil || cancelled {
		t.Fatalf("paid order must not expire: cancelled=%v err=%v", cancelled, err)
	}
	if env.reserved(t, v.ID) != 1 {
		t.Fatalf("paid order reservation was released")
	}
}

func TestFulfilmentTransitions(t *testing.T) {
	env := newCheckoutEnv(t)
	ctx := context.Background()

	v := env.seedVariant(t, "SKU-1", 5000, 10)
	userID := uuid.New()
	env.fillCart(t, userID, map[uuid.UUID]int32{v.ID: 1})
	order, err := env.checkout.PlaceOrder(ctx, userID, service.PlaceOrderInput{})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	// Shipping an unpaid order is rejected.
	if _, err := env.orders.MarkShipped(ctx, order.ID); !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition got %v", err)
	}

	if _, err := env.webhooks.HandlePaymentCompleted(ctx, order.ID, "TXN-1"); err != nil {
		t.Fatalf("HandlePaymentCompleted: %v", err)
	}

	got, err := env.orders.MarkShipped(ctx, order.ID)
	if err != nil || got.Status != models.OrderStatusShipped {
		t.Fatalf("MarkShipped: %v %v", got, err)
	}

	// Skipping shipped -> delivered is fine, delivered -> shipped is not.
	got, err = env.orders.MarkDelivered(ctx, order.ID)
	if err != nil || got.Status != models.OrderStatusDelivered {
		t.Fatalf("MarkDelivered: %v %v", got, err)
	}
	if _, err := env.orders.MarkShipped(ctx, order.ID); !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after delivery got %v", err)
	}
}
