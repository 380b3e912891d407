package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	checkout  *service.CheckoutService
	orders    *service.OrderService
	inventory *service.InventoryService
	discounts *service.DiscountService
	carts     *service.CartService
	webhooks  *service.WebhookService
	metrics   *metrics.AppMetrics
	log       *zap.Logger
}

func NewHandler(
	checkout *service.CheckoutService,
	orders *service.OrderService,
	inventory *service.InventoryService,
	discounts *service.DiscountService,
	carts *service.CartService,
	webhooks *service.WebhookService,
	m *metrics.AppMetrics,
	log *zap.Logger,
) *Handler {
	return &Handler{
		checkout:  checkout,
		orders:    orders,
		inventory: inventory,
		discounts: discounts,
		carts:     carts,
		webhooks:  webhooks,
		metrics:   m,
		log:       log,
	}
}

// userID comes from the authenticating gateway; this service trusts the
// header it forwards.
func userIDFrom(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID"})
		return uuid.Nil, false
	}
	return id, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service failures onto HTTP statuses with enough
// structure for the client to react. Internal errors stay generic.
func (h *Handler) respondError(c *gin.Context, err error) {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		h.metrics.IncOversellRejections(c.Request.Context())
		c.JSON(http.StatusConflict, gin.H{
			"error":     "insufficient_stock",
			"sku":       stockErr.SKU,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
		return
	}

	var discountErr *service.DiscountError
	if errors.As(err, &discountErr) {
		h.metrics.IncDiscountRejections(c.Request.Context(), discountErr.Reason)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "discount_rejected",
			"code":   discountErr.Code,
			"reason": discountErr.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrAddressRequired),
		errors.Is(err, service.ErrQuantityInvalid),
		errors.Is(err, service.ErrStockInvalid),
		errors.Is(err, service.ErrVariantInvalid),
		errors.Is(err, service.ErrPercentageInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrVariantNotFound),
		errors.Is(err, service.ErrInventoryNotFound),
		errors.Is(err, service.ErrCartNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotCancellable),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrVariantInactive),
		errors.Is(err, service.ErrSKUAlreadyExists),
		errors.Is(err, service.ErrCodeAlreadyExists),
		errors.Is(err, service.ErrReservedExceedsStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case repository.IsRetryableTxError(err):
		// Financial operations are not blindly retried server-side; the
		// caller must re-request explicitly.
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "transient conflict, please retry"})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// -------- checkout --------

type placeOrderRequest struct {
	DiscountCode *string `json:"discount_code"`
}

func (h *Handler) PlaceOrder(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.checkout.PlaceOrder(c.Request.Context(), userID, service.PlaceOrderInput{
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.metrics.IncOrdersPlaced(c.Request.Context())
	c.JSON(http.StatusCreated, order)
}

// -------- cart --------

type putCartItemRequest struct {
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	Quantity  int32     `json:"quantity" binding:"required"`
}

func (h *Handler) GetCart(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	cart, err := h.carts.GetCart(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) PutCartItem(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	var req putCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.carts.PutItem(c.Request.Context(), userID, req.VariantID, req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	variantID, ok := pathUUID(c, "variantID")
	if !ok {
		return
	}
	cart, err := h.carts.RemoveItem(c.Request.Context(), userID, variantID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// -------- orders --------

func (h *Handler) GetOrder(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "orderID")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	f := service.ListFilter{UserID: &userID}
	if s := c.Query("status"); s != "" {
		status := models.OrderStatus(s)
		f.Status = &status
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

func (h *Handler) CancelOrder(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "orderID")
	if !ok {
		return
	}
	order, err := h.orders.CancelOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// -------- admin: catalog & stock --------

type createVariantRequest struct {
	SKU         string `json:"sku" binding:"required"`
	ProductName string `json:"product_name" binding:"required"`
	VariantName string `json:"variant_name"`
	PriceCents  int64  `json:"price_cents" binding:"required"`
	IsActive    *bool  `json:"is_active"`
}

func (h *Handler) CreateVariant(c *gin.Context) {
	var req createVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	v, err := h.inventory.CreateVariant(c.Request.Context(), service.VariantInput{
		SKU:         req.SKU,
		ProductName: req.ProductName,
		VariantName: req.VariantName,
		PriceCents:  req.PriceCents,
		IsActive:    active,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) ListVariants(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, total, err := h.inventory.ListVariants(c.Request.Context(), repository.VariantListFilter{
		Query:      c.Query("q"),
		OnlyActive: c.Query("active") == "true",
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variants": list, "total": total})
}

type updateVariantRequest struct {
	ProductName *string `json:"product_name"`
	VariantName *string `json:"variant_name"`
	PriceCents  *int64  `json:"price_cents"`
	IsActive    *bool   `json:"is_active"`
}

func (h *Handler) UpdateVariant(c *gin.Context) {
	variantID, ok := pathUUID(c, "variantID")
	if !ok {
		return
	}
	var req updateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.inventory.UpdateVariant(c.Request.Context(), variantID, service.VariantPatch{
		ProductName: req.ProductName,
		VariantName: req.VariantName,
		PriceCents:  req.PriceCents,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type setStockRequest struct {
	Stock int32 `json:"stock" binding:"min=0"`
}

func (h *Handler) SetStock(c *gin.Context) {
	variantID, ok := pathUUID(c, "variantID")
	if !ok {
		return
	}
	var req setStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inv, err := h.inventory.SetStock(c.Request.Context(), variantID, req.Stock)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *Handler) GetStock(c *gin.Context) {
	variantID, ok := pathUUID(c, "variantID")
	if !ok {
		return
	}
	inv, err := h.inventory.GetStock(c.Request.Context(), variantID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// -------- admin: discounts --------

type createDiscountRequest struct {
	Code             string     `json:"code" binding:"required"`
	Percentage       int32      `json:"percentage" binding:"required"`
	MinSubtotalCents *int64     `json:"min_subtotal_cents"`
	MaxUses          *int32     `json:"max_uses"`
	IsActive         *bool      `json:"is_active"`
	StartsAt         *time.Time `json:"starts_at"`
	ExpiresAt        *time.Time `json:"expires_at"`
}

func (h *Handler) CreateDiscount(c *gin.Context) {
	var req createDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	d, err := h.discounts.CreateDiscount(c.Request.Context(), service.DiscountInput{
		Code:             req.Code,
		Percentage:       req.Percentage,
		MinSubtotalCents: req.MinSubtotalCents,
		MaxUses:          req.MaxUses,
		IsActive:         active,
		StartsAt:         req.StartsAt,
		ExpiresAt:        req.ExpiresAt,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

type previewDiscountRequest struct {
	Code          string `json:"code" binding:"required"`
	SubtotalCents int64  `json:"subtotal_cents" binding:"min=0"`
}

func (h *Handler) PreviewDiscount(c *gin.Context) {
	var req previewDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quote, err := h.discounts.PreviewCode(c.Request.Context(), req.Code, req.SubtotalCents)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) ListDiscounts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, total, err := h.discounts.ListDiscounts(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discounts": list, "total": total})
}

// -------- admin: fulfilment --------

func (h *Handler) ListAllOrders(c *gin.Context) {
	f := service.ListFilter{}
	if s := c.Query("status"); s != "" {
		status := models.OrderStatus(s)
		f.Status = &status
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

func (h *Handler) MarkShipped(c *gin.Context) {
	orderID, ok := pathUUID(c, "orderID")
	if !ok {
		return
	}
	order, err := h.orders.MarkShipped(c.Request.Context(), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) MarkDelivered(c *gin.Context) {
	orderID, ok := pathUUID(c, "orderID")
	if !ok {
		return
	}
	order, err := h.orders.MarkDelivered(c.Request.Context(), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
