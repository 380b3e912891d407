package http

import (
	"net/http"
	"time"

	"storefront/internal/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter assembles the HTTP surface: shopper routes keyed off the
// X-User-ID header, an admin group, and the payment webhook.
func NewRouter(h *Handler, m *metrics.AppMetrics, webhookSecret string, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(RequestMetrics(m))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/checkout", h.PlaceOrder)

		api.GET("/cart", h.GetCart)
		api.PUT("/cart/items", h.PutCartItem)
		api.DELETE("/cart/items/:variantID", h.RemoveCartItem)

		api.GET("/orders", h.ListOrders)
		api.GET("/orders/:orderID", h.GetOrder)
		api.POST("/orders/:orderID/cancel", h.CancelOrder)

		api.POST("/discounts/preview", h.PreviewDiscount)
	}

	admin := r.Group("/api/v1/admin")
	{
		admin.POST("/variants", h.CreateVariant)
		admin.GET("/variants", h.ListVariants)
		admin.PATCH("/variants/:variantID", h.UpdateVariant)
		admin.GET("/variants/:variantID/stock", h.GetStock)
		admin.PUT("/variants/:variantID/stock", h.SetStock)

		admin.POST("/discounts", h.CreateDiscount)
		admin.GET("/discounts", h.ListDiscounts)

		admin.GET("/orders", h.ListAllOrders)
		admin.POST("/orders/:orderID/ship", h.MarkShipped)
		admin.POST("/orders/:orderID/deliver", h.MarkDelivered)
	}

	r.POST("/webhooks/payment", WebhookSecret(webhookSecret), h.PaymentWebhook)

	return r
}
