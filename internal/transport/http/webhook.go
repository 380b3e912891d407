package http

import (
	"crypto/subtle"
	"net/http"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type webhookEvent struct {
	Type        string    `json:"type" binding:"required"`
	OrderID     uuid.UUID `json:"order_id" binding:"required"`
	ProviderRef string    `json:"provider_ref"`
}

// WebhookSecret rejects payment events that do not carry the shared
// secret. Constant-time compare so the header can't be probed.
func WebhookSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
		c.Next()
	}
}

// PaymentWebhook ingests provider events. The endpoint always answers
// 200 for well-formed events, applied or not, so the provider stops
// redelivering; only transport and storage failures return 5xx.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	var ev webhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		res service.EventResult
		err error
	)
	switch ev.Type {
	case "payment.completed":
		res, err = h.webhooks.HandlePaymentCompleted(c.Request.Context(), ev.OrderID, ev.ProviderRef)
	case "payment.expired":
		res, err = h.webhooks.HandlePaymentExpired(c.Request.Context(), ev.OrderID)
	default:
		h.log.Info("unknown webhook event type dropped", zap.String("type", ev.Type))
		res = service.EventResult{Reason: "unknown_event_type"}
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.metrics.IncWebhookEvent(c.Request.Context(), ev.Type, res.Applied)
	c.JSON(http.StatusOK, gin.H{"applied": res.Applied, "reason": res.Reason})
}
