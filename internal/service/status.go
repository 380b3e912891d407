package service

import "storefront/internal/models"

// Legal order status transitions. pendingPayment resolves to paid or
// cancelled; paid moves through fulfilment; cancelled and delivered are
// terminal.
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPendingPayment: {models.OrderStatusPaid, models.OrderStatusCancelled},
	models.OrderStatusPaid:           {models.OrderStatusShipped},
	models.OrderStatusShipped:        {models.OrderStatusDelivered},
}

func canTransition(from, to models.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
