package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"tabletrack.dev/app/internal/modules/orders"
)

func orderJSON(o orders.Order, items []orders.OrderItem) gin.H {
	out := make([]gin.H, len(items))
	for i, it := range items {
		out[i] = gin.H{
			"item_id":       it.MenuItemID,
			"name":          it.Name,
			"quantity":      it.Quantity,
			"price_at_time": it.PriceAtTime,
			"subtotal":      it.Subtotal,
		}
	}
	return gin.H{
		"id":               o.ID,
		"customer_id":      o.CustomerID,
		"total_amount":     o.TotalAmount,
		"currency":         o.Currency,
		"status":           o.Status,
		"delivery_address": o.DeliveryAddress,
		"contact_number":   o.ContactNumber,
		"items":            out,
		"created_at":       o.CreatedAt.Format(time.RFC3339),
		"updated_at":       o.UpdatedAt.Format(time.RFC3339),
	}
}

func orderSummaryJSON(o orders.Order) gin.H {
	return gin.H{
		"id":           o.ID,
		"total_amount": o.TotalAmount,
		"currency":     o.Currency,
		"status":       o.Status,
		"created_at":   o.CreatedAt.Format(time.RFC3339),
	}
}
