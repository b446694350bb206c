package domain

import (
	"fmt"
	"time"
)

// OrderStatus describes the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order records a purchase of a product by a customer.
type Order struct {
	ID         int64       `json:"id"`
	CustomerID int64       `json:"customer_id"`
	ProductID  int64       `json:"product_id"`
	Quantity   int         `json:"quantity"`
	Total      float64     `json:"total"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Validate checks order constraints and defaults the status to pending.
func (o *Order) Validate() error {
	if o.ProductID == 0 {
		return fmt.Errorf("order missing product_id")
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("order quantity must be greater than zero")
	}
	switch o.Status {
	case "":
		o.Status = OrderStatusPending
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled:
	default:
		return fmt.Errorf("invalid order status %q", o.Status)
	}
	return nil
}
