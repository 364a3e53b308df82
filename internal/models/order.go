package models

import (
	"time"

	"github.com/google/uuid"
)

// order type
const (
	OrderTypePickup   = OrderType("PICKUP")
	OrderTypeDelivery = OrderType("DELIVERY")
)

type OrderType string

// order status
const (
	OrderStatusPending   = OrderStatus("PENDING")
	OrderStatusConfirmed = OrderStatus("CONFIRMED")
	OrderStatusPreparing = OrderStatus("PREPARING")
	OrderStatusReady     = OrderStatus("READY")
	OrderStatusCompleted = OrderStatus("COMPLETED")
	OrderStatusCancelled = OrderStatus("CANCELLED")
)

type OrderStatus string

// orderTransitions lists allowed next statuses for each status.
// COMPLETED and CANCELLED are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusCompleted},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Same-state transitions are not allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a known order status.
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Order is order entity. All amounts are in minor currency units.
type Order struct {
	ID              uuid.UUID
	Number          string
	CustomerName    string
	CustomerPhone   string
	Type            OrderType
	DeliveryAddress string
	Items           []OrderItem
	Subtotal        int64
	Tax             int64
	DeliveryFee     int64
	Total           int64
	Status          OrderStatus
	EstimatedReady  time.Time
	ActualReady     *time.Time
	Instructions    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is one line of an order. Name and UnitPrice are snapshots
// taken at order time and do not follow later menu changes.
type OrderItem struct {
	ID             uint64
	OrderID        uuid.UUID
	MenuItemID     uuid.UUID
	Name           string
	Quantity       int32
	UnitPrice      int64
	LineTotal      int64
	Customizations []string
}

// CreateOrderItem is one requested line of a new order.
type CreateOrderItem struct {
	MenuItemID     uuid.UUID
	Quantity       int32
	Customizations []string
}

// CreateOrderRequest is input for creating an order.
type CreateOrderRequest struct {
	CustomerName    string
	CustomerPhone   string
	Type            OrderType
	DeliveryAddress string
	Instructions    string
	Items           []CreateOrderItem
}
