package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rookgm/chowline/internal/models"
)

type OrderService interface {
	// Create validates, prices and persists a new order
	Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	// Get returns order by id
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// List returns non-terminal orders
	List(ctx context.Context) ([]models.Order, error)
	// UpdateStatus moves order through the status state machine
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus models.OrderStatus, actualReady *time.Time) (*models.Order, error)
	// Cancel cancels order while it has not entered the kitchen
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.Order, error)
	// UpdateETA adjusts the estimated ready time
	UpdateETA(ctx context.Context, id uuid.UUID, readyAt time.Time) (*models.Order, error)
}

// OrderHandler represents HTTP handler for order-related requests
type OrderHandler struct {
	svc OrderService
}

// NewOrderHandler creates new OrderHandler instance
func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type orderItemRequest struct {
	MenuItemID     string   `json:"menu_item_id"`
	Quantity       int32    `json:"quantity"`
	Customizations []string `json:"customizations,omitempty"`
}

type createOrderRequest struct {
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone"`
	Type            string             `json:"type"`
	DeliveryAddress string             `json:"delivery_address,omitempty"`
	Instructions    string             `json:"instructions,omitempty"`
	Items           []orderItemRequest `json:"items"`
}

type orderItemResponse struct {
	MenuItemID     string   `json:"menu_item_id"`
	Name           string   `json:"name"`
	Quantity       int32    `json:"quantity"`
	UnitPrice      int64    `json:"unit_price"`
	LineTotal      int64    `json:"line_total"`
	Customizations []string `json:"customizations,omitempty"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	Number          string              `json:"number"`
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	Type            string              `json:"type"`
	DeliveryAddress string              `json:"delivery_address,omitempty"`
	Items           []orderItemResponse `json:"items"`
	Subtotal        int64               `json:"subtotal"`
	Tax             int64               `json:"tax"`
	DeliveryFee     int64               `json:"delivery_fee"`
	Total           int64               `json:"total"`
	Status          string              `json:"status"`
	EstimatedReady  string              `json:"estimated_ready_time"`
	ActualReady     string              `json:"actual_ready_time,omitempty"`
	Instructions    string              `json:"instructions,omitempty"`
	CreatedAt       string              `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			MenuItemID:     item.MenuItemID.String(),
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			LineTotal:      item.LineTotal,
			Customizations: item.Customizations,
		})
	}

	resp := orderResponse{
		ID:              order.ID.String(),
		Number:          order.Number,
		CustomerName:    order.CustomerName,
		CustomerPhone:   order.CustomerPhone,
		Type:            string(order.Type),
		DeliveryAddress: order.DeliveryAddress,
		Items:           items,
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		DeliveryFee:     order.DeliveryFee,
		Total:           order.Total,
		Status:          string(order.Status),
		EstimatedReady:  order.EstimatedReady.Format(time.RFC3339),
		Instructions:    order.Instructions,
		CreatedAt:       order.CreatedAt.Format(time.RFC3339),
	}
	if order.ActualReady != nil {
		resp.ActualReady = order.ActualReady.Format(time.RFC3339)
	}

	return resp
}

// CreateOrder creates new order
// 201 — order created
// 400 — malformed request or unknown item
// 422 — item unavailable or order below minimum
// 500 — internal error
func (oh *OrderHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		items := make([]models.CreateOrderItem, 0, len(req.Items))
		for _, item := range req.Items {
			menuItemID, err := uuid.Parse(item.MenuItemID)
			if err != nil {
				http.Error(w, "invalid menu item id", http.StatusBadRequest)
				return
			}
			items = append(items, models.CreateOrderItem{
				MenuItemID:     menuItemID,
				Quantity:       item.Quantity,
				Customizations: item.Customizations,
			})
		}

		order, err := oh.svc.Create(r.Context(), &models.CreateOrderRequest{
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			Type:            models.OrderType(req.Type),
			DeliveryAddress: req.DeliveryAddress,
			Instructions:    req.Instructions,
			Items:           items,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, newOrderResponse(order))
	}
}

// GetOrder returns one order
// 200 — order found
// 404 — order does not exist
func (oh *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, err := oh.svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

// ListOrders returns the kitchen board: all non-terminal orders
func (oh *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := oh.svc.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		resp := make([]orderResponse, 0, len(orders))
		for i := range orders {
			resp = append(resp, newOrderResponse(&orders[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

type updateStatusRequest struct {
	Status          string `json:"status"`
	ActualReadyTime string `json:"actual_ready_time,omitempty"`
}

// UpdateOrderStatus moves order through the state machine
// 200 — status updated
// 404 — order does not exist
// 409 — lost a race with a concurrent transition
// 422 — transition not allowed
func (oh *OrderHandler) UpdateOrderStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		var req updateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		var actualReady *time.Time
		if req.ActualReadyTime != "" {
			t, err := time.Parse(time.RFC3339, req.ActualReadyTime)
			if err != nil {
				http.Error(w, "invalid actual ready time", http.StatusBadRequest)
				return
			}
			actualReady = &t
		}

		order, err := oh.svc.UpdateStatus(r.Context(), id, models.OrderStatus(req.Status), actualReady)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelOrder cancels order while still possible
func (oh *OrderHandler) CancelOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		var req cancelOrderRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			defer r.Body.Close()
		}

		order, err := oh.svc.Cancel(r.Context(), id, req.Reason)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

type updateEtaRequest struct {
	EstimatedReadyTime string `json:"estimated_ready_time"`
}

// UpdateOrderEta adjusts the estimated ready time
func (oh *OrderHandler) UpdateOrderEta() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		var req updateEtaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		readyAt, err := time.Parse(time.RFC3339, req.EstimatedReadyTime)
		if err != nil {
			http.Error(w, "invalid estimated ready time", http.StatusBadRequest)
			return
		}

		order, err := oh.svc.UpdateETA(r.Context(), id, readyAt)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}
