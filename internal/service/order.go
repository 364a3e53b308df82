package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/chowline/internal/models"
	"go.uber.org/zap"
)

// attempts to generate a non-colliding order number
const orderNumberAttempts = 3

// OrderRepository is interface for interacting with order-related data
type OrderRepository interface {
	// CreateOrder inserts order header and items in one transaction
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	// GetOrderByID returns order with its items
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// ListActiveOrders returns non-terminal orders
	ListActiveOrders(ctx context.Context) ([]models.Order, error)
	// CountActive counts orders with status CONFIRMED or PREPARING
	CountActive(ctx context.Context) (int, error)
	// UpdateOrderStatus moves order between statuses with a compare-and-set
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, actualReady *time.Time) error
	// CancelOrder cancels order with a compare-and-set on the previous status
	CancelOrder(ctx context.Context, id uuid.UUID, from models.OrderStatus, instructions string) error
	// UpdateEstimatedReady adjusts the estimate while the order is in the kitchen
	UpdateEstimatedReady(ctx context.Context, id uuid.UUID, readyAt time.Time) error
}

// CatalogReader resolves menu items. Read-only.
type CatalogReader interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
}

// Notifier fans order state changes out over the real-time channel.
// Invoked only after a successful commit, always best-effort.
type Notifier interface {
	Publish(ctx context.Context, order *models.Order) error
	PublishReady(ctx context.Context, order *models.Order) error
}

// OrderConfig holds the workflow's pricing and estimation parameters.
type OrderConfig struct {
	Pricing      PricingConfig
	Eta          EtaConfig
	MinimumOrder int64 // minimum subtotal in minor units, enforced at creation only
}

// OrderService validates, prices and persists new orders and enforces
// the status state machine on updates.
type OrderService struct {
	repo     OrderRepository
	catalog  CatalogReader
	notifier Notifier
	cfg      OrderConfig
	logger   *zap.Logger
}

// NewOrderService creates new OrderService instance
func NewOrderService(repo OrderRepository, catalog CatalogReader, notifier Notifier, cfg OrderConfig, logger *zap.Logger) *OrderService {
	return &OrderService{
		repo:     repo,
		catalog:  catalog,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// newOrderNumber generates a short human-readable order number
func newOrderNumber() string {
	u := uuid.New()
	return "CHW-" + strings.ToUpper(hex.EncodeToString(u[:5]))
}

// Create validates the request against the catalog, prices it, estimates
// the ready time and persists the order atomically.
func (os *OrderService) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if req.Type != models.OrderTypePickup && req.Type != models.OrderTypeDelivery {
		return nil, fmt.Errorf("%w: unknown order type %q", models.ErrValidation, req.Type)
	}
	if req.Type == models.OrderTypeDelivery && strings.TrimSpace(req.DeliveryAddress) == "" {
		return nil, models.ErrMissingAddress
	}
	if len(req.Items) == 0 {
		return nil, models.ErrEmptyItems
	}

	// resolve every line against the catalog, snapshotting price and
	// prep time at this moment
	items := make([]models.OrderItem, 0, len(req.Items))
	prepTimes := make([]time.Duration, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return nil, models.ErrInvalidQuantity
		}

		menuItem, err := os.catalog.GetMenuItem(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", models.ErrUnknownItem, line.MenuItemID)
			}
			return nil, err
		}
		if !menuItem.Available {
			return nil, fmt.Errorf("%w: %s", models.ErrItemUnavailable, menuItem.Name)
		}

		items = append(items, models.OrderItem{
			MenuItemID:     menuItem.ID,
			Name:           menuItem.Name,
			Quantity:       line.Quantity,
			UnitPrice:      menuItem.Price,
			LineTotal:      menuItem.Price * int64(line.Quantity),
			Customizations: line.Customizations,
		})
		prepTimes = append(prepTimes, menuItem.PrepTime)
	}

	totals, err := Price(items, req.Type, os.cfg.Pricing)
	if err != nil {
		return nil, err
	}
	if totals.Subtotal < os.cfg.MinimumOrder {
		return nil, models.ErrBelowMinimum
	}

	// best-effort queue length, see OrderRepository.CountActive
	queueLength, err := os.repo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	estimatedReady := EstimateReadyTime(prepTimes, queueLength, time.Now(), os.cfg.Eta)

	order := &models.Order{
		ID:              uuid.New(),
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		Type:            req.Type,
		DeliveryAddress: req.DeliveryAddress,
		Items:           items,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		DeliveryFee:     totals.DeliveryFee,
		Total:           totals.Total,
		Status:          models.OrderStatusPending,
		EstimatedReady:  estimatedReady,
		Instructions:    req.Instructions,
	}

	var created *models.Order
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.Number = newOrderNumber()
		created, err = os.repo.CreateOrder(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, models.ErrConflict) {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	os.notify(ctx, created)

	return created, nil
}

// Get returns order by id
func (os *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return os.repo.GetOrderByID(ctx, id)
}

// List returns all non-terminal orders for the kitchen board
func (os *OrderService) List(ctx context.Context) ([]models.Order, error) {
	return os.repo.ListActiveOrders(ctx)
}

// UpdateStatus moves order to newStatus if the transition table allows
// it. The previous status is re-checked by the store inside the same
// update, so a concurrent transition surfaces as models.ErrConflict.
func (os *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus models.OrderStatus, actualReady *time.Time) (*models.Order, error) {
	if !newStatus.IsValid() {
		return nil, models.ErrInvalidStatus
	}

	order, err := os.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, newStatus)
	}

	if newStatus == models.OrderStatusReady && actualReady == nil {
		now := time.Now()
		actualReady = &now
	}
	if newStatus != models.OrderStatusReady {
		actualReady = nil
	}

	if err := os.repo.UpdateOrderStatus(ctx, id, order.Status, newStatus, actualReady); err != nil {
		return nil, err
	}

	updated, err := os.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	os.notify(ctx, updated)
	if updated.Status == models.OrderStatusReady {
		if err := os.notifier.PublishReady(ctx, updated); err != nil {
			os.logger.Warn("publish ready notification", zap.String("order", updated.Number), zap.Error(err))
		}
	}

	return updated, nil
}

// Cancel cancels order while it has not entered the kitchen. Payments
// are not touched here, refunding is an explicit separate operation.
func (os *OrderService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.Order, error) {
	order, err := os.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusConfirmed {
		return nil, models.ErrNotCancellable
	}

	instructions := order.Instructions
	if reason != "" {
		if instructions != "" {
			instructions += "\n"
		}
		instructions += "Cancelled: " + reason
	}

	if err := os.repo.CancelOrder(ctx, id, order.Status, instructions); err != nil {
		return nil, err
	}

	updated, err := os.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	os.notify(ctx, updated)

	return updated, nil
}

// UpdateETA adjusts the estimated ready time while the order is still in
// the kitchen (CONFIRMED or PREPARING).
func (os *OrderService) UpdateETA(ctx context.Context, id uuid.UUID, readyAt time.Time) (*models.Order, error) {
	order, err := os.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusConfirmed && order.Status != models.OrderStatusPreparing {
		return nil, models.ErrEtaLocked
	}

	if err := os.repo.UpdateEstimatedReady(ctx, id, readyAt); err != nil {
		return nil, err
	}

	updated, err := os.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	os.notify(ctx, updated)

	return updated, nil
}

// notify broadcasts the order state. Failures are logged and dropped,
// never propagated into the committed operation.
func (os *OrderService) notify(ctx context.Context, order *models.Order) {
	if err := os.notifier.Publish(ctx, order); err != nil {
		os.logger.Warn("publish order notification",
			zap.String("order", order.Number),
			zap.String("status", string(order.Status)),
			zap.Error(err))
	}
}
