package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	cart "github.com/felixgeelhaar/thermae/internal/cart/domain"
	"github.com/felixgeelhaar/thermae/internal/club/domain"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/eventbus"
)

// Cart is the part of a session cart checkout needs. Take must empty the
// cart atomically; Restore hands items back when the order is not saved.
type Cart interface {
	Take(ctx context.Context) []cart.Item
	Restore(ctx context.Context, items []cart.Item)
}

// Checkout turns carts into orders.
type Checkout struct {
	orders    domain.OrderRepository
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewCheckout creates the checkout service.
func NewCheckout(orders domain.OrderRepository, publisher eventbus.Publisher, logger *slog.Logger) *Checkout {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = eventbus.NewNoopPublisher(logger)
	}
	return &Checkout{orders: orders, publisher: publisher, logger: logger}
}

// PlaceOrder takes the cart's items into a pending order for memberID and
// publishes order.placed. Concurrent checkouts of one cart place a single
// order; the others see an empty cart. The items go back to the cart when
// the order cannot be saved.
func (s *Checkout) PlaceOrder(ctx context.Context, c Cart, memberID uuid.UUID) (*domain.Order, error) {
	items := c.Take(ctx)
	order, err := domain.NewOrder(memberID, items)
	if err != nil {
		c.Restore(ctx, items)
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		c.Restore(ctx, items)
		return nil, fmt.Errorf("save order: %w", err)
	}

	event, err := eventbus.NewEvent(eventbus.RoutingOrderPlaced, "Order", order.ID, map[string]any{
		"order_id":          order.ID,
		"member_id":         memberID,
		"total_minor_units": order.TotalMinorUnits,
		"item_count":        order.ItemCount(),
		"items":             order.Items,
	})
	if err == nil {
		err = eventbus.Emit(ctx, s.publisher, event)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order event", "order_id", order.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"member_id", memberID,
		"total_minor_units", order.TotalMinorUnits,
	)
	return order, nil
}

// Orders lists a member's orders, newest first.
func (s *Checkout) Orders(ctx context.Context, memberID uuid.UUID) ([]*domain.Order, error) {
	return s.orders.ListByMember(ctx, memberID)
}
