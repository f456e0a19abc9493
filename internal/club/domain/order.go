package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	cart "github.com/felixgeelhaar/thermae/internal/cart/domain"
)

var ErrEmptyCart = errors.New("cart is empty")

// OrderStatus is the payment state of an order.
type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
)

// Order is a checked-out cart awaiting payment.
type Order struct {
	ID              uuid.UUID   `json:"id"`
	MemberID        uuid.UUID   `json:"member_id"`
	Items           []cart.Item `json:"items"`
	TotalMinorUnits int64       `json:"total_minor_units"`
	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
}

// NewOrder snapshots items into a pending order.
func NewOrder(memberID uuid.UUID, items []cart.Item) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	snapshot := make([]cart.Item, len(items))
	copy(snapshot, items)

	var total int64
	for _, item := range snapshot {
		total += item.Subtotal()
	}
	return &Order{
		ID:              uuid.New(),
		MemberID:        memberID,
		Items:           snapshot,
		TotalMinorUnits: total,
		Status:          OrderPending,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// ItemCount sums quantities across the order.
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
