package domain

import (
	"context"

	"github.com/google/uuid"
)

// CheckInRepository defines the interface for check-in persistence.
type CheckInRepository interface {
	Save(ctx context.Context, checkIn *CheckIn) error
	List(ctx context.Context, filter CheckInFilter) ([]*CheckIn, error)
}

// OrderRepository defines the interface for order persistence.
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]*Order, error)
}
