package domain

import (
	"context"

	"github.com/google/uuid"
)

// MemberFilter narrows List results. Empty Roles matches every role.
type MemberFilter struct {
	Roles  []Role
	Limit  int
	Offset int
}

// MemberRepository defines the interface for member persistence.
type MemberRepository interface {
	Save(ctx context.Context, member *Member) error
	FindByID(ctx context.Context, id uuid.UUID) (*Member, error)
	FindByPhone(ctx context.Context, phone Phone) (*Member, error)
	List(ctx context.Context, filter MemberFilter) ([]*Member, error)
	Count(ctx context.Context) (int, error)
}
