// Package application implements member sign-in, sessions, and the admin
// operations on member accounts.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/thermae/internal/identity/domain"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/eventbus"
)

// Members manages member accounts.
type Members struct {
	repo      domain.MemberRepository
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewMembers creates the members service.
func NewMembers(repo domain.MemberRepository, publisher eventbus.Publisher, logger *slog.Logger) *Members {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = eventbus.NewNoopPublisher(logger)
	}
	return &Members{repo: repo, publisher: publisher, logger: logger}
}

// Get returns a member by id.
func (s *Members) Get(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns members matching filter.
func (s *Members) List(ctx context.Context, filter domain.MemberFilter) ([]*domain.Member, error) {
	return s.repo.List(ctx, filter)
}

// PhoneFor returns the member's phone number.
func (s *Members) PhoneFor(ctx context.Context, id uuid.UUID) (string, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return m.Phone().String(), nil
}

// FindOrRegister returns the member with phone, registering one with the
// given name if none exists. The bool reports whether it was created.
func (s *Members) FindOrRegister(ctx context.Context, phone domain.Phone, name string) (*domain.Member, bool, error) {
	existing, err := s.repo.FindByPhone(ctx, phone)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrMemberNotFound) {
		return nil, false, err
	}

	if name == "" {
		digits := phone.String()
		name = "Member " + digits[len(digits)-4:]
	}
	n, err := domain.NewName(name)
	if err != nil {
		return nil, false, err
	}

	member := domain.NewMember(phone, n)
	if err := s.repo.Save(ctx, member); err != nil {
		if errors.Is(err, domain.ErrPhoneTaken) {
			// Lost a registration race; the other writer's row wins.
			existing, findErr := s.repo.FindByPhone(ctx, phone)
			return existing, false, findErr
		}
		return nil, false, fmt.Errorf("register member: %w", err)
	}

	s.logger.InfoContext(ctx, "member registered", "member_id", member.ID(), "phone", phone.Masked())
	s.emit(ctx, eventbus.RoutingMemberRegistered, member, map[string]any{
		"member_id": member.ID(),
		"phone":     phone.String(),
		"name":      member.Name().String(),
	})
	return member, true, nil
}

// SetRole changes a member's role.
func (s *Members) SetRole(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.Member, error) {
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := member.Role()
	changed, err := member.SetRole(role)
	if err != nil {
		return nil, err
	}
	if !changed {
		return member, nil
	}
	if err := s.repo.Save(ctx, member); err != nil {
		return nil, fmt.Errorf("save member role: %w", err)
	}

	s.logger.InfoContext(ctx, "member role changed",
		"member_id", id,
		"from", previous,
		"to", role,
	)
	s.emit(ctx, eventbus.RoutingMemberRoleChanged, member, map[string]any{
		"member_id": id,
		"from":      previous,
		"to":        role,
	})
	return member, nil
}

// EnsureAdmin registers phone if needed and grants it the admin role. It
// bootstraps the first console user.
func (s *Members) EnsureAdmin(ctx context.Context, phone domain.Phone) (*domain.Member, error) {
	member, _, err := s.FindOrRegister(ctx, phone, "Administrator")
	if err != nil {
		return nil, err
	}
	if member.Role() == domain.RoleAdmin {
		return member, nil
	}
	return s.SetRole(ctx, member.ID(), domain.RoleAdmin)
}

func (s *Members) emit(ctx context.Context, routingKey string, member *domain.Member, payload any) {
	event, err := eventbus.NewEvent(routingKey, "Member", member.ID(), payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to build event", "routing_key", routingKey, "error", err)
		return
	}
	if err := eventbus.Emit(ctx, s.publisher, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event", "routing_key", routingKey, "error", err)
	}
}
