package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrPhoneTaken     = errors.New("phone number already registered")
)

// Member is a club member account. Staff and admins are members with an
// elevated role.
type Member struct {
	id        uuid.UUID
	phone     Phone
	name      Name
	email     Email
	role      Role
	createdAt time.Time
	updatedAt time.Time
}

// NewMember registers a new member with the default role.
func NewMember(phone Phone, name Name) *Member {
	now := time.Now().UTC()
	return &Member{
		id:        uuid.New(),
		phone:     phone,
		name:      name,
		role:      RoleMember,
		createdAt: now,
		updatedAt: now,
	}
}

// RehydrateMember recreates a member from persisted state.
func RehydrateMember(id uuid.UUID, phone Phone, name Name, email Email, role Role, createdAt, updatedAt time.Time) *Member {
	return &Member{
		id:        id,
		phone:     phone,
		name:      name,
		email:     email,
		role:      role,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// Getters
func (m *Member) ID() uuid.UUID        { return m.id }
func (m *Member) Phone() Phone         { return m.phone }
func (m *Member) Name() Name           { return m.name }
func (m *Member) Email() Email         { return m.email }
func (m *Member) Role() Role           { return m.role }
func (m *Member) CreatedAt() time.Time { return m.createdAt }
func (m *Member) UpdatedAt() time.Time { return m.updatedAt }

// SetRole changes the member's role and reports whether it changed.
func (m *Member) SetRole(role Role) (bool, error) {
	if !role.IsValid() {
		return false, ErrInvalidRole
	}
	if m.role == role {
		return false, nil
	}
	m.role = role
	m.touch()
	return true, nil
}

// UpdateProfile replaces name and email.
func (m *Member) UpdateProfile(name Name, email Email) {
	if m.name.Equals(name) && m.email.Equals(email) {
		return
	}
	m.name = name
	m.email = email
	m.touch()
}

// IsStaff reports whether the member can use the admin console.
func (m *Member) IsStaff() bool {
	return m.role == RoleStaff || m.role == RoleAdmin
}

func (m *Member) touch() {
	m.updatedAt = time.Now().UTC()
}
