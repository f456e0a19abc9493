package domain

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidPhone = errors.New("phone must be in international format, e.g. +358401234567")
	ErrEmptyName    = errors.New("name cannot be empty")
	ErrNameTooLong  = errors.New("name exceeds maximum length")
)

// MaxNameLength is the maximum allowed name length
const MaxNameLength = 255

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

// Phone is an E.164 phone number, the member's sign-in identifier.
type Phone struct {
	value string
}

// NewPhone normalizes separators away and validates the result.
func NewPhone(value string) (Phone, error) {
	value = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(value))
	if strings.HasPrefix(value, "00") {
		value = "+" + value[2:]
	}
	if !phoneRegex.MatchString(value) {
		return Phone{}, ErrInvalidPhone
	}
	return Phone{value: value}, nil
}

// String returns the E.164 form.
func (p Phone) String() string {
	return p.value
}

// Masked hides all but the last four digits, for logs.
func (p Phone) Masked() string {
	if len(p.value) <= 4 {
		return p.value
	}
	return strings.Repeat("*", len(p.value)-4) + p.value[len(p.value)-4:]
}

// Equals checks if two phone numbers are equal.
func (p Phone) Equals(other Phone) bool {
	return p.value == other.value
}

// Email represents a validated email address.
type Email struct {
	value string
}

// NewEmail creates a validated email address.
func NewEmail(value string) (Email, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return Email{}, ErrInvalidEmail
	}
	if !emailRegex.MatchString(value) {
		return Email{}, ErrInvalidEmail
	}
	return Email{value: value}, nil
}

// String returns the email string.
func (e Email) String() string {
	return e.value
}

// IsZero reports whether no email is set.
func (e Email) IsZero() bool {
	return e.value == ""
}

// Equals checks if two emails are equal.
func (e Email) Equals(other Email) bool {
	return e.value == other.value
}

// Domain returns the email domain.
func (e Email) Domain() string {
	parts := strings.Split(e.value, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// Name represents a validated member name.
type Name struct {
	value string
}

// NewName creates a validated name.
func NewName(value string) (Name, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Name{}, ErrEmptyName
	}
	if len(value) > MaxNameLength {
		return Name{}, ErrNameTooLong
	}
	return Name{value: value}, nil
}

// String returns the name string.
func (n Name) String() string {
	return n.value
}

// Equals checks if two names are equal.
func (n Name) Equals(other Name) bool {
	return n.value == other.value
}
