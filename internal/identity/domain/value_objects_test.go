package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/thermae/internal/identity/domain"
)

func TestNewEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		want    string
	}{
		{"valid email", "user@example.com", nil, "user@example.com"},
		{"uppercase", "USER@EXAMPLE.COM", nil, "user@example.com"},
		{"with spaces", "  user@example.com  ", nil, "user@example.com"},
		{"with plus", "user+tag@example.com", nil, "user+tag@example.com"},
		{"subdomain", "user@sub.example.com", nil, "user@sub.example.com"},
		{"empty", "", domain.ErrInvalidEmail, ""},
		{"no @", "userexample.com", domain.ErrInvalidEmail, ""},
		{"no domain", "user@", domain.ErrInvalidEmail, ""},
		{"no local part", "@example.com", domain.ErrInvalidEmail, ""},
		{"multiple @", "user@@example.com", domain.ErrInvalidEmail, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := domain.NewEmail(tt.input)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, email.String())
			}
		})
	}
}

func TestEmail_Domain(t *testing.T) {
	email, _ := domain.NewEmail("user@example.com")
	assert.Equal(t, "example.com", email.Domain())
}

func TestEmail_IsZero(t *testing.T) {
	var none domain.Email
	assert.True(t, none.IsZero())
	email, _ := domain.NewEmail("user@example.com")
	assert.False(t, email.IsZero())
}

func TestEmail_Equals(t *testing.T) {
	email1, _ := domain.NewEmail("user@example.com")
	email2, _ := domain.NewEmail("USER@EXAMPLE.COM")
	email3, _ := domain.NewEmail("other@example.com")

	assert.True(t, email1.Equals(email2))
	assert.False(t, email1.Equals(email3))
}

func TestNewName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		want    string
	}{
		{"valid name", "John Doe", nil, "John Doe"},
		{"with spaces", "  John Doe  ", nil, "John Doe"},
		{"single name", "John", nil, "John"},
		{"empty", "", domain.ErrEmptyName, ""},
		{"whitespace only", "   ", domain.ErrEmptyName, ""},
		{"too long", strings.Repeat("a", 256), domain.ErrNameTooLong, ""},
		{"max length", strings.Repeat("a", 255), nil, strings.Repeat("a", 255)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, err := domain.NewName(tt.input)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, name.String())
			}
		})
	}
}

func TestName_Equals(t *testing.T) {
	name1, _ := domain.NewName("John Doe")
	name2, _ := domain.NewName("John Doe")
	name3, _ := domain.NewName("Jane Doe")

	assert.True(t, name1.Equals(name2))
	assert.False(t, name1.Equals(name3))
}

func TestNewPhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		want    string
	}{
		{"e164", "+358401234567", nil, "+358401234567"},
		{"with spaces", " +358 40 123 4567 ", nil, "+358401234567"},
		{"with dashes and parens", "+1 (415) 555-0100", nil, "+14155550100"},
		{"double zero prefix", "00358401234567", nil, "+358401234567"},
		{"empty", "", domain.ErrInvalidPhone, ""},
		{"local format", "0401234567", domain.ErrInvalidPhone, ""},
		{"letters", "+35840abc", domain.ErrInvalidPhone, ""},
		{"too long", "+1234567890123456", domain.ErrInvalidPhone, ""},
		{"leading zero country", "+0401234567", domain.ErrInvalidPhone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone, err := domain.NewPhone(tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, phone.String())
		})
	}
}

func TestPhone_Masked(t *testing.T) {
	phone, err := domain.NewPhone("+358401234567")
	require.NoError(t, err)
	assert.Equal(t, "*********4567", phone.Masked())
}

func TestParseRole(t *testing.T) {
	for _, in := range []string{"member", "Staff", " ADMIN "} {
		r, err := domain.ParseRole(in)
		require.NoError(t, err, in)
		assert.True(t, r.IsValid())
	}
	_, err := domain.ParseRole("owner")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}
