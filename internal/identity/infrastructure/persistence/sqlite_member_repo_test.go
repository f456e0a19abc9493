package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/thermae/internal/identity/domain"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/migrations"

	_ "modernc.org/sqlite"
)

// setupMemberTestDB creates an in-memory SQLite database with the schema applied.
func setupMemberTestDB(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	schema, err := migrations.SQLiteSchema()
	require.NoError(t, err)
	_, err = sqlDB.Exec(schema)
	require.NoError(t, err, "Failed to apply SQLite schema")

	return sqlDB
}

func newMember(t *testing.T, phone, name string) *domain.Member {
	t.Helper()
	p, err := domain.NewPhone(phone)
	require.NoError(t, err)
	n, err := domain.NewName(name)
	require.NoError(t, err)
	return domain.NewMember(p, n)
}

func TestSQLiteMemberRepository_SaveAndFind(t *testing.T) {
	repo := NewSQLiteMemberRepository(setupMemberTestDB(t))
	ctx := context.Background()

	m := newMember(t, "+358401234567", "Aino Virtanen")
	require.NoError(t, repo.Save(ctx, m))

	found, err := repo.FindByID(ctx, m.ID())
	require.NoError(t, err)
	assert.Equal(t, m.ID(), found.ID())
	assert.Equal(t, "+358401234567", found.Phone().String())
	assert.Equal(t, "Aino Virtanen", found.Name().String())
	assert.Equal(t, domain.RoleMember, found.Role())
	assert.True(t, found.Email().IsZero())
	assert.True(t, m.CreatedAt().Equal(found.CreatedAt()))

	byPhone, err := repo.FindByPhone(ctx, m.Phone())
	require.NoError(t, err)
	assert.Equal(t, m.ID(), byPhone.ID())
}

func TestSQLiteMemberRepository_Update(t *testing.T) {
	repo := NewSQLiteMemberRepository(setupMemberTestDB(t))
	ctx := context.Background()

	m := newMember(t, "+358401234567", "Aino Virtanen")
	require.NoError(t, repo.Save(ctx, m))

	_, err := m.SetRole(domain.RoleAdmin)
	require.NoError(t, err)
	email, _ := domain.NewEmail("aino@example.com")
	m.UpdateProfile(m.Name(), email)
	require.NoError(t, repo.Save(ctx, m))

	found, err := repo.FindByID(ctx, m.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, found.Role())
	assert.Equal(t, "aino@example.com", found.Email().String())
}

func TestSQLiteMemberRepository_NotFound(t *testing.T) {
	repo := NewSQLiteMemberRepository(setupMemberTestDB(t))
	ctx := context.Background()

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	phone, _ := domain.NewPhone("+358409999999")
	_, err = repo.FindByPhone(ctx, phone)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestSQLiteMemberRepository_DuplicatePhone(t *testing.T) {
	repo := NewSQLiteMemberRepository(setupMemberTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newMember(t, "+358401234567", "First")))
	err := repo.Save(ctx, newMember(t, "+358401234567", "Second"))
	assert.ErrorIs(t, err, domain.ErrPhoneTaken)
}

func TestSQLiteMemberRepository_ListAndCount(t *testing.T) {
	repo := NewSQLiteMemberRepository(setupMemberTestDB(t))
	ctx := context.Background()

	admin := newMember(t, "+358401000001", "Admin")
	_, _ = admin.SetRole(domain.RoleAdmin)
	staff := newMember(t, "+358401000002", "Staff")
	_, _ = staff.SetRole(domain.RoleStaff)
	member := newMember(t, "+358401000003", "Member")
	for _, m := range []*domain.Member{admin, staff, member} {
		require.NoError(t, repo.Save(ctx, m))
	}

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	all, err := repo.List(ctx, domain.MemberFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	staffOnly, err := repo.List(ctx, domain.MemberFilter{Roles: []domain.Role{domain.RoleAdmin, domain.RoleStaff}})
	require.NoError(t, err)
	require.Len(t, staffOnly, 2)
	for _, m := range staffOnly {
		assert.True(t, m.IsStaff())
	}

	page, err := repo.List(ctx, domain.MemberFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, clampLimit(0))
	assert.Equal(t, 20, clampLimit(20))
	assert.Equal(t, maxListLimit, clampLimit(10_000))
}
