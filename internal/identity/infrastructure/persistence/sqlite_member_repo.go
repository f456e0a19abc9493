package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/thermae/internal/identity/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// SQLiteMemberRepository handles persistence for members using SQLite.
type SQLiteMemberRepository struct {
	dbConn *sql.DB
}

// NewSQLiteMemberRepository creates a new SQLiteMemberRepository.
func NewSQLiteMemberRepository(dbConn *sql.DB) *SQLiteMemberRepository {
	return &SQLiteMemberRepository{dbConn: dbConn}
}

// Save inserts or updates a member.
func (r *SQLiteMemberRepository) Save(ctx context.Context, member *domain.Member) error {
	query := `
		INSERT INTO members (id, phone, name, email, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			updated_at = excluded.updated_at
	`
	_, err := r.dbConn.ExecContext(ctx, query,
		member.ID().String(),
		member.Phone().String(),
		member.Name().String(),
		member.Email().String(),
		member.Role().String(),
		member.CreatedAt().UTC().Format(time.RFC3339Nano),
		member.UpdatedAt().UTC().Format(time.RFC3339Nano),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: members.phone") {
		return domain.ErrPhoneTaken
	}
	return err
}

// FindByID retrieves a member by ID.
func (r *SQLiteMemberRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	row := r.dbConn.QueryRowContext(ctx, `
		SELECT id, phone, name, email, role, created_at, updated_at
		FROM members
		WHERE id = ?
	`, id.String())
	return r.scan(row)
}

// FindByPhone retrieves a member by phone number.
func (r *SQLiteMemberRepository) FindByPhone(ctx context.Context, phone domain.Phone) (*domain.Member, error) {
	row := r.dbConn.QueryRowContext(ctx, `
		SELECT id, phone, name, email, role, created_at, updated_at
		FROM members
		WHERE phone = ?
	`, phone.String())
	return r.scan(row)
}

// List returns members ordered by creation time.
func (r *SQLiteMemberRepository) List(ctx context.Context, filter domain.MemberFilter) ([]*domain.Member, error) {
	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT id, phone, name, email, role, created_at, updated_at FROM members`)

	if len(filter.Roles) > 0 {
		placeholders := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			placeholders[i] = "?"
			args = append(args, role.String())
		}
		query.WriteString(" WHERE role IN (" + strings.Join(placeholders, ", ") + ")")
	}

	query.WriteString(" ORDER BY created_at, id LIMIT ? OFFSET ?")
	args = append(args, clampLimit(filter.Limit), max(filter.Offset, 0))

	rows, err := r.dbConn.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		m, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Count returns the number of members.
func (r *SQLiteMemberRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.dbConn.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteMemberRepository) scan(row scanner) (*domain.Member, error) {
	var id, phone, name, email, role, createdAt, updatedAt string
	if err := row.Scan(&id, &phone, &name, &email, &role, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}

	memberID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, err
	}
	return toDomain(memberID, phone, name, email, role, created, updated)
}

func toDomain(id uuid.UUID, phone, name, email, role string, createdAt, updatedAt time.Time) (*domain.Member, error) {
	p, err := domain.NewPhone(phone)
	if err != nil {
		return nil, err
	}
	n, err := domain.NewName(name)
	if err != nil {
		return nil, err
	}
	var e domain.Email
	if email != "" {
		if e, err = domain.NewEmail(email); err != nil {
			return nil, err
		}
	}
	rl, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateMember(id, p, n, e, rl, createdAt, updatedAt), nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
