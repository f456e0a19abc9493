package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/felixgeelhaar/thermae/internal/identity/domain"
)

const pgUniqueViolation = "23505"

// PostgresMemberRepository handles persistence for members using PostgreSQL.
type PostgresMemberRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresMemberRepository creates a new PostgresMemberRepository.
func NewPostgresMemberRepository(pool *pgxpool.Pool) *PostgresMemberRepository {
	return &PostgresMemberRepository{pool: pool}
}

// Save inserts or updates a member.
func (r *PostgresMemberRepository) Save(ctx context.Context, member *domain.Member) error {
	query := `
		INSERT INTO members (id, phone, name, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		member.ID(),
		member.Phone().String(),
		member.Name().String(),
		member.Email().String(),
		member.Role().String(),
		member.CreatedAt(),
		member.UpdatedAt(),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "members_phone_key" {
		return domain.ErrPhoneTaken
	}
	return err
}

// FindByID retrieves a member by ID.
func (r *PostgresMemberRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, phone, name, email, role, created_at, updated_at
		FROM members
		WHERE id = $1
	`, id)
	return r.scan(row)
}

// FindByPhone retrieves a member by phone number.
func (r *PostgresMemberRepository) FindByPhone(ctx context.Context, phone domain.Phone) (*domain.Member, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, phone, name, email, role, created_at, updated_at
		FROM members
		WHERE phone = $1
	`, phone.String())
	return r.scan(row)
}

// List returns members ordered by creation time.
func (r *PostgresMemberRepository) List(ctx context.Context, filter domain.MemberFilter) ([]*domain.Member, error) {
	var (
		query    strings.Builder
		args     []any
		argIndex = 1
	)
	query.WriteString(`SELECT id, phone, name, email, role, created_at, updated_at FROM members WHERE TRUE`)

	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = role.String()
		}
		query.WriteString(fmt.Sprintf(" AND role = ANY($%d)", argIndex))
		args = append(args, pq.Array(roles))
		argIndex++
	}

	query.WriteString(fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d OFFSET $%d", argIndex, argIndex+1))
	args = append(args, clampLimit(filter.Limit), max(filter.Offset, 0))

	rows, err := r.pool.Query(ctx, query.String(), args...)
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
func (r *PostgresMemberRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM members`).Scan(&n)
	return n, err
}

func (r *PostgresMemberRepository) scan(row pgx.Row) (*domain.Member, error) {
	var (
		id                       uuid.UUID
		phone, name, email, role string
		createdAt, updatedAt     time.Time
	)
	if err := row.Scan(&id, &phone, &name, &email, &role, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return toDomain(id, phone, name, email, role, createdAt, updatedAt)
}
