package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/thermae/internal/club/domain"
)

// PostgresCheckInRepository handles persistence for check-ins using PostgreSQL.
type PostgresCheckInRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCheckInRepository creates a new PostgresCheckInRepository.
func NewPostgresCheckInRepository(pool *pgxpool.Pool) *PostgresCheckInRepository {
	return &PostgresCheckInRepository{pool: pool}
}

// Save inserts a check-in.
func (r *PostgresCheckInRepository) Save(ctx context.Context, c *domain.CheckIn) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO check_ins (id, member_id, method, staff_id, checked_in_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.MemberID, string(c.Method), staffIDString(c.StaffID), c.CheckedInAt)
	return err
}

// List returns check-ins newest first.
func (r *PostgresCheckInRepository) List(ctx context.Context, filter domain.CheckInFilter) ([]*domain.CheckIn, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)
	if filter.MemberID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("member_id = $%d", argIndex))
		args = append(args, filter.MemberID)
		argIndex++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("checked_in_at >= $%d", argIndex))
		args = append(args, filter.Since)
		argIndex++
	}

	query := `SELECT id, member_id, method, staff_id, checked_in_at FROM check_ins`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY checked_in_at DESC LIMIT $%d", argIndex)
	args = append(args, clampLimit(filter.Limit))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.CheckIn
	for rows.Next() {
		var (
			c       domain.CheckIn
			method  string
			staffID string
			at      time.Time
		)
		if err := rows.Scan(&c.ID, &c.MemberID, &method, &staffID, &at); err != nil {
			return nil, err
		}
		c.Method = domain.CheckInMethod(method)
		c.CheckedInAt = at.UTC()
		if c.StaffID, err = parseStaffID(staffID); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
