package persistence

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/thermae/internal/club/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// SQLiteCheckInRepository handles persistence for check-ins using SQLite.
type SQLiteCheckInRepository struct {
	dbConn *sql.DB
}

// NewSQLiteCheckInRepository creates a new SQLiteCheckInRepository.
func NewSQLiteCheckInRepository(dbConn *sql.DB) *SQLiteCheckInRepository {
	return &SQLiteCheckInRepository{dbConn: dbConn}
}

// Save inserts a check-in.
func (r *SQLiteCheckInRepository) Save(ctx context.Context, c *domain.CheckIn) error {
	_, err := r.dbConn.ExecContext(ctx, `
		INSERT INTO check_ins (id, member_id, method, staff_id, checked_in_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		c.ID.String(),
		c.MemberID.String(),
		string(c.Method),
		staffIDString(c.StaffID),
		c.CheckedInAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// List returns check-ins newest first.
func (r *SQLiteCheckInRepository) List(ctx context.Context, filter domain.CheckInFilter) ([]*domain.CheckIn, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.MemberID != uuid.Nil {
		conditions = append(conditions, "member_id = ?")
		args = append(args, filter.MemberID.String())
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "checked_in_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}

	query := `SELECT id, member_id, method, staff_id, checked_in_at FROM check_ins`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY checked_in_at DESC LIMIT ?"
	args = append(args, clampLimit(filter.Limit))

	rows, err := r.dbConn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.CheckIn
	for rows.Next() {
		var id, memberID, method, staffID, at string
		if err := rows.Scan(&id, &memberID, &method, &staffID, &at); err != nil {
			return nil, err
		}
		c := &domain.CheckIn{Method: domain.CheckInMethod(method)}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if c.MemberID, err = uuid.Parse(memberID); err != nil {
			return nil, err
		}
		if c.StaffID, err = parseStaffID(staffID); err != nil {
			return nil, err
		}
		if c.CheckedInAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func staffIDString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseStaffID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
