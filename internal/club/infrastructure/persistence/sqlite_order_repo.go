package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/thermae/internal/club/domain"
)

// SQLiteOrderRepository handles persistence for orders using SQLite.
type SQLiteOrderRepository struct {
	dbConn *sql.DB
}

// NewSQLiteOrderRepository creates a new SQLiteOrderRepository.
func NewSQLiteOrderRepository(dbConn *sql.DB) *SQLiteOrderRepository {
	return &SQLiteOrderRepository{dbConn: dbConn}
}

// Save inserts or updates an order.
func (r *SQLiteOrderRepository) Save(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = r.dbConn.ExecContext(ctx, `
		INSERT INTO orders (id, member_id, items, total_minor_units, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET status = excluded.status
	`,
		o.ID.String(),
		o.MemberID.String(),
		string(items),
		o.TotalMinorUnits,
		string(o.Status),
		o.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// ListByMember returns a member's orders, newest first.
func (r *SQLiteOrderRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*domain.Order, error) {
	rows, err := r.dbConn.QueryContext(ctx, `
		SELECT id, member_id, items, total_minor_units, status, created_at
		FROM orders
		WHERE member_id = ?
		ORDER BY created_at DESC
	`, memberID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		var (
			id, member, items, status, createdAt string
			total                                int64
		)
		if err := rows.Scan(&id, &member, &items, &total, &status, &createdAt); err != nil {
			return nil, err
		}
		o := &domain.Order{TotalMinorUnits: total, Status: domain.OrderStatus(status)}
		if o.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if o.MemberID, err = uuid.Parse(member); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
			return nil, err
		}
		if o.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
