package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/thermae/internal/club/domain"
)

// PostgresOrderRepository handles persistence for orders using PostgreSQL.
type PostgresOrderRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository.
func NewPostgresOrderRepository(pool *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{pool: pool}
}

// Save inserts or updates an order.
func (r *PostgresOrderRepository) Save(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (id, member_id, items, total_minor_units, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
	`, o.ID, o.MemberID, items, o.TotalMinorUnits, string(o.Status), o.CreatedAt)
	return err
}

// ListByMember returns a member's orders, newest first.
func (r *PostgresOrderRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, member_id, items, total_minor_units, status, created_at
		FROM orders
		WHERE member_id = $1
		ORDER BY created_at DESC
	`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		var (
			o         domain.Order
			items     []byte
			status    string
			createdAt time.Time
		)
		if err := rows.Scan(&o.ID, &o.MemberID, &items, &o.TotalMinorUnits, &status, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		o.CreatedAt = createdAt.UTC()
		out = append(out, &o)
	}
	return out, rows.Err()
}
