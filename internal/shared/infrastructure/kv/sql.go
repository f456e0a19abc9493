package kv

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/database"
)

// SQLStore implements Store on the session_kv table. Expired rows are
// ignored on read and removed lazily.
type SQLStore struct {
	conn database.Connection
	now  func() time.Time
}

// NewSQLStore creates a store over an open, migrated connection.
func NewSQLStore(conn database.Connection) *SQLStore {
	return &SQLStore{conn: conn, now: time.Now}
}

// WithClock overrides the time source used for expiry.
func (s *SQLStore) WithClock(now func() time.Time) *SQLStore {
	s.now = now
	return s
}

func (s *SQLStore) p(n int) string {
	return s.conn.Driver().Placeholder(n)
}

// Get returns the value for key unless it is missing or expired.
func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := fmt.Sprintf(`SELECT value, expires_at FROM session_kv WHERE key = %s`, s.p(1))

	var (
		value     string
		expiresAt int64
	)
	if err := s.conn.QueryRow(ctx, query, key).Scan(&value, &expiresAt); err != nil {
		if database.IsNoRows(err) {
			return "", false, nil
		}
		return "", false, err
	}

	if expiresAt > 0 && s.now().Unix() >= expiresAt {
		_ = s.Remove(ctx, key)
		return "", false, nil
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *SQLStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := validate(key, value); err != nil {
		return err
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).Unix()
	}

	query := fmt.Sprintf(`
		INSERT INTO session_kv (key, value, expires_at)
		VALUES (%s, %s, %s)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, s.p(1), s.p(2), s.p(3))
	_, err := s.conn.Exec(ctx, query, key, value, expiresAt)
	return err
}

// Remove deletes key.
func (s *SQLStore) Remove(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM session_kv WHERE key = %s`, s.p(1))
	_, err := s.conn.Exec(ctx, query, key)
	return err
}

// Incr adds one to the integer at key in a single upsert. An expired row
// restarts at 1 with a fresh expiry.
func (s *SQLStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := validate(key, ""); err != nil {
		return 0, err
	}

	now := s.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).Unix()
	}

	query := fmt.Sprintf(`
		INSERT INTO session_kv (key, value, expires_at)
		VALUES (%s, '1', %s)
		ON CONFLICT (key) DO UPDATE SET
			value = CASE
				WHEN session_kv.expires_at > 0 AND session_kv.expires_at <= %s THEN '1'
				ELSE CAST(CAST(session_kv.value AS BIGINT) + 1 AS TEXT)
			END,
			expires_at = CASE
				WHEN session_kv.expires_at > 0 AND session_kv.expires_at <= %s THEN excluded.expires_at
				ELSE session_kv.expires_at
			END
		RETURNING value
	`, s.p(1), s.p(2), s.p(3), s.p(4))

	var value string
	if err := s.conn.QueryRow(ctx, query, key, expiresAt, now.Unix(), now.Unix()).Scan(&value); err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	return n, nil
}

// PurgeExpired deletes all expired rows and returns how many were removed.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM session_kv WHERE expires_at > 0 AND expires_at <= %s`, s.p(1))
	res, err := s.conn.Exec(ctx, query, s.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ Store = (*SQLStore)(nil)
