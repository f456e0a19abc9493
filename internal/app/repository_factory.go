package app

import (
	"database/sql"
	"fmt"

	clubDomain "github.com/felixgeelhaar/thermae/internal/club/domain"
	clubPersistence "github.com/felixgeelhaar/thermae/internal/club/infrastructure/persistence"
	identityDomain "github.com/felixgeelhaar/thermae/internal/identity/domain"
	identityPersistence "github.com/felixgeelhaar/thermae/internal/identity/infrastructure/persistence"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryFactory creates repositories based on the database driver.
type RepositoryFactory struct {
	conn   database.Connection
	driver database.Driver
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	return &RepositoryFactory{
		conn:   conn,
		driver: conn.Driver(),
	}
}

// MemberRepository creates a member repository for the configured driver.
func (f *RepositoryFactory) MemberRepository() (identityDomain.MemberRepository, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return identityPersistence.NewPostgresMemberRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return identityPersistence.NewSQLiteMemberRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// CheckInRepository creates a check-in repository for the configured driver.
func (f *RepositoryFactory) CheckInRepository() (clubDomain.CheckInRepository, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return clubPersistence.NewPostgresCheckInRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return clubPersistence.NewSQLiteCheckInRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// OrderRepository creates an order repository for the configured driver.
func (f *RepositoryFactory) OrderRepository() (clubDomain.OrderRepository, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return clubPersistence.NewPostgresOrderRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return clubPersistence.NewSQLiteOrderRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// Helper methods to get underlying database connections

func (f *RepositoryFactory) getPostgresPool() (*pgxpool.Pool, error) {
	pgConn, ok := f.conn.(interface{ Pool() *pgxpool.Pool })
	if !ok {
		return nil, fmt.Errorf("postgres connection does not expose Pool()")
	}
	return pgConn.Pool(), nil
}

func (f *RepositoryFactory) getSQLiteDB() (*sql.DB, error) {
	sqliteConn, ok := f.conn.(interface{ DB() *sql.DB })
	if !ok {
		return nil, fmt.Errorf("sqlite connection does not expose DB()")
	}
	return sqliteConn.DB(), nil
}

// Driver returns the database driver type.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.driver
}

// Connection returns the underlying database connection.
func (f *RepositoryFactory) Connection() database.Connection {
	return f.conn
}
