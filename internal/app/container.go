package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	access "github.com/felixgeelhaar/thermae/internal/access/domain"
	cartApp "github.com/felixgeelhaar/thermae/internal/cart/application"
	clubApp "github.com/felixgeelhaar/thermae/internal/club/application"
	clubDomain "github.com/felixgeelhaar/thermae/internal/club/domain"
	identityApp "github.com/felixgeelhaar/thermae/internal/identity/application"
	identityDomain "github.com/felixgeelhaar/thermae/internal/identity/domain"
	"github.com/felixgeelhaar/thermae/internal/notify"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/thermae/internal/shared/infrastructure/database/postgres"
	_ "github.com/felixgeelhaar/thermae/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/kv"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/thermae/pkg/config"
	"github.com/felixgeelhaar/thermae/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	DBConn      database.Connection
	DBDriver    database.Driver
	RedisClient *redis.Client
	KV          kv.Store
	SQLKV       *kv.SQLStore

	// Repositories
	MemberRepo  identityDomain.MemberRepository
	CheckInRepo clubDomain.CheckInRepository
	OrderRepo   clubDomain.OrderRepository

	// Messaging
	EventPublisher eventbus.Publisher
	Bus            *eventbus.InProcessBus
	SMSSender      notify.Sender

	// Identity
	Tokens       *identityApp.TokenIssuer
	Members      *identityApp.Members
	Verification *identityApp.Verification
	Identity     *identityApp.Provider

	// Club
	Routes   *access.RouteTable
	Catalog  *clubApp.Catalog
	Carts    *cartApp.Sessions
	Checkout *clubApp.Checkout
	CheckIns *clubApp.CheckIns

	Health  *observability.HealthRegistry
	Metrics *observability.InMemoryMetrics
}

// NewContainer creates and wires all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Health:  observability.NewHealthRegistry(),
		Metrics: observability.NewInMemoryMetrics(),
	}

	if err := c.openDatabase(ctx); err != nil {
		return nil, err
	}
	if err := c.createRepositories(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.connectRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.connectPublisher(); err != nil {
		c.Close()
		return nil, err
	}
	c.SMSSender = c.newSender()

	secret, err := c.sessionSecret()
	if err != nil {
		c.Close()
		return nil, err
	}
	tokens, err := identityApp.NewTokenIssuer(secret, cfg.SessionTTL)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	c.Tokens = tokens

	// Identity
	c.Members = identityApp.NewMembers(c.MemberRepo, c.EventPublisher, logger)
	c.Verification = identityApp.NewVerification(c.KV, c.SMSSender, c.Members, c.Tokens, logger)
	c.Identity = identityApp.NewProvider(c.Tokens, c.MemberRepo, cfg.IdentityLookupTimeout, logger)

	// Club
	c.Routes = access.DefaultRouteTable()
	c.Catalog = clubApp.NewCatalog(clubDomain.DefaultPlans())
	c.Carts = cartApp.NewSessions(c.KV, cfg.CartTTL, logger)
	c.Checkout = clubApp.NewCheckout(c.OrderRepo, c.EventPublisher, logger)
	c.CheckIns = clubApp.NewCheckIns(c.CheckInRepo, c.Members, c.EventPublisher, logger)

	// Handlers need Members for recipient lookup, so they are attached last.
	if c.Bus != nil {
		for _, h := range c.NotificationHandlers() {
			c.Bus.Register(h)
		}
	}

	if cfg.AdminPhone != "" {
		phone, err := identityDomain.NewPhone(cfg.AdminPhone)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("invalid admin phone: %w", err)
		}
		if _, err := c.Members.EnsureAdmin(ctx, phone); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
		}
		logger.Info("admin member ensured", "phone", phone.Masked())
	}

	c.registerHealthChecks()
	return c, nil
}

// NotificationHandlers returns the SMS handlers for domain events. The
// in-process bus and the worker both register them.
func (c *Container) NotificationHandlers() []eventbus.Handler {
	return []eventbus.Handler{
		notify.NewWelcomeHandler(c.SMSSender, c.Logger),
		notify.NewOrderReceiptHandler(c.SMSSender, c.Members, c.Logger),
	}
}

func (c *Container) openDatabase(ctx context.Context) error {
	conn, err := database.NewConnection(ctx, database.Config{
		URL:        c.Config.DatabaseURL,
		SQLitePath: c.Config.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrations.Run(ctx, conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.DBConn = conn
	c.DBDriver = conn.Driver()
	c.Logger.Info("connected to database", "driver", c.DBDriver.String())
	return nil
}

func (c *Container) createRepositories() error {
	factory := NewRepositoryFactory(c.DBConn)

	var err error
	if c.MemberRepo, err = factory.MemberRepository(); err != nil {
		return fmt.Errorf("failed to create member repository: %w", err)
	}
	if c.CheckInRepo, err = factory.CheckInRepository(); err != nil {
		return fmt.Errorf("failed to create check-in repository: %w", err)
	}
	if c.OrderRepo, err = factory.OrderRepository(); err != nil {
		return fmt.Errorf("failed to create order repository: %w", err)
	}

	c.SQLKV = kv.NewSQLStore(c.DBConn)
	c.KV = c.SQLKV
	return nil
}

// connectRedis switches session storage to Redis when configured. Outside
// development an unreachable Redis is fatal.
func (c *Container) connectRedis(ctx context.Context) error {
	if c.Config.RedisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		c.Logger.Warn("invalid Redis URL, session storage will use the database", "error", err)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, session storage will use the database", "error", err)
		return nil
	}

	c.RedisClient = client
	c.KV = kv.NewRedisStore(client)
	c.Logger.Info("connected to Redis")
	return nil
}

// connectPublisher uses RabbitMQ when configured and falls back to the
// in-process bus otherwise.
func (c *Container) connectPublisher() error {
	if c.Config.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
		if err == nil {
			c.EventPublisher = publisher
			c.Logger.Info("connected to RabbitMQ")
			return nil
		}
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		c.Logger.Warn("RabbitMQ not available, dispatching events in process", "error", err)
	}

	c.Bus = eventbus.NewInProcessBus(c.Logger)
	c.EventPublisher = c.Bus
	return nil
}

func (c *Container) newSender() notify.Sender {
	if !c.Config.SMSEnabled() {
		c.Logger.Warn("SMS provider not configured, messages will be logged")
		return notify.NewLogSender(c.Logger)
	}
	return notify.NewHTTPSender(notify.HTTPSenderConfig{
		APIURL:    c.Config.SMSAPIURL,
		AccountID: c.Config.SMSAccountID,
		AuthToken: c.Config.SMSAuthToken,
		From:      c.Config.SMSFrom,
	}, c.Logger)
}

// sessionSecret returns the configured secret. Development gets a random
// one per process, which signs everyone out on restart.
func (c *Container) sessionSecret() (string, error) {
	if c.Config.SessionSecret != "" {
		return c.Config.SessionSecret, nil
	}
	if !c.Config.IsDevelopment() {
		return "", fmt.Errorf("SESSION_SECRET is required outside development")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	c.Logger.Warn("SESSION_SECRET not set, using a random secret for this process")
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (c *Container) registerHealthChecks() {
	c.Health.Register("database", observability.PingChecker(
		"database", observability.HealthStatusUnhealthy, c.DBConn.Ping,
	))
	if c.RedisClient != nil {
		c.Health.Register("redis", observability.PingChecker(
			"redis", observability.HealthStatusDegraded,
			func(ctx context.Context) error { return c.RedisClient.Ping(ctx).Err() },
		))
	}
	if pinger, ok := c.EventPublisher.(interface{ Ping(context.Context) error }); ok {
		c.Health.Register("rabbitmq", observability.PingChecker(
			"rabbitmq", observability.HealthStatusDegraded, pinger.Ping,
		))
	}
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver.String())
		}
	}
}
