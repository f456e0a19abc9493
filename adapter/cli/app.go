package cli

import (
	"github.com/felixgeelhaar/thermae/adapter/api"
	container "github.com/felixgeelhaar/thermae/internal/app"
	clubApp "github.com/felixgeelhaar/thermae/internal/club/application"
	identityApp "github.com/felixgeelhaar/thermae/internal/identity/application"
	"github.com/felixgeelhaar/thermae/internal/notify"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/kv"
	"github.com/felixgeelhaar/thermae/pkg/config"
	"github.com/felixgeelhaar/thermae/pkg/observability"
)

// App holds the CLI application dependencies.
type App struct {
	Config *config.Config

	// Console operations
	Members  *identityApp.Members
	CheckIns *clubApp.CheckIns
	Sender   notify.Sender
	Health   *observability.HealthRegistry

	// Server wiring for serve
	Server api.Dependencies

	// Worker wiring
	Handlers []eventbus.Handler
	SQLKV    *kv.SQLStore
}

// NewApp creates a CLI application from a wired container.
func NewApp(c *container.Container) *App {
	return &App{
		Config:   c.Config,
		Members:  c.Members,
		CheckIns: c.CheckIns,
		Sender:   c.SMSSender,
		Health:   c.Health,
		Server: api.Dependencies{
			Catalog:      c.Catalog,
			Carts:        c.Carts,
			Checkout:     c.Checkout,
			CheckIns:     c.CheckIns,
			Members:      c.Members,
			Verification: c.Verification,
			Identity:     c.Identity,
			Routes:       c.Routes,
			Health:       c.Health,
			Metrics:      c.Metrics,
		},
		Handlers: c.NotificationHandlers(),
		SQLKV:    c.SQLKV,
	}
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
