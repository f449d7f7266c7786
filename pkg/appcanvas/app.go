package appcanvas

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/appcanvas/appcanvas/pkg/auth"
	"github.com/appcanvas/appcanvas/pkg/config"
	"github.com/appcanvas/appcanvas/pkg/realtime"
	"github.com/appcanvas/appcanvas/pkg/store"
	"github.com/appcanvas/appcanvas/pkg/store/gormstore"
)

// App holds the application state shared by every request.
type App struct {
	store    store.Store
	config   *config.Config
	issuer   *auth.Issuer
	hub      *realtime.Hub
	events   realtime.Broadcaster
	logger   zerolog.Logger
	readOnly atomic.Bool
	now      func() time.Time
}

// Option customizes an App built by New.
type Option func(a *App)

// WithBroadcaster replaces the websocket hub as the target of change events.
// The hub still serves /ws.
func WithBroadcaster(b realtime.Broadcaster) Option {
	return func(a *App) {
		a.events = b
	}
}

// WithLogger sets the application logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(a *App) {
		a.logger = log
	}
}

// WithClock overrides time.Now for history timestamps and exports.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// New creates an application on top of s. Writes through the returned App are
// rejected while it is in read-only mode.
func New(cfg *config.Config, s store.Store, opts ...Option) *App {
	a := &App{
		config: cfg,
		issuer: auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.hub = realtime.NewHub(a.logger)
	if a.events == nil {
		a.events = a.hub
	}
	a.readOnly.Store(cfg.ReadOnly)
	a.store = store.NewReadOnlyStore(s, a.IsReadOnly)
	return a
}

// Open connects to the database named by cfg and creates the application.
func Open(cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	s, err := gormstore.Open(gormstore.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Logger: &log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Database.Driver, err)
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Connected to database")
	return New(cfg, s, append([]Option{WithLogger(log)}, opts...)...), nil
}

// Close stops the websocket hub and closes the store.
func (a *App) Close() error {
	a.hub.Close()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Store returns the store used by the handlers.
func (a *App) Store() store.Store {
	return a.store
}

// Issuer returns the token issuer bound to the configured secret.
func (a *App) Issuer() *auth.Issuer {
	return a.issuer
}

// SetReadOnly toggles maintenance mode. Reads keep working; writes fail with
// 503 until it is turned off again.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.logger.Info().Bool("read_only", readOnly).Msg("Application read-only mode changed")
}

func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}
