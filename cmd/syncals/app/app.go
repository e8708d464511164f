// Package app provides the application context and dependency management
// for the syncals CLI. It centralizes configuration, dependency injection,
// and lifecycle management.
package app

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/syncals/syncals"
	"github.com/syncals/syncals/cmd/application"
	"github.com/syncals/syncals/internal/cmd/globals"
	"github.com/syncals/syncals/internal/config"
	"github.com/syncals/syncals/internal/sources/registry"
	"github.com/syncals/syncals/internal/sources/snapshot"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/reconcile"
)

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// App represents the syncals application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	mu       sync.RWMutex
	settings *config.Config
	syncer   syncals.Syncer
	closers  []registry.Closer
}

// New creates a new App instance with the given version information.
// The app is initialized with default configuration that can be
// customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = cfg

	logger := NewLogger(cfg)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Flags returns the global flags for output formatting.
func (a *App) Flags() *globals.Flags {
	return &globals.Flags{
		Output:  a.config.Format,
		Quiet:   a.config.Quiet,
		Verbose: a.config.Verbose,
		NoColor: a.config.NoColor,
	}
}

// Settings decodes the reconciliation settings of the config file once.
func (a *App) Settings() (*config.Config, error) {
	a.mu.RLock()
	if a.settings != nil {
		s := a.settings
		a.mu.RUnlock()
		return s, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.settings != nil {
		return a.settings, nil
	}

	s, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	a.settings = s
	return s, nil
}

// Rules returns the engine rules from the configuration.
func (a *App) Rules() (*reconcile.Rules, error) {
	s, err := a.Settings()
	if err != nil {
		return nil, err
	}
	return s.LoadRules()
}

// Syncer returns the syncer built from the configuration.
// Without options the instance is created once and cached; with options a
// new instance is returned with the options applied after the configured
// ones.
func (a *App) Syncer(ctx context.Context, opts ...syncals.Option) (syncals.Syncer, error) {
	if len(opts) == 0 {
		a.mu.RLock()
		s := a.syncer
		a.mu.RUnlock()
		if s != nil {
			return s, nil
		}
	}

	base, err := a.buildSyncerOptions(ctx)
	if err != nil {
		return nil, err
	}
	s, err := syncals.New(append(base, opts...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "syncer", "", err)
	}

	if len(opts) == 0 {
		a.mu.Lock()
		defer a.mu.Unlock()
		// Double-check after acquiring write lock
		if a.syncer != nil {
			return a.syncer, nil
		}
		a.syncer = s
	}
	return s, nil
}

// Shutdown performs graceful shutdown of the application.
// It stops scheduled syncs and closes every opened sink.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	s := a.syncer
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	if s != nil {
		if err := s.AutoSyncOff(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to stop auto sync during shutdown")
			errs = append(errs, err)
		}
	}
	for _, closeFn := range closers {
		if err := ctx.Err(); err != nil {
			return stderrors.Join(append(errs, err)...)
		}
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// buildSyncerOptions constructs syncer options from the app configuration.
func (a *App) buildSyncerOptions(ctx context.Context) ([]syncals.Option, error) {
	settings, err := a.Settings()
	if err != nil {
		return nil, err
	}
	rules, err := settings.LoadRules()
	if err != nil {
		return nil, err
	}
	strategy, err := settings.Apply.ApplyStrategy()
	if err != nil {
		return nil, err
	}

	providers, err := registry.Providers(settings.Sources)
	if err != nil {
		return nil, err
	}

	opts := []syncals.Option{
		syncals.WithRules(rules),
		syncals.WithProviders(providers...),
		syncals.WithStrategy(strategy),
		syncals.WithRangeDays(settings.RangeDays),
		syncals.WithFetchTimeout(settings.FetchTimeout),
		syncals.WithLogger(a.logger),
	}

	if settings.Schedule != "" {
		opts = append(opts, syncals.WithSchedule(settings.Schedule))
	}

	if settings.Target != nil {
		sink, closeSink, err := registry.Sink(ctx, *settings.Target, registry.Format(rules))
		if err != nil {
			return nil, errors.NewConfigError("target", "cannot create sink", err)
		}
		a.mu.Lock()
		a.closers = append(a.closers, closeSink)
		a.mu.Unlock()
		opts = append(opts, syncals.WithSink(sink))
	}

	if settings.Cache.Path != "" {
		opts = append(opts,
			syncals.WithCache(snapshot.New("cache", settings.Cache.Path)),
			syncals.WithResume(settings.Cache.Resume),
		)
	}

	return opts, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithSettings sets the reconciliation settings instead of decoding the
// config file (useful for testing).
func WithSettings(settings *config.Config) Option {
	return func(a *App) error {
		a.settings = settings
		return nil
	}
}

// WithSyncer sets a custom syncer instance (useful for testing).
func WithSyncer(s syncals.Syncer) Option {
	return func(a *App) error {
		a.syncer = s
		return nil
	}
}
