// Package application provides the application interface for syncals commands.
//
// The Application interface defines the contract between the application layer and
// command implementations, enabling dependency injection and testability.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            s, err := app.Syncer(cmd.Context())
//	            if err != nil {
//	                return err
//	            }
//	            result, err := s.Plan(cmd.Context())
//	            // ... print result
//	        },
//	    }
//	}
//
// Testing with Mocks:
//
//	mock := &application.Mock{
//	    SyncerFunc: func(ctx context.Context, opts ...syncals.Option) (syncals.Syncer, error) {
//	        return testSyncer, nil
//	    },
//	}
//	cmd := plan.NewCommand(mock)
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/syncals/syncals"
	"github.com/syncals/syncals/internal/cmd/globals"
	"github.com/syncals/syncals/internal/config"
	"github.com/syncals/syncals/pkg/reconcile"
)

// Application provides the application interface that commands need.
// The App struct from cmd/syncals/app implements this interface.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Syncer returns the syncer built from the configuration file.
	// When called without options, returns the default cached instance.
	// When called with options, creates a new instance with the options
	// applied after the configured ones (no caching).
	Syncer(ctx context.Context, opts ...syncals.Option) (syncals.Syncer, error)

	// Settings returns the decoded configuration file.
	Settings() (*config.Config, error)

	// Rules returns the engine rules from the configuration.
	Rules() (*reconcile.Rules, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Flags returns the global flags for output formatting.
	Flags() *globals.Flags

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
