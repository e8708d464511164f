// Package registry builds providers and sinks from configuration.
// This package is separate from the adapters to keep them free of config
// types.
package registry

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/syncals/syncals/internal/config"
	"github.com/syncals/syncals/internal/sources/ics"
	"github.com/syncals/syncals/internal/sources/snapshot"
	"github.com/syncals/syncals/internal/sources/sqlite"
	"github.com/syncals/syncals/internal/transport"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/reconcile"
	"github.com/syncals/syncals/pkg/sources"
)

// Closer releases what a sink holds open.
type Closer func() error

func noClose() error { return nil }

// providers maps source types to their constructors
var providers = map[string]func(config.SourceConfig) (sources.Provider, error){
	config.TypeICS:      newICS,
	config.TypeSnapshot: newSnapshotSource,
}

// sinks maps target types to their constructors
var sinks = map[string]func(context.Context, config.TargetConfig, sources.BookingFormat) (sources.Sink, Closer, error){
	config.TypeSnapshot: newSnapshotSink,
	config.TypeSQLite:   newSQLiteSink,
}

// Provider creates a NEW provider for the given source.
func Provider(cfg config.SourceConfig) (sources.Provider, error) {
	newProvider, ok := providers[cfg.Type]
	if !ok {
		return nil, &errors.ValidationError{
			Field:   "type",
			Value:   cfg.Type,
			Message: fmt.Sprintf("unsupported source type: %s", cfg.Type),
		}
	}
	return newProvider(cfg)
}

// Providers creates a provider for every configured source.
func Providers(cfgs []config.SourceConfig) ([]sources.Provider, error) {
	out := make([]sources.Provider, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := Provider(cfg)
		if err != nil {
			return nil, errors.NewConfigError(cfg.ID, "cannot create provider", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Sink creates the booking sink for the target. format carries the origin,
// separators and menu from the engine rules; a target origin or menu that
// disagrees with format is rejected. The returned Closer must be called
// when done.
func Sink(ctx context.Context, cfg config.TargetConfig, format sources.BookingFormat) (sources.Sink, Closer, error) {
	newSink, ok := sinks[cfg.Type]
	if !ok {
		return nil, noClose, &errors.ValidationError{
			Field:   "type",
			Value:   cfg.Type,
			Message: fmt.Sprintf("unsupported target type: %s", cfg.Type),
		}
	}
	if cfg.Origin != "" && events.Origin(cfg.Origin) != format.Origin {
		return nil, noClose, errors.NewValidationError("target.origin", cfg.Origin,
			fmt.Sprintf("must match rules target_origin %q", format.Origin))
	}
	if cfg.Menu != "" && cfg.Menu != format.Menu {
		return nil, noClose, errors.NewValidationError("target.menu", cfg.Menu,
			fmt.Sprintf("must match rules automation_menu %q", format.Menu))
	}
	return newSink(ctx, cfg, format)
}

// Has checks if a type has a provider or sink implementation.
func Has(typ string) bool {
	_, p := providers[typ]
	_, s := sinks[typ]
	return p || s
}

// List returns every known provider and sink type.
func List() []string {
	var types []string
	for t := range providers {
		types = append(types, t)
	}
	for t := range sinks {
		if !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	slices.Sort(types)
	return types
}

func newICS(cfg config.SourceConfig) (sources.Provider, error) {
	opts := []ics.Option{}

	url := cfg.URL
	if cfg.URLSecret.Env != "" {
		secret, err := config.GetSecret(cfg.URLSecret, cfg.File == "")
		if err != nil {
			return nil, err
		}
		url = secret
	}
	switch {
	case cfg.File != "":
		opts = append(opts, ics.WithFile(cfg.File))
	case url != "":
		opts = append(opts, ics.WithURL(url))
		client, err := feedClient(cfg.Auth)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ics.WithTransport(client))
	}

	if cfg.Origin != "" {
		opts = append(opts, ics.WithOrigin(events.Origin(cfg.Origin)))
	}
	if len(cfg.Tags) > 0 {
		opts = append(opts, ics.WithTags(cfg.Tags...))
	}
	if cfg.MaxOccurrences > 0 {
		opts = append(opts, ics.WithMaxOccurrences(cfg.MaxOccurrences))
	}
	loc, err := location(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	if loc != nil {
		opts = append(opts, ics.WithLocation(loc))
	}
	return ics.New(sources.ID(cfg.ID), opts...)
}

func feedClient(cfg config.AuthConfig) (*transport.Client, error) {
	if cfg.Scheme == "" {
		return transport.New(), nil
	}
	auth, err := transport.ForScheme(cfg.Scheme, cfg.Name)
	if err != nil {
		return nil, errors.NewValidationError("auth.scheme", cfg.Scheme, err.Error())
	}
	secret, err := config.GetSecret(cfg.Secret, true)
	if err != nil {
		return nil, err
	}
	return transport.New(transport.WithAuth(auth, secret)), nil
}

func newSnapshotSource(cfg config.SourceConfig) (sources.Provider, error) {
	if cfg.File == "" {
		return nil, errors.NewValidationError("file", "", "snapshot sources need a file")
	}
	return snapshot.New(sources.ID(cfg.ID), cfg.File), nil
}

func newSnapshotSink(_ context.Context, cfg config.TargetConfig, format sources.BookingFormat) (sources.Sink, Closer, error) {
	opts := []snapshot.Option{snapshot.WithFormat(format)}
	if cfg.RefPrefix != "" {
		opts = append(opts, snapshot.WithRefPrefix(cfg.RefPrefix))
	}
	return snapshot.New(sources.ID(cfg.ID), cfg.Path, opts...), noClose, nil
}

func newSQLiteSink(ctx context.Context, cfg config.TargetConfig, format sources.BookingFormat) (sources.Sink, Closer, error) {
	loc, err := location(cfg.Timezone)
	if err != nil {
		return nil, noClose, err
	}
	db, err := sqlite.Open(ctx, cfg.Path)
	if err != nil {
		return nil, noClose, err
	}
	opts := []sqlite.Option{sqlite.WithFormat(format)}
	if loc != nil {
		opts = append(opts, sqlite.WithLocation(loc))
	}
	return sqlite.New(sources.ID(cfg.ID), db, opts...), db.Close, nil
}

func location(name string) (*time.Location, error) {
	if name == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.NewValidationError("timezone", name, err.Error())
	}
	return loc, nil
}

// Format derives the booking subject layout from engine rules.
func Format(r *reconcile.Rules) sources.BookingFormat {
	return sources.BookingFormat{
		Origin:          events.Origin(r.TargetOrigin),
		Menu:            r.AutomationMenu,
		Separator:       r.Separator,
		TargetSeparator: r.TargetSeparator,
	}
}
