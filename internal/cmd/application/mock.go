// Package application provides test doubles for the command application
// interface.
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/syncals/syncals"
	"github.com/syncals/syncals/internal/cmd/globals"
	"github.com/syncals/syncals/internal/config"
	"github.com/syncals/syncals/pkg/reconcile"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
//
// Example Usage:
//
//	mock := &application.Mock{
//	    RulesFunc: func() (*reconcile.Rules, error) {
//	        return testRules, nil
//	    },
//	}
//	cmd := normalize.NewCommand(mock)
type Mock struct {
	SyncerFunc       func(ctx context.Context, opts ...syncals.Option) (syncals.Syncer, error)
	SettingsFunc     func() (*config.Config, error)
	RulesFunc        func() (*reconcile.Rules, error)
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	FlagsFunc        func() *globals.Flags
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

// Syncer returns a syncer using the mock function or nil.
func (m *Mock) Syncer(ctx context.Context, opts ...syncals.Option) (syncals.Syncer, error) {
	if m.SyncerFunc != nil {
		return m.SyncerFunc(ctx, opts...)
	}
	return nil, nil
}

// Settings returns settings using the mock function or the defaults.
func (m *Mock) Settings() (*config.Config, error) {
	if m.SettingsFunc != nil {
		return m.SettingsFunc()
	}
	return config.Default(), nil
}

// Rules returns rules using the mock function or the defaults.
func (m *Mock) Rules() (*reconcile.Rules, error) {
	if m.RulesFunc != nil {
		return m.RulesFunc()
	}
	return reconcile.DefaultRules(), nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Flags returns flags using the mock function or flags carrying OutputFormat.
func (m *Mock) Flags() *globals.Flags {
	if m.FlagsFunc != nil {
		return m.FlagsFunc()
	}
	return &globals.Flags{Output: m.OutputFormat()}
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builder using the mock function or "unknown".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "unknown"
}
