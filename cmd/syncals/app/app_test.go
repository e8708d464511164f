package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/syncals/syncals"
	"github.com/syncals/syncals/internal/config"
	"github.com/syncals/syncals/internal/sources/snapshot"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/logging"
	"github.com/syncals/syncals/pkg/reconcile"
)

var tenAM = time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

// newTestApp creates an App with settings pointing at snapshot files in a
// temporary directory. The calendar holds one meeting for room R1 and
// person P1.
func newTestApp(t *testing.T) (*App, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	calendar := filepath.Join(dir, "calendar.yaml")
	seed := snapshot.New("seed", calendar)
	err := seed.Save(context.Background(), events.Days(tenAM, 1), []events.Record{
		{Origin: "source", Start: tenAM, End: tenAM.Add(time.Hour), Subject: "R1", Description: "Review"},
		{Origin: "source", Start: tenAM, End: tenAM.Add(time.Hour), Subject: "P1", Description: "Review"},
	})
	if err != nil {
		t.Fatalf("seeding calendar: %v", err)
	}

	settings := config.Default()
	settings.Rules.AutomationMenu = "auto"
	settings.Rules.Rooms = append(settings.Rules.Rooms, reconcile.Room{Tag: "R1", Office: "HQ", Resource: "R1"})
	settings.Rules.Persons = append(settings.Rules.Persons, reconcile.Person{Tag: "P1", Office: "HQ"})
	settings.Sources = []config.SourceConfig{{ID: "calendar", Type: config.TypeSnapshot, File: calendar}}
	settings.Target = &config.TargetConfig{ID: "bookings", Type: config.TypeSnapshot, Path: filepath.Join(dir, "bookings.yaml")}
	settings.Cache.Path = filepath.Join(dir, "cache.yaml")

	app := &App{
		version: "test",
		config:  &Config{Format: "json"},
		logger:  logging.NewNopLogger(),
	}
	if err := WithSettings(settings)(app); err != nil {
		t.Fatalf("WithSettings() failed: %v", err)
	}
	return app, settings
}

// TestApp_Syncer verifies the syncer is built from settings and cached.
func TestApp_Syncer(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()

	s1, err := app.Syncer(ctx)
	if err != nil {
		t.Fatalf("Syncer() failed: %v", err)
	}
	s2, err := app.Syncer(ctx)
	if err != nil {
		t.Fatalf("Syncer() failed: %v", err)
	}
	if s1 != s2 {
		t.Error("Syncer() without options should return the cached instance")
	}

	s3, err := app.Syncer(ctx, syncals.WithRangeDays(3))
	if err != nil {
		t.Fatalf("Syncer(opts) failed: %v", err)
	}
	if s3 == s1 {
		t.Error("Syncer(opts) should return a new instance")
	}

	if err := app.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}
}

// TestApp_SyncFromSettings runs a full sync through snapshot files.
func TestApp_SyncFromSettings(t *testing.T) {
	app, settings := newTestApp(t)
	ctx := context.Background()
	defer app.Shutdown(ctx)

	s, err := app.Syncer(ctx, syncals.WithClock(func() time.Time { return tenAM }))
	if err != nil {
		t.Fatalf("Syncer() failed: %v", err)
	}
	run, err := s.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}
	if run.Report.Added != 1 {
		t.Fatalf("Added = %d, want 1", run.Report.Added)
	}

	target := snapshot.New("check", settings.Target.Path)
	got, err := target.Fetch(ctx, events.Days(tenAM, 1))
	if err != nil {
		t.Fatalf("reading target: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("target has %d bookings, want 1", len(got))
	}

	// The cache now holds the fetch and can be replayed without sources.
	cache := snapshot.New("cache", settings.Cache.Path)
	cached, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("cache Load() failed: %v", err)
	}
	if len(cached) != 2 {
		t.Errorf("cache holds %d records, want 2 source records", len(cached))
	}
}

// TestApp_SettingsValidation verifies broken settings surface from Syncer.
func TestApp_SettingsValidation(t *testing.T) {
	app, settings := newTestApp(t)
	settings.Sources[0].File = ""

	if _, err := app.Syncer(context.Background()); err == nil {
		t.Error("Syncer() should fail for a snapshot source without a file")
	}
}

// TestApp_Flags verifies global flags reflect the config.
func TestApp_Flags(t *testing.T) {
	app := &App{config: &Config{Format: "yaml", Quiet: true}}
	flags := app.Flags()
	if flags.Output != "yaml" || !flags.Quiet {
		t.Errorf("Flags() = %+v", flags)
	}
	if app.OutputFormat() != "yaml" {
		t.Errorf("OutputFormat() = %q", app.OutputFormat())
	}
}
