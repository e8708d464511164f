package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncals/syncals/internal/config"
	pkgerrors "github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/reconcile"
)

const sample = `
rules:
  automation_menu: auto
  rooms:
    - {tag: R1, office: HQ, resource: Room 1}
  persons:
    - {tag: alice, office: HQ}
  eject: [alice]
sources:
  - id: calendar
    type: ics
    url_secret:
      env: SYNCALS_TEST_FEED
    tags: [attendee, categories]
    timezone: Asia/Tokyo
target:
  id: bookings
  type: sqlite
  path: log/bookings.db
apply:
  skip_delete: true
cache:
  path: log/fetched.yaml
schedule: "*/15 * * * *"
fetch_timeout: 45s
`

func load(t *testing.T, doc string) (*config.Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return config.Load(v)
}

func TestLoad(t *testing.T) {
	cfg, err := load(t, sample)
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Rules.AutomationMenu)
	require.Len(t, cfg.Rules.Rooms, 1)
	assert.Equal(t, "Room 1", cfg.Rules.Rooms[0].Resource)
	assert.Equal(t, []string{"alice"}, cfg.Rules.Eject)
	assert.Equal(t, "no-room", cfg.Rules.NoRoom, "unset rules keep their defaults")
	assert.True(t, cfg.Rules.CompareDescription)

	require.Len(t, cfg.Sources, 1)
	src := cfg.Sources[0]
	assert.Equal(t, config.TypeICS, src.Type)
	assert.Equal(t, "SYNCALS_TEST_FEED", src.URLSecret.Env)
	assert.Equal(t, []string{"attendee", "categories"}, src.Tags)

	require.NotNil(t, cfg.Target)
	assert.Equal(t, config.TypeSQLite, cfg.Target.Type)
	assert.Equal(t, 45*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 14, cfg.RangeDays)
	assert.Equal(t, "*/15 * * * *", cfg.Schedule)

	strategy, err := cfg.Apply.ApplyStrategy()
	require.NoError(t, err)
	assert.Equal(t, reconcile.ApplyAdditionsOnly, strategy)

	rules, err := cfg.LoadRules()
	require.NoError(t, err)
	_, err = rules.Compile()
	require.NoError(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"missing id", "sources: [{type: ics, file: a.ics}]", "sources[0].id"},
		{"unknown type", "sources: [{id: a, type: exchange}]", "sources[0].type"},
		{"duplicate id", "sources: [{id: a, type: ics}, {id: a, type: ics}]", "sources[1].id"},
		{"sqlite source", "sources: [{id: a, type: sqlite}]", "sources[0].type"},
		{"target without path", "target: {id: t, type: snapshot}", "target.path"},
		{"target reuses source id", "sources: [{id: a, type: ics}]\ntarget: {id: a, type: snapshot, path: x.yaml}", "target.id"},
		{"bad strategy", "apply: {strategy: sideways}", "apply.strategy"},
		{"bad range", "range_days: -1", "range_days"},
		{"resume without path", "cache: {resume: true}", "cache.path"},
		{"target origin differs from rules", "target: {id: t, type: snapshot, path: x.yaml, origin: airr}", "target.origin"},
		{"target menu differs from rules", "rules: {automation_menu: auto}\ntarget: {id: t, type: snapshot, path: x.yaml, menu: manual}", "target.menu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.doc)
			require.Error(t, err)
			var verr *pkgerrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestTargetMatchRules(t *testing.T) {
	rules := reconcile.DefaultRules()
	rules.AutomationMenu = "auto"

	assert.NoError(t, config.TargetConfig{}.MatchRules(rules))
	assert.NoError(t, config.TargetConfig{Origin: rules.TargetOrigin, Menu: "auto"}.MatchRules(rules))
	assert.True(t, pkgerrors.IsValidationError(config.TargetConfig{Menu: "other"}.MatchRules(rules)))

	cfg, err := load(t, "rules: {automation_menu: auto}\ntarget: {id: t, type: snapshot, path: x.yaml, origin: target, menu: auto}")
	require.NoError(t, err, "repeating the rules is allowed")
	assert.Equal(t, "auto", cfg.Target.Menu)
}

func TestApplyStrategy(t *testing.T) {
	tests := []struct {
		cfg  config.ApplyConfig
		want reconcile.ApplyStrategy
	}{
		{config.ApplyConfig{}, reconcile.ApplyAll},
		{config.ApplyConfig{SkipAdd: true}, reconcile.ApplyDeletionsOnly},
		{config.ApplyConfig{SkipDelete: true}, reconcile.ApplyAdditionsOnly},
		{config.ApplyConfig{SkipAdd: true, SkipDelete: true}, reconcile.ApplyNone},
		{config.ApplyConfig{SkipAdd: true, Strategy: "all"}, reconcile.ApplyAll},
	}
	for _, tt := range tests {
		got, err := tt.cfg.ApplyStrategy()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestGetSecret(t *testing.T) {
	t.Setenv("SYNCALS_TEST_FEED", "https://example.com/private/basic.ics")

	got, err := config.GetSecret(config.Secret{Env: "SYNCALS_TEST_FEED", Pattern: `^https://`}, true)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/private/basic.ics", got)

	_, err = config.GetSecret(config.Secret{Env: "SYNCALS_TEST_FEED", Pattern: `^webcal://`}, true)
	assert.Error(t, err)

	_, err = config.GetSecret(config.Secret{Env: "SYNCALS_TEST_UNSET"}, true)
	assert.Error(t, err)

	got, err = config.GetSecret(config.Secret{Env: "SYNCALS_TEST_UNSET"}, false)
	require.NoError(t, err)
	assert.Empty(t, got)
}
