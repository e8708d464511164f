package logging_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncals/syncals/pkg/logging"
)

func TestDefaultLogger(t *testing.T) {
	original := *logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	buf := &bytes.Buffer{}
	logging.SetDefault(zerolog.New(buf).Level(zerolog.InfoLevel))

	logging.Debug().Msg("debug message")
	logging.Info().Msg("info message")
	logging.Warn().Msg("warning message")

	output := buf.String()
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "warning message")
	assert.NotContains(t, output, "debug message")
}

func TestContextLogger(t *testing.T) {
	testLogger := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), testLogger.Logger)
	ctx = logging.WithRun(ctx, "run-42")
	ctx = logging.WithSource(ctx, "team-ics")
	ctx = logging.WithOffice(ctx, "HQ")

	logging.FromContext(ctx).Info().Msg("fetched records")

	out := testLogger.Output()
	assert.Contains(t, out, `"run_id":"run-42"`)
	assert.Contains(t, out, `"source":"team-ics"`)
	assert.Contains(t, out, `"office":"HQ"`)
	assert.Equal(t, "run-42", logging.RunID(ctx))
	assert.Equal(t, 1, testLogger.Count())
}

func TestContextFields(t *testing.T) {
	testLogger := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), testLogger.Logger)

	ctx = logging.WithFields(ctx, map[string]any{"adds": 3, "dry_run": true})
	ctx = logging.WithError(ctx, errors.New("boom"))
	ctx = logging.WithError(ctx, nil)
	logging.Ctx(ctx).Warn().Msg("partial apply")

	out := testLogger.Output()
	assert.Contains(t, out, `"adds":3`)
	assert.Contains(t, out, `"dry_run":true`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestFromContextDefaults(t *testing.T) {
	//nolint:staticcheck // nil context is handled explicitly
	assert.Equal(t, logging.Default(), logging.FromContext(nil))
	assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
	assert.Empty(t, logging.RunID(context.Background()))
}

func TestCaptureLoggingForTest(t *testing.T) {
	captured := logging.CaptureLoggingForTest(t)
	logging.Info().Str("sink", "snapshot").Msg("applied")
	require.True(t, captured.Contains("applied"))
	assert.True(t, strings.Contains(captured.Lines()[0], `"sink":"snapshot"`))
	assert.True(t, captured.Logged(zerolog.InfoLevel, "applied"))
	assert.False(t, captured.Logged(zerolog.WarnLevel, "applied"))
}

func TestEntries(t *testing.T) {
	tl := logging.NewTestLogger(t)
	tl.Debug().Int("adds", 2).Msg("planned")
	entries := tl.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "debug", entries[0]["level"])
	assert.InDelta(t, 2, entries[0]["adds"], 0)
}
