package rules_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncals/syncals/cmd/syncals/cmd/rules"
	"github.com/syncals/syncals/internal/cmd/application"
	"github.com/syncals/syncals/internal/cmd/globals"
	"github.com/syncals/syncals/pkg/reconcile"
)

func run(t *testing.T, r *reconcile.Rules, format string, args ...string) (string, error) {
	t.Helper()
	app := &application.Mock{
		RulesFunc: func() (*reconcile.Rules, error) { return r, nil },
		FlagsFunc: func() *globals.Flags { return &globals.Flags{Output: format} },
	}
	cmd := rules.NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheck(t *testing.T) {
	r := reconcile.DefaultRules()
	r.AutomationMenu = "auto"
	r.Rooms = []reconcile.Room{{Tag: "R1", Office: "HQ", Resource: "R1"}}
	out, err := run(t, r, "table", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Rules OK")

	r.Rooms = append(r.Rooms, reconcile.Room{Tag: "R2", Resource: "R2"})
	out, err = run(t, r, "json", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "room without office")
	assert.Contains(t, out, "warning")
}

func TestShow(t *testing.T) {
	r := reconcile.DefaultRules()
	r.AutomationMenu = "auto"
	out, err := run(t, r, "table", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "automation_menu: auto")
}
