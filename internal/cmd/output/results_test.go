package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncals/syncals/internal/cmd/globals"
	"github.com/syncals/syncals/internal/cmd/output"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/reconcile"
	"github.com/syncals/syncals/pkg/sources"
)

var tenAM = time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

func result() *reconcile.Result {
	r := reconcile.DefaultRules()
	r.Rooms = []reconcile.Room{{Tag: "R1", Office: "HQ", Resource: "R1"}}
	r.Persons = []reconcile.Person{{Tag: "P1", Office: "HQ"}}
	r.AutomationMenu = "auto"
	return reconcile.Reconcile([]events.Record{
		{Origin: "source", Start: tenAM, End: tenAM.Add(time.Hour), Subject: "R1", Description: "Review"},
		{Origin: "source", Start: tenAM, End: tenAM.Add(time.Hour), Subject: "P1", Description: "Review"},
		{Origin: "source", Start: tenAM, End: tenAM.Add(time.Hour), Subject: "visitor", Description: "Lunch"},
	}, r.MustCompile())
}

func TestFormatPlanJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.FormatPlan(&buf, result(), &globals.Flags{Output: "json"}))

	var p output.Plan
	require.NoError(t, json.Unmarshal(buf.Bytes(), &p))
	require.Len(t, p.Changes, 1)
	assert.Equal(t, "add", p.Changes[0].Op)
	assert.Equal(t, "2025-01-10T10:00:00Z", p.Changes[0].Start)
	assert.Equal(t, 1, p.Totals.Adds)
	assert.NotEmpty(t, p.Summary)
}

func TestFormatPlanTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.FormatPlan(&buf, result(), &globals.Flags{Output: "wide", Verbose: true}))
	out := buf.String()
	assert.Contains(t, out, "HQ/R1/P1")
	assert.Contains(t, out, "Review")
	assert.Contains(t, out, "Source records")
}

func TestFormatReport(t *testing.T) {
	var report sources.ApplyReport
	change := events.Record{Origin: events.OriginAdd, Start: tenAM, End: tenAM.Add(time.Hour), Subject: "HQ/R1/P1"}
	report.Record(change, nil)

	var buf bytes.Buffer
	require.NoError(t, output.FormatReport(&buf, "run-1", report, &globals.Flags{Output: "yaml"}))
	assert.Contains(t, buf.String(), "run_id: run-1")
	assert.Contains(t, buf.String(), "added: 1")
}

func TestTableFormatterStructs(t *testing.T) {
	type row struct {
		RunID  string `json:"run_id"`
		Count  int
		hidden string
		Skip   string `json:"-"`
	}

	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatTable)
	require.NoError(t, f.Format(&buf, []row{{RunID: "a", Count: 2, hidden: "x", Skip: "y"}}))
	out := strings.ToUpper(buf.String())
	assert.Contains(t, out, "RUN ID")
	assert.Contains(t, out, "COUNT")
	assert.NotContains(t, out, "SKIP")

	buf.Reset()
	require.NoError(t, f.Format(&buf, row{RunID: "b"}))
	assert.Contains(t, buf.String(), "Run Id")
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", "wide", ""} {
		_, err := output.ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := output.ParseFormat("xml")
	assert.Error(t, err)
}

func TestTableClipsLongCells(t *testing.T) {
	type row struct {
		Description string `json:"description"`
	}
	long := strings.Repeat("会", 30)

	var buf bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatTable).Format(&buf, []row{{Description: long}}))
	assert.Contains(t, buf.String(), "…")
	assert.NotContains(t, buf.String(), long)

	buf.Reset()
	require.NoError(t, output.NewFormatter(output.FormatWide).Format(&buf, []row{{Description: long}}))
	assert.Contains(t, buf.String(), long)
}

func TestFormatMeetingsTable(t *testing.T) {
	res := result()
	var buf bytes.Buffer
	require.NoError(t, output.FormatMeetings(&buf, res.Meetings, "/", &globals.Flags{Output: "table"}))
	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "IDENTITIES")
	assert.Contains(t, out, "HQ/R1/P1")
	assert.NotContains(t, out, "visitor", "unclassified tags form no meeting")
}
