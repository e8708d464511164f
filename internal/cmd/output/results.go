package output

import (
	"io"
	"time"

	"github.com/syncals/syncals/internal/cmd/globals"
	"github.com/syncals/syncals/internal/cmd/table"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/reconcile"
	"github.com/syncals/syncals/pkg/sources"
)

// Plan is the structured form of a reconciliation result.
type Plan struct {
	Summary     string                     `json:"summary" yaml:"summary"`
	Stats       reconcile.Stats            `json:"stats" yaml:"stats"`
	Changes     []Change                   `json:"changes" yaml:"changes"`
	Diagnostics []Diagnostic               `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Totals      reconcile.ChangesetSummary `json:"totals" yaml:"totals"`
}

// Change is one change record.
type Change struct {
	Op          string `json:"op" yaml:"op"`
	Start       string `json:"start" yaml:"start"`
	End         string `json:"end" yaml:"end"`
	Subject     string `json:"subject" yaml:"subject"`
	Description string `json:"description" yaml:"description"`
}

// Diagnostic is one engine finding.
type Diagnostic struct {
	Severity string `json:"severity" yaml:"severity"`
	Kind     string `json:"kind" yaml:"kind"`
	Message  string `json:"message" yaml:"message"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Record   string `json:"record,omitempty" yaml:"record,omitempty"`
}

// Report is the structured form of an apply report.
type Report struct {
	RunID    string   `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Added    int      `json:"added" yaml:"added"`
	Deleted  int      `json:"deleted" yaml:"deleted"`
	Failures []string `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Meeting is one resolved source meeting.
type Meeting struct {
	Start       string   `json:"start" yaml:"start"`
	End         string   `json:"end" yaml:"end"`
	Description string   `json:"description" yaml:"description"`
	Rooms       []string `json:"rooms,omitempty" yaml:"rooms,omitempty"`
	Persons     []string `json:"persons,omitempty" yaml:"persons,omitempty"`
	Identities  []string `json:"identities" yaml:"identities"`
}

// NewMeetings converts resolved meetings for structured output. Identities
// are encoded with sep.
func NewMeetings(meetings []reconcile.Resolved, sep string) []Meeting {
	out := make([]Meeting, 0, len(meetings))
	for _, r := range meetings {
		m := Meeting{
			Start:       r.Meeting.Start.Format(time.RFC3339),
			End:         r.Meeting.End.Format(time.RFC3339),
			Description: r.Meeting.Description,
			Rooms:       r.Meeting.Rooms,
			Persons:     r.Meeting.Persons,
			Identities:  make([]string, 0, len(r.Identities)),
		}
		for _, id := range r.Identities {
			m.Identities = append(m.Identities, id.Encode(sep))
		}
		out = append(out, m)
	}
	return out
}

// NewPlan converts a result for structured output.
func NewPlan(res *reconcile.Result) Plan {
	p := Plan{Summary: res.Summary(), Stats: res.Stats}
	if res.Changeset != nil {
		p.Totals = res.Changeset.Summary
	}
	for _, c := range res.Changes() {
		p.Changes = append(p.Changes, NewChange(c))
	}
	for _, d := range res.Diagnostics {
		if d.Severity < reconcile.SeverityWarning {
			continue
		}
		pd := Diagnostic{Severity: d.Severity.String(), Kind: string(d.Kind), Message: d.Message}
		if d.Err != nil {
			pd.Error = d.Err.Error()
		}
		if d.Record != nil {
			pd.Record = d.Record.String()
		}
		p.Diagnostics = append(p.Diagnostics, pd)
	}
	return p
}

// NewChange converts a change record for structured output.
func NewChange(c events.Record) Change {
	return Change{
		Op:          c.Origin.String(),
		Start:       c.Start.Format(time.RFC3339),
		End:         c.End.Format(time.RFC3339),
		Subject:     c.Subject,
		Description: c.Description,
	}
}

// NewReport converts an apply report for structured output.
func NewReport(runID string, r sources.ApplyReport) Report {
	out := Report{RunID: runID, Added: r.Added, Deleted: r.Deleted}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, f.Error())
	}
	return out
}

// FormatPlan writes a reconciliation result. Tables list the changes,
// followed by warnings when verbose and by the stage counters when wide.
func FormatPlan(w io.Writer, res *reconcile.Result, flags *globals.Flags) error {
	format := DetectFormat(flags.Output)
	formatter := NewFormatter(format)

	switch format {
	case FormatTable, FormatWide:
		wide := format == FormatWide
		tables := []Data{table.ChangesToTableData(res.Changes(), wide)}
		if flags.Verbose {
			tables = append(tables, table.DiagnosticsToTableData(res.Diagnostics, reconcile.SeverityWarning))
		}
		if wide {
			tables = append(tables, table.StatsToTableData(res.Stats))
		}
		return formatter.Format(w, tables)
	default:
		return formatter.Format(w, NewPlan(res))
	}
}

// FormatMeetings writes the resolved meetings of a plan.
func FormatMeetings(w io.Writer, meetings []reconcile.Resolved, sep string, flags *globals.Flags) error {
	format := DetectFormat(flags.Output)
	formatter := NewFormatter(format)

	switch format {
	case FormatTable, FormatWide:
		return formatter.Format(w, table.MeetingsToTableData(meetings, sep))
	default:
		return formatter.Format(w, NewMeetings(meetings, sep))
	}
}

// FormatReport writes an apply report.
func FormatReport(w io.Writer, runID string, r sources.ApplyReport, flags *globals.Flags) error {
	format := DetectFormat(flags.Output)
	formatter := NewFormatter(format)

	switch format {
	case FormatTable, FormatWide:
		return formatter.Format(w, table.ReportToTableData(r))
	default:
		return formatter.Format(w, NewReport(runID, r))
	}
}

// FormatAny handles the common pattern of formatting any data type for output.
// This is useful for commands with custom data structures.
func FormatAny(w io.Writer, data any, flags *globals.Flags) error {
	formatter := NewFormatter(DetectFormat(flags.Output))
	return formatter.Format(w, data)
}
