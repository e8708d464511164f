package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syncals/syncals/pkg/events"
)

// Severity grades a diagnostic.
type Severity int

const (
	// SeverityInfo is an expected event worth recording.
	SeverityInfo Severity = iota
	// SeverityWarning marks skipped input; the run continues.
	SeverityWarning
	// SeverityError marks a meeting that could not be resolved.
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Kind classifies a diagnostic.
type Kind string

// Diagnostic kinds.
const (
	KindUnknownOrigin  Kind = "unknown-origin"
	KindDuration       Kind = "duration"
	KindExcluded       Kind = "excluded"
	KindUnclassifiable Kind = "unclassifiable"
	KindMissingMapping Kind = "missing-mapping"
	KindEjected        Kind = "ejected"
	KindRewrite        Kind = "rewrite"
	KindMalformed      Kind = "malformed-booking"
	KindOrphan         Kind = "orphan"
	KindConfig         Kind = "config"
)

// Diagnostic is a non-fatal finding produced while reconciling.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Message  string
	Err      error
	Record   *events.Record
}

// String formats the diagnostic on one line.
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", d.Severity, d.Kind, d.Message)
	if d.Err != nil {
		fmt.Fprintf(&b, ": %v", d.Err)
	}
	if d.Record != nil {
		fmt.Fprintf(&b, " [%s]", d.Record)
	}
	return b.String()
}

// Diagnostics is an ordered list of findings.
type Diagnostics []Diagnostic

// Errors returns the error-severity diagnostics.
func (ds Diagnostics) Errors() Diagnostics {
	return ds.filter(func(d Diagnostic) bool { return d.Severity == SeverityError })
}

// Warnings returns the warning-severity diagnostics.
func (ds Diagnostics) Warnings() Diagnostics {
	return ds.filter(func(d Diagnostic) bool { return d.Severity == SeverityWarning })
}

// ByKind returns the diagnostics of one kind.
func (ds Diagnostics) ByKind(kind Kind) Diagnostics {
	return ds.filter(func(d Diagnostic) bool { return d.Kind == kind })
}

// Err joins the errors carried by warning and error diagnostics.
func (ds Diagnostics) Err() error {
	var errs []error
	for _, d := range ds {
		if d.Severity >= SeverityWarning && d.Err != nil {
			errs = append(errs, d.Err)
		}
	}
	return errors.Join(errs...)
}

func (ds Diagnostics) filter(keep func(Diagnostic) bool) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// Stats counts what each pipeline stage saw.
type Stats struct {
	SourceRecords int `json:"source_records" yaml:"source_records"`
	TargetRecords int `json:"target_records" yaml:"target_records"`
	Ignored       int `json:"ignored" yaml:"ignored"`
	Excluded      int `json:"excluded" yaml:"excluded"`
	Meetings      int `json:"meetings" yaml:"meetings"`
	Failed        int `json:"failed" yaml:"failed"`
	Resolved      int `json:"resolved" yaml:"resolved"`
	Claimed       int `json:"claimed" yaml:"claimed"`
	Adds          int `json:"adds" yaml:"adds"`
	Deletes       int `json:"deletes" yaml:"deletes"`
	Skipped       int `json:"skipped" yaml:"skipped"`
}

// Result is the outcome of one reconciliation.
type Result struct {
	// Changeset holds the ranked change records.
	Changeset *Changeset

	// Meetings are the resolved source meetings, ordered by start.
	Meetings []Resolved

	Diagnostics Diagnostics
	Stats       Stats
}

// Changes returns the ranked change records.
func (r *Result) Changes() []events.Record {
	if r == nil || r.Changeset == nil {
		return nil
	}
	return r.Changeset.Changes
}

// HasChanges reports whether anything needs to be applied.
func (r *Result) HasChanges() bool {
	return r != nil && r.Changeset != nil && r.Changeset.HasChanges()
}

// Summary returns a one-line overview of the run.
func (r *Result) Summary() string {
	return fmt.Sprintf("source %d → meetings %d → changes %d (+%d -%d, %d in sync)",
		r.Stats.SourceRecords, r.Stats.Meetings, r.Stats.Adds+r.Stats.Deletes,
		r.Stats.Adds, r.Stats.Deletes, r.Stats.Claimed)
}
