// Package reconcile computes the changes that bring a booking target in line
// with a source calendar.
//
// The pipeline is pure: records in, Result out. Records are partitioned by
// origin, source records are aggregated into meetings, each meeting's rooms
// and persons are resolved into identities, those are compared with the
// target bookings, and the resulting adds and deletes are ranked for
// application. Nothing is logged; every finding is returned as a Diagnostic.
package reconcile

import (
	"errors"
	"fmt"

	pkgerrors "github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
)

// Reconcile runs the whole pipeline over mixed source and target records.
func Reconcile(records []events.Record, rs *Ruleset) *Result {
	source, target, diags := Partition(records, rs)
	res := &Result{Diagnostics: diags}
	res.Stats.SourceRecords = len(source)
	res.Stats.TargetRecords = len(target)
	res.Stats.Ignored = len(records) - len(source) - len(target)

	meetings, d := AggregateOrdered(source, rs)
	res.Diagnostics = append(res.Diagnostics, d...)
	res.Stats.Meetings = len(meetings)
	res.Stats.Excluded = len(d.ByKind(KindExcluded))
	res.Stats.Skipped = len(d.ByKind(KindUnclassifiable))

	resolved, d := ResolveAll(meetings, rs)
	res.Diagnostics = append(res.Diagnostics, d...)
	res.Stats.Failed = len(d.ByKind(KindMissingMapping))
	res.Meetings = resolved
	for _, r := range resolved {
		res.Stats.Resolved += len(r.Identities)
	}

	bookings, d := ParseBookings(target, rs)
	res.Diagnostics = append(res.Diagnostics, d...)
	res.Stats.Skipped += len(d)

	cs, d, stats := Diff(resolved, bookings, rs)
	res.Diagnostics = append(res.Diagnostics, d...)
	res.Changeset = cs
	res.Stats.Claimed = stats.Claimed
	res.Stats.Adds = stats.Adds
	res.Stats.Deletes = stats.Deletes

	return res
}

// ResolveAll resolves every meeting. Meetings failing resolution are
// reported and left out; meetings resolving to nothing are kept with no
// identities.
func ResolveAll(meetings []*Meeting, rs *Ruleset) ([]Resolved, Diagnostics) {
	var diags Diagnostics
	out := make([]Resolved, 0, len(meetings))
	for _, m := range meetings {
		set, d, err := Resolve(m, rs)
		diags = append(diags, d...)
		if err != nil {
			kind := KindConfig
			if errors.Is(err, pkgerrors.ErrMissingMapping) {
				kind = KindMissingMapping
			}
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Kind:     kind,
				Message:  fmt.Sprintf("meeting %q at %s not resolved", m.Description, m.Start.Format("2006-01-02 15:04")),
				Err:      err,
			})
			continue
		}
		out = append(out, Resolved{Meeting: m, Identities: set.Sorted()})
	}
	return out, diags
}

// ParseBookings parses target records, skipping malformed ones with a
// warning so that they can never be deleted by mistake.
func ParseBookings(records []events.Record, rs *Ruleset) ([]Booking, Diagnostics) {
	var diags Diagnostics
	bookings := make([]Booking, 0, len(records))
	for i := range records {
		b, err := ParseBooking(records[i], rs)
		if err != nil {
			rec := records[i]
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Kind:     KindMalformed,
				Message:  "booking skipped",
				Err:      err,
				Record:   &rec,
			})
			continue
		}
		bookings = append(bookings, b)
	}
	return bookings, diags
}
