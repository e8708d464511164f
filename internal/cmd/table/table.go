// Package table converts reconciliation results into table rows for CLI
// commands.
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syncals/syncals/pkg/constants"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/reconcile"
	"github.com/syncals/syncals/pkg/sources"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// ChangesToTableData lists change records in application order.
func ChangesToTableData(changes []events.Record, wide bool) Data {
	headers := []string{"#", "Op", "Start", "End", "Subject", "Description"}
	rows := make([][]string, 0, len(changes))
	for i, c := range changes {
		desc := c.Description
		if !wide {
			desc = reconcile.Shorten(desc, constants.DefaultCompareLength)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			Op(c.Origin),
			c.Start.Format(constants.TimeFormatChange),
			c.End.Format(constants.TimeFormatEnd),
			c.Subject,
			dash(desc),
		})
	}
	return Data{
		Headers:         headers,
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignCenter, AlignLeft, AlignLeft, AlignLeft, AlignLeft},
	}
}

// MeetingsToTableData lists resolved meetings with their identities.
func MeetingsToTableData(meetings []reconcile.Resolved, sep string) Data {
	headers := []string{"Start", "End", "Description", "Rooms", "Persons", "Identities"}
	rows := make([][]string, 0, len(meetings))
	for _, r := range meetings {
		ids := make([]string, len(r.Identities))
		for i, id := range r.Identities {
			ids[i] = id.Encode(sep)
		}
		m := r.Meeting
		rows = append(rows, []string{
			m.Start.Format(constants.TimeFormatChange),
			m.End.Format(constants.TimeFormatEnd),
			dash(m.Description),
			dash(strings.Join(m.Rooms, ", ")),
			dash(strings.Join(m.Persons, ", ")),
			dash(strings.Join(ids, ", ")),
		})
	}
	return Data{Headers: headers, Rows: rows}
}

// DiagnosticsToTableData lists diagnostics at or above min severity.
func DiagnosticsToTableData(diags reconcile.Diagnostics, min reconcile.Severity) Data {
	headers := []string{"Severity", "Kind", "Message", "Record"}
	var rows [][]string
	for _, d := range diags {
		if d.Severity < min {
			continue
		}
		msg := d.Message
		if d.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, d.Err)
		}
		rec := "-"
		if d.Record != nil {
			rec = d.Record.String()
		}
		rows = append(rows, []string{d.Severity.String(), string(d.Kind), msg, rec})
	}
	return Data{Headers: headers, Rows: rows}
}

// StatsToTableData renders pipeline counters as a two-column table.
func StatsToTableData(s reconcile.Stats) Data {
	rows := [][]string{
		{"Source records", strconv.Itoa(s.SourceRecords)},
		{"Target bookings", strconv.Itoa(s.TargetRecords)},
		{"Ignored", strconv.Itoa(s.Ignored)},
		{"Meetings", strconv.Itoa(s.Meetings)},
		{"Excluded", strconv.Itoa(s.Excluded)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Identities", strconv.Itoa(s.Resolved)},
		{"In sync", strconv.Itoa(s.Claimed)},
		{"Adds", strconv.Itoa(s.Adds)},
		{"Deletes", strconv.Itoa(s.Deletes)},
		{"Skipped", strconv.Itoa(s.Skipped)},
	}
	return Data{
		Headers:         []string{"Stage", "Count"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// ReportToTableData renders what a sink did, one row per failure after the
// totals.
func ReportToTableData(r sources.ApplyReport) Data {
	rows := [][]string{
		{"added", strconv.Itoa(r.Added), "-"},
		{"deleted", strconv.Itoa(r.Deleted), "-"},
	}
	for _, f := range r.Failures {
		rows = append(rows, []string{"failed", "1", fmt.Sprintf("%s: %v", f.Change, f.Err)})
	}
	return Data{Headers: []string{"Result", "Count", "Detail"}, Rows: rows}
}

// Op returns the display mark of a change origin.
func Op(o events.Origin) string {
	switch o {
	case events.OriginAdd:
		return "+"
	case events.OriginDelete:
		return "-"
	default:
		return string(o)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
