// Package events defines the record shapes exchanged between event sources,
// the reconciliation engine and booking sinks.
//
// A Record is the universal unit: raw source events, target bookings and
// change instructions all share it. Before reconciliation the Subject holds a
// single participant tag; after resolution it holds an encoded Identity.
package events

import (
	"fmt"
	"time"
)

// Origin tags the system that produced a record, or marks a change record.
type Origin string

// String returns the string representation of an origin.
func (o Origin) String() string {
	return string(o)
}

// Change markers. A record whose origin is one of these is a change record.
const (
	// OriginAdd marks a booking that must be created on the target.
	OriginAdd Origin = "add"
	// OriginDelete marks a booking that must be cancelled on the target.
	OriginDelete Origin = "delete"
)

// Record is an event, booking or change instruction covering [Start, End).
type Record struct {
	Origin      Origin    `json:"origin" yaml:"origin"`
	Start       time.Time `json:"start" yaml:"start"`
	End         time.Time `json:"end" yaml:"end"`
	Subject     string    `json:"subject" yaml:"subject"`
	Description string    `json:"description" yaml:"description"`
}

// Duration returns End - Start.
func (r Record) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// IsChange reports whether the record is an add or delete instruction.
func (r Record) IsChange() bool {
	return r.Origin == OriginAdd || r.Origin == OriginDelete
}

// String returns a compact single-line form used in logs and prompts.
func (r Record) String() string {
	return fmt.Sprintf("%s %s~%s %s %q",
		r.Origin, r.Start.Format("01/02 15:04"), r.End.Format("15:04"), r.Subject, r.Description)
}

// Range is a requested fetch window, half-open like records.
type Range struct {
	From time.Time `json:"from" yaml:"from"`
	To   time.Time `json:"to" yaml:"to"`
}

// Days returns a range starting at the midnight of from and spanning n days.
func Days(from time.Time, n int) Range {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	return Range{From: day, To: day.AddDate(0, 0, n)}
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// Overlaps reports whether [start, end) intersects the range.
func (r Range) Overlaps(start, end time.Time) bool {
	return start.Before(r.To) && (end.After(r.From) || !start.Before(r.From))
}
