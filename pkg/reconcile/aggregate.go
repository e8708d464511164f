package reconcile

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
)

// MeetingKey identifies one real-world meeting instance. Times have second
// resolution.
type MeetingKey struct {
	Start       int64
	End         int64
	Description string
}

// Meeting is a group of source records describing the same meeting, with
// the room and person tags found in the group.
type Meeting struct {
	Key         MeetingKey
	Start       time.Time
	End         time.Time
	Description string

	// Rooms and Persons are de-duplicated and in configuration order.
	Rooms   []string
	Persons []string
}

// Partition splits records by origin into source and target records.
// Records of any other origin are reported and dropped.
func Partition(records []events.Record, rs *Ruleset) (source, target []events.Record, diags Diagnostics) {
	for i := range records {
		switch records[i].Origin {
		case events.Origin(rs.rules.SourceOrigin):
			source = append(source, records[i])
		case events.Origin(rs.rules.TargetOrigin):
			target = append(target, records[i])
		default:
			rec := records[i]
			diags = append(diags, Diagnostic{
				Severity: SeverityInfo,
				Kind:     KindUnknownOrigin,
				Message:  fmt.Sprintf("origin %q is neither source nor target", rec.Origin),
				Record:   &rec,
			})
		}
	}
	return source, target, diags
}

// Aggregate groups source records into meetings keyed by
// (start, end, description).
//
// Each record is first stretched to the minimum duration, then dropped when
// its description carries a delete marker or matches the skip pattern.
// Subjects are classified as rooms before persons; subjects in neither table
// are reported and dropped.
func Aggregate(records []events.Record, rs *Ruleset) (map[MeetingKey]*Meeting, Diagnostics) {
	var diags Diagnostics
	meetings := make(map[MeetingKey]*Meeting)

	for i := range records {
		rec, d := rs.coerce(records[i])
		diags = append(diags, d...)

		if reason, excluded := rs.excluded(rec.Description); excluded {
			diags = append(diags, Diagnostic{
				Severity: SeverityInfo,
				Kind:     KindExcluded,
				Message:  reason,
				Record:   &rec,
			})
			continue
		}

		_, isRoom := rs.rooms[rec.Subject]
		_, isPerson := rs.persons[rec.Subject]
		if !isRoom && !isPerson {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Kind:     KindUnclassifiable,
				Message:  "record dropped",
				Err: &errors.UnclassifiableSubjectError{
					Subject:     rec.Subject,
					Start:       rec.Start,
					Description: rec.Description,
				},
				Record: &rec,
			})
			continue
		}

		key := MeetingKey{Start: rec.Start.Unix(), End: rec.End.Unix(), Description: rec.Description}
		m, ok := meetings[key]
		if !ok {
			m = &Meeting{Key: key, Start: rec.Start, End: rec.End, Description: rec.Description}
			meetings[key] = m
		}
		if isRoom {
			m.Rooms = appendUnique(m.Rooms, rec.Subject)
		} else {
			m.Persons = appendUnique(m.Persons, rec.Subject)
		}
	}

	for _, m := range meetings {
		slices.SortStableFunc(m.Rooms, func(a, b string) int {
			return cmp.Compare(rs.rooms[a].index, rs.rooms[b].index)
		})
		slices.SortStableFunc(m.Persons, func(a, b string) int {
			return cmp.Compare(rs.persons[a].index, rs.persons[b].index)
		})
	}

	return meetings, diags
}

// AggregateOrdered is Aggregate with the meetings sorted by start, end and
// description.
func AggregateOrdered(records []events.Record, rs *Ruleset) ([]*Meeting, Diagnostics) {
	byKey, diags := Aggregate(records, rs)
	meetings := make([]*Meeting, 0, len(byKey))
	for _, m := range byKey {
		meetings = append(meetings, m)
	}
	slices.SortFunc(meetings, func(a, b *Meeting) int {
		return compareMeetingKeys(a.Key, b.Key)
	})
	return meetings, diags
}

func compareMeetingKeys(a, b MeetingKey) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	if c := cmp.Compare(a.End, b.End); c != 0 {
		return c
	}
	return strings.Compare(a.Description, b.Description)
}

// coerce repairs inverted intervals and stretches short ones to the
// minimum duration.
func (rs *Ruleset) coerce(rec events.Record) (events.Record, Diagnostics) {
	var diags Diagnostics
	if rec.End.Before(rec.Start) {
		orig := rec
		rec.End = rec.Start
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Kind:     KindDuration,
			Message:  "end before start; interval collapsed to its start",
			Record:   &orig,
		})
	}
	if rec.End.Sub(rec.Start) < rs.minDur {
		rec.End = rec.Start.Add(rs.minDur)
	}
	return rec, diags
}

// excluded reports whether a description marks a meeting that must never be
// synchronized. Both the raw and normalized text are checked.
func (rs *Ruleset) excluded(desc string) (string, bool) {
	candidates := []string{desc}
	if n := rs.norm.Normalize(desc); n != desc {
		candidates = append(candidates, n)
	}
	for _, text := range candidates {
		for _, marker := range rs.rules.DeleteMarkers {
			if marker != "" && strings.HasPrefix(text, marker) {
				return fmt.Sprintf("description starts with delete marker %q", marker), true
			}
		}
		if rs.skip != nil && rs.skip.MatchString(text) {
			return "description matches skip pattern", true
		}
	}
	return "", false
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
