package ics

import (
	"cmp"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/syncals/syncals/pkg/events"
)

const defaultMaxOccurrences = 5000

// Occurrence is one concrete instance of an event.
type Occurrence struct {
	Event
	Start time.Time
	End   time.Time
}

// ExpandResult holds expanded occurrences and the UIDs that could not be
// expanded fully.
type ExpandResult struct {
	Occurrences []Occurrence
	Truncated   []string
	BadRules    []string
}

// Expand turns parsed events into the occurrences overlapping rng, converted
// to loc. Recurring series honor EXDATE and RECURRENCE-ID overrides.
func Expand(evs []Event, rng events.Range, loc *time.Location, maxPerEvent int) ExpandResult {
	if loc == nil {
		loc = time.Local
	}
	if maxPerEvent <= 0 {
		maxPerEvent = defaultMaxOccurrences
	}

	base := make(map[string][]Event)
	overrides := make(map[string][]Event)
	var uids []string
	for _, ev := range evs {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, ok := base[ev.UID]; !ok {
			uids = append(uids, ev.UID)
		}
		base[ev.UID] = append(base[ev.UID], ev)
	}

	var result ExpandResult
	for _, uid := range uids {
		for _, ev := range base[uid] {
			if ev.RawRRule == "" {
				result.Occurrences = append(result.Occurrences, expandSingle(ev, overrides[uid], rng, loc)...)
				continue
			}
			occ, hitCap, err := expandRecurring(ev, overrides[uid], rng, loc, maxPerEvent)
			if err != nil {
				result.BadRules = append(result.BadRules, uid)
				continue
			}
			if hitCap {
				result.Truncated = append(result.Truncated, uid)
			}
			result.Occurrences = append(result.Occurrences, occ...)
		}
	}

	slices.SortStableFunc(result.Occurrences, func(a, b Occurrence) int {
		return cmp.Or(a.Start.Compare(b.Start), cmp.Compare(a.UID, b.UID))
	})
	return result
}

func expandSingle(ev Event, overrides []Event, rng events.Range, loc *time.Location) []Occurrence {
	occ, ok := occurrence(ev, overrides, ev.Start, ev.End, loc)
	if !ok || !rng.Overlaps(occ.Start, occ.End) {
		return nil
	}
	return []Occurrence{occ}
}

func expandRecurring(ev Event, overrides []Event, rng events.Range, loc *time.Location, maxPerEvent int) ([]Occurrence, bool, error) {
	opt, err := rrule.StrToROption(ev.RawRRule)
	if err != nil {
		return nil, false, err
	}
	opt.Dtstart = ev.Start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, false, err
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)
	from := rng.From.Add(-dur).In(ev.Start.Location())
	to := rng.To.In(ev.Start.Location())

	starts := set.Between(from, to, true)
	hitCap := false
	if len(starts) > maxPerEvent {
		starts = starts[:maxPerEvent]
		hitCap = true
	}

	var out []Occurrence
	for _, s := range starts {
		end := s.Add(dur)
		if ev.AllDay {
			s = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
			end = s.AddDate(0, 0, 1)
		}
		occ, ok := occurrence(ev, overrides, s, end, loc)
		if ok && rng.Overlaps(occ.Start, occ.End) {
			out = append(out, occ)
		}
	}
	return out, hitCap, nil
}

// occurrence applies an override whose RECURRENCE-ID equals start.
func occurrence(ev Event, overrides []Event, start, end time.Time, loc *time.Location) (Occurrence, bool) {
	for _, o := range overrides {
		if o.Recurrence.Equal(start) {
			ev, start, end = o, o.Start, o.End
			break
		}
	}
	if start.IsZero() {
		return Occurrence{}, false
	}
	return Occurrence{Event: ev, Start: start.In(loc), End: end.In(loc)}, true
}
