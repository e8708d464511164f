package reconcile

import (
	"cmp"
	"slices"
	"strings"

	"github.com/syncals/syncals/pkg/events"
)

// Rank orders change records by office, then kind, then start time, so a
// sink working one office session at a time switches context rarely. Adds
// come before deletes unless the rules ask for deletes first. The sort is
// stable and the input is not modified.
func Rank(changes []events.Record, rs *Ruleset) []events.Record {
	type ranked struct {
		office string
		kind   int
		rec    events.Record
	}

	items := make([]ranked, len(changes))
	for i, c := range changes {
		items[i] = ranked{office: officeOf(c.Subject, rs.rules.Separator), kind: rs.kindOrder(c.Origin), rec: c}
	}

	slices.SortStableFunc(items, func(a, b ranked) int {
		return cmp.Or(
			strings.Compare(a.office, b.office),
			cmp.Compare(a.kind, b.kind),
			a.rec.Start.Compare(b.rec.Start),
		)
	})

	out := make([]events.Record, len(items))
	for i, it := range items {
		out[i] = it.rec
	}
	return out
}

func (rs *Ruleset) kindOrder(o events.Origin) int {
	first, second := events.OriginAdd, events.OriginDelete
	if rs.rules.DeletesFirst {
		first, second = second, first
	}
	switch o {
	case first:
		return 0
	case second:
		return 1
	default:
		return 2
	}
}

func officeOf(subject, sep string) string {
	office, _, _ := strings.Cut(subject, sep)
	return office
}
