package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/syncals/syncals/pkg/constants"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/normalize"
)

// Key is the comparison key between a resolved meeting and a target booking.
// Two records with equal keys are the same booking.
type Key struct {
	Start       int64
	End         int64
	Office      string
	Resource    string
	Person      string
	Description string
}

// String formats the key for logs.
func (k Key) String() string {
	return fmt.Sprintf("%s %s %s/%s/%s %q",
		time.Unix(k.Start, 0).Format(time.DateTime),
		time.Unix(k.End, 0).Format(time.DateTime),
		k.Office, k.Resource, k.Person, k.Description)
}

// Booking is a parsed target record.
type Booking struct {
	Record   events.Record
	Identity events.Identity
	Key      Key
}

// Automated reports whether the booking was created by this tool.
func (b Booking) Automated(rs *Ruleset) bool {
	return rs.rules.AutomationMenu != "" && b.Identity.Category == rs.rules.AutomationMenu
}

// ParseBooking decodes a target record whose subject is
// office, menu, resource, person and reference joined by the target
// separator. Resource and person are swapped back when the target returned
// them reversed.
func ParseBooking(rec events.Record, rs *Ruleset) (Booking, error) {
	fields := strings.Split(rec.Subject, rs.rules.TargetSeparator)
	if len(fields) != constants.TargetSubjectFields {
		return Booking{}, &errors.MalformedBookingError{
			Subject: rec.Subject,
			Fields:  len(fields),
			Want:    constants.TargetSubjectFields,
		}
	}

	office, menu, resource, person, ref := fields[0], fields[1], fields[2], fields[3], fields[4]
	if !rs.isKnownResource(resource) && rs.isKnownResource(person) {
		resource, person = person, resource
	}

	id := events.Identity{Office: office, Resource: resource, Person: person, Category: menu, Ref: ref}
	return Booking{
		Record:   rec,
		Identity: id,
		Key:      rs.key(rec.Start, rec.End, id, rec.Description),
	}, nil
}

// key builds the comparison key. The description is normalized and
// truncated, or left out entirely when descriptions are not compared.
func (rs *Ruleset) key(start, end time.Time, id events.Identity, desc string) Key {
	k := Key{
		Start:    start.Unix(),
		End:      end.Unix(),
		Office:   id.Office,
		Resource: id.Resource,
		Person:   id.Person,
	}
	if rs.rules.CompareDescription {
		k.Description = normalize.Truncate(rs.norm.Normalize(desc), rs.rules.CompareLength)
	}
	return k
}

// Diff compares resolved meetings with target bookings.
//
// Every resolved identity whose key is among the bookings claims that
// booking; the rest become adds. Bookings left unclaimed become deletes only
// when they carry the automation menu. When several bookings share a key
// the last one is used for matching.
func Diff(resolved []Resolved, bookings []Booking, rs *Ruleset) (*Changeset, Diagnostics, Stats) {
	var (
		diags   Diagnostics
		stats   Stats
		changes []events.Record
	)

	lookup := make(map[Key]int, len(bookings))
	for i, b := range bookings {
		lookup[b.Key] = i
	}

	seen := make(map[Key]struct{})
	for _, r := range resolved {
		m := r.Meeting
		desc := rs.norm.Normalize(m.Description)
		for _, id := range r.Identities {
			k := rs.key(m.Start, m.End, id, desc)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}

			if _, ok := lookup[k]; ok {
				delete(lookup, k)
				stats.Claimed++
				continue
			}
			changes = append(changes, events.Record{
				Origin:      events.OriginAdd,
				Start:       m.Start,
				End:         m.End,
				Subject:     id.Encode(rs.rules.Separator),
				Description: desc,
			})
			stats.Adds++
		}
	}

	for i, b := range bookings {
		if j, ok := lookup[b.Key]; !ok || j != i {
			continue
		}
		if !b.Automated(rs) {
			rec := b.Record
			diags = append(diags, Diagnostic{
				Severity: SeverityInfo,
				Kind:     KindOrphan,
				Message:  fmt.Sprintf("unmatched booking with menu %q left untouched", b.Identity.Category),
				Record:   &rec,
			})
			continue
		}
		changes = append(changes, events.Record{
			Origin:      events.OriginDelete,
			Start:       b.Record.Start,
			End:         b.Record.End,
			Subject:     b.Identity.Encode(rs.rules.Separator),
			Description: b.Record.Description,
		})
		stats.Deletes++
	}

	return NewChangeset(Rank(changes, rs)), diags, stats
}
