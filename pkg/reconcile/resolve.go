package reconcile

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
)

// IdentitySet is a set of resolved identities.
type IdentitySet map[events.Identity]struct{}

// Add inserts id.
func (s IdentitySet) Add(id events.Identity) {
	s[id] = struct{}{}
}

// Has reports whether id is in the set.
func (s IdentitySet) Has(id events.Identity) bool {
	_, ok := s[id]
	return ok
}

// Remove deletes id.
func (s IdentitySet) Remove(id events.Identity) {
	delete(s, id)
}

// Sorted returns the members ordered by office, resource, person, category
// and reference.
func (s IdentitySet) Sorted() []events.Identity {
	ids := slices.Collect(maps.Keys(s))
	slices.SortFunc(ids, compareIdentities)
	return ids
}

func compareIdentities(a, b events.Identity) int {
	return cmp.Or(
		strings.Compare(a.Office, b.Office),
		strings.Compare(a.Resource, b.Resource),
		strings.Compare(a.Person, b.Person),
		strings.Compare(a.Category, b.Category),
		strings.Compare(a.Ref, b.Ref),
	)
}

// Resolved is a meeting together with the identities it books.
type Resolved struct {
	Meeting    *Meeting
	Identities []events.Identity
}

// Resolve matches the rooms and persons of one meeting into identities.
//
// Each person takes the first room, in configuration order, sharing its
// office, or the no-room placeholder. Each room takes the first person
// sharing its office, or the no-person placeholder. Identical pairs collapse.
// Ejection and weekday rewrites are applied afterwards; the result may be
// empty. A tag with an incomplete mapping fails the whole meeting.
func Resolve(m *Meeting, rs *Ruleset) (IdentitySet, Diagnostics, error) {
	if err := rs.checkMappings(m); err != nil {
		return nil, nil, err
	}

	set := make(IdentitySet)
	for _, p := range m.Persons {
		person := rs.persons[p]
		if room, ok := rs.firstRoom(m.Rooms, person.Office); ok {
			set.Add(events.Identity{Office: room.Office, Resource: room.Resource, Person: p})
			continue
		}
		set.Add(events.Identity{Office: person.Office, Resource: rs.rules.NoRoom, Person: p})
	}
	for _, r := range m.Rooms {
		room := rs.rooms[r]
		if p, ok := rs.firstPerson(m.Persons, room.Office); ok {
			set.Add(events.Identity{Office: room.Office, Resource: room.Resource, Person: p})
			continue
		}
		set.Add(events.Identity{Office: room.Office, Resource: room.Resource, Person: rs.rules.NoPerson})
	}

	diags := rs.eject(set, m)
	diags = append(diags, rs.rewrite(set, m)...)
	return set, diags, nil
}

func (rs *Ruleset) checkMappings(m *Meeting) error {
	for _, r := range m.Rooms {
		room := rs.rooms[r]
		if room.Office == "" {
			return &errors.MappingError{Kind: "room", Tag: r, Field: "office"}
		}
		if room.Resource == "" {
			return &errors.MappingError{Kind: "room", Tag: r, Field: "resource"}
		}
	}
	for _, p := range m.Persons {
		if rs.persons[p].Office == "" {
			return &errors.MappingError{Kind: "person", Tag: p, Field: "office"}
		}
	}
	return nil
}

func (rs *Ruleset) firstRoom(rooms []string, office string) (Room, bool) {
	for _, r := range rooms {
		if room := rs.rooms[r]; room.Office == office {
			return room.Room, true
		}
	}
	return Room{}, false
}

func (rs *Ruleset) firstPerson(persons []string, office string) (string, bool) {
	for _, p := range persons {
		if rs.persons[p].Office == office {
			return p, true
		}
	}
	return "", false
}

// eject removes identities whose person starts with an ejected prefix.
// A no-room identity always goes. A real-room identity goes only when a
// non-ejected identity holds the same office and resource.
func (rs *Ruleset) eject(set IdentitySet, m *Meeting) Diagnostics {
	var diags Diagnostics
	for _, prefix := range rs.rules.Eject {
		if prefix == "" {
			continue
		}
		for _, id := range set.Sorted() {
			if !strings.HasPrefix(id.Person, prefix) {
				continue
			}
			if id.Resource == rs.rules.NoRoom {
				set.Remove(id)
				diags = append(diags, ejectedDiag(m, id, "no room"))
				continue
			}
			if holder, ok := otherHolder(set, id, prefix); ok {
				set.Remove(id)
				diags = append(diags, ejectedDiag(m, id, "room held by "+holder.Person))
			}
		}
	}
	return diags
}

func otherHolder(set IdentitySet, id events.Identity, prefix string) (events.Identity, bool) {
	for _, other := range set.Sorted() {
		if other == id || strings.HasPrefix(other.Person, prefix) {
			continue
		}
		if other.Office == id.Office && other.Resource == id.Resource {
			return other, true
		}
	}
	return events.Identity{}, false
}

func ejectedDiag(m *Meeting, id events.Identity, why string) Diagnostic {
	return Diagnostic{
		Severity: SeverityInfo,
		Kind:     KindEjected,
		Message:  fmt.Sprintf("%s ejected from %q (%s)", id, m.Description, why),
	}
}

// rewrite applies the weekday rules whose mask contains the meeting's start
// weekday. A rewrite producing an undecodable subject is reported and the
// identity kept.
func (rs *Ruleset) rewrite(set IdentitySet, m *Meeting) Diagnostics {
	var diags Diagnostics
	bit := 1 << weekdayBit(m.Start.Weekday())
	sep := rs.rules.Separator
	for _, rw := range rs.rewrites {
		if rw.mask&bit == 0 {
			continue
		}
		for _, id := range set.Sorted() {
			encoded := id.Encode(sep)
			out := rw.re.ReplaceAllString(encoded, rw.replace)
			if out == encoded {
				continue
			}
			next, err := events.ParseIdentity(out, sep)
			if err != nil {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Kind:     KindRewrite,
					Message:  fmt.Sprintf("rewrite of %s kept unchanged", encoded),
					Err:      err,
				})
				continue
			}
			set.Remove(id)
			set.Add(next)
		}
	}
	return diags
}
