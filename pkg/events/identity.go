package events

import (
	"fmt"
	"strings"
)

// DefaultSeparator joins identity components in an encoded subject.
const DefaultSeparator = "/"

// Identity is a resolved {office, resource, person} triple, optionally
// carrying the target's booking category and external reference.
//
// Identity is comparable; two identities are the same booking participant
// when all fields are equal.
type Identity struct {
	Office   string `json:"office" yaml:"office"`
	Resource string `json:"resource" yaml:"resource"`
	Person   string `json:"person" yaml:"person"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Ref      string `json:"ref,omitempty" yaml:"ref,omitempty"`
}

// Triple returns the identity without category and reference.
func (id Identity) Triple() Identity {
	return Identity{Office: id.Office, Resource: id.Resource, Person: id.Person}
}

// Encode joins the components with sep. Category and Ref are appended only
// when set; an empty category is kept as a placeholder when Ref is present.
func (id Identity) Encode(sep string) string {
	parts := []string{id.Office, id.Resource, id.Person}
	switch {
	case id.Ref != "":
		parts = append(parts, id.Category, id.Ref)
	case id.Category != "":
		parts = append(parts, id.Category)
	}
	return strings.Join(parts, sep)
}

// String encodes the identity with DefaultSeparator.
func (id Identity) String() string {
	return id.Encode(DefaultSeparator)
}

// ParseIdentity decodes an encoded subject produced by Encode.
func ParseIdentity(s, sep string) (Identity, error) {
	if sep == "" {
		sep = DefaultSeparator
	}
	parts := strings.Split(s, sep)
	var id Identity
	switch len(parts) {
	case 5:
		id.Ref = parts[4]
		fallthrough
	case 4:
		id.Category = parts[3]
		fallthrough
	case 3:
		id.Office, id.Resource, id.Person = parts[0], parts[1], parts[2]
	default:
		return Identity{}, fmt.Errorf("identity %q: expected 3 to 5 fields separated by %q, got %d", s, sep, len(parts))
	}
	return id, nil
}

// Contains reports whether any component contains sep, which would make the
// encoded form ambiguous.
func (id Identity) Contains(sep string) bool {
	for _, v := range []string{id.Office, id.Resource, id.Person, id.Category, id.Ref} {
		if strings.Contains(v, sep) {
			return true
		}
	}
	return false
}
