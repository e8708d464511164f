package reconcile

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/syncals/syncals/pkg/constants"
	"github.com/syncals/syncals/pkg/events"
)

// Changeset is an ordered list of change records.
type Changeset struct {
	Changes []events.Record
	Summary ChangesetSummary
}

// ChangesetSummary provides summary statistics for a changeset.
type ChangesetSummary struct {
	Adds    int `json:"adds" yaml:"adds"`
	Deletes int `json:"deletes" yaml:"deletes"`
	Total   int `json:"total" yaml:"total"`
}

// NewChangeset wraps already ordered change records.
func NewChangeset(changes []events.Record) *Changeset {
	c := &Changeset{Changes: changes}
	c.Summary = calculateSummary(changes)
	return c
}

func calculateSummary(changes []events.Record) ChangesetSummary {
	var s ChangesetSummary
	for _, c := range changes {
		switch c.Origin {
		case events.OriginAdd:
			s.Adds++
		case events.OriginDelete:
			s.Deletes++
		}
	}
	s.Total = s.Adds + s.Deletes
	return s
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return c != nil && c.Summary.Total > 0
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return !c.HasChanges()
}

// Adds returns the add records in order.
func (c *Changeset) Adds() []events.Record {
	return c.byOrigin(events.OriginAdd)
}

// Deletes returns the delete records in order.
func (c *Changeset) Deletes() []events.Record {
	return c.byOrigin(events.OriginDelete)
}

func (c *Changeset) byOrigin(o events.Origin) []events.Record {
	var out []events.Record
	for _, r := range c.Changes {
		if r.Origin == o {
			out = append(out, r)
		}
	}
	return out
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}
	return fmt.Sprintf("Changeset: %d to add, %d to delete (Total: %d changes)",
		c.Summary.Adds, c.Summary.Deletes, c.Summary.Total)
}

// Print writes one numbered line per change:
//
//	+  1 01/10 10:00～10:10 HQ/R1/P1 "Weekly Sync"
func (c *Changeset) Print(w io.Writer) {
	fmt.Fprintln(w, c.String())
	fmt.Fprintln(w, strings.Repeat("─", 70))
	for i, r := range c.Changes {
		fmt.Fprintln(w, FormatChange(i+1, r))
	}
}

// FormatChange renders a change record as a numbered line with a shortened
// description.
func FormatChange(n int, r events.Record) string {
	mark := "?"
	switch r.Origin {
	case events.OriginAdd:
		mark = "+"
	case events.OriginDelete:
		mark = "-"
	}
	return fmt.Sprintf("%s%3d %s～%s %s %q", mark, n,
		r.Start.Format(constants.TimeFormatChange), r.End.Format(constants.TimeFormatEnd),
		r.Subject, Shorten(r.Description, constants.DefaultCompareLength))
}

// Shorten cuts s to limit runes, marking the cut with an ellipsis.
func Shorten(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "…"
}

// ApplyStrategy represents which changes are handed to the sink.
type ApplyStrategy string

const (
	// ApplyAll applies additions and deletions.
	ApplyAll ApplyStrategy = "all"

	// ApplyAdditionsOnly only applies additions.
	ApplyAdditionsOnly ApplyStrategy = "additions-only"

	// ApplyDeletionsOnly only applies deletions.
	ApplyDeletionsOnly ApplyStrategy = "deletions-only"

	// ApplyNone applies nothing.
	ApplyNone ApplyStrategy = "none"
)

// ParseApplyStrategy converts a string into an ApplyStrategy.
// An empty string selects ApplyAll.
func ParseApplyStrategy(s string) (ApplyStrategy, error) {
	switch ApplyStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ApplyAll:
		return ApplyAll, nil
	case ApplyAdditionsOnly:
		return ApplyAdditionsOnly, nil
	case ApplyDeletionsOnly:
		return ApplyDeletionsOnly, nil
	case ApplyNone:
		return ApplyNone, nil
	default:
		return "", fmt.Errorf("unknown apply strategy %q", s)
	}
}

// StrategyFor maps skip switches onto a strategy.
func StrategyFor(skipAdd, skipDelete bool) ApplyStrategy {
	switch {
	case skipAdd && skipDelete:
		return ApplyNone
	case skipAdd:
		return ApplyDeletionsOnly
	case skipDelete:
		return ApplyAdditionsOnly
	default:
		return ApplyAll
	}
}

// Filter returns the changes the strategy allows, keeping their order.
func (c *Changeset) Filter(strategy ApplyStrategy) *Changeset {
	switch strategy {
	case ApplyAll, "":
		return c
	case ApplyAdditionsOnly:
		return NewChangeset(c.Adds())
	case ApplyDeletionsOnly:
		return NewChangeset(c.Deletes())
	default:
		return NewChangeset(nil)
	}
}
