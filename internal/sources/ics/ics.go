// Package ics implements an event source provider backed by an iCalendar
// file or URL. Each occurrence yields one record per participant tag taken
// from its attendees, location or categories.
package ics

import (
	"context"
	"os"
	"slices"
	"time"

	"github.com/syncals/syncals/internal/transport"
	"github.com/syncals/syncals/pkg/constants"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/logging"
	"github.com/syncals/syncals/pkg/sources"
)

// Tag sources on a VEVENT.
const (
	TagAttendee   = "attendee"
	TagLocation   = "location"
	TagCategories = "categories"
)

// DefaultTags lists the tag sources used when none are configured.
var DefaultTags = []string{TagAttendee, TagLocation}

// Source reads one iCalendar feed.
type Source struct {
	id       sources.ID
	path     string
	url      string
	origin   events.Origin
	location *time.Location
	tags     []string
	maxPer   int
	client   *transport.Client
}

// Option configures a Source.
type Option func(*Source)

// WithFile reads the calendar from a local file.
func WithFile(path string) Option {
	return func(s *Source) {
		s.path = path
	}
}

// WithURL fetches the calendar over HTTP. webcal:// is treated as https://.
func WithURL(url string) Option {
	return func(s *Source) {
		s.url = url
	}
}

// WithOrigin sets the origin tag of produced records.
func WithOrigin(origin events.Origin) Option {
	return func(s *Source) {
		s.origin = origin
	}
}

// WithLocation sets the zone records are expressed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Source) {
		s.location = loc
	}
}

// WithTags selects which VEVENT properties become participant tags.
func WithTags(tags ...string) Option {
	return func(s *Source) {
		s.tags = tags
	}
}

// WithMaxOccurrences caps the instances expanded per series.
func WithMaxOccurrences(n int) Option {
	return func(s *Source) {
		s.maxPer = n
	}
}

// WithTransport replaces the client used for URLs.
func WithTransport(c *transport.Client) Option {
	return func(s *Source) {
		s.client = c
	}
}

// New creates an iCalendar source.
func New(id sources.ID, opts ...Option) (*Source, error) {
	s := &Source{
		id:       id,
		origin:   constants.DefaultSourceOrigin,
		location: time.Local,
		tags:     DefaultTags,
		client:   transport.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if (s.path == "") == (s.url == "") {
		return nil, errors.NewConfigError(string(id), "exactly one of file or url is required", nil)
	}
	for _, t := range s.tags {
		if !slices.Contains([]string{TagAttendee, TagLocation, TagCategories}, t) {
			return nil, errors.NewValidationError("tags", t, "unknown tag source")
		}
	}
	return s, nil
}

// ID implements sources.Provider.
func (s *Source) ID() sources.ID {
	return s.id
}

// Fetch implements sources.Provider.
func (s *Source) Fetch(ctx context.Context, rng events.Range) ([]events.Record, error) {
	logger := logging.FromContext(ctx).With().Str("source", s.id.String()).Logger()

	body, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	evs, skipped, err := Parse(body)
	if err != nil {
		return nil, errors.WrapParse("ics", s.where(), err)
	}
	if skipped > 0 {
		logger.Warn().Int("skipped", skipped).Msg("Unreadable VEVENTs skipped")
	}

	res := Expand(evs, rng, s.location, s.maxPer)
	for _, uid := range res.Truncated {
		logger.Warn().Str("uid", uid).Int("cap", s.maxPer).Msg("Recurrence expansion truncated")
	}
	for _, uid := range res.BadRules {
		logger.Warn().Str("uid", uid).Msg("Unparseable RRULE, series skipped")
	}

	records := s.records(res.Occurrences)
	logger.Debug().
		Int("events", len(evs)).
		Int("occurrences", len(res.Occurrences)).
		Int("records", len(records)).
		Msg("Calendar expanded")
	return records, nil
}

// records fans each occurrence out into one record per distinct tag.
func (s *Source) records(occs []Occurrence) []events.Record {
	var out []events.Record
	for _, occ := range occs {
		var tags []string
		for _, src := range s.tags {
			switch src {
			case TagAttendee:
				tags = append(tags, occ.Attendees...)
			case TagLocation:
				if occ.Location != "" {
					tags = append(tags, occ.Location)
				}
			case TagCategories:
				tags = append(tags, occ.Categories...)
			}
		}
		seen := make(map[string]bool, len(tags))
		for _, tag := range tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, events.Record{
				Origin:      s.origin,
				Start:       occ.Start,
				End:         occ.End,
				Subject:     tag,
				Description: occ.Summary,
			})
		}
	}
	return out
}

func (s *Source) where() string {
	if s.path != "" {
		return s.path
	}
	return s.url
}

func (s *Source) load(ctx context.Context) ([]byte, error) {
	if s.path != "" {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, errors.WrapIO("read", s.path, err)
		}
		return data, nil
	}

	return s.client.Get(ctx, s.url)
}
