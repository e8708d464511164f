// Package sources defines the collaborators around the reconciliation
// engine: event source providers that produce records for a date range, and
// booking sinks that also accept change records.
//
// Implementations live under internal/sources and are selected by explicit
// configuration.
//
// Example usage:
//
//	srcs := sources.NewSources()
//	srcs.Set(calendar.ID(), calendar)
//
//	records, err := sources.FetchAll(ctx, srcs.List(), events.Days(time.Now(), 14))
//	if err != nil {
//	    // some providers failed; records holds what the others returned
//	}
package sources

import (
	"context"
	"errors"
	"slices"
	"sync"

	pkgerrors "github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
)

// ID identifies a configured provider.
type ID string

// String returns the string representation of an ID.
func (id ID) String() string {
	return string(id)
}

// Provider produces event records covering a date range.
type Provider interface {
	// ID returns the configured name of this provider.
	ID() ID

	// Fetch returns every record overlapping rng, tagged with the
	// provider's origin.
	Fetch(ctx context.Context, rng events.Range) ([]events.Record, error)
}

// Sink is the booking target. It reports its current bookings through Fetch
// and applies change records through Apply.
type Sink interface {
	Provider

	// Apply applies each change record independently. A failed record does
	// not stop the others; failures are listed in the report.
	Apply(ctx context.Context, changes []events.Record) (ApplyReport, error)
}

// Cache stores the records of a fetch so a later run can reconcile without
// contacting the providers again.
type Cache interface {
	Save(ctx context.Context, rng events.Range, records []events.Record) error
	Load(ctx context.Context) ([]events.Record, error)
}

// ApplyReport counts what a sink applied.
type ApplyReport struct {
	Added    int
	Deleted  int
	Done     []events.Record
	Failures []*pkgerrors.ApplyError
}

// Applied returns the number of change records applied.
func (r ApplyReport) Applied() int {
	return r.Added + r.Deleted
}

// Err joins the per-record failures, or returns nil.
func (r ApplyReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Record adds the outcome of applying one change record.
func (r *ApplyReport) Record(change events.Record, err error) {
	if err != nil {
		r.Failures = append(r.Failures, &pkgerrors.ApplyError{Change: change.String(), Err: err})
		return
	}
	r.Done = append(r.Done, change)
	switch change.Origin {
	case events.OriginAdd:
		r.Added++
	case events.OriginDelete:
		r.Deleted++
	}
}

// Sources is a thread-safe container for managing multiple providers.
type Sources struct {
	mu      sync.RWMutex
	sources map[ID]Provider
}

// NewSources creates a new Sources instance.
func NewSources(providers ...Provider) *Sources {
	s := &Sources{
		sources: make(map[ID]Provider),
	}
	for _, p := range providers {
		s.sources[p.ID()] = p
	}
	return s
}

// Get returns a provider by ID.
func (s *Sources) Get(id ID) (Provider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, found := s.sources[id]
	return src, found
}

// Set sets a provider by ID.
func (s *Sources) Set(id ID, src Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[id] = src
}

// Delete deletes a provider by ID.
func (s *Sources) Delete(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
}

// Len returns the number of providers.
func (s *Sources) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources)
}

// List returns all providers ordered by ID.
func (s *Sources) List() []Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Provider, 0, len(s.sources))
	for _, id := range s.idsLocked() {
		out = append(out, s.sources[id])
	}
	return out
}

// IDs returns all provider IDs in order.
func (s *Sources) IDs() []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idsLocked()
}

func (s *Sources) idsLocked() []ID {
	ids := make([]ID, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
