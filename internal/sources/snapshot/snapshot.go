// Package snapshot stores event records in a YAML file. A Store is an event
// source provider, a booking sink and a fetch cache at the same time: the
// cache lets a run reconcile against what an earlier run fetched.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/syncals/syncals/pkg/constants"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/sources"
)

// File is the on-disk layout.
type File struct {
	FetchedAt utc.Time        `yaml:"fetched_at"`
	Range     events.Range    `yaml:"range,omitempty"`
	NextRef   int             `yaml:"next_ref,omitempty"`
	Records   []events.Record `yaml:"records"`
}

// Store is a YAML-backed record set.
type Store struct {
	id     sources.ID
	path   string
	format sources.BookingFormat
	prefix string

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithFormat sets how applied adds are written and deletes are matched.
func WithFormat(f sources.BookingFormat) Option {
	return func(s *Store) {
		s.format = f
	}
}

// WithRefPrefix sets the prefix of references given to new bookings.
func WithRefPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Store over path. The file is created on first write.
func New(id sources.ID, path string, opts ...Option) *Store {
	s := &Store{
		id:     id,
		path:   path,
		format: sources.DefaultBookingFormat(),
		prefix: "SNP",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID implements sources.Provider.
func (s *Store) ID() sources.ID {
	return s.id
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Fetch implements sources.Provider. A missing file holds no records.
func (s *Store) Fetch(ctx context.Context, rng events.Range) ([]events.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	var out []events.Record
	for _, r := range f.Records {
		if rng.Overlaps(r.Start, r.End) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Apply implements sources.Sink. The file is rewritten once after all
// changes are applied.
func (s *Store) Apply(ctx context.Context, changes []events.Record) (sources.ApplyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report sources.ApplyReport
	f, err := s.read()
	if err != nil {
		return report, err
	}
	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			break
		}
		report.Record(c, s.apply(f, c))
	}
	if report.Applied() == 0 {
		return report, ctx.Err()
	}
	if err := s.write(f); err != nil {
		return sources.ApplyReport{}, err
	}
	return report, ctx.Err()
}

func (s *Store) apply(f *File, c events.Record) error {
	switch c.Origin {
	case events.OriginAdd:
		b, err := s.format.Booking(c, fmt.Sprintf("%s%06d", s.prefix, f.NextRef+1))
		if err != nil {
			return err
		}
		f.NextRef++
		f.Records = append(f.Records, b)
		return nil
	case events.OriginDelete:
		ref, err := s.format.Ref(c)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(f.Records, func(r events.Record) bool {
			return r.Origin == s.format.Origin && s.format.StoredRef(r) == ref
		})
		if i < 0 {
			return errors.NewNotFoundError("booking", ref)
		}
		f.Records = slices.Delete(f.Records, i, i+1)
		return nil
	default:
		return fmt.Errorf("%w: change origin %q", errors.ErrInvalidInput, c.Origin)
	}
}

// Save implements sources.Cache. It replaces the stored records.
func (s *Store) Save(ctx context.Context, rng events.Range, records []events.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	f.Range = rng
	f.Records = slices.Clone(records)
	return s.write(f)
}

// Load implements sources.Cache. It fails when nothing was saved yet.
func (s *Store) Load(ctx context.Context) ([]events.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, errors.NewNotFoundError("snapshot", s.path)
	}
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	return f.Records, nil
}

// Snapshot returns the whole file.
func (s *Store) Snapshot() (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() (*File, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", s.path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", s.path, err)
	}
	return &f, nil
}

// write replaces the file through a temporary file in the same directory.
func (s *Store) write(f *File) error {
	f.FetchedAt = utc.Now()
	data, err := yaml.MarshalWithOptions(f, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return errors.WrapParse("yaml", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.WrapIO("create", "temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.WrapIO("write", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, constants.FilePermissions); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("chmod", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("move", s.path, err)
	}
	return nil
}
