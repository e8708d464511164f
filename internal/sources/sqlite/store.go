package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/logging"
	"github.com/syncals/syncals/pkg/sources"
)

// Store is a booking sink over a DB.
type Store struct {
	id       sources.ID
	db       *DB
	format   sources.BookingFormat
	location *time.Location
}

// Option configures a Store.
type Option func(*Store)

// WithFormat sets the booking subject layout and the menu of new bookings.
func WithFormat(f sources.BookingFormat) Option {
	return func(s *Store) {
		s.format = f
	}
}

// WithLocation sets the zone fetched bookings are expressed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		s.location = loc
	}
}

// New creates a Store over db.
func New(id sources.ID, db *DB, opts ...Option) *Store {
	s := &Store{
		id:       id,
		db:       db,
		format:   sources.DefaultBookingFormat(),
		location: time.Local,
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

// Fetch implements sources.Provider.
func (s *Store) Fetch(ctx context.Context, rng events.Range) ([]events.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, office, menu, resource, person, start_at, end_at, description
		FROM bookings
		WHERE start_at < ? AND (end_at > ? OR start_at >= ?)
		ORDER BY start_at, ref
	`, rng.To.Unix(), rng.From.Unix(), rng.From.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []events.Record
	for rows.Next() {
		var (
			ref, office, menu, resource, person, desc string
			start, end                                int64
		)
		if err := rows.Scan(&ref, &office, &menu, &resource, &person, &start, &end, &desc); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		out = append(out, events.Record{
			Origin:      s.format.Origin,
			Start:       time.Unix(start, 0).In(s.location),
			End:         time.Unix(end, 0).In(s.location),
			Subject:     s.format.Subject(office, menu, resource, person, ref),
			Description: desc,
		})
	}
	return out, rows.Err()
}

// Apply implements sources.Sink. Each change commits on its own and is
// journaled with its outcome.
func (s *Store) Apply(ctx context.Context, changes []events.Record) (sources.ApplyReport, error) {
	runID := logging.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := logging.FromContext(ctx)

	var report sources.ApplyReport
	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ref, err := s.apply(ctx, c)
		report.Record(c, err)
		if jerr := s.journal(ctx, runID, c, ref, err); jerr != nil {
			logger.Warn().Err(jerr).Str("change", c.String()).Msg("Journal write failed")
		}
	}
	return report, nil
}

func (s *Store) apply(ctx context.Context, c events.Record) (string, error) {
	switch c.Origin {
	case events.OriginAdd:
		id, err := s.format.Identity(c)
		if err != nil {
			return "", err
		}
		ref := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO bookings (ref, office, menu, resource, person, start_at, end_at, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, ref, id.Office, s.format.Menu, id.Resource, id.Person, c.Start.Unix(), c.End.Unix(), c.Description)
		if err != nil {
			return ref, fmt.Errorf("inserting booking: %w", err)
		}
		return ref, nil

	case events.OriginDelete:
		ref, err := s.format.Ref(c)
		if err != nil {
			return "", err
		}
		res, err := s.db.ExecContext(ctx, "DELETE FROM bookings WHERE ref = ?", ref)
		if err != nil {
			return ref, fmt.Errorf("deleting booking: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ref, errors.NewNotFoundError("booking", ref)
		}
		return ref, nil

	default:
		return "", fmt.Errorf("%w: change origin %q", errors.ErrInvalidInput, c.Origin)
	}
}

// JournalEntry is one journaled change.
type JournalEntry struct {
	RunID  string
	Op     string
	Ref    string
	Change string
	Error  string
}

func (s *Store) journal(ctx context.Context, runID string, c events.Record, ref string, applyErr error) error {
	msg := ""
	if applyErr != nil {
		msg = applyErr.Error()
	}
	// recorded even after ctx is done
	_, err := s.db.ExecContext(context.WithoutCancel(ctx), `
		INSERT INTO journal (run_id, op, ref, detail, error) VALUES (?, ?, ?, ?, ?)
	`, runID, c.Origin.String(), ref, c.String(), msg)
	return err
}

// Journal returns the entries of a run in application order.
func (s *Store) Journal(ctx context.Context, runID string) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, op, ref, detail, error FROM journal WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.RunID, &e.Op, &e.Ref, &e.Change, &e.Error); err != nil {
			return nil, fmt.Errorf("scanning journal: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Runs returns the journaled run ids, most recent first.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id FROM journal GROUP BY run_id ORDER BY MAX(id) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
