package sources

import (
	"context"
	"fmt"
	"slices"
	"sync"

	pkgerrors "github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
)

// Memory is an in-process provider and sink. It backs dry runs and tests.
type Memory struct {
	id     ID
	format BookingFormat

	mu      sync.Mutex
	records []events.Record
	nextRef int
}

// NewMemory creates a Memory holding records. Records are returned by Fetch
// as given; applied adds are stored in format.
func NewMemory(id ID, format BookingFormat, records ...events.Record) *Memory {
	return &Memory{id: id, format: format.withDefaults(), records: slices.Clone(records)}
}

// ID implements Provider.
func (m *Memory) ID() ID {
	return m.id
}

// Fetch implements Provider.
func (m *Memory) Fetch(ctx context.Context, rng events.Range) ([]events.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []events.Record
	for _, r := range m.records {
		if (rng.From.IsZero() && rng.To.IsZero()) || rng.Overlaps(r.Start, r.End) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Apply implements Sink.
func (m *Memory) Apply(ctx context.Context, changes []events.Record) (ApplyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var report ApplyReport
	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Record(c, m.applyLocked(c))
	}
	return report, nil
}

func (m *Memory) applyLocked(c events.Record) error {
	switch c.Origin {
	case events.OriginAdd:
		m.nextRef++
		b, err := m.format.Booking(c, fmt.Sprintf("MEM%06d", m.nextRef))
		if err != nil {
			return err
		}
		m.records = append(m.records, b)
		return nil
	case events.OriginDelete:
		ref, err := m.format.Ref(c)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(m.records, func(r events.Record) bool {
			return r.Origin == m.format.Origin && m.format.StoredRef(r) == ref
		})
		if i < 0 {
			return pkgerrors.NewNotFoundError("booking", ref)
		}
		m.records = slices.Delete(m.records, i, i+1)
		return nil
	default:
		return fmt.Errorf("%w: change origin %q", pkgerrors.ErrInvalidInput, c.Origin)
	}
}

// Records returns a copy of the stored records.
func (m *Memory) Records() []events.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}
