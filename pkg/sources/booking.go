package sources

import (
	"fmt"
	"strings"

	"github.com/syncals/syncals/pkg/constants"
	"github.com/syncals/syncals/pkg/events"
)

// BookingFormat translates between change records and the target's stored
// booking records, whose subject is office, menu, resource, person and
// reference joined by TargetSeparator.
type BookingFormat struct {
	// Origin tags fetched bookings.
	Origin events.Origin
	// Menu is written into the menu field of new bookings.
	Menu string
	// Separator splits change record subjects.
	Separator string
	// TargetSeparator joins stored booking subjects.
	TargetSeparator string
}

// DefaultBookingFormat returns the format used when none is configured.
func DefaultBookingFormat() BookingFormat {
	return BookingFormat{
		Origin:          constants.DefaultTargetOrigin,
		Separator:       constants.DefaultSubjectSeparator,
		TargetSeparator: constants.DefaultTargetSeparator,
	}
}

func (f BookingFormat) withDefaults() BookingFormat {
	d := DefaultBookingFormat()
	if f.Origin == "" {
		f.Origin = d.Origin
	}
	if f.Separator == "" {
		f.Separator = d.Separator
	}
	if f.TargetSeparator == "" {
		f.TargetSeparator = d.TargetSeparator
	}
	return f
}

// Identity decodes a change record subject.
func (f BookingFormat) Identity(change events.Record) (events.Identity, error) {
	f = f.withDefaults()
	return events.ParseIdentity(change.Subject, f.Separator)
}

// Booking builds the stored booking for an add change under reference ref.
func (f BookingFormat) Booking(change events.Record, ref string) (events.Record, error) {
	f = f.withDefaults()
	if change.Origin != events.OriginAdd {
		return events.Record{}, fmt.Errorf("booking from %s record", change.Origin)
	}
	id, err := f.Identity(change)
	if err != nil {
		return events.Record{}, err
	}
	return events.Record{
		Origin:      f.Origin,
		Start:       change.Start,
		End:         change.End,
		Subject:     f.Subject(id.Office, f.Menu, id.Resource, id.Person, ref),
		Description: change.Description,
	}, nil
}

// Subject joins stored booking fields.
func (f BookingFormat) Subject(office, menu, resource, person, ref string) string {
	f = f.withDefaults()
	return strings.Join([]string{office, menu, resource, person, ref}, f.TargetSeparator)
}

// Ref returns the booking reference a delete change points at.
func (f BookingFormat) Ref(change events.Record) (string, error) {
	id, err := f.Identity(change)
	if err != nil {
		return "", err
	}
	if change.Origin != events.OriginDelete || id.Ref == "" {
		return "", fmt.Errorf("change %q carries no booking reference", change.Subject)
	}
	return id.Ref, nil
}

// StoredRef returns the reference field of a stored booking subject.
func (f BookingFormat) StoredRef(booking events.Record) string {
	f = f.withDefaults()
	fields := strings.Split(booking.Subject, f.TargetSeparator)
	return fields[len(fields)-1]
}
