package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/calendar"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/events"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

// Store is the persistence the state machine runs against. Calls made with the
// context passed to InTx's fn join that transaction, and reads of a single
// booking inside it lock the row.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	FindAvailabilityWindows(ctx context.Context, professionalID string, day model.Weekday) ([]model.AvailabilityWindow, error)
	InsertBooking(ctx context.Context, b model.Booking) (string, error)
	FindBookingByID(ctx context.Context, id string) (model.Booking, bool, error)
	UpdateBookingStatus(ctx context.Context, id string, status model.Status) error
	UpdateBookingDateTimeStatus(ctx context.Context, id string, date time.Time, at model.TimeOfDay, status model.Status) error
	// ExistsConflictingBooking reports an active booking at the key other than excludeID.
	ExistsConflictingBooking(ctx context.Context, professionalID string, date time.Time, at model.TimeOfDay, excludeID string) (bool, error)
	// FindBookingsByPatient returns the patient's bookings ordered by date and time.
	FindBookingsByPatient(ctx context.Context, patientID string) ([]model.Booking, error)
}

type LinkService interface {
	EnsurePatientProfessionalLink(ctx context.Context, patientID, professionalID string) error
}

// Directory resolves users to their profiles. Lookups return "" when the user
// has no such profile.
type Directory interface {
	PatientIDForUser(ctx context.Context, userID string) (string, error)
	ProfessionalIDForUser(ctx context.Context, userID string) (string, error)
	HasActiveLink(ctx context.Context, patientID, professionalID string) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, kind events.Kind, b model.Booking, message string)
}

type CalendarBuilder interface {
	Build(b model.Booking) calendar.Payload
}
