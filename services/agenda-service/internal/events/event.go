package events

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

type Kind string

const (
	BookingCreated     Kind = "booking.created"
	BookingCancelled   Kind = "booking.cancelled"
	BookingRescheduled Kind = "booking.rescheduled"
)

// Event is a booking lifecycle notification. Booking is a snapshot taken after
// the transition was committed.
type Event struct {
	Kind       Kind
	Booking    model.Booking
	Message    string
	OccurredAt time.Time
}

// Listener reacts to events. Name identifies the listener for de-duplication
// and logging.
type Listener interface {
	Name() string
	Handle(ctx context.Context, evt Event) error
}
