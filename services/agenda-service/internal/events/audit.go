package events

import (
	"context"
	"fmt"
)

type AuditStore interface {
	InsertBookingEventLog(ctx context.Context, bookingID, message string) error
}

// AuditListener writes one booking_event_log row per event.
type AuditListener struct {
	store AuditStore
}

func NewAuditListener(store AuditStore) *AuditListener {
	return &AuditListener{store: store}
}

func (l *AuditListener) Name() string { return "audit-log" }

func (l *AuditListener) Handle(ctx context.Context, evt Event) error {
	msg := evt.Message
	if msg == "" {
		msg = auditMessage(evt)
	}
	return l.store.InsertBookingEventLog(ctx, evt.Booking.ID, msg)
}

func auditMessage(evt Event) string {
	b := evt.Booking
	when := b.DateString() + " " + b.Time.String()
	switch evt.Kind {
	case BookingCreated:
		return "Booking created for " + when
	case BookingCancelled:
		return fmt.Sprintf("Booking #%s cancelled", b.ID)
	case BookingRescheduled:
		return fmt.Sprintf("Booking #%s rescheduled to %s", b.ID, when)
	default:
		return fmt.Sprintf("Event %s recorded for booking #%s", evt.Kind, b.ID)
	}
}
