package events

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/outbox"
)

type OutboxWriter interface {
	Enqueue(ctx context.Context, evt outbox.Event) error
}

var topics = map[Kind]string{
	BookingCreated:     outbox.TopicBookingCreated,
	BookingCancelled:   outbox.TopicBookingCancelled,
	BookingRescheduled: outbox.TopicBookingRescheduled,
}

// StreamListener records events in the outbox for the Kafka relay.
type StreamListener struct {
	outbox OutboxWriter
}

func NewStreamListener(w OutboxWriter) *StreamListener {
	return &StreamListener{outbox: w}
}

func (l *StreamListener) Name() string { return "event-stream" }

func (l *StreamListener) Handle(ctx context.Context, evt Event) error {
	topic, ok := topics[evt.Kind]
	if !ok {
		return fmt.Errorf("no topic for event %s", evt.Kind)
	}
	b := evt.Booking
	payload, err := outbox.BookingPayload{
		BookingID:      b.ID,
		PatientID:      b.PatientID,
		ProfessionalID: b.ProfessionalID,
		Date:           b.DateString(),
		Time:           b.Time.String(),
		Status:         b.Status.String(),
		Message:        evt.Message,
		OccurredAt:     evt.OccurredAt,
	}.Marshal()
	if err != nil {
		return err
	}
	return l.outbox.Enqueue(ctx, outbox.Event{
		AggregateType: outbox.AggregateBooking,
		AggregateID:   b.ID,
		EventType:     topic,
		Payload:       payload,
	})
}
