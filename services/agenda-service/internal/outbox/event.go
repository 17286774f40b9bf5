package outbox

import (
	"encoding/json"
	"time"
)

// Topics, one per booking event type.
const (
	TopicBookingCreated     = "agenda.booking.created.v1"
	TopicBookingCancelled   = "agenda.booking.cancelled.v1"
	TopicBookingRescheduled = "agenda.booking.rescheduled.v1"

	AggregateBooking = "booking"
)

// Event is the envelope written to outbox_events. The Kafka topic equals
// EventType and the message key is AggregateID.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// BookingPayload is the JSON body of every booking event.
type BookingPayload struct {
	BookingID      string    `json:"booking_id"`
	PatientID      string    `json:"patient_id"`
	ProfessionalID string    `json:"professional_id"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	Status         string    `json:"status"`
	Message        string    `json:"message,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (p BookingPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}
