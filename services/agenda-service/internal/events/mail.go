package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/email"
)

// EmailListener mails the patient and the professional. Each recipient is
// attempted even when another fails.
type EmailListener struct {
	sender email.Sender
	logger *slog.Logger
}

func NewEmailListener(sender email.Sender, logger *slog.Logger) *EmailListener {
	return &EmailListener{sender: sender, logger: logger}
}

func (l *EmailListener) Name() string { return "email" }

func (l *EmailListener) Handle(ctx context.Context, evt Event) error {
	subject, body := mailContent(evt)

	var errs []error
	for _, to := range []string{evt.Booking.Patient.Email, evt.Booking.Professional.Email} {
		to = strings.TrimSpace(to)
		if to == "" {
			continue
		}
		if err := l.sender.Send(ctx, to, subject, body); err != nil {
			l.logger.WarnContext(ctx, "booking email failed",
				"event", evt.Kind,
				"booking_id", evt.Booking.ID,
				"to", to,
				"err", err,
			)
			errs = append(errs, fmt.Errorf("send to %s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

func mailContent(evt Event) (subject, body string) {
	b := evt.Booking
	when := b.DateString() + " " + b.Time.String()
	professional := b.Professional.FullName()
	if professional == "" {
		professional = "the professional"
	}

	switch evt.Kind {
	case BookingCreated:
		return "Booking created", fmt.Sprintf("Booking #%s for %s with %s has been created.", b.ID, when, professional)
	case BookingCancelled:
		body = fmt.Sprintf("Booking #%s scheduled for %s has been cancelled.", b.ID, when)
		if evt.Message != "" {
			body += "\n\n" + evt.Message
		}
		return "Booking cancelled", body
	case BookingRescheduled:
		return "Booking rescheduled", fmt.Sprintf("Booking #%s has been rescheduled to %s with %s.", b.ID, when, professional)
	default:
		return "Booking update", fmt.Sprintf("Booking #%s was updated (%s) for %s.", b.ID, evt.Kind, when)
	}
}
