package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/apperr"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/calendar"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/events"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

type CreateRequest struct {
	PatientID       string
	ProfessionalID  string
	Date            string
	Time            string
	ModalityID      *int64
	PaymentMethodID *int64
}

type CreateResult struct {
	BookingID string
	Calendar  calendar.Payload
}

// PatientAgenda splits a patient's bookings into the next upcoming active one
// and everything else.
type PatientAgenda struct {
	Next    *model.Booking
	History []model.Booking
}

// Service drives the booking lifecycle: PENDING on create, CONFIRMED after a
// reschedule, CANCELLED terminally.
type Service struct {
	store    Store
	dir      Directory
	links    LinkService
	notifier Notifier
	calendar CalendarBuilder
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewService(store Store, dir Directory, links LinkService, notifier Notifier, cal CalendarBuilder, logger *slog.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:    store,
		dir:      dir,
		links:    links,
		notifier: notifier,
		calendar: cal,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req CreateRequest, actor model.Actor) (CreateResult, error) {
	req.ProfessionalID = strings.TrimSpace(req.ProfessionalID)
	req.PatientID = strings.TrimSpace(req.PatientID)
	if req.ProfessionalID == "" {
		return CreateResult{}, apperr.BadRequest("professional_id is required")
	}
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return CreateResult{}, apperr.BadRequest(err.Error())
	}
	at, err := model.ParseTimeOfDay(strings.TrimSpace(req.Time))
	if err != nil {
		return CreateResult{}, apperr.BadRequest(err.Error())
	}

	patientID, err := s.bookingPatient(ctx, req, actor)
	if err != nil {
		return CreateResult{}, err
	}

	b := model.Booking{
		Date:            date,
		Time:            at,
		PatientID:       patientID,
		ProfessionalID:  req.ProfessionalID,
		ModalityID:      req.ModalityID,
		PaymentMethodID: req.PaymentMethodID,
		Status:          model.StatusPending,
	}
	err = s.store.InTx(ctx, func(ctx context.Context) error {
		if err := s.ensureBookable(ctx, b.ProfessionalID, date, at, ""); err != nil {
			return err
		}
		id, err := s.store.InsertBooking(ctx, b)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		b.ID = id
		if err := s.links.EnsurePatientProfessionalLink(ctx, b.PatientID, b.ProfessionalID); err != nil {
			return fmt.Errorf("link patient: %w", err)
		}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}
	s.logger.InfoContext(ctx, "booking created",
		"booking_id", b.ID,
		"professional_id", b.ProfessionalID,
		"date", b.DateString(),
		"time", b.Time.String(),
	)

	snapshot := s.snapshot(ctx, b)
	s.notifier.Notify(ctx, events.BookingCreated, snapshot, "")
	return CreateResult{BookingID: b.ID, Calendar: s.calendar.Build(snapshot)}, nil
}

// bookingPatient decides whose booking this is. Patients book for themselves;
// professionals book for a linked patient of their own practice.
func (s *Service) bookingPatient(ctx context.Context, req CreateRequest, actor model.Actor) (string, error) {
	switch actor.Role {
	case model.RolePatient:
		own, err := s.dir.PatientIDForUser(ctx, actor.UserID)
		if err != nil {
			return "", fmt.Errorf("resolve patient: %w", err)
		}
		if own == "" || (req.PatientID != "" && req.PatientID != own) {
			return "", apperr.Forbidden("patients can only book for themselves")
		}
		return own, nil
	case model.RoleProfessional:
		own, err := s.dir.ProfessionalIDForUser(ctx, actor.UserID)
		if err != nil {
			return "", fmt.Errorf("resolve professional: %w", err)
		}
		if own == "" || own != req.ProfessionalID {
			return "", apperr.Forbidden("not allowed to book for this professional")
		}
		if req.PatientID == "" {
			return "", apperr.BadRequest("patient_id is required")
		}
		linked, err := s.dir.HasActiveLink(ctx, req.PatientID, req.ProfessionalID)
		if err != nil {
			return "", fmt.Errorf("check link: %w", err)
		}
		if !linked {
			return "", apperr.Forbidden("patient is not linked to this professional")
		}
		return req.PatientID, nil
	default:
		return "", apperr.Forbidden("not authorized")
	}
}

func (s *Service) Cancel(ctx context.Context, bookingID, reason string, actor model.Actor) error {
	var b model.Booking
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.load(ctx, bookingID); err != nil {
			return err
		}
		if b.Status == model.StatusCancelled {
			return apperr.BadRequest("booking is already cancelled")
		}
		if err := s.authorize(ctx, b, actor); err != nil {
			return err
		}
		if err := s.store.UpdateBookingStatus(ctx, b.ID, model.StatusCancelled); err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		b.Status = model.StatusCancelled
		return nil
	})
	if err != nil {
		return err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "not specified"
	}
	msg := fmt.Sprintf("Booking cancelled by the %s. Reason: %s", actor.Role, reason)
	s.logger.InfoContext(ctx, "booking cancelled", "booking_id", b.ID, "by", actor.Role)
	s.notifier.Notify(ctx, events.BookingCancelled, s.snapshot(ctx, b), msg)
	return nil
}

func (s *Service) Reschedule(ctx context.Context, bookingID, newDate, newTime string, actor model.Actor) (calendar.Payload, error) {
	var b model.Booking
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.load(ctx, bookingID); err != nil {
			return err
		}
		if err := s.authorize(ctx, b, actor); err != nil {
			return err
		}
		if b.Status == model.StatusCancelled {
			return apperr.BadRequest("a cancelled booking cannot be rescheduled")
		}
		date, err := model.ParseDate(strings.TrimSpace(newDate))
		if err != nil {
			return apperr.BadRequest(err.Error())
		}
		at, err := model.ParseTimeOfDay(strings.TrimSpace(newTime))
		if err != nil {
			return apperr.BadRequest(err.Error())
		}
		if err := s.ensureBookable(ctx, b.ProfessionalID, date, at, b.ID); err != nil {
			return err
		}
		if err := s.store.UpdateBookingDateTimeStatus(ctx, b.ID, date, at, model.StatusConfirmed); err != nil {
			return fmt.Errorf("reschedule booking: %w", err)
		}
		b.Date, b.Time, b.Status = date, at, model.StatusConfirmed
		return nil
	})
	if err != nil {
		return calendar.Payload{}, err
	}

	s.logger.InfoContext(ctx, "booking rescheduled",
		"booking_id", b.ID,
		"date", b.DateString(),
		"time", b.Time.String(),
		"by", actor.Role,
	)
	snapshot := s.snapshot(ctx, b)
	s.notifier.Notify(ctx, events.BookingRescheduled, snapshot, fmt.Sprintf("Booking rescheduled by the %s", actor.Role))
	return s.calendar.Build(snapshot), nil
}

// ListPatientBookings returns the agenda of a patient. Patients see their own;
// professionals see patients linked to them.
func (s *Service) ListPatientBookings(ctx context.Context, patientID string, actor model.Actor) (PatientAgenda, error) {
	patientID = strings.TrimSpace(patientID)
	switch actor.Role {
	case model.RolePatient:
		own, err := s.dir.PatientIDForUser(ctx, actor.UserID)
		if err != nil {
			return PatientAgenda{}, fmt.Errorf("resolve patient: %w", err)
		}
		if own == "" || (patientID != "" && patientID != own) {
			return PatientAgenda{}, apperr.Forbidden("not allowed to view these bookings")
		}
		patientID = own
	case model.RoleProfessional:
		own, err := s.dir.ProfessionalIDForUser(ctx, actor.UserID)
		if err != nil {
			return PatientAgenda{}, fmt.Errorf("resolve professional: %w", err)
		}
		if patientID == "" {
			return PatientAgenda{}, apperr.BadRequest("patient_id is required")
		}
		linked := false
		if own != "" {
			if linked, err = s.dir.HasActiveLink(ctx, patientID, own); err != nil {
				return PatientAgenda{}, fmt.Errorf("check link: %w", err)
			}
		}
		if !linked {
			return PatientAgenda{}, apperr.Forbidden("patient is not linked to this professional")
		}
	default:
		return PatientAgenda{}, apperr.Forbidden("not authorized")
	}

	all, err := s.store.FindBookingsByPatient(ctx, patientID)
	if err != nil {
		return PatientAgenda{}, fmt.Errorf("list bookings: %w", err)
	}
	now := s.now().In(s.loc)
	agenda := PatientAgenda{History: []model.Booking{}}
	for i := range all {
		b := all[i]
		upcoming := b.Status.Active() && !model.At(b.Date, b.Time, s.loc).Before(now)
		if agenda.Next == nil && upcoming {
			agenda.Next = &b
			continue
		}
		agenda.History = append(agenda.History, b)
	}
	return agenda, nil
}

func (s *Service) load(ctx context.Context, bookingID string) (model.Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return model.Booking{}, apperr.BadRequest("booking_id is required")
	}
	b, ok, err := s.store.FindBookingByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("find booking: %w", err)
	}
	if !ok {
		return model.Booking{}, apperr.NotFound("booking not found")
	}
	return b, nil
}

func (s *Service) authorize(ctx context.Context, b model.Booking, actor model.Actor) error {
	switch actor.Role {
	case model.RolePatient:
		own, err := s.dir.PatientIDForUser(ctx, actor.UserID)
		if err != nil {
			return fmt.Errorf("resolve patient: %w", err)
		}
		if own == "" || own != b.PatientID {
			return apperr.Forbidden("booking belongs to another patient")
		}
		return nil
	case model.RoleProfessional:
		own, err := s.dir.ProfessionalIDForUser(ctx, actor.UserID)
		if err != nil {
			return fmt.Errorf("resolve professional: %w", err)
		}
		if own == "" || own != b.ProfessionalID {
			return apperr.Forbidden("booking belongs to another professional")
		}
		return nil
	default:
		return apperr.Forbidden("not authorized")
	}
}

// ensureBookable checks that at lies inside one of the professional's windows
// for that weekday and that no other active booking holds the slot. The
// partial unique index on active bookings backs the second check.
func (s *Service) ensureBookable(ctx context.Context, professionalID string, date time.Time, at model.TimeOfDay, excludeID string) error {
	windows, err := s.store.FindAvailabilityWindows(ctx, professionalID, model.WeekdayOf(date))
	if err != nil {
		return fmt.Errorf("find availability windows: %w", err)
	}
	inside := false
	for _, w := range windows {
		if w.Contains(at) {
			inside = true
			break
		}
	}
	if !inside {
		return apperr.BadRequest("the professional has no availability at the requested time")
	}

	taken, err := s.store.ExistsConflictingBooking(ctx, professionalID, date, at, excludeID)
	if err != nil {
		return fmt.Errorf("check conflicting booking: %w", err)
	}
	if taken {
		return apperr.Conflict("the requested slot is already booked")
	}
	return nil
}

// snapshot reloads the booking with participant details for listeners. On a
// read failure the in-memory copy is used instead.
func (s *Service) snapshot(ctx context.Context, b model.Booking) model.Booking {
	fresh, ok, err := s.store.FindBookingByID(ctx, b.ID)
	if err != nil || !ok {
		s.logger.WarnContext(ctx, "booking snapshot reload failed", "booking_id", b.ID, "err", err)
		return b
	}
	return fresh
}
