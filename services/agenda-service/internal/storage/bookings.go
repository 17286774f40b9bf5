package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

const bookingColumns = `
	b.id::text, b.date, to_char(b.time, 'HH24:MI'), b.patient_id::text, b.professional_id::text,
	b.modality_id, b.payment_method_id, b.status, b.created_at,
	pa.first_name, pa.last_name, pa.email,
	pr.first_name, pr.last_name, pr.email`

const bookingFrom = `
	FROM bookings b
	JOIN patients pa ON pa.id = b.patient_id
	JOIN professionals pr ON pr.id = b.professional_id`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var (
		b  model.Booking
		at string
	)
	err := row.Scan(
		&b.ID,
		&b.Date,
		&at,
		&b.PatientID,
		&b.ProfessionalID,
		&b.ModalityID,
		&b.PaymentMethodID,
		&b.Status,
		&b.CreatedAt,
		&b.Patient.FirstName,
		&b.Patient.LastName,
		&b.Patient.Email,
		&b.Professional.FirstName,
		&b.Professional.LastName,
		&b.Professional.Email,
	)
	if err != nil {
		return model.Booking{}, err
	}
	if b.Time, err = model.ParseTimeOfDay(at); err != nil {
		return model.Booking{}, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	b.Patient.ID = b.PatientID
	b.Professional.ID = b.ProfessionalID
	return b, nil
}

// InsertBooking stores b under a fresh id. A concurrent booking of the same
// active slot surfaces as a Conflict error.
func (s *Store) InsertBooking(ctx context.Context, b model.Booking) (string, error) {
	id := uuid.NewString()
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO bookings (id, date, time, patient_id, professional_id, modality_id, payment_method_id, status)
		VALUES ($1, $2::date, $3::time, $4, $5, $6, $7, $8)
	`, id, b.DateString(), b.Time.String(), b.PatientID, b.ProfessionalID, b.ModalityID, b.PaymentMethodID, int16(b.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return "", conflict(err)
		}
		return "", err
	}
	return id, nil
}

// FindBookingByID loads a booking with its participants. Inside a transaction
// the booking row is locked until commit.
func (s *Store) FindBookingByID(ctx context.Context, id string) (model.Booking, bool, error) {
	if !validID(id) {
		return model.Booking{}, false, nil
	}
	sql := `SELECT ` + bookingColumns + bookingFrom + ` WHERE b.id = $1`
	if inTx(ctx) {
		sql += ` FOR UPDATE OF b`
	}
	b, err := scanBooking(s.q(ctx).QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, err
	}
	return b, true, nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id string, status model.Status) error {
	tag, err := s.q(ctx).Exec(ctx, `
		UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1
	`, id, int16(status))
	if err != nil {
		if isUniqueViolation(err) {
			return conflict(err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) UpdateBookingDateTimeStatus(ctx context.Context, id string, date time.Time, at model.TimeOfDay, status model.Status) error {
	tag, err := s.q(ctx).Exec(ctx, `
		UPDATE bookings
		SET date = $2::date,
			time = $3::time,
			status = $4,
			updated_at = now()
		WHERE id = $1
	`, id, date.Format(model.DateLayout), at.String(), int16(status))
	if err != nil {
		if isUniqueViolation(err) {
			return conflict(err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) ExistsConflictingBooking(ctx context.Context, professionalID string, date time.Time, at model.TimeOfDay, excludeID string) (bool, error) {
	if !validID(professionalID) {
		return false, nil
	}
	var exclude *string
	if validID(excludeID) {
		exclude = &excludeID
	}
	var exists bool
	err := s.q(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE professional_id = $1
				AND date = $2::date
				AND time = $3::time
				AND status IN (1, 2)
				AND ($4::uuid IS NULL OR id <> $4::uuid)
		)
	`, professionalID, date.Format(model.DateLayout), at.String(), exclude).Scan(&exists)
	return exists, err
}

func (s *Store) FindActiveBookingTimes(ctx context.Context, professionalID string, date time.Time) ([]model.TimeOfDay, error) {
	if !validID(professionalID) {
		return nil, nil
	}
	rows, err := s.q(ctx).Query(ctx, `
		SELECT to_char(time, 'HH24:MI')
		FROM bookings
		WHERE professional_id = $1 AND date = $2::date AND status IN (1, 2)
	`, professionalID, date.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TimeOfDay
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		t, err := model.ParseTimeOfDay(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) FindBookingsByPatient(ctx context.Context, patientID string) ([]model.Booking, error) {
	if !validID(patientID) {
		return nil, nil
	}
	rows, err := s.q(ctx).Query(ctx, `SELECT `+bookingColumns+bookingFrom+`
		WHERE b.patient_id = $1
		ORDER BY b.date, b.time
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) InsertBookingEventLog(ctx context.Context, bookingID, message string) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO booking_event_log (booking_id, message) VALUES ($1, $2)
	`, bookingID, message)
	return err
}
