package model

import (
	"strings"
	"time"
)

type Status int16

const (
	StatusPending   Status = 1
	StatusConfirmed Status = 2
	StatusCancelled Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Active statuses hold a slot.
func (s Status) Active() bool { return s == StatusPending || s == StatusConfirmed }

type Participant struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

func (p Participant) FullName() string {
	return strings.TrimSpace(strings.Join([]string{p.FirstName, p.LastName}, " "))
}

type Booking struct {
	ID              string
	Date            time.Time
	Time            TimeOfDay
	PatientID       string
	ProfessionalID  string
	ModalityID      *int64
	PaymentMethodID *int64
	Status          Status
	Patient         Participant
	Professional    Participant
	CreatedAt       time.Time
}

// DateString formats Date as YYYY-MM-DD, or "" when unset.
func (b Booking) DateString() string {
	if b.Date.IsZero() {
		return ""
	}
	return b.Date.Format(DateLayout)
}
