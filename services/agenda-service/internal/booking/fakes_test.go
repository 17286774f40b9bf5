package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/apperr"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/calendar"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/events"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

// memStore is an in-memory Store, LinkService and Directory. InTx restores the
// previous state when fn fails, and InsertBooking enforces the active-slot
// uniqueness the database index provides. Transactions run one at a time.
type memStore struct {
	tx       sync.Mutex
	mu       sync.Mutex
	windows  []model.AvailabilityWindow
	bookings map[string]model.Booking
	links    map[[2]string]bool
	patients map[string]string // user id -> patient id
	pros     map[string]string // user id -> professional id
	people   map[string]model.Participant
	seq      int

	failUpdate error
}

func newMemStore() *memStore {
	return &memStore{
		bookings: map[string]model.Booking{},
		links:    map[[2]string]bool{},
		patients: map[string]string{},
		pros:     map[string]string{},
		people:   map[string]model.Participant{},
	}
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.tx.Lock()
	defer m.tx.Unlock()

	m.mu.Lock()
	bookings := make(map[string]model.Booking, len(m.bookings))
	for k, v := range m.bookings {
		bookings[k] = v
	}
	links := make(map[[2]string]bool, len(m.links))
	for k, v := range m.links {
		links[k] = v
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.bookings, m.links = bookings, links
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) FindAvailabilityWindows(_ context.Context, professionalID string, day model.Weekday) ([]model.AvailabilityWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AvailabilityWindow
	for _, w := range m.windows {
		if w.ProfessionalID == professionalID && w.Weekday == day {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) InsertBooking(_ context.Context, b model.Booking) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookings {
		if sameSlot(existing, b.ProfessionalID, b.Date, b.Time) && existing.Status.Active() {
			return "", apperr.Wrap(apperr.KindConflict, "the requested slot is already booked", errors.New("unique violation"))
		}
	}
	m.seq++
	b.ID = fmt.Sprintf("b-%d", m.seq)
	m.bookings[b.ID] = b
	return b.ID, nil
}

func (m *memStore) FindBookingByID(_ context.Context, id string) (model.Booking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if ok {
		b.Patient = m.people[b.PatientID]
		b.Professional = m.people[b.ProfessionalID]
	}
	return b, ok, nil
}

func (m *memStore) UpdateBookingStatus(_ context.Context, id string, status model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return m.failUpdate
	}
	b := m.bookings[id]
	b.Status = status
	m.bookings[id] = b
	return nil
}

func (m *memStore) UpdateBookingDateTimeStatus(_ context.Context, id string, date time.Time, at model.TimeOfDay, status model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return m.failUpdate
	}
	b := m.bookings[id]
	b.Date, b.Time, b.Status = date, at, status
	m.bookings[id] = b
	return nil
}

func (m *memStore) ExistsConflictingBooking(_ context.Context, professionalID string, date time.Time, at model.TimeOfDay, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range m.bookings {
		if id != excludeID && b.Status.Active() && sameSlot(b, professionalID, date, at) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FindBookingsByPatient(_ context.Context, patientID string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if b.PatientID == patientID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (m *memStore) EnsurePatientProfessionalLink(_ context.Context, patientID, professionalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[[2]string{patientID, professionalID}] = true
	return nil
}

func (m *memStore) PatientIDForUser(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.patients[userID], nil
}

func (m *memStore) ProfessionalIDForUser(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pros[userID], nil
}

func (m *memStore) HasActiveLink(_ context.Context, patientID, professionalID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[[2]string{patientID, professionalID}], nil
}

func (m *memStore) activeAt(professionalID string, date time.Time, at model.TimeOfDay) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.Status.Active() && sameSlot(b, professionalID, date, at) {
			n++
		}
	}
	return n
}

func sameSlot(b model.Booking, professionalID string, date time.Time, at model.TimeOfDay) bool {
	return b.ProfessionalID == professionalID && b.Date.Equal(date) && b.Time == at
}

type notification struct {
	kind    events.Kind
	booking model.Booking
	message string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (f *fakeNotifier) Notify(_ context.Context, kind events.Kind, b model.Booking, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{kind, b, message})
}

func (f *fakeNotifier) kinds() []events.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.Kind, 0, len(f.sent))
	for _, n := range f.sent {
		out = append(out, n.kind)
	}
	return out
}

type fixture struct {
	store    *memStore
	notifier *fakeNotifier
	svc      *Service
}

var (
	patientAna = model.Actor{UserID: "u-ana", Role: model.RolePatient}
	patientBob = model.Actor{UserID: "u-bob", Role: model.RolePatient}
	proLuis    = model.Actor{UserID: "u-luis", Role: model.RoleProfessional}
	proMaria   = model.Actor{UserID: "u-maria", Role: model.RoleProfessional}
)

// newFixture seeds professional prof-x with Monday 09:00-12:00 and Tuesday
// 14:00-16:00 windows, and patients pat-ana and pat-bob.
func newFixture() *fixture {
	st := newMemStore()
	st.patients["u-ana"] = "pat-ana"
	st.patients["u-bob"] = "pat-bob"
	st.pros["u-luis"] = "prof-x"
	st.pros["u-maria"] = "prof-y"
	st.people["pat-ana"] = model.Participant{ID: "pat-ana", FirstName: "Ana", Email: "ana@example.com"}
	st.people["prof-x"] = model.Participant{ID: "prof-x", FirstName: "Luis", LastName: "Gil", Email: "luis@example.com"}
	st.windows = []model.AvailabilityWindow{
		{ProfessionalID: "prof-x", Weekday: 1, Start: 9 * 60, End: 12 * 60},
		{ProfessionalID: "prof-x", Weekday: 2, Start: 14 * 60, End: 16 * 60},
	}

	n := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(st, st, st, n, calendar.NewFormatter(time.UTC, time.Hour), logger, time.UTC)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	return &fixture{store: st, notifier: n, svc: svc}
}
