package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/apperr"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/events"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func create(t *testing.T, f *fixture, actor model.Actor, req CreateRequest) string {
	t.Helper()
	res, err := f.svc.Create(context.Background(), req, actor)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return res.BookingID
}

func TestCreateByPatient(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Create(context.Background(), CreateRequest{
		ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00",
	}, patientAna)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	b, ok, _ := f.store.FindBookingByID(context.Background(), res.BookingID)
	if !ok || b.Status != model.StatusPending || b.PatientID != "pat-ana" {
		t.Fatalf("unexpected booking %+v", b)
	}
	if !f.store.links[[2]string{"pat-ana", "prof-x"}] {
		t.Fatal("expected patient-professional link")
	}
	if got := f.notifier.kinds(); len(got) != 1 || got[0] != events.BookingCreated {
		t.Fatalf("expected one created event, got %v", got)
	}
	if f.notifier.sent[0].booking.Professional.FirstName != "Luis" {
		t.Fatalf("expected snapshot with participants, got %+v", f.notifier.sent[0].booking)
	}
	if !strings.Contains(res.Calendar.ICS, "DTSTART:20240603T090000Z") || res.Calendar.Link == "" {
		t.Fatalf("unexpected calendar payload %+v", res.Calendar)
	}
}

func TestCreateOwnership(t *testing.T) {
	f := newFixture()
	cases := []struct {
		name  string
		actor model.Actor
		req   CreateRequest
	}{
		{"patient booking for someone else", patientAna, CreateRequest{PatientID: "pat-bob", ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"}},
		{"unknown patient user", model.Actor{UserID: "ghost", Role: model.RolePatient}, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"}},
		{"professional for another practice", proMaria, CreateRequest{PatientID: "pat-ana", ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"}},
		{"professional without link", proLuis, CreateRequest{PatientID: "pat-ana", ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"}},
		{"unknown role", model.Actor{UserID: "u-ana", Role: "admin"}, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"}},
	}
	for _, tc := range cases {
		if _, err := f.svc.Create(context.Background(), tc.req, tc.actor); !apperr.Is(err, apperr.KindForbidden) {
			t.Fatalf("%s: expected forbidden, got %v", tc.name, err)
		}
	}
	if len(f.store.bookings) != 0 || len(f.notifier.kinds()) != 0 {
		t.Fatal("no booking or event expected")
	}
}

func TestCreateByLinkedProfessional(t *testing.T) {
	f := newFixture()
	f.store.links[[2]string{"pat-bob", "prof-x"}] = true
	id := create(t, f, proLuis, CreateRequest{PatientID: "pat-bob", ProfessionalID: "prof-x", Date: "2024-06-04", Time: "15:30"})
	if b := f.store.bookings[id]; b.PatientID != "pat-bob" {
		t.Fatalf("unexpected booking %+v", b)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	cases := map[string]CreateRequest{
		"missing professional": {Date: "2024-06-03", Time: "09:00"},
		"bad date":             {ProfessionalID: "prof-x", Date: "03/06/2024", Time: "09:00"},
		"bad time":             {ProfessionalID: "prof-x", Date: "2024-06-03", Time: "9am"},
		"outside windows":      {ProfessionalID: "prof-x", Date: "2024-06-03", Time: "13:00"},
		"no windows that day":  {ProfessionalID: "prof-x", Date: "2024-06-05", Time: "09:00"},
	}
	for name, req := range cases {
		if _, err := f.svc.Create(context.Background(), req, patientAna); !apperr.Is(err, apperr.KindBadRequest) {
			t.Fatalf("%s: expected bad request, got %v", name, err)
		}
	}
}

func TestCreateConflict(t *testing.T) {
	f := newFixture()
	create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"})
	_, err := f.svc.Create(context.Background(), CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"}, patientBob)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestConcurrentCreatesKeepOneActiveBooking(t *testing.T) {
	f := newFixture()
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		actor := patientAna
		if i%2 == 1 {
			actor = patientBob
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "10:00"}, actor)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case !apperr.Is(err, apperr.KindConflict):
			t.Fatalf("unexpected error %v", err)
		}
	}
	date := mustDate(t, "2024-06-03")
	if ok != 1 || f.store.activeAt("prof-x", date, 10*60) != 1 {
		t.Fatalf("expected exactly one active booking, got ok=%d active=%d", ok, f.store.activeAt("prof-x", date, 10*60))
	}
}

func TestCancelThenCancelAgain(t *testing.T) {
	f := newFixture()
	id := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"})

	if err := f.svc.Cancel(context.Background(), id, "duplicate", patientAna); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if f.store.bookings[id].Status != model.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", f.store.bookings[id].Status)
	}
	last := f.notifier.sent[len(f.notifier.sent)-1]
	if last.kind != events.BookingCancelled || last.message != "Booking cancelled by the patient. Reason: duplicate" {
		t.Fatalf("unexpected notification %+v", last)
	}

	if err := f.svc.Cancel(context.Background(), id, "again", patientAna); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request on re-cancel, got %v", err)
	}
	if got := len(f.notifier.kinds()); got != 2 {
		t.Fatalf("re-cancel must not notify, got %d events", got)
	}
}

func TestCancelByProfessionalDefaultReason(t *testing.T) {
	f := newFixture()
	id := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"})
	if err := f.svc.Cancel(context.Background(), id, "  ", proLuis); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	last := f.notifier.sent[len(f.notifier.sent)-1]
	if last.message != "Booking cancelled by the professional. Reason: not specified" {
		t.Fatalf("unexpected message %q", last.message)
	}
}

func TestCancelErrors(t *testing.T) {
	f := newFixture()
	id := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"})

	if err := f.svc.Cancel(context.Background(), "missing", "", patientAna); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, actor := range []model.Actor{patientBob, proMaria, {UserID: "u-ana", Role: "admin"}} {
		if err := f.svc.Cancel(context.Background(), id, "", actor); !apperr.Is(err, apperr.KindForbidden) {
			t.Fatalf("actor %+v: expected forbidden, got %v", actor, err)
		}
	}
	if f.store.bookings[id].Status != model.StatusPending {
		t.Fatal("booking must be untouched")
	}
}

func TestCancelStoreFailureIsInternal(t *testing.T) {
	f := newFixture()
	id := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"})
	boom := errors.New("connection reset")
	f.store.failUpdate = boom
	err := f.svc.Cancel(context.Background(), id, "", patientAna)
	if !errors.Is(err, boom) || apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if len(f.notifier.kinds()) != 1 {
		t.Fatal("failed cancel must not notify")
	}
}

func TestRescheduleConfirmsAndNotifies(t *testing.T) {
	f := newFixture()
	id := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"})

	cal, err := f.svc.Reschedule(context.Background(), id, "2024-06-04", "14:30", patientAna)
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	b := f.store.bookings[id]
	if b.Status != model.StatusConfirmed || b.DateString() != "2024-06-04" || b.Time.String() != "14:30" {
		t.Fatalf("unexpected booking %+v", b)
	}
	if !strings.Contains(cal.ICS, "DTSTART:20240604T143000Z") {
		t.Fatalf("expected refreshed calendar, got %q", cal.ICS)
	}
	last := f.notifier.sent[len(f.notifier.sent)-1]
	if last.kind != events.BookingRescheduled || last.message != "Booking rescheduled by the patient" {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestRescheduleAcceptsWindowEndInclusive(t *testing.T) {
	f := newFixture()
	id := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"})
	if _, err := f.svc.Reschedule(context.Background(), id, "2024-06-03", "12:00", proLuis); err != nil {
		t.Fatalf("expected window end to be accepted, got %v", err)
	}
}

func TestRescheduleIntoOccupiedSlotConflicts(t *testing.T) {
	f := newFixture()
	a := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"})
	if _, err := f.svc.Reschedule(context.Background(), a, "2024-06-03", "09:00", patientAna); err != nil {
		t.Fatalf("confirm A: %v", err)
	}
	b := create(t, f, patientBob, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "10:00"})

	if _, err := f.svc.Reschedule(context.Background(), b, "2024-06-03", "09:00", patientBob); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if got := f.store.bookings[a]; got.Status != model.StatusConfirmed || got.Time.String() != "09:00" {
		t.Fatalf("booking A must be unaffected, got %+v", got)
	}
	if got := f.store.bookings[b]; got.Time.String() != "10:00" || got.Status != model.StatusPending {
		t.Fatalf("booking B must be unchanged, got %+v", got)
	}
}

func TestRescheduleErrors(t *testing.T) {
	f := newFixture()
	id := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"})

	cases := []struct {
		name  string
		id    string
		date  string
		at    string
		actor model.Actor
		kind  apperr.Kind
	}{
		{"missing booking", "nope", "2024-06-03", "10:00", patientAna, apperr.KindNotFound},
		{"other patient", id, "2024-06-03", "10:00", patientBob, apperr.KindForbidden},
		{"other professional", id, "2024-06-03", "10:00", proMaria, apperr.KindForbidden},
		{"bad date", id, "2024-13-40", "10:00", patientAna, apperr.KindBadRequest},
		{"bad time", id, "2024-06-03", "10", patientAna, apperr.KindBadRequest},
		{"no windows", id, "2024-06-05", "10:00", patientAna, apperr.KindBadRequest},
		{"outside windows", id, "2024-06-03", "12:01", patientAna, apperr.KindBadRequest},
	}
	for _, tc := range cases {
		_, err := f.svc.Reschedule(context.Background(), tc.id, tc.date, tc.at, tc.actor)
		if !apperr.Is(err, tc.kind) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.kind, err)
		}
	}
}

func TestCancelledBookingStaysCancelled(t *testing.T) {
	f := newFixture()
	id := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"})
	if err := f.svc.Cancel(context.Background(), id, "", patientAna); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.svc.Reschedule(context.Background(), id, "2024-06-03", "10:00", patientAna); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	if f.store.bookings[id].Status != model.StatusCancelled {
		t.Fatal("cancelled booking must stay cancelled")
	}

	// The freed slot can be booked again.
	create(t, f, patientBob, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"})
}

func TestListPatientBookings(t *testing.T) {
	f := newFixture()
	past := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-05-27", Time: "09:00"})
	cancelled := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "09:00"})
	next := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-03", Time: "11:00"})
	later := create(t, f, patientAna, CreateRequest{ProfessionalID: "prof-x", Date: "2024-06-10", Time: "09:00"})
	if err := f.svc.Cancel(context.Background(), cancelled, "", patientAna); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	agenda, err := f.svc.ListPatientBookings(context.Background(), "", patientAna)
	if err != nil {
		t.Fatalf("ListPatientBookings: %v", err)
	}
	if agenda.Next == nil || agenda.Next.ID != next {
		t.Fatalf("expected next %s, got %+v", next, agenda.Next)
	}
	var ids []string
	for _, b := range agenda.History {
		ids = append(ids, b.ID)
	}
	if strings.Join(ids, ",") != strings.Join([]string{past, cancelled, later}, ",") {
		t.Fatalf("unexpected history %v", ids)
	}

	if _, err := f.svc.ListPatientBookings(context.Background(), "pat-ana", proMaria); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for unlinked professional, got %v", err)
	}
	if _, err := f.svc.ListPatientBookings(context.Background(), "pat-ana", proLuis); err != nil {
		t.Fatalf("linked professional: %v", err)
	}
	if _, err := f.svc.ListPatientBookings(context.Background(), "pat-bob", patientAna); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for another patient, got %v", err)
	}
}
