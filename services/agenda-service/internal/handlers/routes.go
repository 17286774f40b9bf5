package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/nutriagenda/libs/httpx"
)

// Register mounts the agenda API on mux. Every route except the slot query
// requires an identified actor.
func Register(mux *http.ServeMux, avail *AvailabilityHandler, bookings *BookingHandler, authn httpx.Middleware) {
	protect := func(h http.HandlerFunc) http.Handler { return authn(h) }

	mux.HandleFunc("/api/v1/slots", avail.Slots)
	mux.Handle("/api/v1/availability", protect(avail.ReplaceAvailability))
	mux.Handle("/api/v1/bookings", protect(bookings.Create))
	mux.Handle("/api/v1/bookings/cancel", protect(bookings.Cancel))
	mux.Handle("/api/v1/bookings/reschedule", protect(bookings.Reschedule))
	mux.Handle("/api/v1/patients/bookings", protect(bookings.PatientBookings))
}
