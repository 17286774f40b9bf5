package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/nutriagenda/libs/httpx"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/booking"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/calendar"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

type BookingService interface {
	Create(ctx context.Context, req booking.CreateRequest, actor model.Actor) (booking.CreateResult, error)
	Cancel(ctx context.Context, bookingID, reason string, actor model.Actor) error
	Reschedule(ctx context.Context, bookingID, newDate, newTime string, actor model.Actor) (calendar.Payload, error)
	ListPatientBookings(ctx context.Context, patientID string, actor model.Actor) (booking.PatientAgenda, error)
}

type BookingHandler struct {
	svc    BookingService
	logger *slog.Logger
}

func NewBookingHandler(svc BookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type createBookingRequest struct {
	PatientID       string `json:"patient_id"`
	ProfessionalID  string `json:"professional_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	ModalityID      *int64 `json:"modality_id"`
	PaymentMethodID *int64 `json:"payment_method_id"`
}

type createBookingResponse struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	calendar.Payload
}

type cancelBookingRequest struct {
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

type rescheduleBookingRequest struct {
	BookingID string `json:"booking_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type bookingStatusResponse struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	calendar.Payload
}

type bookingItem struct {
	BookingID        string `json:"booking_id"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Status           string `json:"status"`
	PatientID        string `json:"patient_id"`
	ProfessionalID   string `json:"professional_id"`
	ProfessionalName string `json:"professional_name,omitempty"`
	ModalityID       *int64 `json:"modality_id,omitempty"`
	PaymentMethodID  *int64 `json:"payment_method_id,omitempty"`
}

type patientAgendaResponse struct {
	Next    *bookingItem  `json:"next"`
	History []bookingItem `json:"history"`
}

func toBookingItem(b model.Booking) bookingItem {
	return bookingItem{
		BookingID:        b.ID,
		Date:             b.DateString(),
		Time:             b.Time.String(),
		Status:           b.Status.String(),
		PatientID:        b.PatientID,
		ProfessionalID:   b.ProfessionalID,
		ProfessionalName: b.Professional.FullName(),
		ModalityID:       b.ModalityID,
		PaymentMethodID:  b.PaymentMethodID,
	}
}

// Create handles POST /api/v1/bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Create(r.Context(), booking.CreateRequest{
		PatientID:       req.PatientID,
		ProfessionalID:  req.ProfessionalID,
		Date:            req.Date,
		Time:            req.Time,
		ModalityID:      req.ModalityID,
		PaymentMethodID: req.PaymentMethodID,
	}, actor)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, createBookingResponse{
		BookingID: res.BookingID,
		Status:    model.StatusPending.String(),
		Payload:   res.Calendar,
	})
}

// Cancel handles POST /api/v1/bookings/cancel.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Cancel(r.Context(), req.BookingID, req.Reason, actor); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bookingStatusResponse{
		BookingID: strings.TrimSpace(req.BookingID),
		Status:    model.StatusCancelled.String(),
	})
}

// Reschedule handles POST /api/v1/bookings/reschedule.
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req rescheduleBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	cal, err := h.svc.Reschedule(r.Context(), req.BookingID, req.Date, req.Time, actor)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bookingStatusResponse{
		BookingID: strings.TrimSpace(req.BookingID),
		Status:    model.StatusConfirmed.String(),
		Payload:   cal,
	})
}

// PatientBookings handles GET /api/v1/patients/bookings[?patient_id=].
func (h *BookingHandler) PatientBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	agenda, err := h.svc.ListPatientBookings(r.Context(), r.URL.Query().Get("patient_id"), actor)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	resp := patientAgendaResponse{History: make([]bookingItem, 0, len(agenda.History))}
	if agenda.Next != nil {
		next := toBookingItem(*agenda.Next)
		resp.Next = &next
	}
	for _, b := range agenda.History {
		resp.History = append(resp.History, toBookingItem(b))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
