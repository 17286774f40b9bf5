package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/nutriagenda/libs/httpx"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/apperr"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/availability"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

type SlotQuerier interface {
	AvailableSlots(ctx context.Context, professionalID string, date time.Time, override string) (availability.SlotResult, error)
}

type ScheduleEditor interface {
	ReplaceAvailability(ctx context.Context, professionalID string, in []availability.WindowInput, actor model.Actor) error
}

type AvailabilityHandler struct {
	slots    SlotQuerier
	schedule ScheduleEditor
	logger   *slog.Logger
}

func NewAvailabilityHandler(slots SlotQuerier, schedule ScheduleEditor, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{slots: slots, schedule: schedule, logger: logger}
}

type slotsResponse struct {
	ProfessionalID string       `json:"professional_id"`
	Date           string       `json:"date"`
	Weekday        string       `json:"weekday"`
	Slots          []model.Slot `json:"slots"`
	Message        string       `json:"message,omitempty"`
}

type replaceAvailabilityRequest struct {
	ProfessionalID string                     `json:"professional_id"`
	Windows        []availability.WindowInput `json:"windows"`
}

// Slots handles GET /api/v1/slots?professional_id=&date=YYYY-MM-DD[&strategy=].
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	professionalID := strings.TrimSpace(q.Get("professional_id"))
	date, err := model.ParseDate(strings.TrimSpace(q.Get("date")))
	if err != nil {
		writeAppError(w, r, h.logger, apperr.BadRequest(err.Error()))
		return
	}

	res, err := h.slots.AvailableSlots(r.Context(), professionalID, date, q.Get("strategy"))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{
		ProfessionalID: professionalID,
		Date:           res.Date.Format(model.DateLayout),
		Weekday:        res.Weekday.String(),
		Slots:          res.Slots,
		Message:        res.Message,
	})
}

// ReplaceAvailability handles PUT /api/v1/availability.
func (h *AvailabilityHandler) ReplaceAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req replaceAvailabilityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.schedule.ReplaceAvailability(r.Context(), req.ProfessionalID, req.Windows, actor); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"professional_id": strings.TrimSpace(req.ProfessionalID),
		"windows":         len(req.Windows),
	})
}
