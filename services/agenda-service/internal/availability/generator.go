package availability

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/apperr"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

const NoSlotsMessage = "no slots available for that date"

// SlotSource is the read side the generator needs from storage.
type SlotSource interface {
	FindAvailabilityWindows(ctx context.Context, professionalID string, day model.Weekday) ([]model.AvailabilityWindow, error)
	FindActiveBookingTimes(ctx context.Context, professionalID string, date time.Time) ([]model.TimeOfDay, error)
}

type SlotResult struct {
	Date    time.Time
	Weekday model.Weekday
	Slots   []model.Slot
	Message string
}

type Generator struct {
	source SlotSource
}

func NewGenerator(source SlotSource) *Generator {
	return &Generator{source: source}
}

// AvailableSlots lists the open slots of a professional on date. An empty
// result is not an error; it carries NoSlotsMessage instead.
func (g *Generator) AvailableSlots(ctx context.Context, professionalID string, date time.Time, override string) (SlotResult, error) {
	professionalID = strings.TrimSpace(professionalID)
	if professionalID == "" {
		return SlotResult{}, apperr.BadRequest("professional_id is required")
	}
	day := model.WeekdayOf(date)

	windows, err := g.source.FindAvailabilityWindows(ctx, professionalID, day)
	if err != nil {
		return SlotResult{}, fmt.Errorf("find availability windows: %w", err)
	}
	if len(windows) == 0 {
		return SlotResult{}, apperr.NotFound("no availability configured for that date")
	}

	taken, err := g.source.FindActiveBookingTimes(ctx, professionalID, date)
	if err != nil {
		return SlotResult{}, fmt.Errorf("find booked times: %w", err)
	}
	occupied := make(map[model.TimeOfDay]bool, len(taken))
	for _, t := range taken {
		occupied[t] = true
	}

	slots := []model.Slot{}
	for _, w := range windows {
		slots = append(slots, ResolveStrategy(override, w.Granularity).Generate(w, occupied)...)
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })

	res := SlotResult{Date: date, Weekday: day, Slots: slots}
	if len(slots) == 0 {
		res.Message = NoSlotsMessage
	}
	return res, nil
}
