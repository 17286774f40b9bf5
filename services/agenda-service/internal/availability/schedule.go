package availability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/apperr"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

// WindowInput is one weekly window as submitted by a professional.
type WindowInput struct {
	Weekday     string `json:"weekday"`
	Start       string `json:"start_time"`
	End         string `json:"end_time"`
	Granularity *int   `json:"granularity_minutes"`
}

type ScheduleStore interface {
	// ReplaceAvailabilityWindows swaps the whole weekly schedule atomically.
	ReplaceAvailabilityWindows(ctx context.Context, professionalID string, windows []model.AvailabilityWindow) error
}

type ProfessionalResolver interface {
	// ProfessionalIDForUser returns "" when the user has no professional profile.
	ProfessionalIDForUser(ctx context.Context, userID string) (string, error)
}

type Scheduler struct {
	store    ScheduleStore
	resolver ProfessionalResolver
	logger   *slog.Logger
}

func NewScheduler(store ScheduleStore, resolver ProfessionalResolver, logger *slog.Logger) *Scheduler {
	return &Scheduler{store: store, resolver: resolver, logger: logger}
}

// ReplaceAvailability validates every window before writing anything, then
// replaces the professional's schedule in one transaction.
func (s *Scheduler) ReplaceAvailability(ctx context.Context, professionalID string, in []WindowInput, actor model.Actor) error {
	professionalID = strings.TrimSpace(professionalID)
	if actor.Role != model.RoleProfessional {
		return apperr.Forbidden("only professionals can edit availability")
	}
	owned, err := s.resolver.ProfessionalIDForUser(ctx, actor.UserID)
	if err != nil {
		return fmt.Errorf("resolve professional: %w", err)
	}
	if owned == "" || owned != professionalID {
		return apperr.Forbidden("not allowed to edit this professional's availability")
	}
	if len(in) == 0 {
		return apperr.BadRequest("at least one availability window is required")
	}

	windows, err := ValidateWindows(professionalID, in)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceAvailabilityWindows(ctx, professionalID, windows); err != nil {
		return fmt.Errorf("replace availability: %w", err)
	}
	s.logger.Info("availability replaced", "professional_id", professionalID, "windows", len(windows))
	return nil
}

// ValidateWindows converts raw input into windows, failing with Unprocessable
// on the first invalid entry.
func ValidateWindows(professionalID string, in []WindowInput) ([]model.AvailabilityWindow, error) {
	out := make([]model.AvailabilityWindow, 0, len(in))
	for i, raw := range in {
		day, ok := ParseWeekday(raw.Weekday)
		if !ok {
			return nil, apperr.Unprocessable(fmt.Sprintf("window %d: invalid weekday %q", i+1, raw.Weekday))
		}
		start, err := model.ParseTimeOfDay(strings.TrimSpace(raw.Start))
		if err != nil {
			return nil, apperr.Unprocessable(fmt.Sprintf("window %d: invalid start_time: %v", i+1, err))
		}
		end, err := model.ParseTimeOfDay(strings.TrimSpace(raw.End))
		if err != nil {
			return nil, apperr.Unprocessable(fmt.Sprintf("window %d: invalid end_time: %v", i+1, err))
		}
		if start >= end {
			return nil, apperr.Unprocessable(fmt.Sprintf("window %d: start_time must be before end_time", i+1))
		}
		var g model.Granularity
		// 0 means unset, like a missing value.
		if raw.Granularity != nil && *raw.Granularity != 0 {
			g = model.Granularity(*raw.Granularity)
			if !g.Valid() {
				return nil, apperr.Unprocessable(fmt.Sprintf("window %d: granularity must be 20, 30 or 60", i+1))
			}
		}
		out = append(out, model.AvailabilityWindow{
			ProfessionalID: professionalID,
			Weekday:        day,
			Start:          start,
			End:            end,
			Granularity:    g,
		})
	}
	return out, nil
}
