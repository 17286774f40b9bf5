package availability

import (
	"strings"

	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

// Strategy generates slots at a fixed step.
type Strategy struct {
	step model.Granularity
}

var strategyTokens = map[string]model.Granularity{
	"20": model.Granularity20, "20min": model.Granularity20, "20-min": model.Granularity20, "cada20": model.Granularity20,
	"30": model.Granularity30, "30min": model.Granularity30, "30-min": model.Granularity30, "cada30": model.Granularity30,
	"60": model.Granularity60, "60min": model.Granularity60, "60-min": model.Granularity60, "cada60": model.Granularity60,
}

// StrategyFor looks a granularity token up. ok is false for blank or
// unrecognized tokens.
func StrategyFor(token string) (Strategy, bool) {
	g, ok := strategyTokens[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return Strategy{}, false
	}
	return Strategy{step: g}, true
}

// ResolveStrategy picks the request override when recognized, then the
// window's stored granularity when valid, then the 30 minute default.
func ResolveStrategy(override string, stored model.Granularity) Strategy {
	if s, ok := StrategyFor(override); ok {
		return s
	}
	if stored.Valid() {
		return Strategy{step: stored}
	}
	return Strategy{step: model.DefaultGranularity}
}

func (s Strategy) Step() model.Granularity {
	if !s.step.Valid() {
		return model.DefaultGranularity
	}
	return s.step
}

// Generate walks the window from its start while the cursor is before its end,
// skipping occupied times.
func (s Strategy) Generate(w model.AvailabilityWindow, occupied map[model.TimeOfDay]bool) []model.Slot {
	step := int(s.Step())
	var slots []model.Slot
	for cursor := w.Start; cursor < w.End; cursor = cursor.Add(step) {
		if occupied[cursor] {
			continue
		}
		slots = append(slots, model.Slot{
			Time:    cursor,
			Label:   cursor.String() + " hs",
			Weekday: w.Weekday,
		})
	}
	return slots
}
