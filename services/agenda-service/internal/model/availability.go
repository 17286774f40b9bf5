package model

// Granularity is the spacing in minutes between generated slots; 0 means unset.
type Granularity int

const (
	Granularity20 Granularity = 20
	Granularity30 Granularity = 30
	Granularity60 Granularity = 60

	DefaultGranularity = Granularity30
)

func (g Granularity) Valid() bool {
	return g == Granularity20 || g == Granularity30 || g == Granularity60
}

type AvailabilityWindow struct {
	ID             int64
	ProfessionalID string
	Weekday        Weekday
	Start          TimeOfDay
	End            TimeOfDay
	Granularity    Granularity
}

// Contains reports whether t lies within the window, both bounds inclusive.
func (w AvailabilityWindow) Contains(t TimeOfDay) bool {
	return w.Start <= t && t <= w.End
}

type Slot struct {
	Time    TimeOfDay `json:"time"`
	Label   string    `json:"label"`
	Weekday Weekday   `json:"weekday"`
}
