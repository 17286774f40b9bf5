package model

import "time"

// Weekday mirrors time.Weekday (Sunday = 0) and is stored as a smallint.
type Weekday int

var weekdayNames = [...]string{"domingo", "lunes", "martes", "miercoles", "jueves", "viernes", "sabado"}

func WeekdayOf(date time.Time) Weekday { return Weekday(date.Weekday()) }

func (d Weekday) Valid() bool { return d >= 0 && int(d) < len(weekdayNames) }

// String returns the canonical unaccented Spanish day name.
func (d Weekday) String() string {
	if !d.Valid() {
		return "invalid"
	}
	return weekdayNames[d]
}

func (d Weekday) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
