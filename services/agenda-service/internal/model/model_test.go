package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	if err != nil || got != 570 {
		t.Fatalf("expected 570, got %d (%v)", got, err)
	}
	if got.String() != "09:30" {
		t.Fatalf("expected 09:30, got %s", got)
	}
	for _, bad := range []string{"9:30", "09:3", "24:00", "12:60", "09:30:00", "ab:cd", ""} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestWeekdayOf(t *testing.T) {
	d, _ := ParseDate("2024-06-03")
	if WeekdayOf(d) != Weekday(time.Monday) || WeekdayOf(d).String() != "lunes" {
		t.Fatalf("expected lunes, got %s", WeekdayOf(d))
	}
	if Weekday(9).Valid() {
		t.Fatal("expected 9 to be invalid")
	}
}

func TestWindowContainsIsInclusive(t *testing.T) {
	w := AvailabilityWindow{Start: 540, End: 600}
	for _, tc := range []struct {
		at   TimeOfDay
		want bool
	}{{539, false}, {540, true}, {570, true}, {600, true}, {601, false}} {
		if got := w.Contains(tc.at); got != tc.want {
			t.Fatalf("Contains(%s) = %v, want %v", tc.at, got, tc.want)
		}
	}
}

func TestSlotJSON(t *testing.T) {
	raw, err := json.Marshal(Slot{Time: 540, Label: "09:00 hs", Weekday: 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"time":"09:00","label":"09:00 hs","weekday":"lunes"}` {
		t.Fatalf("unexpected json: %s", raw)
	}
}

func TestParticipantFullName(t *testing.T) {
	if got := (Participant{FirstName: "Ana"}).FullName(); got != "Ana" {
		t.Fatalf("expected Ana, got %q", got)
	}
	if got := (Participant{FirstName: "Ana", LastName: "Paz"}).FullName(); got != "Ana Paz" {
		t.Fatalf("expected Ana Paz, got %q", got)
	}
}
