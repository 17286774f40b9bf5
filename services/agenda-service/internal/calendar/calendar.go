package calendar

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
)

const (
	googleRenderURL = "https://calendar.google.com/calendar/render"
	stampLayout     = "20060102T150405Z"
	prodID          = "-//Nutriagenda//Bookings//EN"
)

// Payload lets a participant add a booking to their calendar.
type Payload struct {
	Link string `json:"calendar_link,omitempty"`
	ICS  string `json:"ics_content,omitempty"`
}

// Formatter renders booking calendar payloads. Booking times are wall-clock
// times in Location.
type Formatter struct {
	Location *time.Location
	Duration time.Duration
	Now      func() time.Time
}

func NewFormatter(loc *time.Location, duration time.Duration) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	if duration <= 0 {
		duration = time.Hour
	}
	return &Formatter{Location: loc, Duration: duration, Now: time.Now}
}

// Build returns an empty payload when the booking has no date.
func (f *Formatter) Build(b model.Booking) Payload {
	if b.Date.IsZero() {
		return Payload{}
	}
	start := model.At(b.Date, b.Time, f.Location).UTC()
	end := start.Add(f.Duration)

	professional := b.Professional.FullName()
	if professional == "" {
		professional = "your nutritionist"
	}
	patient := b.Patient.FullName()
	if patient == "" {
		patient = "Patient"
	}
	title := "Appointment with " + professional
	description := patient + " has an appointment with " + professional + "."
	location := ""
	if b.ModalityID != nil {
		location = "Modality " + strconv.FormatInt(*b.ModalityID, 10)
	}

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", title)
	q.Set("details", description)
	q.Set("dates", start.Format(stampLayout)+"/"+end.Format(stampLayout))
	if location != "" {
		q.Set("location", location)
	}

	return Payload{
		Link: googleRenderURL + "?" + q.Encode(),
		ICS:  f.ics(b, title, description, location, start, end),
	}
}

func (f *Formatter) ics(b model.Booking, title, description, location string, start, end time.Time) string {
	uid := b.ID
	if uid == "" {
		uid = uuid.NewString()
	}
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
		"BEGIN:VEVENT",
		"UID:" + uid + "@nutriagenda",
		"DTSTAMP:" + f.Now().UTC().Format(stampLayout),
		"DTSTART:" + start.Format(stampLayout),
		"DTEND:" + end.Format(stampLayout),
		"SUMMARY:" + escape(title),
	}
	if description != "" {
		lines = append(lines, "DESCRIPTION:"+escape(description))
	}
	if location != "" {
		lines = append(lines, "LOCATION:"+escape(location))
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")
	return strings.Join(lines, "\r\n")
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

func escape(s string) string { return icsEscaper.Replace(s) }
