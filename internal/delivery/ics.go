package delivery

import (
	"strings"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	ical "github.com/arran4/golang-ical"
)

const productID = "-//calendar-reminders//EN"

// BuildICS describes event as a single VEVENT so mail clients can add it to a calendar.
func BuildICS(event *entity.Event, organizer string, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	ev := cal.AddEvent(event.ID + "@calendar-reminders")
	ev.SetDtStampTime(now.UTC())
	if !event.CreatedAt.IsZero() {
		ev.SetCreatedTime(event.CreatedAt.UTC())
	}
	if !event.UpdatedAt.IsZero() {
		ev.SetModifiedAt(event.UpdatedAt.UTC())
	}

	if event.IsAllDay {
		ev.SetAllDayStartAt(event.StartTime)
		ev.SetAllDayEndAt(event.EndTime)
	} else {
		ev.SetStartAt(event.StartTime.UTC())
		ev.SetEndAt(event.EndTime.UTC())
	}

	ev.SetSummary(event.Title)
	if event.Description != "" {
		ev.SetDescription(event.Description)
	}
	if event.Location != "" {
		ev.SetLocation(event.Location)
	}

	if event.Organizer != "" {
		organizer = event.Organizer
	}
	if organizer != "" {
		ev.SetOrganizer(mailto(organizer))
	}
	for _, attendee := range event.Attendees {
		if attendee = strings.TrimSpace(attendee); attendee != "" {
			ev.AddAttendee(mailto(attendee))
		}
	}

	return cal.Serialize()
}

func mailto(addr string) string {
	if strings.HasPrefix(strings.ToLower(addr), "mailto:") {
		return addr
	}
	return "mailto:" + addr
}
