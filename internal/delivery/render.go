// Package delivery holds the reminder channels (email, web push, telegram)
// and the Fanout that sends one reminder through all of them.
package delivery

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"
)

const (
	dateLayout = "Monday, January 2, 2006"
	timeLayout = "3:04 PM"
)

// Message is a rendered reminder, shared by all channels.
type Message struct {
	Subject  string
	Title    string
	Date     string
	Time     string
	Location string
	Text     string
	HTML     string
	Kind     entity.ReminderKind
}

// urgencyColor by kind: blue, amber, red.
func urgencyColor(kind entity.ReminderKind) string {
	switch kind {
	case entity.ReminderHourBefore:
		return "#f59e0b"
	case entity.ReminderFiveMinBefore:
		return "#ef4444"
	}
	return "#3b82f6"
}

func closingLine(kind entity.ReminderKind) string {
	if kind == entity.ReminderFiveMinBefore {
		return "Time to prepare for your event!"
	}
	return "Don't forget to prepare for this event!"
}

var reminderHTML = template.Must(template.New("reminder").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e0e0e0; border-radius: 5px;">
  <h2 style="color: {{.Color}};">Event Reminder</h2>
  <p>Your event is starting <strong>{{.Timeframe}}</strong>:</p>
  <div style="background-color: #f8fafc; padding: 15px; border-radius: 5px; margin: 15px 0; border-left: 4px solid {{.Color}};">
    <h3 style="margin-top: 0; color: #1e40af;">{{.Title}}</h3>
    <p><strong>Date:</strong> {{.Date}}</p>
    <p><strong>Time:</strong> {{.Time}}</p>
    {{- if .Location}}
    <p><strong>Location:</strong> {{.Location}}</p>
    {{- end}}
  </div>
  <p>{{.Closing}}</p>
  <p>Best regards,<br>Your Calendar App</p>
</div>
`))

// Render builds the reminder message for event in loc.
func Render(event *entity.Event, kind entity.ReminderKind, loc *time.Location) (*Message, error) {
	if loc == nil {
		loc = time.UTC
	}
	start := event.StartTime.In(loc)

	msg := &Message{
		Subject:  fmt.Sprintf("Reminder: %s starting %s", event.Title, kind.Timeframe()),
		Title:    event.Title,
		Date:     start.Format(dateLayout),
		Time:     start.Format(timeLayout),
		Location: event.Location,
		Kind:     kind,
	}
	if event.IsAllDay {
		msg.Time = "All day"
	}

	var buf bytes.Buffer
	err := reminderHTML.Execute(&buf, map[string]string{
		"Color":     urgencyColor(kind),
		"Timeframe": kind.Timeframe(),
		"Title":     msg.Title,
		"Date":      msg.Date,
		"Time":      msg.Time,
		"Location":  msg.Location,
		"Closing":   closingLine(kind),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render reminder: %w", err)
	}
	msg.HTML = buf.String()
	msg.Text = renderText(msg)

	return msg, nil
}

func renderText(msg *Message) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Your event is starting %s:\n\n", msg.Kind.Timeframe())
	fmt.Fprintf(&buf, "%s\nDate: %s\nTime: %s\n", msg.Title, msg.Date, msg.Time)
	if msg.Location != "" {
		fmt.Fprintf(&buf, "Location: %s\n", msg.Location)
	}
	fmt.Fprintf(&buf, "\n%s\n", closingLine(msg.Kind))
	return buf.String()
}

// PushPayload is the JSON body service workers receive.
type PushPayload struct {
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Icon     string         `json:"icon"`
	Badge    string         `json:"badge"`
	Data     map[string]any `json:"data"`
	Tag      string         `json:"tag"`
	Renotify bool           `json:"renotify"`
}

func NewPushPayload(title, body string, data map[string]any) PushPayload {
	if data == nil {
		data = map[string]any{}
	}
	return PushPayload{
		Title:    title,
		Body:     body,
		Icon:     "/favicon.ico",
		Badge:    "/favicon.ico",
		Data:     data,
		Tag:      "calendar-notification",
		Renotify: true,
	}
}

// pushBody is the short line shown under the push title.
func pushBody(msg *Message) string {
	body := fmt.Sprintf("Starts %s at %s", msg.Kind.Timeframe(), msg.Time)
	if msg.Location != "" {
		body += " · " + msg.Location
	}
	return body
}
