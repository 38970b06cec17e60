package calendar

import (
	calendar "google.golang.org/api/calendar/v3"
)

// Reminder methods accepted by the Calendar API.
const (
	ReminderEmail = "email"
	ReminderPopup = "popup"
)

// Sort orders accepted by ListEvents.
const (
	OrderByStartTime = "startTime"
	OrderByUpdated   = "updated"
)

// DefaultMaxResults is used by ListEvents when no limit is given.
const DefaultMaxResults = 10

// EventTime is a point in time with an optional IANA time zone.
type EventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

// ReminderOverride is a single custom reminder.
type ReminderOverride struct {
	Method  string `json:"method"`
	Minutes int64  `json:"minutes"`
}

// Reminders configures event notifications. Overrides only take effect
// when UseDefault is false.
type Reminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []ReminderOverride `json:"overrides,omitempty"`
}

// EventInput describes the fields of an event to create or patch. Nil or
// empty fields are left out of the request.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       *EventTime
	End         *EventTime
	Reminders   *Reminders
}

// IsEmpty reports whether no field is set.
func (in EventInput) IsEmpty() bool {
	return in.Summary == "" && in.Description == "" && in.Location == "" &&
		in.Start == nil && in.End == nil && in.Reminders == nil
}

func (in EventInput) toEvent() *calendar.Event {
	ev := &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
	}
	if in.Start != nil {
		ev.Start = toEventDateTime(in.Start)
	}
	if in.End != nil {
		ev.End = toEventDateTime(in.End)
	}
	if in.Reminders != nil {
		ev.Reminders = toReminders(in.Reminders)
	}
	return ev
}

func toEventDateTime(t *EventTime) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: t.DateTime, TimeZone: t.TimeZone}
}

func toReminders(r *Reminders) *calendar.EventReminders {
	out := &calendar.EventReminders{
		UseDefault: r.UseDefault,
		// useDefault=false must reach the API or it keeps the calendar default.
		ForceSendFields: []string{"UseDefault"},
	}
	if r.UseDefault {
		return out
	}
	for _, o := range r.Overrides {
		out.Overrides = append(out.Overrides, &calendar.EventReminder{
			Method:          o.Method,
			Minutes:         o.Minutes,
			ForceSendFields: []string{"Minutes"},
		})
	}
	return out
}
