package domain

import "time"

// CalendarEvent is an event fetched from an external calendar
// End is zero when the provider did not report one.
type CalendarEvent struct {
	ID          string
	Start       time.Time
	End         time.Time
	Title       string
	Description string
	Attendees   []string // Email addresses
	Cancelled   bool
}

// EndsBefore reports whether the event is entirely over at t
func (e *CalendarEvent) EndsBefore(t time.Time) bool {
	end := e.End
	if end.IsZero() {
		end = e.Start
	}
	return end.Before(t)
}
