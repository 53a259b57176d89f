package domain

import "github.com/google/uuid"

// SyncedCalendar maps an internal calendar to an external provider calendar.
type SyncedCalendar struct {
	CalendarID uuid.UUID
	Provider   string
	ExtCalendarID string
}

// SyncedEvent maps an internal event to its mirrored external provider event.
type SyncedEvent struct {
	EventID     uuid.UUID
	CalendarID  uuid.UUID
	Provider    string
	ExtEventID  string
}

// Reservation is an atomic per-(service, timestamp) counter backing the
// group(max) policy.
type Reservation struct {
	ServiceID   uuid.UUID
	TimestampMS int64
	Count       int
}
