package domain

import "github.com/google/uuid"

// Reminder is a materialized, not-yet-delivered reminder for an event
// occurrence. Priority reflects the materialization path (create, update
// continuation, or expansion job) and is used by the dispatcher's dedup pass;
// implementations may use Version directly as Priority since versions are
// strictly monotonic per event.
type Reminder struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	EventID    uuid.UUID
	RemindAtMS int64
	Version    int64
	Priority   int64
	Identifier string
}

// ExpansionJob is a continuation anchor for a recurring event whose reminder
// window was truncated at 100 occurrences.
type ExpansionJob struct {
	EventID  uuid.UUID
	DueAtMS  int64
	Version  int64
}

// AccountEventReminders is the payload delivered to the webhook collaborator
// for one account's due reminders.
type AccountEventReminders struct {
	Account Account
	Events  []CalendarEvent
}
