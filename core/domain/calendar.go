package domain

import (
	"time"

	"github.com/google/uuid"
)

// SettingsOf resolves a Calendar's settings into the CalendarSettings
// shape the recurrence engine consumes.
func (c *Calendar) SettingsOf() CalendarSettings {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return CalendarSettings{Timezone: loc, WeekStart: time.Weekday(c.WeekStart)}
}

// Calendar belongs to a User and governs local-time interpretation of its
// events' recurrence rules.
type Calendar struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	AccountID uuid.UUID
	Timezone  string // IANA identifier
	WeekStart int    // 0..6
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventReminder is a single {delta_minutes, identifier} entry attached to an
// event.
type EventReminder struct {
	DeltaMinutes int64
	Identifier   string
}

// IsValid reports whether the reminder's delta is within [0, 1440] minutes.
func (r EventReminder) IsValid() bool {
	return r.DeltaMinutes >= 0 && r.DeltaMinutes <= 1440
}

// CalendarEvent belongs to a Calendar and User.
type CalendarEvent struct {
	ID         uuid.UUID
	CalendarID uuid.UUID
	UserID     uuid.UUID
	AccountID  uuid.UUID

	StartTS  int64
	Duration int64 // ms, >= 0
	Busy     bool
	EndTS    int64 // derived, see UpdateEndTime

	Recurrence *RecurrenceRule
	Exdates    []int64

	Reminders []EventReminder

	ServiceID *uuid.UUID
	Metadata  map[string]string

	ReminderVersion int64

	Created int64
	Updated int64
}

// UpdateEndTime recomputes EndTS per the data model invariant: non-recurring
// events end at start+duration; terminating recurrences end at the last
// occurrence's end; open-ended recurrences end at the MaxTimestamp sentinel.
func (e *CalendarEvent) UpdateEndTime(settings CalendarSettings) error {
	if e.Recurrence == nil {
		e.EndTS = e.StartTS + e.Duration
		return nil
	}
	terminating := (e.Recurrence.Count != nil && *e.Recurrence.Count > 0) || e.Recurrence.Until != nil
	if !terminating {
		e.EndTS = MaxTimestamp
		return nil
	}
	instances, err := e.Expand(nil, settings)
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		e.EndTS = e.StartTS + e.Duration
		return nil
	}
	e.EndTS = instances[len(instances)-1].EndTS
	return nil
}

// SetRecurrence validates and assigns a recurrence rule, optionally recomputing
// EndTS.
func (e *CalendarEvent) SetRecurrence(rule RecurrenceRule, settings CalendarSettings, updateEndTime bool) error {
	if err := rule.Validate(e.StartTS); err != nil {
		return err
	}
	e.Recurrence = &rule
	if updateEndTime {
		return e.UpdateEndTime(settings)
	}
	return nil
}

// Expand realizes the event's occurrences, optionally bounded to window.
func (e *CalendarEvent) Expand(window *ExpandWindow, settings CalendarSettings) ([]EventInstance, error) {
	return Expand(e.StartTS, e.Duration, e.Busy, e.Recurrence, e.Exdates, window, settings)
}
