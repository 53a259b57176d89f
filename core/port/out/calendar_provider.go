package out

import (
	"context"

	"scheduler_server/core/domain"
)

// ProviderCalendar describes a calendar as reported by an external provider.
type ProviderCalendar struct {
	ID         string
	Name       string
	AccessRole string
}

// CalendarProvider is the outbound port to an external, third-party calendar
// system (Google Calendar, Outlook). All operations are fallible and must be
// treated as best-effort by callers: a provider outage degrades gracefully
// rather than failing the whole composition.
type CalendarProvider interface {
	// List returns the account's calendars whose access role grants at
	// least minAccessRole.
	List(ctx context.Context, minAccessRole string) ([]ProviderCalendar, error)
	// Freebusy returns busy instances across the given external calendar
	// IDs within span.
	Freebusy(ctx context.Context, calendarIDs []string, span domain.TimeSpan) ([]domain.EventInstance, error)
	CreateEvent(ctx context.Context, calendarID string, event *domain.CalendarEvent) (extEventID string, err error)
	UpdateEvent(ctx context.Context, calendarID, extEventID string, event *domain.CalendarEvent) error
	DeleteEvent(ctx context.Context, calendarID, extEventID string) error
}

// CalendarProviderFactory resolves the CalendarProvider implementation for a
// given provider name (e.g. "google", "outlook") and user.
type CalendarProviderFactory interface {
	For(ctx context.Context, provider string, userID string) (CalendarProvider, error)
}
