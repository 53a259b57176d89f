package in

import (
	"github.com/google/uuid"

	"scheduler_server/core/domain"
)

// CreateEventRequest creates a (possibly recurring) event on a calendar.
type CreateEventRequest struct {
	CalendarID uuid.UUID
	UserID     uuid.UUID
	AccountID  uuid.UUID

	StartTS  int64
	Duration int64
	Busy     bool

	Recurrence *domain.RecurrenceRule
	Exdates    []int64
	Reminders  []domain.EventReminder

	ServiceID *uuid.UUID
	Metadata  map[string]string
}

// UpdateEventRequest applies a partial update to an existing event. Nil
// fields are left unchanged.
type UpdateEventRequest struct {
	EventID uuid.UUID

	StartTS  *int64
	Duration *int64
	Busy     *bool

	RecurrenceSet bool // true if Recurrence should be applied, including clearing it
	Recurrence    *domain.RecurrenceRule
	Exdates       []int64

	RemindersSet bool
	Reminders    []domain.EventReminder

	Metadata map[string]string
}

// DeleteEventRequest removes a single event.
type DeleteEventRequest struct {
	EventID uuid.UUID
}

// CreateBookingIntentRequest books one slot on a service at a fixed
// timestamp, per the service's multi-person policy.
type CreateBookingIntentRequest struct {
	ServiceID   uuid.UUID
	Timestamp   int64
	Duration    int64
	IntervalMS  int64
	HostUserIDs []uuid.UUID // restrict candidate hosts; empty means all service users
}

// CreateBookingIntentResult reports which hosts were assigned and whether
// the caller should materialize an event for them.
type CreateBookingIntentResult struct {
	SelectedHostUserIDs []uuid.UUID
	CreateEventForHosts bool
}

// GetServiceBookingSlotsRequest enumerates bookable slots across a service's
// resources over [StartTS, EndTS).
type GetServiceBookingSlotsRequest struct {
	ServiceID  uuid.UUID
	StartTS    int64
	EndTS      int64
	DurationMS int64
	IntervalMS int64
}

// BookingSlot is a single bookable instant with its qualifying hosts.
type BookingSlot struct {
	StartTS    int64
	DurationMS int64
	UserIDs    []uuid.UUID
}

// GetUserFreebusyRequest asks for a single user's composed free instances
// over a span. The user must be a resource of ServiceID; otherwise the
// request fails with NotFound.
type GetUserFreebusyRequest struct {
	ServiceID uuid.UUID
	UserID    uuid.UUID
	Span      domain.TimeSpan
}

// AddBusyCalendarLinkRequest registers a busy source for a service member.
type AddBusyCalendarLinkRequest struct {
	ServiceID uuid.UUID
	UserID    uuid.UUID

	RefKind domain.BusyCalendarRefKind

	InternalCalendarID uuid.UUID

	ExternalProvider string
	ExternalID       string
}

// AddUserToServiceRequest enrolls a user as a service resource.
type AddUserToServiceRequest struct {
	ServiceID uuid.UUID
	UserID    uuid.UUID

	Availability domain.AvailabilityPlan

	BufferBeforeMin    int
	BufferAfterMin     int
	ClosestBookingMin  int
	FurthestBookingMin *int
}

// ChangeGroupCapacityRequest adjusts a group(max) service's capacity.
type ChangeGroupCapacityRequest struct {
	ServiceID uuid.UUID
	NewMax    int
}
