package in

import (
	"context"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
)

// Orchestrator is the inbound port the calendar/scheduling engine exposes to
// its callers (HTTP handlers, the reminder dispatcher's event-facing
// operations). Every mutating operation runs under ExecuteWithPolicy
// internally; callers supply the authenticated subject's Policy.
type Orchestrator interface {
	CreateEvent(ctx context.Context, policy Policy, req CreateEventRequest) (*domain.CalendarEvent, error)
	UpdateEvent(ctx context.Context, policy Policy, req UpdateEventRequest) (*domain.CalendarEvent, error)
	DeleteEvent(ctx context.Context, policy Policy, req DeleteEventRequest) error

	CreateBookingIntent(ctx context.Context, policy Policy, req CreateBookingIntentRequest) (CreateBookingIntentResult, error)
	GetServiceBookingSlots(ctx context.Context, policy Policy, req GetServiceBookingSlotsRequest) ([]BookingSlot, error)
	GetUserFreebusy(ctx context.Context, policy Policy, req GetUserFreebusyRequest) ([]domain.EventInstance, error)

	AddBusyCalendarLink(ctx context.Context, policy Policy, req AddBusyCalendarLinkRequest) error
	AddUserToService(ctx context.Context, policy Policy, req AddUserToServiceRequest) error
	ChangeGroupCapacity(ctx context.Context, policy Policy, req ChangeGroupCapacityRequest) error
}

// AuthCollaborator validates an incoming bearer token against an account's
// key material and resolves the caller to a User, creating one on first
// sight.
type AuthCollaborator interface {
	Authenticate(ctx context.Context, accountID uuid.UUID, token string) (*domain.User, Policy, error)
}
