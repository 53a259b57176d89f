package out

import (
	"context"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
)

// UserServiceCreated pairs a user with the created timestamp of their most
// recently created event for a service, or nil if they have none.
type UserServiceCreated struct {
	UserID  uuid.UUID
	Created *int64
}

// EventRepository is the outbound port for CalendarEvent persistence.
type EventRepository interface {
	Insert(ctx context.Context, event *domain.CalendarEvent) error
	Save(ctx context.Context, event *domain.CalendarEvent) error
	Find(ctx context.Context, id uuid.UUID) (*domain.CalendarEvent, error)
	FindMany(ctx context.Context, ids []uuid.UUID) ([]domain.CalendarEvent, error)
	FindByCalendar(ctx context.Context, calendarID uuid.UUID, span *domain.TimeSpan) ([]domain.CalendarEvent, error)
	FindByService(ctx context.Context, serviceID uuid.UUID, userIDs []uuid.UUID, minTS, maxTS int64) ([]domain.CalendarEvent, error)
	FindMostRecentServiceEvent(ctx context.Context, serviceID uuid.UUID, userIDs []uuid.UUID) ([]UserServiceCreated, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindUserServiceEvents(ctx context.Context, userID uuid.UUID, isRecurring bool, span domain.TimeSpan) ([]domain.CalendarEvent, error)
}
