package out

import (
	"context"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
)

// CalendarRepository is the outbound port for Calendar persistence. Delete
// cascades to the calendar's events in the same transaction.
type CalendarRepository interface {
	Insert(ctx context.Context, calendar *domain.Calendar) error
	Find(ctx context.Context, id uuid.UUID) (*domain.Calendar, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Calendar, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ScheduleRepository is the outbound port for Schedule persistence.
type ScheduleRepository interface {
	Insert(ctx context.Context, schedule *domain.Schedule) error
	Find(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Schedule, error)
	Update(ctx context.Context, schedule *domain.Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ServiceRepository is the outbound port for Service persistence.
type ServiceRepository interface {
	Insert(ctx context.Context, service *domain.Service) error
	Find(ctx context.Context, id uuid.UUID) (*domain.Service, error)
	Update(ctx context.Context, service *domain.Service) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ServiceResourceRepository is the outbound port for ServiceResource
// persistence.
type ServiceResourceRepository interface {
	Insert(ctx context.Context, resource *domain.ServiceResource) error
	Find(ctx context.Context, serviceID, userID uuid.UUID) (*domain.ServiceResource, error)
	FindByService(ctx context.Context, serviceID uuid.UUID) ([]domain.ServiceResource, error)
	Update(ctx context.Context, resource *domain.ServiceResource) error
	Delete(ctx context.Context, serviceID, userID uuid.UUID) error
}

// UserRepository is the outbound port for User persistence.
type UserRepository interface {
	Insert(ctx context.Context, user *domain.User) error
	Find(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AccountRepository is the outbound port for Account persistence.
type AccountRepository interface {
	Insert(ctx context.Context, account *domain.Account) error
	Find(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindMany(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BusyCalendarLinkRepository is the outbound port for BusyCalendarLink
// persistence.
type BusyCalendarLinkRepository interface {
	Exists(ctx context.Context, serviceID, userID, calendarID uuid.UUID) (bool, error)
	ExistsExt(ctx context.Context, serviceID, userID uuid.UUID, provider, extID string) (bool, error)
	Insert(ctx context.Context, link *domain.BusyCalendarLink) error
	InsertExt(ctx context.Context, link *domain.BusyCalendarLink) error
	Find(ctx context.Context, serviceID, userID uuid.UUID) ([]domain.BusyCalendarLink, error)
}
