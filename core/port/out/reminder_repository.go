package out

import (
	"context"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
)

// ReminderRepository is the outbound port for Reminder persistence.
type ReminderRepository interface {
	BulkInsert(ctx context.Context, reminders []domain.Reminder) error
	// DeleteAllBefore atomically claims (deletes and returns) every reminder
	// with RemindAtMS <= ts.
	DeleteAllBefore(ctx context.Context, ts int64) ([]domain.Reminder, error)
	FindByEventAndPriority(ctx context.Context, eventID uuid.UUID, priority int64) (*domain.Reminder, error)
	// InitVersion assigns the first reminder_version for an event.
	InitVersion(ctx context.Context, eventID uuid.UUID) (int64, error)
	// IncVersion strictly increments reminder_version for an event and
	// deletes all reminders previously materialized at older versions.
	IncVersion(ctx context.Context, eventID uuid.UUID) (int64, error)
}

// ExpansionJobRepository is the outbound port for ExpansionJob persistence.
type ExpansionJobRepository interface {
	BulkInsert(ctx context.Context, jobs []domain.ExpansionJob) error
	DeleteAllBefore(ctx context.Context, ts int64) ([]domain.ExpansionJob, error)
}

// ReservationCounterRepository is the outbound port for the Reservation
// atomic counter. Increment must be a serializable increment-and-read.
type ReservationCounterRepository interface {
	Count(ctx context.Context, serviceID uuid.UUID, ts int64) (int, error)
	Increment(ctx context.Context, serviceID uuid.UUID, ts int64) (int, error)
	// DeleteBelow removes and returns reservation counters that had reached
	// oldMax but fall below newMax, reopening those timestamps' slots.
	// Counters that never reached oldMax are left untouched: they represent
	// partial reservations with no placed event, not slots to reclaim. Used
	// by the increase-max-count contract in the host assignment component.
	DeleteBelow(ctx context.Context, serviceID uuid.UUID, oldMax, newMax int) ([]domain.Reservation, error)
}

// SyncedCalendarRepository is the outbound port for SyncedCalendar
// persistence.
type SyncedCalendarRepository interface {
	FindByCalendar(ctx context.Context, calendarID uuid.UUID) ([]domain.SyncedCalendar, error)
	Insert(ctx context.Context, synced *domain.SyncedCalendar) error
	Delete(ctx context.Context, calendarID uuid.UUID, provider string) error
}

// SyncedEventRepository is the outbound port for SyncedEvent persistence.
type SyncedEventRepository interface {
	FindByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.SyncedEvent, error)
	Insert(ctx context.Context, synced *domain.SyncedEvent) error
	Delete(ctx context.Context, eventID uuid.UUID, provider string) error
}
