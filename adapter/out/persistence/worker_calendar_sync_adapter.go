package persistence

import (
	"context"
	"fmt"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SyncedCalendarRepository implements out.SyncedCalendarRepository,
// tracking which external provider calendars mirror a given internal
// calendar.
type SyncedCalendarRepository struct {
	db *sqlx.DB
}

func NewSyncedCalendarRepository(db *sqlx.DB) out.SyncedCalendarRepository {
	return &SyncedCalendarRepository{db: db}
}

type syncedCalendarRow struct {
	CalendarID    uuid.UUID `db:"calendar_id"`
	Provider      string    `db:"provider"`
	ExtCalendarID string    `db:"ext_calendar_id"`
}

func (r syncedCalendarRow) toDomain() domain.SyncedCalendar {
	return domain.SyncedCalendar{CalendarID: r.CalendarID, Provider: r.Provider, ExtCalendarID: r.ExtCalendarID}
}

func (r *SyncedCalendarRepository) FindByCalendar(ctx context.Context, calendarID uuid.UUID) ([]domain.SyncedCalendar, error) {
	var rows []syncedCalendarRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT calendar_id, provider, ext_calendar_id
		FROM synced_calendars WHERE calendar_id = $1`, calendarID)
	if err != nil {
		return nil, fmt.Errorf("find synced calendars: %w", err)
	}
	result := make([]domain.SyncedCalendar, len(rows))
	for i, row := range rows {
		result[i] = row.toDomain()
	}
	return result, nil
}

func (r *SyncedCalendarRepository) Insert(ctx context.Context, synced *domain.SyncedCalendar) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO synced_calendars (calendar_id, provider, ext_calendar_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (calendar_id, provider) DO UPDATE SET ext_calendar_id = EXCLUDED.ext_calendar_id`,
		synced.CalendarID, synced.Provider, synced.ExtCalendarID)
	if err != nil {
		return fmt.Errorf("insert synced calendar: %w", err)
	}
	return nil
}

func (r *SyncedCalendarRepository) Delete(ctx context.Context, calendarID uuid.UUID, provider string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM synced_calendars WHERE calendar_id = $1 AND provider = $2`, calendarID, provider)
	if err != nil {
		return fmt.Errorf("delete synced calendar: %w", err)
	}
	return nil
}

// SyncedEventRepository implements out.SyncedEventRepository, tracking the
// external event ID each provider mirror assigned to an internal event.
type SyncedEventRepository struct {
	db *sqlx.DB
}

func NewSyncedEventRepository(db *sqlx.DB) out.SyncedEventRepository {
	return &SyncedEventRepository{db: db}
}

type syncedEventRow struct {
	EventID    uuid.UUID `db:"event_id"`
	CalendarID uuid.UUID `db:"calendar_id"`
	Provider   string    `db:"provider"`
	ExtEventID string    `db:"ext_event_id"`
}

func (r syncedEventRow) toDomain() domain.SyncedEvent {
	return domain.SyncedEvent{EventID: r.EventID, CalendarID: r.CalendarID, Provider: r.Provider, ExtEventID: r.ExtEventID}
}

func (r *SyncedEventRepository) FindByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.SyncedEvent, error) {
	var rows []syncedEventRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT event_id, calendar_id, provider, ext_event_id
		FROM synced_events WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("find synced events: %w", err)
	}
	result := make([]domain.SyncedEvent, len(rows))
	for i, row := range rows {
		result[i] = row.toDomain()
	}
	return result, nil
}

func (r *SyncedEventRepository) Insert(ctx context.Context, synced *domain.SyncedEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO synced_events (event_id, calendar_id, provider, ext_event_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, provider) DO UPDATE SET ext_event_id = EXCLUDED.ext_event_id`,
		synced.EventID, synced.CalendarID, synced.Provider, synced.ExtEventID)
	if err != nil {
		return fmt.Errorf("insert synced event: %w", err)
	}
	return nil
}

func (r *SyncedEventRepository) Delete(ctx context.Context, eventID uuid.UUID, provider string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM synced_events WHERE event_id = $1 AND provider = $2`, eventID, provider)
	if err != nil {
		return fmt.Errorf("delete synced event: %w", err)
	}
	return nil
}
