package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// EventRepository implements out.EventRepository.
type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) out.EventRepository {
	return &EventRepository{db: db}
}

type eventRow struct {
	ID              uuid.UUID     `db:"id"`
	CalendarID      uuid.UUID     `db:"calendar_id"`
	UserID          uuid.UUID     `db:"user_id"`
	AccountID       uuid.UUID     `db:"account_id"`
	StartTS         int64         `db:"start_ts"`
	Duration        int64         `db:"duration"`
	Busy            bool          `db:"busy"`
	EndTS           int64         `db:"end_ts"`
	Recurrence      []byte        `db:"recurrence"`
	Exdates         pq.Int64Array `db:"exdates"`
	Reminders       []byte        `db:"reminders"`
	ServiceID       uuid.NullUUID `db:"service_id"`
	Metadata        []byte        `db:"metadata"`
	ReminderVersion int64         `db:"reminder_version"`
	Created         int64         `db:"created"`
	Updated         int64         `db:"updated"`
}

func (r eventRow) toDomain() (*domain.CalendarEvent, error) {
	event := &domain.CalendarEvent{
		ID: r.ID, CalendarID: r.CalendarID, UserID: r.UserID, AccountID: r.AccountID,
		StartTS: r.StartTS, Duration: r.Duration, Busy: r.Busy, EndTS: r.EndTS,
		Exdates:         []int64(r.Exdates),
		ReminderVersion: r.ReminderVersion,
		Created:         r.Created,
		Updated:         r.Updated,
	}
	if r.ServiceID.Valid {
		id := r.ServiceID.UUID
		event.ServiceID = &id
	}
	if len(r.Recurrence) > 0 {
		var rule domain.RecurrenceRule
		if err := json.Unmarshal(r.Recurrence, &rule); err != nil {
			return nil, fmt.Errorf("unmarshal event recurrence: %w", err)
		}
		event.Recurrence = &rule
	}
	if len(r.Reminders) > 0 {
		if err := json.Unmarshal(r.Reminders, &event.Reminders); err != nil {
			return nil, fmt.Errorf("unmarshal event reminders: %w", err)
		}
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &event.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal event metadata: %w", err)
		}
	}
	return event, nil
}

func eventColumns(e *domain.CalendarEvent) (recurrence, reminders, metadata []byte, serviceID uuid.NullUUID, err error) {
	if e.Recurrence != nil {
		if recurrence, err = json.Marshal(e.Recurrence); err != nil {
			return nil, nil, nil, uuid.NullUUID{}, fmt.Errorf("marshal event recurrence: %w", err)
		}
	}
	if reminders, err = json.Marshal(e.Reminders); err != nil {
		return nil, nil, nil, uuid.NullUUID{}, fmt.Errorf("marshal event reminders: %w", err)
	}
	if e.Metadata != nil {
		if metadata, err = json.Marshal(e.Metadata); err != nil {
			return nil, nil, nil, uuid.NullUUID{}, fmt.Errorf("marshal event metadata: %w", err)
		}
	}
	if e.ServiceID != nil {
		serviceID = uuid.NullUUID{UUID: *e.ServiceID, Valid: true}
	}
	return recurrence, reminders, metadata, serviceID, nil
}

func (r *EventRepository) Insert(ctx context.Context, event *domain.CalendarEvent) error {
	recurrence, reminders, metadata, serviceID, err := eventColumns(event)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO calendar_events (
			id, calendar_id, user_id, account_id, start_ts, duration, busy, end_ts,
			recurrence, exdates, reminders, service_id, metadata, reminder_version, created, updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		event.ID, event.CalendarID, event.UserID, event.AccountID, event.StartTS, event.Duration, event.Busy, event.EndTS,
		recurrence, pq.Array(event.Exdates), reminders, serviceID, metadata, event.ReminderVersion, event.Created, event.Updated)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *EventRepository) Save(ctx context.Context, event *domain.CalendarEvent) error {
	recurrence, reminders, metadata, serviceID, err := eventColumns(event)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE calendar_events SET
			start_ts = $2, duration = $3, busy = $4, end_ts = $5,
			recurrence = $6, exdates = $7, reminders = $8, service_id = $9,
			metadata = $10, reminder_version = $11, updated = $12
		WHERE id = $1`,
		event.ID, event.StartTS, event.Duration, event.Busy, event.EndTS,
		recurrence, pq.Array(event.Exdates), reminders, serviceID, metadata, event.ReminderVersion, event.Updated)
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

const eventColumnList = `id, calendar_id, user_id, account_id, start_ts, duration, busy, end_ts,
	recurrence, exdates, reminders, service_id, metadata, reminder_version, created, updated`

func (r *EventRepository) Find(ctx context.Context, id uuid.UUID) (*domain.CalendarEvent, error) {
	var row eventRow
	err := r.db.GetContext(ctx, &row, `SELECT `+eventColumnList+` FROM calendar_events WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	return row.toDomain()
}

func (r *EventRepository) FindMany(ctx context.Context, ids []uuid.UUID) ([]domain.CalendarEvent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+eventColumnList+` FROM calendar_events WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build find many events query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find many events: %w", err)
	}
	return rowsToEvents(rows)
}

func (r *EventRepository) FindByCalendar(ctx context.Context, calendarID uuid.UUID, span *domain.TimeSpan) ([]domain.CalendarEvent, error) {
	query := `SELECT ` + eventColumnList + ` FROM calendar_events WHERE calendar_id = $1`
	args := []interface{}{calendarID}
	if span != nil {
		query += ` AND start_ts < $3 AND end_ts > $2`
		args = append(args, span.Start, span.End)
	}
	query += ` ORDER BY start_ts`

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find events by calendar: %w", err)
	}
	return rowsToEvents(rows)
}

func (r *EventRepository) FindByService(ctx context.Context, serviceID uuid.UUID, userIDs []uuid.UUID, minTS, maxTS int64) ([]domain.CalendarEvent, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT `+eventColumnList+` FROM calendar_events
		WHERE service_id = ? AND user_id IN (?) AND start_ts < ? AND end_ts > ?
		ORDER BY start_ts`, serviceID, userIDs, maxTS, minTS)
	if err != nil {
		return nil, fmt.Errorf("build find events by service query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find events by service: %w", err)
	}
	return rowsToEvents(rows)
}

func (r *EventRepository) FindMostRecentServiceEvent(ctx context.Context, serviceID uuid.UUID, userIDs []uuid.UUID) ([]out.UserServiceCreated, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT u.id AS user_id, MAX(e.created) AS created
		FROM unnest(?::uuid[]) AS u(id)
		LEFT JOIN calendar_events e ON e.user_id = u.id AND e.service_id = ?
		GROUP BY u.id`, pq.Array(userIDsToStrings(userIDs)), serviceID)
	if err != nil {
		return nil, fmt.Errorf("build most recent service event query: %w", err)
	}
	query = r.db.Rebind(query)

	type resultRow struct {
		UserID  uuid.UUID     `db:"user_id"`
		Created sql.NullInt64 `db:"created"`
	}
	var rows []resultRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find most recent service event: %w", err)
	}

	result := make([]out.UserServiceCreated, len(rows))
	for i, row := range rows {
		entry := out.UserServiceCreated{UserID: row.UserID}
		if row.Created.Valid {
			c := row.Created.Int64
			entry.Created = &c
		}
		result[i] = entry
	}
	return result, nil
}

func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (r *EventRepository) FindUserServiceEvents(ctx context.Context, userID uuid.UUID, isRecurring bool, span domain.TimeSpan) ([]domain.CalendarEvent, error) {
	query := `SELECT ` + eventColumnList + ` FROM calendar_events
		WHERE user_id = $1 AND service_id IS NOT NULL AND start_ts < $3 AND end_ts > $2`
	if isRecurring {
		query += ` AND recurrence IS NOT NULL`
	} else {
		query += ` AND recurrence IS NULL`
	}
	query += ` ORDER BY start_ts`

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, span.Start, span.End); err != nil {
		return nil, fmt.Errorf("find user service events: %w", err)
	}
	return rowsToEvents(rows)
}

func rowsToEvents(rows []eventRow) ([]domain.CalendarEvent, error) {
	result := make([]domain.CalendarEvent, len(rows))
	for i, row := range rows {
		event, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result[i] = *event
	}
	return result, nil
}

func userIDsToStrings(ids []uuid.UUID) []string {
	result := make([]string, len(ids))
	for i, id := range ids {
		result[i] = id.String()
	}
	return result
}

// ReminderRepository implements out.ReminderRepository.
type ReminderRepository struct {
	db *sqlx.DB
}

func NewReminderRepository(db *sqlx.DB) out.ReminderRepository {
	return &ReminderRepository{db: db}
}

type reminderRow struct {
	ID         uuid.UUID `db:"id"`
	AccountID  uuid.UUID `db:"account_id"`
	EventID    uuid.UUID `db:"event_id"`
	RemindAtMS int64     `db:"remind_at_ms"`
	Version    int64     `db:"version"`
	Priority   int64     `db:"priority"`
	Identifier string    `db:"identifier"`
}

func (r reminderRow) toDomain() domain.Reminder {
	return domain.Reminder{
		ID: r.ID, AccountID: r.AccountID, EventID: r.EventID,
		RemindAtMS: r.RemindAtMS, Version: r.Version, Priority: r.Priority, Identifier: r.Identifier,
	}
}

func (r *ReminderRepository) BulkInsert(ctx context.Context, reminders []domain.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert reminders: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO reminders (id, account_id, event_id, remind_at_ms, version, priority, identifier)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return fmt.Errorf("prepare bulk insert reminders: %w", err)
	}
	defer stmt.Close()

	for _, rem := range reminders {
		if _, err := stmt.ExecContext(ctx, rem.ID, rem.AccountID, rem.EventID, rem.RemindAtMS, rem.Version, rem.Priority, rem.Identifier); err != nil {
			return fmt.Errorf("bulk insert reminder: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert reminders: %w", err)
	}
	return nil
}

func (r *ReminderRepository) DeleteAllBefore(ctx context.Context, ts int64) ([]domain.Reminder, error) {
	var rows []reminderRow
	err := r.db.SelectContext(ctx, &rows, `
		DELETE FROM reminders WHERE remind_at_ms <= $1
		RETURNING id, account_id, event_id, remind_at_ms, version, priority, identifier`, ts)
	if err != nil {
		return nil, fmt.Errorf("delete due reminders: %w", err)
	}
	result := make([]domain.Reminder, len(rows))
	for i, row := range rows {
		result[i] = row.toDomain()
	}
	return result, nil
}

func (r *ReminderRepository) FindByEventAndPriority(ctx context.Context, eventID uuid.UUID, priority int64) (*domain.Reminder, error) {
	var row reminderRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, account_id, event_id, remind_at_ms, version, priority, identifier
		FROM reminders WHERE event_id = $1 AND priority = $2 LIMIT 1`, eventID, priority)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reminder by event and priority: %w", err)
	}
	rem := row.toDomain()
	return &rem, nil
}

func (r *ReminderRepository) InitVersion(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var version int64
	err := r.db.GetContext(ctx, &version, `
		UPDATE calendar_events SET reminder_version = 1 WHERE id = $1
		RETURNING reminder_version`, eventID)
	if err != nil {
		return 0, fmt.Errorf("init reminder version: %w", err)
	}
	return version, nil
}

func (r *ReminderRepository) IncVersion(ctx context.Context, eventID uuid.UUID) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin inc reminder version: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.GetContext(ctx, &version, `
		UPDATE calendar_events SET reminder_version = reminder_version + 1 WHERE id = $1
		RETURNING reminder_version`, eventID)
	if err != nil {
		return 0, fmt.Errorf("inc reminder version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE event_id = $1 AND version < $2`, eventID, version); err != nil {
		return 0, fmt.Errorf("delete stale reminders: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit inc reminder version: %w", err)
	}
	return version, nil
}

// ExpansionJobRepository implements out.ExpansionJobRepository.
type ExpansionJobRepository struct {
	db *sqlx.DB
}

func NewExpansionJobRepository(db *sqlx.DB) out.ExpansionJobRepository {
	return &ExpansionJobRepository{db: db}
}

type expansionJobRow struct {
	EventID uuid.UUID `db:"event_id"`
	DueAtMS int64     `db:"due_at_ms"`
	Version int64     `db:"version"`
}

func (r *ExpansionJobRepository) BulkInsert(ctx context.Context, jobs []domain.ExpansionJob) error {
	if len(jobs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert expansion jobs: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO expansion_jobs (event_id, due_at_ms, version) VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO UPDATE SET due_at_ms = EXCLUDED.due_at_ms, version = EXCLUDED.version`)
	if err != nil {
		return fmt.Errorf("prepare bulk insert expansion jobs: %w", err)
	}
	defer stmt.Close()

	for _, job := range jobs {
		if _, err := stmt.ExecContext(ctx, job.EventID, job.DueAtMS, job.Version); err != nil {
			return fmt.Errorf("bulk insert expansion job: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert expansion jobs: %w", err)
	}
	return nil
}

func (r *ExpansionJobRepository) DeleteAllBefore(ctx context.Context, ts int64) ([]domain.ExpansionJob, error) {
	var rows []expansionJobRow
	err := r.db.SelectContext(ctx, &rows, `
		DELETE FROM expansion_jobs WHERE due_at_ms <= $1
		RETURNING event_id, due_at_ms, version`, ts)
	if err != nil {
		return nil, fmt.Errorf("delete due expansion jobs: %w", err)
	}
	result := make([]domain.ExpansionJob, len(rows))
	for i, row := range rows {
		result[i] = domain.ExpansionJob{EventID: row.EventID, DueAtMS: row.DueAtMS, Version: row.Version}
	}
	return result, nil
}

// ReservationCounterRepository implements out.ReservationCounterRepository
// on top of a one-row-per-reservation table: each booked group slot adds one
// row, so count is a row count and increment is a lock-then-insert.
type ReservationCounterRepository struct {
	db *sqlx.DB
}

func NewReservationCounterRepository(db *sqlx.DB) out.ReservationCounterRepository {
	return &ReservationCounterRepository{db: db}
}

func (r *ReservationCounterRepository) Count(ctx context.Context, serviceID uuid.UUID, ts int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM reservations WHERE service_id = $1 AND timestamp_ms = $2`, serviceID, ts)
	if err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return count, nil
}

func (r *ReservationCounterRepository) Increment(ctx context.Context, serviceID uuid.UUID, ts int64) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin increment reservation: %w", err)
	}
	defer tx.Rollback()

	// Postgres rejects FOR UPDATE on an aggregate, so concurrent increments
	// serialize on a transaction-scoped advisory lock for this key instead.
	lockKey := fmt.Sprintf("%s:%d", serviceID, ts)
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return 0, fmt.Errorf("lock reservations for increment: %w", err)
	}
	var count int
	err = tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM reservations WHERE service_id = $1 AND timestamp_ms = $2`, serviceID, ts)
	if err != nil {
		return 0, fmt.Errorf("count reservations for increment: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (service_id, timestamp_ms) VALUES ($1, $2)`, serviceID, ts); err != nil {
		return 0, fmt.Errorf("insert reservation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit increment reservation: %w", err)
	}
	return count + 1, nil
}

// DeleteBelow only reclaims timestamps whose reservation count had actually
// reached oldMax (i.e. had a placed, blocking event) and now falls below
// newMax. A count in [0, oldMax) never had a placed event to reclaim, so its
// counter rows are left in place rather than deleted out from under a still
// partial, still-held reservation.
func (r *ReservationCounterRepository) DeleteBelow(ctx context.Context, serviceID uuid.UUID, oldMax, newMax int) ([]domain.Reservation, error) {
	var rows []struct {
		TimestampMS int64 `db:"timestamp_ms"`
		Count       int   `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		WITH counted AS (
			SELECT timestamp_ms, COUNT(*) AS count
			FROM reservations WHERE service_id = $1
			GROUP BY timestamp_ms
		)
		SELECT timestamp_ms, count FROM counted WHERE count >= $2 AND count < $3`, serviceID, oldMax, newMax)
	if err != nil {
		return nil, fmt.Errorf("find reopened reservations: %w", err)
	}

	timestamps := make([]int64, len(rows))
	for i, row := range rows {
		timestamps[i] = row.TimestampMS
	}
	if len(timestamps) > 0 {
		query, args, err := sqlx.In(`DELETE FROM reservations WHERE service_id = ? AND timestamp_ms IN (?)`, serviceID, timestamps)
		if err != nil {
			return nil, fmt.Errorf("build delete reopened reservations query: %w", err)
		}
		query = r.db.Rebind(query)
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("delete reopened reservations: %w", err)
		}
	}

	result := make([]domain.Reservation, len(rows))
	for i, row := range rows {
		result[i] = domain.Reservation{ServiceID: serviceID, TimestampMS: row.TimestampMS, Count: row.Count}
	}
	return result, nil
}
