// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CalendarRepository implements out.CalendarRepository. Delete cascades to
// the calendar's events through the table's ON DELETE CASCADE constraint.
type CalendarRepository struct {
	db *sqlx.DB
}

func NewCalendarRepository(db *sqlx.DB) out.CalendarRepository {
	return &CalendarRepository{db: db}
}

type calendarRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	AccountID uuid.UUID `db:"account_id"`
	Timezone  string    `db:"timezone"`
	WeekStart int       `db:"week_start"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r calendarRow) toDomain() *domain.Calendar {
	return &domain.Calendar{
		ID: r.ID, UserID: r.UserID, AccountID: r.AccountID,
		Timezone: r.Timezone, WeekStart: r.WeekStart,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (r *CalendarRepository) Insert(ctx context.Context, c *domain.Calendar) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO calendars (id, user_id, account_id, timezone, week_start, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.UserID, c.AccountID, c.Timezone, c.WeekStart, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert calendar: %w", err)
	}
	return nil
}

func (r *CalendarRepository) Find(ctx context.Context, id uuid.UUID) (*domain.Calendar, error) {
	var row calendarRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, user_id, account_id, timezone, week_start, created_at, updated_at
		FROM calendars WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find calendar: %w", err)
	}
	return row.toDomain(), nil
}

func (r *CalendarRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Calendar, error) {
	var rows []calendarRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, account_id, timezone, week_start, created_at, updated_at
		FROM calendars WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("find calendars by user: %w", err)
	}
	result := make([]domain.Calendar, len(rows))
	for i, row := range rows {
		result[i] = *row.toDomain()
	}
	return result, nil
}

func (r *CalendarRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete calendar: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_events WHERE calendar_id = $1`, id); err != nil {
		return fmt.Errorf("delete calendar events: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM calendars WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete calendar: %w", err)
	}
	return nil
}

// ScheduleRepository implements out.ScheduleRepository. Rules are stored as
// a single JSONB column; the schedule's timezone governs how the domain
// layer reinterprets them.
type ScheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) out.ScheduleRepository {
	return &ScheduleRepository{db: db}
}

type scheduleRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	AccountID uuid.UUID `db:"account_id"`
	Timezone  string    `db:"timezone"`
	Rules     []byte    `db:"rules"`
}

func (r scheduleRow) toDomain() (*domain.Schedule, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		loc = time.UTC
	}
	var rules []domain.ScheduleRule
	if len(r.Rules) > 0 {
		if err := json.Unmarshal(r.Rules, &rules); err != nil {
			return nil, fmt.Errorf("unmarshal schedule rules: %w", err)
		}
	}
	return &domain.Schedule{ID: r.ID, UserID: r.UserID, AccountID: r.AccountID, Rules: rules, Timezone: loc}, nil
}

func (r *ScheduleRepository) Insert(ctx context.Context, s *domain.Schedule) error {
	rules, err := json.Marshal(s.Rules)
	if err != nil {
		return fmt.Errorf("marshal schedule rules: %w", err)
	}
	tz := "UTC"
	if s.Timezone != nil {
		tz = s.Timezone.String()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO schedules (id, user_id, account_id, timezone, rules)
		VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.UserID, s.AccountID, tz, rules)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) Find(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	var row scheduleRow
	err := r.db.GetContext(ctx, &row, `SELECT id, user_id, account_id, timezone, rules FROM schedules WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	return row.toDomain()
}

func (r *ScheduleRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Schedule, error) {
	var rows []scheduleRow
	err := r.db.SelectContext(ctx, &rows, `SELECT id, user_id, account_id, timezone, rules FROM schedules WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("find schedules by user: %w", err)
	}
	result := make([]domain.Schedule, 0, len(rows))
	for _, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, nil
}

func (r *ScheduleRepository) Update(ctx context.Context, s *domain.Schedule) error {
	rules, err := json.Marshal(s.Rules)
	if err != nil {
		return fmt.Errorf("marshal schedule rules: %w", err)
	}
	tz := "UTC"
	if s.Timezone != nil {
		tz = s.Timezone.String()
	}
	_, err = r.db.ExecContext(ctx, `UPDATE schedules SET timezone = $2, rules = $3 WHERE id = $1`, s.ID, tz, rules)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
