package reminder

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
)

type dueJobRepo struct {
	due      []domain.ExpansionJob
	inserted []domain.ExpansionJob
}

func (f *dueJobRepo) BulkInsert(ctx context.Context, jobs []domain.ExpansionJob) error {
	f.inserted = append(f.inserted, jobs...)
	return nil
}
func (f *dueJobRepo) DeleteAllBefore(ctx context.Context, ts int64) ([]domain.ExpansionJob, error) {
	return f.due, nil
}

type fakeCalendarRepo struct {
	calendars map[uuid.UUID]domain.Calendar
}

func (f *fakeCalendarRepo) Insert(ctx context.Context, calendar *domain.Calendar) error { return nil }
func (f *fakeCalendarRepo) Find(ctx context.Context, id uuid.UUID) (*domain.Calendar, error) {
	c, ok := f.calendars[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
func (f *fakeCalendarRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Calendar, error) {
	return nil, nil
}
func (f *fakeCalendarRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

var (
	_ out.ExpansionJobRepository = (*dueJobRepo)(nil)
	_ out.CalendarRepository     = (*fakeCalendarRepo)(nil)
)

func TestExpansionRunnerTickRematerializesDueJob(t *testing.T) {
	eventID := uuid.New()
	calendarID := uuid.New()
	recurrence := &domain.RecurrenceRule{Freq: domain.FreqDaily, Interval: 1}

	job := domain.ExpansionJob{EventID: eventID, DueAtMS: 90 * 24 * 60 * 60_000, Version: 1}
	jobs := &dueJobRepo{due: []domain.ExpansionJob{job}}
	events := &fakeEventRepo{events: map[uuid.UUID]domain.CalendarEvent{
		eventID: {
			ID:         eventID,
			CalendarID: calendarID,
			StartTS:    0,
			Duration:   30 * 60_000,
			Recurrence: recurrence,
			Reminders:  []domain.EventReminder{{DeltaMinutes: 10, Identifier: "r1"}},
		},
	}}
	calendars := &fakeCalendarRepo{calendars: map[uuid.UUID]domain.Calendar{
		calendarID: {ID: calendarID, Timezone: "UTC"},
	}}
	reminders := &fakeReminderRepo{version: 1}
	materializer := NewMaterializer(reminders, &fakeJobRepo{}, fakeClock{nowMS: job.DueAtMS})

	runner := NewExpansionRunner(jobs, events, calendars, materializer, fakeClock{nowMS: job.DueAtMS}, 60_000)
	if err := runner.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if reminders.version != 2 {
		t.Fatalf("expected the reminder version bumped by the expansion job, got %d", reminders.version)
	}
	if len(reminders.inserted) == 0 {
		t.Fatal("expected the continuation window to materialize at least one reminder")
	}
}

func TestExpansionRunnerTickSkipsDeletedEvent(t *testing.T) {
	eventID := uuid.New()
	job := domain.ExpansionJob{EventID: eventID, DueAtMS: 1000, Version: 1}
	jobs := &dueJobRepo{due: []domain.ExpansionJob{job}}
	events := &fakeEventRepo{events: map[uuid.UUID]domain.CalendarEvent{}} // event no longer exists
	calendars := &fakeCalendarRepo{}
	reminders := &fakeReminderRepo{}
	materializer := NewMaterializer(reminders, &fakeJobRepo{}, fakeClock{nowMS: 1000})

	runner := NewExpansionRunner(jobs, events, calendars, materializer, fakeClock{nowMS: 1000}, 60_000)
	if err := runner.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(reminders.inserted) != 0 {
		t.Fatalf("a job whose event no longer exists must not materialize anything, got %d", len(reminders.inserted))
	}
}

func TestExpansionRunnerTickSkipsNonRecurringEvent(t *testing.T) {
	eventID := uuid.New()
	calendarID := uuid.New()
	job := domain.ExpansionJob{EventID: eventID, DueAtMS: 1000, Version: 1}
	jobs := &dueJobRepo{due: []domain.ExpansionJob{job}}
	events := &fakeEventRepo{events: map[uuid.UUID]domain.CalendarEvent{
		eventID: {ID: eventID, CalendarID: calendarID, StartTS: 0}, // Recurrence was cleared since the job was queued
	}}
	calendars := &fakeCalendarRepo{calendars: map[uuid.UUID]domain.Calendar{calendarID: {ID: calendarID, Timezone: "UTC"}}}
	reminders := &fakeReminderRepo{}
	materializer := NewMaterializer(reminders, &fakeJobRepo{}, fakeClock{nowMS: 1000})

	runner := NewExpansionRunner(jobs, events, calendars, materializer, fakeClock{nowMS: 1000}, 60_000)
	if err := runner.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(reminders.inserted) != 0 {
		t.Fatalf("a non-recurring event must not be re-materialized by an expansion job, got %d", len(reminders.inserted))
	}
}
