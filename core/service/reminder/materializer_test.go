package reminder

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
)

type fakeClock struct{ nowMS int64 }

func (c fakeClock) NowMS() int64 { return c.nowMS }

type fakeReminderRepo struct {
	inserted []domain.Reminder
	version  int64
}

func (f *fakeReminderRepo) BulkInsert(ctx context.Context, reminders []domain.Reminder) error {
	f.inserted = append(f.inserted, reminders...)
	return nil
}
func (f *fakeReminderRepo) DeleteAllBefore(ctx context.Context, ts int64) ([]domain.Reminder, error) {
	return nil, nil
}
func (f *fakeReminderRepo) FindByEventAndPriority(ctx context.Context, eventID uuid.UUID, priority int64) (*domain.Reminder, error) {
	return nil, nil
}
func (f *fakeReminderRepo) InitVersion(ctx context.Context, eventID uuid.UUID) (int64, error) {
	f.version = 1
	return f.version, nil
}
func (f *fakeReminderRepo) IncVersion(ctx context.Context, eventID uuid.UUID) (int64, error) {
	f.version++
	return f.version, nil
}

type fakeJobRepo struct {
	inserted []domain.ExpansionJob
}

func (f *fakeJobRepo) BulkInsert(ctx context.Context, jobs []domain.ExpansionJob) error {
	f.inserted = append(f.inserted, jobs...)
	return nil
}
func (f *fakeJobRepo) DeleteAllBefore(ctx context.Context, ts int64) ([]domain.ExpansionJob, error) {
	return nil, nil
}

var _ out.ReminderRepository = (*fakeReminderRepo)(nil)
var _ out.ExpansionJobRepository = (*fakeJobRepo)(nil)

func TestMaterializerOnEventCreatedNonRecurring(t *testing.T) {
	reminders := &fakeReminderRepo{}
	jobs := &fakeJobRepo{}
	m := NewMaterializer(reminders, jobs, fakeClock{nowMS: 0})

	event := &domain.CalendarEvent{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		StartTS:   10 * 60_000, // 10 minutes in
		Duration:  30 * 60_000,
		Reminders: []domain.EventReminder{{DeltaMinutes: 5, Identifier: "five-min-before"}},
	}

	if err := m.OnEventCreated(context.Background(), event, domain.CalendarSettings{}); err != nil {
		t.Fatalf("OnEventCreated: %v", err)
	}
	if len(reminders.inserted) != 1 {
		t.Fatalf("expected 1 materialized reminder, got %d", len(reminders.inserted))
	}
	got := reminders.inserted[0]
	wantRemindAt := event.StartTS + 5*60_000
	if got.RemindAtMS != wantRemindAt {
		t.Errorf("RemindAtMS = %d, want %d", got.RemindAtMS, wantRemindAt)
	}
	if got.Identifier != "five-min-before" {
		t.Errorf("Identifier not carried through: got %q", got.Identifier)
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1 from InitVersion", got.Version)
	}
}

func TestMaterializerSkipsRemindersPastThreshold(t *testing.T) {
	reminders := &fakeReminderRepo{}
	jobs := &fakeJobRepo{}
	// now is set so the only reminder's remind-at already falls within the
	// dispatch threshold lead, and must not be (re)materialized.
	m := NewMaterializer(reminders, jobs, fakeClock{nowMS: 10 * 60_000})

	event := &domain.CalendarEvent{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		StartTS:   10*60_000 - 4*60_000, // remind_at = start + 5min = 11min mark, inside the 61s threshold lead past now (10min)
		Duration:  30 * 60_000,
		Reminders: []domain.EventReminder{{DeltaMinutes: 5, Identifier: "too-late"}},
	}

	if err := m.OnEventCreated(context.Background(), event, domain.CalendarSettings{}); err != nil {
		t.Fatalf("OnEventCreated: %v", err)
	}
	if len(reminders.inserted) != 0 {
		t.Fatalf("expected reminder within the dispatch lead window to be skipped, got %d inserted", len(reminders.inserted))
	}
}

func TestMaterializerOnEventUpdatedBumpsVersion(t *testing.T) {
	reminders := &fakeReminderRepo{}
	jobs := &fakeJobRepo{}
	m := NewMaterializer(reminders, jobs, fakeClock{nowMS: 0})

	event := &domain.CalendarEvent{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		StartTS:   60 * 60_000,
		Duration:  30 * 60_000,
		Reminders: []domain.EventReminder{{DeltaMinutes: 10, Identifier: "r1"}},
	}

	if err := m.OnEventCreated(context.Background(), event, domain.CalendarSettings{}); err != nil {
		t.Fatalf("OnEventCreated: %v", err)
	}
	if err := m.OnEventUpdated(context.Background(), event, domain.CalendarSettings{}); err != nil {
		t.Fatalf("OnEventUpdated: %v", err)
	}
	if reminders.version != 2 {
		t.Fatalf("expected version incremented to 2 after update, got %d", reminders.version)
	}
	if len(reminders.inserted) != 2 {
		t.Fatalf("expected both the created and updated reminder rows to be recorded, got %d", len(reminders.inserted))
	}
	if reminders.inserted[1].Version != 2 {
		t.Errorf("second materialization should carry the bumped version, got %d", reminders.inserted[1].Version)
	}
}

func TestMaterializerOnEventDeletedBumpsVersionWithoutRematerializing(t *testing.T) {
	reminders := &fakeReminderRepo{version: 3}
	jobs := &fakeJobRepo{}
	m := NewMaterializer(reminders, jobs, fakeClock{nowMS: 0})

	if err := m.OnEventDeleted(context.Background(), uuid.New()); err != nil {
		t.Fatalf("OnEventDeleted: %v", err)
	}
	if reminders.version != 4 {
		t.Fatalf("expected version bumped on delete, got %d", reminders.version)
	}
	if len(reminders.inserted) != 0 {
		t.Fatalf("delete must not materialize new reminders, got %d", len(reminders.inserted))
	}
}

func TestMaterializerNoReminders(t *testing.T) {
	reminders := &fakeReminderRepo{}
	jobs := &fakeJobRepo{}
	m := NewMaterializer(reminders, jobs, fakeClock{nowMS: 0})

	event := &domain.CalendarEvent{ID: uuid.New(), StartTS: 1000}
	if err := m.OnEventCreated(context.Background(), event, domain.CalendarSettings{}); err != nil {
		t.Fatalf("OnEventCreated: %v", err)
	}
	if len(reminders.inserted) != 0 || len(jobs.inserted) != 0 {
		t.Fatal("an event with no reminders configured must not materialize anything")
	}
}
