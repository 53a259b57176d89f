package reminder

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
)

type dueReminderRepo struct {
	due       []domain.Reminder
	superseded map[uuid.UUID]*domain.Reminder
}

func (f *dueReminderRepo) BulkInsert(ctx context.Context, reminders []domain.Reminder) error {
	return nil
}
func (f *dueReminderRepo) DeleteAllBefore(ctx context.Context, ts int64) ([]domain.Reminder, error) {
	return f.due, nil
}
func (f *dueReminderRepo) FindByEventAndPriority(ctx context.Context, eventID uuid.UUID, priority int64) (*domain.Reminder, error) {
	if f.superseded == nil {
		return nil, nil
	}
	return f.superseded[eventID], nil
}
func (f *dueReminderRepo) InitVersion(ctx context.Context, eventID uuid.UUID) (int64, error) { return 1, nil }
func (f *dueReminderRepo) IncVersion(ctx context.Context, eventID uuid.UUID) (int64, error)  { return 1, nil }

type fakeEventRepo struct {
	events map[uuid.UUID]domain.CalendarEvent
}

func (f *fakeEventRepo) Insert(ctx context.Context, event *domain.CalendarEvent) error { return nil }
func (f *fakeEventRepo) Save(ctx context.Context, event *domain.CalendarEvent) error   { return nil }
func (f *fakeEventRepo) Find(ctx context.Context, id uuid.UUID) (*domain.CalendarEvent, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}
func (f *fakeEventRepo) FindMany(ctx context.Context, ids []uuid.UUID) ([]domain.CalendarEvent, error) {
	var out []domain.CalendarEvent
	for _, id := range ids {
		if e, ok := f.events[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeEventRepo) FindByCalendar(ctx context.Context, calendarID uuid.UUID, span *domain.TimeSpan) ([]domain.CalendarEvent, error) {
	return nil, nil
}
func (f *fakeEventRepo) FindByService(ctx context.Context, serviceID uuid.UUID, userIDs []uuid.UUID, minTS, maxTS int64) ([]domain.CalendarEvent, error) {
	return nil, nil
}
func (f *fakeEventRepo) FindMostRecentServiceEvent(ctx context.Context, serviceID uuid.UUID, userIDs []uuid.UUID) ([]out.UserServiceCreated, error) {
	return nil, nil
}
func (f *fakeEventRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeEventRepo) FindUserServiceEvents(ctx context.Context, userID uuid.UUID, isRecurring bool, span domain.TimeSpan) ([]domain.CalendarEvent, error) {
	return nil, nil
}

type fakeAccountRepo struct {
	accounts map[uuid.UUID]domain.Account
}

func (f *fakeAccountRepo) Insert(ctx context.Context, account *domain.Account) error { return nil }
func (f *fakeAccountRepo) Find(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}
func (f *fakeAccountRepo) FindMany(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error) {
	var out []domain.Account
	for _, id := range ids {
		if a, ok := f.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}
func (f *fakeAccountRepo) Update(ctx context.Context, account *domain.Account) error { return nil }
func (f *fakeAccountRepo) Delete(ctx context.Context, id uuid.UUID) error            { return nil }

type recordingWebhook struct {
	delivered []out.WebhookPayload
}

func (w *recordingWebhook) Deliver(ctx context.Context, account *domain.Account, payload out.WebhookPayload) error {
	w.delivered = append(w.delivered, payload)
	return nil
}

var (
	_ out.ReminderRepository = (*dueReminderRepo)(nil)
	_ out.EventRepository    = (*fakeEventRepo)(nil)
	_ out.AccountRepository  = (*fakeAccountRepo)(nil)
	_ out.Webhook            = (*recordingWebhook)(nil)
)

func TestDispatcherTickDedupesByEventKeepingHighestPriority(t *testing.T) {
	eventID := uuid.New()
	accountID := uuid.New()
	reminders := &dueReminderRepo{due: []domain.Reminder{
		{EventID: eventID, AccountID: accountID, Priority: 1},
		{EventID: eventID, AccountID: accountID, Priority: 2},
	}}
	events := &fakeEventRepo{events: map[uuid.UUID]domain.CalendarEvent{eventID: {ID: eventID, AccountID: accountID}}}
	accounts := &fakeAccountRepo{accounts: map[uuid.UUID]domain.Account{accountID: {ID: accountID}}}
	webhook := &recordingWebhook{}

	d := NewDispatcher(reminders, events, accounts, webhook, fakeClock{}, 60_000)
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(webhook.delivered) != 1 {
		t.Fatalf("expected exactly one webhook delivery for the deduped event, got %d", len(webhook.delivered))
	}
}

func TestDispatcherTickDropsSupersededZeroPriority(t *testing.T) {
	eventID := uuid.New()
	accountID := uuid.New()
	reminders := &dueReminderRepo{
		due:        []domain.Reminder{{EventID: eventID, AccountID: accountID, Priority: 0}},
		superseded: map[uuid.UUID]*domain.Reminder{eventID: {EventID: eventID, Priority: 1}},
	}
	events := &fakeEventRepo{events: map[uuid.UUID]domain.CalendarEvent{eventID: {ID: eventID, AccountID: accountID}}}
	accounts := &fakeAccountRepo{accounts: map[uuid.UUID]domain.Account{accountID: {ID: accountID}}}
	webhook := &recordingWebhook{}

	d := NewDispatcher(reminders, events, accounts, webhook, fakeClock{}, 60_000)
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(webhook.delivered) != 0 {
		t.Fatalf("a priority-0 reminder superseded by a still-pending priority-1 row must not deliver, got %d deliveries", len(webhook.delivered))
	}
}

func TestDispatcherTickNoDueReminders(t *testing.T) {
	reminders := &dueReminderRepo{}
	events := &fakeEventRepo{events: map[uuid.UUID]domain.CalendarEvent{}}
	accounts := &fakeAccountRepo{accounts: map[uuid.UUID]domain.Account{}}
	webhook := &recordingWebhook{}

	d := NewDispatcher(reminders, events, accounts, webhook, fakeClock{}, 60_000)
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(webhook.delivered) != 0 {
		t.Fatalf("expected no deliveries when nothing is due, got %d", len(webhook.delivered))
	}
}

func TestDispatcherTickSkipsReminderForDeletedEvent(t *testing.T) {
	eventID := uuid.New()
	accountID := uuid.New()
	reminders := &dueReminderRepo{due: []domain.Reminder{{EventID: eventID, AccountID: accountID, Priority: 1}}}
	events := &fakeEventRepo{events: map[uuid.UUID]domain.CalendarEvent{}} // event no longer exists
	accounts := &fakeAccountRepo{accounts: map[uuid.UUID]domain.Account{accountID: {ID: accountID}}}
	webhook := &recordingWebhook{}

	d := NewDispatcher(reminders, events, accounts, webhook, fakeClock{}, 60_000)
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(webhook.delivered) != 0 {
		t.Fatalf("a reminder whose event no longer exists must not be delivered, got %d", len(webhook.delivered))
	}
}
