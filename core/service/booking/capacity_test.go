package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
)

type fakeReservationRepo struct {
	rows []domain.Reservation
	// oldMaxArg and newMaxArg record the (oldMax, newMax) DeleteBelow was invoked with.
	oldMaxArg, newMaxArg int
}

func (f *fakeReservationRepo) Count(ctx context.Context, serviceID uuid.UUID, ts int64) (int, error) {
	return 0, nil
}
func (f *fakeReservationRepo) Increment(ctx context.Context, serviceID uuid.UUID, ts int64) (int, error) {
	return 0, nil
}
func (f *fakeReservationRepo) DeleteBelow(ctx context.Context, serviceID uuid.UUID, oldMax, newMax int) ([]domain.Reservation, error) {
	f.oldMaxArg, f.newMaxArg = oldMax, newMax
	var reopened []domain.Reservation
	var kept []domain.Reservation
	for _, r := range f.rows {
		if r.Count >= oldMax && r.Count < newMax {
			reopened = append(reopened, r)
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return reopened, nil
}

type fakeCapacityEventRepo struct {
	events  []domain.CalendarEvent
	deleted []uuid.UUID
}

func (f *fakeCapacityEventRepo) Insert(ctx context.Context, event *domain.CalendarEvent) error { return nil }
func (f *fakeCapacityEventRepo) Save(ctx context.Context, event *domain.CalendarEvent) error   { return nil }
func (f *fakeCapacityEventRepo) Find(ctx context.Context, id uuid.UUID) (*domain.CalendarEvent, error) {
	return nil, nil
}
func (f *fakeCapacityEventRepo) FindMany(ctx context.Context, ids []uuid.UUID) ([]domain.CalendarEvent, error) {
	return nil, nil
}
func (f *fakeCapacityEventRepo) FindByCalendar(ctx context.Context, calendarID uuid.UUID, span *domain.TimeSpan) ([]domain.CalendarEvent, error) {
	return nil, nil
}
func (f *fakeCapacityEventRepo) FindByService(ctx context.Context, serviceID uuid.UUID, userIDs []uuid.UUID, minTS, maxTS int64) ([]domain.CalendarEvent, error) {
	var out []domain.CalendarEvent
	for _, e := range f.events {
		if e.StartTS >= minTS && e.StartTS < maxTS {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeCapacityEventRepo) FindMostRecentServiceEvent(ctx context.Context, serviceID uuid.UUID, userIDs []uuid.UUID) ([]out.UserServiceCreated, error) {
	return nil, nil
}
func (f *fakeCapacityEventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeCapacityEventRepo) FindUserServiceEvents(ctx context.Context, userID uuid.UUID, isRecurring bool, span domain.TimeSpan) ([]domain.CalendarEvent, error) {
	return nil, nil
}

var (
	_ out.ReservationCounterRepository = (*fakeReservationRepo)(nil)
	_ out.EventRepository              = (*fakeCapacityEventRepo)(nil)
)

// TestReconcileGroupCapacityLeavesPartialReservationsUntouched is the
// regression test for the overbooking bug: a reservation that never reached
// oldMax must keep its counter (and therefore its held seat) when the cap is
// raised, even though it now falls below newMax.
func TestReconcileGroupCapacityLeavesPartialReservationsUntouched(t *testing.T) {
	serviceID := uuid.New()
	userID := uuid.New()
	const oldMax, newMax = 3, 5

	reservations := &fakeReservationRepo{rows: []domain.Reservation{
		{ServiceID: serviceID, TimestampMS: 1000, Count: 2}, // never reached oldMax
		{ServiceID: serviceID, TimestampMS: 2000, Count: 3}, // reached oldMax, now reopened
	}}
	events := &fakeCapacityEventRepo{events: []domain.CalendarEvent{
		{ID: uuid.New(), StartTS: 2000},
	}}
	service := &domain.Service{
		ID:      serviceID,
		Policy:  domain.MultiPersonPolicy{Kind: domain.PolicyGroup, MaxCapacity: newMax},
		UserIDs: []uuid.UUID{userID},
	}

	if err := ReconcileGroupCapacity(context.Background(), events, reservations, service, oldMax, newMax); err != nil {
		t.Fatalf("ReconcileGroupCapacity: %v", err)
	}

	if reservations.oldMaxArg != oldMax || reservations.newMaxArg != newMax {
		t.Fatalf("DeleteBelow called with (%d, %d), want (%d, %d)", reservations.oldMaxArg, reservations.newMaxArg, oldMax, newMax)
	}
	if len(reservations.rows) != 1 || reservations.rows[0].TimestampMS != 1000 {
		t.Fatalf("expected the partial reservation at ts=1000 to survive untouched, got %+v", reservations.rows)
	}
	if len(events.deleted) != 1 {
		t.Fatalf("expected the one placed event at the reopened timestamp to be cascade-deleted, got %d", len(events.deleted))
	}
}

func TestReconcileGroupCapacityNoopWhenDecreasing(t *testing.T) {
	reservations := &fakeReservationRepo{rows: []domain.Reservation{{Count: 5}}}
	events := &fakeCapacityEventRepo{}
	service := &domain.Service{Policy: domain.MultiPersonPolicy{Kind: domain.PolicyGroup, MaxCapacity: 2}}

	if err := ReconcileGroupCapacity(context.Background(), events, reservations, service, 5, 2); err != nil {
		t.Fatalf("ReconcileGroupCapacity: %v", err)
	}
	if len(reservations.rows) != 1 {
		t.Fatalf("decreasing the cap must not touch any reservation, got %d rows remaining", len(reservations.rows))
	}
	if len(events.deleted) != 0 {
		t.Fatalf("decreasing the cap must not delete any event, got %d deletions", len(events.deleted))
	}
}

func TestReconcileGroupCapacityNoopForNonGroupPolicy(t *testing.T) {
	reservations := &fakeReservationRepo{rows: []domain.Reservation{{Count: 1}}}
	events := &fakeCapacityEventRepo{}
	service := &domain.Service{Policy: domain.MultiPersonPolicy{Kind: domain.PolicyCollective}}

	if err := ReconcileGroupCapacity(context.Background(), events, reservations, service, 1, 10); err != nil {
		t.Fatalf("ReconcileGroupCapacity: %v", err)
	}
	if len(reservations.rows) != 1 {
		t.Fatal("a non-group policy must never reconcile reservation counters")
	}
}
