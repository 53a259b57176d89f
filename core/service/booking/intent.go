package booking

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
	"scheduler_server/core/service/availability"
	"scheduler_server/pkg/apperr"
)

const day = 24 * 60 * 60 * 1000

// CreateBookingIntentParams is the C6 use-case input.
type CreateBookingIntentParams struct {
	Service      *domain.Service
	Resources    []domain.ServiceResource
	Timestamp    int64
	Duration     int64
	Interval     int64
	HostUserIDs  []uuid.UUID // optional; caller-selected hosts
}

// BookingIntentResult is the C6 use-case output.
type BookingIntentResult struct {
	SelectedHosts       []uuid.UUID
	CreateEventForHosts bool
}

// IntentAssigner runs the booking-intent state machine described in spec
// §4.6 on top of the Availability Composer and Booking-Slot Generator.
type IntentAssigner struct {
	composer   *availability.Composer
	events     out.EventRepository
	reservations out.ReservationCounterRepository
	clock      out.Clock
}

func NewIntentAssigner(composer *availability.Composer, events out.EventRepository, reservations out.ReservationCounterRepository, clock out.Clock) *IntentAssigner {
	return &IntentAssigner{composer: composer, events: events, reservations: reservations, clock: clock}
}

// CreateBookingIntent implements spec §4.6.
func (a *IntentAssigner) CreateBookingIntent(ctx context.Context, p CreateBookingIntentParams) (BookingIntentResult, error) {
	now := a.clock.NowMS()
	tomorrow := now - now%day + day
	windowEnd := tomorrow + 7*day

	slot, err := a.findSlot(ctx, p, tomorrow, windowEnd)
	if err != nil {
		return BookingIntentResult{}, err
	}
	if slot == nil {
		return BookingIntentResult{}, apperr.Unavailable("requested timestamp is not available")
	}

	if len(p.HostUserIDs) > 0 {
		for _, id := range p.HostUserIDs {
			if !containsUUID(slot.UserIDs, id) {
				return BookingIntentResult{}, apperr.Unavailable("requested host is not available at this timestamp")
			}
		}
		return BookingIntentResult{SelectedHosts: p.HostUserIDs, CreateEventForHosts: true}, nil
	}

	switch p.Service.Policy.Kind {
	case domain.PolicyCollective:
		if len(slot.UserIDs) != len(p.Service.UserIDs) {
			return BookingIntentResult{}, apperr.Unavailable("not every host is available")
		}
		return BookingIntentResult{SelectedHosts: p.Service.UserIDs, CreateEventForHosts: true}, nil

	case domain.PolicyGroup:
		if len(slot.UserIDs) != len(p.Service.UserIDs) {
			return BookingIntentResult{}, apperr.Unavailable("not every host is available")
		}
		count, err := a.reservations.Increment(ctx, p.Service.ID, p.Timestamp)
		if err != nil {
			return BookingIntentResult{}, apperr.Storage("increment reservation", err)
		}
		if count > p.Service.Policy.MaxCapacity {
			return BookingIntentResult{}, apperr.Unavailable("booking capacity reached")
		}
		return BookingIntentResult{SelectedHosts: p.Service.UserIDs, CreateEventForHosts: count == p.Service.Policy.MaxCapacity}, nil

	case domain.PolicyRoundRobinAvailability:
		host, err := a.pickByAvailability(ctx, p.Service.ID, slot.UserIDs)
		if err != nil {
			return BookingIntentResult{}, err
		}
		return BookingIntentResult{SelectedHosts: []uuid.UUID{host}, CreateEventForHosts: true}, nil

	case domain.PolicyRoundRobinEqualDistribution:
		host, err := a.pickByEqualDistribution(ctx, p.Service.ID, slot.UserIDs, now)
		if err != nil {
			return BookingIntentResult{}, err
		}
		return BookingIntentResult{SelectedHosts: []uuid.UUID{host}, CreateEventForHosts: true}, nil

	default:
		return BookingIntentResult{}, fmt.Errorf("unknown multi-person policy %v", p.Service.Policy.Kind)
	}
}

// findSlot scans dates in [tomorrow, windowEnd] in order to locate the slot
// whose Start == p.Timestamp.
func (a *IntentAssigner) findSlot(ctx context.Context, p CreateBookingIntentParams, tomorrow, windowEnd int64) (*Slot, error) {
	params := SlotParams{StartTS: tomorrow, EndTS: windowEnd, Duration: p.Duration, Interval: p.Interval}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	hosts := make([]availability.HostFreeBusy, 0, len(p.Resources))
	span := domain.TimeSpan{Start: tomorrow, End: windowEnd}
	for i := range p.Resources {
		host, _, err := a.composer.Compose(ctx, &p.Resources[i], span, p.Service.ID)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, host)
	}

	slots, err := ServiceSlots(hosts, p.Service, params)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		if slots[i].Start == p.Timestamp {
			return &slots[i], nil
		}
		if slots[i].Start > p.Timestamp {
			break
		}
	}
	return nil, nil
}

func (a *IntentAssigner) pickByAvailability(ctx context.Context, serviceID uuid.UUID, candidates []uuid.UUID) (uuid.UUID, error) {
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	created, err := a.events.FindMostRecentServiceEvent(ctx, serviceID, candidates)
	if err != nil {
		return uuid.Nil, apperr.Storage("find most recent service event", err)
	}
	byUser := map[uuid.UUID]*int64{}
	for _, c := range created {
		byUser[c.UserID] = c.Created
	}

	sorted := append([]uuid.UUID(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	best := sorted[0]
	var bestCreated *int64 = byUser[best]
	for _, id := range sorted[1:] {
		c := byUser[id]
		if lessCreated(c, bestCreated) {
			best, bestCreated = id, c
		}
	}
	return best, nil
}

// lessCreated treats nil (no prior event) as earliest.
func lessCreated(a, b *int64) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return *a < *b
}

func (a *IntentAssigner) pickByEqualDistribution(ctx context.Context, serviceID uuid.UUID, candidates []uuid.UUID, now int64) (uuid.UUID, error) {
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	events, err := a.events.FindByService(ctx, serviceID, candidates, now, now+61*day)
	if err != nil {
		return uuid.Nil, apperr.Storage("find by service", err)
	}
	counts := map[uuid.UUID]int{}
	for _, e := range events {
		counts[e.UserID]++
	}

	sorted := append([]uuid.UUID(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	best := sorted[0]
	bestCount := counts[best]
	for _, id := range sorted[1:] {
		if counts[id] < bestCount {
			best, bestCount = id, counts[id]
		}
	}
	return best, nil
}

func containsUUID(haystack []uuid.UUID, needle uuid.UUID) bool {
	for _, id := range haystack {
		if id == needle {
			return true
		}
	}
	return false
}
