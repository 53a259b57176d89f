// Package booking implements the Booking-Slot Generator (spec §4.5) and the
// Host Assignment booking-intent state machine (spec §4.6).
package booking

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/service/availability"
	"scheduler_server/pkg/apperr"
)

const (
	minSlotIntervalMS = 5 * 60_000
	maxSlotIntervalMS = 120 * 60_000
)

// SlotParams are the quantization parameters for slot generation.
type SlotParams struct {
	StartTS  int64
	EndTS    int64
	Duration int64
	Interval int64
}

// Validate enforces interval ∈ [5 min, 120 min] and duration ≥ 1 ms.
func (p SlotParams) Validate() error {
	if p.Interval < minSlotIntervalMS || p.Interval > maxSlotIntervalMS {
		return apperr.BadInput("interval must be between 5 and 120 minutes")
	}
	if p.Duration < 1 {
		return apperr.BadInput("duration must be at least 1 millisecond")
	}
	return nil
}

// Slot is a candidate bookable (start, duration) pair aggregated across
// every host free at that cursor.
type Slot struct {
	Start    int64
	Duration int64
	UserIDs  []uuid.UUID
}

// hostSlot is one host's per-cursor availability, before aggregation.
type hostSlot struct {
	start          int64
	availableUntil int64
}

// HostSlots quantizes a single host's free set into candidate slots.
func HostSlots(free domain.CompatibleInstances, params SlotParams) []hostSlot {
	var slots []hostSlot
	for cursor := params.StartTS; cursor+params.Duration <= params.EndTS; cursor += params.Interval {
		if containing, ok := containingInstance(free, cursor, params.Duration); ok {
			slots = append(slots, hostSlot{start: cursor, availableUntil: containing.EndTS})
		}
	}
	return slots
}

func containingInstance(free domain.CompatibleInstances, cursor, duration int64) (domain.EventInstance, bool) {
	for i := 0; i < free.Len(); i++ {
		instance := free.Get(i)
		if instance.StartTS <= cursor && cursor+duration <= instance.EndTS {
			return instance, true
		}
	}
	return domain.EventInstance{}, false
}

// ServiceSlots intersects every host's free set into service-level slots,
// applying the policy-specific completeness filter and sorting by start.
func ServiceSlots(hosts []availability.HostFreeBusy, service *domain.Service, params SlotParams) ([]Slot, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if service.Policy.Kind == domain.PolicyGroup && service.Policy.MaxCapacity == 0 {
		return nil, nil
	}

	byCursor := map[int64][]uuid.UUID{}
	var cursors []int64
	for _, host := range hosts {
		slots := HostSlots(host.FreeEvents, params)
		for _, s := range slots {
			if _, seen := byCursor[s.start]; !seen {
				cursors = append(cursors, s.start)
			}
			byCursor[s.start] = append(byCursor[s.start], host.UserID)
		}
	}
	sort.Slice(cursors, func(i, j int) bool { return cursors[i] < cursors[j] })

	requireAll := service.Policy.Kind == domain.PolicyCollective || service.Policy.Kind == domain.PolicyGroup
	result := make([]Slot, 0, len(cursors))
	for _, cursor := range cursors {
		userIDs := byCursor[cursor]
		if requireAll && len(userIDs) != len(service.UserIDs) {
			continue
		}
		result = append(result, Slot{Start: cursor, Duration: params.Duration, UserIDs: userIDs})
	}
	return result, nil
}

// GroupByDate groups slots by local calendar date in loc (UTC if nil).
func GroupByDate(slots []Slot, loc *time.Location) map[string][]Slot {
	if loc == nil {
		loc = time.UTC
	}
	grouped := map[string][]Slot{}
	for _, s := range slots {
		key := time.UnixMilli(s.Start).In(loc).Format("2006-01-02")
		grouped[key] = append(grouped[key], s)
	}
	return grouped
}
