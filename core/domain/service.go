package domain

import "github.com/google/uuid"

// MultiPersonPolicyKind tags a Service's team-scheduling policy.
type MultiPersonPolicyKind int

const (
	PolicyCollective MultiPersonPolicyKind = iota
	PolicyGroup
	PolicyRoundRobinAvailability
	PolicyRoundRobinEqualDistribution
)

// MultiPersonPolicy is a tagged sum; MaxCapacity is only meaningful for
// PolicyGroup.
type MultiPersonPolicy struct {
	Kind        MultiPersonPolicyKind
	MaxCapacity int
}

// Service belongs to an Account and groups one or more Users under a
// team-scheduling policy.
type Service struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Policy    MultiPersonPolicy
	UserIDs   []uuid.UUID
}

// AvailabilityPlanKind tags a ServiceResource's availability source.
type AvailabilityPlanKind int

const (
	PlanEmpty AvailabilityPlanKind = iota
	PlanCalendar
	PlanSchedule
)

// AvailabilityPlan is a tagged sum: empty | calendar(id) | schedule(id).
type AvailabilityPlan struct {
	Kind AvailabilityPlanKind
	ID   uuid.UUID // valid when Kind != PlanEmpty
}

// ServiceResource is a User's membership in a Service.
type ServiceResource struct {
	ServiceID uuid.UUID
	UserID    uuid.UUID

	Availability AvailabilityPlan

	BufferBeforeMin int
	BufferAfterMin  int

	ClosestBookingMin  int
	FurthestBookingMin *int
}

const maxBufferMinutes = 720

// ClampBuffers enforces the [0,720] minute buffer invariant and non-negative
// booking offsets.
func (r *ServiceResource) ClampBuffers() {
	r.BufferBeforeMin = clampInt(r.BufferBeforeMin, 0, maxBufferMinutes)
	r.BufferAfterMin = clampInt(r.BufferAfterMin, 0, maxBufferMinutes)
	if r.ClosestBookingMin < 0 {
		r.ClosestBookingMin = 0
	}
	if r.FurthestBookingMin != nil && *r.FurthestBookingMin < 0 {
		zero := 0
		r.FurthestBookingMin = &zero
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BusyCalendarRefKind tags whether a BusyCalendarLink points at an internal
// calendar or an external provider calendar.
type BusyCalendarRefKind int

const (
	BusyRefInternal BusyCalendarRefKind = iota
	BusyRefExternal
)

// BusyCalendarLink enumerates a busy source for a (service, user) pair.
type BusyCalendarLink struct {
	ServiceID uuid.UUID
	UserID    uuid.UUID

	RefKind BusyCalendarRefKind

	InternalCalendarID uuid.UUID // valid when RefKind == BusyRefInternal

	ExternalProvider string // valid when RefKind == BusyRefExternal
	ExternalID       string
}
