package booking

import (
	"testing"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/service/availability"
)

func TestSlotParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  SlotParams
		wantErr bool
	}{
		{"valid", SlotParams{Interval: 15 * 60_000, Duration: 30 * 60_000}, false},
		{"interval too small", SlotParams{Interval: 60_000, Duration: 30 * 60_000}, true},
		{"interval too large", SlotParams{Interval: 121 * 60_000, Duration: 30 * 60_000}, true},
		{"zero duration", SlotParams{Interval: 15 * 60_000, Duration: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHostSlots(t *testing.T) {
	free := domain.NewCompatibleInstances([]domain.EventInstance{
		{StartTS: 0, EndTS: 3_600_000}, // one hour window
	})
	params := SlotParams{StartTS: 0, EndTS: 3_600_000, Duration: 1_800_000, Interval: 1_800_000}

	got := HostSlots(free, params)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidate slots (cursor 0 and cursor 1_800_000, both with room for a 30min duration before EndTS), got %d", len(got))
	}
	if got[0].start != 0 {
		t.Errorf("expected first slot at cursor 0, got %d", got[0].start)
	}
}

func TestHostSlotsNoFreeWindow(t *testing.T) {
	free := domain.NewCompatibleInstances(nil)
	params := SlotParams{StartTS: 0, EndTS: 3_600_000, Duration: 1_800_000, Interval: 1_800_000}

	if got := HostSlots(free, params); len(got) != 0 {
		t.Fatalf("expected no slots with no free instances, got %d", len(got))
	}
}

func TestServiceSlotsSinglePolicyDoesNotRequireAllHosts(t *testing.T) {
	userA, userB := uuid.New(), uuid.New()
	params := SlotParams{StartTS: 0, EndTS: 3_600_000, Duration: 1_800_000, Interval: 1_800_000}

	hosts := []availability.HostFreeBusy{
		{UserID: userA, FreeEvents: domain.NewCompatibleInstances([]domain.EventInstance{{StartTS: 0, EndTS: 3_600_000}})},
		{UserID: userB, FreeEvents: domain.NewCompatibleInstances(nil)},
	}
	service := &domain.Service{Policy: domain.MultiPersonPolicy{Kind: domain.PolicyRoundRobinAvailability}, UserIDs: []uuid.UUID{userA, userB}}

	slots, err := ServiceSlots(hosts, service, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected at least one slot when only one host of a round-robin service is free")
	}
}

func TestServiceSlotsCollectivePolicyRequiresAllHosts(t *testing.T) {
	userA, userB := uuid.New(), uuid.New()
	params := SlotParams{StartTS: 0, EndTS: 1_800_000, Duration: 1_800_000, Interval: 1_800_000}

	hosts := []availability.HostFreeBusy{
		{UserID: userA, FreeEvents: domain.NewCompatibleInstances([]domain.EventInstance{{StartTS: 0, EndTS: 1_800_000}})},
		{UserID: userB, FreeEvents: domain.NewCompatibleInstances(nil)},
	}
	service := &domain.Service{Policy: domain.MultiPersonPolicy{Kind: domain.PolicyCollective}, UserIDs: []uuid.UUID{userA, userB}}

	slots, err := ServiceSlots(hosts, service, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots when a collective-policy host is unavailable, got %d", len(slots))
	}
}

func TestServiceSlotsGroupPolicyZeroCapacityYieldsNoSlots(t *testing.T) {
	userA := uuid.New()
	params := SlotParams{StartTS: 0, EndTS: 3_600_000, Duration: 1_800_000, Interval: 1_800_000}

	hosts := []availability.HostFreeBusy{
		{UserID: userA, FreeEvents: domain.NewCompatibleInstances([]domain.EventInstance{{StartTS: 0, EndTS: 3_600_000}})},
	}
	service := &domain.Service{Policy: domain.MultiPersonPolicy{Kind: domain.PolicyGroup, MaxCapacity: 0}, UserIDs: []uuid.UUID{userA}}

	slots, err := ServiceSlots(hosts, service, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots != nil {
		t.Fatalf("expected nil slots for a zero-capacity group service, got %v", slots)
	}
}

func TestServiceSlotsPropagatesValidationError(t *testing.T) {
	service := &domain.Service{Policy: domain.MultiPersonPolicy{Kind: domain.PolicyCollective}}
	_, err := ServiceSlots(nil, service, SlotParams{Interval: 1})
	if err == nil {
		t.Fatal("expected validation error for sub-minimum interval")
	}
}

func TestGroupByDate(t *testing.T) {
	day := int64(24 * 60 * 60 * 1000)
	slots := []Slot{
		{Start: 0},
		{Start: 3_600_000},
		{Start: day},
	}
	grouped := GroupByDate(slots, nil)
	if len(grouped) != 2 {
		t.Fatalf("expected 2 distinct dates, got %d", len(grouped))
	}
	if len(grouped["1970-01-01"]) != 2 {
		t.Fatalf("expected 2 slots on 1970-01-01, got %d", len(grouped["1970-01-01"]))
	}
	if len(grouped["1970-01-02"]) != 1 {
		t.Fatalf("expected 1 slot on 1970-01-02, got %d", len(grouped["1970-01-02"]))
	}
}
