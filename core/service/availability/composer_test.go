package availability

import (
	"testing"

	"scheduler_server/core/domain"
)

func TestClampToBookingWindowIntersectsSpan(t *testing.T) {
	now := int64(1_000_000)
	resource := &domain.ServiceResource{ClosestBookingMin: 60} // first = now+3_600_000

	span := domain.TimeSpan{Start: 0, End: 10_000_000}
	clamped, ok := clampToBookingWindow(resource, now, span, 0)
	if !ok {
		t.Fatalf("expected intersection to succeed")
	}
	wantStart := now + 60*60_000
	if clamped.Start != wantStart {
		t.Errorf("Start = %d, want %d", clamped.Start, wantStart)
	}
	if clamped.End != span.End {
		t.Errorf("End = %d, want %d", clamped.End, span.End)
	}
}

func TestClampToBookingWindowRejectsEmptyIntersection(t *testing.T) {
	now := int64(0)
	resource := &domain.ServiceResource{ClosestBookingMin: 1000}
	span := domain.TimeSpan{Start: 0, End: 1000}

	_, ok := clampToBookingWindow(resource, now, span, 0)
	if ok {
		t.Fatalf("expected empty intersection to fail clamp")
	}
}

func TestClampToBookingWindowRejectsOverMaxDuration(t *testing.T) {
	now := int64(0)
	resource := &domain.ServiceResource{ClosestBookingMin: 0}
	span := domain.TimeSpan{Start: 0, End: 10_000}

	_, ok := clampToBookingWindow(resource, now, span, 5_000)
	if ok {
		t.Fatalf("expected over-max-duration span to fail clamp")
	}
}

func TestClampToBookingWindowRespectsFurthestBooking(t *testing.T) {
	now := int64(0)
	furthest := 60 // minutes
	resource := &domain.ServiceResource{FurthestBookingMin: &furthest}
	span := domain.TimeSpan{Start: 0, End: 10_000_000}

	clamped, ok := clampToBookingWindow(resource, now, span, 0)
	if !ok {
		t.Fatalf("expected intersection to succeed")
	}
	wantEnd := int64(furthest) * 60_000
	if clamped.End != wantEnd {
		t.Errorf("End = %d, want %d", clamped.End, wantEnd)
	}
}
