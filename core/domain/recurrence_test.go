package domain

import (
	"testing"
	"time"
)

func utcSettings() CalendarSettings {
	return CalendarSettings{Timezone: time.UTC, WeekStart: time.Sunday}
}

func TestExpandDailyWithExdateAtFirstOccurrence(t *testing.T) {
	startTS := int64(1521317491239)
	count := 4
	rule := &RecurrenceRule{Freq: FreqDaily, Interval: 1, Count: &count}

	oc, err := Expand(startTS, time.Hour.Milliseconds(), false, rule, []int64{startTS}, nil, utcSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(oc) != count-1 {
		t.Fatalf("got %d occurrences, want %d", len(oc), count-1)
	}
}

func TestExpandNonRecurring(t *testing.T) {
	startTS := int64(1521317491239)
	duration := time.Hour.Milliseconds()

	oc, err := Expand(startTS, duration, false, nil, nil, nil, utcSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(oc) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(oc))
	}

	oc2, err := Expand(startTS, duration, false, nil, []int64{startTS}, nil, utcSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(oc2) != 0 {
		t.Fatalf("got %d occurrences, want 0 when exdate matches start", len(oc2))
	}
}

func TestRecurrenceValidationRejectsInvalid(t *testing.T) {
	startTS := int64(1521317491239)
	tooBig := 1000
	farUntil := time.Date(2150, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	cases := []RecurrenceRule{
		{Freq: FreqDaily, Interval: 1, Count: &tooBig},
		{Freq: FreqDaily, Interval: 1, Until: &farUntil},
		{Freq: FreqMonthly, Interval: 1, BySetPos: []int{1}},
	}
	for i, rule := range cases {
		if err := rule.Validate(startTS); err == nil {
			t.Errorf("case %d: expected validation error, got nil", i)
		}
	}
}

func TestRecurrenceValidationAllowsValid(t *testing.T) {
	startTS := int64(1521317491239)
	hundred := 100
	until := startTS + (time.Hour * 24 * 100).Milliseconds()

	cases := []RecurrenceRule{
		{Freq: FreqDaily, Interval: 1},
		{Freq: FreqDaily, Interval: 1, Count: &hundred},
		{Freq: FreqDaily, Interval: 1, Until: &until},
		{Freq: FreqWeekly, Interval: 1, ByWeekday: []WeekdaySpec{{Weekday: time.Monday}}},
		{Freq: FreqMonthly, Interval: 1, ByWeekday: []WeekdaySpec{{HasNth: true, Nth: 1, Weekday: time.Monday}}},
	}
	for i, rule := range cases {
		if err := rule.Validate(startTS); err != nil {
			t.Errorf("case %d: expected no error, got %v", i, err)
		}
	}
}

func TestExpandWeeklyIsTimezoneStable(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	settings := CalendarSettings{Timezone: loc, WeekStart: time.Sunday}
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, loc) // a Monday, before US DST start
	weeks := 6
	count := weeks
	rule := &RecurrenceRule{Freq: FreqWeekly, Interval: 1, Count: &count}

	oc, err := Expand(start.UnixMilli(), time.Hour.Milliseconds(), false, rule, nil, nil, settings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(oc) != weeks {
		t.Fatalf("got %d occurrences, want %d", len(oc), weeks)
	}
	for _, inst := range oc {
		local := time.UnixMilli(inst.StartTS).In(loc)
		if local.Hour() != 9 || local.Minute() != 0 {
			t.Errorf("occurrence %v did not preserve local 09:00", local)
		}
	}
}
