package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseIntervalsMergesOverlaps(t *testing.T) {
	in := []ScheduleRuleInterval{
		{Start: Time{9, 0}, End: Time{10, 0}},
		{Start: Time{11, 0}, End: Time{12, 0}},
		{Start: Time{12, 0}, End: Time{13, 0}},
		{Start: Time{12, 30}, End: Time{14, 0}},
		{Start: Time{13, 30}, End: Time{15, 0}},
	}
	got := parseIntervals(in)
	want := []ScheduleRuleInterval{
		{Start: Time{9, 0}, End: Time{10, 0}},
		{Start: Time{11, 0}, End: Time{15, 0}},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("interval %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseIntervalsCapsAtTen(t *testing.T) {
	var in []ScheduleRuleInterval
	for i := 0; i < 15; i++ {
		in = append(in, ScheduleRuleInterval{Start: Time{i, 0}, End: Time{i, 30}})
	}
	got := parseIntervals(in)
	if len(got) > maxIntervalsPerRule {
		t.Fatalf("got %d intervals, want at most %d", len(got), maxIntervalsPerRule)
	}
}

func TestParseIntervalsDropsEndBeforeStart(t *testing.T) {
	in := []ScheduleRuleInterval{{Start: Time{10, 0}, End: Time{9, 0}}}
	got := parseIntervals(in)
	if len(got) != 0 {
		t.Fatalf("got %+v, want empty", got)
	}
}

func TestDayIncHandlesRollover(t *testing.T) {
	d := Day{Year: 2024, Month: 1, Day: 31}
	next := d.Inc()
	want := Day{Year: 2024, Month: 2, Day: 1}
	if next != want {
		t.Fatalf("got %+v, want %+v", next, want)
	}

	d2 := Day{Year: 2021, Month: 12, Day: 31}
	for i := 0; i < 365; i++ {
		d2 = d2.Inc()
	}
	if d2 != (Day{Year: 2022, Month: 12, Day: 31}) {
		t.Fatalf("got %+v, want 2022-12-31 (2022 has 365 days)", d2)
	}
}

func TestScheduleFreebusyDateOverridesWeekday(t *testing.T) {
	s := NewSchedule(uuid.Nil, uuid.Nil, uuid.Nil, time.UTC)
	s.Rules = []ScheduleRule{
		{
			Variant:   ScheduleRuleVariant{IsDate: false, Weekday: time.Monday},
			Intervals: []ScheduleRuleInterval{{Start: Time{9, 0}, End: Time{10, 0}}},
		},
		{
			Variant:   ScheduleRuleVariant{IsDate: true, Date: "1970-01-12"},
			Intervals: []ScheduleRuleInterval{{Start: Time{14, 0}, End: Time{15, 0}}},
		},
	}

	spanStart := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	spanEnd := time.Date(1970, 1, 31, 0, 0, 0, 0, time.UTC).UnixMilli()

	free := s.Freebusy(spanStart, spanEnd)
	if free.IsEmpty() {
		t.Fatalf("expected free instances")
	}
	jan12 := time.Date(1970, 1, 12, 14, 0, 0, 0, time.UTC).UnixMilli()
	found := false
	for _, e := range free.Inner() {
		if e.StartTS == jan12 {
			found = true
			if e.EndTS != time.Date(1970, 1, 12, 15, 0, 0, 0, time.UTC).UnixMilli() {
				t.Errorf("date rule did not override weekday rule: %+v", e)
			}
		}
	}
	if !found {
		t.Errorf("expected a free instance starting at the overridden date's 14:00, got %+v", free.Inner())
	}
}
