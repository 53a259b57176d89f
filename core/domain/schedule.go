package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Time is a local hh:mm.
type Time struct {
	Hours   int
	Minutes int
}

func (t Time) less(o Time) bool {
	if t.Hours != o.Hours {
		return t.Hours < o.Hours
	}
	return t.Minutes < o.Minutes
}

func (t Time) lessEq(o Time) bool {
	return t == o || t.less(o)
}

// ScheduleRuleInterval is a local-time [Start, End) window within a day.
type ScheduleRuleInterval struct {
	Start Time
	End   Time
}

// toEvent realizes the interval on a concrete local day, in the given timezone.
func (i ScheduleRuleInterval) toEvent(d Day, tz *time.Location) EventInstance {
	start := time.Date(d.Year, time.Month(d.Month), d.Day, i.Start.Hours, i.Start.Minutes, 0, 0, tz)
	end := time.Date(d.Year, time.Month(d.Month), d.Day, i.End.Hours, i.End.Minutes, 0, 0, tz)
	return EventInstance{StartTS: start.UnixMilli(), EndTS: end.UnixMilli(), Busy: false}
}

// ScheduleRuleVariant tags whether a rule applies to a weekday or a specific date.
type ScheduleRuleVariant struct {
	IsDate  bool
	Weekday time.Weekday // valid when !IsDate
	Date    string       // "yyyy-mm-dd", valid when IsDate
}

// ScheduleRule binds a variant to its (already-normalized) intervals.
type ScheduleRule struct {
	Variant   ScheduleRuleVariant
	Intervals []ScheduleRuleInterval
}

const maxIntervalsPerRule = 10

// parseIntervals sorts by start, discards end < start, caps at 10, and merges
// overlapping or touching intervals.
func parseIntervals(intervals []ScheduleRuleInterval) []ScheduleRuleInterval {
	kept := make([]ScheduleRuleInterval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.End.less(iv.Start) {
			continue
		}
		kept = append(kept, iv)
	}
	if len(kept) > maxIntervalsPerRule {
		kept = kept[:maxIntervalsPerRule]
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Start.less(kept[j].Start) })

	removed := make([]bool, len(kept))
	for i := range kept {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(kept); j++ {
			if removed[j] {
				continue
			}
			if kept[j].Start == kept[i].Start || kept[j].Start.lessEq(kept[i].End) {
				if kept[i].End.less(kept[j].End) {
					kept[i].End = kept[j].End
				}
				removed[j] = true
			}
		}
	}
	out := make([]ScheduleRuleInterval, 0, len(kept))
	for i, r := range removed {
		if !r {
			out = append(out, kept[i])
		}
	}
	return out
}

// Day is a plain local calendar day, used to walk a schedule's day cursor
// without repeatedly truncating a time.Time.
type Day struct {
	Year  int
	Month int
	Day   int
}

func dayFromTime(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: int(m), Day: d}
}

// Inc returns the next calendar day, handling month/year rollover.
func (d Day) Inc() Day {
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return dayFromTime(t)
}

func (d Day) weekday() time.Weekday {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Day) dateString() string {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// Compare orders two Days chronologically.
func (d Day) Compare(o Day) int {
	if d.Year != o.Year {
		return d.Year - o.Year
	}
	if d.Month != o.Month {
		return d.Month - o.Month
	}
	return d.Day - o.Day
}

// Schedule is a User's named set of weekday/date availability rules.
type Schedule struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	AccountID uuid.UUID
	Rules     []ScheduleRule
	Timezone  *time.Location
}

// DefaultRules returns Mon-Fri 09:00-17:30, the schedule created when none is
// supplied.
func DefaultRules() []ScheduleRule {
	interval := ScheduleRuleInterval{Start: Time{9, 0}, End: Time{17, 30}}
	var rules []ScheduleRule
	for _, wd := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		rules = append(rules, ScheduleRule{
			Variant:   ScheduleRuleVariant{IsDate: false, Weekday: wd},
			Intervals: []ScheduleRuleInterval{interval},
		})
	}
	return rules
}

// NewSchedule builds a Schedule with the default Mon-Fri rules.
func NewSchedule(id, userID, accountID uuid.UUID, tz *time.Location) *Schedule {
	return &Schedule{ID: id, UserID: userID, AccountID: accountID, Rules: DefaultRules(), Timezone: tz}
}

// SetRules normalizes each rule's intervals and drops date-variant rules
// outside [now-2d, now+5y]; weekday-variant rules are always kept.
func (s *Schedule) SetRules(rules []ScheduleRule, now time.Time) {
	minDate := dayFromTime(now.AddDate(0, 0, -2))
	maxDate := dayFromTime(now.AddDate(5, 0, 0))

	kept := make([]ScheduleRule, 0, len(rules))
	for _, r := range rules {
		if r.Variant.IsDate {
			d, err := parseDate(r.Variant.Date)
			if err != nil || d.Compare(minDate) < 0 || d.Compare(maxDate) > 0 {
				continue
			}
		}
		r.Intervals = parseIntervals(r.Intervals)
		kept = append(kept, r)
	}
	s.Rules = kept
}

func parseDate(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, err
	}
	return dayFromTime(t), nil
}

// Freebusy evaluates the schedule's rules over [spanStart, spanEnd] (ms,
// inclusive) and returns the resulting free CompatibleInstances, in day order.
// A date-variant rule for a given local day overrides a weekday-variant rule
// for the same day.
func (s *Schedule) Freebusy(spanStart, spanEnd int64) CompatibleInstances {
	tz := s.Timezone
	if tz == nil {
		tz = time.UTC
	}
	startLocal := time.UnixMilli(spanStart).In(tz)
	endLocal := time.UnixMilli(spanEnd).In(tz)

	dateLookup := make(map[string][]ScheduleRuleInterval)
	weekdayLookup := make(map[time.Weekday][]ScheduleRuleInterval)
	for _, r := range s.Rules {
		if r.Variant.IsDate {
			dateLookup[r.Variant.Date] = r.Intervals
		} else {
			weekdayLookup[r.Variant.Weekday] = r.Intervals
		}
	}

	var out CompatibleInstances
	cursor := dayFromTime(startLocal)
	last := dayFromTime(endLocal)
	for cursor.Compare(last) <= 0 {
		intervals, ok := dateLookup[cursor.dateString()]
		if !ok {
			intervals, ok = weekdayLookup[cursor.weekday()]
		}
		if ok {
			for _, iv := range intervals {
				out.PushBack(iv.toEvent(cursor, tz))
			}
		}
		cursor = cursor.Inc()
	}
	return out
}
