package domain

import (
	"time"

	"github.com/teambition/rrule-go"
)

// Frequency is the recurrence base unit.
type Frequency int

const (
	FreqYearly Frequency = iota
	FreqMonthly
	FreqWeekly
	FreqDaily
)

// WeekdaySpec is a byweekday entry; HasNth distinguishes a plain weekday from an
// "nth weekday of the period" entry (e.g. "1st Monday").
type WeekdaySpec struct {
	HasNth  bool
	Nth     int
	Weekday time.Weekday
}

// RecurrenceRule is the persisted shape of a recurrence, per the data model.
type RecurrenceRule struct {
	Freq       Frequency
	Interval   int
	Count      *int
	Until      *int64
	BySetPos   []int
	ByWeekday  []WeekdaySpec
	ByMonthDay []int
	ByMonth    []int
	ByYearDay  []int
	ByWeekNo   []int
}

// CalendarSettings governs local-time interpretation of a calendar's events.
type CalendarSettings struct {
	Timezone  *time.Location
	WeekStart time.Weekday
}

const maxRecurrenceCount = 730
const maxRecurrenceYears = 2

// Validate checks the rule against the invariants in the data model: count
// bounds, until bounds relative to startTS, bysetpos companion/frequency
// constraints, and nth-weekday bounds.
func (r RecurrenceRule) Validate(startTS int64) error {
	if r.Interval < 1 {
		return errBadInput("recurrence interval must be >= 1")
	}
	if r.Count != nil && (*r.Count < 1 || *r.Count > maxRecurrenceCount) {
		return errBadInput("recurrence count out of range [1,730]")
	}
	if r.Until != nil {
		if *r.Until < startTS {
			return errBadInput("recurrence until is before start")
		}
		maxUntil := time.UnixMilli(startTS).AddDate(maxRecurrenceYears, 0, 0).UnixMilli()
		if *r.Until > maxUntil {
			return errBadInput("recurrence until is too far in the future")
		}
	}
	if len(r.BySetPos) > 0 {
		if r.Freq != FreqMonthly {
			return errBadInput("bysetpos is only valid paired with a monthly frequency")
		}
		if len(r.ByWeekday) == 0 && len(r.ByMonthDay) == 0 && len(r.ByMonth) == 0 &&
			len(r.ByYearDay) == 0 && len(r.ByWeekNo) == 0 {
			return errBadInput("bysetpos requires a companion by* field")
		}
	}
	for _, wd := range r.ByWeekday {
		if wd.HasNth {
			if wd.Nth == 0 || wd.Nth >= 500 || wd.Nth <= -500 {
				return errBadInput("nth-weekday entry out of range")
			}
		}
	}
	return nil
}

// errBadInput is a small local helper kept dependency-free; the orchestration
// layer maps recurrence validation failures onto apperr.BadInput.
type badInputError struct{ msg string }

func (e *badInputError) Error() string { return e.msg }

func errBadInput(msg string) error { return &badInputError{msg: msg} }

// IsBadInput reports whether err originated from RecurrenceRule validation.
func IsBadInput(err error) bool {
	_, ok := err.(*badInputError)
	return ok
}

func toRRuleFreq(f Frequency) rrule.Frequency {
	switch f {
	case FreqYearly:
		return rrule.YEARLY
	case FreqMonthly:
		return rrule.MONTHLY
	case FreqWeekly:
		return rrule.WEEKLY
	default:
		return rrule.DAILY
	}
}

func toRRuleWeekday(w time.Weekday) rrule.Weekday {
	switch w {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}

func (r RecurrenceRule) toROption(startTS int64, settings CalendarSettings) rrule.ROption {
	tz := settings.Timezone
	if tz == nil {
		tz = time.UTC
	}
	opt := rrule.ROption{
		Freq:       toRRuleFreq(r.Freq),
		Dtstart:    time.UnixMilli(startTS).In(tz),
		Interval:   r.Interval,
		Wkst:       toRRuleWeekday(settings.WeekStart),
		Bysetpos:   r.BySetPos,
		Bymonthday: r.ByMonthDay,
		Bymonth:    r.ByMonth,
		Byyearday:  r.ByYearDay,
		Byweekno:   r.ByWeekNo,
	}
	if r.Count != nil {
		opt.Count = *r.Count
	}
	if r.Until != nil {
		opt.Until = time.UnixMilli(*r.Until).In(tz)
	}
	for _, wd := range r.ByWeekday {
		base := toRRuleWeekday(wd.Weekday)
		if wd.HasNth {
			base = base.Nth(wd.Nth)
		}
		opt.Byweekday = append(opt.Byweekday, base)
	}
	return opt
}

// buildRRuleSet constructs the rrule.Set for an event's recurrence, attaching
// exception dates resolved in the calendar's timezone.
func buildRRuleSet(startTS int64, rule RecurrenceRule, exdates []int64, settings CalendarSettings) (*rrule.Set, error) {
	tz := settings.Timezone
	if tz == nil {
		tz = time.UTC
	}
	r, err := rrule.NewRRule(rule.toROption(startTS, settings))
	if err != nil {
		return nil, errBadInput("invalid recurrence rule: " + err.Error())
	}
	set := rrule.Set{}
	set.DTStart(time.UnixMilli(startTS).In(tz))
	set.RRule(r)
	for _, ex := range exdates {
		set.ExDate(time.UnixMilli(ex).In(tz))
	}
	return &set, nil
}

// ExpandWindow is a half-open [Start, End) millisecond window used by Expand.
type ExpandWindow struct {
	Start int64
	End   int64
}

// Expand realizes an event's occurrences as EventInstances. If window is nil,
// the full (possibly unbounded, though callers should only do this for
// terminating rules) sequence is returned.
func Expand(startTS, duration int64, busy bool, rule *RecurrenceRule, exdates []int64, window *ExpandWindow, settings CalendarSettings) ([]EventInstance, error) {
	if rule == nil {
		for _, ex := range exdates {
			if ex == startTS {
				return nil, nil
			}
		}
		return []EventInstance{{StartTS: startTS, EndTS: startTS + duration, Busy: busy}}, nil
	}

	if err := rule.Validate(startTS); err != nil {
		return nil, err
	}

	set, err := buildRRuleSet(startTS, *rule, exdates, settings)
	if err != nil {
		return nil, err
	}

	tz := settings.Timezone
	if tz == nil {
		tz = time.UTC
	}

	var occurrences []time.Time
	if window == nil {
		occurrences = set.All()
	} else {
		// Account for event duration on the upper bound, and compensate for the
		// underlying library's exclusive lower bound by subtracting 1ms.
		end := time.UnixMilli(window.End - duration).In(tz)
		start := time.UnixMilli(window.Start - 1).In(tz)
		occurrences = set.Between(start, end, true)
	}

	out := make([]EventInstance, 0, len(occurrences))
	for _, occ := range occurrences {
		start := occ.UnixMilli()
		out = append(out, EventInstance{StartTS: start, EndTS: start + duration, Busy: busy})
	}
	return out, nil
}

// OccurrenceIterator lazily walks a recurring event's occurrences starting
// at or after an anchor timestamp. Used where the rule may be open-ended
// and the caller must bound how many occurrences it examines (the reminder
// materializer's 100-occurrence window).
type OccurrenceIterator struct {
	next func() (time.Time, bool)
}

// NewOccurrenceIterator builds a walker over rule's occurrences in settings'
// timezone/week-start, yielding only occurrences at or after fromTS.
func NewOccurrenceIterator(startTS int64, rule RecurrenceRule, exdates []int64, settings CalendarSettings, fromTS int64) (*OccurrenceIterator, error) {
	if err := rule.Validate(startTS); err != nil {
		return nil, err
	}
	set, err := buildRRuleSet(startTS, rule, exdates, settings)
	if err != nil {
		return nil, err
	}

	tz := settings.Timezone
	if tz == nil {
		tz = time.UTC
	}
	from := time.UnixMilli(fromTS - 1).In(tz)

	it := set.Iterator()
	return &OccurrenceIterator{next: func() (time.Time, bool) {
		for {
			t, ok := it()
			if !ok {
				return time.Time{}, false
			}
			if t.Before(from) {
				continue
			}
			return t, true
		}
	}}, nil
}

// Next returns the next occurrence's start as epoch milliseconds, or
// ok = false when the sequence is exhausted (terminating rules only).
func (w *OccurrenceIterator) Next() (int64, bool) {
	t, ok := w.next()
	if !ok {
		return 0, false
	}
	return t.UnixMilli(), true
}
