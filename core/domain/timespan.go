package domain

// MaxTimestamp is the sentinel "no end" instant: Mon Oct 09 2147 06:41:40 GMT+0200.
const MaxTimestamp int64 = 5_609_882_500_905

// TimeSpan is an inclusive [Start, End] millisecond window.
type TimeSpan struct {
	Start int64
	End   int64
}

// Intersect returns the overlap of two spans, and whether it is non-empty.
func (t TimeSpan) Intersect(o TimeSpan) (TimeSpan, bool) {
	start := t.Start
	if o.Start > start {
		start = o.Start
	}
	end := t.End
	if o.End < end {
		end = o.End
	}
	if start > end {
		return TimeSpan{}, false
	}
	return TimeSpan{Start: start, End: end}, true
}
