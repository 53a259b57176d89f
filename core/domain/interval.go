package domain

import "sort"

// EventInstance is a concrete realized interval: an occurrence of an event, a free
// window of a schedule, or a busy window imported from a provider.
type EventInstance struct {
	StartTS int64
	EndTS   int64
	Busy    bool
}

func (e EventInstance) hasOverlap(o EventInstance) bool {
	return e.StartTS <= o.EndTS && e.EndTS >= o.StartTS
}

func (e EventInstance) canMerge(o EventInstance) bool {
	return e.Busy == o.Busy && e.hasOverlap(o)
}

func (e EventInstance) merge(o EventInstance) EventInstance {
	start := e.StartTS
	if o.StartTS < start {
		start = o.StartTS
	}
	end := e.EndTS
	if o.EndTS > end {
		end = o.EndTS
	}
	return EventInstance{StartTS: start, EndTS: end, Busy: e.Busy}
}

// CompatibleInstances is an ordered sequence of instances that are pairwise
// non-overlapping; two instances may touch at a boundary only when their Busy
// flags differ (same-Busy touching instances are coalesced into one).
type CompatibleInstances struct {
	events []EventInstance
}

// NewCompatibleInstances sorts the given instances by StartTS and folds
// overlapping/touching same-Busy runs into single instances.
func NewCompatibleInstances(instances []EventInstance) CompatibleInstances {
	if len(instances) == 0 {
		return CompatibleInstances{}
	}
	sorted := make([]EventInstance, len(instances))
	copy(sorted, instances)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartTS < sorted[j].StartTS })

	out := make([]EventInstance, 0, len(sorted))
	out = append(out, sorted[0])
	for _, next := range sorted[1:] {
		last := out[len(out)-1]
		if last.canMerge(next) {
			out[len(out)-1] = last.merge(next)
			continue
		}
		out = append(out, next)
	}
	return CompatibleInstances{events: out}
}

// Inner returns the underlying slice. Callers must not mutate it.
func (c CompatibleInstances) Inner() []EventInstance { return c.events }

func (c CompatibleInstances) Len() int { return len(c.events) }

func (c CompatibleInstances) IsEmpty() bool { return len(c.events) == 0 }

func (c CompatibleInstances) Get(i int) EventInstance { return c.events[i] }

// PushBack appends an instance, rejecting it if it overlaps the current tail.
func (c *CompatibleInstances) PushBack(instance EventInstance) bool {
	if len(c.events) > 0 {
		last := c.events[len(c.events)-1]
		if last.hasOverlap(instance) {
			return false
		}
	}
	c.events = append(c.events, instance)
	return true
}

// PushFront prepends an instance, rejecting it if it overlaps the current head.
func (c *CompatibleInstances) PushFront(instance EventInstance) bool {
	if len(c.events) > 0 {
		first := c.events[0]
		if first.hasOverlap(instance) {
			return false
		}
	}
	c.events = append([]EventInstance{instance}, c.events...)
	return true
}

// Extend appends another CompatibleInstances, requiring the receiver's last end to
// be no later than the argument's first start. Callers must pre-partition.
func (c *CompatibleInstances) Extend(other CompatibleInstances) {
	c.events = append(c.events, other.events...)
}

// RemoveAllBefore drops instances ending at or before t, trimming an overlapping
// head instance to start at t.
func (c CompatibleInstances) RemoveAllBefore(t int64) CompatibleInstances {
	out := make([]EventInstance, 0, len(c.events))
	for _, e := range c.events {
		if e.EndTS <= t {
			continue
		}
		if e.StartTS < t {
			e.StartTS = t
		}
		out = append(out, e)
	}
	return CompatibleInstances{events: out}
}

// RemoveAllAfter drops instances starting at or after t, trimming an overlapping
// tail instance to end at t.
func (c CompatibleInstances) RemoveAllAfter(t int64) CompatibleInstances {
	out := make([]EventInstance, 0, len(c.events))
	for _, e := range c.events {
		if e.StartTS >= t {
			continue
		}
		if e.EndTS > t {
			e.EndTS = t
		}
		out = append(out, e)
	}
	return CompatibleInstances{events: out}
}

// subtractKind tags the result of removing one busy instance from one free
// instance.
type subtractKind int

const (
	subtractNoOverlap subtractKind = iota
	subtractEmpty
	subtractOverlapBegin
	subtractOverlapEnd
	subtractSplit
)

type subtractResult struct {
	kind  subtractKind
	left  EventInstance
	right EventInstance
}

// removeInstance subtracts instance from free, per spec §4.1: touching at a single
// instant (free.Start == instance.End, or free.End == instance.Start) is NoOverlap.
func removeInstance(free, instance EventInstance) subtractResult {
	if !free.hasOverlap(instance) || free.StartTS == instance.EndTS || free.EndTS == instance.StartTS {
		return subtractResult{kind: subtractNoOverlap}
	}
	if instance.StartTS <= free.StartTS && instance.EndTS >= free.EndTS {
		return subtractResult{kind: subtractEmpty}
	}
	if instance.StartTS > free.StartTS && instance.EndTS < free.EndTS {
		return subtractResult{
			kind:  subtractSplit,
			left:  EventInstance{StartTS: free.StartTS, EndTS: instance.StartTS, Busy: free.Busy},
			right: EventInstance{StartTS: instance.EndTS, EndTS: free.EndTS, Busy: free.Busy},
		}
	}
	if free.StartTS >= instance.StartTS {
		return subtractResult{
			kind: subtractOverlapBegin,
			left: EventInstance{StartTS: instance.EndTS, EndTS: free.EndTS, Busy: free.Busy},
		}
	}
	return subtractResult{
		kind: subtractOverlapEnd,
		left: EventInstance{StartTS: free.StartTS, EndTS: instance.StartTS, Busy: free.Busy},
	}
}

// RemoveInstances subtracts every instance of busy starting at skipIndex from the
// receiver's instances and returns the resulting free set. When a subtraction
// produces a fragment, subsequent busy instances are only checked against the
// remaining fragments (not re-scanned from index 0), avoiding O(n^2) behavior
// while preserving ordering.
func (c CompatibleInstances) RemoveInstances(busy []EventInstance, skipIndex int) CompatibleInstances {
	var out []EventInstance
	for _, free := range c.events {
		out = append(out, removeFromOne(free, busy, skipIndex)...)
	}
	return NewCompatibleInstances(out)
}

func removeFromOne(free EventInstance, busy []EventInstance, skipIndex int) []EventInstance {
	for pos := skipIndex; pos < len(busy); pos++ {
		instance := busy[pos]
		if instance.StartTS >= free.EndTS {
			break
		}
		res := removeInstance(free, instance)
		switch res.kind {
		case subtractNoOverlap:
			continue
		case subtractEmpty:
			return nil
		case subtractOverlapBegin:
			return removeFromOne(res.left, busy, pos+1)
		case subtractOverlapEnd:
			return removeFromOne(res.left, busy, pos+1)
		case subtractSplit:
			left := removeFromOne(res.left, busy, pos+1)
			right := removeFromOne(res.right, busy, pos+1)
			return append(left, right...)
		}
	}
	return []EventInstance{free}
}

// SeparateFreeBusy partitions a mixed instance list into compatible free and busy
// sets.
func SeparateFreeBusy(instances []EventInstance) (free, busy CompatibleInstances) {
	var freeList, busyList []EventInstance
	for _, i := range instances {
		if i.Busy {
			busyList = append(busyList, i)
		} else {
			freeList = append(freeList, i)
		}
	}
	return NewCompatibleInstances(freeList), NewCompatibleInstances(busyList)
}

// GetFreeBusy builds free and busy compatible sets from a mixed instance list and
// subtracts busy from free.
func GetFreeBusy(instances []EventInstance) CompatibleInstances {
	free, busy := SeparateFreeBusy(instances)
	if busy.IsEmpty() {
		return free
	}
	return free.RemoveInstances(busy.Inner(), 0)
}
