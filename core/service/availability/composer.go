// Package availability implements the Availability Composer (spec §4.4):
// for a single service host, it produces a free-instance set over a span
// by combining the host's availability plan with every busy source that
// can block it.
package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
)

// Composer composes a ServiceResource's free set over a span.
type Composer struct {
	calendars        out.CalendarRepository
	schedules        out.ScheduleRepository
	events           out.EventRepository
	busyLinks        out.BusyCalendarLinkRepository
	resources        out.ServiceResourceRepository
	providerFactory  out.CalendarProviderFactory
	clock            out.Clock
	maxQueryDuration int64
}

func NewComposer(
	calendars out.CalendarRepository,
	schedules out.ScheduleRepository,
	events out.EventRepository,
	busyLinks out.BusyCalendarLinkRepository,
	resources out.ServiceResourceRepository,
	providerFactory out.CalendarProviderFactory,
	clock out.Clock,
	maxQueryDurationMS int64,
) *Composer {
	return &Composer{
		calendars:        calendars,
		schedules:        schedules,
		events:           events,
		busyLinks:        busyLinks,
		resources:        resources,
		providerFactory:  providerFactory,
		clock:            clock,
		maxQueryDuration: maxQueryDurationMS,
	}
}

// HostFreeBusy is the output of composing one host's availability: the
// user and their free set over the requested span.
type HostFreeBusy struct {
	UserID     uuid.UUID
	FreeEvents domain.CompatibleInstances
}

// ProviderFailure records that an external provider could not be reached;
// the composition still succeeds, contributing no busy instances for it.
type ProviderFailure struct {
	Provider string
	Err      error
}

// Compose builds the free set for a single ServiceResource over span,
// clamped to the resource's booking window.
func (c *Composer) Compose(ctx context.Context, resource *domain.ServiceResource, span domain.TimeSpan, currentServiceID uuid.UUID) (HostFreeBusy, []ProviderFailure, error) {
	now := c.clock.NowMS()

	clamped, ok := clampToBookingWindow(resource, now, span, c.maxQueryDuration)
	if !ok {
		return HostFreeBusy{UserID: resource.UserID}, nil, nil
	}

	free, err := c.freeSet(ctx, resource, clamped)
	if err != nil {
		return HostFreeBusy{}, nil, err
	}

	busy, failures, err := c.busySet(ctx, resource, clamped, currentServiceID)
	if err != nil {
		return HostFreeBusy{}, nil, err
	}

	result := domain.RemoveInstances(free, busy.Inner(), 0)
	return HostFreeBusy{UserID: resource.UserID, FreeEvents: result}, failures, nil
}

// clampToBookingWindow computes first = now + closest_booking_min and, if
// set, last = now + furthest_booking_min, and intersects span with
// [first, last]. Returns ok = false when the result is empty or exceeds
// maxQueryDuration.
func clampToBookingWindow(resource *domain.ServiceResource, now int64, span domain.TimeSpan, maxQueryDuration int64) (domain.TimeSpan, bool) {
	first := now + int64(resource.ClosestBookingMin)*60_000
	last := domain.MaxTimestamp
	if resource.FurthestBookingMin != nil {
		last = now + int64(*resource.FurthestBookingMin)*60_000
	}

	window := domain.TimeSpan{Start: first, End: last}
	clamped, ok := span.Intersect(window)
	if !ok {
		return domain.TimeSpan{}, false
	}
	if maxQueryDuration > 0 && clamped.End-clamped.Start > maxQueryDuration {
		return domain.TimeSpan{}, false
	}
	return clamped, true
}

func (c *Composer) freeSet(ctx context.Context, resource *domain.ServiceResource, span domain.TimeSpan) (domain.CompatibleInstances, error) {
	switch resource.Availability.Kind {
	case domain.PlanEmpty:
		return domain.NewCompatibleInstances(nil), nil

	case domain.PlanSchedule:
		schedule, err := c.schedules.Find(ctx, resource.Availability.ID)
		if err != nil {
			return domain.CompatibleInstances{}, fmt.Errorf("find schedule: %w", err)
		}
		if schedule == nil || schedule.UserID != resource.UserID {
			return domain.CompatibleInstances{}, fmt.Errorf("schedule %s not owned by user %s", resource.Availability.ID, resource.UserID)
		}
		return schedule.Freebusy(span.Start, span.End), nil

	case domain.PlanCalendar:
		calendar, err := c.calendars.Find(ctx, resource.Availability.ID)
		if err != nil {
			return domain.CompatibleInstances{}, fmt.Errorf("find calendar: %w", err)
		}
		if calendar == nil || calendar.UserID != resource.UserID {
			return domain.CompatibleInstances{}, fmt.Errorf("calendar %s not owned by user %s", resource.Availability.ID, resource.UserID)
		}
		events, err := c.events.FindByCalendar(ctx, calendar.ID, &span)
		if err != nil {
			return domain.CompatibleInstances{}, fmt.Errorf("find calendar events: %w", err)
		}
		instances, err := expandAll(events, calendar.SettingsOf(), span)
		if err != nil {
			return domain.CompatibleInstances{}, err
		}
		free, busy := domain.SeparateFreeBusy(instances)
		removed := domain.RemoveInstances(free, busy.Inner(), 0)
		return removed, nil

	default:
		return domain.CompatibleInstances{}, fmt.Errorf("unknown availability plan kind %q", resource.Availability.Kind)
	}
}

func (c *Composer) busySet(ctx context.Context, resource *domain.ServiceResource, span domain.TimeSpan, currentServiceID uuid.UUID) (domain.CompatibleInstances, []ProviderFailure, error) {
	var busy []domain.EventInstance
	var failures []ProviderFailure

	links, err := c.busyLinks.Find(ctx, resource.ServiceID, resource.UserID)
	if err != nil {
		return domain.CompatibleInstances{}, nil, fmt.Errorf("find busy links: %w", err)
	}

	var internalCalendarIDs []uuid.UUID
	var externalByProvider = map[string][]string{}
	for _, link := range links {
		switch link.RefKind {
		case domain.BusyRefInternal:
			internalCalendarIDs = append(internalCalendarIDs, link.InternalCalendarID)
		case domain.BusyRefExternal:
			externalByProvider[link.ExternalProvider] = append(externalByProvider[link.ExternalProvider], link.ExternalID)
		}
	}

	window := &domain.ExpandWindow{Start: span.Start, End: span.End}
	for _, calendarID := range internalCalendarIDs {
		calendar, err := c.calendars.Find(ctx, calendarID)
		if err != nil || calendar == nil {
			continue
		}
		settings := calendar.SettingsOf()
		events, err := c.events.FindByCalendar(ctx, calendarID, &span)
		if err != nil {
			return domain.CompatibleInstances{}, nil, fmt.Errorf("find busy calendar events: %w", err)
		}
		for i := range events {
			evt := &events[i]
			if !evt.Busy {
				continue
			}
			instances, err := evt.Expand(window, settings)
			if err != nil {
				return domain.CompatibleInstances{}, nil, fmt.Errorf("expand busy event %s: %w", evt.ID, err)
			}
			var buffBefore, buffAfter int64
			if evt.ServiceID != nil {
				if sibling, err := c.resources.Find(ctx, *evt.ServiceID, resource.UserID); err == nil && sibling != nil {
					buffBefore = int64(sibling.BufferBeforeMin) * 60_000
					buffAfter = int64(sibling.BufferAfterMin) * 60_000
				}
			}
			for _, instance := range instances {
				instance.StartTS -= buffBefore
				instance.EndTS += buffAfter
				busy = append(busy, instance)
			}
		}
	}

	crossServiceEvents, err := c.events.FindUserServiceEvents(ctx, resource.UserID, false, span)
	if err != nil {
		return domain.CompatibleInstances{}, nil, fmt.Errorf("find cross-service events: %w", err)
	}
	for _, evt := range crossServiceEvents {
		if evt.ServiceID == nil || *evt.ServiceID == currentServiceID || !evt.Busy {
			continue
		}
		busy = append(busy, domain.EventInstance{StartTS: evt.StartTS, EndTS: evt.EndTS, Busy: true})
	}

	if c.providerFactory != nil {
		for provider, extCalendarIDs := range externalByProvider {
			client, err := c.providerFactory.For(ctx, provider, resource.UserID.String())
			if err != nil {
				failures = append(failures, ProviderFailure{Provider: provider, Err: err})
				continue
			}
			instances, err := client.Freebusy(ctx, extCalendarIDs, span)
			if err != nil {
				failures = append(failures, ProviderFailure{Provider: provider, Err: err})
				continue
			}
			for _, instance := range instances {
				instance.Busy = true
				busy = append(busy, instance)
			}
		}
	}

	return domain.NewCompatibleInstances(busy), failures, nil
}

func expandAll(events []domain.CalendarEvent, settings domain.CalendarSettings, span domain.TimeSpan) ([]domain.EventInstance, error) {
	window := &domain.ExpandWindow{Start: span.Start, End: span.End}
	var all []domain.EventInstance
	for i := range events {
		instances, err := events[i].Expand(window, settings)
		if err != nil {
			return nil, fmt.Errorf("expand event %s: %w", events[i].ID, err)
		}
		all = append(all, instances...)
	}
	return all, nil
}
