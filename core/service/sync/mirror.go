// Package sync implements the Sync Mirror (C10, spec §4.9): it subscribes
// to Created/Updated event notifications and mirrors the event into every
// externally linked calendar.
package sync

import (
	"context"

	"github.com/rs/zerolog/log"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
)

// Mirror fans an event mutation out to its linked external providers.
// Provider failures are logged and never propagate to the originating
// operation.
type Mirror struct {
	syncedCalendars out.SyncedCalendarRepository
	syncedEvents    out.SyncedEventRepository
	providerFactory out.CalendarProviderFactory
}

func NewMirror(syncedCalendars out.SyncedCalendarRepository, syncedEvents out.SyncedEventRepository, providerFactory out.CalendarProviderFactory) *Mirror {
	return &Mirror{syncedCalendars: syncedCalendars, syncedEvents: syncedEvents, providerFactory: providerFactory}
}

// OnEventCreated mirrors a newly created event into every external
// calendar linked to the event's owning calendar.
func (m *Mirror) OnEventCreated(ctx context.Context, event *domain.CalendarEvent) {
	links, err := m.syncedCalendars.FindByCalendar(ctx, event.CalendarID)
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID.String()).Msg("sync mirror: find synced calendars failed")
		return
	}
	for _, link := range links {
		m.createOne(ctx, event, link.Provider, link.ExtCalendarID)
	}
}

// OnEventUpdated mirrors an update into every SyncedEvent already
// recorded for this event.
func (m *Mirror) OnEventUpdated(ctx context.Context, event *domain.CalendarEvent) {
	synced, err := m.syncedEvents.FindByEvent(ctx, event.ID)
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID.String()).Msg("sync mirror: find synced events failed")
		return
	}
	calendars, err := m.syncedCalendars.FindByCalendar(ctx, event.CalendarID)
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID.String()).Msg("sync mirror: find synced calendars failed")
		return
	}
	extCalendarID := map[string]string{}
	for _, c := range calendars {
		extCalendarID[c.Provider] = c.ExtCalendarID
	}

	for _, s := range synced {
		client, err := m.providerFactory.For(ctx, s.Provider, event.UserID.String())
		if err != nil {
			log.Error().Err(err).Str("provider", s.Provider).Msg("sync mirror: provider unavailable")
			continue
		}
		if err := client.UpdateEvent(ctx, extCalendarID[s.Provider], s.ExtEventID, event); err != nil {
			log.Error().Err(err).Str("provider", s.Provider).Msg("sync mirror: update_event failed")
		}
	}
}

func (m *Mirror) createOne(ctx context.Context, event *domain.CalendarEvent, provider, extCalendarID string) {
	client, err := m.providerFactory.For(ctx, provider, event.UserID.String())
	if err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("sync mirror: provider unavailable")
		return
	}
	extEventID, err := client.CreateEvent(ctx, extCalendarID, event)
	if err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("sync mirror: create_event failed")
		return
	}
	if err := m.syncedEvents.Insert(ctx, &domain.SyncedEvent{
		EventID:    event.ID,
		CalendarID: event.CalendarID,
		Provider:   provider,
		ExtEventID: extEventID,
	}); err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("sync mirror: record synced event failed")
	}
}
