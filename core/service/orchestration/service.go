package orchestration

import (
	"context"

	"github.com/rs/zerolog/log"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/in"
	"scheduler_server/core/port/out"
	"scheduler_server/core/service/availability"
	"scheduler_server/core/service/booking"
	"scheduler_server/core/service/reminder"
	"scheduler_server/core/service/sync"
)

// Service implements in.Orchestrator, composing C1-C10 behind the
// Plain/Policy executor contract and wiring the reminder materializer and
// sync mirror as subscribers on event lifecycle notifications.
type Service struct {
	calendars    out.CalendarRepository
	events       out.EventRepository
	services     out.ServiceRepository
	resources    out.ServiceResourceRepository
	links        out.BusyCalendarLinkRepository
	reservations out.ReservationCounterRepository

	composer     *availability.Composer
	assigner     *booking.IntentAssigner
	materializer *reminder.Materializer
	mirror       *sync.Mirror

	clock out.Clock
}

func NewService(
	calendars out.CalendarRepository,
	events out.EventRepository,
	services out.ServiceRepository,
	resources out.ServiceResourceRepository,
	links out.BusyCalendarLinkRepository,
	reservations out.ReservationCounterRepository,
	composer *availability.Composer,
	assigner *booking.IntentAssigner,
	materializer *reminder.Materializer,
	mirror *sync.Mirror,
	clock out.Clock,
) *Service {
	return &Service{
		calendars:    calendars,
		events:       events,
		services:     services,
		resources:    resources,
		links:        links,
		reservations: reservations,
		composer:     composer,
		assigner:     assigner,
		materializer: materializer,
		mirror:       mirror,
		clock:        clock,
	}
}

// eventSettings loads the owning calendar's settings for an event, defaulting
// to UTC/Sunday if the calendar lookup fails (the event was already
// persisted; a subscriber-time failure must not surface to the caller).
func (s *Service) eventSettings(ctx context.Context, event *domain.CalendarEvent) domain.CalendarSettings {
	cal, err := s.calendars.Find(ctx, event.CalendarID)
	if err != nil || cal == nil {
		log.Error().Err(err).Str("calendar_id", event.CalendarID.String()).Msg("subscriber: find calendar failed")
		return domain.CalendarSettings{}
	}
	return cal.SettingsOf()
}

func (s *Service) onEventCreated(ctx context.Context, event *domain.CalendarEvent) {
	settings := s.eventSettings(ctx, event)
	if err := s.materializer.OnEventCreated(ctx, event, settings); err != nil {
		log.Error().Err(err).Str("event_id", event.ID.String()).Msg("reminder materializer: on created failed")
	}
	s.mirror.OnEventCreated(ctx, event)
}

func (s *Service) onEventUpdated(ctx context.Context, event *domain.CalendarEvent) {
	settings := s.eventSettings(ctx, event)
	if err := s.materializer.OnEventUpdated(ctx, event, settings); err != nil {
		log.Error().Err(err).Str("event_id", event.ID.String()).Msg("reminder materializer: on updated failed")
	}
	s.mirror.OnEventUpdated(ctx, event)
}

func (s *Service) onEventDeleted(ctx context.Context, event *domain.CalendarEvent) {
	if err := s.materializer.OnEventDeleted(ctx, event.ID); err != nil {
		log.Error().Err(err).Str("event_id", event.ID.String()).Msg("reminder materializer: on deleted failed")
	}
}

func (s *Service) CreateEvent(ctx context.Context, policy in.Policy, req in.CreateEventRequest) (*domain.CalendarEvent, error) {
	uc := &createEventUseCase{calendars: s.calendars, events: s.events, clock: s.clock, req: req}
	return ExecuteWithPolicy[*domain.CalendarEvent](ctx, uc, policy, s.onEventCreated)
}

func (s *Service) UpdateEvent(ctx context.Context, policy in.Policy, req in.UpdateEventRequest) (*domain.CalendarEvent, error) {
	uc := &updateEventUseCase{calendars: s.calendars, events: s.events, req: req}
	return ExecuteWithPolicy[*domain.CalendarEvent](ctx, uc, policy, s.onEventUpdated)
}

func (s *Service) DeleteEvent(ctx context.Context, policy in.Policy, req in.DeleteEventRequest) error {
	uc := &deleteEventUseCase{events: s.events, req: req}
	_, err := ExecuteWithPolicy[*domain.CalendarEvent](ctx, uc, policy, s.onEventDeleted)
	return err
}

func (s *Service) CreateBookingIntent(ctx context.Context, policy in.Policy, req in.CreateBookingIntentRequest) (in.CreateBookingIntentResult, error) {
	uc := &createBookingIntentUseCase{
		services: s.services, resources: s.resources, assigner: s.assigner, req: req,
	}
	return ExecuteWithPolicy[in.CreateBookingIntentResult](ctx, uc, policy)
}

func (s *Service) GetServiceBookingSlots(ctx context.Context, policy in.Policy, req in.GetServiceBookingSlotsRequest) ([]in.BookingSlot, error) {
	uc := &getServiceBookingSlotsUseCase{services: s.services, resources: s.resources, composer: s.composer, req: req}
	return ExecuteWithPolicy[[]in.BookingSlot](ctx, uc, policy)
}

func (s *Service) GetUserFreebusy(ctx context.Context, policy in.Policy, req in.GetUserFreebusyRequest) ([]domain.EventInstance, error) {
	uc := &getUserFreebusyUseCase{resources: s.resources, composer: s.composer, req: req}
	return ExecuteWithPolicy[[]domain.EventInstance](ctx, uc, policy)
}

func (s *Service) AddBusyCalendarLink(ctx context.Context, policy in.Policy, req in.AddBusyCalendarLinkRequest) error {
	uc := &addBusyCalendarLinkUseCase{links: s.links, req: req}
	_, err := ExecuteWithPolicy[*domain.BusyCalendarLink](ctx, uc, policy)
	return err
}

func (s *Service) AddUserToService(ctx context.Context, policy in.Policy, req in.AddUserToServiceRequest) error {
	uc := &addUserToServiceUseCase{services: s.services, resources: s.resources, req: req}
	_, err := ExecuteWithPolicy[*domain.Service](ctx, uc, policy)
	return err
}

func (s *Service) ChangeGroupCapacity(ctx context.Context, policy in.Policy, req in.ChangeGroupCapacityRequest) error {
	uc := &changeGroupCapacityUseCase{services: s.services, events: s.events, reservations: s.reservations, req: req}
	_, err := ExecuteWithPolicy[*domain.Service](ctx, uc, policy)
	return err
}
