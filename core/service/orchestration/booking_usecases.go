package orchestration

import (
	"context"
	"sort"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/in"
	"scheduler_server/core/port/out"
	"scheduler_server/core/service/availability"
	"scheduler_server/core/service/booking"
	"scheduler_server/pkg/apperr"
)

type createBookingIntentUseCase struct {
	services  out.ServiceRepository
	resources out.ServiceResourceRepository
	assigner  *booking.IntentAssigner
	req       in.CreateBookingIntentRequest
}

func (uc *createBookingIntentUseCase) Permissions() []in.Permission {
	return []in.Permission{"bookings:write"}
}

func (uc *createBookingIntentUseCase) Execute(ctx context.Context) (in.CreateBookingIntentResult, error) {
	service, err := uc.services.Find(ctx, uc.req.ServiceID)
	if err != nil {
		return in.CreateBookingIntentResult{}, apperr.Storage("find service", err)
	}
	if service == nil {
		return in.CreateBookingIntentResult{}, apperr.NotFoundEntity("service", uc.req.ServiceID.String())
	}
	resources, err := uc.resources.FindByService(ctx, uc.req.ServiceID)
	if err != nil {
		return in.CreateBookingIntentResult{}, apperr.Storage("find service resources", err)
	}

	result, err := uc.assigner.CreateBookingIntent(ctx, booking.CreateBookingIntentParams{
		Service:     service,
		Resources:   resources,
		Timestamp:   uc.req.Timestamp,
		Duration:    uc.req.Duration,
		Interval:    uc.req.IntervalMS,
		HostUserIDs: uc.req.HostUserIDs,
	})
	if err != nil {
		return in.CreateBookingIntentResult{}, err
	}

	// CreateEventForHosts is a signal, not an action: per the documented
	// contract on in.CreateBookingIntentResult, placing the blocking event is
	// the caller's job (via CreateEvent), so onEventCreated's reminder and
	// sync-mirror subscribers fire the same way for a service-assigned event
	// as for any other. Materializing it here would both skip that pipeline
	// and double-create the event if the caller follows the contract too.
	return in.CreateBookingIntentResult{
		SelectedHostUserIDs: result.SelectedHosts,
		CreateEventForHosts: result.CreateEventForHosts,
	}, nil
}

type getServiceBookingSlotsUseCase struct {
	services  out.ServiceRepository
	resources out.ServiceResourceRepository
	composer  *availability.Composer
	req       in.GetServiceBookingSlotsRequest
}

func (uc *getServiceBookingSlotsUseCase) Permissions() []in.Permission {
	return []in.Permission{"bookings:read"}
}

func (uc *getServiceBookingSlotsUseCase) Execute(ctx context.Context) ([]in.BookingSlot, error) {
	service, err := uc.services.Find(ctx, uc.req.ServiceID)
	if err != nil {
		return nil, apperr.Storage("find service", err)
	}
	if service == nil {
		return nil, apperr.NotFoundEntity("service", uc.req.ServiceID.String())
	}
	resources, err := uc.resources.FindByService(ctx, uc.req.ServiceID)
	if err != nil {
		return nil, apperr.Storage("find service resources", err)
	}

	params := booking.SlotParams{
		StartTS:  uc.req.StartTS,
		EndTS:    uc.req.EndTS,
		Duration: uc.req.DurationMS,
		Interval: uc.req.IntervalMS,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	span := domain.TimeSpan{Start: uc.req.StartTS, End: uc.req.EndTS}
	hosts := make([]availability.HostFreeBusy, 0, len(resources))
	for i := range resources {
		host, _, err := uc.composer.Compose(ctx, &resources[i], span, uc.req.ServiceID)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, host)
	}

	slots, err := booking.ServiceSlots(hosts, service, params)
	if err != nil {
		return nil, err
	}

	result := make([]in.BookingSlot, len(slots))
	for i, s := range slots {
		result[i] = in.BookingSlot{StartTS: s.Start, DurationMS: s.Duration, UserIDs: s.UserIDs}
	}
	return result, nil
}

type getUserFreebusyUseCase struct {
	resources out.ServiceResourceRepository
	composer  *availability.Composer
	req       in.GetUserFreebusyRequest
}

func (uc *getUserFreebusyUseCase) Permissions() []in.Permission {
	return []in.Permission{"bookings:read"}
}

func (uc *getUserFreebusyUseCase) Execute(ctx context.Context) ([]domain.EventInstance, error) {
	resource, err := uc.resources.Find(ctx, uc.req.ServiceID, uc.req.UserID)
	if err != nil {
		return nil, apperr.Storage("find service resource", err)
	}
	if resource == nil {
		return nil, apperr.NotFoundEntity("service_resource", uc.req.UserID.String())
	}
	host, _, err := uc.composer.Compose(ctx, resource, uc.req.Span, uc.req.ServiceID)
	if err != nil {
		return nil, err
	}
	return host.FreeEvents.Inner(), nil
}

type addBusyCalendarLinkUseCase struct {
	links out.BusyCalendarLinkRepository
	req   in.AddBusyCalendarLinkRequest
}

func (uc *addBusyCalendarLinkUseCase) Permissions() []in.Permission {
	return []in.Permission{"services:write"}
}

func (uc *addBusyCalendarLinkUseCase) Execute(ctx context.Context) (*domain.BusyCalendarLink, error) {
	link := &domain.BusyCalendarLink{
		ServiceID:          uc.req.ServiceID,
		UserID:             uc.req.UserID,
		RefKind:            uc.req.RefKind,
		InternalCalendarID: uc.req.InternalCalendarID,
		ExternalProvider:   uc.req.ExternalProvider,
		ExternalID:         uc.req.ExternalID,
	}

	if link.RefKind == domain.BusyRefInternal {
		exists, err := uc.links.Exists(ctx, link.ServiceID, link.UserID, link.InternalCalendarID)
		if err != nil {
			return nil, apperr.Storage("check busy link", err)
		}
		if exists {
			return nil, apperr.Conflict("busy calendar link already present")
		}
		if err := uc.links.Insert(ctx, link); err != nil {
			return nil, apperr.Storage("insert busy link", err)
		}
		return link, nil
	}

	exists, err := uc.links.ExistsExt(ctx, link.ServiceID, link.UserID, link.ExternalProvider, link.ExternalID)
	if err != nil {
		return nil, apperr.Storage("check external busy link", err)
	}
	if exists {
		return nil, apperr.Conflict("busy calendar link already present")
	}
	if err := uc.links.InsertExt(ctx, link); err != nil {
		return nil, apperr.Storage("insert external busy link", err)
	}
	return link, nil
}

type addUserToServiceUseCase struct {
	services  out.ServiceRepository
	resources out.ServiceResourceRepository
	req       in.AddUserToServiceRequest
}

func (uc *addUserToServiceUseCase) Permissions() []in.Permission {
	return []in.Permission{"services:write"}
}

func (uc *addUserToServiceUseCase) Execute(ctx context.Context) (*domain.Service, error) {
	service, err := uc.services.Find(ctx, uc.req.ServiceID)
	if err != nil {
		return nil, apperr.Storage("find service", err)
	}
	if service == nil {
		return nil, apperr.NotFoundEntity("service", uc.req.ServiceID.String())
	}
	for _, id := range service.UserIDs {
		if id == uc.req.UserID {
			return nil, apperr.Conflict("user already added to service")
		}
	}

	resource := &domain.ServiceResource{
		ServiceID:          uc.req.ServiceID,
		UserID:             uc.req.UserID,
		Availability:       uc.req.Availability,
		BufferBeforeMin:    uc.req.BufferBeforeMin,
		BufferAfterMin:     uc.req.BufferAfterMin,
		ClosestBookingMin:  uc.req.ClosestBookingMin,
		FurthestBookingMin: uc.req.FurthestBookingMin,
	}
	resource.ClampBuffers()
	if err := uc.resources.Insert(ctx, resource); err != nil {
		return nil, apperr.Storage("insert service resource", err)
	}

	service.UserIDs = append(service.UserIDs, uc.req.UserID)
	sort.Slice(service.UserIDs, func(i, j int) bool { return service.UserIDs[i].String() < service.UserIDs[j].String() })
	if err := uc.services.Update(ctx, service); err != nil {
		return nil, apperr.Storage("update service", err)
	}
	return service, nil
}

type changeGroupCapacityUseCase struct {
	services     out.ServiceRepository
	events       out.EventRepository
	reservations out.ReservationCounterRepository
	req          in.ChangeGroupCapacityRequest
}

func (uc *changeGroupCapacityUseCase) Permissions() []in.Permission {
	return []in.Permission{"services:write"}
}

func (uc *changeGroupCapacityUseCase) Execute(ctx context.Context) (*domain.Service, error) {
	service, err := uc.services.Find(ctx, uc.req.ServiceID)
	if err != nil {
		return nil, apperr.Storage("find service", err)
	}
	if service == nil {
		return nil, apperr.NotFoundEntity("service", uc.req.ServiceID.String())
	}
	if service.Policy.Kind != domain.PolicyGroup {
		return nil, apperr.BadInput("capacity change only applies to a group(max) policy")
	}

	oldMax := service.Policy.MaxCapacity
	if err := booking.ReconcileGroupCapacity(ctx, uc.events, uc.reservations, service, oldMax, uc.req.NewMax); err != nil {
		return nil, err
	}

	service.Policy.MaxCapacity = uc.req.NewMax
	if err := uc.services.Update(ctx, service); err != nil {
		return nil, apperr.Storage("update service", err)
	}
	return service, nil
}
