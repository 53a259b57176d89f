package orchestration

import (
	"context"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/in"
	"scheduler_server/core/port/out"
	"scheduler_server/pkg/apperr"
)

type createEventUseCase struct {
	calendars out.CalendarRepository
	events    out.EventRepository
	clock     out.Clock
	req       in.CreateEventRequest
}

func (uc *createEventUseCase) Permissions() []in.Permission {
	return []in.Permission{"events:write"}
}

func (uc *createEventUseCase) Execute(ctx context.Context) (*domain.CalendarEvent, error) {
	cal, err := uc.calendars.Find(ctx, uc.req.CalendarID)
	if err != nil {
		return nil, apperr.Storage("find calendar", err)
	}
	if cal == nil {
		return nil, apperr.NotFoundEntity("calendar", uc.req.CalendarID.String())
	}

	for _, r := range uc.req.Reminders {
		if !r.IsValid() {
			return nil, apperr.BadInput("reminder delta must be within [0,1440] minutes")
		}
	}

	now := uc.clock.NowMS()
	event := &domain.CalendarEvent{
		ID:         uuid.New(),
		CalendarID: uc.req.CalendarID,
		UserID:     uc.req.UserID,
		AccountID:  uc.req.AccountID,
		StartTS:    uc.req.StartTS,
		Duration:   uc.req.Duration,
		Busy:       uc.req.Busy,
		Exdates:    uc.req.Exdates,
		Reminders:  uc.req.Reminders,
		ServiceID:  uc.req.ServiceID,
		Metadata:   uc.req.Metadata,
		Created:    now,
		Updated:    now,
	}

	settings := cal.SettingsOf()
	if uc.req.Recurrence != nil {
		if err := event.SetRecurrence(*uc.req.Recurrence, settings, true); err != nil {
			return nil, toBadInput(err)
		}
	} else if err := event.UpdateEndTime(settings); err != nil {
		return nil, toBadInput(err)
	}

	if err := uc.events.Insert(ctx, event); err != nil {
		return nil, apperr.Storage("insert event", err)
	}
	return event, nil
}

type updateEventUseCase struct {
	calendars out.CalendarRepository
	events    out.EventRepository
	req       in.UpdateEventRequest
}

func (uc *updateEventUseCase) Permissions() []in.Permission {
	return []in.Permission{"events:write"}
}

func (uc *updateEventUseCase) Execute(ctx context.Context) (*domain.CalendarEvent, error) {
	event, err := uc.events.Find(ctx, uc.req.EventID)
	if err != nil {
		return nil, apperr.Storage("find event", err)
	}
	if event == nil {
		return nil, apperr.NotFoundEntity("event", uc.req.EventID.String())
	}

	cal, err := uc.calendars.Find(ctx, event.CalendarID)
	if err != nil {
		return nil, apperr.Storage("find calendar", err)
	}
	if cal == nil {
		return nil, apperr.NotFoundEntity("calendar", event.CalendarID.String())
	}
	settings := cal.SettingsOf()

	if uc.req.StartTS != nil {
		event.StartTS = *uc.req.StartTS
	}
	if uc.req.Duration != nil {
		event.Duration = *uc.req.Duration
	}
	if uc.req.Busy != nil {
		event.Busy = *uc.req.Busy
	}
	if uc.req.Metadata != nil {
		event.Metadata = uc.req.Metadata
	}
	if uc.req.RemindersSet {
		for _, r := range uc.req.Reminders {
			if !r.IsValid() {
				return nil, apperr.BadInput("reminder delta must be within [0,1440] minutes")
			}
		}
		event.Reminders = uc.req.Reminders
	}

	if uc.req.RecurrenceSet {
		event.Exdates = uc.req.Exdates
		if uc.req.Recurrence != nil {
			if err := event.SetRecurrence(*uc.req.Recurrence, settings, true); err != nil {
				return nil, toBadInput(err)
			}
		} else {
			event.Recurrence = nil
			if err := event.UpdateEndTime(settings); err != nil {
				return nil, toBadInput(err)
			}
		}
	} else if uc.req.StartTS != nil || uc.req.Duration != nil {
		if err := event.UpdateEndTime(settings); err != nil {
			return nil, toBadInput(err)
		}
	}

	if err := uc.events.Save(ctx, event); err != nil {
		return nil, apperr.Storage("save event", err)
	}
	return event, nil
}

type deleteEventUseCase struct {
	events out.EventRepository
	req    in.DeleteEventRequest
}

func (uc *deleteEventUseCase) Permissions() []in.Permission {
	return []in.Permission{"events:write"}
}

func (uc *deleteEventUseCase) Execute(ctx context.Context) (*domain.CalendarEvent, error) {
	event, err := uc.events.Find(ctx, uc.req.EventID)
	if err != nil {
		return nil, apperr.Storage("find event", err)
	}
	if event == nil {
		return nil, apperr.NotFoundEntity("event", uc.req.EventID.String())
	}
	if err := uc.events.Delete(ctx, uc.req.EventID); err != nil {
		return nil, apperr.Storage("delete event", err)
	}
	return event, nil
}

func toBadInput(err error) error {
	if domain.IsBadInput(err) {
		return apperr.BadInput(err.Error())
	}
	return err
}
