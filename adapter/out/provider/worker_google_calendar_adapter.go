package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendarProvider implements out.CalendarProvider against the Google
// Calendar v3 API for a single user's OAuth token.
type GoogleCalendarProvider struct {
	client *http.Client
}

// NewGoogleCalendarProvider builds a provider bound to an already
// token-backed HTTP client (oauthConfig.Client(ctx, token)).
func NewGoogleCalendarProvider(client *http.Client) *GoogleCalendarProvider {
	return &GoogleCalendarProvider{client: client}
}

func (a *GoogleCalendarProvider) service(ctx context.Context) (*calendar.Service, error) {
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(a.client))
	if err != nil {
		return nil, fmt.Errorf("build calendar service: %w", err)
	}
	return svc, nil
}

var accessRoleRank = map[string]int{
	"freeBusyReader": 0,
	"reader":         1,
	"writer":         2,
	"owner":          3,
}

func (a *GoogleCalendarProvider) List(ctx context.Context, minAccessRole string) ([]out.ProviderCalendar, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	list, err := svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	minRank := accessRoleRank[minAccessRole]
	calendars := make([]out.ProviderCalendar, 0, len(list.Items))
	for _, cal := range list.Items {
		if accessRoleRank[cal.AccessRole] < minRank {
			continue
		}
		calendars = append(calendars, out.ProviderCalendar{ID: cal.Id, Name: cal.Summary, AccessRole: cal.AccessRole})
	}
	return calendars, nil
}

func (a *GoogleCalendarProvider) Freebusy(ctx context.Context, calendarIDs []string, span domain.TimeSpan) ([]domain.EventInstance, error) {
	if len(calendarIDs) == 0 {
		return nil, nil
	}
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*calendar.FreeBusyRequestItem, len(calendarIDs))
	for i, id := range calendarIDs {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}

	resp, err := svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: time.UnixMilli(span.Start).UTC().Format(time.RFC3339),
		TimeMax: time.UnixMilli(span.End).UTC().Format(time.RFC3339),
		Items:   items,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("query freebusy: %w", err)
	}

	var instances []domain.EventInstance
	for _, calData := range resp.Calendars {
		for _, busy := range calData.Busy {
			start, err := time.Parse(time.RFC3339, busy.Start)
			if err != nil {
				continue
			}
			end, err := time.Parse(time.RFC3339, busy.End)
			if err != nil {
				continue
			}
			instances = append(instances, domain.EventInstance{StartTS: start.UnixMilli(), EndTS: end.UnixMilli(), Busy: true})
		}
	}
	return instances, nil
}

func (a *GoogleCalendarProvider) toGoogleEvent(event *domain.CalendarEvent) *calendar.Event {
	transparency := "opaque"
	if !event.Busy {
		transparency = "transparent"
	}
	gcalEvent := &calendar.Event{
		Start: &calendar.EventDateTime{
			DateTime: time.UnixMilli(event.StartTS).UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendar.EventDateTime{
			DateTime: time.UnixMilli(event.EndTS).UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		Transparency: transparency,
	}
	if summary, ok := event.Metadata["summary"]; ok {
		gcalEvent.Summary = summary
	}
	if description, ok := event.Metadata["description"]; ok {
		gcalEvent.Description = description
	}
	if len(event.Reminders) > 0 {
		overrides := make([]*calendar.EventReminder, len(event.Reminders))
		for i, r := range event.Reminders {
			overrides[i] = &calendar.EventReminder{Method: "popup", Minutes: int64(r.DeltaMinutes)}
		}
		gcalEvent.Reminders = &calendar.EventReminders{UseDefault: false, Overrides: overrides, ForceSendFields: []string{"UseDefault"}}
	}
	return gcalEvent
}

func (a *GoogleCalendarProvider) CreateEvent(ctx context.Context, calendarID string, event *domain.CalendarEvent) (string, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return "", err
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	created, err := svc.Events.Insert(calendarID, a.toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	return created.Id, nil
}

func (a *GoogleCalendarProvider) UpdateEvent(ctx context.Context, calendarID, extEventID string, event *domain.CalendarEvent) error {
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	if _, err := svc.Events.Update(calendarID, extEventID, a.toGoogleEvent(event)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

func (a *GoogleCalendarProvider) DeleteEvent(ctx context.Context, calendarID, extEventID string) error {
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	if err := svc.Events.Delete(calendarID, extEventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

var _ out.CalendarProvider = (*GoogleCalendarProvider)(nil)
