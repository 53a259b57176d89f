package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
)

const (
	msGraphBaseURL    = "https://graph.microsoft.com/v1.0"
	outlookTimeFormat = "2006-01-02T15:04:05.0000000"
)

// OutlookCalendarProvider implements out.CalendarProvider against the
// Microsoft Graph REST API for a single user's OAuth token.
type OutlookCalendarProvider struct {
	client *http.Client
}

// NewOutlookCalendarProvider builds a provider bound to an already
// token-backed HTTP client (oauthConfig.Client(ctx, token)).
func NewOutlookCalendarProvider(client *http.Client) *OutlookCalendarProvider {
	return &OutlookCalendarProvider{client: client}
}

type outlookCalendar struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	CanEdit           bool   `json:"canEdit"`
	IsDefaultCalendar bool   `json:"isDefaultCalendar"`
}

func (a *OutlookCalendarProvider) List(ctx context.Context, minAccessRole string) ([]out.ProviderCalendar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, msGraphBaseURL+"/me/calendars", nil)
	if err != nil {
		return nil, fmt.Errorf("build list calendars request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list calendars failed with status %d: %s", resp.StatusCode, body)
	}

	var result struct {
		Value []outlookCalendar `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode list calendars response: %w", err)
	}

	calendars := make([]out.ProviderCalendar, 0, len(result.Value))
	for _, cal := range result.Value {
		role := "reader"
		if cal.CanEdit {
			role = "writer"
		}
		if minAccessRole == "writer" && role != "writer" {
			continue
		}
		calendars = append(calendars, out.ProviderCalendar{ID: cal.ID, Name: cal.Name, AccessRole: role})
	}
	return calendars, nil
}

type scheduleRequest struct {
	Schedules        []string `json:"schedules"`
	StartTime        dateTimeTZ `json:"startTime"`
	EndTime          dateTimeTZ `json:"endTime"`
	AvailabilityView bool       `json:"-"`
}

type dateTimeTZ struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type scheduleItem struct {
	Start struct {
		DateTime string `json:"dateTime"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
	} `json:"end"`
	Status string `json:"status"`
}

type scheduleInformation struct {
	ScheduleID    string         `json:"scheduleId"`
	ScheduleItems []scheduleItem `json:"scheduleItems"`
}

// Freebusy calls the getSchedule Graph action, one external calendar owner
// per entry in calendarIDs (Graph addresses schedules by mailbox, not
// calendar id, so calendarIDs here are expected to be mailbox identifiers).
func (a *OutlookCalendarProvider) Freebusy(ctx context.Context, calendarIDs []string, span domain.TimeSpan) ([]domain.EventInstance, error) {
	if len(calendarIDs) == 0 {
		return nil, nil
	}

	body := scheduleRequest{
		Schedules: calendarIDs,
		StartTime: dateTimeTZ{DateTime: time.UnixMilli(span.Start).UTC().Format(outlookTimeFormat), TimeZone: "UTC"},
		EndTime:   dateTimeTZ{DateTime: time.UnixMilli(span.End).UTC().Format(outlookTimeFormat), TimeZone: "UTC"},
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal getSchedule request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msGraphBaseURL+"/me/calendar/getSchedule", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("build getSchedule request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getSchedule: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("getSchedule failed with status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Value []scheduleInformation `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode getSchedule response: %w", err)
	}

	var instances []domain.EventInstance
	for _, sched := range result.Value {
		for _, item := range sched.ScheduleItems {
			if item.Status == "free" {
				continue
			}
			start, err := time.Parse(outlookTimeFormat, item.Start.DateTime)
			if err != nil {
				continue
			}
			end, err := time.Parse(outlookTimeFormat, item.End.DateTime)
			if err != nil {
				continue
			}
			instances = append(instances, domain.EventInstance{
				StartTS: start.UnixMilli(),
				EndTS:   end.UnixMilli(),
				Busy:    true,
			})
		}
	}
	return instances, nil
}

type outlookEventBody struct {
	Start         dateTimeTZ        `json:"start"`
	End           dateTimeTZ        `json:"end"`
	ShowAs        string            `json:"showAs"`
	Subject       string            `json:"subject,omitempty"`
	Body          *outlookEventHTML `json:"body,omitempty"`
	IsReminderOn  bool              `json:"isReminderOn"`
	ReminderInMin int               `json:"reminderMinutesBeforeStart,omitempty"`
}

type outlookEventHTML struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

func (a *OutlookCalendarProvider) toOutlookEvent(event *domain.CalendarEvent) outlookEventBody {
	showAs := "free"
	if event.Busy {
		showAs = "busy"
	}
	body := outlookEventBody{
		Start:  dateTimeTZ{DateTime: time.UnixMilli(event.StartTS).UTC().Format(outlookTimeFormat), TimeZone: "UTC"},
		End:    dateTimeTZ{DateTime: time.UnixMilli(event.EndTS).UTC().Format(outlookTimeFormat), TimeZone: "UTC"},
		ShowAs: showAs,
	}
	if subject, ok := event.Metadata["summary"]; ok {
		body.Subject = subject
	}
	if len(event.Reminders) > 0 {
		body.IsReminderOn = true
		body.ReminderInMin = int(event.Reminders[0].DeltaMinutes)
	}
	return body
}

func (a *OutlookCalendarProvider) CreateEvent(ctx context.Context, calendarID string, event *domain.CalendarEvent) (string, error) {
	endpoint := msGraphBaseURL + "/me/calendar/events"
	if calendarID != "" {
		endpoint = msGraphBaseURL + "/me/calendars/" + calendarID + "/events"
	}

	jsonBody, err := json.Marshal(a.toOutlookEvent(event))
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("build create event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("create event failed with status %d: %s", resp.StatusCode, body)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode create event response: %w", err)
	}
	return created.ID, nil
}

func (a *OutlookCalendarProvider) UpdateEvent(ctx context.Context, calendarID, extEventID string, event *domain.CalendarEvent) error {
	endpoint := msGraphBaseURL + "/me/events/" + extEventID
	if calendarID != "" {
		endpoint = msGraphBaseURL + "/me/calendars/" + calendarID + "/events/" + extEventID
	}

	jsonBody, err := json.Marshal(a.toOutlookEvent(event))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("build update event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("update event failed with status %d: %s", resp.StatusCode, body)
	}
	return nil
}

func (a *OutlookCalendarProvider) DeleteEvent(ctx context.Context, calendarID, extEventID string) error {
	endpoint := msGraphBaseURL + "/me/events/" + extEventID
	if calendarID != "" {
		endpoint = msGraphBaseURL + "/me/calendars/" + calendarID + "/events/" + extEventID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete event request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete event failed with status %d: %s", resp.StatusCode, body)
	}
	return nil
}

var _ out.CalendarProvider = (*OutlookCalendarProvider)(nil)
