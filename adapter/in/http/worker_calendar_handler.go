package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/in"
	"scheduler_server/pkg/cache"
)

// bookingSlotsCacheTTL bounds how long a computed slot listing can be served
// to a second caller before it's recomputed against live event data.
const bookingSlotsCacheTTL = 15 * time.Second

// CalendarHandler exposes the Orchestrator's use cases over HTTP. Every
// route is scoped under /accounts/:accountID and runs behind AccountAuth,
// which resolves the caller's *domain.User and Policy. Permission checks
// against that Policy happen inside the orchestrator, per use case.
type CalendarHandler struct {
	orchestrator in.Orchestrator
	slotsCache   *cache.RedisCache // optional; nil disables booking-slot caching
}

func NewCalendarHandler(orchestrator in.Orchestrator) *CalendarHandler {
	return &CalendarHandler{orchestrator: orchestrator}
}

// WithSlotsCache enables short-TTL caching of GetServiceBookingSlots
// responses, since a popular service's slot listing is read far more often
// than the underlying availability changes.
func (h *CalendarHandler) WithSlotsCache(c *cache.RedisCache) *CalendarHandler {
	h.slotsCache = c
	return h
}

func (h *CalendarHandler) Register(api fiber.Router) {
	api.Post("/events", h.CreateEvent)
	api.Patch("/events/:id", h.UpdateEvent)
	api.Delete("/events/:id", h.DeleteEvent)

	api.Post("/booking-intents", h.CreateBookingIntent)
	api.Get("/services/:serviceID/booking-slots", h.GetServiceBookingSlots)
	api.Get("/services/:serviceID/users/:userID/freebusy", h.GetUserFreebusy)

	api.Post("/services/:serviceID/busy-calendar-links", h.AddBusyCalendarLink)
	api.Post("/services/:serviceID/resources", h.AddUserToService)
	api.Patch("/services/:serviceID/capacity", h.ChangeGroupCapacity)
}

type createEventBody struct {
	CalendarID uuid.UUID              `json:"calendar_id"`
	UserID     uuid.UUID              `json:"user_id"`
	StartTS    int64                  `json:"start_ts"`
	Duration   int64                  `json:"duration_ms"`
	Busy       bool                   `json:"busy"`
	Recurrence *domain.RecurrenceRule `json:"recurrence,omitempty"`
	Exdates    []int64                `json:"exdates,omitempty"`
	Reminders  []domain.EventReminder `json:"reminders,omitempty"`
	ServiceID  *uuid.UUID             `json:"service_id,omitempty"`
	Metadata   map[string]string      `json:"metadata,omitempty"`
}

func (h *CalendarHandler) CreateEvent(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("accountID"))
	if err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_ACCOUNT_ID", "invalid account id")
	}

	var body createEventBody
	if err := c.BodyParser(&body); err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	req := in.CreateEventRequest{
		CalendarID: body.CalendarID,
		UserID:     body.UserID,
		AccountID:  accountID,
		StartTS:    body.StartTS,
		Duration:   body.Duration,
		Busy:       body.Busy,
		Recurrence: body.Recurrence,
		Exdates:    body.Exdates,
		Reminders:  body.Reminders,
		ServiceID:  body.ServiceID,
		Metadata:   body.Metadata,
	}

	event, err := h.orchestrator.CreateEvent(c.Context(), GetPolicy(c), req)
	if err != nil {
		return InternalErrorResponse(c, err, "create event")
	}
	return SuccessResponse(c, event)
}

type updateEventBody struct {
	StartTS       *int64                 `json:"start_ts,omitempty"`
	Duration      *int64                 `json:"duration_ms,omitempty"`
	Busy          *bool                  `json:"busy,omitempty"`
	RecurrenceSet bool                   `json:"recurrence_set,omitempty"`
	Recurrence    *domain.RecurrenceRule `json:"recurrence,omitempty"`
	Exdates       []int64                `json:"exdates,omitempty"`
	RemindersSet  bool                   `json:"reminders_set,omitempty"`
	Reminders     []domain.EventReminder `json:"reminders,omitempty"`
	Metadata      map[string]string      `json:"metadata,omitempty"`
}

func (h *CalendarHandler) UpdateEvent(c *fiber.Ctx) error {
	eventID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_EVENT_ID", "invalid event id")
	}

	var body updateEventBody
	if err := c.BodyParser(&body); err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	req := in.UpdateEventRequest{
		EventID:       eventID,
		StartTS:       body.StartTS,
		Duration:      body.Duration,
		Busy:          body.Busy,
		RecurrenceSet: body.RecurrenceSet,
		Recurrence:    body.Recurrence,
		Exdates:       body.Exdates,
		RemindersSet:  body.RemindersSet,
		Reminders:     body.Reminders,
		Metadata:      body.Metadata,
	}

	event, err := h.orchestrator.UpdateEvent(c.Context(), GetPolicy(c), req)
	if err != nil {
		return InternalErrorResponse(c, err, "update event")
	}
	return SuccessResponse(c, event)
}

func (h *CalendarHandler) DeleteEvent(c *fiber.Ctx) error {
	eventID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_EVENT_ID", "invalid event id")
	}

	if err := h.orchestrator.DeleteEvent(c.Context(), GetPolicy(c), in.DeleteEventRequest{EventID: eventID}); err != nil {
		return InternalErrorResponse(c, err, "delete event")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type createBookingIntentBody struct {
	ServiceID   uuid.UUID   `json:"service_id"`
	Timestamp   int64       `json:"timestamp"`
	Duration    int64       `json:"duration_ms"`
	IntervalMS  int64       `json:"interval_ms"`
	HostUserIDs []uuid.UUID `json:"host_user_ids,omitempty"`
}

func (h *CalendarHandler) CreateBookingIntent(c *fiber.Ctx) error {
	var body createBookingIntentBody
	if err := c.BodyParser(&body); err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	req := in.CreateBookingIntentRequest{
		ServiceID:   body.ServiceID,
		Timestamp:   body.Timestamp,
		Duration:    body.Duration,
		IntervalMS:  body.IntervalMS,
		HostUserIDs: body.HostUserIDs,
	}

	result, err := h.orchestrator.CreateBookingIntent(c.Context(), GetPolicy(c), req)
	if err != nil {
		return InternalErrorResponse(c, err, "create booking intent")
	}
	return SuccessResponse(c, result)
}

func (h *CalendarHandler) GetServiceBookingSlots(c *fiber.Ctx) error {
	serviceID, err := uuid.Parse(c.Params("serviceID"))
	if err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_SERVICE_ID", "invalid service id")
	}

	startTS := QueryInt64(c, "start_ts")
	endTS := QueryInt64(c, "end_ts")
	durationMS := QueryInt64(c, "duration_ms")
	intervalMS := QueryInt64(c, "interval_ms")
	if startTS == nil || endTS == nil || durationMS == nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "MISSING_PARAM", "start_ts, end_ts, and duration_ms are required")
	}
	interval := int64(0)
	if intervalMS != nil {
		interval = *intervalMS
	}

	req := in.GetServiceBookingSlotsRequest{
		ServiceID:  serviceID,
		StartTS:    *startTS,
		EndTS:      *endTS,
		DurationMS: *durationMS,
		IntervalMS: interval,
	}

	cacheKey := fmt.Sprintf("booking-slots:%s:%d:%d:%d:%d", serviceID, req.StartTS, req.EndTS, req.DurationMS, req.IntervalMS)
	if h.slotsCache != nil {
		var cached []in.BookingSlot
		if hit, _ := h.slotsCache.GetJSON(c.Context(), cacheKey, &cached); hit {
			return SuccessResponse(c, cached)
		}
	}

	slots, err := h.orchestrator.GetServiceBookingSlots(c.Context(), GetPolicy(c), req)
	if err != nil {
		return InternalErrorResponse(c, err, "list booking slots")
	}

	if h.slotsCache != nil {
		_ = h.slotsCache.SetJSON(c.Context(), cacheKey, slots, bookingSlotsCacheTTL)
	}

	return SuccessResponse(c, slots)
}

func (h *CalendarHandler) GetUserFreebusy(c *fiber.Ctx) error {
	serviceID, err := uuid.Parse(c.Params("serviceID"))
	if err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_SERVICE_ID", "invalid service id")
	}
	userID, err := uuid.Parse(c.Params("userID"))
	if err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_USER_ID", "invalid user id")
	}

	startTS := QueryInt64(c, "start_ts")
	endTS := QueryInt64(c, "end_ts")
	if startTS == nil || endTS == nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "MISSING_PARAM", "start_ts and end_ts are required")
	}

	req := in.GetUserFreebusyRequest{
		ServiceID: serviceID,
		UserID:    userID,
		Span:      domain.TimeSpan{Start: *startTS, End: *endTS},
	}

	instances, err := h.orchestrator.GetUserFreebusy(c.Context(), GetPolicy(c), req)
	if err != nil {
		return InternalErrorResponse(c, err, "get user freebusy")
	}
	return SuccessResponse(c, instances)
}

type addBusyCalendarLinkBody struct {
	UserID             uuid.UUID                  `json:"user_id"`
	RefKind            domain.BusyCalendarRefKind  `json:"ref_kind"`
	InternalCalendarID uuid.UUID                   `json:"internal_calendar_id,omitempty"`
	ExternalProvider   string                      `json:"external_provider,omitempty"`
	ExternalID         string                      `json:"external_id,omitempty"`
}

func (h *CalendarHandler) AddBusyCalendarLink(c *fiber.Ctx) error {
	serviceID, err := uuid.Parse(c.Params("serviceID"))
	if err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_SERVICE_ID", "invalid service id")
	}

	var body addBusyCalendarLinkBody
	if err := c.BodyParser(&body); err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	req := in.AddBusyCalendarLinkRequest{
		ServiceID:          serviceID,
		UserID:             body.UserID,
		RefKind:            body.RefKind,
		InternalCalendarID: body.InternalCalendarID,
		ExternalProvider:   body.ExternalProvider,
		ExternalID:         body.ExternalID,
	}

	if err := h.orchestrator.AddBusyCalendarLink(c.Context(), GetPolicy(c), req); err != nil {
		return InternalErrorResponse(c, err, "add busy calendar link")
	}
	return c.SendStatus(fiber.StatusCreated)
}

type addUserToServiceBody struct {
	UserID             uuid.UUID               `json:"user_id"`
	Availability       domain.AvailabilityPlan `json:"availability"`
	BufferBeforeMin    int                     `json:"buffer_before_min,omitempty"`
	BufferAfterMin     int                     `json:"buffer_after_min,omitempty"`
	ClosestBookingMin  int                     `json:"closest_booking_min,omitempty"`
	FurthestBookingMin *int                    `json:"furthest_booking_min,omitempty"`
}

func (h *CalendarHandler) AddUserToService(c *fiber.Ctx) error {
	serviceID, err := uuid.Parse(c.Params("serviceID"))
	if err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_SERVICE_ID", "invalid service id")
	}

	var body addUserToServiceBody
	if err := c.BodyParser(&body); err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	req := in.AddUserToServiceRequest{
		ServiceID:          serviceID,
		UserID:             body.UserID,
		Availability:       body.Availability,
		BufferBeforeMin:    body.BufferBeforeMin,
		BufferAfterMin:     body.BufferAfterMin,
		ClosestBookingMin:  body.ClosestBookingMin,
		FurthestBookingMin: body.FurthestBookingMin,
	}

	if err := h.orchestrator.AddUserToService(c.Context(), GetPolicy(c), req); err != nil {
		return InternalErrorResponse(c, err, "add user to service")
	}
	return c.SendStatus(fiber.StatusCreated)
}

type changeGroupCapacityBody struct {
	NewMax int `json:"new_max"`
}

func (h *CalendarHandler) ChangeGroupCapacity(c *fiber.Ctx) error {
	serviceID, err := uuid.Parse(c.Params("serviceID"))
	if err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_SERVICE_ID", "invalid service id")
	}

	var body changeGroupCapacityBody
	if err := c.BodyParser(&body); err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	req := in.ChangeGroupCapacityRequest{ServiceID: serviceID, NewMax: body.NewMax}
	if err := h.orchestrator.ChangeGroupCapacity(c.Context(), GetPolicy(c), req); err != nil {
		return InternalErrorResponse(c, err, "change group capacity")
	}
	return c.SendStatus(fiber.StatusOK)
}
