package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ServiceRepository implements out.ServiceRepository.
type ServiceRepository struct {
	db *sqlx.DB
}

func NewServiceRepository(db *sqlx.DB) out.ServiceRepository {
	return &ServiceRepository{db: db}
}

type serviceRow struct {
	ID          uuid.UUID     `db:"id"`
	AccountID   uuid.UUID     `db:"account_id"`
	PolicyKind  int           `db:"policy_kind"`
	MaxCapacity int           `db:"max_capacity"`
	UserIDs     pq.StringArray `db:"user_ids"`
}

func (r serviceRow) toDomain() (*domain.Service, error) {
	userIDs := make([]uuid.UUID, len(r.UserIDs))
	for i, s := range r.UserIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse service user id: %w", err)
		}
		userIDs[i] = id
	}
	return &domain.Service{
		ID:        r.ID,
		AccountID: r.AccountID,
		Policy: domain.MultiPersonPolicy{
			Kind:        domain.MultiPersonPolicyKind(r.PolicyKind),
			MaxCapacity: r.MaxCapacity,
		},
		UserIDs: userIDs,
	}, nil
}

func userIDStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func (r *ServiceRepository) Insert(ctx context.Context, service *domain.Service) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO services (id, account_id, policy_kind, max_capacity, user_ids)
		VALUES ($1, $2, $3, $4, $5)`,
		service.ID, service.AccountID, int(service.Policy.Kind), service.Policy.MaxCapacity,
		pq.Array(userIDStrings(service.UserIDs)))
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

func (r *ServiceRepository) Find(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	var row serviceRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, account_id, policy_kind, max_capacity, user_ids FROM services WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	return row.toDomain()
}

func (r *ServiceRepository) Update(ctx context.Context, service *domain.Service) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE services SET policy_kind = $2, max_capacity = $3, user_ids = $4 WHERE id = $1`,
		service.ID, int(service.Policy.Kind), service.Policy.MaxCapacity,
		pq.Array(userIDStrings(service.UserIDs)))
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

func (r *ServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	return nil
}

// ServiceResourceRepository implements out.ServiceResourceRepository.
type ServiceResourceRepository struct {
	db *sqlx.DB
}

func NewServiceResourceRepository(db *sqlx.DB) out.ServiceResourceRepository {
	return &ServiceResourceRepository{db: db}
}

type serviceResourceRow struct {
	ServiceID          uuid.UUID     `db:"service_id"`
	UserID             uuid.UUID     `db:"user_id"`
	PlanKind           int           `db:"plan_kind"`
	PlanID             uuid.NullUUID `db:"plan_id"`
	BufferBeforeMin    int           `db:"buffer_before_min"`
	BufferAfterMin     int           `db:"buffer_after_min"`
	ClosestBookingMin  int           `db:"closest_booking_min"`
	FurthestBookingMin sql.NullInt64 `db:"furthest_booking_min"`
}

func (r serviceResourceRow) toDomain() *domain.ServiceResource {
	res := &domain.ServiceResource{
		ServiceID: r.ServiceID,
		UserID:    r.UserID,
		Availability: domain.AvailabilityPlan{
			Kind: domain.AvailabilityPlanKind(r.PlanKind),
		},
		BufferBeforeMin:   r.BufferBeforeMin,
		BufferAfterMin:    r.BufferAfterMin,
		ClosestBookingMin: r.ClosestBookingMin,
	}
	if r.PlanID.Valid {
		res.Availability.ID = r.PlanID.UUID
	}
	if r.FurthestBookingMin.Valid {
		v := int(r.FurthestBookingMin.Int64)
		res.FurthestBookingMin = &v
	}
	return res
}

func (r *ServiceResourceRepository) Insert(ctx context.Context, resource *domain.ServiceResource) error {
	var planID uuid.NullUUID
	if resource.Availability.Kind != domain.PlanEmpty {
		planID = uuid.NullUUID{UUID: resource.Availability.ID, Valid: true}
	}
	var furthest sql.NullInt64
	if resource.FurthestBookingMin != nil {
		furthest = sql.NullInt64{Int64: int64(*resource.FurthestBookingMin), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO service_resources (
			service_id, user_id, plan_kind, plan_id,
			buffer_before_min, buffer_after_min, closest_booking_min, furthest_booking_min
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		resource.ServiceID, resource.UserID, int(resource.Availability.Kind), planID,
		resource.BufferBeforeMin, resource.BufferAfterMin, resource.ClosestBookingMin, furthest)
	if err != nil {
		return fmt.Errorf("insert service resource: %w", err)
	}
	return nil
}

func (r *ServiceResourceRepository) Find(ctx context.Context, serviceID, userID uuid.UUID) (*domain.ServiceResource, error) {
	var row serviceResourceRow
	err := r.db.GetContext(ctx, &row, `
		SELECT service_id, user_id, plan_kind, plan_id, buffer_before_min, buffer_after_min,
			closest_booking_min, furthest_booking_min
		FROM service_resources WHERE service_id = $1 AND user_id = $2`, serviceID, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find service resource: %w", err)
	}
	return row.toDomain(), nil
}

func (r *ServiceResourceRepository) FindByService(ctx context.Context, serviceID uuid.UUID) ([]domain.ServiceResource, error) {
	var rows []serviceResourceRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT service_id, user_id, plan_kind, plan_id, buffer_before_min, buffer_after_min,
			closest_booking_min, furthest_booking_min
		FROM service_resources WHERE service_id = $1`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("find service resources by service: %w", err)
	}
	result := make([]domain.ServiceResource, len(rows))
	for i, row := range rows {
		result[i] = *row.toDomain()
	}
	return result, nil
}

func (r *ServiceResourceRepository) Update(ctx context.Context, resource *domain.ServiceResource) error {
	var planID uuid.NullUUID
	if resource.Availability.Kind != domain.PlanEmpty {
		planID = uuid.NullUUID{UUID: resource.Availability.ID, Valid: true}
	}
	var furthest sql.NullInt64
	if resource.FurthestBookingMin != nil {
		furthest = sql.NullInt64{Int64: int64(*resource.FurthestBookingMin), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE service_resources SET
			plan_kind = $3, plan_id = $4, buffer_before_min = $5, buffer_after_min = $6,
			closest_booking_min = $7, furthest_booking_min = $8
		WHERE service_id = $1 AND user_id = $2`,
		resource.ServiceID, resource.UserID, int(resource.Availability.Kind), planID,
		resource.BufferBeforeMin, resource.BufferAfterMin, resource.ClosestBookingMin, furthest)
	if err != nil {
		return fmt.Errorf("update service resource: %w", err)
	}
	return nil
}

func (r *ServiceResourceRepository) Delete(ctx context.Context, serviceID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM service_resources WHERE service_id = $1 AND user_id = $2`, serviceID, userID)
	if err != nil {
		return fmt.Errorf("delete service resource: %w", err)
	}
	return nil
}

// BusyCalendarLinkRepository implements out.BusyCalendarLinkRepository.
type BusyCalendarLinkRepository struct {
	db *sqlx.DB
}

func NewBusyCalendarLinkRepository(db *sqlx.DB) out.BusyCalendarLinkRepository {
	return &BusyCalendarLinkRepository{db: db}
}

type busyCalendarLinkRow struct {
	ServiceID          uuid.UUID      `db:"service_id"`
	UserID             uuid.UUID      `db:"user_id"`
	RefKind            int            `db:"ref_kind"`
	InternalCalendarID uuid.NullUUID  `db:"internal_calendar_id"`
	ExternalProvider   sql.NullString `db:"external_provider"`
	ExternalID         sql.NullString `db:"external_id"`
}

func (r busyCalendarLinkRow) toDomain() domain.BusyCalendarLink {
	link := domain.BusyCalendarLink{
		ServiceID: r.ServiceID,
		UserID:    r.UserID,
		RefKind:   domain.BusyCalendarRefKind(r.RefKind),
	}
	if r.InternalCalendarID.Valid {
		link.InternalCalendarID = r.InternalCalendarID.UUID
	}
	if r.ExternalProvider.Valid {
		link.ExternalProvider = r.ExternalProvider.String
	}
	if r.ExternalID.Valid {
		link.ExternalID = r.ExternalID.String
	}
	return link
}

func (r *BusyCalendarLinkRepository) Exists(ctx context.Context, serviceID, userID, calendarID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM busy_calendar_links
			WHERE service_id = $1 AND user_id = $2 AND ref_kind = 0 AND internal_calendar_id = $3
		)`, serviceID, userID, calendarID)
	if err != nil {
		return false, fmt.Errorf("check busy calendar link exists: %w", err)
	}
	return exists, nil
}

func (r *BusyCalendarLinkRepository) ExistsExt(ctx context.Context, serviceID, userID uuid.UUID, provider, extID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM busy_calendar_links
			WHERE service_id = $1 AND user_id = $2 AND ref_kind = 1 AND external_provider = $3 AND external_id = $4
		)`, serviceID, userID, provider, extID)
	if err != nil {
		return false, fmt.Errorf("check external busy calendar link exists: %w", err)
	}
	return exists, nil
}

func (r *BusyCalendarLinkRepository) Insert(ctx context.Context, link *domain.BusyCalendarLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO busy_calendar_links (service_id, user_id, ref_kind, internal_calendar_id)
		VALUES ($1, $2, 0, $3)`,
		link.ServiceID, link.UserID, link.InternalCalendarID)
	if err != nil {
		return fmt.Errorf("insert busy calendar link: %w", err)
	}
	return nil
}

func (r *BusyCalendarLinkRepository) InsertExt(ctx context.Context, link *domain.BusyCalendarLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO busy_calendar_links (service_id, user_id, ref_kind, external_provider, external_id)
		VALUES ($1, $2, 1, $3, $4)`,
		link.ServiceID, link.UserID, link.ExternalProvider, link.ExternalID)
	if err != nil {
		return fmt.Errorf("insert external busy calendar link: %w", err)
	}
	return nil
}

func (r *BusyCalendarLinkRepository) Find(ctx context.Context, serviceID, userID uuid.UUID) ([]domain.BusyCalendarLink, error) {
	var rows []busyCalendarLinkRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT service_id, user_id, ref_kind, internal_calendar_id, external_provider, external_id
		FROM busy_calendar_links WHERE service_id = $1 AND user_id = $2`, serviceID, userID)
	if err != nil {
		return nil, fmt.Errorf("find busy calendar links: %w", err)
	}
	result := make([]domain.BusyCalendarLink, len(rows))
	for i, row := range rows {
		result[i] = row.toDomain()
	}
	return result, nil
}
