package booking

import (
	"context"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
	"scheduler_server/pkg/apperr"
)

// ReconcileGroupCapacity implements the increase_max_count contract of
// spec §4.6: decreasing a group(max) policy leaves existing reservations
// and events untouched (CreateBookingIntent fails further intents until
// the count drops below the new cap on its own). Increasing the cap
// reopens slots that had already reached the old cap by cascade-deleting
// their placed host events, so the slot can refill under the new ceiling.
func ReconcileGroupCapacity(ctx context.Context, events out.EventRepository, reservations out.ReservationCounterRepository, service *domain.Service, oldMax, newMax int) error {
	if service.Policy.Kind != domain.PolicyGroup || newMax <= oldMax {
		return nil
	}

	reopened, err := reservations.DeleteBelow(ctx, service.ID, oldMax, newMax)
	if err != nil {
		return apperr.Storage("delete reservations below new cap", err)
	}

	for _, reservation := range reopened {
		placed, err := events.FindByService(ctx, service.ID, service.UserIDs, reservation.TimestampMS, reservation.TimestampMS+1)
		if err != nil {
			return apperr.Storage("find placed service events", err)
		}
		for _, evt := range placed {
			if evt.StartTS != reservation.TimestampMS {
				continue
			}
			if err := events.Delete(ctx, evt.ID); err != nil {
				return apperr.Storage("cascade delete service event", err)
			}
		}
	}
	return nil
}
