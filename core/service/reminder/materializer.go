// Package reminder implements the Reminder Materializer (C8, spec §4.7)
// and the Reminder Dispatcher (C9, spec §4.8).
package reminder

import (
	"context"

	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
	"scheduler_server/pkg/apperr"
)

const (
	thresholdLeadMS          = 61_000
	maxOccurrenceWindow      = 100
	expansionCheckpointIndex = 90 // occurrence[90], 0-indexed
)

// Materializer keeps an event's reminder queue consistent with its
// lifecycle, using a monotonically increasing version per event to
// invalidate reminders materialized under a stale view of the event.
type Materializer struct {
	reminders out.ReminderRepository
	jobs      out.ExpansionJobRepository
	clock     out.Clock
}

func NewMaterializer(reminders out.ReminderRepository, jobs out.ExpansionJobRepository, clock out.Clock) *Materializer {
	return &Materializer{reminders: reminders, jobs: jobs, clock: clock}
}

// OnEventCreated implements EventModified(event, Created).
func (m *Materializer) OnEventCreated(ctx context.Context, event *domain.CalendarEvent, settings domain.CalendarSettings) error {
	version, err := m.reminders.InitVersion(ctx, event.ID)
	if err != nil {
		return apperr.Storage("init reminder version", err)
	}
	return m.materialize(ctx, event, settings, version, event.StartTS)
}

// OnEventUpdated implements EventModified(event, Updated): IncVersion
// deletes all reminders materialized at older versions for this event.
func (m *Materializer) OnEventUpdated(ctx context.Context, event *domain.CalendarEvent, settings domain.CalendarSettings) error {
	version, err := m.reminders.IncVersion(ctx, event.ID)
	if err != nil {
		return apperr.Storage("bump reminder version", err)
	}
	return m.materialize(ctx, event, settings, version, event.StartTS)
}

// OnEventDeleted implements EventModified(event, Deleted): bumping the
// version orphans old reminders from the dispatch window; their physical
// deletion happens when the dispatcher drains past them.
func (m *Materializer) OnEventDeleted(ctx context.Context, eventID uuid.UUID) error {
	if _, err := m.reminders.IncVersion(ctx, eventID); err != nil {
		return apperr.Storage("bump reminder version on delete", err)
	}
	return nil
}

// OnExpansionJobDue implements ExpansionJobDue(event_id): re-expand from
// the job's anchor, bump the version, and materialize the next window.
func (m *Materializer) OnExpansionJobDue(ctx context.Context, job domain.ExpansionJob, event *domain.CalendarEvent, settings domain.CalendarSettings) error {
	version, err := m.reminders.IncVersion(ctx, event.ID)
	if err != nil {
		return apperr.Storage("bump reminder version on expansion", err)
	}
	return m.materialize(ctx, event, settings, version, job.DueAtMS)
}

func (m *Materializer) materialize(ctx context.Context, event *domain.CalendarEvent, settings domain.CalendarSettings, version, anchor int64) error {
	if len(event.Reminders) == 0 {
		return nil
	}
	now := m.clock.NowMS()
	threshold := now + thresholdLeadMS

	var toInsert []domain.Reminder
	var job *domain.ExpansionJob

	if event.Recurrence == nil {
		toInsert = remindersFor(event, event.StartTS, version, threshold)
	} else {
		var err error
		toInsert, job, err = materializeRecurring(event, settings, version, anchor, now, threshold)
		if err != nil {
			return err
		}
	}

	if len(toInsert) > 0 {
		if err := m.reminders.BulkInsert(ctx, toInsert); err != nil {
			return apperr.Storage("bulk insert reminders", err)
		}
	}
	if job != nil {
		if err := m.jobs.BulkInsert(ctx, []domain.ExpansionJob{*job}); err != nil {
			return apperr.Storage("bulk insert expansion job", err)
		}
	}
	return nil
}

func materializeRecurring(event *domain.CalendarEvent, settings domain.CalendarSettings, version, anchor, now, threshold int64) ([]domain.Reminder, *domain.ExpansionJob, error) {
	maxDelta := maxReminderDelta(event.Reminders)

	it, err := domain.NewOccurrenceIterator(event.StartTS, *event.Recurrence, event.Exdates, settings, anchor)
	if err != nil {
		return nil, nil, err
	}

	var toInsert []domain.Reminder
	var job *domain.ExpansionJob
	taken := 0

	for taken < maxOccurrenceWindow {
		occStart, ok := it.Next()
		if !ok {
			break
		}
		if occStart+maxDelta*60_000 < now {
			continue // occurrence fully in the past for every one of its reminders
		}

		toInsert = append(toInsert, remindersFor(event, occStart, version, threshold)...)
		taken++
		if taken == expansionCheckpointIndex+1 {
			job = &domain.ExpansionJob{EventID: event.ID, DueAtMS: occStart, Version: version}
		}
	}

	if taken < maxOccurrenceWindow {
		job = nil // the sequence terminated within the window; no continuation needed
	}
	return toInsert, job, nil
}

func remindersFor(event *domain.CalendarEvent, occStart, version, threshold int64) []domain.Reminder {
	var out []domain.Reminder
	for _, r := range event.Reminders {
		remindAt := occStart + r.DeltaMinutes*60_000
		if remindAt > threshold {
			out = append(out, domain.Reminder{
				AccountID:  event.AccountID,
				EventID:    event.ID,
				RemindAtMS: remindAt,
				Version:    version,
				Priority:   version,
				Identifier: r.Identifier,
			})
		}
	}
	return out
}

func maxReminderDelta(reminders []domain.EventReminder) int64 {
	var max int64
	for _, r := range reminders {
		if r.DeltaMinutes > max {
			max = r.DeltaMinutes
		}
	}
	return max
}
