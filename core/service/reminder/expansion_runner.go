package reminder

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"scheduler_server/core/port/out"
)

// ExpansionRunner drains due ExpansionJob rows and feeds them back through
// the Materializer, continuing a recurring event's reminder window past the
// point where materializeRecurring truncated it at maxOccurrenceWindow
// (spec §4.7). Without this loop, checkpoint jobs accumulate and nothing
// ever extends the window, and occurrences past the first 100 silently
// stop getting reminders.
type ExpansionRunner struct {
	jobs         out.ExpansionJobRepository
	events       out.EventRepository
	calendars    out.CalendarRepository
	materializer *Materializer
	clock        out.Clock
	interval     time.Duration
}

func NewExpansionRunner(jobs out.ExpansionJobRepository, events out.EventRepository, calendars out.CalendarRepository, materializer *Materializer, clock out.Clock, intervalMS int64) *ExpansionRunner {
	return &ExpansionRunner{
		jobs:         jobs,
		events:       events,
		calendars:    calendars,
		materializer: materializer,
		clock:        clock,
		interval:     time.Duration(intervalMS) * time.Millisecond,
	}
}

// Run blocks, firing Tick on the configured interval until ctx is
// cancelled, mirroring Dispatcher.Run's shape.
func (r *ExpansionRunner) Run(ctx context.Context) {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			start := r.clock.NowMS()
			if err := r.Tick(ctx); err != nil {
				log.Error().Err(err).Msg("expansion job runner tick failed")
			}
			horizon := start + r.interval.Milliseconds()
			now := r.clock.NowMS()
			fireAt := horizon
			if now > fireAt {
				log.Warn().Msg("expansion job runner tick exceeded its horizon")
				fireAt = now
			}
			timer.Reset(time.Duration(fireAt-now) * time.Millisecond)
		}
	}
}

// Tick drains every job due by the end of the next interval and
// re-materializes its event's reminder window from the job's anchor.
func (r *ExpansionRunner) Tick(ctx context.Context) error {
	horizon := r.clock.NowMS() + r.interval.Milliseconds()

	due, err := r.jobs.DeleteAllBefore(ctx, horizon)
	if err != nil {
		return err
	}

	for _, job := range due {
		event, err := r.events.Find(ctx, job.EventID)
		if err != nil {
			log.Error().Err(err).Str("event_id", job.EventID.String()).Msg("expansion job: find event failed")
			continue
		}
		if event == nil || event.Recurrence == nil {
			continue // event deleted or no longer recurring since the job was queued
		}
		calendar, err := r.calendars.Find(ctx, event.CalendarID)
		if err != nil || calendar == nil {
			log.Error().Err(err).Str("calendar_id", event.CalendarID.String()).Msg("expansion job: find calendar failed")
			continue
		}
		if err := r.materializer.OnExpansionJobDue(ctx, job, event, calendar.SettingsOf()); err != nil {
			log.Error().Err(err).Str("event_id", job.EventID.String()).Msg("expansion job: materialize failed")
		}
	}
	return nil
}
