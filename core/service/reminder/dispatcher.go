package reminder

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
)

// Dispatcher runs the single periodic loop described in spec §4.8: drain
// due reminders, deduplicate by event, group by account, and deliver.
type Dispatcher struct {
	reminders out.ReminderRepository
	events    out.EventRepository
	accounts  out.AccountRepository
	webhook   out.Webhook
	clock     out.Clock
	interval  time.Duration
}

func NewDispatcher(reminders out.ReminderRepository, events out.EventRepository, accounts out.AccountRepository, webhook out.Webhook, clock out.Clock, intervalMS int64) *Dispatcher {
	return &Dispatcher{
		reminders: reminders,
		events:    events,
		accounts:  accounts,
		webhook:   webhook,
		clock:     clock,
		interval:  time.Duration(intervalMS) * time.Millisecond,
	}
}

// Run blocks, firing Tick on the configured interval until ctx is
// cancelled. A tick is never cancelled mid-flight; the caller's shutdown
// grace period should cover one interval's worth of work.
func (d *Dispatcher) Run(ctx context.Context) {
	timer := time.NewTimer(d.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			start := d.clock.NowMS()
			if err := d.Tick(ctx); err != nil {
				log.Error().Err(err).Msg("reminder dispatcher tick failed")
			}
			horizon := start + d.interval.Milliseconds()
			now := d.clock.NowMS()
			fireAt := horizon
			if now > fireAt {
				log.Warn().Msg("reminder dispatcher tick exceeded its horizon")
				fireAt = now
			}
			timer.Reset(time.Duration(fireAt-now) * time.Millisecond)
		}
	}
}

// Tick executes one drain-dedup-deliver cycle.
func (d *Dispatcher) Tick(ctx context.Context) error {
	now := d.clock.NowMS()
	horizon := now + d.interval.Milliseconds()

	due, err := d.reminders.DeleteAllBefore(ctx, horizon)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	retained := dedupHighestPriority(due)
	retained, err = d.dropSupersededZeroPriority(ctx, retained)
	if err != nil {
		return err
	}
	if len(retained) == 0 {
		return nil
	}

	eventIDs := make([]uuid.UUID, 0, len(retained))
	for _, r := range retained {
		eventIDs = append(eventIDs, r.EventID)
	}
	events, err := d.events.FindMany(ctx, eventIDs)
	if err != nil {
		return err
	}
	eventByID := make(map[uuid.UUID]domain.CalendarEvent, len(events))
	for _, e := range events {
		eventByID[e.ID] = e
	}

	byAccount := map[uuid.UUID][]domain.CalendarEvent{}
	for _, r := range retained {
		event, ok := eventByID[r.EventID]
		if !ok {
			continue // event no longer exists
		}
		byAccount[r.AccountID] = append(byAccount[r.AccountID], event)
	}
	if len(byAccount) == 0 {
		return nil
	}

	accountIDs := make([]uuid.UUID, 0, len(byAccount))
	for id := range byAccount {
		accountIDs = append(accountIDs, id)
	}
	accounts, err := d.accounts.FindMany(ctx, accountIDs)
	if err != nil {
		return err
	}

	for _, account := range accounts {
		events := byAccount[account.ID]
		if len(events) == 0 {
			continue
		}
		payload := out.WebhookPayload{
			Event:     "reminders.due",
			AccountID: account.ID.String(),
			Data:      domain.AccountEventReminders{Account: account, Events: events},
			Timestamp: now,
		}
		if err := d.webhook.Deliver(ctx, &account, payload); err != nil {
			log.Error().Err(err).Str("account_id", account.ID.String()).Msg("reminder delivery failed")
		}
	}
	return nil
}

// dedupHighestPriority sorts by event_id ascending then priority
// descending, and keeps only the first (highest-priority) reminder per
// event_id. This implements the §4.8 step-3 contract directly rather than
// the off-by-one removal loop of the original source (spec §9 open
// question): a single sort-and-scan has no index-progression hazard.
func dedupHighestPriority(reminders []domain.Reminder) []domain.Reminder {
	sorted := append([]domain.Reminder(nil), reminders...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].EventID != sorted[j].EventID {
			return sorted[i].EventID.String() < sorted[j].EventID.String()
		}
		return sorted[i].Priority > sorted[j].Priority
	})

	retained := make([]domain.Reminder, 0, len(sorted))
	var lastEvent uuid.UUID
	seenAny := false
	for _, r := range sorted {
		if seenAny && r.EventID == lastEvent {
			continue
		}
		retained = append(retained, r)
		lastEvent = r.EventID
		seenAny = true
	}
	return retained
}

// dropSupersededZeroPriority implements §4.8 step 4: a priority-0 reminder
// is dropped if a priority>=1 reminder for the same event still exists in
// storage (an updated version has superseded it but had not yet reached
// this tick's horizon).
func (d *Dispatcher) dropSupersededZeroPriority(ctx context.Context, reminders []domain.Reminder) ([]domain.Reminder, error) {
	retained := make([]domain.Reminder, 0, len(reminders))
	for _, r := range reminders {
		if r.Priority != 0 {
			retained = append(retained, r)
			continue
		}
		superseded, err := d.reminders.FindByEventAndPriority(ctx, r.EventID, 1)
		if err != nil {
			return nil, err
		}
		if superseded != nil {
			continue
		}
		retained = append(retained, r)
	}
	return retained, nil
}
