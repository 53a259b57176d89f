package bootstrap

import (
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"scheduler_server/adapter/out/persistence"
	"scheduler_server/adapter/out/provider"
	"scheduler_server/adapter/out/webhook"
	"scheduler_server/config"
	"scheduler_server/core/port/in"
	"scheduler_server/core/port/out"
	"scheduler_server/core/service/auth"
	"scheduler_server/core/service/availability"
	"scheduler_server/core/service/booking"
	"scheduler_server/core/service/orchestration"
	"scheduler_server/core/service/reminder"
	"scheduler_server/core/service/sync"
	"scheduler_server/infra/database"
	"scheduler_server/pkg/ratelimit"
)

// Dependencies holds every wired component the HTTP and reminder-dispatch
// entry points need. It is assembled once at startup by NewDependencies.
type Dependencies struct {
	Config *config.Config
	DB     *sqlx.DB
	Redis  *redis.Client

	Calendars    out.CalendarRepository
	Schedules    out.ScheduleRepository
	Services     out.ServiceRepository
	Resources    out.ServiceResourceRepository
	Users        out.UserRepository
	Accounts     out.AccountRepository
	BusyLinks    out.BusyCalendarLinkRepository
	Events       out.EventRepository
	Reminders    out.ReminderRepository
	Jobs         out.ExpansionJobRepository
	Reservations out.ReservationCounterRepository
	SyncedCals   out.SyncedCalendarRepository
	SyncedEvents out.SyncedEventRepository
	OAuthTokens  out.OAuthTokenStore

	ProviderFactory out.CalendarProviderFactory
	Notifier        out.Webhook

	Composer     *availability.Composer
	Assigner     *booking.IntentAssigner
	Materializer *reminder.Materializer
	Mirror       *sync.Mirror

	Orchestrator in.Orchestrator
	Collaborator in.AuthCollaborator
	Dispatcher   *reminder.Dispatcher
	JobRunner    *reminder.ExpansionRunner
}

// NewDependencies wires every outbound adapter and core service in
// dependency order: repositories, then provider/webhook adapters, then the
// C1-C10 domain services, then the orchestration facade they sit behind.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	d := &Dependencies{
		Config: cfg,
		DB:     db,
		Redis:  redisClient,

		Calendars:    persistence.NewCalendarRepository(db),
		Schedules:    persistence.NewScheduleRepository(db),
		Services:     persistence.NewServiceRepository(db),
		Resources:    persistence.NewServiceResourceRepository(db),
		Users:        persistence.NewUserRepository(db),
		Accounts:     persistence.NewAccountRepository(db),
		BusyLinks:    persistence.NewBusyCalendarLinkRepository(db),
		Events:       persistence.NewEventRepository(db),
		Reminders:    persistence.NewReminderRepository(db),
		Jobs:         persistence.NewExpansionJobRepository(db),
		Reservations: persistence.NewReservationCounterRepository(db),
		SyncedCals:   persistence.NewSyncedCalendarRepository(db),
		SyncedEvents: persistence.NewSyncedEventRepository(db),
		OAuthTokens:  persistence.NewOAuthTokenRepository(db),
	}

	factoryCfg := &provider.FactoryConfig{}
	if cfg.GoogleClientID != "" {
		factoryCfg.Google = &provider.OAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		}
	}
	if cfg.MicrosoftClientID != "" {
		factoryCfg.Outlook = &provider.OAuthConfig{
			ClientID:     cfg.MicrosoftClientID,
			ClientSecret: cfg.MicrosoftClientSecret,
			RedirectURL:  cfg.MicrosoftRedirectURL,
			TenantID:     cfg.MicrosoftTenantID,
		}
	}
	providerLimiter := ratelimit.NewSlidingWindowLimiter(redisClient, 10, 10)
	d.ProviderFactory = provider.NewCalendarProviderFactory(factoryCfg, d.OAuthTokens, providerLimiter)
	d.Notifier = webhook.NewHTTPNotifier()

	clock := out.SystemClock{}

	d.Composer = availability.NewComposer(
		d.Calendars,
		d.Schedules,
		d.Events,
		d.BusyLinks,
		d.Resources,
		d.ProviderFactory,
		clock,
		cfg.EventInstancesQueryMaxMS,
	)
	d.Assigner = booking.NewIntentAssigner(d.Composer, d.Events, d.Reservations, clock)
	d.Materializer = reminder.NewMaterializer(d.Reminders, d.Jobs, clock)
	d.Mirror = sync.NewMirror(d.SyncedCals, d.SyncedEvents, d.ProviderFactory)

	d.Orchestrator = orchestration.NewService(
		d.Calendars,
		d.Events,
		d.Services,
		d.Resources,
		d.BusyLinks,
		d.Reservations,
		d.Composer,
		d.Assigner,
		d.Materializer,
		d.Mirror,
		clock,
	)

	d.Collaborator = auth.NewCollaborator(d.Accounts, d.Users, clock)
	d.Dispatcher = reminder.NewDispatcher(d.Reminders, d.Events, d.Accounts, d.Notifier, clock, cfg.ReminderIntervalMS)
	d.JobRunner = reminder.NewExpansionRunner(d.Jobs, d.Events, d.Calendars, d.Materializer, clock, cfg.ExpansionJobIntervalMS)

	return d, nil
}

// Close releases pooled connections on shutdown.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
	if d.Redis != nil {
		d.Redis.Close()
	}
}
