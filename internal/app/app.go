package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"loan-viability/internal/alerting"
	"loan-viability/internal/cache"
	"loan-viability/internal/config"
	"loan-viability/internal/fetcher"
	"loan-viability/internal/scheduler"
	"loan-viability/internal/service"
	"loan-viability/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

// newInflationFetcher layers cache and fallback over the statistics API.
// The returned closer releases the Redis client when one is used. An
// unreachable Redis is logged; its misses fall through to the API.
func (a *App) newInflationFetcher(ctx context.Context) (fetcher.InflationFetcher, func()) {
	cfg := a.Config.Inflation
	var source fetcher.InflationFetcher = fetcher.NewIBGE(fetcher.IBGEOptions{
		BaseURL:   cfg.BaseURL,
		Aggregate: cfg.Aggregate,
		Variable:  cfg.Variable,
		Periods:   cfg.Periods,
		Window:    cfg.Window,
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
	}, a.Logger)

	closer := func() {}
	if a.Config.Cache.TTL > 0 {
		var store cache.Cache
		if a.Config.Cache.RedisAddr != "" {
			rc := cache.NewRedis(cache.RedisOptions{
				Addr:     a.Config.Cache.RedisAddr,
				Password: a.Config.Cache.RedisPassword,
				DB:       a.Config.Cache.RedisDB,
			})
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := rc.Ping(pingCtx); err != nil {
				a.Logger.Warn().Err(err).Str("addr", a.Config.Cache.RedisAddr).Msg("redis cache unreachable; serving inflation without cache hits")
			}
			cancel()
			store = rc
			closer = func() {
				if err := rc.Close(); err != nil {
					a.Logger.Warn().Err(err).Msg("close redis cache")
				}
			}
		} else {
			store = cache.NewMemory()
		}
		source = fetcher.NewCached(source, store, a.Config.InflationCacheKey(), a.Config.Cache.TTL, a.Logger)
	}

	if cfg.FallbackEnabled {
		source = fetcher.NewFallback(source, fetcher.DefaultFallbackSeries(), a.Logger)
	}
	return source, closer
}

func (a *App) newLoanFetcher() fetcher.LoanFetcher {
	if a.Config.Admin.BaseURL == "" {
		return nil
	}
	return fetcher.NewAdmin(fetcher.AdminOptions{
		BaseURL:   a.Config.Admin.BaseURL,
		Token:     a.Config.Admin.Token,
		Timeout:   a.Config.Admin.RequestTimeout,
		UserAgent: a.Config.Inflation.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newService wires every configured collaborator. The returned closer must
// be called once the service is no longer used.
func (a *App) newService(ctx context.Context, sched *scheduler.Scheduler) (*service.Service, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		a.Logger.Debug().Msg("database.dsn not configured; persistence disabled")
	}

	inflation, closeCache := a.newInflationFetcher(ctx)

	var assessmentStore storage.AssessmentStore
	var inflationStore storage.InflationStore
	if store != nil {
		assessmentStore = store
		inflationStore = store
	}

	svc := service.New(a.Config, sched, inflation, a.newLoanFetcher(), assessmentStore, inflationStore, a.newNotifier(), a.Logger)

	closer := func() {
		closeCache()
		if closeStore != nil {
			closeStore()
		}
	}
	return svc, closer, nil
}

// Run executes the scheduled inflation refresh loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunOnStart:   true,
	}, a.Logger)

	svc, closer, err := a.newService(ctx, sched)
	if err != nil {
		return err
	}
	defer closer()

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting inflation refresh loop")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("inflation refresh loop stopped")
	return nil
}

// ExportOptions hold parameters for exporting assessments and inflation.
type ExportOptions struct {
	From    *time.Time
	To      *time.Time
	PNGPath string
	CSVPath string
	MaxRows int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	LoanID string
}

// ReviewOptions configure the batch review job.
type ReviewOptions struct {
	LoanIDs []string
	DryRun  bool
}

// SimulateOptions describe an offline assessment built from flags.
type SimulateOptions struct {
	RequestedAmount   string
	InstallmentAmount string
	Installments      int
	Paid              int
	Rates             []string
}
