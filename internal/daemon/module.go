package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/matheus3301/connect/internal/api"
	"github.com/matheus3301/connect/internal/backend"
	"github.com/matheus3301/connect/internal/bus"
	"github.com/matheus3301/connect/internal/config"
	"github.com/matheus3301/connect/internal/foreground"
	"github.com/matheus3301/connect/internal/ipm"
	"github.com/matheus3301/connect/internal/lock"
	"github.com/matheus3301/connect/internal/logging"
	"github.com/matheus3301/connect/internal/metrics"
	"github.com/matheus3301/connect/internal/outbox"
	"github.com/matheus3301/connect/internal/profile"
	"github.com/matheus3301/connect/internal/push"
	"github.com/matheus3301/connect/internal/repository"
	"github.com/matheus3301/connect/internal/scheduler"
	"github.com/matheus3301/connect/internal/status"
	"github.com/matheus3301/connect/internal/store"
	"github.com/matheus3301/connect/internal/worker"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// JobKind tags time-to-live jobs in the jobs table.
const JobKind = "ipm_ttl"

// userIDKey is the kv key of the generated device user id.
const userIDKey = "user_id"

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string // optional override for testing; empty = use default
	Config      *config.Config
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideBackend,
			provideExecutor,
			provideTracker,
			provideRepository,
			provideScheduler,
			provideEventClient,
			provideSender,
			provideRequests,
			provideIpmMetrics,
			provideTray,
			provideSystemProcessor,
			provideCoordinator,
			provideRouter,
			provideIpmService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		cfg := *p.Config
		cfg.ApplyDefaults()
		return &cfg, nil
	}
	return config.LoadWithEnv(profile.ConfigPath(), profile.EnvPath())
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName, cfg.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName), uuid.NewString())
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired", zap.String("instance", l.Info().InstanceID))
	return l, nil
}

// provideStore depends on the lock so the database is never opened by two daemons.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.AppDBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed() {
		logger.Info("migrations applied", zap.Uint("from", result.From), zap.Uint("to", result.To))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.To))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideBackend(cfg *config.Config, logger *zap.Logger) *backend.Client {
	return backend.New(backend.Options{
		BaseURL:  cfg.API.BaseURL,
		APIKey:   cfg.API.APIKey,
		Platform: cfg.API.Platform,
		Timeout:  cfg.API.Timeout.Duration,
	}, logger)
}

func provideExecutor(cfg *config.Config, logger *zap.Logger) *worker.Executor {
	return worker.NewExecutor(cfg.Worker.Workers, cfg.Worker.QueueSize, logger)
}

func provideTracker(cfg *config.Config, logger *zap.Logger) *foreground.Tracker {
	return foreground.NewTracker(cfg.IPM.ForegroundDelay.Duration, logger)
}

func provideRepository(db *store.DB, logger *zap.Logger) *repository.IpmRepository {
	return repository.New(db, logger)
}

func provideScheduler(db *store.DB, logger *zap.Logger) *scheduler.Scheduler {
	return scheduler.New(db, JobKind, logger)
}

func provideEventClient(db *store.DB, cfg *config.Config, logger *zap.Logger) (*outbox.Client, error) {
	userID, err := resolveUserID(db, cfg.API.UserID)
	if err != nil {
		return nil, err
	}
	logger.Info("tracking events", zap.String("user_id", userID))
	return outbox.NewClient(db, userID, logger), nil
}

// resolveUserID prefers the configured id, then a previously generated one,
// and otherwise generates and stores a new one.
func resolveUserID(db *store.DB, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	id, err := db.GetValue(userIDKey)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("read user id: %w", err)
	}
	id = uuid.NewString()
	if err := db.PutValue(userIDKey, id); err != nil {
		return "", fmt.Errorf("save user id: %w", err)
	}
	return id, nil
}

func provideSender(db *store.DB, client *backend.Client, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, client, b, outbox.Options{
		FlushInterval: cfg.Outbox.FlushInterval.Duration,
		BatchSize:     cfg.Outbox.BatchSize,
		MaxAttempts:   cfg.Outbox.MaxAttempts,
	}, logger)
}

func provideRequests(client *backend.Client, logger *zap.Logger) *metrics.RequestsProcessor {
	return metrics.NewRequestsProcessor(client, logger)
}

func provideIpmMetrics(requests *metrics.RequestsProcessor, events *outbox.Client, exec *worker.Executor, logger *zap.Logger) *metrics.IpmProcessor {
	return metrics.NewIpmProcessor(requests, events, exec, logger)
}

func provideTray(db *store.DB, b *bus.Bus, logger *zap.Logger) *push.Tray {
	return push.NewTray(db, b, logger)
}

func provideSystemProcessor(tray *push.Tray, requests *metrics.RequestsProcessor, exec *worker.Executor, logger *zap.Logger) *push.SystemProcessor {
	return push.NewSystemProcessor(tray, requests, exec, logger)
}

func provideCoordinator(
	cfg *config.Config,
	repo *repository.IpmRepository,
	tracker *foreground.Tracker,
	sched *scheduler.Scheduler,
	ipmMetrics *metrics.IpmProcessor,
	client *backend.Client,
	system *push.SystemProcessor,
	machine *status.Machine,
	b *bus.Bus,
	logger *zap.Logger,
) *ipm.Coordinator {
	c := ipm.NewCoordinator(ipm.Deps{
		Store:     repo,
		Tracker:   tracker,
		Scheduler: sched,
		Metrics:   ipmMetrics,
		Fetcher:   client,
		Fallback:  system,
		Machine:   machine,
		Bus:       b,
	}, logger, ipm.WithDisplayScreen(cfg.IPM.DisplayScreen))
	sched.SetHandler(c.OnTimeToLiveEnded)
	return c
}

func provideRouter(c *ipm.Coordinator, system *push.SystemProcessor, logger *zap.Logger) *push.Router {
	return push.NewRouter(c, system, logger)
}

func provideIpmService(
	p Params,
	router *push.Router,
	tracker *foreground.Tracker,
	c *ipm.Coordinator,
	machine *status.Machine,
	db *store.DB,
	tray *push.Tray,
	sched *scheduler.Scheduler,
	b *bus.Bus,
	logger *zap.Logger,
) *api.IpmService {
	return api.NewIpmService(api.ServiceDeps{
		Profile:     p.ProfileName,
		Router:      router,
		Lifecycle:   tracker,
		Coordinator: c,
		Machine:     machine,
		Records:     db,
		Tray:        tray,
		Jobs:        sched,
		Bus:         b,
	}, logger)
}

type lifecycleParams struct {
	fx.In

	Server      *Server
	Lock        *lock.Lock
	DB          *store.DB
	Executor    *worker.Executor
	Sender      *outbox.Sender
	Scheduler   *scheduler.Scheduler
	Coordinator *ipm.Coordinator
	Logger      *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, p lifecycleParams) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := p.Logger

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			p.Executor.Start(ctx)

			p.Coordinator.Restore()
			if err := p.Scheduler.Start(ctx); err != nil {
				return fmt.Errorf("restore jobs: %w", err)
			}

			go func() {
				if err := p.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			p.Sender.Start(ctx)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			p.Server.Stop(stopCtx)
			p.Scheduler.Stop()
			p.Sender.Stop()
			cancel()
			p.Executor.Stop()
			if err := p.DB.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := p.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
