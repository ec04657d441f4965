package app

import (
	"context"
	"fmt"
	"time"

	"github.com/semmidev/vaultkeep/internal/adapter/compressor"
	"github.com/semmidev/vaultkeep/internal/adapter/encryptor"
	"github.com/semmidev/vaultkeep/internal/adapter/notifier"
	"github.com/semmidev/vaultkeep/internal/adapter/provider"
	"github.com/semmidev/vaultkeep/internal/adapter/storage"
	"github.com/semmidev/vaultkeep/internal/config"
	"github.com/semmidev/vaultkeep/internal/domain"
	"github.com/semmidev/vaultkeep/internal/infrastructure/logger"
	"github.com/semmidev/vaultkeep/internal/infrastructure/metrics"
	"github.com/semmidev/vaultkeep/internal/infrastructure/scheduler"
	"github.com/semmidev/vaultkeep/internal/usecase"
)

const metricsFlushSchedule = "@every 1m"

// applier is implemented by sources that can take restored data back.
type applier interface {
	Apply(ctx context.Context, data any) error
}

type App struct {
	config    *config.Config
	logger    *logger.Logger
	metrics   *metrics.Metrics
	scheduler *scheduler.Scheduler
	source    domain.Source

	backupUC  *usecase.Backup
	restoreUC *usecase.Restore
	verifyUC  *usecase.Verify
	drillUC   *usecase.Drill
	cleanupUC *usecase.Cleanup
	schedules *usecase.Schedules
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(logger.Options{Level: cfg.App.LogLevel, File: cfg.App.LogFile})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return newWithLogger(cfg, log)
}

func newWithLogger(cfg *config.Config, log *logger.Logger) (*App, error) {
	localStorage, err := storage.NewLocal(cfg.Backup.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}

	comp, err := compressor.NewGzip(cfg.Backup.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize compressor: %w", err)
	}

	var cipher domain.Cipher
	if cfg.EncryptionEnabled() {
		aes, err := encryptor.NewAESGCM(cfg.Backup.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize encryption: %w", err)
		}
		cipher = aes
		log.Infof("✓ Backup encryption enabled")
	} else {
		log.Warnf("Backup encryption disabled: no encryption key configured")
	}

	var notify domain.Notifier = domain.NopNotifier{}
	if t := cfg.Notify.Telegram; t.Enabled {
		tg, err := notifier.NewTelegram(t.BotToken, t.ChatID, cfg.App.Name)
		if err != nil {
			log.Errorf("Failed to initialize Telegram: %v", err)
		} else {
			notify = tg
			log.Infof("✓ Telegram notifications enabled")
		}
	}

	source, err := provider.New(&cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize source: %w", err)
	}

	m := metrics.New()
	cleanupUC := usecase.NewCleanup(localStorage, log.Named("cleanup"), m, cfg.Backup.RetentionDays, cfg.Backup.MaxBackups)
	cleanupUC.SetOrphanGrace(cfg.Backup.OrphanGrace)
	backupUC := usecase.NewBackup(localStorage, comp, cipher, cleanupUC, log.Named("backup"), m, cfg.App.Version)
	restoreUC := usecase.NewRestore(localStorage, comp, cipher, backupUC, log.Named("restore"), m)
	sched := scheduler.New(log.Named("scheduler"))

	return &App{
		config:    cfg,
		logger:    log,
		metrics:   m,
		scheduler: sched,
		source:    source,
		backupUC:  backupUC,
		restoreUC: restoreUC,
		verifyUC:  usecase.NewVerify(restoreUC),
		drillUC:   usecase.NewDrill(backupUC, restoreUC, notify, log.Named("drill"), m),
		cleanupUC: cleanupUC,
		schedules: usecase.NewSchedules(sched, backupUC, notify, log.Named("schedules")),
	}, nil
}

func (a *App) Backup(ctx context.Context, description string) (*domain.Descriptor, error) {
	defer a.flushMetrics()

	data, err := a.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", a.source.GetName(), err)
	}
	return a.backupUC.Create(ctx, data, domain.BackupRequest{
		Type:        domain.TypeManual,
		Description: description,
	})
}

func (a *App) List(ctx context.Context, filter domain.Filter) (*domain.Page, error) {
	return a.backupUC.List(ctx, filter)
}

// Restore decodes the backup and writes its data to out, or back into the source
// when out is empty. The current source data is saved first as a safety backup.
func (a *App) Restore(ctx context.Context, id, out string, confirm func(domain.Artifact) bool) (*usecase.RestoreResult, error) {
	defer a.flushMetrics()

	opts := usecase.RestoreOptions{ConfirmRestore: confirm}

	target, canApply := a.source.(applier)
	if out == "" {
		if !canApply {
			return nil, domain.NewConfigurationError(
				fmt.Sprintf("%s source cannot be restored in place, use --out", a.source.GetType()), nil)
		}
		current, err := a.source.Fetch(ctx)
		if err != nil {
			a.logger.Warnf("No safety backup: could not read current data: %v", err)
		} else {
			opts.CreateSafetyBackup = true
			opts.CurrentData = current
		}
	}

	result, err := a.restoreUC.Execute(ctx, id, opts)
	if err != nil {
		return nil, err
	}

	if out != "" {
		err = provider.WriteJSON(out, result.Data)
	} else {
		err = target.Apply(ctx, result.Data)
	}
	if err != nil {
		return nil, fmt.Errorf("apply restored data: %w", err)
	}
	return result, nil
}

func (a *App) Verify(ctx context.Context, id string) usecase.VerifyResult {
	defer a.flushMetrics()
	return a.verifyUC.Execute(ctx, id)
}

func (a *App) Drill(ctx context.Context) usecase.DrillResult {
	defer a.flushMetrics()
	return a.drillUC.Execute(ctx, a.source.Fetch)
}

func (a *App) Cleanup(ctx context.Context) (*usecase.CleanupReport, error) {
	defer a.flushMetrics()
	return a.cleanupUC.Run(ctx)
}

// Run starts the scheduled jobs and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s %s", a.config.App.Name, a.config.App.Version)

	if err := a.source.Ping(ctx); err != nil {
		a.logger.Warnf("Source %s is not reachable yet: %v", a.source.GetName(), err)
	} else {
		a.logger.Infof("✓ Source %s (%s) reachable", a.source.GetName(), a.source.GetType())
	}

	if a.config.Backup.DefaultSchedules {
		if err := a.schedules.SetupDefaultSchedules(a.source.Fetch); err != nil {
			return fmt.Errorf("failed to schedule backups: %w", err)
		}
	}

	a.logger.Infof("Scheduling cleanup: %s", a.config.Backup.CleanupSchedule)
	if err := a.scheduler.AddJob("cleanup", a.config.Backup.CleanupSchedule, a.cleanupUC.Execute); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	if a.config.Metrics.Textfile != "" {
		if err := a.scheduler.AddJob("metrics", metricsFlushSchedule, func(context.Context) error {
			return a.metrics.WriteTextfile(a.config.Metrics.Textfile)
		}); err != nil {
			return fmt.Errorf("failed to schedule metrics flush: %w", err)
		}
	}

	a.scheduler.Start()
	a.logger.Infof("Scheduler started with %d backup job(s)", len(a.schedules.Jobs()))

	<-ctx.Done()
	return nil
}

func (a *App) Schedules() *usecase.Schedules {
	return a.schedules
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	a.schedules.StopAllJobs()
	a.scheduler.RemoveAll()

	done := make(chan struct{})
	go func() {
		a.scheduler.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		a.logger.Warnf("Timed out waiting for running jobs")
	}

	a.flushMetrics()
	a.logger.Close()
}

func (a *App) flushMetrics() {
	if a.config.Metrics.Textfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.config.Metrics.Textfile); err != nil {
		a.logger.Warnf("Failed to write metrics: %v", err)
	}
}
