package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/semmidev/vaultkeep/internal/domain"
)

// JobScheduler is the part of the cron scheduler Schedules relies on.
type JobScheduler interface {
	AddJob(name, spec string, job func(context.Context) error) error
	Remove(name string) bool
}

// jobPrefix keeps backup jobs apart from other entries sharing the scheduler,
// such as the cleanup job.
const jobPrefix = "backup:"

var defaultSchedules = []struct {
	name string
	spec string
	desc string
}{
	{"daily", "0 2 * * *", "Daily automated backup"},
	{"weekly", "0 3 * * 0", "Weekly automated backup"},
	{"monthly", "0 4 1 * *", "Monthly automated backup"},
}

// Schedules keeps the registry of named backup jobs.
type Schedules struct {
	scheduler JobScheduler
	backup    *Backup
	notifier  domain.Notifier
	logger    Logger

	mu   sync.Mutex
	jobs map[string]domain.BackupJob
}

func NewSchedules(scheduler JobScheduler, backup *Backup, notifier domain.Notifier, logger Logger) *Schedules {
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	return &Schedules{
		scheduler: scheduler,
		backup:    backup,
		notifier:  notifier,
		logger:    logger,
		jobs:      make(map[string]domain.BackupJob),
	}
}

// ScheduleBackup registers a job under name, replacing any job already using it.
// A non-empty metadata.Type overrides the scheduled type.
func (s *Schedules) ScheduleBackup(name, cronExpr string, provider domain.DataProvider, metadata domain.BackupRequest) error {
	if provider == nil {
		return domain.NewConfigurationError(fmt.Sprintf("job %s has no data provider", name), nil)
	}

	req := metadata
	if req.Type == "" {
		req.Type = domain.TypeScheduled
	}

	run := func(ctx context.Context) error {
		return s.trigger(ctx, name, provider, req)
	}
	if err := s.scheduler.AddJob(jobPrefix+name, cronExpr, run); err != nil {
		return domain.NewConfigurationError(fmt.Sprintf("schedule %s", name), err)
	}

	s.mu.Lock()
	s.jobs[name] = domain.BackupJob{
		Name:           name,
		CronExpression: cronExpr,
		Provider:       provider,
		Metadata:       req,
	}
	s.mu.Unlock()

	s.logger.Infof("Scheduled backup job %s (%s)", name, cronExpr)
	return nil
}

func (s *Schedules) SetupDefaultSchedules(provider domain.DataProvider) error {
	for _, d := range defaultSchedules {
		err := s.ScheduleBackup(d.name, d.spec, provider, domain.BackupRequest{
			Type:        domain.TypeScheduled,
			Description: d.desc,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Schedules) StopAllJobs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name := range s.jobs {
		s.scheduler.Remove(jobPrefix + name)
		delete(s.jobs, name)
	}
	s.logger.Infof("All scheduled backup jobs stopped")
}

// Jobs returns the registered jobs sorted by name.
func (s *Schedules) Jobs() []domain.BackupJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]domain.BackupJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

func (s *Schedules) trigger(ctx context.Context, name string, provider domain.DataProvider, req domain.BackupRequest) error {
	s.logger.Infof("Running scheduled backup %s", name)

	err := s.run(ctx, provider, req)
	if err == nil {
		return nil
	}

	if nerr := s.notifier.Notify(ctx, fmt.Sprintf("Scheduled backup %s failed: %v", name, err)); nerr != nil {
		s.logger.Warnf("Failed to send failure notification for %s: %v", name, nerr)
	}
	return err
}

func (s *Schedules) run(ctx context.Context, provider domain.DataProvider, req domain.BackupRequest) error {
	data, err := provider(ctx)
	if err != nil {
		return fmt.Errorf("fetch data: %w", err)
	}
	_, err = s.backup.Create(ctx, data, req)
	return err
}
