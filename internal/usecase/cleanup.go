package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/semmidev/vaultkeep/internal/domain"
)

// DefaultOrphanGrace is how long a payload without a sidecar is left alone before it
// is considered leaked. It is measured from the payload's last write, so it only has
// to cover the sidecar write of an in-flight backup.
const DefaultOrphanGrace = time.Hour

// Cleanup enforces the per-type retention policy: at most maxBackups artifacts of each
// type survive, and none of those older than retentionDays.
type Cleanup struct {
	store         domain.ArtifactStore
	logger        Logger
	recorder      Recorder
	retentionDays int
	maxBackups    int
	orphanGrace   time.Duration
	now           func() time.Time
}

type CleanupReport struct {
	Examined      int
	Deleted       int
	Failed        int
	OrphansPruned int
}

func NewCleanup(
	store domain.ArtifactStore,
	logger Logger,
	recorder Recorder,
	retentionDays int,
	maxBackups int,
) *Cleanup {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Cleanup{
		store:         store,
		logger:        logger,
		recorder:      recorder,
		retentionDays: retentionDays,
		maxBackups:    maxBackups,
		orphanGrace:   DefaultOrphanGrace,
		now:           time.Now,
	}
}

// SetOrphanGrace overrides DefaultOrphanGrace. Non-positive values are ignored.
func (uc *Cleanup) SetOrphanGrace(d time.Duration) {
	if d > 0 {
		uc.orphanGrace = d
	}
}

// Execute adapts Run to the scheduler job signature.
func (uc *Cleanup) Execute(ctx context.Context) error {
	_, err := uc.Run(ctx)
	return err
}

func (uc *Cleanup) Run(ctx context.Context) (*CleanupReport, error) {
	page, err := uc.store.List(ctx, domain.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	report := &CleanupReport{Examined: page.Total}
	for _, entry := range uc.selectExpired(page.Items) {
		if err := uc.store.Delete(ctx, entry.Name); err != nil {
			report.Failed++
			uc.logger.Errorf("Failed to delete backup %s: %v", entry.Name, err)
			continue
		}
		report.Deleted++
		uc.logger.Infof("Deleted old backup: %s (type %s, created %s)",
			entry.Name, entry.Artifact.Type, entry.Artifact.Timestamp)
	}

	report.OrphansPruned = uc.pruneOrphans(ctx)
	uc.recorder.RetentionDeleted(report.Deleted + report.OrphansPruned)

	if report.Deleted > 0 || report.Failed > 0 || report.OrphansPruned > 0 {
		uc.logger.Infof("Cleanup completed: %d examined, %d deleted, %d failed, %d orphan(s) pruned",
			report.Examined, report.Deleted, report.Failed, report.OrphansPruned)
	}
	return report, nil
}

func (uc *Cleanup) selectExpired(entries []domain.Entry) []domain.Entry {
	groups := make(map[string][]domain.Entry)
	for _, e := range entries {
		groups[e.Artifact.Type] = append(groups[e.Artifact.Type], e)
	}

	types := make([]string, 0, len(groups))
	for t := range groups {
		types = append(types, t)
	}
	sort.Strings(types)

	now := uc.now()
	maxAge := time.Duration(uc.retentionDays) * 24 * time.Hour

	var expired []domain.Entry
	for _, t := range types {
		group := groups[t]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Artifact.CreatedAt().After(group[j].Artifact.CreatedAt())
		})

		for i, e := range group {
			if uc.maxBackups > 0 && i >= uc.maxBackups {
				expired = append(expired, e)
				continue
			}
			if uc.retentionDays <= 0 {
				continue
			}
			created := e.Artifact.CreatedAt()
			if created.IsZero() {
				uc.logger.Warnf("Could not parse timestamp of %s: %q", e.Name, e.Artifact.Timestamp)
				continue
			}
			if now.Sub(created) > maxAge {
				expired = append(expired, e)
			}
		}
	}
	return expired
}

func (uc *Cleanup) pruneOrphans(ctx context.Context) int {
	orphans, err := uc.store.Orphans(ctx)
	if err != nil {
		uc.logger.Errorf("Failed to scan for orphaned payloads: %v", err)
		return 0
	}

	pruned := 0
	for _, orphan := range orphans {
		name := orphan.Name
		created, err := extractTimestamp(name)
		if err != nil {
			uc.logger.Warnf("Orphaned payload with unrecognized name left in place: %s", name)
			continue
		}
		lastWrite := created
		if orphan.ModTime.After(lastWrite) {
			lastWrite = orphan.ModTime
		}
		if uc.now().Sub(lastWrite) < uc.orphanGrace {
			continue
		}

		uc.logger.Warnf("Removing leaked payload without metadata: %s", name)
		if err := uc.store.Delete(ctx, name); err != nil {
			uc.logger.Errorf("Failed to delete leaked payload %s: %v", name, err)
			continue
		}
		pruned++
	}
	return pruned
}
