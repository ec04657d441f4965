package usecase

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/semmidev/vaultkeep/internal/domain"
)

type PerformanceMetrics struct {
	BackupTime  time.Duration `json:"backupTime"`
	RestoreTime time.Duration `json:"restoreTime"`
}

type DrillResult struct {
	BackupCreation     bool               `json:"backupCreation"`
	BackupRestore      bool               `json:"backupRestore"`
	DataIntegrity      bool               `json:"dataIntegrity"`
	PerformanceMetrics PerformanceMetrics `json:"performanceMetrics"`
	Error              string             `json:"error,omitempty"`
}

func (r DrillResult) Passed() bool {
	return r.BackupCreation && r.BackupRestore && r.DataIntegrity && r.Error == ""
}

// Drill performs a create, restore and compare cycle against live data and removes
// its artifact afterwards. Failures are reported in the result, never returned.
type Drill struct {
	backup   *Backup
	restore  *Restore
	notifier domain.Notifier
	logger   Logger
	recorder Recorder
}

func NewDrill(backup *Backup, restore *Restore, notifier domain.Notifier, logger Logger, recorder Recorder) *Drill {
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Drill{
		backup:   backup,
		restore:  restore,
		notifier: notifier,
		logger:   logger,
		recorder: recorder,
	}
}

func (uc *Drill) Execute(ctx context.Context, provider domain.DataProvider) (result DrillResult) {
	uc.logger.Infof("Starting disaster recovery drill")

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Sprintf("drill panicked: %v", r)
		}
		uc.report(ctx, result)
	}()

	original, err := provider(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("fetch current data: %v", err)
		return result
	}

	start := time.Now()
	desc, err := uc.backup.Create(ctx, original, domain.BackupRequest{
		Type:        domain.TypeDRTest,
		Description: "Disaster recovery drill",
	})
	result.PerformanceMetrics.BackupTime = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.BackupCreation = true

	defer func() {
		if err := uc.backup.store.Delete(ctx, desc.BackupName); err != nil {
			uc.logger.Errorf("Failed to remove drill artifact %s: %v", desc.BackupName, err)
		}
	}()

	start = time.Now()
	restored, err := uc.restore.Execute(ctx, desc.BackupID, RestoreOptions{})
	result.PerformanceMetrics.RestoreTime = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.BackupRestore = true

	want, err := canonicalJSON(original)
	if err != nil {
		result.Error = fmt.Sprintf("serialize original data: %v", err)
		return result
	}
	got, err := canonicalJSON(restored.Data)
	if err != nil {
		result.Error = fmt.Sprintf("serialize restored data: %v", err)
		return result
	}
	result.DataIntegrity = bytes.Equal(want, got)

	return result
}

func (uc *Drill) report(ctx context.Context, result DrillResult) {
	uc.recorder.DrillFinished(result.Passed(), time.Now())

	status := "PASSED"
	if !result.Passed() {
		status = "FAILED"
	}
	message := fmt.Sprintf("DR drill %s\nbackup: %t (%s)\nrestore: %t (%s)\nintegrity: %t",
		status,
		result.BackupCreation, result.PerformanceMetrics.BackupTime.Round(time.Millisecond),
		result.BackupRestore, result.PerformanceMetrics.RestoreTime.Round(time.Millisecond),
		result.DataIntegrity)
	if result.Error != "" {
		message += "\nerror: " + result.Error
		uc.logger.Errorf("Disaster recovery drill failed: %s", result.Error)
	} else {
		uc.logger.Infof("Disaster recovery drill %s", status)
	}

	if err := uc.notifier.Notify(ctx, message); err != nil {
		uc.logger.Warnf("Failed to send drill notification: %v", err)
	}
}
