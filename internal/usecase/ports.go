package usecase

import "time"

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Recorder receives operation outcomes for metrics.
type Recorder interface {
	BackupFinished(artifactType string, d time.Duration, err error)
	RestoreFinished(outcome string)
	RetentionDeleted(n int)
	DrillFinished(ok bool, at time.Time)
}

type NopRecorder struct{}

func (NopRecorder) BackupFinished(string, time.Duration, error) {}
func (NopRecorder) RestoreFinished(string)                      {}
func (NopRecorder) RetentionDeleted(int)                        {}
func (NopRecorder) DrillFinished(bool, time.Time)               {}
