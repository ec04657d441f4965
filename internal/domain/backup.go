package domain

import (
	"context"
	"time"
)

const (
	TypeManual           = "manual"
	TypeScheduled        = "scheduled"
	TypeDRTest           = "dr-test"
	TypePreRestoreSafety = "pre-restore-safety"
)

// TimestampLayout is the ISO-8601 form stored in sidecars and embedded in artifact names.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Artifact is the content of a metadata sidecar.
type Artifact struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	Type        string `json:"type"`
	Description string `json:"description"`
	DataSize    int64  `json:"dataSize"`
	Compressed  bool   `json:"compressed"`
	Encrypted   bool   `json:"encrypted"`
	Version     string `json:"version"`
}

// CreatedAt parses Timestamp. A zero time is returned for malformed values.
func (a Artifact) CreatedAt() time.Time {
	t, err := time.Parse(TimestampLayout, a.Timestamp)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, a.Timestamp)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}

type BackupRequest struct {
	Type        string
	Description string
	Version     string
}

type Descriptor struct {
	BackupID   string   `json:"backupId"`
	BackupName string   `json:"backupName"`
	Path       string   `json:"path"`
	Metadata   Artifact `json:"metadata"`
}

// DataProvider returns a JSON-serializable snapshot of the state to back up.
type DataProvider func(ctx context.Context) (any, error)

type BackupJob struct {
	Name           string
	CronExpression string
	Provider       DataProvider
	Metadata       BackupRequest
}
