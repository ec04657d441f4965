package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/goccy/go-json"

	"github.com/semmidev/vaultkeep/internal/domain"
	"github.com/semmidev/vaultkeep/internal/infrastructure/gate"
)

type RestoreOptions struct {
	// ConfirmRestore sees the artifact metadata after the payload decoded cleanly.
	// Returning false aborts with ErrRestoreCancelled.
	ConfirmRestore     func(domain.Artifact) bool
	CreateSafetyBackup bool
	CurrentData        any
}

type RestoreResult struct {
	Data         any
	Metadata     domain.Artifact
	SafetyBackup *domain.Descriptor
}

// Restore decodes artifacts back into their payload. At most one restore runs at a
// time; a concurrent call fails immediately instead of queueing.
type Restore struct {
	store      domain.ArtifactStore
	compressor domain.Compressor
	cipher     domain.Cipher
	backup     *Backup
	gate       *gate.Gate
	logger     Logger
	recorder   Recorder
}

func NewRestore(
	store domain.ArtifactStore,
	compressor domain.Compressor,
	cipher domain.Cipher,
	backup *Backup,
	logger Logger,
	recorder Recorder,
) *Restore {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Restore{
		store:      store,
		compressor: compressor,
		cipher:     cipher,
		backup:     backup,
		gate:       gate.New(),
		logger:     logger,
		recorder:   recorder,
	}
}

func (uc *Restore) InProgress() bool {
	return uc.gate.Busy()
}

func (uc *Restore) Execute(ctx context.Context, id string, opts RestoreOptions) (*RestoreResult, error) {
	if !uc.gate.TryEnter() {
		uc.recorder.RestoreFinished("conflict")
		return nil, domain.NewConflictError("restore "+id, domain.ErrRestoreInProgress)
	}
	defer uc.gate.Leave()

	start := time.Now()
	result, err := uc.restore(ctx, id, opts)
	uc.recorder.RestoreFinished(restoreOutcome(err))
	if err != nil {
		if errors.Is(err, domain.ErrRestoreCancelled) {
			uc.logger.Infof("Restore of %s cancelled before applying data", id)
		} else {
			uc.logger.Errorf("Restore of %s failed: %v", id, err)
		}
		return nil, err
	}

	uc.logger.Infof("Restored backup %s (%s) in %s", id, result.Metadata.Type, time.Since(start).Round(time.Millisecond))
	return result, nil
}

func (uc *Restore) restore(ctx context.Context, id string, opts RestoreOptions) (*RestoreResult, error) {
	name, artifact, err := uc.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	body, err := uc.readPayload(ctx, name)
	if err != nil {
		return nil, err
	}

	if artifact.Encrypted {
		if uc.cipher == nil {
			return nil, domain.NewConfigurationError(fmt.Sprintf("backup %s is encrypted but no encryption key is configured", id), nil)
		}
		if body, err = uc.cipher.Decrypt(body); err != nil {
			return nil, err
		}
	}

	doc, err := decodeDocument(body)
	if err != nil {
		return nil, domain.NewIntegrityError(fmt.Sprintf("backup %s does not contain a valid document", id), err)
	}

	if opts.ConfirmRestore != nil && !opts.ConfirmRestore(artifact) {
		return nil, domain.NewConflictError("restore "+id, domain.ErrRestoreCancelled)
	}

	result := &RestoreResult{Data: doc.Data, Metadata: artifact}

	if opts.CreateSafetyBackup && opts.CurrentData != nil {
		safety, err := uc.backup.Create(ctx, opts.CurrentData, domain.BackupRequest{
			Type:        domain.TypePreRestoreSafety,
			Description: fmt.Sprintf("Safety backup before restoring %s", id),
		})
		if err != nil {
			return nil, fmt.Errorf("safety backup before restore: %w", err)
		}
		uc.logger.Infof("Created safety backup %s before restoring %s", safety.BackupID, id)
		result.SafetyBackup = safety
	}

	return result, nil
}

// readPayload decompresses the stored payload. A stream that fails to decode is
// corrupt; only failures reading the file itself are IO errors.
func (uc *Restore) readPayload(ctx context.Context, name string) ([]byte, error) {
	rc, err := uc.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if err := uc.compressor.Decompress(&buf, rc); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, err
		}
		return nil, domain.NewIntegrityError(fmt.Sprintf("payload %s is corrupt", name), err)
	}
	return buf.Bytes(), nil
}

type storedDocument struct {
	Metadata json.RawMessage `json:"metadata"`
	Data     any             `json:"data"`
}

// decodeDocument keeps numbers as json.Number so integers beyond 2^53 come back intact.
func decodeDocument(body []byte) (*storedDocument, error) {
	if !json.Valid(body) {
		return nil, errors.New("malformed JSON")
	}
	var doc storedDocument
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func restoreOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrRestoreCancelled):
		return "cancelled"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrIntegrity):
		return "integrity"
	}
	return "failure"
}
