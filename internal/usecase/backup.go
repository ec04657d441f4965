package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/semmidev/vaultkeep/internal/domain"
)

// Backup serializes a payload, optionally encrypts it, compresses it and persists it
// with a metadata sidecar, then applies retention.
type Backup struct {
	store      domain.ArtifactStore
	compressor domain.Compressor
	cipher     domain.Cipher
	cleanup    *Cleanup
	logger     Logger
	recorder   Recorder
	version    string
	now        func() time.Time
}

// document is the serialized form inside every artifact.
type document struct {
	Metadata documentMeta `json:"metadata"`
	Data     any          `json:"data"`
}

type documentMeta struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// NewBackup wires the writer. cipher may be nil for unencrypted artifacts and cleanup
// may be nil to skip retention.
func NewBackup(
	store domain.ArtifactStore,
	compressor domain.Compressor,
	cipher domain.Cipher,
	cleanup *Cleanup,
	logger Logger,
	recorder Recorder,
	version string,
) *Backup {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Backup{
		store:      store,
		compressor: compressor,
		cipher:     cipher,
		cleanup:    cleanup,
		logger:     logger,
		recorder:   recorder,
		version:    version,
		now:        time.Now,
	}
}

func (uc *Backup) Encrypted() bool {
	return uc.cipher != nil
}

func (uc *Backup) Create(ctx context.Context, payload any, req domain.BackupRequest) (*domain.Descriptor, error) {
	if req.Type == "" {
		req.Type = domain.TypeManual
	}
	if req.Version == "" {
		req.Version = uc.version
	}

	start := time.Now()
	desc, err := uc.create(ctx, payload, req)
	uc.recorder.BackupFinished(req.Type, time.Since(start), err)
	if err != nil {
		uc.logger.Errorf("[%s] Backup failed: %v", req.Type, err)
		return nil, domain.NewBackupError("create backup", err)
	}

	uc.logger.Infof("[%s] Backup %s completed in %s (%d bytes)",
		req.Type, desc.BackupID, time.Since(start).Round(time.Millisecond), desc.Metadata.DataSize)

	if uc.cleanup != nil {
		if _, err := uc.cleanup.Run(ctx); err != nil {
			uc.logger.Warnf("Retention cleanup after backup %s failed: %v", desc.BackupID, err)
		}
	}

	return desc, nil
}

func (uc *Backup) create(ctx context.Context, payload any, req domain.BackupRequest) (*domain.Descriptor, error) {
	id := uuid.NewString()
	timestamp := uc.now().UTC().Format(domain.TimestampLayout)
	name := ArtifactName(timestamp, id)

	body, err := json.MarshalIndent(document{
		Metadata: documentMeta{
			ID:          id,
			Timestamp:   timestamp,
			Type:        req.Type,
			Description: req.Description,
			Version:     req.Version,
		},
		Data: payload,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize payload: %w", err)
	}

	artifact := domain.Artifact{
		ID:          id,
		Timestamp:   timestamp,
		Type:        req.Type,
		Description: req.Description,
		DataSize:    int64(len(body)),
		Compressed:  true,
		Encrypted:   uc.cipher != nil,
		Version:     req.Version,
	}

	if uc.cipher != nil {
		if body, err = uc.cipher.Encrypt(body); err != nil {
			return nil, fmt.Errorf("encrypt: %w", err)
		}
	}

	path, err := uc.persist(ctx, name, body, artifact)
	if err != nil {
		return nil, err
	}

	return &domain.Descriptor{
		BackupID:   id,
		BackupName: name,
		Path:       path,
		Metadata:   artifact,
	}, nil
}

// persist pipes the compressor output straight into the store so the compressed
// form is never held in memory.
func (uc *Backup) persist(ctx context.Context, name string, body []byte, artifact domain.Artifact) (string, error) {
	pr, pw := io.Pipe()
	var path string

	var g errgroup.Group
	g.Go(func() error {
		err := uc.compressor.Compress(pw, bytes.NewReader(body))
		pw.CloseWithError(err)
		if err != nil {
			return fmt.Errorf("compress: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		p, err := uc.store.Write(ctx, name, pr, artifact)
		pr.CloseWithError(err)
		if err != nil {
			return fmt.Errorf("persist: %w", err)
		}
		path = p
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	return path, nil
}

func (uc *Backup) List(ctx context.Context, filter domain.Filter) (*domain.Page, error) {
	return uc.store.List(ctx, filter)
}

// Delete removes the artifact with the given id.
func (uc *Backup) Delete(ctx context.Context, id string) error {
	name, _, err := uc.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.store.Delete(ctx, name); err != nil {
		return err
	}
	uc.logger.Infof("Deleted backup %s", id)
	return nil
}
