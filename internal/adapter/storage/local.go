package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/semmidev/vaultkeep/internal/domain"
)

const (
	PayloadExt = ".backup.gz"
	SidecarExt = ".meta.json"
	tmpSuffix  = ".tmp"
)

// LocalStorage keeps artifacts as <name>.backup.gz payloads next to <name>.meta.json
// sidecars in a single directory. Sidecars are authoritative; a payload without one is
// an orphan.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, domain.NewIOError("failed to create backup directory", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (l *LocalStorage) GetPath(filename string) string {
	return filepath.Join(l.basePath, filename)
}

// Write streams the payload to disk, then the sidecar. Both go through a temporary
// file and a rename so readers never observe a partially written file.
func (l *LocalStorage) Write(ctx context.Context, name string, payload io.Reader, artifact domain.Artifact) (string, error) {
	payloadPath := l.GetPath(name + PayloadExt)
	if err := writeAtomic(payloadPath, payload); err != nil {
		return "", domain.NewIOError("failed to write payload", err)
	}

	meta, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", domain.NewIOError("failed to encode metadata", err)
	}
	if err := writeAtomic(l.GetPath(name+SidecarExt), bytes.NewReader(meta)); err != nil {
		return "", domain.NewIOError("failed to write metadata", err)
	}

	return payloadPath, nil
}

func writeAtomic(path string, src io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*"+tmpSuffix)
	if err != nil {
		return fmt.Errorf("failed to create dest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to copy: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}

func (l *LocalStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(l.GetPath(name + PayloadExt))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewNotFoundError(fmt.Sprintf("payload for %s is missing", name), err)
		}
		return nil, domain.NewIOError("failed to open payload", err)
	}
	return f, nil
}

// List returns sidecars matching filter, newest first.
func (l *LocalStorage) List(ctx context.Context, filter domain.Filter) (*domain.Page, error) {
	entries, err := l.readSidecars(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if filter.Type != "" && e.Artifact.Type != filter.Type {
			continue
		}
		created := e.Artifact.CreatedAt()
		if !filter.CreatedAfter.IsZero() && !created.After(filter.CreatedAfter) {
			continue
		}
		if !filter.CreatedBefore.IsZero() && !created.Before(filter.CreatedBefore) {
			continue
		}
		matched = append(matched, e)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Artifact.CreatedAt().After(matched[j].Artifact.CreatedAt())
	})

	page := &domain.Page{Total: len(matched)}
	start := filter.Offset
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	page.Items = matched[start:end]
	return page, nil
}

// Find resolves an id to the single artifact whose sidecar carries exactly that id.
func (l *LocalStorage) Find(ctx context.Context, id string) (string, domain.Artifact, error) {
	if id == "" {
		return "", domain.Artifact{}, domain.NewNotFoundError("backup id is empty", nil)
	}

	entries, err := l.readSidecars(ctx)
	if err != nil {
		return "", domain.Artifact{}, err
	}

	index := make(map[string][]domain.Entry, len(entries))
	for _, e := range entries {
		index[e.Artifact.ID] = append(index[e.Artifact.ID], e)
	}

	switch hits := index[id]; len(hits) {
	case 0:
		return "", domain.Artifact{}, domain.NewNotFoundError(fmt.Sprintf("backup %s not found", id), nil)
	case 1:
		return hits[0].Name, hits[0].Artifact, nil
	default:
		return "", domain.Artifact{}, domain.NewNotFoundError(fmt.Sprintf("backup id %s is ambiguous (%d artifacts)", id, len(hits)), nil)
	}
}

// Delete removes the payload and sidecar. Files that are already gone are not an error.
func (l *LocalStorage) Delete(ctx context.Context, name string) error {
	var errs []error
	for _, ext := range []string{PayloadExt, SidecarExt} {
		if err := os.Remove(l.GetPath(name + ext)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return domain.NewIOError("failed to delete file", errors.Join(errs...))
	}
	return nil
}

// Orphans lists payloads that have no sidecar, sorted by name.
func (l *LocalStorage) Orphans(ctx context.Context) ([]domain.Orphan, error) {
	dirEntries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, domain.NewIOError("failed to read directory", err)
	}

	sidecars := make(map[string]bool)
	var payloads []fs.DirEntry
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		switch name := entry.Name(); {
		case strings.HasSuffix(name, SidecarExt):
			sidecars[strings.TrimSuffix(name, SidecarExt)] = true
		case strings.HasSuffix(name, PayloadExt):
			payloads = append(payloads, entry)
		}
	}

	var orphans []domain.Orphan
	for _, entry := range payloads {
		name := strings.TrimSuffix(entry.Name(), PayloadExt)
		if sidecars[name] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, domain.NewIOError(fmt.Sprintf("failed to stat %s", entry.Name()), err)
		}
		orphans = append(orphans, domain.Orphan{Name: name, ModTime: info.ModTime()})
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].Name < orphans[j].Name })
	return orphans, nil
}

func (l *LocalStorage) readSidecars(ctx context.Context) ([]domain.Entry, error) {
	dirEntries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, domain.NewIOError("failed to read directory", err)
	}

	var out []domain.Entry
	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewIOError("listing interrupted", err)
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, SidecarExt) {
			continue
		}

		raw, err := os.ReadFile(l.GetPath(name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// deleted by a concurrent cleanup
				continue
			}
			return nil, domain.NewIOError(fmt.Sprintf("failed to read %s", name), err)
		}

		var artifact domain.Artifact
		if err := json.Unmarshal(raw, &artifact); err != nil || artifact.ID == "" {
			// unreadable sidecars are treated like a missing one
			continue
		}
		out = append(out, domain.Entry{Name: strings.TrimSuffix(name, SidecarExt), Artifact: artifact})
	}
	return out, nil
}
