package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/semmidev/vaultkeep/internal/config"
	"github.com/semmidev/vaultkeep/internal/domain"
)

// FileSource serves a JSON document kept on disk.
type FileSource struct {
	config *config.SourceConfig
}

func NewFile(cfg *config.SourceConfig) *FileSource {
	return &FileSource{config: cfg}
}

func (f *FileSource) Fetch(ctx context.Context) (any, error) {
	raw, err := os.ReadFile(f.config.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewNotFoundError(fmt.Sprintf("source file %s does not exist", f.config.Path), err)
		}
		return nil, domain.NewIOError("failed to read source file", err)
	}

	data, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("source file %s is not valid JSON: %w", f.config.Path, err)
	}
	return data, nil
}

// Apply replaces the document with data, going through a temporary file so a
// crash never leaves it half written.
func (f *FileSource) Apply(ctx context.Context, data any) error {
	return WriteJSON(f.config.Path, data)
}

func (f *FileSource) GetName() string {
	return f.config.Name
}

func (f *FileSource) GetType() string {
	return config.SourceFile
}

func (f *FileSource) Ping(ctx context.Context) error {
	info, err := os.Stat(f.config.Path)
	if err != nil {
		return fmt.Errorf("source file check failed: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source path %s is a directory", f.config.Path)
	}
	return nil
}

// WriteJSON writes data as indented JSON to path atomically.
func WriteJSON(path string, data any) error {
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return domain.NewIOError("failed to create output directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return domain.NewIOError("failed to create output file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return domain.NewIOError("failed to write output file", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.NewIOError("failed to close output file", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return domain.NewIOError("failed to replace output file", err)
	}
	return nil
}
