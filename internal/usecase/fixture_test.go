package usecase

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/semmidev/vaultkeep/internal/adapter/compressor"
	"github.com/semmidev/vaultkeep/internal/adapter/encryptor"
	"github.com/semmidev/vaultkeep/internal/adapter/storage"
	"github.com/semmidev/vaultkeep/internal/domain"
)

type fixture struct {
	dir        string
	store      *storage.LocalStorage
	compressor *compressor.GzipCompressor
	cipher     domain.Cipher
	cleanup    *Cleanup
	backup     *Backup
	restore    *Restore
}

type fixtureOptions struct {
	passphrase    string
	level         int
	retentionDays int
	maxBackups    int
	noCleanup     bool
}

func newFixture(opts fixtureOptions) *fixture {
	dir, err := os.MkdirTemp("", "usecase_test")
	if err != nil {
		panic(err)
	}
	store, err := storage.NewLocal(dir)
	if err != nil {
		panic(err)
	}
	gz, err := compressor.NewGzip(opts.level)
	if err != nil {
		panic(err)
	}

	f := &fixture{dir: dir, store: store, compressor: gz}
	if opts.passphrase != "" {
		c, err := encryptor.NewAESGCM(opts.passphrase)
		if err != nil {
			panic(err)
		}
		f.cipher = c
	}

	logger := zap.NewNop().Sugar()
	f.cleanup = NewCleanup(store, logger, nil, opts.retentionDays, opts.maxBackups)
	cleanup := f.cleanup
	if opts.noCleanup {
		cleanup = nil
	}
	f.backup = NewBackup(store, gz, f.cipher, cleanup, logger, nil, "1.0.0")
	f.restore = NewRestore(store, gz, f.cipher, f.backup, logger, nil)
	return f
}

func (f *fixture) Close() {
	os.RemoveAll(f.dir)
}

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(step)
		return t
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type recordingRecorder struct {
	NopRecorder
	mu       sync.Mutex
	restores []string
	drills   []bool
	deleted  int
}

func (r *recordingRecorder) RestoreFinished(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restores = append(r.restores, outcome)
}

func (r *recordingRecorder) RetentionDeleted(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted += n
}

func (r *recordingRecorder) DrillFinished(ok bool, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drills = append(r.drills, ok)
}

func samplePayload() map[string]any {
	return map[string]any{
		"users": []any{
			map[string]any{"id": 1, "name": "alice"},
			map[string]any{"id": 2, "name": "bob"},
		},
		"settings": map[string]any{"theme": "dark", "ratio": 0.5},
	}
}

// decoded is samplePayload after a JSON round trip.
func decoded() map[string]any {
	return map[string]any{
		"users": []any{
			map[string]any{"id": json.Number("1"), "name": "alice"},
			map[string]any{"id": json.Number("2"), "name": "bob"},
		},
		"settings": map[string]any{"theme": "dark", "ratio": json.Number("0.5")},
	}
}
