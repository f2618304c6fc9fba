package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/internal/testutil"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) handle(_ context.Context, path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.ch <- path
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

func startWatcher(t *testing.T, cfg Config, rec *recorder) {
	t.Helper()
	cfg.Logger = testutil.NewTestLogger(t)
	w := New(cfg, rec.handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	// give fsnotify time to register
	time.Sleep(50 * time.Millisecond)
}

func waitFor(t *testing.T, rec *recorder) string {
	t.Helper()
	select {
	case p := <-rec.ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
		return ""
	}
}

func TestWatcher_FileDebounced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("id\n1\n"), 0o600))

	rec := newRecorder()
	startWatcher(t, Config{Paths: []string{path}, Debounce: 100 * time.Millisecond}, rec)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("id\n1\n2\n"), 0o600))
	}
	// unrelated sibling file is ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x\n"), 0o600))

	got := waitFor(t, rec)
	assert.Equal(t, path, got)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "burst of writes is one call")
}

func TestWatcher_DirectoryExtensions(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	startWatcher(t, Config{Paths: []string{dir}, Extensions: []string{".csv"}, Debounce: 20 * time.Millisecond}, rec)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	csvPath := filepath.Join(dir, "orders.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("id\n1\n"), 0o600))

	assert.Equal(t, csvPath, waitFor(t, rec))
}

func TestWatcher_MissingPath(t *testing.T) {
	w := New(Config{Paths: []string{filepath.Join(t.TempDir(), "missing.csv")}}, func(context.Context, string) {})
	err := w.Run(context.Background())
	assert.ErrorContains(t, err, "failed to watch")
}

func TestWatcher_Accepts(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{Paths: []string{dir}, Extensions: []string{".CSV"}}, nil)

	assert.True(t, w.accepts(filepath.Join(dir, "a.csv")))
	assert.True(t, w.accepts(filepath.Join(dir, "sub", "b.csv")))
	assert.False(t, w.accepts(filepath.Join(dir, "a.parquet")))
	assert.False(t, w.accepts(filepath.Join(filepath.Dir(dir), "elsewhere.csv")))
}
