package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource_ReadRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "MY_DATA.HTM")
	require.NoError(t, os.WriteFile(path, []byte{'a', 0xFF, 'b'}, 0644))

	raw, err := FileSource{Path: path}.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, "a\uFFFDb", raw)

	_, err = FileSource{Path: filepath.Join(dir, "missing")}.ReadRaw()
	assert.Error(t, err)
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "log.csv")
	require.NoError(t, os.WriteFile(file, []byte("a\n1"), 0644))

	assert.NoError(t, validatePath(file))
	assert.Error(t, validatePath(""))
	assert.Error(t, validatePath(dir))
	assert.Error(t, validatePath(filepath.Join(dir, "missing")))
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.csv")
	other := filepath.Join(dir, "other.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1"), 0644))

	changes := make(chan string, 4)
	w := New(path, func(raw string) { changes <- raw })
	w.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n2"), 0644))

	select {
	case raw := <-changes:
		assert.Equal(t, "a\n1\n2", raw)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_RunMissingFile(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), func(string) {})
	assert.Error(t, w.Run(context.Background()))
}
