// Package watch reports when a log file on disk changes.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/datalog-viewer/backend/internal/storage"
)

// DefaultDebounce is how long a file must stay quiet before it is re-read.
const DefaultDebounce = 250 * time.Millisecond

// RawSource supplies the current raw text of a log.
type RawSource interface {
	ReadRaw() (string, error)
}

// FileSource reads a log from a file. Bytes that are not valid UTF-8 read
// back as U+FFFD.
type FileSource struct {
	Path string
}

func (s FileSource) ReadRaw() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", s.Path, err)
	}
	return storage.DecodeText(data), nil
}

// ChangeFunc receives the raw text read after a change.
type ChangeFunc func(raw string)

// Watcher watches one file and calls OnChange with its contents after each
// burst of writes.
type Watcher struct {
	Path     string
	Source   RawSource
	Debounce time.Duration
	OnChange ChangeFunc
}

// New creates a watcher for path that reads it through a FileSource.
func New(path string, onChange ChangeFunc) *Watcher {
	return &Watcher{
		Path:     path,
		Source:   FileSource{Path: path},
		Debounce: DefaultDebounce,
		OnChange: onChange,
	}
}

// validatePath checks that path names an existing regular file
func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty file path")
	}
	info, err := os.Stat(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot watch directory, must be a file")
	}
	return nil
}

// Run blocks until ctx is done. The parent directory is watched rather than
// the file itself so that files replaced by rename (as editors and the
// device's mass storage driver do) keep being followed.
func (w *Watcher) Run(ctx context.Context) error {
	if err := validatePath(w.Path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			fmt.Printf("[Watch] Warning: failed to close watcher: %v\n", err)
		}
	}()

	abs, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", w.Path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch file: %w", err)
	}
	fmt.Printf("[Watch] Watching %s\n", abs)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			fmt.Printf("[Watch] Watcher error: %v\n", err)

		case <-timer.C:
			w.emit()
		}
	}
}

func (w *Watcher) emit() {
	raw, err := w.Source.ReadRaw()
	if err != nil {
		// the file may be mid-replace; the next event reads it again
		fmt.Printf("[Watch] %v\n", err)
		return
	}
	w.OnChange(raw)
}
