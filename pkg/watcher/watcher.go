// Package watcher reports changes under the data directory: records that need a
// reload and asset files that only affect counts.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/vertex-graph/pkg/datasource"
	"github.com/ritzau/vertex-graph/pkg/logging"
)

// ChangeType classifies a changed path.
type ChangeType int

const (
	ChangeTypeRecord ChangeType = iota // ws-*.json or vert-*.json
	ChangeTypeAsset                    // Anything inside an asset directory
)

func (t ChangeType) String() string {
	if t == ChangeTypeRecord {
		return "record"
	}
	return "asset"
}

// ChangeEvent is a batch of changed paths of one type.
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

const batchWindow = 100 * time.Millisecond

// FileWatcher watches a data directory tree.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	events  chan ChangeEvent
}

// NewFileWatcher creates a watcher for the data directory root.
func NewFileWatcher(root string) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &FileWatcher{
		watcher: w,
		root:    root,
		events:  make(chan ChangeEvent, 16),
	}, nil
}

// Start watches the root and every directory below it until ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) error {
	count, err := fw.watchTree(fw.root)
	if err != nil {
		fw.watcher.Close()
		return err
	}
	logging.Info("watching data directory", "path", fw.root, "directories", count)

	go fw.processEvents(ctx)
	return nil
}

// watchTree adds dir and its subdirectories. Hidden directories are skipped.
func (fw *FileWatcher) watchTree(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			logging.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return count, nil
}

// Classify returns the change type of a path, or false for paths to ignore.
func Classify(path string) (ChangeType, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") {
		return 0, false
	}
	if datasource.IsRecord(path) {
		return ChangeTypeRecord, true
	}
	return ChangeTypeAsset, true
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	pending := map[ChangeType][]string{}
	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() bool {
		for _, t := range []ChangeType{ChangeTypeRecord, ChangeTypeAsset} {
			paths := pending[t]
			if len(paths) == 0 {
				continue
			}
			select {
			case fw.events <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
			case <-ctx.Done():
				return false
			}
		}
		pending = map[ChangeType][]string{}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if _, err := fw.watchTree(event.Name); err != nil {
						logging.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			t, ok := Classify(event.Name)
			if !ok {
				continue
			}
			logging.Trace("file changed", "path", event.Name, "op", event.Op.String(), "type", t.String())
			pending[t] = append(pending[t], event.Name)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			if !flush() {
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the batched change events. The channel closes when the watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
