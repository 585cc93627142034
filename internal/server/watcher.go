package server

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/FocuswithJustin/sblgnt-viewer/core/manifest"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/logging"
)

// ManifestEventType is the type field of manifest change events.
const ManifestEventType = "manifest-updated"

// DefaultDebounce coalesces the bursts of writes a single rebuild produces.
const DefaultDebounce = 100 * time.Millisecond

// ManifestEvent is pushed to websocket clients when the manifest changes.
type ManifestEvent struct {
	Type        string `json:"type"`
	GeneratedAt string `json:"generated_at"`
	Books       int    `json:"books"`
}

// NewManifestEvent summarises m for clients.
func NewManifestEvent(m *manifest.Manifest) ManifestEvent {
	return ManifestEvent{Type: ManifestEventType, GeneratedAt: m.GeneratedAt, Books: len(m.Books)}
}

// ManifestWatcher watches the manifest directory and publishes an event for
// each settled change to the manifest file.
type ManifestWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	publish  func(ManifestEvent)
	debounce time.Duration
}

// NewManifestWatcher watches the directory holding path, creating it if
// needed. Manifests are replaced by rename, so the directory is watched rather
// than the file.
func NewManifestWatcher(path string, publish func(ManifestEvent)) (*ManifestWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	return &ManifestWatcher{
		path:     abs,
		watcher:  w,
		publish:  publish,
		debounce: DefaultDebounce,
	}, nil
}

// Run processes filesystem events until ctx is cancelled.
func (mw *ManifestWatcher) Run(ctx context.Context) {
	defer mw.watcher.Close()

	timer := time.NewTimer(mw.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-mw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != mw.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(mw.debounce)

		case err, ok := <-mw.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("manifest watcher error", "error", err)

		case <-timer.C:
			mw.emit()
		}
	}
}

func (mw *ManifestWatcher) emit() {
	m, err := manifest.Read(mw.path)
	if err != nil {
		logging.Warn("manifest changed but could not be read", "path", mw.path, "error", err)
		return
	}
	logging.Debug("manifest changed", "path", mw.path, "books", len(m.Books))
	mw.publish(NewManifestEvent(m))
}
