package rebuild

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/termserve/termserve/internal/metrics"
	"github.com/termserve/termserve/pkg/snapfile"
	"github.com/termserve/termserve/pkg/suggest"
)

// debounceDelay coalesces the burst of filesystem events an atomic
// write-then-rename produces into a single load attempt.
const debounceDelay = 200 * time.Millisecond

// Watcher hot-loads snapshot files published by an external builder. It
// watches the snapshot's directory (the file itself disappears during the
// atomic rename) and installs any newer version it manages to load. Corrupt
// or stale files are ignored; the active snapshot keeps serving.
type Watcher struct {
	path   string
	handle *suggest.Handle
	m      *metrics.Metrics
}

// NewWatcher creates a watcher for the snapshot file at path. Metrics may be
// nil.
func NewWatcher(path string, handle *suggest.Handle, m *metrics.Metrics) *Watcher {
	return &Watcher{path: path, handle: handle, m: m}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create snapshot watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	log.Debugf("Watching %s for snapshot updates", w.path)

	var debounce *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
				fire = debounce.C
			} else {
				debounce.Reset(debounceDelay)
			}
		case <-fire:
			w.reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Errorf("Snapshot watcher: %v", err)
		}
	}
}

// reload loads the snapshot file and installs it if it is newer than the
// active one. Versions equal to the active snapshot are our own writes
// echoing back through the watch.
func (w *Watcher) reload() {
	snap, err := snapfile.Read(w.path)
	if err != nil {
		log.Errorf("Ignoring unusable snapshot update: %v", err)
		return
	}
	if active := w.handle.ActiveVersion(); snap.Version() <= active && active != 0 {
		log.Debugf("Ignoring snapshot version %d, active is %d", snap.Version(), active)
		return
	}
	w.handle.Install(snap)
	if w.m != nil {
		w.m.SnapshotInstallsTotal.Inc()
		w.m.ActiveSnapshotVersion.Set(float64(snap.Version()))
		w.m.ActiveTermCount.Set(float64(snap.TermCount()))
	}
	log.Infof("Hot-loaded snapshot version=%d terms=%d", snap.Version(), snap.TermCount())
}
