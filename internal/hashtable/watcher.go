package hashtable

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

// Watcher watches a hash-file cache directory and resets the process-wide
// singleton whenever its contents change, implementing the "explicit
// invalidation when a new hash file set is downloaded" lifecycle rule of
// §3.8 without requiring every caller to remember to call Reset after a
// RefreshAll. Modeled on multiepoch.go's use of fsnotify to watch a
// directory of epoch config files for changes.
type Watcher struct {
	fsw *fsnotify.Watcher
	dir string
}

// NewWatcher starts watching dir. Call Close when done.
func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{fsw: fsw, dir: dir}, nil
}

// Run blocks, resetting the singleton on every write/create/remove/rename
// event until ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				klog.V(2).Infof("hashtable: %s changed (%s), invalidating cached tables", ev.Name, ev.Op)
				Reset()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			klog.Warningf("hashtable: watcher error on %s: %v", w.dir, err)
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
