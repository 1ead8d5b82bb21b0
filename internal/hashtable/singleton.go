package hashtable

import (
	"sync"

	"k8s.io/klog/v2"
)

// process-wide memoized table, guarded by a one-shot initializer and
// reset explicitly on invalidation, per §3.8/§4.3 and the "process-wide
// hash table state" redesign note in §9.
var (
	singletonMu   sync.Mutex
	singletonOnce sync.Once
	singleton     *Tables
	singletonDir  string
	singletonSel  Selection
)

// Global returns the process-wide Tables, loading it from dir on first
// call. Subsequent calls with a different dir/sel are ignored until
// Reset is called; this matches "loaded once on first query, memoized
// process-wide" (§3.8).
func Global(dir string, sel Selection) (*Tables, error) {
	var loadErr error
	singletonOnce.Do(func() {
		singletonMu.Lock()
		defer singletonMu.Unlock()
		singleton, loadErr = Load(dir, sel)
		singletonDir, singletonSel = dir, sel
	})
	if loadErr != nil {
		return nil, loadErr
	}
	singletonMu.Lock()
	defer singletonMu.Unlock()
	return singleton, nil
}

// Reset drops the memoized table, forcing the next Global call to reload
// from disk. Used after a hash-file refresh (§3.8 "explicit invalidation
// when a new hash file set is downloaded").
func Reset() {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	singleton = nil
	singletonOnce = sync.Once{}
	klog.V(2).Info("hashtable: singleton reset")
}
