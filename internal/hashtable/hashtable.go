// Package hashtable implements the C3 hash-table layer: bidirectional
// {hash <-> original string} maps loaded from text files, merged across
// files, memoized process-wide, and invalidated on demand (§3.2, §3.8,
// §4.3).
package hashtable

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/frogtools/bumpath/internal/fnvhash"
	"k8s.io/klog/v2"
)

// Selection controls which hash-file categories Load reads, so callers
// that only need path hashes don't pay to parse entry/type/field tables.
type Selection struct {
	Entries    bool // entries.txt
	BinHashes  bool // binhashes.txt
	BinTypes   bool // bintypes.txt
	BinFields  bool // binfields.txt
	FilePaths  bool // game.txt and similar
}

// All selects every category.
func All() Selection {
	return Selection{Entries: true, BinHashes: true, BinTypes: true, BinFields: true, FilePaths: true}
}

// categoryFiles maps a Selection field to the on-disk filenames that feed it.
// Multiple filenames may feed path hashes (e.g. game.txt, lcu.txt); later
// files win on collision per §4.3.
var categoryFiles = map[string][]string{
	"entries":   {"entries.txt"},
	"binhashes": {"binhashes.txt"},
	"bintypes":  {"bintypes.txt"},
	"binfields": {"binfields.txt"},
	"filepaths": {"game.txt", "lcu.txt"},
}

// Tables is a merged, bidirectional hash table covering one or more of the
// categories in Selection. The 32-bit namespaces (entries, bin type/field
// hashes) are kept separate from the 64-bit file-path namespace, but
// entries/types/fields are merged into one 32-bit map per §3.2 ("the
// combined in-memory table is a mapping from each hash ... to its source
// string") — callers needing namespace separation should load a Tables
// per category instead.
type Tables struct {
	mu       sync.RWMutex
	hash32   map[uint32]string
	hash64   map[uint64]string
}

// Load reads the selected hash-table files from dir and returns a merged
// Tables. Missing files for a selected category are tolerated (an empty
// mapping results, per §6.3's "readers ... must tolerate unknown
// hashes").
func Load(dir string, sel Selection) (*Tables, error) {
	t := &Tables{hash32: make(map[uint32]string), hash64: make(map[uint64]string)}
	plan := []struct {
		on    bool
		files []string
		bits  int
	}{
		{sel.Entries, categoryFiles["entries"], 32},
		{sel.BinHashes, categoryFiles["binhashes"], 32},
		{sel.BinTypes, categoryFiles["bintypes"], 32},
		{sel.BinFields, categoryFiles["binfields"], 32},
		{sel.FilePaths, categoryFiles["filepaths"], 64},
	}
	for _, p := range plan {
		if !p.on {
			continue
		}
		for _, name := range p.files {
			path := dir + "/" + name
			if err := t.mergeFile(path, p.bits); err != nil {
				if os.IsNotExist(err) {
					klog.V(2).Infof("hashtable: %s not found, skipping", path)
					continue
				}
				return nil, fmt.Errorf("hashtable: loading %s: %w", path, err)
			}
		}
	}
	return t, nil
}

func (t *Tables) mergeFile(path string, bits int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.mergeReader(f, bits)
}

func (t *Tables) mergeReader(r io.Reader, bits int) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	t.mu.Lock()
	defer t.mu.Unlock()
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Text()
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		idx := strings.IndexAny(trimmed, " \t")
		if idx < 0 {
			klog.Warningf("hashtable: malformed line %d: %q", line, raw)
			continue
		}
		hex := strings.ToLower(trimmed[:idx])
		value := strings.TrimSpace(trimmed[idx+1:])
		switch bits {
		case 32:
			v, err := strconv.ParseUint(hex, 16, 32)
			if err != nil {
				klog.Warningf("hashtable: bad hex %q on line %d: %v", hex, line, err)
				continue
			}
			t.hash32[uint32(v)] = value
		case 64:
			v, err := strconv.ParseUint(hex, 16, 64)
			if err != nil {
				klog.Warningf("hashtable: bad hex %q on line %d: %v", hex, line, err)
				continue
			}
			t.hash64[v] = value
		}
	}
	return sc.Err()
}

// Resolve32 resolves an 8-hex-digit string to its original source string.
// An unknown hash yields its lowercase 8-digit hex form; input that is not
// valid hex is returned unchanged.
func (t *Tables) Resolve32(hex string) string {
	v, err := strconv.ParseUint(strings.ToLower(hex), 16, 32)
	if err != nil {
		return hex
	}
	return t.ResolveHash32(uint32(v))
}

// ResolveHash32 resolves a raw 32-bit hash directly.
func (t *Tables) ResolveHash32(h uint32) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.hash32[h]; ok {
		return s
	}
	return fnvhash.HexU32(h)
}

// Resolve64 resolves a 16-hex-digit string to its original source string.
// An unknown hash yields its lowercase 16-digit hex form; input that is not
// valid hex is returned unchanged.
func (t *Tables) Resolve64(hex string) string {
	v, err := strconv.ParseUint(strings.ToLower(hex), 16, 64)
	if err != nil {
		return hex
	}
	return t.ResolveHash64(v)
}

// ResolveHash64 resolves a raw 64-bit hash directly.
func (t *Tables) ResolveHash64(h uint64) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.hash64[h]; ok {
		return s
	}
	return fnvhash.HexU64(h)
}

// Encode32 computes the 32-bit hash of s and returns its hex form; it
// does not require s to already be present in the table.
func Encode32(s string) string { return fnvhash.HexU32(fnvhash.FNV1a32(s)) }

// Encode64 computes the 64-bit hash of s and returns its hex form; it
// does not require s to already be present in the table.
func Encode64(s string) string { return fnvhash.HexU64(fnvhash.XXH64(s)) }

// Put32 registers a known string under its 32-bit hash. Used by tests to
// build fixture tables (§9 "testable injection point") and by callers
// merging newly-downloaded hash files.
func (t *Tables) Put32(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hash32[fnvhash.FNV1a32(s)] = s
}

// Put64 registers a known string under its 64-bit hash.
func (t *Tables) Put64(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hash64[fnvhash.XXH64(s)] = s
}

// Len32 and Len64 report the number of loaded entries per namespace,
// mainly for diagnostics.
func (t *Tables) Len32() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.hash32)
}

func (t *Tables) Len64() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.hash64)
}
