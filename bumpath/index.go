// Package bumpath implements the C9 engine: indexing source directories,
// scanning selected BINs for references, and rewriting/copying them
// under a new path prefix, per spec §4.9.
package bumpath

import (
	"io/fs"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"
)

// Kind classifies one indexed source file.
type Kind int

const (
	KindAsset Kind = iota
	KindBin
)

func (k Kind) String() string {
	if k == KindBin {
		return "bin"
	}
	return "asset"
}

// SourceEntry is one indexed file: its absolute path, its path relative
// to the source directory it was found under, and its kind.
type SourceEntry struct {
	AbsPath string
	RelPath string
	Kind    Kind
}

// SourceIndex maps unify_path -> SourceEntry across one or more source
// directories, per §4.9.2.
type SourceIndex struct {
	entries  map[string]SourceEntry
	shadowed []string
}

// UnifyPath normalizes a relative path to lowercase, forward-slashed
// form, per §4.9.2.
func UnifyPath(rel string) string {
	return strings.ToLower(filepath.ToSlash(rel))
}

// IsAnimationBin reports whether unifyPath names a file whose unify_path
// contains an /animations/ segment, per §4.9.3.
func IsAnimationBin(unifyPath string) bool {
	return strings.Contains("/"+unifyPath, "/animations/")
}

func classify(unifyPath string) Kind {
	if strings.HasSuffix(unifyPath, ".bin") {
		return KindBin
	}
	return KindAsset
}

// BuildSourceIndex walks each directory in dirs, in order, indexing every
// regular file under unify_path. Later directories win on collision;
// shadowed entries are recorded for Shadowed() and logged.
func BuildSourceIndex(dirs []string) (*SourceIndex, error) {
	idx := &SourceIndex{entries: make(map[string]SourceEntry)}
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			unify := UnifyPath(rel)
			if existing, ok := idx.entries[unify]; ok {
				idx.shadowed = append(idx.shadowed, unify)
				klog.V(2).Infof("bumpath: %q shadowed: %s -> %s", unify, existing.AbsPath, path)
			}
			idx.entries[unify] = SourceEntry{AbsPath: path, RelPath: rel, Kind: classify(unify)}
			return nil
		})
		if err != nil {
			return nil, &IoError{Path: dir, Err: err}
		}
	}
	return idx, nil
}

// Get returns the indexed entry for unifyPath.
func (idx *SourceIndex) Get(unifyPath string) (SourceEntry, bool) {
	e, ok := idx.entries[unifyPath]
	return e, ok
}

// Exists reports whether unifyPath is present in the index.
func (idx *SourceIndex) Exists(unifyPath string) bool {
	_, ok := idx.entries[unifyPath]
	return ok
}

// Shadowed returns every unify_path that was overwritten by a
// later-added source directory.
func (idx *SourceIndex) Shadowed() []string { return append([]string(nil), idx.shadowed...) }

// SelectableBins returns every indexed unify_path of kind bin that is not
// an animation BIN, per §4.9.3.
func (idx *SourceIndex) SelectableBins() []string {
	var out []string
	for unify, e := range idx.entries {
		if e.Kind == KindBin && !IsAnimationBin(unify) {
			out = append(out, unify)
		}
	}
	return out
}

// Len reports the total number of indexed files.
func (idx *SourceIndex) Len() int { return len(idx.entries) }
