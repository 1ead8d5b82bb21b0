package bumpath

import (
	"fmt"
	"os"
	"regexp"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/frogtools/bumpath/binformat"
	"github.com/frogtools/bumpath/internal/fnvhash"
	"github.com/frogtools/bumpath/internal/hashtable"
	"github.com/frogtools/bumpath/refwalk"
)

// UneditablePrefix is the sentinel prefix assigned to entries whose type
// is in the uneditable set, per §4.9.4 step 5.
const UneditablePrefix = "Uneditable"

// ScannedRef is one reference found within a scanned entry, carrying the
// resolution state needed for both UI presentation and the write phase.
type ScannedRef struct {
	FieldPath string
	Kind      refwalk.Kind
	Value     string
	UnifyPath string // only meaningful for FILE references
	Exists    bool
}

// ScannedEntry is one entry of a scanned BIN, with its resolved name,
// editable prefix, and references, per §4.9.4's presentation tree.
type ScannedEntry struct {
	EntryHash  uint32
	TypeHash   uint32
	Name       string
	Prefix     string
	References []ScannedRef
}

// ScannedBin is one selected-and-parsed BIN.
type ScannedBin struct {
	UnifyPath string
	Raw       []byte
	Entries   []*ScannedEntry
}

// ScanResult is the outcome of scanning a selection of BINs: the parsed
// bins plus a global entry index (the union of all selected BINs' entry
// hashes) used to resolve LINK references, per §4.9.4 step 4.
type ScanResult struct {
	Bins   []*ScannedBin
	byHash map[uint32]*ScannedEntry
}

// EntryByHash looks an entry up in the global index built across every
// selected BIN.
func (r *ScanResult) EntryByHash(hash uint32) (*ScannedEntry, bool) {
	e, ok := r.byHash[hash]
	return e, ok
}

var hex32Pattern = regexp.MustCompile(`^[0-9a-fA-F]{8}$`)

// recoverHash32 recovers the original 32-bit hash from a refwalk
// reference's resolved value: an unresolved value is already its own hex
// form; a resolved value is re-hashed with the same function used to
// build the entry/field/type namespace (§3.2), which is exact as long as
// the resolved string is the same one that produced the hash.
func recoverHash32(value string) uint32 {
	if hex32Pattern.MatchString(value) {
		var h uint32
		fmt.Sscanf(value, "%08x", &h)
		return h
	}
	return fnvhash.FNV1a32(value)
}

// Scan parses every selected BIN, walks each entry for references, and
// assigns each entry an initial prefix (or UneditablePrefix), per §4.9.4.
func Scan(idx *SourceIndex, tables *hashtable.Tables, selected []string, prefix string, uneditableTypes map[uint32]bool) (*ScanResult, error) {
	result := &ScanResult{byHash: make(map[uint32]*ScannedEntry)}

	for _, unify := range selected {
		if IsAnimationBin(unify) {
			return nil, &SemanticError{Kind: AnimationBinNotSelectable, Detail: unify}
		}
		if _, ok := idx.Get(unify); !ok {
			return nil, &IoError{Path: unify, Err: fmt.Errorf("not present in source index")}
		}
	}

	// Parsing and reference-walking are independent per BIN, so they fan
	// out across a bounded worker group the way the teacher's CAR walkers
	// do; merging into the shared entry index happens afterward, in
	// selection order, so MergeConflict reporting stays deterministic
	// regardless of which goroutine finishes first.
	parsed := make([]*ScannedBin, len(selected))
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for i, unify := range selected {
		i, unify := i, unify
		g.Go(func() error {
			se, _ := idx.Get(unify)
			raw, err := os.ReadFile(se.AbsPath)
			if err != nil {
				return &IoError{Path: se.AbsPath, Err: err}
			}
			file, err := binformat.Parse(raw, binformat.ReadOptions{})
			if err != nil {
				return &ParseError{Path: unify, Err: err}
			}

			bin := &ScannedBin{UnifyPath: unify, Raw: raw}
			for ei := range file.Entries {
				entry := &file.Entries[ei]
				prefixForEntry := prefix
				if uneditableTypes[entry.TypeHash] {
					prefixForEntry = UneditablePrefix
				}
				scanned := &ScannedEntry{
					EntryHash: entry.EntryHash,
					TypeHash:  entry.TypeHash,
					Name:      resolveName(tables, entry.EntryHash),
					Prefix:    prefixForEntry,
				}

				refs, err := refwalk.Walk(entry, refwalk.Options{Tables: tables})
				if err != nil {
					return &ParseError{Path: unify, Err: err}
				}
				for _, ref := range refs {
					sref := ScannedRef{FieldPath: ref.FieldPath, Kind: ref.Kind, Value: ref.Value}
					if ref.Kind == refwalk.KindFile {
						sref.UnifyPath = UnifyPath(ref.Value)
					}
					scanned.References = append(scanned.References, sref)
				}
				bin.Entries = append(bin.Entries, scanned)
			}
			parsed[i] = bin
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, bin := range parsed {
		for _, scanned := range bin.Entries {
			if existing, ok := result.byHash[scanned.EntryHash]; ok {
				return nil, &SemanticError{Kind: MergeConflict, Detail: fmt.Sprintf(
					"entry hash %08x appears in both %q and a previously scanned BIN (%q)", scanned.EntryHash, bin.UnifyPath, existing.Name)}
			}
			result.byHash[scanned.EntryHash] = scanned
		}
		result.Bins = append(result.Bins, bin)
	}

	// Resolve FILE existence against the source index and LINK existence
	// against the global entry index now that every selected BIN's
	// entries are known, per §4.9.4 steps 3-4.
	for _, bin := range result.Bins {
		for _, scanned := range bin.Entries {
			for i := range scanned.References {
				ref := &scanned.References[i]
				switch ref.Kind {
				case refwalk.KindFile:
					ref.Exists = idx.Exists(ref.UnifyPath)
				case refwalk.KindLink:
					_, ref.Exists = result.byHash[recoverHash32(ref.Value)]
				}
			}
		}
	}

	return result, nil
}

func resolveName(tables *hashtable.Tables, hash uint32) string {
	if tables == nil {
		return fnvhash.HexU32(hash)
	}
	return tables.ResolveHash32(hash)
}
