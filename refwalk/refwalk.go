// Package refwalk traverses a parsed BIN entry (binformat.Entry) and
// emits every FILE and LINK reference it contains, plus STRING fields
// that look like paths by field-name convention, per spec §4.8.
package refwalk

import (
	"fmt"
	"path"
	"strings"

	"github.com/frogtools/bumpath/binformat"
	"github.com/frogtools/bumpath/internal/fnvhash"
	"github.com/frogtools/bumpath/internal/hashtable"
)

// Kind distinguishes a FILE reference (resource path) from a LINK
// reference (another entry within the same or a linked BIN).
type Kind int

const (
	KindFile Kind = iota
	KindLink
)

func (k Kind) String() string {
	if k == KindLink {
		return "LINK"
	}
	return "FILE"
}

// Reference is one emitted tuple: (source_entry_hash, field_path, kind,
// value, exists_in_source_index).
type Reference struct {
	SourceEntryHash uint32
	FieldPath       string
	Kind            Kind
	Value           string
	Exists          bool
}

// ExistsFunc reports whether value (a resolved FILE path or a raw hex
// fallback) is present in the caller's source index. A nil ExistsFunc
// makes every reference report Exists == false.
type ExistsFunc func(value string) bool

// DefaultPathFields is the built-in path-field denylist (§4.8): STRING
// fields whose resolved name is one of these, and whose value looks like
// a file path, are also emitted as FILE references.
var DefaultPathFields = []string{
	"texture",
	"texturePath",
	"simpleSkin",
	"skeleton",
	"animationGraphData",
	"animationName",
	"map",
	"ringMesh",
	"iconTexture",
	"particlePath",
	"effectPath",
}

// Options configures a walk.
type Options struct {
	// Tables resolves FILE (64-bit) and LINK (32-bit) hashes to readable
	// strings. A nil Tables leaves every value as its hex form.
	Tables *hashtable.Tables
	// PathFieldHashes overrides the default denylist, keyed by
	// fnvhash.FNV1a32(lowercase field name). Nil uses DefaultPathFields.
	PathFieldHashes map[uint32]bool
	Exists          ExistsFunc
}

func defaultDenylistHashes() map[uint32]bool {
	return DefaultPathFieldHashes()
}

// DefaultPathFieldHashes computes the hash-keyed form of DefaultPathFields,
// exported so callers that need to reuse the exact same denylist outside
// of Walk (e.g. the C9 rewrite engine) don't have to re-derive it.
func DefaultPathFieldHashes() map[uint32]bool {
	m := make(map[uint32]bool, len(DefaultPathFields))
	for _, name := range DefaultPathFields {
		m[fnvhash.FNV1a32(name)] = true
	}
	return m
}

// Walk traverses every field of entry and returns the references found.
// It returns an error immediately on an unrecognized Value implementation
// (§4.9.8: "the engine never silently drops a field").
func Walk(entry *binformat.Entry, opts Options) ([]Reference, error) {
	denylist := opts.PathFieldHashes
	if denylist == nil {
		denylist = defaultDenylistHashes()
	}
	w := &walker{entry: entry, opts: opts, denylist: denylist}
	for _, f := range entry.Fields {
		seg := binformat.PathSegment{Name: fieldName(opts.Tables, f.NameHash)}
		if err := w.walkValue([]binformat.PathSegment{seg}, f.Value); err != nil {
			return nil, err
		}
	}
	return w.refs, nil
}

type walker struct {
	entry    *binformat.Entry
	opts     Options
	denylist map[uint32]bool
	refs     []Reference
}

func fieldName(tables *hashtable.Tables, hash uint32) string {
	if tables == nil {
		return fnvhash.HexU32(hash)
	}
	return tables.ResolveHash32(hash)
}

func (w *walker) emit(segs []binformat.PathSegment, kind Kind, value string, exists bool) {
	w.refs = append(w.refs, Reference{
		SourceEntryHash: w.entry.EntryHash,
		FieldPath:       binformat.FormatFieldPath(segs),
		Kind:            kind,
		Value:           value,
		Exists:          exists,
	})
}

func (w *walker) resolveExists(value string) bool {
	if w.opts.Exists == nil {
		return false
	}
	return w.opts.Exists(value)
}

func (w *walker) walkValue(segs []binformat.PathSegment, v binformat.Value) error {
	switch val := v.(type) {
	case binformat.VFile:
		resolved := w.resolveFile(uint64(val))
		w.emit(segs, KindFile, resolved, w.resolveExists(resolved))
		return nil
	case binformat.VLink:
		resolved := w.resolveLink(uint32(val))
		w.emit(segs, KindLink, resolved, w.resolveExists(resolved))
		return nil
	case binformat.VString:
		if len(segs) > 0 {
			last := segs[len(segs)-1]
			if nameHash := fnvhash.FNV1a32(last.Name); w.denylist[nameHash] && looksLikeFilePath(string(val)) {
				w.emit(segs, KindFile, string(val), w.resolveExists(string(val)))
			}
		}
		return nil
	case binformat.VList:
		for i, item := range val.Items {
			itemSegs := withIndex(segs, i)
			if err := w.walkValue(itemSegs, item); err != nil {
				return err
			}
		}
		return nil
	case binformat.VOption:
		if !val.HasValue() {
			return nil
		}
		return w.walkValue(segs, val.Value)
	case binformat.VMap:
		for i, entry := range val.Entries {
			keySegs := append(withIndex(segs, i), binformat.PathSegment{Name: "key"})
			if err := w.walkValue(keySegs, entry.Key); err != nil {
				return err
			}
			valSegs := append(withIndex(segs, i), binformat.PathSegment{Name: "value"})
			if err := w.walkValue(valSegs, entry.Value); err != nil {
				return err
			}
		}
		return nil
	case binformat.VPointer:
		if val.IsNull() {
			return nil
		}
		return w.walkFields(segs, val.Fields)
	case binformat.VEmbed:
		return w.walkFields(segs, val.Fields)
	case binformat.VNone, binformat.VBool, binformat.VI8, binformat.VU8, binformat.VI16, binformat.VU16,
		binformat.VI32, binformat.VU32, binformat.VI64, binformat.VU64, binformat.VF32,
		binformat.VVec2, binformat.VVec3, binformat.VVec4, binformat.VMtx44, binformat.VRGBA,
		binformat.VHash, binformat.VFlag:
		return nil
	default:
		return fmt.Errorf("refwalk: unrecognized value type %T at %s", v, binformat.FormatFieldPath(segs))
	}
}

func (w *walker) walkFields(segs []binformat.PathSegment, fields []binformat.Field) error {
	for _, f := range fields {
		childSeg := binformat.PathSegment{Name: fieldName(w.opts.Tables, f.NameHash)}
		if err := w.walkValue(append(append([]binformat.PathSegment{}, segs...), childSeg), f.Value); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) resolveFile(hash uint64) string {
	if w.opts.Tables == nil {
		return fnvhash.HexU64(hash)
	}
	return w.opts.Tables.ResolveHash64(hash)
}

func (w *walker) resolveLink(hash uint32) string {
	if w.opts.Tables == nil {
		return fnvhash.HexU32(hash)
	}
	return w.opts.Tables.ResolveHash32(hash)
}

// withIndex returns segs with its last element's index set to i, per
// §4.8's "[index] for containers" rule — the index attaches to the field
// segment that holds the container, matching binformat's field-path
// encoding (e.g. "materialOverride[3]").
func withIndex(segs []binformat.PathSegment, i int) []binformat.PathSegment {
	out := append([]binformat.PathSegment{}, segs...)
	if len(out) == 0 {
		return []binformat.PathSegment{{HasIndex: true, Index: i}}
	}
	last := out[len(out)-1]
	last.HasIndex = true
	last.Index = i
	out[len(out)-1] = last
	return out
}

// LooksLikeFilePath reports whether value has a recognizable file
// extension after its final path separator, per §4.8's "target has a
// file-like extension" qualifier on denylisted STRING fields. Exported
// so the rewrite engine (C9) can apply the identical rule when deciding
// whether a denylisted STRING field is a rewritable path.
func LooksLikeFilePath(value string) bool {
	return looksLikeFilePath(value)
}

func looksLikeFilePath(value string) bool {
	base := path.Base(strings.ReplaceAll(value, `\`, "/"))
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 || dot == len(base)-1 {
		return false
	}
	ext := base[dot+1:]
	if len(ext) < 2 || len(ext) > 5 {
		return false
	}
	for _, c := range ext {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}
