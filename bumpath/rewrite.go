package bumpath

import (
	"fmt"

	"github.com/frogtools/bumpath/binformat"
	"github.com/frogtools/bumpath/internal/fnvhash"
	"github.com/frogtools/bumpath/internal/hashtable"
	"github.com/frogtools/bumpath/refwalk"
)

// fileRewrite records one FILE-reference (or path-like STRING) rewrite
// performed in place on a cloned entry, so the caller can schedule the
// matching source-to-destination copy.
type fileRewrite struct {
	OriginalUnify string
	NewPath       string
}

// rewriteEntryFiles mutates entry in place, rewriting every FILE value
// and every denylisted path-like STRING value under prefix, per §4.9.6
// step 2. selfUnify is the entry's own resolved name's unify_path; a
// reference matching it is left untouched per §4.9.8's tie-break rule.
func rewriteEntryFiles(entry *binformat.Entry, tables *hashtable.Tables, denylist map[uint32]bool, prefix, selfUnify string) ([]fileRewrite, error) {
	var out []fileRewrite
	for i := range entry.Fields {
		if err := rewriteValue(&entry.Fields[i].Value, tables, denylist, entry.Fields[i].NameHash, prefix, selfUnify, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func rewriteValue(v *binformat.Value, tables *hashtable.Tables, denylist map[uint32]bool, fieldNameHash uint32, prefix, selfUnify string, out *[]fileRewrite) error {
	switch val := (*v).(type) {
	case binformat.VFile:
		path := resolveFilePath(tables, uint64(val))
		if UnifyPath(path) == selfUnify {
			return nil
		}
		newPath := applyPrefixToPath(prefix, path)
		*v = binformat.VFile(fnvhash.XXH64(newPath))
		*out = append(*out, fileRewrite{OriginalUnify: UnifyPath(path), NewPath: newPath})
		return nil
	case binformat.VString:
		if !denylist[fieldNameHash] || !refwalk.LooksLikeFilePath(string(val)) {
			return nil
		}
		path := string(val)
		if UnifyPath(path) == selfUnify {
			return nil
		}
		newPath := applyPrefixToPath(prefix, path)
		*v = binformat.VString(newPath)
		*out = append(*out, fileRewrite{OriginalUnify: UnifyPath(path), NewPath: newPath})
		return nil
	case binformat.VList:
		for i := range val.Items {
			if err := rewriteValue(&val.Items[i], tables, denylist, fieldNameHash, prefix, selfUnify, out); err != nil {
				return err
			}
		}
		*v = val
		return nil
	case binformat.VOption:
		if val.Value == nil {
			return nil
		}
		if err := rewriteValue(&val.Value, tables, denylist, fieldNameHash, prefix, selfUnify, out); err != nil {
			return err
		}
		*v = val
		return nil
	case binformat.VMap:
		for i := range val.Entries {
			if err := rewriteValue(&val.Entries[i].Key, tables, denylist, fieldNameHash, prefix, selfUnify, out); err != nil {
				return err
			}
			if err := rewriteValue(&val.Entries[i].Value, tables, denylist, fieldNameHash, prefix, selfUnify, out); err != nil {
				return err
			}
		}
		*v = val
		return nil
	case binformat.VPointer:
		if val.IsNull() {
			return nil
		}
		if err := rewriteFields(val.Fields, tables, denylist, prefix, selfUnify, out); err != nil {
			return err
		}
		*v = val
		return nil
	case binformat.VEmbed:
		if err := rewriteFields(val.Fields, tables, denylist, prefix, selfUnify, out); err != nil {
			return err
		}
		*v = val
		return nil
	case binformat.VNone, binformat.VBool, binformat.VI8, binformat.VU8, binformat.VI16, binformat.VU16,
		binformat.VI32, binformat.VU32, binformat.VI64, binformat.VU64, binformat.VF32,
		binformat.VVec2, binformat.VVec3, binformat.VVec4, binformat.VMtx44, binformat.VRGBA,
		binformat.VHash, binformat.VLink, binformat.VFlag:
		return nil
	default:
		return fmt.Errorf("bumpath: unrecognized value type %T while rewriting", *v)
	}
}

func rewriteFields(fields []binformat.Field, tables *hashtable.Tables, denylist map[uint32]bool, prefix, selfUnify string, out *[]fileRewrite) error {
	for i := range fields {
		if err := rewriteValue(&fields[i].Value, tables, denylist, fields[i].NameHash, prefix, selfUnify, out); err != nil {
			return err
		}
	}
	return nil
}

func resolveFilePath(tables *hashtable.Tables, hash uint64) string {
	if tables == nil {
		return fnvhash.HexU64(hash)
	}
	return tables.ResolveHash64(hash)
}
