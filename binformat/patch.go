package binformat

import "fmt"

// ApplyPatch layers patch's overrides onto a clone of base, per §4.4.4.
// base must not be a patch file itself; patch must be one. The returned
// File is a new value; base is not mutated.
func ApplyPatch(base *File, patch *File) (*File, error) {
	if base.IsPatch() {
		return nil, fmt.Errorf("binformat: base file is itself a PTCH file")
	}
	if !patch.IsPatch() {
		return nil, fmt.Errorf("binformat: patch file is not PTCH")
	}

	out := cloneFile(base)
	for i, ov := range patch.PatchOverrides {
		entry, ok := out.EntryByHash(ov.EntryHash)
		if !ok {
			return nil, fmt.Errorf("binformat: patch override[%d]: %w: entry %08x not found in base", i, ErrUnresolvedPatchBase, ov.EntryHash)
		}
		segs, err := ParseFieldPath(ov.FieldPath)
		if err != nil {
			return nil, fmt.Errorf("binformat: patch override[%d]: %w", i, err)
		}
		if err := SetValueAtPath(entry, segs, ov.Value); err != nil {
			return nil, fmt.Errorf("binformat: patch override[%d] (%s): %w", i, ov.FieldPath, err)
		}
	}
	return out, nil
}

func cloneFile(f *File) *File {
	out := &File{
		Magic:   f.Magic,
		Version: f.Version,
	}
	out.LinkedPaths = append([]string(nil), f.LinkedPaths...)
	out.Entries = make([]Entry, len(f.Entries))
	for i, e := range f.Entries {
		out.Entries[i] = cloneEntry(e)
	}
	return out
}

func cloneEntry(e Entry) Entry {
	fields := make([]Field, len(e.Fields))
	for i, f := range e.Fields {
		fields[i] = Field{NameHash: f.NameHash, Value: cloneValue(f.Value)}
	}
	return Entry{TypeHash: e.TypeHash, EntryHash: e.EntryHash, Fields: fields}
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case VList:
		items := make([]Value, len(val.Items))
		for i, it := range val.Items {
			items[i] = cloneValue(it)
		}
		return VList{Inner: val.Inner, Items: items, Legacy: val.Legacy}
	case VPointer:
		fields := make([]Field, len(val.Fields))
		for i, f := range val.Fields {
			fields[i] = Field{NameHash: f.NameHash, Value: cloneValue(f.Value)}
		}
		return VPointer{TypeHash: val.TypeHash, Fields: fields}
	case VEmbed:
		fields := make([]Field, len(val.Fields))
		for i, f := range val.Fields {
			fields[i] = Field{NameHash: f.NameHash, Value: cloneValue(f.Value)}
		}
		return VEmbed{TypeHash: val.TypeHash, Fields: fields}
	case VOption:
		if val.Value == nil {
			return val
		}
		return VOption{Inner: val.Inner, Value: cloneValue(val.Value)}
	case VMap:
		entries := make([]MapEntry, len(val.Entries))
		for i, e := range val.Entries {
			entries[i] = MapEntry{Key: cloneValue(e.Key), Value: cloneValue(e.Value)}
		}
		return VMap{KeyTag: val.KeyTag, ValueTag: val.ValueTag, Entries: entries}
	default:
		return v // primitives are value types, safe to share
	}
}
