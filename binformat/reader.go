package binformat

import (
	"fmt"

	"github.com/frogtools/bumpath/internal/bstream"
)

// ReadOptions controls how Parse interprets a byte stream.
type ReadOptions struct {
	// LegacyRead indicates the input uses the pre-129-shift tag numbering
	// (§4.4.3).
	LegacyRead bool
}

// Parse decodes a complete BIN file from buf (§4.4.1). It does not
// resolve PTCH base files; call ApplyPatch separately once the base has
// been loaded (see §4.4.4 and the bumpath engine, which is the only
// caller that has access to a source index capable of resolving linked
// paths).
func Parse(buf []byte, opts ReadOptions) (*File, error) {
	r := bstream.NewReader(buf).WithLegacyTags(opts.LegacyRead)

	magicBytes, err := r.Bytes(4)
	if err != nil {
		return nil, fmt.Errorf("binformat: reading magic: %w", err)
	}
	magic := string(magicBytes)
	if magic != MagicProp && magic != MagicPtch {
		return nil, fmt.Errorf("binformat: magic %q: %w", magic, ErrBadMagic)
	}

	version, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("binformat: reading version: %w", err)
	}

	f := &File{Magic: magic, Version: version}

	if magic == MagicPtch {
		baseVersion, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("binformat: reading patch base_version: %w", err)
		}
		baseLinkedCount, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("binformat: reading patch base_linked_count: %w", err)
		}
		baseLinked := make([]string, baseLinkedCount)
		for i := range baseLinked {
			s, err := r.LenString()
			if err != nil {
				return nil, fmt.Errorf("binformat: reading patch base_linked_paths[%d]: %w", i, err)
			}
			baseLinked[i] = s
		}
		f.Patch = &PatchHeader{BaseVersion: baseVersion, BaseLinked: baseLinked}
	}

	if version >= 2 {
		linkedCount, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("binformat: reading linked_count: %w", err)
		}
		linked := make([]string, linkedCount)
		for i := range linked {
			s, err := r.LenString()
			if err != nil {
				return nil, fmt.Errorf("binformat: reading linked_paths[%d]: %w", i, err)
			}
			linked[i] = s
		}
		if linkedCount > 0 {
			f.LinkedPaths = linked
		}
	}

	entryCount, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("binformat: reading entry_count: %w", err)
	}
	types := make([]uint32, entryCount)
	for i := range types {
		th, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("binformat: reading entry_types[%d]: %w", i, err)
		}
		types[i] = th
	}

	seen := make(map[uint32]bool, entryCount)
	entries := make([]Entry, entryCount)
	for i := range entries {
		e, err := readEntry(r, types[i])
		if err != nil {
			return nil, fmt.Errorf("binformat: reading entry[%d]: %w", i, err)
		}
		if seen[e.EntryHash] {
			return nil, fmt.Errorf("binformat: entry hash %08x: %w", e.EntryHash, ErrDuplicateEntry)
		}
		seen[e.EntryHash] = true
		entries[i] = e
	}
	f.Entries = entries

	if magic == MagicPtch {
		patchCount, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("binformat: reading patch_count: %w", err)
		}
		overrides := make([]PatchOverride, patchCount)
		for i := range overrides {
			o, err := readPatchOverride(r)
			if err != nil {
				return nil, fmt.Errorf("binformat: reading patch_entries[%d]: %w", i, err)
			}
			overrides[i] = o
		}
		f.PatchOverrides = overrides
	}

	return f, nil
}

func readPatchOverride(r *bstream.Reader) (PatchOverride, error) {
	entryHash, err := r.U32()
	if err != nil {
		return PatchOverride{}, err
	}
	path, err := r.LenString()
	if err != nil {
		return PatchOverride{}, err
	}
	tagByte, err := r.U8()
	if err != nil {
		return PatchOverride{}, err
	}
	tag := Tag(tagByte).Normalize(r.LegacyTags)
	v, err := readValue(r, tag)
	if err != nil {
		return PatchOverride{}, err
	}
	return PatchOverride{EntryHash: entryHash, FieldPath: path, Value: v}, nil
}

func readEntry(r *bstream.Reader, typeHash uint32) (Entry, error) {
	size, err := r.U32()
	if err != nil {
		return Entry{}, err
	}
	startAfterSize := r.Tell()
	entryHash, err := r.U32()
	if err != nil {
		return Entry{}, err
	}
	fieldCount, err := r.U16()
	if err != nil {
		return Entry{}, err
	}
	fields := make([]Field, fieldCount)
	for i := range fields {
		fld, err := readField(r)
		if err != nil {
			return Entry{}, fmt.Errorf("field[%d]: %w", i, err)
		}
		fields[i] = fld
	}
	gotSize := uint32(r.Tell() - startAfterSize)
	if gotSize != size {
		return Entry{}, fmt.Errorf("entry %08x: declared size %d, actual %d: %w", entryHash, size, gotSize, ErrByteSizeMismatch)
	}
	return Entry{TypeHash: typeHash, EntryHash: entryHash, Fields: fields}, nil
}

func readField(r *bstream.Reader) (Field, error) {
	nameHash, err := r.U32()
	if err != nil {
		return Field{}, err
	}
	tagByte, err := r.U8()
	if err != nil {
		return Field{}, err
	}
	tag := Tag(tagByte).Normalize(r.LegacyTags)
	v, err := readValue(r, tag)
	if err != nil {
		return Field{}, fmt.Errorf("field %08x tag %s: %w", nameHash, tag, err)
	}
	return Field{NameHash: nameHash, Value: v}, nil
}

// readValue decodes one value of the given tag, per §3.3/§4.4.2.
func readValue(r *bstream.Reader, tag Tag) (Value, error) {
	switch tag {
	case TagNone:
		return VNone{}, nil
	case TagBool:
		v, err := r.Bool()
		return VBool(v), err
	case TagI8:
		v, err := r.I8()
		return VI8(v), err
	case TagU8:
		v, err := r.U8()
		return VU8(v), err
	case TagI16:
		v, err := r.I16()
		return VI16(v), err
	case TagU16:
		v, err := r.U16()
		return VU16(v), err
	case TagI32:
		v, err := r.I32()
		return VI32(v), err
	case TagU32:
		v, err := r.U32()
		return VU32(v), err
	case TagI64:
		v, err := r.I64()
		return VI64(v), err
	case TagU64:
		v, err := r.U64()
		return VU64(v), err
	case TagF32:
		v, err := r.F32()
		return VF32(v), err
	case TagVec2:
		v, err := r.Vec2()
		return VVec2(v), err
	case TagVec3:
		v, err := r.Vec3()
		return VVec3(v), err
	case TagVec4:
		v, err := r.Vec4()
		return VVec4(v), err
	case TagMtx44:
		v, err := r.Mtx44()
		return VMtx44(v), err
	case TagRGBA:
		v, err := r.RGBA()
		return VRGBA(v), err
	case TagString:
		v, err := r.LenString()
		return VString(v), err
	case TagHash:
		v, err := r.U32()
		return VHash(v), err
	case TagFile:
		v, err := r.U64()
		return VFile(v), err
	case TagLink:
		v, err := r.U32()
		return VLink(v), err
	case TagFlag:
		v, err := r.U8()
		return VFlag(v), err
	case TagList, TagList2:
		return readList(r, tag == TagList2)
	case TagPointer:
		return readPointer(r)
	case TagEmbed:
		return readEmbed(r)
	case TagOption:
		return readOption(r)
	case TagMap:
		return readMap(r)
	default:
		return nil, fmt.Errorf("tag %d: %w", uint8(tag), ErrUnknownTag)
	}
}

func readList(r *bstream.Reader, legacy bool) (Value, error) {
	innerByte, err := r.U8()
	if err != nil {
		return nil, err
	}
	inner := Tag(innerByte).Normalize(r.LegacyTags)
	byteSize, err := r.U32()
	if err != nil {
		return nil, err
	}
	start := r.Tell()
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	items := make([]Value, count)
	for i := range items {
		v, err := readValue(r, inner)
		if err != nil {
			return nil, fmt.Errorf("list item[%d]: %w", i, err)
		}
		items[i] = v
	}
	got := uint32(r.Tell() - start)
	if got != byteSize {
		return nil, fmt.Errorf("list byte_size %d, actual %d: %w", byteSize, got, ErrByteSizeMismatch)
	}
	return VList{Inner: inner, Items: items, Legacy: legacy}, nil
}

func readPointer(r *bstream.Reader) (Value, error) {
	typeHash, err := r.U32()
	if err != nil {
		return nil, err
	}
	if typeHash == 0 {
		return VPointer{TypeHash: 0}, nil
	}
	fields, err := readStructBody(r)
	if err != nil {
		return nil, err
	}
	return VPointer{TypeHash: typeHash, Fields: fields}, nil
}

func readEmbed(r *bstream.Reader) (Value, error) {
	typeHash, err := r.U32()
	if err != nil {
		return nil, err
	}
	if typeHash == 0 {
		return nil, fmt.Errorf("embed type_hash must be non-null: %w", ErrInvalidPayload)
	}
	fields, err := readStructBody(r)
	if err != nil {
		return nil, err
	}
	return VEmbed{TypeHash: typeHash, Fields: fields}, nil
}

func readStructBody(r *bstream.Reader) ([]Field, error) {
	byteSize, err := r.U32()
	if err != nil {
		return nil, err
	}
	start := r.Tell()
	fieldCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	fields := make([]Field, fieldCount)
	for i := range fields {
		fld, err := readField(r)
		if err != nil {
			return nil, fmt.Errorf("struct field[%d]: %w", i, err)
		}
		fields[i] = fld
	}
	got := uint32(r.Tell() - start)
	if got != byteSize {
		return nil, fmt.Errorf("struct byte_size %d, actual %d: %w", byteSize, got, ErrByteSizeMismatch)
	}
	return fields, nil
}

func readOption(r *bstream.Reader) (Value, error) {
	innerByte, err := r.U8()
	if err != nil {
		return nil, err
	}
	inner := Tag(innerByte).Normalize(r.LegacyTags)
	has, err := r.U8()
	if err != nil {
		return nil, err
	}
	if has == 0 {
		return VOption{Inner: inner}, nil
	}
	v, err := readValue(r, inner)
	if err != nil {
		return nil, err
	}
	return VOption{Inner: inner, Value: v}, nil
}

func readMap(r *bstream.Reader) (Value, error) {
	keyByte, err := r.U8()
	if err != nil {
		return nil, err
	}
	keyTag := Tag(keyByte).Normalize(r.LegacyTags)
	valByte, err := r.U8()
	if err != nil {
		return nil, err
	}
	valTag := Tag(valByte).Normalize(r.LegacyTags)
	byteSize, err := r.U32()
	if err != nil {
		return nil, err
	}
	start := r.Tell()
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	entries := make([]MapEntry, count)
	for i := range entries {
		k, err := readValue(r, keyTag)
		if err != nil {
			return nil, fmt.Errorf("map key[%d]: %w", i, err)
		}
		v, err := readValue(r, valTag)
		if err != nil {
			return nil, fmt.Errorf("map value[%d]: %w", i, err)
		}
		entries[i] = MapEntry{Key: k, Value: v}
	}
	got := uint32(r.Tell() - start)
	if got != byteSize {
		return nil, fmt.Errorf("map byte_size %d, actual %d: %w", byteSize, got, ErrByteSizeMismatch)
	}
	return VMap{KeyTag: keyTag, ValueTag: valTag, Entries: entries}, nil
}
