package binformat

import (
	"strings"
	"testing"

	"github.com/frogtools/bumpath/internal/bstream"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, f *File) *File {
	t.Helper()
	b, err := Serialize(f)
	require.NoError(t, err)
	got, err := Parse(b, ReadOptions{})
	require.NoError(t, err)
	return got
}

func TestE1PrimitiveFieldRoundTrip(t *testing.T) {
	f := &File{
		Magic:   MagicProp,
		Version: 2,
		Entries: []Entry{
			{
				TypeHash:  0xDEADBEEF,
				EntryHash: 0x00000001,
				Fields: []Field{
					{NameHash: 0xABCD1234, Value: VF32(1.5)},
				},
			},
		},
	}
	b1, err := Serialize(f)
	require.NoError(t, err)
	got := roundTrip(t, f)
	b2, err := Serialize(got)
	require.NoError(t, err)
	require.Equal(t, b1, b2)
	require.Equal(t, f, got)
}

func TestE2ListByteSize(t *testing.T) {
	f := &File{
		Magic:   MagicProp,
		Version: 2,
		Entries: []Entry{
			{
				TypeHash:  1,
				EntryHash: 1,
				Fields: []Field{
					{NameHash: 2, Value: VList{Inner: TagI32, Items: []Value{VI32(1), VI32(2), VI32(3)}}},
				},
			},
		},
	}
	b, err := Serialize(f)
	require.NoError(t, err)
	got, err := Parse(b, ReadOptions{})
	require.NoError(t, err)
	require.Equal(t, f, got)

	// byte_size = 4 (count) + 3*4 (items) = 16, located right after the
	// inner tag byte, within the single field's payload.
	list := got.Entries[0].Fields[0].Value.(VList)
	require.Equal(t, 3, len(list.Items))

	// Offset 36 = magic(4) + version(4) + linked_count(4) + entry_count(4)
	// + entry type(4) + entry size(4) + entry hash(4) + field_count(2)
	// + name_hash(4) + tag(1) + inner tag(1).
	r := bstream.NewReader(b)
	require.NoError(t, r.Seek(36))
	size, err := r.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(16), size)
}

func TestZeroEntryFile(t *testing.T) {
	f := &File{Magic: MagicProp, Version: 2}
	got := roundTrip(t, f)
	require.Equal(t, 0, len(got.Entries))
}

func TestNestedListOfLists(t *testing.T) {
	f := &File{
		Magic:   MagicProp,
		Version: 2,
		Entries: []Entry{{
			TypeHash:  1,
			EntryHash: 1,
			Fields: []Field{{
				NameHash: 1,
				Value: VList{
					Inner: TagList,
					Items: []Value{
						VList{Inner: TagI8, Items: []Value{VI8(1), VI8(2)}},
						VList{Inner: TagI8, Items: []Value{}},
					},
				},
			}},
		}},
	}
	got := roundTrip(t, f)
	require.Equal(t, f, got)
}

func TestPointerNullNoBody(t *testing.T) {
	f := &File{
		Magic:   MagicProp,
		Version: 2,
		Entries: []Entry{{
			TypeHash: 1, EntryHash: 1,
			Fields: []Field{{NameHash: 1, Value: VPointer{TypeHash: 0}}},
		}},
	}
	b, err := Serialize(f)
	require.NoError(t, err)
	got, err := Parse(b, ReadOptions{})
	require.NoError(t, err)
	require.True(t, got.Entries[0].Fields[0].Value.(VPointer).IsNull())
}

func TestOptionAbsent(t *testing.T) {
	f := &File{
		Magic:   MagicProp,
		Version: 2,
		Entries: []Entry{{
			TypeHash: 1, EntryHash: 1,
			Fields: []Field{{NameHash: 1, Value: VOption{Inner: TagU32}}},
		}},
	}
	got := roundTrip(t, f)
	require.False(t, got.Entries[0].Fields[0].Value.(VOption).HasValue())
}

func TestStringLengthBoundaries(t *testing.T) {
	longStr := strings.Repeat("x", 65535)
	f := &File{
		Magic:   MagicProp,
		Version: 2,
		Entries: []Entry{{
			TypeHash: 1, EntryHash: 1,
			Fields: []Field{
				{NameHash: 1, Value: VString("")},
				{NameHash: 2, Value: VString(longStr)},
			},
		}},
	}
	got := roundTrip(t, f)
	require.Equal(t, VString(""), got.Entries[0].Fields[0].Value)
	require.Equal(t, VString(longStr), got.Entries[0].Fields[1].Value)
}

func TestStringTooLongRejected(t *testing.T) {
	f := &File{
		Magic:   MagicProp,
		Version: 2,
		Entries: []Entry{{
			TypeHash: 1, EntryHash: 1,
			Fields: []Field{{NameHash: 1, Value: VString(strings.Repeat("x", 65536))}},
		}},
	}
	_, err := Serialize(f)
	require.Error(t, err)
}

func TestDuplicateEntryRejectedOnRead(t *testing.T) {
	// Both entries share EntryHash 42 with zero fields, so their encoded
	// bodies are byte-identical; build the file by hand (rather than via
	// Serialize, which has its own duplicate guard) to exercise Parse's
	// independently.
	w := bstream.NewWriter()
	w.Raw([]byte(MagicProp))
	w.U32(2)          // version
	w.U32(0)          // linked_count
	w.U32(2)          // entry_count
	w.U32(1)          // entry_types[0]
	w.U32(1)          // entry_types[1]
	for i := 0; i < 2; i++ {
		sizeOff := w.ReserveU32()
		start := w.Tell()
		w.U32(42) // entry_hash
		w.U16(0)  // field_count
		w.PatchU32(sizeOff, w.SizeSince(start))
	}
	_, err := Parse(w.Bytes(), ReadOptions{})
	require.ErrorIs(t, err, ErrDuplicateEntry)
}

func TestApplyPatchReplacesValue(t *testing.T) {
	base := &File{
		Magic:   MagicProp,
		Version: 2,
		Entries: []Entry{{
			TypeHash: 1, EntryHash: 1,
			Fields: []Field{{NameHash: fnv32("power"), Value: VF32(1.0)}},
		}},
	}
	patch := &File{
		Magic:          MagicPtch,
		Version:        1,
		Patch:          &PatchHeader{BaseVersion: 2},
		LinkedPaths:    []string{"base.bin"},
		PatchOverrides: []PatchOverride{{EntryHash: 1, FieldPath: "power", Value: VF32(9.0)}},
	}
	out, err := ApplyPatch(base, patch)
	require.NoError(t, err)
	entry, ok := out.EntryByHash(1)
	require.True(t, ok)
	f, ok := entry.FieldByHash(fnv32("power"))
	require.True(t, ok)
	require.Equal(t, VF32(9.0), f.Value)
	// base untouched
	baseEntry, _ := base.EntryByHash(1)
	bf, _ := baseEntry.FieldByHash(fnv32("power"))
	require.Equal(t, VF32(1.0), bf.Value)
}

func TestApplyPatchUnknownEntryFails(t *testing.T) {
	base := &File{Magic: MagicProp, Version: 2}
	patch := &File{
		Magic:          MagicPtch,
		Version:        1,
		Patch:          &PatchHeader{},
		PatchOverrides: []PatchOverride{{EntryHash: 99, FieldPath: "x", Value: VBool(true)}},
	}
	_, err := ApplyPatch(base, patch)
	require.ErrorIs(t, err, ErrUnresolvedPatchBase)
}

func TestFieldPathWithIndex(t *testing.T) {
	segs, err := ParseFieldPath("materialOverride[3].material")
	require.NoError(t, err)
	require.Equal(t, []PathSegment{
		{Name: "materialOverride", HasIndex: true, Index: 3},
		{Name: "material"},
	}, segs)
	require.Equal(t, "materialOverride[3].material", FormatFieldPath(segs))
}

func TestLegacyTagShift(t *testing.T) {
	require.Equal(t, TagPointer, Tag(129).Normalize(true)) // raw 129 -> modern 130 (pointer)
	require.Equal(t, TagList2, Tag(129).Normalize(false))  // no shift when not legacy
	require.Equal(t, TagU8, Tag(3).Normalize(true))        // below threshold: unchanged
}

func fnv32(s string) uint32 {
	const offset = 0x811C9DC5
	const prime = 0x01000193
	h := uint32(offset)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		h ^= uint32(c)
		h *= prime
	}
	return h
}
