package refwalk

import (
	"testing"

	"github.com/frogtools/bumpath/binformat"
	"github.com/frogtools/bumpath/internal/fnvhash"
	"github.com/frogtools/bumpath/internal/hashtable"
	"github.com/stretchr/testify/require"
)

func TestFileReferenceResolvedAgainstTable(t *testing.T) {
	tables, err := hashtable.Load(t.TempDir(), hashtable.Selection{})
	require.NoError(t, err)
	tables.Put64("textures/base.dds")
	tables.Put32("diffuse")

	entry := &binformat.Entry{
		EntryHash: 1,
		Fields: []binformat.Field{
			{NameHash: fnvhash.FNV1a32("diffuse"), Value: binformat.VFile(fnvhash.XXH64("textures/base.dds"))},
		},
	}
	refs, err := Walk(entry, Options{Tables: tables})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, KindFile, refs[0].Kind)
	require.Equal(t, "textures/base.dds", refs[0].Value)
	require.Equal(t, "diffuse", refs[0].FieldPath)
}

func TestUnknownFileHashPreservedAsHex(t *testing.T) {
	tables, err := hashtable.Load(t.TempDir(), hashtable.Selection{})
	require.NoError(t, err)

	h := fnvhash.XXH64("unknown/path.dds")
	entry := &binformat.Entry{
		EntryHash: 1,
		Fields: []binformat.Field{
			{NameHash: 1, Value: binformat.VFile(h)},
		},
	}
	refs, err := Walk(entry, Options{Tables: tables})
	require.NoError(t, err)
	require.Equal(t, fnvhash.HexU64(h), refs[0].Value)
}

func TestLinkReferenceResolvedAgainstEntryTable(t *testing.T) {
	tables, err := hashtable.Load(t.TempDir(), hashtable.Selection{})
	require.NoError(t, err)
	tables.Put32("SomeOtherEntry")

	entry := &binformat.Entry{
		EntryHash: 1,
		Fields: []binformat.Field{
			{NameHash: 1, Value: binformat.VLink(fnvhash.FNV1a32("SomeOtherEntry"))},
		},
	}
	refs, err := Walk(entry, Options{Tables: tables})
	require.NoError(t, err)
	require.Equal(t, KindLink, refs[0].Kind)
	require.Equal(t, "SomeOtherEntry", refs[0].Value)
}

func TestDenylistedStringWithExtensionEmittedAsFile(t *testing.T) {
	tables, err := hashtable.Load(t.TempDir(), hashtable.Selection{})
	require.NoError(t, err)
	tables.Put32("texture")

	entry := &binformat.Entry{
		EntryHash: 1,
		Fields: []binformat.Field{
			{NameHash: fnvhash.FNV1a32("texture"), Value: binformat.VString("assets/foo.tex")},
		},
	}
	refs, err := Walk(entry, Options{Tables: tables})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, KindFile, refs[0].Kind)
	require.Equal(t, "assets/foo.tex", refs[0].Value)
}

func TestNonDenylistedStringIgnored(t *testing.T) {
	entry := &binformat.Entry{
		EntryHash: 1,
		Fields: []binformat.Field{
			{NameHash: fnvhash.FNV1a32("displayName"), Value: binformat.VString("assets/foo.tex")},
		},
	}
	refs, err := Walk(entry, Options{})
	require.NoError(t, err)
	require.Empty(t, refs)
}

func TestDenylistedStringWithoutExtensionIgnored(t *testing.T) {
	tables, err := hashtable.Load(t.TempDir(), hashtable.Selection{})
	require.NoError(t, err)
	tables.Put32("skeleton")

	entry := &binformat.Entry{
		EntryHash: 1,
		Fields: []binformat.Field{
			{NameHash: fnvhash.FNV1a32("skeleton"), Value: binformat.VString("no-extension-here")},
		},
	}
	refs, err := Walk(entry, Options{Tables: tables})
	require.NoError(t, err)
	require.Empty(t, refs)
}

func TestListBreadcrumbsCarryIndex(t *testing.T) {
	tables, err := hashtable.Load(t.TempDir(), hashtable.Selection{})
	require.NoError(t, err)
	tables.Put32("materialOverride")

	entry := &binformat.Entry{
		EntryHash: 1,
		Fields: []binformat.Field{
			{NameHash: fnvhash.FNV1a32("materialOverride"), Value: binformat.VList{
				Inner: binformat.TagFile,
				Items: []binformat.Value{binformat.VFile(1), binformat.VFile(2)},
			}},
		},
	}
	refs, err := Walk(entry, Options{Tables: tables})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.Equal(t, "materialOverride[0]", refs[0].FieldPath)
	require.Equal(t, "materialOverride[1]", refs[1].FieldPath)
}

func TestPointerDescendsAndAppendsFieldName(t *testing.T) {
	tables, err := hashtable.Load(t.TempDir(), hashtable.Selection{})
	require.NoError(t, err)
	tables.Put32("materialOverride")
	tables.Put32("material")

	entry := &binformat.Entry{
		EntryHash: 1,
		Fields: []binformat.Field{
			{NameHash: fnvhash.FNV1a32("materialOverride"), Value: binformat.VList{
				Inner: binformat.TagEmbed,
				Items: []binformat.Value{
					binformat.VEmbed{
						TypeHash: 1,
						Fields: []binformat.Field{
							{NameHash: fnvhash.FNV1a32("material"), Value: binformat.VFile(7)},
						},
					},
				},
			}},
		},
	}
	refs, err := Walk(entry, Options{Tables: tables})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, "materialOverride[0].material", refs[0].FieldPath)
}

func TestNullPointerSkipped(t *testing.T) {
	entry := &binformat.Entry{
		EntryHash: 1,
		Fields: []binformat.Field{
			{NameHash: 1, Value: binformat.VPointer{TypeHash: 0}},
		},
	}
	refs, err := Walk(entry, Options{})
	require.NoError(t, err)
	require.Empty(t, refs)
}

func TestAbsentOptionSkipped(t *testing.T) {
	entry := &binformat.Entry{
		EntryHash: 1,
		Fields: []binformat.Field{
			{NameHash: 1, Value: binformat.VOption{Inner: binformat.TagFile}},
		},
	}
	refs, err := Walk(entry, Options{})
	require.NoError(t, err)
	require.Empty(t, refs)
}

func TestExistsFuncConsulted(t *testing.T) {
	entry := &binformat.Entry{
		EntryHash: 1,
		Fields: []binformat.Field{
			{NameHash: 1, Value: binformat.VFile(fnvhash.XXH64("present.dds"))},
		},
	}
	exists := func(v string) bool { return v == fnvhash.HexU64(fnvhash.XXH64("present.dds")) }
	refs, err := Walk(entry, Options{Exists: ExistsFunc(exists)})
	require.NoError(t, err)
	require.True(t, refs[0].Exists)
}
