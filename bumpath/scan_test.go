package bumpath

import (
	"testing"

	"github.com/frogtools/bumpath/binformat"
	"github.com/frogtools/bumpath/internal/fnvhash"
	"github.com/frogtools/bumpath/internal/hashtable"
	"github.com/frogtools/bumpath/refwalk"
	"github.com/stretchr/testify/require"
)

func buildFooBin(t *testing.T) []byte {
	t.Helper()
	f := &binformat.File{
		Magic:   binformat.MagicProp,
		Version: 2,
		Entries: []binformat.Entry{{
			TypeHash:  1,
			EntryHash: fnvhash.FNV1a32("FooSkin"),
			Fields: []binformat.Field{
				{NameHash: fnvhash.FNV1a32("texture"), Value: binformat.VFile(fnvhash.XXH64("characters/foo/textures/base.dds"))},
			},
		}},
	}
	b, err := binformat.Serialize(f)
	require.NoError(t, err)
	return b
}

func buildFooTables(t *testing.T) *hashtable.Tables {
	t.Helper()
	tables, err := hashtable.Load(t.TempDir(), hashtable.Selection{})
	require.NoError(t, err)
	tables.Put32("FooSkin")
	tables.Put64("characters/foo/textures/base.dds")
	return tables
}

func TestScanResolvesFileReferenceAndAssignsPrefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "characters/foo/foo.bin", buildFooBin(t))
	writeFile(t, dir, "characters/foo/textures/base.dds", []byte("ddsdata"))

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	tables := buildFooTables(t)

	result, err := Scan(idx, tables, []string{"characters/foo/foo.bin"}, "bum", nil)
	require.NoError(t, err)
	require.Len(t, result.Bins, 1)
	require.Len(t, result.Bins[0].Entries, 1)

	entry := result.Bins[0].Entries[0]
	require.Equal(t, "FooSkin", entry.Name)
	require.Equal(t, "bum", entry.Prefix)
	require.Len(t, entry.References, 1)
	ref := entry.References[0]
	require.Equal(t, refwalk.KindFile, ref.Kind)
	require.Equal(t, "characters/foo/textures/base.dds", ref.Value)
	require.True(t, ref.Exists)
}

func TestScanMarksUneditableType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "characters/foo/foo.bin", buildFooBin(t))
	writeFile(t, dir, "characters/foo/textures/base.dds", []byte("ddsdata"))

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	tables := buildFooTables(t)

	uneditable := map[uint32]bool{1: true} // TypeHash 1, the only entry's type
	result, err := Scan(idx, tables, []string{"characters/foo/foo.bin"}, "bum", uneditable)
	require.NoError(t, err)
	require.Equal(t, UneditablePrefix, result.Bins[0].Entries[0].Prefix)
}

func TestScanMissingFileReportedAsNotExisting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "characters/foo/foo.bin", buildFooBin(t))
	// base.dds deliberately not written.

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	tables := buildFooTables(t)

	result, err := Scan(idx, tables, []string{"characters/foo/foo.bin"}, "bum", nil)
	require.NoError(t, err)
	require.False(t, result.Bins[0].Entries[0].References[0].Exists)
}

func TestScanRejectsAnimationBinSelection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "characters/foo/animations/run.bin", buildFooBin(t))

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	tables := buildFooTables(t)

	_, err = Scan(idx, tables, []string{"characters/foo/animations/run.bin"}, "bum", nil)
	require.Error(t, err)
	var semErr *SemanticError
	require.ErrorAs(t, err, &semErr)
	require.Equal(t, AnimationBinNotSelectable, semErr.Kind)
}

func TestApplyPrefixSkipsUneditable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "characters/foo/foo.bin", buildFooBin(t))
	writeFile(t, dir, "characters/foo/textures/base.dds", []byte("ddsdata"))

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	tables := buildFooTables(t)

	uneditable := map[uint32]bool{1: true}
	result, err := Scan(idx, tables, []string{"characters/foo/foo.bin"}, "bum", uneditable)
	require.NoError(t, err)

	hash := fnvhash.FNV1a32("FooSkin")
	ApplyPrefix(result, map[uint32]bool{hash: true}, "newprefix")
	entry, ok := result.EntryByHash(hash)
	require.True(t, ok)
	require.Equal(t, UneditablePrefix, entry.Prefix) // never overwritten
}
