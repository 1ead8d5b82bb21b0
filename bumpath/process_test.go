package bumpath

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/frogtools/bumpath/binformat"
	"github.com/frogtools/bumpath/internal/fnvhash"
	"github.com/stretchr/testify/require"
)

func TestProcessCopiesAndRewritesBin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "characters/foo/foo.bin", buildFooBin(t))
	writeFile(t, dir, "characters/foo/textures/base.dds", []byte("ddsdata"))

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	tables := buildFooTables(t)

	result, err := Scan(idx, tables, []string{"characters/foo/foo.bin"}, "bum", nil)
	require.NoError(t, err)

	outDir := t.TempDir()
	report, err := Process(context.Background(), idx, result, tables, outDir, ProcessOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, report.FilesCopied)
	require.Equal(t, 1, report.BinsWritten)

	assetOut := filepath.Join(outDir, "bum", "characters", "foo", "textures", "base.dds")
	data, err := os.ReadFile(assetOut)
	require.NoError(t, err)
	require.Equal(t, "ddsdata", string(data))

	binOut := filepath.Join(outDir, "bum", "characters", "foo", "foo.bin")
	raw, err := os.ReadFile(binOut)
	require.NoError(t, err)
	parsed, err := binformat.Parse(raw, binformat.ReadOptions{})
	require.NoError(t, err)
	gotFile := parsed.Entries[0].Fields[0].Value.(binformat.VFile)
	require.Equal(t, fnvhash.XXH64("bum/characters/foo/textures/base.dds"), uint64(gotFile))
}

func TestProcessMissingResourceFailsWithoutIgnoreMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "characters/foo/foo.bin", buildFooBin(t))
	// base.dds missing

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	tables := buildFooTables(t)

	result, err := Scan(idx, tables, []string{"characters/foo/foo.bin"}, "bum", nil)
	require.NoError(t, err)

	_, err = Process(context.Background(), idx, result, tables, t.TempDir(), ProcessOptions{})
	require.Error(t, err)
	var missing *ResourceMissing
	require.ErrorAs(t, err, &missing)
}

func TestProcessIgnoreMissingSkipsAndWarns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "characters/foo/foo.bin", buildFooBin(t))

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	tables := buildFooTables(t)

	result, err := Scan(idx, tables, []string{"characters/foo/foo.bin"}, "bum", nil)
	require.NoError(t, err)

	report, err := Process(context.Background(), idx, result, tables, t.TempDir(), ProcessOptions{IgnoreMissing: true})
	require.NoError(t, err)
	require.Equal(t, 0, report.FilesCopied)
	require.Equal(t, 1, report.BinsWritten)
	require.Len(t, report.Warnings, 1)
}

func TestProcessSkipsUneditableBin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "characters/foo/foo.bin", buildFooBin(t))
	writeFile(t, dir, "characters/foo/textures/base.dds", []byte("ddsdata"))

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	tables := buildFooTables(t)

	uneditable := map[uint32]bool{1: true}
	result, err := Scan(idx, tables, []string{"characters/foo/foo.bin"}, "bum", uneditable)
	require.NoError(t, err)

	outDir := t.TempDir()
	report, err := Process(context.Background(), idx, result, tables, outDir, ProcessOptions{})
	require.NoError(t, err)
	require.Equal(t, 0, report.FilesCopied)
	require.Equal(t, 0, report.BinsWritten)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestProcessPathTooLongFailsByDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "characters/foo/foo.bin", buildFooBin(t))
	writeFile(t, dir, "characters/foo/textures/base.dds", []byte("ddsdata"))

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	tables := buildFooTables(t)

	longPrefix := ""
	for i := 0; i < 50; i++ {
		longPrefix += "verylongsegment/"
	}
	result, err := Scan(idx, tables, []string{"characters/foo/foo.bin"}, longPrefix, nil)
	require.NoError(t, err)

	_, err = Process(context.Background(), idx, result, tables, t.TempDir(), ProcessOptions{})
	require.Error(t, err)
	var tooLong *PathTooLong
	require.ErrorAs(t, err, &tooLong)
}
