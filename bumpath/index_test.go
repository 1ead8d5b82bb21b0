package bumpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel string, data []byte) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, data, 0o644))
}

func TestBuildSourceIndexClassifiesKinds(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Characters/Foo/Foo.bin", []byte("x"))
	writeFile(t, dir, "Characters/Foo/Textures/base.dds", []byte("y"))

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	require.Equal(t, 2, idx.Len())

	e, ok := idx.Get("characters/foo/foo.bin")
	require.True(t, ok)
	require.Equal(t, KindBin, e.Kind)

	e2, ok := idx.Get("characters/foo/textures/base.dds")
	require.True(t, ok)
	require.Equal(t, KindAsset, e2.Kind)
}

func TestBuildSourceIndexLastDirWins(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, dirA, "shared.bin", []byte("a"))
	writeFile(t, dirB, "shared.bin", []byte("b"))

	idx, err := BuildSourceIndex([]string{dirA, dirB})
	require.NoError(t, err)
	e, ok := idx.Get("shared.bin")
	require.True(t, ok)
	data, err := os.ReadFile(e.AbsPath)
	require.NoError(t, err)
	require.Equal(t, "b", string(data))
	require.Contains(t, idx.Shadowed(), "shared.bin")
}

func TestSelectableBinsExcludesAnimations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Characters/Foo/Foo.bin", []byte("x"))
	writeFile(t, dir, "Characters/Foo/Animations/Run.bin", []byte("x"))

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	selectable := idx.SelectableBins()
	require.Equal(t, []string{"characters/foo/foo.bin"}, selectable)
}

func TestSelectByGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Characters/Foo/Foo.bin", []byte("x"))
	writeFile(t, dir, "Characters/Bar/Bar.bin", []byte("x"))
	writeFile(t, dir, "Characters/Foo/Animations/Run.bin", []byte("x"))

	idx, err := BuildSourceIndex([]string{dir})
	require.NoError(t, err)
	got := SelectByGlob(idx, []string{"characters/foo/*"})
	require.Equal(t, []string{"characters/foo/foo.bin"}, got)
}

func TestIsAnimationBin(t *testing.T) {
	require.True(t, IsAnimationBin("characters/foo/animations/run.bin"))
	require.True(t, IsAnimationBin("animations/run.bin"))
	require.False(t, IsAnimationBin("characters/foo/foo.bin"))
}
