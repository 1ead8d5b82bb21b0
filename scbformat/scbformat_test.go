package scbformat

import (
	"testing"

	"github.com/frogtools/bumpath/internal/bstream"
	"github.com/stretchr/testify/require"
)

func buildMinimalSCB(t *testing.T, major, minor uint16, positions []Vec3, faces []Face) []byte {
	t.Helper()
	w := bstream.NewWriter()
	w.Raw([]byte(Magic))
	w.U16(major)
	w.U16(minor)
	require.NoError(t, w.PaddedString("testmesh", 128))
	w.U32(uint32(len(positions)))
	w.U32(uint32(len(faces)))
	w.U32(0) // flags
	w.Vec3(Vec3{0, 0, 0})
	w.Vec3(Vec3{1, 1, 1})
	if major == 3 && minor == 2 {
		w.U32(0) // vertex_type
	}
	for _, p := range positions {
		w.Vec3(p)
	}
	w.Vec3(Vec3{0, 0, 0}) // central
	for _, f := range faces {
		for _, idx := range f.Indices {
			w.U32(idx)
		}
		require.NoError(t, w.PaddedString(f.Material, 64))
		for _, u := range f.U {
			w.F32(u)
		}
		for _, v := range f.V {
			w.F32(v)
		}
	}
	return w.Bytes()
}

func TestParseV32WithFaces(t *testing.T) {
	positions := []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	faces := []Face{{Indices: [3]uint32{0, 1, 2}, Material: "mat1", U: [3]float32{0, 1, 0}, V: [3]float32{0, 0, 1}}}
	buf := buildMinimalSCB(t, 3, 2, positions, faces)

	mesh, err := Parse(buf)
	require.NoError(t, err)
	require.Equal(t, Version{3, 2}, mesh.Version)
	require.Equal(t, "testmesh", mesh.Name)
	require.Equal(t, positions, mesh.Positions)
	require.Len(t, mesh.Faces, 1)
	require.Equal(t, "mat1", mesh.Faces[0].Material)
}

func TestDegenerateFacesSkippedOnRead(t *testing.T) {
	positions := []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	faces := []Face{
		{Indices: [3]uint32{0, 1, 2}, Material: "mat1"},
		{Indices: [3]uint32{0, 0, 2}, Material: "mat1"}, // i0 == i1
		{Indices: [3]uint32{1, 2, 1}, Material: "mat1"}, // i0 == i2
	}
	buf := buildMinimalSCB(t, 3, 2, positions, faces)

	mesh, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, mesh.Faces, 1)
}

func TestZeroFaceCount(t *testing.T) {
	positions := []Vec3{{0, 0, 0}}
	buf := buildMinimalSCB(t, 3, 2, positions, nil)
	mesh, err := Parse(buf)
	require.NoError(t, err)
	require.Empty(t, mesh.Faces)
}

func TestVersion31HasNoVertexType(t *testing.T) {
	positions := []Vec3{{0, 0, 0}}
	buf := buildMinimalSCB(t, 3, 1, positions, nil)
	mesh, err := Parse(buf)
	require.NoError(t, err)
	require.Equal(t, uint32(0), mesh.VertexType)
	require.Nil(t, mesh.Colors)
}

func TestVersion21Accepted(t *testing.T) {
	positions := []Vec3{{0, 0, 0}}
	buf := buildMinimalSCB(t, 2, 1, positions, nil)
	_, err := Parse(buf)
	require.NoError(t, err)
}

func TestUnsupportedVersionRejected(t *testing.T) {
	positions := []Vec3{{0, 0, 0}}
	buf := buildMinimalSCB(t, 4, 0, positions, nil)
	_, err := Parse(buf)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestBadMagicRejected(t *testing.T) {
	buf := buildMinimalSCB(t, 3, 2, nil, nil)
	buf[0] ^= 0xFF
	_, err := Parse(buf)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestSerializeRoundTripRecomputesBBoxAndForcesV32(t *testing.T) {
	m := &Mesh{
		Version:   Version{3, 1},
		Name:      "original-name",
		Positions: []Vec3{{-1, 2, 0}, {3, -4, 5}, {0, 0, 0}},
		Central:   Vec3{1, 1, 1},
		Faces: []Face{
			{Indices: [3]uint32{0, 1, 2}, Material: "mat1", U: [3]float32{0, 1, 0}, V: [3]float32{0, 0, 1}},
		},
	}

	buf, err := Serialize(m)
	require.NoError(t, err)
	got, err := Parse(buf)
	require.NoError(t, err)

	require.Equal(t, Version{3, 2}, got.Version)
	require.Equal(t, "", got.Name)
	require.Equal(t, uint32(0), got.VertexType)
	require.Equal(t, Vec3{-1, -4, 0}, got.BBoxMin)
	require.Equal(t, Vec3{3, 2, 5}, got.BBoxMax)
	require.Equal(t, m.Positions, got.Positions)
	require.Len(t, got.Faces, 1)
	require.Equal(t, "mat1", got.Faces[0].Material)
}

func TestSerializeDropsDegenerateFaces(t *testing.T) {
	m := &Mesh{
		Positions: []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces: []Face{
			{Indices: [3]uint32{0, 1, 2}, Material: "mat1"},
			{Indices: [3]uint32{1, 1, 2}, Material: "mat1"},
		},
	}
	buf, err := Serialize(m)
	require.NoError(t, err)
	got, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, got.Faces, 1)
}

func TestBoundingBoxEmptyMesh(t *testing.T) {
	m := &Mesh{}
	min, max := m.BoundingBox()
	require.Equal(t, Vec3{}, min)
	require.Equal(t, Vec3{}, max)
}
