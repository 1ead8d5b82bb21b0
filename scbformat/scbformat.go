// Package scbformat implements the SCB static-object mesh codec (C7), per
// spec §4.7.
package scbformat

import (
	"errors"
	"fmt"

	"github.com/frogtools/bumpath/internal/bstream"
)

const Magic = "r3d2Mesh"

var ErrBadMagic = errors.New("scbformat: bad magic")
var ErrUnsupportedVersion = errors.New("scbformat: unsupported version")

// Version identifies a (major, minor) pair. Only 3.2, 3.1, and 2.1 are
// accepted on read (§4.7); the writer always emits 3.2.
type Version struct {
	Major, Minor uint16
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

var acceptedVersions = map[Version]bool{
	{3, 2}: true,
	{3, 1}: true,
	{2, 1}: true,
}

// Face is one triangle: three vertex indices, a material name, and
// per-vertex UVs.
type Face struct {
	Indices  [3]uint32
	Material string
	U        [3]float32
	V        [3]float32
}

func (f Face) degenerate() bool {
	return f.Indices[0] == f.Indices[1] || f.Indices[1] == f.Indices[2] || f.Indices[0] == f.Indices[2]
}

// Mesh is a fully parsed SCB static object.
type Mesh struct {
	Version    Version
	Name       string
	Flags      uint32
	VertexType uint32
	BBoxMin    [3]float32
	BBoxMax    [3]float32
	Positions  []Vec3
	Colors     []RGBA // len(Colors) == len(Positions) iff VertexType >= 1
	Central    Vec3
	Faces      []Face
}

type Vec3 = [3]float32
type RGBA = [4]uint8

// Parse decodes a complete SCB file, per §4.7. Degenerate faces are
// skipped.
func Parse(buf []byte) (*Mesh, error) {
	r := bstream.NewReader(buf)

	magic, err := r.Bytes(8)
	if err != nil {
		return nil, fmt.Errorf("scbformat: reading magic: %w", err)
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("scbformat: magic %q: %w", magic, ErrBadMagic)
	}

	major, err := r.U16()
	if err != nil {
		return nil, err
	}
	minor, err := r.U16()
	if err != nil {
		return nil, err
	}
	version := Version{major, minor}
	if !acceptedVersions[version] {
		return nil, fmt.Errorf("scbformat: version %s: %w", version, ErrUnsupportedVersion)
	}

	name, err := r.PaddedString(128)
	if err != nil {
		return nil, fmt.Errorf("scbformat: reading name: %w", err)
	}

	vertexCount, err := r.U32()
	if err != nil {
		return nil, err
	}
	faceCount, err := r.U32()
	if err != nil {
		return nil, err
	}
	flags, err := r.U32()
	if err != nil {
		return nil, err
	}
	bboxMin, err := r.Vec3()
	if err != nil {
		return nil, err
	}
	bboxMax, err := r.Vec3()
	if err != nil {
		return nil, err
	}

	var vertexType uint32
	if version.Major == 3 && version.Minor == 2 {
		vertexType, err = r.U32()
		if err != nil {
			return nil, err
		}
	}

	positions := make([]Vec3, vertexCount)
	for i := range positions {
		positions[i], err = r.Vec3()
		if err != nil {
			return nil, fmt.Errorf("scbformat: reading position[%d]: %w", i, err)
		}
	}

	var colors []RGBA
	if vertexType >= 1 {
		colors = make([]RGBA, vertexCount)
		for i := range colors {
			colors[i], err = r.RGBA()
			if err != nil {
				return nil, fmt.Errorf("scbformat: reading color[%d]: %w", i, err)
			}
		}
	}

	central, err := r.Vec3()
	if err != nil {
		return nil, err
	}

	faces := make([]Face, 0, faceCount)
	for i := uint32(0); i < faceCount; i++ {
		f, err := readFace(r)
		if err != nil {
			return nil, fmt.Errorf("scbformat: reading face[%d]: %w", i, err)
		}
		if f.degenerate() {
			continue
		}
		faces = append(faces, f)
	}

	return &Mesh{
		Version: version, Name: name, Flags: flags, VertexType: vertexType,
		BBoxMin: bboxMin, BBoxMax: bboxMax, Positions: positions, Colors: colors,
		Central: central, Faces: faces,
	}, nil
}

func readFace(r *bstream.Reader) (Face, error) {
	var f Face
	for i := 0; i < 3; i++ {
		v, err := r.U32()
		if err != nil {
			return f, err
		}
		f.Indices[i] = v
	}
	material, err := r.PaddedString(64)
	if err != nil {
		return f, err
	}
	f.Material = material

	var u, v [3]float32
	for i := 0; i < 3; i++ {
		val, err := r.F32()
		if err != nil {
			return f, err
		}
		u[i] = val
	}
	for i := 0; i < 3; i++ {
		val, err := r.F32()
		if err != nil {
			return f, err
		}
		v[i] = val
	}
	f.U, f.V = u, v
	return f, nil
}

// BoundingBox recomputes the min/max corners of m.Positions. Called by
// Serialize, and exposed so callers can verify a mesh's stored bbox
// without re-encoding it.
func (m *Mesh) BoundingBox() (min, max Vec3) {
	if len(m.Positions) == 0 {
		return Vec3{}, Vec3{}
	}
	min, max = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	return min, max
}

// Serialize encodes m as a version 3.2 SCB file, with vertex_type forced
// to 0, the name field blanked, and the bounding box recomputed from
// m.Positions, per §4.7's writer rules.
func Serialize(m *Mesh) ([]byte, error) {
	w := bstream.NewWriter()
	w.Raw([]byte(Magic))
	w.U16(3)
	w.U16(2)
	if err := w.PaddedString("", 128); err != nil {
		return nil, err
	}
	faceCount := 0
	for _, f := range m.Faces {
		if !f.degenerate() {
			faceCount++
		}
	}
	w.U32(uint32(len(m.Positions)))
	w.U32(uint32(faceCount))
	w.U32(m.Flags)

	min, max := m.BoundingBox()
	w.Vec3(min)
	w.Vec3(max)
	w.U32(0) // vertex_type always 0 on write

	for _, p := range m.Positions {
		w.Vec3(p)
	}
	// vertex_type == 0: no per-vertex color block emitted.

	w.Vec3(m.Central)

	lastMaterial := ""
	for _, f := range m.Faces {
		if f.Material != "" {
			lastMaterial = f.Material
		}
	}

	for _, f := range m.Faces {
		if f.degenerate() {
			continue
		}
		for _, idx := range f.Indices {
			w.U32(idx)
		}
		material := f.Material
		if material == "" {
			material = lastMaterial
		}
		if err := w.PaddedString(material, 64); err != nil {
			return nil, err
		}
		for _, u := range f.U {
			w.F32(u)
		}
		for _, v := range f.V {
			w.F32(v)
		}
	}

	return w.Bytes(), nil
}
