// Package sklformat implements the SKL skeleton codec (C6): the modern,
// 0x22FD4FC3-signed joint array and influence table format, per spec
// §4.6.
package sklformat

import (
	"errors"
	"fmt"

	"github.com/frogtools/bumpath/internal/bstream"
	"github.com/frogtools/bumpath/internal/fnvhash"
)

// Signature is the 32-bit magic found at offset 4 in the modern variant.
// Legacy (pre-signature) variants are rejected (§4.6).
const Signature uint32 = 0x22FD4FC3

var ErrUnsupportedFormat = errors.New("sklformat: unsupported format")

// Quat is a 4-component quaternion, stored on disk as a Vec4.
type Quat [4]float32

// Joint is one skeleton joint record (§4.6).
type Joint struct {
	Flags    uint16
	ID       int16
	Parent   int16
	Hash     uint32
	Radius   float32

	LocalTranslate [3]float32
	LocalScale     [3]float32
	LocalRotate    Quat

	IBindTranslate [3]float32
	IBindScale     [3]float32
	IBindRotate    Quat

	Name string
}

// Skeleton is a fully parsed SKL file.
type Skeleton struct {
	Flags      uint16
	Joints     []Joint
	Influences []uint16
}

// Root returns the single joint whose Parent == -1, per the "exactly one
// joint has parent == -1" invariant (§4.6).
func (s *Skeleton) Root() (int, error) {
	root := -1
	for i, j := range s.Joints {
		if j.Parent == -1 {
			if root != -1 {
				return -1, fmt.Errorf("sklformat: multiple root joints (%d and %d)", root, i)
			}
			root = i
		}
	}
	if root == -1 {
		return -1, fmt.Errorf("sklformat: no root joint (parent == -1)")
	}
	return root, nil
}

// Children returns the indices of every joint whose Parent == id.
func (s *Skeleton) Children(id int16) []int {
	var out []int
	for i, j := range s.Joints {
		if j.Parent == id {
			out = append(out, i)
		}
	}
	return out
}

// Parse decodes a complete SKL file, per §4.6.
func Parse(buf []byte) (*Skeleton, error) {
	r := bstream.NewReader(buf)

	if _, err := r.U32(); err != nil { // fileSize, unused beyond presence
		return nil, fmt.Errorf("sklformat: reading fileSize: %w", err)
	}
	signature, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("sklformat: reading signature: %w", err)
	}
	if signature != Signature {
		return nil, fmt.Errorf("sklformat: signature %#x: %w", signature, ErrUnsupportedFormat)
	}
	version, err := r.U32()
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, fmt.Errorf("sklformat: version %d (want 0): %w", version, ErrUnsupportedFormat)
	}

	flags, err := r.U16()
	if err != nil {
		return nil, err
	}
	jointCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	influenceCount, err := r.U32()
	if err != nil {
		return nil, err
	}
	jointsOffset, err := r.I32()
	if err != nil {
		return nil, err
	}
	jointIndicesOffset, err := r.I32()
	if err != nil {
		return nil, err
	}
	influencesOffset, err := r.I32()
	if err != nil {
		return nil, err
	}
	if _, err := r.I32(); err != nil { // name_offset, unused
		return nil, err
	}
	if _, err := r.I32(); err != nil { // asset_offset, unused
		return nil, err
	}
	if _, err := r.I32(); err != nil { // joint_names_offset, unused (names read per-joint)
		return nil, err
	}
	if err := r.Pad(20); err != nil {
		return nil, err
	}
	_ = jointIndicesOffset // not needed to reconstruct joints/influences

	joints := make([]Joint, jointCount)
	for i := range joints {
		off := int(jointsOffset) + i*jointRecordSize
		if err := r.Seek(off); err != nil {
			return nil, fmt.Errorf("sklformat: seeking joint[%d]: %w", i, err)
		}
		j, err := readJoint(r)
		if err != nil {
			return nil, fmt.Errorf("sklformat: reading joint[%d]: %w", i, err)
		}
		joints[i] = j
	}

	influences := make([]uint16, influenceCount)
	if influenceCount > 0 {
		if err := r.Seek(int(influencesOffset)); err != nil {
			return nil, fmt.Errorf("sklformat: seeking influences: %w", err)
		}
		for i := range influences {
			v, err := r.U16()
			if err != nil {
				return nil, fmt.Errorf("sklformat: reading influence[%d]: %w", i, err)
			}
			influences[i] = v
		}
	}

	seenNames := make(map[string]bool, len(joints))
	for i, j := range joints {
		if seenNames[j.Name] {
			return nil, fmt.Errorf("sklformat: duplicate joint name %q", j.Name)
		}
		seenNames[j.Name] = true
		want := fnvhash.FNV1a32(j.Name)
		if j.Hash != want {
			return nil, fmt.Errorf("sklformat: joint[%d] %q hash %08x, expected %08x", i, j.Name, j.Hash, want)
		}
	}

	skel := &Skeleton{Flags: flags, Joints: joints, Influences: influences}
	if _, err := skel.Root(); err != nil {
		return nil, err
	}
	return skel, nil
}

// jointRecordSize is the fixed size, in bytes, of one on-disk joint
// record up to and including name_offset_rel (§4.6).
const jointRecordSize = 2 + 2 + 2 + 2 + 4 + 4 + 12 + 12 + 16 + 12 + 12 + 16 + 4

func readJoint(r *bstream.Reader) (Joint, error) {
	var j Joint
	flags, err := r.U16()
	if err != nil {
		return j, err
	}
	id, err := r.I16()
	if err != nil {
		return j, err
	}
	parent, err := r.I16()
	if err != nil {
		return j, err
	}
	if err := r.Pad(2); err != nil {
		return j, err
	}
	hash, err := r.U32()
	if err != nil {
		return j, err
	}
	radius, err := r.F32()
	if err != nil {
		return j, err
	}
	localTranslate, err := r.Vec3()
	if err != nil {
		return j, err
	}
	localScale, err := r.Vec3()
	if err != nil {
		return j, err
	}
	localRotate, err := r.Vec4()
	if err != nil {
		return j, err
	}
	ibindTranslate, err := r.Vec3()
	if err != nil {
		return j, err
	}
	ibindScale, err := r.Vec3()
	if err != nil {
		return j, err
	}
	ibindRotate, err := r.Vec4()
	if err != nil {
		return j, err
	}
	nameOffsetFieldPos := r.Tell()
	nameOffsetRel, err := r.I32()
	if err != nil {
		return j, err
	}

	savedPos := r.Tell()
	nameAbs := nameOffsetFieldPos + int(nameOffsetRel)
	if err := r.Seek(nameAbs); err != nil {
		return j, fmt.Errorf("seeking joint name: %w", err)
	}
	name, err := r.NullTerminatedString()
	if err != nil {
		return j, fmt.Errorf("reading joint name: %w", err)
	}
	if err := r.Seek(savedPos); err != nil {
		return j, err
	}

	j = Joint{
		Flags: flags, ID: id, Parent: parent, Hash: hash, Radius: radius,
		LocalTranslate: localTranslate, LocalScale: localScale, LocalRotate: Quat(localRotate),
		IBindTranslate: ibindTranslate, IBindScale: ibindScale, IBindRotate: Quat(ibindRotate),
		Name: name,
	}
	return j, nil
}
