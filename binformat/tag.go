// Package binformat implements the BIN property-bag codec (C4): the
// hierarchical, hash-keyed, strongly-typed entity tree format described
// in spec §3.3-§3.6 and §4.4.
package binformat

import "fmt"

// Tag is the one-byte discriminator that selects a Value's encoding,
// per §3.3. Every BIN value is expressed as a closed Go sum type
// dispatched on Tag — no polymorphism through inheritance, per the
// redesign note in §9.
type Tag uint8

const (
	TagNone Tag = 0
	TagBool Tag = 1
	TagI8   Tag = 2
	TagU8   Tag = 3
	TagI16  Tag = 4
	TagU16  Tag = 5
	TagI32  Tag = 6
	TagU32  Tag = 7
	TagI64  Tag = 8
	TagU64  Tag = 9
	TagF32  Tag = 10
	TagVec2 Tag = 11
	TagVec3 Tag = 12
	TagVec4 Tag = 13
	TagMtx44 Tag = 14
	TagRGBA Tag = 15
	TagString Tag = 16
	TagHash Tag = 17
	TagFile Tag = 18

	TagList    Tag = 128
	TagList2   Tag = 129
	TagPointer Tag = 130
	TagEmbed   Tag = 131
	TagLink    Tag = 132
	TagOption  Tag = 133
	TagMap     Tag = 134
	TagFlag    Tag = 135
)

// legacyShiftThreshold is the boundary above which legacy-variant tag
// numbers are shifted by +1 relative to the modern numbering (§4.4.3).
const legacyShiftThreshold = 129

// Normalize returns the modern tag value for a raw on-disk tag byte,
// applying the legacy +1 shift when legacy is true.
func (t Tag) Normalize(legacy bool) Tag {
	if legacy && uint8(t) >= legacyShiftThreshold {
		return Tag(uint8(t) + 1)
	}
	return t
}

// Denormalize returns the on-disk byte for a modern tag value, undoing
// Normalize. Nothing in this module calls it: writers always emit the
// modern numbering (§4.4.3).
func (t Tag) Denormalize(legacy bool) Tag {
	if legacy && uint8(t) > legacyShiftThreshold {
		return Tag(uint8(t) - 1)
	}
	return t
}

// IsContainer reports whether t is one of the composite container tags
// (§3.3).
func (t Tag) IsContainer() bool {
	switch t {
	case TagList, TagList2, TagPointer, TagEmbed, TagOption, TagMap:
		return true
	default:
		return false
	}
}

func (t Tag) String() string {
	switch t {
	case TagNone:
		return "none"
	case TagBool:
		return "bool"
	case TagI8:
		return "i8"
	case TagU8:
		return "u8"
	case TagI16:
		return "i16"
	case TagU16:
		return "u16"
	case TagI32:
		return "i32"
	case TagU32:
		return "u32"
	case TagI64:
		return "i64"
	case TagU64:
		return "u64"
	case TagF32:
		return "f32"
	case TagVec2:
		return "vec2"
	case TagVec3:
		return "vec3"
	case TagVec4:
		return "vec4"
	case TagMtx44:
		return "mtx44"
	case TagRGBA:
		return "rgba"
	case TagString:
		return "string"
	case TagHash:
		return "hash"
	case TagFile:
		return "file"
	case TagList:
		return "list"
	case TagList2:
		return "list2"
	case TagPointer:
		return "pointer"
	case TagEmbed:
		return "embed"
	case TagLink:
		return "link"
	case TagOption:
		return "option"
	case TagMap:
		return "map"
	case TagFlag:
		return "flag"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// KnownTags lists every tag this codec understands, for validation.
var KnownTags = map[Tag]bool{
	TagNone: true, TagBool: true, TagI8: true, TagU8: true, TagI16: true,
	TagU16: true, TagI32: true, TagU32: true, TagI64: true, TagU64: true,
	TagF32: true, TagVec2: true, TagVec3: true, TagVec4: true, TagMtx44: true,
	TagRGBA: true, TagString: true, TagHash: true, TagFile: true,
	TagList: true, TagList2: true, TagPointer: true, TagEmbed: true,
	TagLink: true, TagOption: true, TagMap: true, TagFlag: true,
}
