package binformat

import (
	"fmt"

	"github.com/frogtools/bumpath/internal/bstream"
)

// Serialize encodes f back to bytes per §4.4.1. Writers always emit the
// modern tag numbering (§4.4.3) regardless of how the file was parsed.
func Serialize(f *File) ([]byte, error) {
	w := bstream.NewWriter()

	w.Raw([]byte(f.Magic))
	w.U32(f.Version)

	if f.Magic == MagicPtch {
		if f.Patch == nil {
			return nil, fmt.Errorf("binformat: PTCH file missing patch header")
		}
		w.U32(f.Patch.BaseVersion)
		w.U32(uint32(len(f.Patch.BaseLinked)))
		for _, s := range f.Patch.BaseLinked {
			if err := w.LenString(s); err != nil {
				return nil, err
			}
		}
	}

	if f.Version >= 2 {
		w.U32(uint32(len(f.LinkedPaths)))
		for _, s := range f.LinkedPaths {
			if err := w.LenString(s); err != nil {
				return nil, err
			}
		}
	}

	w.U32(uint32(len(f.Entries)))
	for _, e := range f.Entries {
		w.U32(e.TypeHash)
	}

	seen := make(map[uint32]bool, len(f.Entries))
	for i, e := range f.Entries {
		if seen[e.EntryHash] {
			return nil, fmt.Errorf("binformat: entry[%d] hash %08x: %w", i, e.EntryHash, ErrDuplicateEntry)
		}
		seen[e.EntryHash] = true
		if err := writeEntry(w, e); err != nil {
			return nil, fmt.Errorf("binformat: writing entry[%d]: %w", i, err)
		}
	}

	if f.Magic == MagicPtch {
		w.U32(uint32(len(f.PatchOverrides)))
		for i, o := range f.PatchOverrides {
			if err := writePatchOverride(w, o); err != nil {
				return nil, fmt.Errorf("binformat: writing patch_entries[%d]: %w", i, err)
			}
		}
	}

	return w.Bytes(), nil
}

func writePatchOverride(w *bstream.Writer, o PatchOverride) error {
	w.U32(o.EntryHash)
	if err := w.LenString(o.FieldPath); err != nil {
		return err
	}
	w.U8(uint8(o.Value.Tag()))
	return writeValue(w, o.Value)
}

func writeEntry(w *bstream.Writer, e Entry) error {
	sizeOff := w.ReserveU32()
	start := w.Tell()
	w.U32(e.EntryHash)
	w.U16(uint16(len(e.Fields)))
	for i, fld := range e.Fields {
		if err := writeField(w, fld); err != nil {
			return fmt.Errorf("field[%d]: %w", i, err)
		}
	}
	w.PatchU32(sizeOff, w.SizeSince(start))
	return nil
}

func writeField(w *bstream.Writer, f Field) error {
	w.U32(f.NameHash)
	w.U8(uint8(f.Value.Tag()))
	return writeValue(w, f.Value)
}

func writeValue(w *bstream.Writer, v Value) error {
	switch val := v.(type) {
	case VNone:
		return nil
	case VBool:
		w.Bool(bool(val))
		return nil
	case VI8:
		w.I8(int8(val))
		return nil
	case VU8:
		w.U8(uint8(val))
		return nil
	case VI16:
		w.I16(int16(val))
		return nil
	case VU16:
		w.U16(uint16(val))
		return nil
	case VI32:
		w.I32(int32(val))
		return nil
	case VU32:
		w.U32(uint32(val))
		return nil
	case VI64:
		w.I64(int64(val))
		return nil
	case VU64:
		w.U64(uint64(val))
		return nil
	case VF32:
		w.F32(float32(val))
		return nil
	case VVec2:
		w.Vec2([2]float32(val))
		return nil
	case VVec3:
		w.Vec3([3]float32(val))
		return nil
	case VVec4:
		w.Vec4([4]float32(val))
		return nil
	case VMtx44:
		w.Mtx44([16]float32(val))
		return nil
	case VRGBA:
		w.RGBA([4]uint8(val))
		return nil
	case VString:
		return w.LenString(string(val))
	case VHash:
		w.U32(uint32(val))
		return nil
	case VFile:
		w.U64(uint64(val))
		return nil
	case VLink:
		w.U32(uint32(val))
		return nil
	case VFlag:
		w.U8(uint8(val))
		return nil
	case VList:
		return writeList(w, val)
	case VPointer:
		return writePointer(w, val)
	case VEmbed:
		return writeEmbed(w, val)
	case VOption:
		return writeOption(w, val)
	case VMap:
		return writeMap(w, val)
	default:
		return fmt.Errorf("binformat: unknown value type %T: %w", v, ErrUnknownTag)
	}
}

func writeList(w *bstream.Writer, v VList) error {
	w.U8(uint8(v.Inner))
	sizeOff := w.ReserveU32()
	start := w.Tell()
	w.U32(uint32(len(v.Items)))
	for i, item := range v.Items {
		if item.Tag() != v.Inner {
			return fmt.Errorf("binformat: list item[%d] tag %s does not match inner tag %s: %w", i, item.Tag(), v.Inner, ErrInvalidPayload)
		}
		if err := writeValue(w, item); err != nil {
			return fmt.Errorf("list item[%d]: %w", i, err)
		}
	}
	w.PatchU32(sizeOff, w.SizeSince(start))
	return nil
}

func writePointer(w *bstream.Writer, v VPointer) error {
	w.U32(v.TypeHash)
	if v.IsNull() {
		return nil
	}
	return writeStructBody(w, v.Fields)
}

func writeEmbed(w *bstream.Writer, v VEmbed) error {
	if v.TypeHash == 0 {
		return fmt.Errorf("binformat: embed type_hash must be non-null: %w", ErrInvalidPayload)
	}
	w.U32(v.TypeHash)
	return writeStructBody(w, v.Fields)
}

func writeStructBody(w *bstream.Writer, fields []Field) error {
	sizeOff := w.ReserveU32()
	start := w.Tell()
	w.U16(uint16(len(fields)))
	for i, fld := range fields {
		if err := writeField(w, fld); err != nil {
			return fmt.Errorf("struct field[%d]: %w", i, err)
		}
	}
	w.PatchU32(sizeOff, w.SizeSince(start))
	return nil
}

func writeOption(w *bstream.Writer, v VOption) error {
	w.U8(uint8(v.Inner))
	if !v.HasValue() {
		w.U8(0)
		return nil
	}
	if v.Value.Tag() != v.Inner {
		return fmt.Errorf("binformat: option value tag %s does not match inner tag %s: %w", v.Value.Tag(), v.Inner, ErrInvalidPayload)
	}
	w.U8(1)
	return writeValue(w, v.Value)
}

func writeMap(w *bstream.Writer, v VMap) error {
	w.U8(uint8(v.KeyTag))
	w.U8(uint8(v.ValueTag))
	sizeOff := w.ReserveU32()
	start := w.Tell()
	w.U32(uint32(len(v.Entries)))
	for i, e := range v.Entries {
		if e.Key.Tag() != v.KeyTag || e.Value.Tag() != v.ValueTag {
			return fmt.Errorf("binformat: map entry[%d] tag mismatch: %w", i, ErrInvalidPayload)
		}
		if err := writeValue(w, e.Key); err != nil {
			return fmt.Errorf("map key[%d]: %w", i, err)
		}
		if err := writeValue(w, e.Value); err != nil {
			return fmt.Errorf("map value[%d]: %w", i, err)
		}
	}
	w.PatchU32(sizeOff, w.SizeSince(start))
	return nil
}
