package binformat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/frogtools/bumpath/internal/fnvhash"
)

// PathSegment is one step of a field_path breadcrumb (§3.7): either a
// named struct field, or a container index, or both (a named field that
// is itself indexed, e.g. "materialOverride[3]").
type PathSegment struct {
	Name     string // resolved field name; empty if this segment is a bare index
	HasIndex bool
	Index    int
}

// String renders the segment the way §4.8's example path does.
func (s PathSegment) String() string {
	if s.HasIndex {
		return fmt.Sprintf("%s[%d]", s.Name, s.Index)
	}
	return s.Name
}

// FormatFieldPath joins segments with '.' between named steps, matching
// "materialOverride[3].material".
func FormatFieldPath(segs []PathSegment) string {
	var b strings.Builder
	for i, s := range segs {
		if i > 0 && s.Name != "" {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// ParseFieldPath splits a field_path string back into segments.
func ParseFieldPath(path string) ([]PathSegment, error) {
	var segs []PathSegment
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		name := part
		idx := 0
		has := false
		if b := strings.IndexByte(part, '['); b >= 0 {
			if !strings.HasSuffix(part, "]") {
				return nil, fmt.Errorf("binformat: malformed field path segment %q", part)
			}
			name = part[:b]
			n, err := strconv.Atoi(part[b+1 : len(part)-1])
			if err != nil {
				return nil, fmt.Errorf("binformat: malformed index in %q: %w", part, err)
			}
			idx, has = n, true
		}
		segs = append(segs, PathSegment{Name: name, HasIndex: has, Index: idx})
	}
	return segs, nil
}

// SetValueAtPath replaces the value addressed by segs inside entry,
// following fields by the FNV-1a32 hash of their resolved name and
// containers by index, per §4.4.4's replacement-only override semantics.
// It never creates fields: every segment must resolve to an existing
// field/element.
func SetValueAtPath(entry *Entry, segs []PathSegment, newValue Value) error {
	if len(segs) == 0 {
		return fmt.Errorf("binformat: empty field path")
	}
	return setInFields(entry.Fields, segs, newValue)
}

func setInFields(fields []Field, segs []PathSegment, newValue Value) error {
	seg := segs[0]
	if seg.Name == "" {
		return fmt.Errorf("binformat: expected named field, got bare index")
	}
	wantHash := fnvhash.FNV1a32(seg.Name)
	for i := range fields {
		if fields[i].NameHash != wantHash {
			continue
		}
		if !seg.HasIndex && len(segs) == 1 {
			fields[i].Value = newValue
			return nil
		}
		rest := segs[1:]
		if seg.HasIndex {
			rest = append([]PathSegment{{HasIndex: true, Index: seg.Index}}, rest...)
		}
		return setInValue(&fields[i].Value, rest, newValue)
	}
	return fmt.Errorf("binformat: field %q (hash %08x) not found: %w", seg.Name, wantHash, ErrUnresolvedPatchBase)
}

func setInValue(v *Value, segs []PathSegment, newValue Value) error {
	if len(segs) == 0 {
		*v = newValue
		return nil
	}
	seg := segs[0]
	switch cur := (*v).(type) {
	case VList:
		if !seg.HasIndex {
			return fmt.Errorf("binformat: path into list missing index")
		}
		if seg.Index < 0 || seg.Index >= len(cur.Items) {
			return fmt.Errorf("binformat: list index %d out of range (len %d)", seg.Index, len(cur.Items))
		}
		if len(segs) == 1 {
			cur.Items[seg.Index] = newValue
			*v = cur
			return nil
		}
		return setInValue(&cur.Items[seg.Index], segs[1:], newValue)
	case VPointer:
		return setPathInStruct(&cur.Fields, segs, newValue, func() { *v = cur })
	case VEmbed:
		return setPathInStruct(&cur.Fields, segs, newValue, func() { *v = cur })
	case VOption:
		if cur.Value == nil {
			return fmt.Errorf("binformat: path into empty option")
		}
		if err := setInValue(&cur.Value, segs, newValue); err != nil {
			return err
		}
		*v = cur
		return nil
	default:
		return fmt.Errorf("binformat: cannot descend into %s value", (*v).Tag())
	}
}

func setPathInStruct(fields *[]Field, segs []PathSegment, newValue Value, writeBack func()) error {
	if err := setInFields(*fields, segs, newValue); err != nil {
		return err
	}
	writeBack()
	return nil
}
