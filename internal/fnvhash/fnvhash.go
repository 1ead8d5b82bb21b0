// Package fnvhash implements the two hash functions used throughout the
// BIN/SKL/SCB/TEX formats: a 32-bit FNV-1a over lowercased ASCII for
// field/type/entry names, and XXH64 (via cespare/xxhash/v2, the same
// hashing library the teacher repo uses for its bucket indexes) over
// lowercased ASCII for file paths.
package fnvhash

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// OffsetBasis32 is the FNV-1a 32-bit offset basis, and also the hash of
// the empty string (§8.3).
const OffsetBasis32 uint32 = 0x811C9DC5

const prime32 uint32 = 0x01000193

// FNV1a32 hashes s after lowercasing it to ASCII, per §4.2.
func FNV1a32(s string) uint32 {
	h := OffsetBasis32
	ls := lowerASCII(s)
	for i := 0; i < len(ls); i++ {
		h ^= uint32(ls[i])
		h *= prime32
	}
	return h
}

// XXH64 hashes s after lowercasing it to ASCII, per §4.2.
func XXH64(s string) uint64 {
	return xxhash.Sum64String(lowerASCII(s))
}

// lowerASCII lowercases only ASCII letters, leaving any other byte
// untouched; field/type/path names in this format are ASCII in practice
// and this matches the "lowercase_ascii" wording of §3.1 exactly rather
// than applying Unicode case folding.
func lowerASCII(s string) string {
	var b strings.Builder
	needsCopy := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			needsCopy = true
			break
		}
	}
	if !needsCopy {
		return s
	}
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// HexU32 formats a 32-bit hash as 8 lowercase hex digits.
func HexU32(h uint32) string {
	const hexdigits = "0123456789abcdef"
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(b)
}

// HexU64 formats a 64-bit hash as 16 lowercase hex digits.
func HexU64(h uint64) string {
	const hexdigits = "0123456789abcdef"
	b := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		b[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(b)
}
