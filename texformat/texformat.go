// Package texformat implements the TEX texture codec (C5): header parsing
// and DXT1/DXT5/BGRA8 mip-level decompression to RGBA8, per spec §4.5.
package texformat

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/frogtools/bumpath/internal/bstream"
)

// Format is the one-byte pixel format discriminator (§4.5).
type Format uint8

const (
	FormatETC1    Format = 1
	FormatETC2EAC Format = 2
	FormatETC2    Format = 3
	FormatDXT1    Format = 10
	FormatDXT5    Format = 12
	FormatBGRA8   Format = 20
)

// Magic is the 4-byte little-endian "TEX\0" magic value at offset 0.
const Magic uint32 = 0x00584554

var (
	ErrBadMagic         = errors.New("texformat: bad magic")
	ErrUnsupportedFormat = errors.New("texformat: unsupported format")
	ErrIoTruncated      = errors.New("texformat: truncated")
)

// Level is one encoded mip level, smallest-first in the file but returned
// here in file order (i.e. still smallest-first in Tex.Levels).
type Level struct {
	Width, Height int
	Data          []byte // encoded bytes for this level
}

// Tex is a fully parsed TEX header plus its raw (still-compressed) mip
// level payloads.
type Tex struct {
	Width, Height int
	Format        Format
	Mipmaps       int
	Levels        []Level // file order: smallest first when Mipmaps > 0
}

// Parse decodes a TEX header and slices out each mip level's raw bytes
// without decompressing them, per §4.5.
func Parse(buf []byte) (*Tex, error) {
	r := bstream.NewReader(buf)
	magic, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("texformat: reading magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("texformat: magic %#x: %w", magic, ErrBadMagic)
	}
	width, err := r.U16()
	if err != nil {
		return nil, err
	}
	height, err := r.U16()
	if err != nil {
		return nil, err
	}
	if _, err := r.U8(); err != nil { // unused
		return nil, err
	}
	formatByte, err := r.U8()
	if err != nil {
		return nil, err
	}
	if _, err := r.U8(); err != nil { // unused
		return nil, err
	}
	mipmaps, err := r.U8()
	if err != nil {
		return nil, err
	}

	format := Format(formatByte)
	t := &Tex{Width: int(width), Height: int(height), Format: format, Mipmaps: int(mipmaps)}

	if format == FormatETC1 || format == FormatETC2EAC || format == FormatETC2 {
		// Header is well-formed but decoding is unsupported (§4.5); still
		// return the parsed header so callers can inspect dimensions.
		return t, nil
	}

	numLevels := 1
	if mipmaps > 0 {
		numLevels = int(bits.Len(uint(max(int(width), int(height))))) // floor(log2(max))+1
	}

	levels := make([]Level, 0, numLevels)
	if mipmaps == 0 {
		data, err := r.Bytes(r.Remaining())
		if err != nil {
			return nil, fmt.Errorf("texformat: reading sole level: %w", err)
		}
		levels = append(levels, Level{Width: int(width), Height: int(height), Data: data})
	} else {
		// Stored smallest-first; compute dimensions for each level from
		// the largest down, then walk in reverse so we read in file order.
		dims := make([][2]int, numLevels)
		w, h := int(width), int(height)
		for i := numLevels - 1; i >= 0; i-- {
			dims[i] = [2]int{w, h}
			w = max(1, w/2)
			h = max(1, h/2)
		}
		for i := 0; i < numLevels; i++ {
			lw, lh := dims[i][0], dims[i][1]
			n, err := levelByteSize(format, lw, lh)
			if err != nil {
				return nil, err
			}
			data, err := r.Bytes(n)
			if err != nil {
				return nil, fmt.Errorf("texformat: reading level %dx%d: %w", lw, lh, err)
			}
			levels = append(levels, Level{Width: lw, Height: lh, Data: data})
		}
	}
	t.Levels = levels
	return t, nil
}

func levelByteSize(format Format, w, h int) (int, error) {
	blocksWide := (w + 3) / 4
	blocksHigh := (h + 3) / 4
	switch format {
	case FormatDXT1:
		return blocksWide * blocksHigh * 8, nil
	case FormatDXT5:
		return blocksWide * blocksHigh * 16, nil
	case FormatBGRA8:
		return w * h * 4, nil
	default:
		return 0, fmt.Errorf("texformat: format %d: %w", format, ErrUnsupportedFormat)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Largest returns the biggest mip level (last in file order when
// mipmaps>0, the sole level otherwise).
func (t *Tex) Largest() (Level, error) {
	if len(t.Levels) == 0 {
		return Level{}, fmt.Errorf("texformat: no levels decoded (format %d): %w", t.Format, ErrUnsupportedFormat)
	}
	return t.Levels[len(t.Levels)-1], nil
}

// Decompress decodes the largest mip level to a tightly-packed RGBA8
// buffer of width*height*4 bytes, per §4.5.
func Decompress(t *Tex) ([]byte, error) {
	if _, err := t.Largest(); err != nil {
		return nil, err
	}
	return DecompressLevel(t, len(t.Levels)-1)
}

// DecompressLevel decodes mip level index i (file order) to RGBA8,
// supplementing §4.5's "largest mip only" with access to every level,
// matching the original renderer's GPU-upload path which consumes every
// mip.
func DecompressLevel(t *Tex, i int) ([]byte, error) {
	if i < 0 || i >= len(t.Levels) {
		return nil, fmt.Errorf("texformat: level index %d out of range", i)
	}
	lvl := t.Levels[i]
	switch t.Format {
	case FormatDXT1:
		return decodeDXT1(lvl.Data, lvl.Width, lvl.Height)
	case FormatDXT5:
		return decodeDXT5(lvl.Data, lvl.Width, lvl.Height)
	case FormatBGRA8:
		return decodeBGRA8(lvl.Data, lvl.Width, lvl.Height)
	default:
		return nil, fmt.Errorf("texformat: format %d: %w", t.Format, ErrUnsupportedFormat)
	}
}

func decodeBGRA8(data []byte, w, h int) ([]byte, error) {
	need := w * h * 4
	if len(data) < need {
		return nil, fmt.Errorf("texformat: BGRA8 level short by %d bytes: %w", need-len(data), ErrIoTruncated)
	}
	out := make([]byte, need)
	for i := 0; i < need; i += 4 {
		out[i+0] = data[i+2] // R <- B
		out[i+1] = data[i+1] // G
		out[i+2] = data[i+0] // B <- R
		out[i+3] = data[i+3] // A
	}
	return out, nil
}

func rgb565(c uint16) (r, g, b uint8) {
	r = uint8((c >> 11 & 0x1F) * 255 / 31)
	g = uint8((c >> 5 & 0x3F) * 255 / 63)
	b = uint8((c & 0x1F) * 255 / 31)
	return
}

// decodeDXT1 decodes a BC1 (DXT1) image to RGBA8 (§4.5).
func decodeDXT1(data []byte, w, h int) ([]byte, error) {
	blocksWide := (w + 3) / 4
	blocksHigh := (h + 3) / 4
	need := blocksWide * blocksHigh * 8
	if len(data) < need {
		return nil, fmt.Errorf("texformat: DXT1 level short by %d bytes: %w", need-len(data), ErrIoTruncated)
	}
	out := make([]byte, w*h*4)
	for by := 0; by < blocksHigh; by++ {
		for bx := 0; bx < blocksWide; bx++ {
			block := data[(by*blocksWide+bx)*8 : (by*blocksWide+bx)*8+8]
			c0 := uint16(block[0]) | uint16(block[1])<<8
			c1 := uint16(block[2]) | uint16(block[3])<<8
			bits32 := uint32(block[4]) | uint32(block[5])<<8 | uint32(block[6])<<16 | uint32(block[7])<<24

			var palette [4][4]uint8
			r0, g0, b0 := rgb565(c0)
			r1, g1, b1 := rgb565(c1)
			palette[0] = [4]uint8{r0, g0, b0, 255}
			palette[1] = [4]uint8{r1, g1, b1, 255}
			if c0 > c1 {
				palette[2] = [4]uint8{
					uint8((2*uint16(r0) + uint16(r1)) / 3),
					uint8((2*uint16(g0) + uint16(g1)) / 3),
					uint8((2*uint16(b0) + uint16(b1)) / 3),
					255,
				}
				palette[3] = [4]uint8{
					uint8((uint16(r0) + 2*uint16(r1)) / 3),
					uint8((uint16(g0) + 2*uint16(g1)) / 3),
					uint8((uint16(b0) + 2*uint16(b1)) / 3),
					255,
				}
			} else {
				palette[2] = [4]uint8{
					uint8((uint16(r0) + uint16(r1)) / 2),
					uint8((uint16(g0) + uint16(g1)) / 2),
					uint8((uint16(b0) + uint16(b1)) / 2),
					255,
				}
				palette[3] = [4]uint8{0, 0, 0, 0}
			}

			for py := 0; py < 4; py++ {
				for px := 0; px < 4; px++ {
					idx := (bits32 >> uint((py*4+px)*2)) & 0x3
					x, y := bx*4+px, by*4+py
					if x >= w || y >= h {
						continue
					}
					off := (y*w + x) * 4
					copy(out[off:off+4], palette[idx][:])
				}
			}
		}
	}
	return out, nil
}

// decodeDXT5 decodes a BC3 (DXT5) image to RGBA8 (§4.5).
func decodeDXT5(data []byte, w, h int) ([]byte, error) {
	blocksWide := (w + 3) / 4
	blocksHigh := (h + 3) / 4
	need := blocksWide * blocksHigh * 16
	if len(data) < need {
		return nil, fmt.Errorf("texformat: DXT5 level short by %d bytes: %w", need-len(data), ErrIoTruncated)
	}
	out := make([]byte, w*h*4)
	for by := 0; by < blocksHigh; by++ {
		for bx := 0; bx < blocksWide; bx++ {
			block := data[(by*blocksWide+bx)*16 : (by*blocksWide+bx)*16+16]

			a0 := block[0]
			a1 := block[1]
			var alphaBits uint64
			for i := 0; i < 6; i++ {
				alphaBits |= uint64(block[2+i]) << (8 * uint(i))
			}
			var alphas [8]uint8
			alphas[0], alphas[1] = a0, a1
			if a0 > a1 {
				for i := 1; i <= 6; i++ {
					alphas[1+i] = uint8((uint16(7-i)*uint16(a0) + uint16(i)*uint16(a1)) / 7)
				}
			} else {
				for i := 1; i <= 4; i++ {
					alphas[1+i] = uint8((uint16(5-i)*uint16(a0) + uint16(i)*uint16(a1)) / 5)
				}
				alphas[6] = 0
				alphas[7] = 255
			}

			colorBlock := block[8:16]
			c0 := uint16(colorBlock[0]) | uint16(colorBlock[1])<<8
			c1 := uint16(colorBlock[2]) | uint16(colorBlock[3])<<8
			colorBits := uint32(colorBlock[4]) | uint32(colorBlock[5])<<8 | uint32(colorBlock[6])<<16 | uint32(colorBlock[7])<<24

			r0, g0, b0 := rgb565(c0)
			r1, g1, b1 := rgb565(c1)
			var palette [4][3]uint8
			palette[0] = [3]uint8{r0, g0, b0}
			palette[1] = [3]uint8{r1, g1, b1}
			// DXT5 color block is always in the "c0>c1" 4-entry form.
			palette[2] = [3]uint8{
				uint8((2*uint16(r0) + uint16(r1)) / 3),
				uint8((2*uint16(g0) + uint16(g1)) / 3),
				uint8((2*uint16(b0) + uint16(b1)) / 3),
			}
			palette[3] = [3]uint8{
				uint8((uint16(r0) + 2*uint16(r1)) / 3),
				uint8((uint16(g0) + 2*uint16(g1)) / 3),
				uint8((uint16(b0) + 2*uint16(b1)) / 3),
			}

			for py := 0; py < 4; py++ {
				for px := 0; px < 4; px++ {
					pixelIdx := py*4 + px
					colorIdx := (colorBits >> uint(pixelIdx*2)) & 0x3
					alphaIdx := (alphaBits >> uint(pixelIdx*3)) & 0x7
					x, y := bx*4+px, by*4+py
					if x >= w || y >= h {
						continue
					}
					off := (y*w + x) * 4
					rgb := palette[colorIdx]
					out[off+0] = rgb[0]
					out[off+1] = rgb[1]
					out[off+2] = rgb[2]
					out[off+3] = alphas[alphaIdx]
				}
			}
		}
	}
	return out, nil
}
