// SPDX-License-Identifier: GPL-2.0-or-later

package image

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"github.com/pkg/errors"
)

var (
	ErrNotVTF    = errors.New("vtf: bad signature")
	ErrTruncated = errors.New("vtf: truncated")
)

type Format int32

const (
	FormatNone Format = iota - 1
	FormatRGBA8888
	FormatABGR8888
	FormatRGB888
	FormatBGR888
	FormatRGB565
	FormatI8
	FormatIA88
	FormatP8
	FormatA8
	FormatRGB888Bluescreen
	FormatBGR888Bluescreen
	FormatARGB8888
	FormatBGRA8888
	FormatDXT1
	FormatDXT3
	FormatDXT5
	FormatBGRX8888
	FormatBGR565
	FormatBGRX5551
	FormatBGRA4444
	FormatDXT1OneBitAlpha
	FormatBGRA5551
	FormatUV88
	FormatUVWQ8888
	FormatRGBA16161616F
	FormatRGBA16161616
	FormatUVLX8888
)

var bytesPerPixel = map[Format]int{
	FormatRGBA8888:         4,
	FormatABGR8888:         4,
	FormatRGB888:           3,
	FormatBGR888:           3,
	FormatRGB565:           2,
	FormatI8:               1,
	FormatIA88:             2,
	FormatP8:               1,
	FormatA8:               1,
	FormatRGB888Bluescreen: 3,
	FormatBGR888Bluescreen: 3,
	FormatARGB8888:         4,
	FormatBGRA8888:         4,
	FormatBGRX8888:         4,
	FormatBGR565:           2,
	FormatBGRX5551:         2,
	FormatBGRA4444:         2,
	FormatBGRA5551:         2,
	FormatUV88:             2,
	FormatUVWQ8888:         4,
	FormatRGBA16161616F:    8,
	FormatRGBA16161616:     8,
	FormatUVLX8888:         4,
}

type UnsupportedFormatError struct {
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("vtf: unsupported image format %d", e.Format)
}

const (
	flagEnvmap        = 0x4000
	resourceHighRes   = 0x30
	resourceEntrySize = 8
	minHeaderSize     = 64
)

type VTFHeader struct {
	Version       [2]uint32
	HeaderSize    uint32
	Width         int
	Height        int
	Flags         uint32
	Frames        int
	FirstFrame    uint16
	Reflectivity  [3]float32
	BumpmapScale  float32
	Format        Format
	MipmapCount   int
	LowResFormat  Format
	LowResWidth   int
	LowResHeight  int
	Depth         int
	ResourceCount int
	// offset of the high resolution image data
	dataOffset int
}

// Faces returns the number of faces stored per frame.
func (h *VTFHeader) Faces() int {
	if h.Flags&flagEnvmap == 0 {
		return 1
	}
	if h.Version[1] < 5 && h.FirstFrame == 0xffff {
		// sphere map
		return 7
	}
	return 6
}

// imageSize returns the byte size of one w×h slice in format f.
func imageSize(f Format, w, h int) (int, error) {
	switch f {
	case FormatDXT1, FormatDXT1OneBitAlpha:
		return ((w + 3) / 4) * ((h + 3) / 4) * 8, nil
	case FormatDXT3, FormatDXT5:
		return ((w + 3) / 4) * ((h + 3) / 4) * 16, nil
	}
	bpp, ok := bytesPerPixel[f]
	if !ok {
		return 0, &UnsupportedFormatError{Format: f}
	}
	return w * h * bpp, nil
}

func mipDim(v, mip int) int {
	v >>= mip
	if v < 1 {
		return 1
	}
	return v
}

var le = binary.LittleEndian

func ParseVTFHeader(b []byte) (*VTFHeader, error) {
	if len(b) < minHeaderSize {
		return nil, ErrTruncated
	}
	if string(b[0:4]) != "VTF\x00" {
		return nil, ErrNotVTF
	}
	h := &VTFHeader{
		Version:      [2]uint32{le.Uint32(b[4:]), le.Uint32(b[8:])},
		HeaderSize:   le.Uint32(b[12:]),
		Width:        int(le.Uint16(b[16:])),
		Height:       int(le.Uint16(b[18:])),
		Flags:        le.Uint32(b[20:]),
		Frames:       int(le.Uint16(b[24:])),
		FirstFrame:   le.Uint16(b[26:]),
		BumpmapScale: math.Float32frombits(le.Uint32(b[48:])),
		Format:       Format(le.Uint32(b[52:])),
		MipmapCount:  int(b[56]),
		LowResFormat: Format(le.Uint32(b[57:])),
		LowResWidth:  int(b[61]),
		LowResHeight: int(b[62]),
		Depth:        1,
	}
	for i := range h.Reflectivity {
		h.Reflectivity[i] = math.Float32frombits(le.Uint32(b[32+4*i:]))
	}
	if h.Version[0] != 7 {
		return nil, errors.Wrapf(ErrNotVTF, "version %d.%d", h.Version[0], h.Version[1])
	}
	if h.Frames < 1 {
		h.Frames = 1
	}
	if h.MipmapCount < 1 {
		h.MipmapCount = 1
	}
	if h.Version[1] >= 2 && len(b) >= 65 {
		if d := int(le.Uint16(b[63:])); d > 0 {
			h.Depth = d
		}
	}
	if h.Version[1] >= 3 {
		if len(b) < 80 {
			return nil, ErrTruncated
		}
		h.ResourceCount = int(le.Uint32(b[68:]))
		off, ok := 0, false
		for i := 0; i < h.ResourceCount; i++ {
			e := 80 + i*resourceEntrySize
			if e+resourceEntrySize > len(b) {
				return nil, ErrTruncated
			}
			if b[e] == resourceHighRes && b[e+1] == 0 && b[e+2] == 0 {
				off, ok = int(le.Uint32(b[e+4:])), true
				break
			}
		}
		if !ok {
			return nil, errors.Wrap(ErrTruncated, "no high resolution image resource")
		}
		h.dataOffset = off
		return h, nil
	}
	h.dataOffset = int(h.HeaderSize)
	if h.LowResFormat != FormatNone {
		n, err := imageSize(h.LowResFormat, h.LowResWidth, h.LowResHeight)
		if err != nil {
			return nil, err
		}
		h.dataOffset += n
	}
	return h, nil
}

// DecodeVTF decodes the largest mipmap of the first frame, face and slice.
func DecodeVTF(b []byte) (*image.NRGBA, error) {
	h, err := ParseVTFHeader(b)
	if err != nil {
		return nil, err
	}
	off := h.dataOffset
	// mipmaps are stored smallest first
	for mip := h.MipmapCount - 1; mip > 0; mip-- {
		n, err := imageSize(h.Format, mipDim(h.Width, mip), mipDim(h.Height, mip))
		if err != nil {
			return nil, err
		}
		off += n * mipDim(h.Depth, mip) * h.Frames * h.Faces()
	}
	n, err := imageSize(h.Format, h.Width, h.Height)
	if err != nil {
		return nil, err
	}
	if off < 0 || off+n > len(b) {
		return nil, errors.Wrapf(ErrTruncated, "need %d bytes at %d, have %d", n, off, len(b))
	}
	return decodePixels(b[off:off+n], h.Format, h.Width, h.Height)
}

func decodePixels(src []byte, f Format, w, h int) (*image.NRGBA, error) {
	switch f {
	case FormatDXT1, FormatDXT1OneBitAlpha, FormatDXT3, FormatDXT5:
		return decodeDXT(src, f, w, h), nil
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	bpp := bytesPerPixel[f]
	for i := 0; i < w*h; i++ {
		s := src[i*bpp : i*bpp+bpp]
		d := img.Pix[i*4 : i*4+4]
		switch f {
		case FormatRGBA8888, FormatUVWQ8888:
			copy(d, s)
		case FormatABGR8888:
			d[0], d[1], d[2], d[3] = s[3], s[2], s[1], s[0]
		case FormatARGB8888:
			d[0], d[1], d[2], d[3] = s[1], s[2], s[3], s[0]
		case FormatBGRA8888:
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], s[3]
		case FormatBGRX8888, FormatUVLX8888:
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], 255
		case FormatRGB888:
			d[0], d[1], d[2], d[3] = s[0], s[1], s[2], 255
		case FormatBGR888:
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], 255
		case FormatRGB888Bluescreen:
			d[0], d[1], d[2], d[3] = s[0], s[1], s[2], bluescreen(s[0], s[1], s[2])
		case FormatBGR888Bluescreen:
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], bluescreen(s[2], s[1], s[0])
		case FormatRGB565:
			c := le.Uint16(s)
			d[0], d[1], d[2], d[3] = expand5(c), expand6(c>>5), expand5(c>>11), 255
		case FormatBGR565:
			c := le.Uint16(s)
			d[0], d[1], d[2], d[3] = expand5(c>>11), expand6(c>>5), expand5(c), 255
		case FormatBGRX5551, FormatBGRA5551:
			c := le.Uint16(s)
			d[0], d[1], d[2], d[3] = expand5(c>>10), expand5(c>>5), expand5(c), 255
			if f == FormatBGRA5551 && c&0x8000 == 0 {
				d[3] = 0
			}
		case FormatBGRA4444:
			c := le.Uint16(s)
			d[0], d[1], d[2], d[3] = uint8(c>>8&0xf)*17, uint8(c>>4&0xf)*17, uint8(c&0xf)*17, uint8(c>>12&0xf)*17
		case FormatI8:
			d[0], d[1], d[2], d[3] = s[0], s[0], s[0], 255
		case FormatIA88:
			d[0], d[1], d[2], d[3] = s[0], s[0], s[0], s[1]
		case FormatA8:
			d[0], d[1], d[2], d[3] = 0, 0, 0, s[0]
		case FormatUV88:
			d[0], d[1], d[2], d[3] = s[0], s[1], 0, 255
		default:
			return nil, &UnsupportedFormatError{Format: f}
		}
	}
	return img, nil
}

func bluescreen(r, g, b uint8) uint8 {
	if r == 0 && g == 0 && b == 255 {
		return 0
	}
	return 255
}

func expand5(c uint16) uint8 {
	v := uint8(c & 0x1f)
	return v<<3 | v>>2
}

func expand6(c uint16) uint8 {
	v := uint8(c & 0x3f)
	return v<<2 | v>>4
}
