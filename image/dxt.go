// SPDX-License-Identifier: GPL-2.0-or-later

package image

import (
	"image"
)

func rgb565(c uint16) [4]uint8 {
	return [4]uint8{expand5(c >> 11), expand6(c >> 5), expand5(c), 255}
}

func mix(a, b uint8, wa, wb, div int) uint8 {
	return uint8((int(a)*wa + int(b)*wb) / div)
}

// colorTable builds the 4 entry palette of a color block. With threeColor
// set and c0 <= c1 the last entry is transparent black.
func colorTable(b []byte, threeColor bool) [4][4]uint8 {
	c0, c1 := le.Uint16(b), le.Uint16(b[2:])
	var t [4][4]uint8
	t[0], t[1] = rgb565(c0), rgb565(c1)
	if c0 > c1 || !threeColor {
		for i := 0; i < 3; i++ {
			t[2][i] = mix(t[0][i], t[1][i], 2, 1, 3)
			t[3][i] = mix(t[0][i], t[1][i], 1, 2, 3)
		}
		t[2][3], t[3][3] = 255, 255
		return t
	}
	for i := 0; i < 3; i++ {
		t[2][i] = mix(t[0][i], t[1][i], 1, 1, 2)
	}
	t[2][3] = 255
	return t
}

func alphaTable(a0, a1 uint8) [8]uint8 {
	t := [8]uint8{a0, a1}
	if a0 > a1 {
		for i := 1; i < 7; i++ {
			t[i+1] = mix(a0, a1, 7-i, i, 7)
		}
		return t
	}
	for i := 1; i < 5; i++ {
		t[i+1] = mix(a0, a1, 5-i, i, 5)
	}
	t[6], t[7] = 0, 255
	return t
}

func decodeDXT(src []byte, f Format, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	blockSize := 16
	if f == FormatDXT1 || f == FormatDXT1OneBitAlpha {
		blockSize = 8
	}
	bw := (w + 3) / 4
	var block [16][4]uint8
	for by := 0; by < (h+3)/4; by++ {
		for bx := 0; bx < bw; bx++ {
			b := src[(by*bw+bx)*blockSize:]
			switch f {
			case FormatDXT1, FormatDXT1OneBitAlpha:
				decodeColors(b, true, &block)
			case FormatDXT3:
				decodeColors(b[8:], false, &block)
				bits := le.Uint64(b)
				for i := range block {
					block[i][3] = uint8(bits>>(4*i)&0xf) * 17
				}
			case FormatDXT5:
				decodeColors(b[8:], false, &block)
				t := alphaTable(b[0], b[1])
				bits := uint64(b[2]) | uint64(b[3])<<8 | uint64(b[4])<<16 |
					uint64(b[5])<<24 | uint64(b[6])<<32 | uint64(b[7])<<40
				for i := range block {
					block[i][3] = t[bits>>(3*i)&7]
				}
			}
			for i, px := range block {
				x, y := bx*4+i%4, by*4+i/4
				if x >= w || y >= h {
					continue
				}
				o := img.PixOffset(x, y)
				copy(img.Pix[o:o+4], px[:])
			}
		}
	}
	return img
}

func decodeColors(b []byte, threeColor bool, block *[16][4]uint8) {
	t := colorTable(b, threeColor)
	idx := le.Uint32(b[4:])
	for i := range block {
		block[i] = t[idx>>(2*i)&3]
	}
}
