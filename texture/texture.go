// SPDX-License-Identifier: GPL-2.0-or-later
package texture

import (
	"image"
	"image/color"

	"quell/filesystem"
)

// Texture is a decoded image ready to be handed to a renderer.
type Texture struct {
	Name   string
	Width  int
	Height int
	Image  *image.NRGBA
	// Source is where the image bytes were found.
	Source filesystem.Source
}

func NewTexture(name string, img *image.NRGBA, src filesystem.Source) *Texture {
	b := img.Bounds()
	return &Texture{
		Name:   name,
		Width:  b.Dx(),
		Height: b.Dy(),
		Image:  img,
		Source: src,
	}
}

func (t *Texture) Texels() int {
	return t.Width * t.Height
}

const missingName = "__missing"

var (
	magenta = color.NRGBA{R: 255, B: 255, A: 255}
	black   = color.NRGBA{A: 255}
)

// MissingTexture returns a 2x2 magenta and black checkerboard.
func MissingTexture() *Texture {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, magenta)
	img.SetNRGBA(1, 0, black)
	img.SetNRGBA(0, 1, black)
	img.SetNRGBA(1, 1, magenta)
	return NewTexture(missingName, img, filesystem.Map)
}

// IsMissing reports whether t is a missing texture placeholder.
func (t *Texture) IsMissing() bool {
	return t == nil || t.Name == missingName
}
