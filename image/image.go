// SPDX-License-Identifier: GPL-2.0-or-later

package image

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// Write stores img as png.
func Write(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", name)
	}
	return f.Close()
}

// WriteWebP stores img as lossless webp.
func WriteWebP(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", name)
	}
	return f.Close()
}

// Save picks the encoder from the file extension of name.
func Save(name string, img image.Image) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return Write(name, img)
	case ".webp":
		return WriteWebP(name, img)
	}
	return errors.Errorf("unknown image type %q", filepath.Ext(name))
}

// Fit scales img down so neither side exceeds limit. Smaller images and a
// limit of 0 return img unchanged.
func Fit(img *image.NRGBA, limit int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return img
	}
	if w >= h {
		h = limit * h / w
		w = limit
	} else {
		w = limit * w / h
		h = limit
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
