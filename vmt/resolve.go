// SPDX-License-Identifier: GPL-2.0-or-later

package vmt

import (
	"maps"

	"github.com/pkg/errors"
	opt "github.com/repeale/fp-go/option"
)

// Loader returns the raw bytes of the document named by an include.
type Loader func(path string) ([]byte, error)

func pick[T any](child, parent opt.Option[T]) opt.Option[T] {
	if opt.IsSome(child) {
		return child
	}
	return parent
}

// Apply returns parent with every field set in child laid over it.
// The unrecognized keys are merged with child entries winning. Nested blocks
// are not merged, the result keeps the parent's. The include of the result
// is the parent's own include, if any.
func Apply(parent, child *Document) *Document {
	r := &Document{
		Shader: parent.Shader,

		BaseTexture: pick(child.BaseTexture, parent.BaseTexture),
		Decal:       pick(child.Decal, parent.Decal),
		SurfaceProp: pick(child.SurfaceProp, parent.SurfaceProp),
		Detail: Detail{
			Texture:              pick(child.Detail.Texture, parent.Detail.Texture),
			Tint:                 pick(child.Detail.Tint, parent.Detail.Tint),
			Frame:                pick(child.Detail.Frame, parent.Detail.Frame),
			Scale:                pick(child.Detail.Scale, parent.Detail.Scale),
			AlphaMaskBaseTexture: pick(child.Detail.AlphaMaskBaseTexture, parent.Detail.AlphaMaskBaseTexture),
			BlendMode:            pick(child.Detail.BlendMode, parent.Detail.BlendMode),
			BlendFactor:          pick(child.Detail.BlendFactor, parent.Detail.BlendFactor),
		},
		Detail2: Detail2{
			Texture:     pick(child.Detail2.Texture, parent.Detail2.Texture),
			Scale:       pick(child.Detail2.Scale, parent.Detail2.Scale),
			BlendFactor: pick(child.Detail2.BlendFactor, parent.Detail2.BlendFactor),
			Frame:       pick(child.Detail2.Frame, parent.Detail2.Frame),
			Tint:        pick(child.Detail2.Tint, parent.Detail2.Tint),
		},
		BaseTextureTransform: pick(child.BaseTextureTransform, parent.BaseTextureTransform),
		Color:                pick(child.Color, parent.Color),

		Phong:              pick(child.Phong, parent.Phong),
		PhongBoost:         pick(child.PhongBoost, parent.PhongBoost),
		PhongExponent:      pick(child.PhongExponent, parent.PhongExponent),
		PhongFresnelRanges: pick(child.PhongFresnelRanges, parent.PhongFresnelRanges),

		LightwarpTexture: pick(child.LightwarpTexture, parent.LightwarpTexture),
		Keywords:         parent.Keywords,

		Include: parent.Include,
		Other:   make(map[string]string, len(parent.Other)+len(child.Other)),
		Sub:     parent.Sub,
	}
	if len(child.Keywords) > 0 {
		r.Keywords = child.Keywords
	}
	maps.Copy(r.Other, parent.Other)
	maps.Copy(r.Other, child.Other)
	return r
}

// Resolve applies d on top of the document its include names. Only one
// level is followed. Without an include d is returned unchanged.
func (d *Document) Resolve(load Loader) (*Document, error) {
	if opt.IsNone(d.Include) {
		return d, nil
	}
	path := d.Include.Value
	b, err := load(path)
	if err != nil {
		return nil, &LoaderError{Path: path, Err: err}
	}
	parent, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "include %q", path)
	}
	return Apply(parent, d), nil
}

// ResolveRecurse follows includes until none is left.
// Include cycles are not detected.
func (d *Document) ResolveRecurse(load Loader) (*Document, error) {
	cur := d
	for opt.IsSome(cur.Include) {
		next, err := cur.Resolve(load)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
