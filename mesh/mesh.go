// SPDX-License-Identifier: GPL-2.0-or-later
package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"quell/bsp"
	"quell/math/vec"
	"quell/texture"
)

var (
	ErrTextureSize = errors.New("mesh: texture has no size")
	ErrDegenerate  = errors.New("mesh: face has fewer than 3 edges")
)

// Mesh is a triangle list. UVs is empty for displacements.
type Mesh struct {
	Positions []vec.Vec3
	Normals   []vec.Vec3
	UVs       [][2]float32
}

func (m *Mesh) Triangles() int {
	return len(m.Positions) / 3
}

func (m *Mesh) add(p, n vec.Vec3) {
	m.Positions = append(m.Positions, p)
	m.Normals = append(m.Normals, n)
}

// FaceInfo is the renderable output for one map face.
type FaceInfo struct {
	Mesh     *Mesh
	Material string
	// Transform places the mesh at its model origin.
	Transform mgl32.Mat4
	// Face is the index into bsp.Map.Faces.
	Face         int
	Displacement bool
	// Texture is the bound image, the missing texture if the material did
	// not resolve and nil for displacements.
	Texture *texture.Texture
	Color   mgl32.Vec4
}

// UV projects the target space position v with the texture axes of ti.
func UV(ti *bsp.TexInfo, v vec.Vec3, width, height float32) ([2]float32, error) {
	if width == 0 || height == 0 {
		return [2]float32{}, ErrTextureSize
	}
	p := texCoord(Unscale(v))
	s := texCoord4(Rotate4(ti.Vecs[0]))
	t := texCoord4(Rotate4(ti.Vecs[1]))
	return [2]float32{dot4(s, p) / width, dot4(t, p) / height}, nil
}

// BuildFace fan triangulates a flat face into target space.
func BuildFace(m *bsp.Map, f *bsp.Face) (*Mesh, error) {
	ti, td, err := m.TexInfoOf(f)
	if err != nil {
		return nil, err
	}
	if td.Width == 0 || td.Height == 0 {
		return nil, errors.Wrapf(ErrTextureSize, "%s", td.Name)
	}
	if f.NumEdges < 3 {
		return nil, errors.Wrapf(ErrDegenerate, "%d edges", f.NumEdges)
	}
	var normal vec.Vec3
	if ti.Flags.Has(bsp.SurfSky) {
		normal = Rotate(vec.Vec3{Z: 1})
	} else {
		pl, err := m.PlaneOf(f)
		if err != nil {
			return nil, err
		}
		normal = Rotate(pl.Normal)
	}
	vs, err := m.FaceVertices(f)
	if err != nil {
		return nil, err
	}
	w, h := float32(td.Width), float32(td.Height)
	n := len(vs) - 2
	out := &Mesh{
		Positions: make([]vec.Vec3, 0, 3*n),
		Normals:   make([]vec.Vec3, 0, 3*n),
		UVs:       make([][2]float32, 0, 3*n),
	}
	first := FromVBSP(vs[0])
	prev := FromVBSP(vs[1])
	for _, v := range vs[2:] {
		cur := FromVBSP(v)
		// map faces wind clockwise, emit them reversed
		for _, p := range [3]vec.Vec3{cur, prev, first} {
			uv, err := UV(ti, p, w, h)
			if err != nil {
				return nil, err
			}
			out.add(p, normal)
			out.UVs = append(out.UVs, uv)
		}
		prev = cur
	}
	return out, nil
}
