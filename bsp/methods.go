// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"strings"

	"github.com/pkg/errors"

	"quell/math/vec"
)

var (
	ErrIndexRange      = errors.New("bsp: index out of range")
	ErrBadDisplacement = errors.New("bsp: bad displacement")
)

func rangeErr(what string, i, n int) error {
	return errors.Wrapf(ErrIndexRange, "%s %d of %d", what, i, n)
}

func (m *Map) Face(i int) (*Face, error) {
	if i < 0 || i >= len(m.Faces) {
		return nil, rangeErr("face", i, len(m.Faces))
	}
	return &m.Faces[i], nil
}

func (m *Map) PlaneOf(f *Face) (*Plane, error) {
	if f.PlaneNum < 0 || f.PlaneNum >= len(m.Planes) {
		return nil, rangeErr("plane", f.PlaneNum, len(m.Planes))
	}
	return &m.Planes[f.PlaneNum], nil
}

func (m *Map) TexInfoOf(f *Face) (*TexInfo, *TexData, error) {
	if f.TexInfo < 0 || f.TexInfo >= len(m.TexInfos) {
		return nil, nil, rangeErr("texinfo", f.TexInfo, len(m.TexInfos))
	}
	ti := &m.TexInfos[f.TexInfo]
	if ti.TexData < 0 || ti.TexData >= len(m.TexData) {
		return nil, nil, rangeErr("texdata", ti.TexData, len(m.TexData))
	}
	return ti, &m.TexData[ti.TexData], nil
}

// MaterialName returns the name of the material the face is drawn with.
func (m *Map) MaterialName(f *Face) (string, error) {
	_, td, err := m.TexInfoOf(f)
	if err != nil {
		return "", err
	}
	return td.Name, nil
}

// Visible reports whether the face is drawn at all. Faces flagged nodraw
// or sky and trigger brushes are not.
func (m *Map) Visible(f *Face) bool {
	ti, td, err := m.TexInfoOf(f)
	if err != nil {
		return false
	}
	if ti.Flags.Has(SurfNoDraw) || ti.Flags.Has(SurfSky) {
		return false
	}
	return !strings.EqualFold(td.Name, ToolsTrigger)
}

// FaceVertex returns vertex i of the face. The sign of the surface edge
// selects which end of the edge is used.
func (m *Map) FaceVertex(f *Face, i int) (vec.Vec3, error) {
	se := f.FirstEdge + i
	if se < 0 || se >= len(m.SurfaceEdges) {
		return vec.Vec3{}, rangeErr("surfedge", se, len(m.SurfaceEdges))
	}
	e := int(m.SurfaceEdges[se])
	end := 0
	if e < 0 {
		e, end = -e, 1
	}
	if e >= len(m.Edges) {
		return vec.Vec3{}, rangeErr("edge", e, len(m.Edges))
	}
	v := int(m.Edges[e][end])
	if v >= len(m.Vertexes) {
		return vec.Vec3{}, rangeErr("vertex", v, len(m.Vertexes))
	}
	return m.Vertexes[v], nil
}

// FaceVertices returns the face's polygon in winding order.
func (m *Map) FaceVertices(f *Face) ([]vec.Vec3, error) {
	vs := make([]vec.Vec3, 0, f.NumEdges)
	for i := 0; i < f.NumEdges; i++ {
		v, err := m.FaceVertex(f, i)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}

func (m *Map) Displacement(f *Face) (*DispInfo, error) {
	if !f.IsDisplacement() {
		return nil, errors.Wrap(ErrBadDisplacement, "face is not a displacement")
	}
	if f.DispInfo >= len(m.DispInfos) {
		return nil, rangeErr("dispinfo", f.DispInfo, len(m.DispInfos))
	}
	return &m.DispInfos[f.DispInfo], nil
}

// DispVertsOf returns the n displacement vertices belonging to d.
func (m *Map) DispVertsOf(d *DispInfo, n int) ([]DispVert, error) {
	if d.DispVertStart < 0 || d.DispVertStart+n > len(m.DispVerts) {
		return nil, rangeErr("dispvert", d.DispVertStart+n, len(m.DispVerts))
	}
	return m.DispVerts[d.DispVertStart : d.DispVertStart+n], nil
}

// ModelFaces calls fn with the index of every face of every model.
func (m *Map) ModelFaces(fn func(model *Submodel, face int)) {
	for mi := range m.Models {
		sm := &m.Models[mi]
		for i := 0; i < sm.FaceCount; i++ {
			fi := sm.FirstFace + i
			if fi < 0 || fi >= len(m.Faces) {
				break
			}
			fn(sm, fi)
		}
	}
}
