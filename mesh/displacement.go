// SPDX-License-Identifier: GPL-2.0-or-later
package mesh

import (
	"github.com/pkg/errors"

	"quell/bsp"
	"quell/math/vec"
)

const maxPower = 4

// triNormal is the normal of the triangle a, b, c for the winding it is
// emitted with. Degenerate triangles get the null vector.
func triNormal(a, b, c vec.Vec3) vec.Vec3 {
	return vec.Cross(vec.Sub(b, a), vec.Sub(c, a)).Normalize()
}

// dispGrid returns the displaced vertices of d in map units, row by row,
// and the number of vertices per row.
func dispGrid(m *bsp.Map, f *bsp.Face, d *bsp.DispInfo) ([]vec.Vec3, int, error) {
	if f.NumEdges != 4 {
		return nil, 0, errors.Wrapf(bsp.ErrBadDisplacement, "%d edges", f.NumEdges)
	}
	if d.Power < 1 || d.Power > maxPower {
		return nil, 0, errors.Wrapf(bsp.ErrBadDisplacement, "power %d", d.Power)
	}
	corners, err := m.FaceVertices(f)
	if err != nil {
		return nil, 0, err
	}
	lowBase := d.StartPosition
	base, best := 0, vec.Manhattan(corners[0], lowBase)
	for i := 1; i < 4; i++ {
		if dist := vec.Manhattan(corners[i], lowBase); dist < best {
			base, best = i, dist
		}
	}
	highBase := corners[(base+3)%4]
	highRay := vec.Sub(corners[(base+2)%4], highBase)
	lowRay := vec.Sub(corners[(base+1)%4], lowBase)

	wide := 1<<d.Power + 1
	dv, err := m.DispVertsOf(d, wide*wide)
	if err != nil {
		return nil, 0, err
	}
	grid := make([]vec.Vec3, wide*wide)
	for y := 0; y < wide; y++ {
		fy := float32(y) / float32(wide-1)
		midBase := vec.Add(lowBase, lowRay.Scale(fy))
		midRay := vec.Sub(vec.Add(highBase, highRay.Scale(fy)), midBase)
		for x := 0; x < wide; x++ {
			fx := float32(x) / float32(wide-1)
			i := x + y*wide
			p := vec.Add(midBase, midRay.Scale(fx))
			grid[i] = vec.Add(p, dv[i].Vec.Scale(dv[i].Dist))
		}
	}
	return grid, wide, nil
}

// BuildDisplacement triangulates the displacement on face f. Each grid
// cell becomes two triangles whose diagonal alternates with the parity of
// the cell index.
func BuildDisplacement(m *bsp.Map, f *bsp.Face) (*Mesh, error) {
	d, err := m.Displacement(f)
	if err != nil {
		return nil, err
	}
	grid, wide, err := dispGrid(m, f, d)
	if err != nil {
		return nil, err
	}
	cells := (wide - 1) * (wide - 1)
	out := &Mesh{
		Positions: make([]vec.Vec3, 0, 6*cells),
		Normals:   make([]vec.Vec3, 0, 6*cells),
	}
	tri := func(a, b, c vec.Vec3) {
		n := triNormal(a, b, c)
		out.add(a, n)
		out.add(b, n)
		out.add(c, n)
	}
	for y := 0; y < wide-1; y++ {
		for x := 0; x < wide-1; x++ {
			i := x + y*wide
			v1 := FromVBSP(grid[i])
			v2 := FromVBSP(grid[i+1])
			v3 := FromVBSP(grid[i+wide])
			v4 := FromVBSP(grid[i+wide+1])
			if i%2 != 0 {
				tri(v2, v3, v1)
				tri(v4, v3, v2)
			} else {
				tri(v4, v3, v1)
				tri(v4, v1, v2)
			}
		}
	}
	return out, nil
}
