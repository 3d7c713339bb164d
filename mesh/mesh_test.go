// SPDX-License-Identifier: GPL-2.0-or-later
package mesh

import (
	"errors"
	"sort"
	"testing"

	"github.com/chewxy/math32"

	"quell/bsp"
	"quell/math/vec"
	"quell/texture"
)

const eps = 1e-4

func TestRotateInverse(t *testing.T) {
	for _, v := range []vec.Vec3{
		{X: 1, Y: 2, Z: 3},
		{X: -4.5, Y: 0, Z: 1024},
		{X: 0, Y: -0.25, Z: -7},
	} {
		if got := Unrotate(Rotate(v)); !vec.Near(got, v, eps) {
			t.Errorf("Unrotate(Rotate(%v)) = %v", v, got)
		}
		if got := Rotate(Unrotate(v)); !vec.Near(got, v, eps) {
			t.Errorf("Rotate(Unrotate(%v)) = %v", v, got)
		}
		if got := Unscale(ScaleVec(v)); !vec.Near(got, v, 1e-3) {
			t.Errorf("Unscale(ScaleVec(%v)) = %v", v, got)
		}
		if got := ToVBSP(FromVBSP(v)); !vec.Near(got, v, 1e-3) {
			t.Errorf("ToVBSP(FromVBSP(%v)) = %v", v, got)
		}
	}
	if got, want := Rotate(vec.Vec3{X: 1, Y: 2, Z: 3}), (vec.Vec3{X: -2, Y: 3, Z: -1}); got != want {
		t.Errorf("Rotate = %v, want %v", got, want)
	}
	if got, want := Rotate4(vec.Vec4{X: 1, Y: 2, Z: 3, W: 4}), (vec.Vec4{X: -2, Y: 3, Z: -1, W: 4}); got != want {
		t.Errorf("Rotate4 = %v, want %v", got, want)
	}
}

// polyMap holds one regular n-gon in the z=0 plane, wound clockwise seen
// from +z like map faces are.
func polyMap(n int) *bsp.Map {
	m := &bsp.Map{
		Planes:   []bsp.Plane{{Normal: vec.Vec3{Z: 1}}},
		TexInfos: []bsp.TexInfo{{Vecs: [2]vec.Vec4{{X: 1, W: 8}, {Y: -1, W: 16}}}},
		TexData:  []bsp.TexData{{Name: "brick/wall", Width: 64, Height: 32, Reflectivity: vec.Vec3{X: 0.5, Y: 0.25, Z: 1}}},
		Edges:    []bsp.Edge{{0, 0}},
	}
	for i := 0; i < n; i++ {
		a := -2 * math32.Pi * float32(i) / float32(n)
		m.Vertexes = append(m.Vertexes, vec.Vec3{X: 100 * math32.Cos(a), Y: 100 * math32.Sin(a)})
		m.Edges = append(m.Edges, bsp.Edge{uint16(i), uint16((i + 1) % n)})
		m.SurfaceEdges = append(m.SurfaceEdges, int32(i+1))
	}
	m.Faces = []bsp.Face{{NumEdges: n, DispInfo: -1}}
	m.Models = []bsp.Submodel{{FaceCount: 1}}
	return m
}

func TestBuildFaceTriangles(t *testing.T) {
	up := Rotate(vec.Vec3{Z: 1})
	for _, n := range []int{3, 4, 8} {
		m := polyMap(n)
		got, err := BuildFace(m, &m.Faces[0])
		if err != nil {
			t.Fatalf("BuildFace(%d-gon): %v", n, err)
		}
		if got.Triangles() != n-2 || len(got.Positions) != 3*(n-2) {
			t.Errorf("BuildFace(%d-gon) = %d triangles, want %d", n, got.Triangles(), n-2)
		}
		if len(got.Normals) != len(got.Positions) || len(got.UVs) != len(got.Positions) {
			t.Errorf("BuildFace(%d-gon) attribute counts %d/%d/%d", n, len(got.Positions), len(got.Normals), len(got.UVs))
		}
		for i := 0; i < len(got.Positions); i += 3 {
			w := triNormal(got.Positions[i], got.Positions[i+1], got.Positions[i+2])
			if !vec.Near(w, up, eps) || !vec.Near(got.Normals[i], up, eps) {
				t.Errorf("%d-gon triangle %d: winding normal %v, normal %v, want %v", n, i/3, w, got.Normals[i], up)
			}
		}
	}
}

func TestBuildFaceOrder(t *testing.T) {
	m := polyMap(4)
	got, err := BuildFace(m, &m.Faces[0])
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 1, 0, 3, 2, 0}
	for i, vi := range want {
		if p := FromVBSP(m.Vertexes[vi]); !vec.Near(got.Positions[i], p, eps) {
			t.Errorf("position %d = %v, want vertex %d %v", i, got.Positions[i], vi, p)
		}
	}
}

func TestBuildFaceErrors(t *testing.T) {
	m := polyMap(4)
	m.TexData[0].Width = 0
	if _, err := BuildFace(m, &m.Faces[0]); !errors.Is(err, ErrTextureSize) {
		t.Errorf("BuildFace(zero width) = %v, want ErrTextureSize", err)
	}
	m = polyMap(4)
	m.Faces[0].NumEdges = 2
	if _, err := BuildFace(m, &m.Faces[0]); !errors.Is(err, ErrDegenerate) {
		t.Errorf("BuildFace(2 edges) = %v, want ErrDegenerate", err)
	}
	m = polyMap(4)
	m.Faces[0].PlaneNum = 3
	if _, err := BuildFace(m, &m.Faces[0]); !errors.Is(err, bsp.ErrIndexRange) {
		t.Errorf("BuildFace(bad plane) = %v, want ErrIndexRange", err)
	}
	// sky faces ignore the plane
	m.TexInfos[0].Flags = bsp.SurfSky
	if _, err := BuildFace(m, &m.Faces[0]); err != nil {
		t.Errorf("BuildFace(sky) = %v", err)
	}
}

func TestUV(t *testing.T) {
	ti := &bsp.TexInfo{Vecs: [2]vec.Vec4{{X: 1, W: 8}, {Y: -1, Z: 0.5, W: 16}}}
	tests := []struct {
		p    vec.Vec3
		want [2]float32
	}{
		{vec.Vec3{X: 32, Y: 16}, [2]float32{40.0 / 64, 0}},
		{vec.Vec3{}, [2]float32{8.0 / 64, 16.0 / 32}},
		{vec.Vec3{X: -8, Y: -16, Z: 32}, [2]float32{0, 48.0 / 32}},
	}
	for _, tc := range tests {
		got, err := UV(ti, FromVBSP(tc.p), 64, 32)
		if err != nil {
			t.Fatal(err)
		}
		if math32.Abs(got[0]-tc.want[0]) > eps || math32.Abs(got[1]-tc.want[1]) > eps {
			t.Errorf("UV(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
	if _, err := UV(ti, vec.Vec3{}, 64, 0); !errors.Is(err, ErrTextureSize) {
		t.Errorf("UV(height 0) = %v, want ErrTextureSize", err)
	}
}

// dispMap holds a 64x64 displacement quad in the z=0 plane starting at
// the origin. Every displacement vertex is raised by its index.
func dispMap(power int) *bsp.Map {
	m := polyMap(4)
	m.Vertexes = []vec.Vec3{{}, {Y: 64}, {X: 64, Y: 64}, {X: 64}}
	m.Faces[0].DispInfo = 0
	m.DispInfos = []bsp.DispInfo{{Power: power}}
	wide := 1<<power + 1
	for i := 0; i < wide*wide; i++ {
		m.DispVerts = append(m.DispVerts, bsp.DispVert{Vec: vec.Vec3{Z: 1}, Dist: float32(i)})
	}
	return m
}

func TestDisplacementGrid(t *testing.T) {
	for p := 1; p <= 4; p++ {
		m := dispMap(p)
		grid, wide, err := dispGrid(m, &m.Faces[0], &m.DispInfos[0])
		if err != nil {
			t.Fatalf("dispGrid(power %d): %v", p, err)
		}
		if want := 1<<p + 1; wide != want || len(grid) != want*want {
			t.Errorf("dispGrid(power %d) = %d wide, %d verts, want %d", p, wide, len(grid), want)
		}
		got, err := BuildDisplacement(m, &m.Faces[0])
		if err != nil {
			t.Fatalf("BuildDisplacement(power %d): %v", p, err)
		}
		if want := 2 * (1 << p) * (1 << p); got.Triangles() != want {
			t.Errorf("BuildDisplacement(power %d) = %d triangles, want %d", p, got.Triangles(), want)
		}
		if got.UVs != nil {
			t.Errorf("BuildDisplacement(power %d) has UVs", p)
		}
	}

	m := dispMap(1)
	grid, _, _ := dispGrid(m, &m.Faces[0], &m.DispInfos[0])
	for i, want := range []vec.Vec3{
		{}, {X: 32, Z: 1}, {X: 64, Z: 2},
		{Y: 32, Z: 3}, {X: 32, Y: 32, Z: 4}, {X: 64, Y: 32, Z: 5},
		{Y: 64, Z: 6}, {X: 32, Y: 64, Z: 7}, {X: 64, Y: 64, Z: 8},
	} {
		if !vec.Near(grid[i], want, eps) {
			t.Errorf("grid[%d] = %v, want %v", i, grid[i], want)
		}
	}
}

func TestDisplacementCells(t *testing.T) {
	m := dispMap(1)
	for i := range m.DispVerts {
		m.DispVerts[i].Dist = 0
	}
	got, err := BuildDisplacement(m, &m.Faces[0])
	if err != nil {
		t.Fatal(err)
	}
	g := func(x, y float32) vec.Vec3 { return FromVBSP(vec.Vec3{X: 32 * x, Y: 32 * y}) }
	want := []vec.Vec3{
		// cell 0 is even
		g(1, 1), g(0, 1), g(0, 0),
		g(1, 1), g(0, 0), g(1, 0),
		// cell 1 is odd
		g(2, 0), g(1, 1), g(1, 0),
		g(2, 1), g(1, 1), g(2, 0),
	}
	for i, w := range want {
		if !vec.Near(got.Positions[i], w, eps) {
			t.Errorf("position %d = %v, want %v", i, got.Positions[i], w)
		}
	}
	up := Rotate(vec.Vec3{Z: 1})
	for i, n := range got.Normals {
		if !vec.Near(n, up, eps) {
			t.Errorf("normal %d = %v, want %v", i, n, up)
		}
	}
}

func TestDisplacementBase(t *testing.T) {
	// starting at the second corner rotates the grid
	m := dispMap(1)
	m.DispInfos[0].StartPosition = vec.Vec3{X: 1, Y: 63}
	grid, _, err := dispGrid(m, &m.Faces[0], &m.DispInfos[0])
	if err != nil {
		t.Fatal(err)
	}
	if !vec.Near(grid[0], vec.Vec3{X: 1, Y: 63}, eps) || !vec.Near(grid[2], vec.Vec3{Z: 2}, eps) ||
		!vec.Near(grid[6], vec.Vec3{X: 64, Y: 64, Z: 6}, eps) {
		t.Errorf("grid = %v", grid)
	}
}

func TestDisplacementErrors(t *testing.T) {
	m := dispMap(1)
	m.Faces[0].NumEdges = 3
	if _, err := BuildDisplacement(m, &m.Faces[0]); !errors.Is(err, bsp.ErrBadDisplacement) {
		t.Errorf("BuildDisplacement(3 edges) = %v, want ErrBadDisplacement", err)
	}
	m = dispMap(1)
	m.DispInfos[0].Power = 5
	if _, err := BuildDisplacement(m, &m.Faces[0]); !errors.Is(err, bsp.ErrBadDisplacement) {
		t.Errorf("BuildDisplacement(power 5) = %v, want ErrBadDisplacement", err)
	}
	m = dispMap(2)
	m.DispVerts = m.DispVerts[:10]
	if _, err := BuildDisplacement(m, &m.Faces[0]); !errors.Is(err, bsp.ErrIndexRange) {
		t.Errorf("BuildDisplacement(short verts) = %v, want ErrIndexRange", err)
	}
}

func TestTriNormalDegenerate(t *testing.T) {
	p := vec.Vec3{X: 1, Y: 2, Z: 3}
	if n := triNormal(p, p, vec.Vec3{X: 2, Y: 4, Z: 6}); n != (vec.Vec3{}) {
		t.Errorf("triNormal(degenerate) = %v, want zero", n)
	}
}

func TestConstructMeshes(t *testing.T) {
	m := polyMap(4)
	// a trigger face and a displacement next to the quad
	m.Faces = append(m.Faces,
		bsp.Face{NumEdges: 4, TexInfo: 1, DispInfo: -1},
		bsp.Face{NumEdges: 4, TexInfo: 2, DispInfo: 0},
		bsp.Face{NumEdges: 4, TexInfo: 3, DispInfo: -1},
	)
	m.TexInfos = append(m.TexInfos,
		bsp.TexInfo{TexData: 1},
		bsp.TexInfo{TexData: 2, Flags: bsp.SurfTrans},
		bsp.TexInfo{TexData: 3},
	)
	m.TexData = append(m.TexData,
		bsp.TexData{Name: "TOOLS/TOOLSTRIGGER", Width: 64, Height: 64},
		bsp.TexData{Name: "nature/blend", Width: 64, Height: 64},
		// zero sized, fails to build
		bsp.TexData{Name: "dev/broken"},
	)
	m.DispInfos = []bsp.DispInfo{{Power: 2}}
	m.DispVerts = make([]bsp.DispVert, 25)
	m.Models = []bsp.Submodel{
		{FaceCount: 1},
		{FirstFace: 1, FaceCount: 3, Origin: vec.Vec3{X: 100, Y: 200, Z: 300}},
	}

	lt := texture.New()
	infos := ConstructMeshes(lt, m)
	sort.Slice(infos, func(i, j int) bool { return infos[i].Face < infos[j].Face })
	if len(infos) != 2 || infos[0].Face != 0 || infos[1].Face != 2 {
		t.Fatalf("ConstructMeshes returned faces %v", infos)
	}
	quad, disp := infos[0], infos[1]
	if quad.Material != "brick/wall" || quad.Displacement || quad.Texture != lt.Missing() {
		t.Errorf("quad = %+v", quad)
	}
	if quad.Color != [4]float32{0.5, 0.25, 1, 1} {
		t.Errorf("quad color = %v", quad.Color)
	}
	if !disp.Displacement || disp.Texture != nil || disp.Color[3] != transAlpha {
		t.Errorf("displacement = %+v", disp)
	}
	o := FromVBSP(vec.Vec3{X: 100, Y: 200, Z: 300})
	if tr := disp.Transform.Col(3); math32.Abs(tr[0]-o.X) > eps || math32.Abs(tr[1]-o.Y) > eps || math32.Abs(tr[2]-o.Z) > eps {
		t.Errorf("displacement transform = %v, want translation %v", tr, o)
	}

	s := Summarize(infos)
	if s.Faces != 2 || s.Displacements != 1 || s.Triangles != 2+32 || s.Missing != 1 {
		t.Errorf("Summarize = %+v", s)
	}
}
