// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/galaco/bsp/lumps"
	"github.com/galaco/bsp/primitives/dispinfo"
	"github.com/galaco/bsp/primitives/dispvert"
	"github.com/galaco/bsp/primitives/model"
	"github.com/galaco/bsp/primitives/texdata"
	"github.com/galaco/bsp/primitives/texinfo"
	"github.com/go-gl/mathgl/mgl32"

	"quell/filesystem"
	"quell/math/vec"
)

// quadMap has one model with a unit quad in the z=0 plane and a trigger face.
func quadMap() *Map {
	return &Map{
		Models: []Submodel{{FirstFace: 0, FaceCount: 2}},
		Faces: []Face{
			{PlaneNum: 0, FirstEdge: 0, NumEdges: 4, TexInfo: 0, DispInfo: -1},
			{PlaneNum: 0, FirstEdge: 0, NumEdges: 4, TexInfo: 1, DispInfo: -1},
		},
		Planes:   []Plane{{Normal: vec.Vec3{Z: 1}}},
		Vertexes: []vec.Vec3{{}, {Y: 1}, {X: 1, Y: 1}, {X: 1}},
		Edges:    []Edge{{0, 0}, {0, 1}, {1, 2}, {3, 2}, {3, 0}},
		// edge 3 is stored backwards
		SurfaceEdges: []int32{1, 2, -3, 4},
		TexInfos: []TexInfo{
			{TexData: 0},
			{TexData: 1, Flags: SurfTrigger},
		},
		TexData: []TexData{
			{Name: "brick/wall", Width: 64, Height: 64},
			{Name: "TOOLS/ToolsTrigger", Width: 64, Height: 64},
		},
	}
}

func TestFaceVertices(t *testing.T) {
	m := quadMap()
	got, err := m.FaceVertices(&m.Faces[0])
	if err != nil {
		t.Fatalf("FaceVertices: %v", err)
	}
	want := []vec.Vec3{{}, {Y: 1}, {X: 1, Y: 1}, {X: 1}}
	if len(got) != len(want) {
		t.Fatalf("FaceVertices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FaceVertices[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFaceVertexRange(t *testing.T) {
	m := quadMap()
	f := Face{FirstEdge: 2, NumEdges: 4}
	if _, err := m.FaceVertices(&f); !errors.Is(err, ErrIndexRange) {
		t.Errorf("FaceVertices(out of range) = %v, want ErrIndexRange", err)
	}
	m.SurfaceEdges[0] = 99
	if _, err := m.FaceVertex(&m.Faces[0], 0); !errors.Is(err, ErrIndexRange) {
		t.Errorf("FaceVertex(bad edge) = %v, want ErrIndexRange", err)
	}
}

func TestVisible(t *testing.T) {
	m := quadMap()
	if !m.Visible(&m.Faces[0]) {
		t.Errorf("brick face not visible")
	}
	if m.Visible(&m.Faces[1]) {
		t.Errorf("trigger face visible")
	}
	m.TexInfos[0].Flags = SurfNoDraw
	if m.Visible(&m.Faces[0]) {
		t.Errorf("nodraw face visible")
	}
	m.TexInfos[0].Flags = SurfSky | SurfNoShadows
	if m.Visible(&m.Faces[0]) {
		t.Errorf("sky face visible")
	}
	if name, err := m.MaterialName(&m.Faces[0]); err != nil || name != "brick/wall" {
		t.Errorf("MaterialName = %q, %v", name, err)
	}
}

func TestModelFaces(t *testing.T) {
	m := quadMap()
	m.Models = append(m.Models, Submodel{FirstFace: 1, FaceCount: 5})
	var got []int
	m.ModelFaces(func(_ *Submodel, f int) { got = append(got, f) })
	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 1 {
		t.Errorf("ModelFaces = %v, want [0 1 1]", got)
	}
}

func TestDisplacement(t *testing.T) {
	m := quadMap()
	if _, err := m.Displacement(&m.Faces[0]); !errors.Is(err, ErrBadDisplacement) {
		t.Errorf("Displacement(flat) = %v, want ErrBadDisplacement", err)
	}
	m.Faces[0].DispInfo = 0
	if _, err := m.Displacement(&m.Faces[0]); !errors.Is(err, ErrIndexRange) {
		t.Errorf("Displacement(missing) = %v, want ErrIndexRange", err)
	}
	m.DispInfos = []DispInfo{{DispVertStart: 1, Power: 1}}
	m.DispVerts = make([]DispVert, 10)
	d, err := m.Displacement(&m.Faces[0])
	if err != nil {
		t.Fatal(err)
	}
	if vs, err := m.DispVertsOf(d, 9); err != nil || len(vs) != 9 {
		t.Errorf("DispVertsOf(9) = %d, %v", len(vs), err)
	}
	if _, err := m.DispVertsOf(d, 10); !errors.Is(err, ErrIndexRange) {
		t.Errorf("DispVertsOf(10) = %v, want ErrIndexRange", err)
	}
}

func TestConvertTexInfos(t *testing.T) {
	in := []texinfo.TexInfo{{}, {
		TextureVecsTexelsPerWorldUnits: [2][4]float32{{1, 0, 0, 8}, {0, -1, 0, 16}},
		Flags:                          int32(SurfTrans | SurfNoDecals),
		TexData:                        7,
	}}
	got := convertTexInfos(in)
	if len(got) != 2 {
		t.Fatalf("convertTexInfos = %d records, want 2", len(got))
	}
	ti := got[1]
	if ti.Vecs[0] != (vec.Vec4{X: 1, W: 8}) || ti.Vecs[1] != (vec.Vec4{Y: -1, W: 16}) {
		t.Errorf("Vecs = %v", ti.Vecs)
	}
	if !ti.Flags.Has(SurfTrans) || ti.Flags.Has(SurfNoDraw) || ti.TexData != 7 {
		t.Errorf("TexInfo = %+v", ti)
	}
}

func TestConvertTexData(t *testing.T) {
	got := convertTexData([]texdata.TexData{{
		Reflectivity:      mgl32.Vec3{0.5, 0.25, 1},
		NameStringTableID: 3,
		Width:             128,
		Height:            64,
	}})
	want := TexData{Reflectivity: vec.Vec3{X: 0.5, Y: 0.25, Z: 1}, NameID: 3, Width: 128, Height: 64}
	if got[0] != want {
		t.Errorf("convertTexData = %+v, want %+v", got[0], want)
	}
}

func TestConvertDisplacements(t *testing.T) {
	infos := convertDispInfos([]dispinfo.DispInfo{{
		StartPosition: mgl32.Vec3{1, 2, 3},
		DispVertStart: 81,
		Power:         3,
	}})
	want := DispInfo{StartPosition: vec.Vec3{X: 1, Y: 2, Z: 3}, DispVertStart: 81, Power: 3}
	if infos[0] != want {
		t.Errorf("convertDispInfos = %+v, want %+v", infos[0], want)
	}
	verts := convertDispVerts([]dispvert.DispVert{{Vec: mgl32.Vec3{0, 0, 1}, Dist: 12, Alpha: 255}})
	if verts[0] != (DispVert{Vec: vec.Vec3{Z: 1}, Dist: 12, Alpha: 255}) {
		t.Errorf("convertDispVerts = %+v", verts[0])
	}
}

func TestConvertModels(t *testing.T) {
	got := convertModels([]model.Model{{Origin: mgl32.Vec3{10, 20, 30}, FirstFace: 5, NumFaces: 12}})
	if got[0].Origin != (vec.Vec3{X: 10, Y: 20, Z: 30}) || got[0].FirstFace != 5 || got[0].FaceCount != 12 {
		t.Errorf("convertModels = %+v", got[0])
	}
}

type fakeTable []string

func (f fakeTable) FindString(i int) (string, error) {
	if i < 0 || i >= len(f) {
		return "", errors.New("no such string")
	}
	return f[i], nil
}

func TestNameTexData(t *testing.T) {
	m := &Map{TexData: []TexData{{NameID: 1}, {NameID: 0}}}
	if err := m.nameTexData(fakeTable{`DEV\dev_measure`, "brick/wall"}); err != nil {
		t.Fatal(err)
	}
	if m.TexData[0].Name != "brick/wall" || m.TexData[1].Name != "DEV/dev_measure" {
		t.Errorf("names = %q, %q", m.TexData[0].Name, m.TexData[1].Name)
	}
	m.TexData[0].NameID = 5
	if err := m.nameTexData(fakeTable{}); err == nil {
		t.Errorf("nameTexData with a bad id succeeded")
	}
}

func pakOf(t *testing.T, files map[string]string) *Pak {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(data))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	var l lumps.Pakfile
	if err := l.Unmarshall(buf.Bytes()); err != nil {
		t.Fatal(err)
	}
	return NewPak(l.GetData())
}

func TestPak(t *testing.T) {
	pak := pakOf(t, map[string]string{
		"materials/maps/test/Cubemap.vmt": `"patch" {}`,
		"materials/maps/test/cubemap.vtf": "VTF",
	})
	if pak.Len() != 2 {
		t.Errorf("Len = %d, want 2", pak.Len())
	}
	m := &Map{Pak: pak}
	if !m.HasTexture("maps/test/CUBEMAP") {
		t.Errorf("HasTexture = false")
	}
	if m.HasTexture("maps/test/other") {
		t.Errorf("HasTexture(other) = true")
	}
	b, ok, err := m.FindVMT("Maps/Test/Cubemap")
	if err != nil || !ok || string(b) != `"patch" {}` {
		t.Errorf("FindVMT = %q, %v, %v", b, ok, err)
	}
	b, ok, err = m.GetTextureData("maps/test/cubemap.vtf")
	if err != nil || !ok || string(b) != "VTF" {
		t.Errorf("GetTextureData = %q, %v, %v", b, ok, err)
	}
	b, src, ok, err := m.Find(filesystem.Canonical(filesystem.Material, "maps/test/cubemap"))
	if err != nil || !ok || src != filesystem.Map || len(b) == 0 {
		t.Errorf("Find = %q, %v, %v, %v", b, src, ok, err)
	}

	empty := &Map{}
	if _, ok, _ := empty.FindVMT("x"); ok || empty.HasTexture("x") {
		t.Errorf("map without a pak found files")
	}
	if empty.Pak.Len() != 0 {
		t.Errorf("nil pak Len = %d", empty.Pak.Len())
	}
}
