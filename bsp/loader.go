// SPDX-License-Identifier: GPL-2.0-or-later

package bsp

import (
	"path/filepath"
	"strings"
	"time"

	vbsp "github.com/galaco/bsp"
	"github.com/galaco/bsp/lumps"
	"github.com/galaco/bsp/primitives/dispinfo"
	"github.com/galaco/bsp/primitives/dispvert"
	"github.com/galaco/bsp/primitives/model"
	"github.com/galaco/bsp/primitives/texdata"
	"github.com/galaco/bsp/primitives/texinfo"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang-source-engine/stringtable"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"quell/math/vec"
)

// ErrBadLump is returned for a lump the map file holds but that could not
// be decoded.
var ErrBadLump = errors.New("bsp: undecodable lump")

func fromMgl(v mgl32.Vec3) vec.Vec3 {
	return vec.Vec3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

func fromArr4(a [4]float32) vec.Vec4 {
	return vec.Vec4{X: a[0], Y: a[1], Z: a[2], W: a[3]}
}

// Load reads the compiled map at path.
func Load(path string) (*Map, error) {
	start := time.Now()
	f, err := vbsp.ReadFromFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	m, err := FromFile(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	log.Debug().
		Str("map", m.Name).
		Int("faces", len(m.Faces)).
		Int("models", len(m.Models)).
		Int("displacements", len(m.DispInfos)).
		Int("pakfiles", m.Pak.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("loaded map")
	return m, nil
}

// lump returns lump id of f as T. Lumps galaco fails to decode come back as
// nil and are reported as ErrBadLump.
func lump[T lumps.ILump](f *vbsp.Bsp, id vbsp.LumpId) (T, error) {
	l, ok := f.Lump(id).(T)
	if !ok {
		return l, errors.Wrapf(ErrBadLump, "lump %d", int(id))
	}
	return l, nil
}

// FromFile converts the lumps of a parsed map file.
func FromFile(f *vbsp.Bsp) (*Map, error) {
	m := &Map{}

	faces, err := lump[*lumps.Face](f, vbsp.LumpFaces)
	if err != nil {
		return nil, err
	}
	for _, gf := range faces.GetData() {
		m.Faces = append(m.Faces, Face{
			PlaneNum:  int(gf.Planenum),
			FirstEdge: int(gf.FirstEdge),
			NumEdges:  int(gf.NumEdges),
			TexInfo:   int(gf.TexInfo),
			DispInfo:  int(gf.DispInfo),
		})
	}
	planes, err := lump[*lumps.Planes](f, vbsp.LumpPlanes)
	if err != nil {
		return nil, err
	}
	for _, p := range planes.GetData() {
		m.Planes = append(m.Planes, Plane{Normal: fromMgl(p.Normal), Dist: p.Distance})
	}
	verts, err := lump[*lumps.Vertex](f, vbsp.LumpVertexes)
	if err != nil {
		return nil, err
	}
	for _, v := range verts.GetData() {
		m.Vertexes = append(m.Vertexes, fromMgl(v))
	}
	edges, err := lump[*lumps.Edge](f, vbsp.LumpEdges)
	if err != nil {
		return nil, err
	}
	for _, e := range edges.GetData() {
		m.Edges = append(m.Edges, Edge(e))
	}
	surfEdges, err := lump[*lumps.Surfedge](f, vbsp.LumpSurfEdges)
	if err != nil {
		return nil, err
	}
	m.SurfaceEdges = surfEdges.GetData()

	texInfos, err := lump[*lumps.TexInfo](f, vbsp.LumpTexInfo)
	if err != nil {
		return nil, err
	}
	m.TexInfos = convertTexInfos(texInfos.GetData())
	texData, err := lump[*lumps.TexData](f, vbsp.LumpTexData)
	if err != nil {
		return nil, err
	}
	m.TexData = convertTexData(texData.GetData())
	models, err := lump[*lumps.Model](f, vbsp.LumpModels)
	if err != nil {
		return nil, err
	}
	m.Models = convertModels(models.GetData())
	dispInfos, err := lump[*lumps.DispInfo](f, vbsp.LumpDispInfo)
	if err != nil {
		return nil, err
	}
	m.DispInfos = convertDispInfos(dispInfos.GetData())
	dispVerts, err := lump[*lumps.DispVert](f, vbsp.LumpDispVerts)
	if err != nil {
		return nil, err
	}
	m.DispVerts = convertDispVerts(dispVerts.GetData())

	stringData, err := lump[*lumps.TexDataStringData](f, vbsp.LumpTexDataStringData)
	if err != nil {
		return nil, err
	}
	table, err := lump[*lumps.TexDataStringTable](f, vbsp.LumpTexDataStringTable)
	if err != nil {
		return nil, err
	}
	st := stringtable.NewFromExistingStringTableData(stringData.GetData(), table.GetData())
	if err := m.nameTexData(st); err != nil {
		return nil, err
	}

	// An empty pakfile lump is not a zip archive, so galaco yields nil.
	if pak, ok := f.Lump(vbsp.LumpPakfile).(*lumps.Pakfile); ok && pak.GetData() != nil {
		m.Pak = NewPak(pak.GetData())
	}
	return m, nil
}

func convertTexInfos(in []texinfo.TexInfo) []TexInfo {
	out := make([]TexInfo, len(in))
	for i, ti := range in {
		out[i] = TexInfo{
			Vecs: [2]vec.Vec4{
				fromArr4(ti.TextureVecsTexelsPerWorldUnits[0]),
				fromArr4(ti.TextureVecsTexelsPerWorldUnits[1]),
			},
			LightmapVecs: [2]vec.Vec4{
				fromArr4(ti.LightmapVecsLuxelsPerWorldUnits[0]),
				fromArr4(ti.LightmapVecsLuxelsPerWorldUnits[1]),
			},
			Flags:   SurfaceFlags(uint32(ti.Flags)),
			TexData: int(ti.TexData),
		}
	}
	return out
}

func convertTexData(in []texdata.TexData) []TexData {
	out := make([]TexData, len(in))
	for i, td := range in {
		out[i] = TexData{
			Reflectivity: fromMgl(td.Reflectivity),
			NameID:       int(td.NameStringTableID),
			Width:        int(td.Width),
			Height:       int(td.Height),
			ViewWidth:    int(td.ViewWidth),
			ViewHeight:   int(td.ViewHeight),
		}
	}
	return out
}

func convertModels(in []model.Model) []Submodel {
	out := make([]Submodel, len(in))
	for i, md := range in {
		out[i] = Submodel{
			Mins:      fromMgl(md.Mins),
			Maxs:      fromMgl(md.Maxs),
			Origin:    fromMgl(md.Origin),
			HeadNode:  int(md.HeadNode),
			FirstFace: int(md.FirstFace),
			FaceCount: int(md.NumFaces),
		}
	}
	return out
}

func convertDispInfos(in []dispinfo.DispInfo) []DispInfo {
	out := make([]DispInfo, len(in))
	for i, d := range in {
		out[i] = DispInfo{
			StartPosition: fromMgl(d.StartPosition),
			DispVertStart: int(d.DispVertStart),
			DispTriStart:  int(d.DispTriStart),
			Power:         int(d.Power),
		}
	}
	return out
}

func convertDispVerts(in []dispvert.DispVert) []DispVert {
	out := make([]DispVert, len(in))
	for i, d := range in {
		out[i] = DispVert{Vec: fromMgl(d.Vec), Dist: d.Dist, Alpha: d.Alpha}
	}
	return out
}

type stringFinder interface {
	FindString(int) (string, error)
}

func (m *Map) nameTexData(st stringFinder) error {
	for i := range m.TexData {
		td := &m.TexData[i]
		name, err := st.FindString(td.NameID)
		if err != nil {
			return errors.Wrapf(err, "texdata %d name", i)
		}
		td.Name = strings.ReplaceAll(name, "\\", "/")
	}
	return nil
}
