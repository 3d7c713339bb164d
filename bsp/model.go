// SPDX-License-Identifier: GPL-2.0-or-later

package bsp

import (
	"quell/math/vec"
)

type SurfaceFlags uint32

const (
	SurfLight     SurfaceFlags = 1 << iota // 0x0001
	SurfSky2D                              // 0x0002
	SurfSky                                // 0x0004
	SurfWarp                               // 0x0008
	SurfTrans                              // 0x0010
	SurfNoPortal                           // 0x0020
	SurfTrigger                            // 0x0040
	SurfNoDraw                             // 0x0080
	SurfHint                               // 0x0100
	SurfSkip                               // 0x0200
	SurfNoLight                            // 0x0400
	SurfBumpLight                          // 0x0800
	SurfNoShadows                          // 0x1000
	SurfNoDecals                           // 0x2000
	SurfNoChop                             // 0x4000
	SurfHitbox                             // 0x8000
)

func (f SurfaceFlags) Has(o SurfaceFlags) bool {
	return f&o != 0
}

// ToolsTrigger is the material of trigger brushes. They are never drawn.
const ToolsTrigger = "tools/toolstrigger"

type Plane struct {
	Normal vec.Vec3
	Dist   float32
}

type Edge [2]uint16

type Face struct {
	PlaneNum  int
	FirstEdge int
	NumEdges  int
	TexInfo   int
	// DispInfo is -1 for faces that are not displacements.
	DispInfo int
}

func (f *Face) IsDisplacement() bool {
	return f.DispInfo >= 0
}

type TexInfo struct {
	// Vecs are the s and t projection axes, W is the offset in texels.
	Vecs         [2]vec.Vec4
	LightmapVecs [2]vec.Vec4
	Flags        SurfaceFlags
	TexData      int
}

type TexData struct {
	Reflectivity vec.Vec3
	NameID       int
	Name         string
	Width        int
	Height       int
	ViewWidth    int
	ViewHeight   int
}

type Submodel struct {
	Mins, Maxs vec.Vec3
	Origin     vec.Vec3
	HeadNode   int
	FirstFace  int
	FaceCount  int
}

type DispInfo struct {
	StartPosition vec.Vec3
	DispVertStart int
	DispTriStart  int
	Power         int
}

type DispVert struct {
	Vec   vec.Vec3
	Dist  float32
	Alpha float32
}

// Map is the geometry and embedded files of a compiled map.
type Map struct {
	Name string

	Models       []Submodel
	Faces        []Face
	TexInfos     []TexInfo
	TexData      []TexData
	Planes       []Plane
	Edges        []Edge
	SurfaceEdges []int32
	Vertexes     []vec.Vec3
	DispInfos    []DispInfo
	DispVerts    []DispVert

	Pak *Pak
}
