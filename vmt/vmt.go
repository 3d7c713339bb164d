// SPDX-License-Identifier: GPL-2.0-or-later

// Package vmt parses Valve material documents.
package vmt

import (
	"strings"

	opt "github.com/repeale/fp-go/option"
)

type Shader int

const (
	ShaderOther Shader = iota
	LightmappedGeneric
	UnlitGeneric
	VertexLitGeneric
	Water
	Patch
)

var shaderNames = []struct {
	s    Shader
	name string
}{
	{LightmappedGeneric, "LightmappedGeneric"},
	{UnlitGeneric, "UnlitGeneric"},
	{VertexLitGeneric, "VertexLitGeneric"},
	{Water, "Water"},
	{Patch, "Patch"},
}

// ShaderName is one of the known shaders or, with Shader == ShaderOther,
// any other name. Raw keeps the name as written.
type ShaderName struct {
	Shader Shader
	Raw    string
}

func ParseShaderName(s string) ShaderName {
	for _, n := range shaderNames {
		if strings.EqualFold(s, n.name) {
			return ShaderName{Shader: n.s, Raw: s}
		}
	}
	return ShaderName{Shader: ShaderOther, Raw: s}
}

func (n ShaderName) String() string {
	return n.Raw
}

func (n ShaderName) Is(s Shader) bool {
	return n.Shader == s
}

type DetailBlendMode uint8

const (
	DecalModulate DetailBlendMode = iota
	Additive
	TranslucentDetail
	BlendActorFade
	TranslucentBase
	UnlitAdditive
	UnlitAdditiveThresholdFade
	TwoPatternDecalModulate
	Multiply
	BaseMaskDetailAlpha
	SelfShadowedBumpmap
	SelfShadowedBumpmapAlbedo
)

var blendModeNames = [...]string{
	"DecalModulate",
	"Additive",
	"TranslucentDetail",
	"BlendActorFade",
	"TranslucentBase",
	"UnlitAdditive",
	"UnlitAdditiveThresholdFade",
	"TwoPatternDecalModulate",
	"Multiply",
	"BaseMaskDetailAlpha",
	"SelfShadowedBumpmap",
	"SelfShadowedBumpmapAlbedo",
}

func ParseDetailBlendMode(v uint8) (DetailBlendMode, error) {
	if int(v) >= len(blendModeNames) {
		return 0, &InvalidBlendModeError{Mode: v}
	}
	return DetailBlendMode(v), nil
}

func (m DetailBlendMode) String() string {
	if int(m) < len(blendModeNames) {
		return blendModeNames[m]
	}
	return "DetailBlendMode(?)"
}

type RGB [3]float32

type Detail struct {
	Texture              opt.Option[string]
	Tint                 opt.Option[RGB]
	Frame                opt.Option[uint32]
	Scale                opt.Option[float32]
	AlphaMaskBaseTexture opt.Option[bool]
	BlendMode            opt.Option[DetailBlendMode]
	BlendFactor          opt.Option[float32]
}

type Detail2 struct {
	Texture     opt.Option[string]
	Scale       opt.Option[float32]
	BlendFactor opt.Option[float32]
	Frame       opt.Option[uint32]
	Tint        opt.Option[RGB]
}

// Node is an entry of a nested block. Leaves carry a Value, blocks carry
// Children (non-nil, possibly empty).
type Node struct {
	Value    string
	Children Block
}

func (n *Node) IsBlock() bool {
	return n.Children != nil
}

// Block maps lowercased keys to nodes.
type Block map[string]*Node

// Lookup walks the block by key path. Keys are matched case-insensitively.
func (b Block) Lookup(path ...string) (*Node, bool) {
	if len(path) == 0 {
		return nil, false
	}
	cur := b
	for i, k := range path {
		n, ok := cur[strings.ToLower(k)]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return n, true
		}
		if !n.IsBlock() {
			return nil, false
		}
		cur = n.Children
	}
	return nil, false
}

type Document struct {
	Shader ShaderName

	BaseTexture          opt.Option[string]
	Decal                opt.Option[bool]
	SurfaceProp          opt.Option[string]
	Detail               Detail
	Detail2              Detail2
	BaseTextureTransform opt.Option[[2]float32]
	Color                opt.Option[RGB]

	Phong              opt.Option[float32]
	PhongBoost         opt.Option[float32]
	PhongExponent      opt.Option[float32]
	PhongFresnelRanges opt.Option[[3]float32]

	LightwarpTexture opt.Option[string]
	Keywords         []string

	// Include names the parent document of a patch material.
	Include opt.Option[string]

	// Other holds every unrecognized top-level key, lowercased.
	Other map[string]string
	Sub   Block
}

func newDocument(name ShaderName) *Document {
	return &Document{
		Shader: name,
		Other:  make(map[string]string),
		Sub:    make(Block),
	}
}

// AlbedoTexture returns the name of the texture the surface is drawn with.
// Water materials without a base texture fall back to %tooltexture.
func (d *Document) AlbedoTexture() (string, bool) {
	if opt.IsSome(d.BaseTexture) {
		return d.BaseTexture.Value, true
	}
	if d.Shader.Is(Water) {
		if t, ok := d.Other["%tooltexture"]; ok {
			return t, true
		}
	}
	return "", false
}
