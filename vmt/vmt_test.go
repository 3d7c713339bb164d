// SPDX-License-Identifier: GPL-2.0-or-later

package vmt

import (
	"errors"
	"fmt"
	"testing"

	opt "github.com/repeale/fp-go/option"
)

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	d, err := Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return d
}

func TestParseKnownKeys(t *testing.T) {
	d := mustParse(t, `"LightmappedGeneric" { "$basetexture" "a/b" "$surfaceprop" "metal" }`)
	if !d.Shader.Is(LightmappedGeneric) {
		t.Errorf("Shader = %v, want LightmappedGeneric", d.Shader)
	}
	if opt.IsNone(d.BaseTexture) || d.BaseTexture.Value != "a/b" {
		t.Errorf("BaseTexture = %v, want a/b", d.BaseTexture)
	}
	if opt.IsNone(d.SurfaceProp) || d.SurfaceProp.Value != "metal" {
		t.Errorf("SurfaceProp = %v, want metal", d.SurfaceProp)
	}
	if len(d.Other) != 0 {
		t.Errorf("Other = %v, want empty", d.Other)
	}
}

func TestParseKeyCase(t *testing.T) {
	for _, k := range []string{"$BaseTexture", "$basetexture", "$BASETEXTURE"} {
		d := mustParse(t, fmt.Sprintf(`VertexLitGeneric { %q "x/y" }`, k))
		if opt.IsNone(d.BaseTexture) || d.BaseTexture.Value != "x/y" {
			t.Errorf("key %s: BaseTexture = %v, want x/y", k, d.BaseTexture)
		}
	}
}

func TestParseShaderName(t *testing.T) {
	tests := []struct {
		in   string
		want Shader
	}{
		{"LightmappedGeneric", LightmappedGeneric},
		{"lightmappedgeneric", LightmappedGeneric},
		{"UnlitGeneric", UnlitGeneric},
		{"VERTEXLITGENERIC", VertexLitGeneric},
		{"Water", Water},
		{"patch", Patch},
		{"Refract", ShaderOther},
	}
	for _, tc := range tests {
		got := ParseShaderName(tc.in)
		if got.Shader != tc.want || got.String() != tc.in {
			t.Errorf("ParseShaderName(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseOther(t *testing.T) {
	d := mustParse(t, `"UnlitGeneric"
{
	"$BumpMap" "Brick/Normal"
	$envmap env_cubemap
}`)
	if got := d.Other["$bumpmap"]; got != "Brick/Normal" {
		t.Errorf("Other[$bumpmap] = %q, want %q", got, "Brick/Normal")
	}
	if got := d.Other["$envmap"]; got != "env_cubemap" {
		t.Errorf("Other[$envmap] = %q, want %q", got, "env_cubemap")
	}
}

func TestParseNested(t *testing.T) {
	d := mustParse(t, `"VertexLitGeneric"
{
	"$basetexture" "models/thing"
	"Proxies"
	{
		"AnimatedTexture"
		{
			"animatedtexturevar" "$normalmap"
		}
	}
}`)
	n, ok := d.Sub.Lookup("proxies", "animatedtexture", "animatedtexturevar")
	if !ok {
		t.Fatalf("Lookup(proxies.animatedtexture.animatedtexturevar) not found in %v", d.Sub)
	}
	if n.IsBlock() || n.Value != "$normalmap" {
		t.Errorf("leaf = %+v, want $normalmap", n)
	}
	if n, ok := d.Sub.Lookup("Proxies", "AnimatedTexture"); !ok || !n.IsBlock() {
		t.Errorf("Lookup(Proxies.AnimatedTexture) = %v, %v, want block", n, ok)
	}
	if _, ok := d.Other["proxies"]; ok {
		t.Errorf("block leaked into Other")
	}
}

func TestParseComments(t *testing.T) {
	d := mustParse(t, `// leading
"LightmappedGeneric" // shader
{
	// "$basetexture" "commented/out"
	"$basetexture" "real" // trailing
}
// done`)
	if d.BaseTexture.Value != "real" {
		t.Errorf("BaseTexture = %v, want real", d.BaseTexture)
	}
}

func TestParseTypedFields(t *testing.T) {
	d := mustParse(t, `"VertexLitGeneric"
{
	"$decal" "1"
	"$color" "[ 0.5 0.25 1 ]"
	"$detailtint" "{255 0 51}"
	"$basetexturetransform" "[ 2 3 ]"
	"$phong" "1"
	"$phongboost" "2.5"
	"$phongexponent" "20"
	"$phongfresnelranges" "[0 0.5 1]"
	"$detail" "detail/noise"
	"$detailscale" "4"
	"$detailframe" "3"
	"$detailblendmode" "8"
	"$detailblendfactor" ".5"
	"$detailalphamaskbasetexture" "0"
	"$detail2" "detail/dirt"
	"$detailscale2" "2"
	"$detailframe2" "1"
	"$detailblendfactor2" "0.75"
	"$detailtint2" "[1 1 1]"
	"$lightwarptexture" "models/warp"
	"%keywords" "tf, metal,crate"
}`)
	if !d.Decal.Value {
		t.Errorf("Decal = %v, want true", d.Decal)
	}
	if want := (RGB{0.5, 0.25, 1}); d.Color.Value != want {
		t.Errorf("Color = %v, want %v", d.Color.Value, want)
	}
	if want := (RGB{1, 0, 0.2}); d.Detail.Tint.Value != want {
		t.Errorf("Detail.Tint = %v, want %v", d.Detail.Tint.Value, want)
	}
	if want := [2]float32{2, 3}; d.BaseTextureTransform.Value != want {
		t.Errorf("BaseTextureTransform = %v, want %v", d.BaseTextureTransform.Value, want)
	}
	if d.PhongBoost.Value != 2.5 || d.PhongExponent.Value != 20 || d.Phong.Value != 1 {
		t.Errorf("phong = %v %v %v", d.Phong, d.PhongBoost, d.PhongExponent)
	}
	if want := [3]float32{0, 0.5, 1}; d.PhongFresnelRanges.Value != want {
		t.Errorf("PhongFresnelRanges = %v, want %v", d.PhongFresnelRanges.Value, want)
	}
	if d.Detail.BlendMode.Value != Multiply {
		t.Errorf("Detail.BlendMode = %v, want Multiply", d.Detail.BlendMode.Value)
	}
	if d.Detail.Frame.Value != 3 || d.Detail.Scale.Value != 4 || d.Detail.BlendFactor.Value != 0.5 {
		t.Errorf("Detail = %+v", d.Detail)
	}
	if opt.IsNone(d.Detail.AlphaMaskBaseTexture) || d.Detail.AlphaMaskBaseTexture.Value {
		t.Errorf("Detail.AlphaMaskBaseTexture = %v, want Some(false)", d.Detail.AlphaMaskBaseTexture)
	}
	if d.Detail2.Texture.Value != "detail/dirt" || d.Detail2.Frame.Value != 1 || d.Detail2.BlendFactor.Value != 0.75 {
		t.Errorf("Detail2 = %+v", d.Detail2)
	}
	if d.LightwarpTexture.Value != "models/warp" {
		t.Errorf("LightwarpTexture = %v", d.LightwarpTexture)
	}
	if want := []string{"tf", "metal", "crate"}; fmt.Sprint(d.Keywords) != fmt.Sprint(want) {
		t.Errorf("Keywords = %v, want %v", d.Keywords, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{``, ErrMissingShaderName},
		{`   `, ErrMissingShaderName},
		{`{ "$basetexture" "a" }`, ErrMissingShaderName},
		{`"LightmappedGeneric { }`, ErrNoStringEnd},
		{`"LightmappedGeneric" { "$basetexture" "a" `, ErrUnexpectedEOF},
		{`"LightmappedGeneric" { "$basetexture" "a }`, ErrNoStringEnd},
		{`"LightmappedGeneric" { } "extra"`, ErrTrailingData},
		{"\"LightmappedGeneric\" { \"$basetexture\" \"\xff\xfe\" }", ErrUTF8},
	}
	for _, tc := range tests {
		_, err := Parse([]byte(tc.in))
		if !errors.Is(err, tc.want) {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, err, tc.want)
		}
	}
}

func TestParseExpected(t *testing.T) {
	_, err := Parse([]byte(`"LightmappedGeneric" "$basetexture"`))
	var e *ExpectedError
	if !errors.As(err, &e) || e.Char != '{' {
		t.Errorf("Parse = %v, want expected '{'", err)
	}
	_, err = Parse([]byte(`"LightmappedGeneric" { "$color" "[1 1]" }`))
	if !errors.As(err, &e) || e.Char != ']' {
		t.Errorf("Parse = %v, want expected ']'", err)
	}
}

func TestParseBlendMode(t *testing.T) {
	_, err := Parse([]byte(`"LightmappedGeneric" { "$detailblendmode" "12" }`))
	var bm *InvalidBlendModeError
	if !errors.As(err, &bm) || bm.Mode != 12 {
		t.Errorf("Parse = %v, want invalid blend mode 12", err)
	}
	for i := uint8(0); i < 12; i++ {
		m, err := ParseDetailBlendMode(i)
		if err != nil || uint8(m) != i {
			t.Errorf("ParseDetailBlendMode(%d) = %v, %v", i, m, err)
		}
	}
}

func TestParseValueErrors(t *testing.T) {
	tests := []struct {
		in   string
		kind ValueKind
	}{
		{`"a" { "$phong" "shiny" }`, FloatValue},
		{`"a" { "$detailframe" "-1" }`, IntValue},
		{`"a" { "$decal" "yes please" }`, BoolValue},
		{`"a" { "$detailblendmode" "300" }`, IntValue},
	}
	for _, tc := range tests {
		_, err := Parse([]byte(tc.in))
		var ve *ValueError
		if !errors.As(err, &ve) || ve.Kind != tc.kind {
			t.Errorf("Parse(%q) = %v, want %v value error", tc.in, err, tc.kind)
		}
	}
}

func TestParsePadding(t *testing.T) {
	in := "\xef\xbb\xbf\"UnlitGeneric\" { \"$basetexture\" \"a\" }\n\x00\x00"
	d, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.BaseTexture.Value != "a" {
		t.Errorf("BaseTexture = %v, want a", d.BaseTexture)
	}
}

func TestParsePatchBlocks(t *testing.T) {
	d := mustParse(t, `"patch"
{
	"include" "materials/parent.vmt"
	"insert"
	{
		"$envmap" "env_cubemap"
	}
	"replace"
	{
		"$basetexture" "patched/tex"
	}
}`)
	if d.Include.Value != "materials/parent.vmt" {
		t.Errorf("Include = %v", d.Include)
	}
	if d.BaseTexture.Value != "patched/tex" {
		t.Errorf("BaseTexture = %v, want patched/tex", d.BaseTexture)
	}
	if d.Other["$envmap"] != "env_cubemap" {
		t.Errorf("Other = %v", d.Other)
	}
	if _, ok := d.Sub.Lookup("insert", "$envmap"); !ok {
		t.Errorf("insert block missing from Sub")
	}
}

func TestAlbedoTexture(t *testing.T) {
	d := mustParse(t, `"Water" { "%tooltexture" "dev/water" "$bottommaterial" "x" }`)
	if got, ok := d.AlbedoTexture(); !ok || got != "dev/water" {
		t.Errorf("AlbedoTexture() = %q, %v, want dev/water", got, ok)
	}
	d = mustParse(t, `"LightmappedGeneric" { "%tooltexture" "dev/water" }`)
	if got, ok := d.AlbedoTexture(); ok {
		t.Errorf("AlbedoTexture() = %q, want none", got)
	}
}
