// SPDX-License-Identifier: GPL-2.0-or-later

package vmt

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	opt "github.com/repeale/fp-go/option"
)

// entry is a raw key/value or key/block pair. Bytes are decoded only when
// the document is built from it.
type entry struct {
	key   []byte
	value []byte
	block []entry
	// isBlock separates an empty block from an empty value.
	isBlock bool
	line    int
}

// Parse parses a VMT document from bytes.
func Parse(data []byte) (*Document, error) {
	l := newLexer(data)
	t, err := l.nextSignificant()
	if err != nil {
		return nil, err
	}
	if t.Type != tokText || len(t.Lit) == 0 {
		return nil, ErrMissingShaderName
	}
	shader, err := decode(t.Lit)
	if err != nil {
		return nil, err
	}
	t, err = l.nextSignificant()
	if err != nil {
		return nil, err
	}
	if t.Type != tokLBrace {
		return nil, &ExpectedError{Char: '{'}
	}
	body, err := parseBody(l)
	if err != nil {
		return nil, err
	}
	t, err = l.nextSignificant()
	if err != nil {
		return nil, err
	}
	if t.Type != tokEOF {
		return nil, errors.Wrapf(ErrTrailingData, "line %d", t.Line)
	}
	return build(ParseShaderName(shader), body)
}

// ParseFile parses the VMT document stored at path.
func ParseFile(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// parseBody reads entries up to and including the closing brace.
func parseBody(l *lexer) ([]entry, error) {
	var entries []entry
	for {
		t, err := l.nextSignificant()
		if err != nil {
			return nil, err
		}
		switch t.Type {
		case tokEOF:
			return nil, ErrUnexpectedEOF
		case tokRBrace:
			return entries, nil
		case tokLBrace:
			return nil, errors.Wrapf(&ExpectedError{Char: '"'}, "line %d", t.Line)
		}
		e := entry{key: t.Lit, line: t.Line}
		v, err := l.nextSignificant()
		if err != nil {
			return nil, err
		}
		switch v.Type {
		case tokEOF:
			return nil, ErrUnexpectedEOF
		case tokRBrace:
			return nil, errors.Wrapf(&ExpectedError{Char: '"'}, "line %d", v.Line)
		case tokLBrace:
			e.isBlock = true
			e.block, err = parseBody(l)
			if err != nil {
				return nil, err
			}
		default:
			e.value = v.Lit
		}
		entries = append(entries, e)
	}
}

func decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrUTF8
	}
	return string(b), nil
}

func decodeKey(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrUTF8
	}
	return string(bytes.ToLower(b)), nil
}

func build(name ShaderName, body []entry) (*Document, error) {
	d := newDocument(name)
	for _, e := range body {
		key, err := decodeKey(e.key)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", e.line)
		}
		if !e.isBlock {
			if err := d.set(key, e.value); err != nil {
				return nil, errors.Wrapf(err, "line %d", e.line)
			}
			continue
		}
		n, err := buildNode(e)
		if err != nil {
			return nil, err
		}
		d.Sub[key] = n
		if name.Is(Patch) && (key == "insert" || key == "replace") {
			if err := d.hoist(e.block); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// hoist assigns the leaf entries of a patch block as top-level keys.
func (d *Document) hoist(block []entry) error {
	for _, e := range block {
		if e.isBlock {
			continue
		}
		key, err := decodeKey(e.key)
		if err != nil {
			return errors.Wrapf(err, "line %d", e.line)
		}
		if err := d.set(key, e.value); err != nil {
			return errors.Wrapf(err, "line %d", e.line)
		}
	}
	return nil
}

func buildNode(e entry) (*Node, error) {
	if !e.isBlock {
		v, err := decode(e.value)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", e.line)
		}
		return &Node{Value: v}, nil
	}
	n := &Node{Children: make(Block, len(e.block))}
	for _, c := range e.block {
		key, err := decodeKey(c.key)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", c.line)
		}
		cn, err := buildNode(c)
		if err != nil {
			return nil, err
		}
		n.Children[key] = cn
	}
	return n, nil
}

// set assigns one top-level value. key is already lowercased.
func (d *Document) set(key string, raw []byte) error {
	s, err := decode(raw)
	if err != nil {
		return err
	}
	switch key {
	case "$basetexture":
		d.BaseTexture = opt.Some(s)
	case "include":
		d.Include = opt.Some(s)
	case "$decal":
		return setBool(&d.Decal, key, s)
	case "$surfaceprop":
		d.SurfaceProp = opt.Some(s)
	case "$basetexturetransform":
		v, err := parseVec(key, s, 2, false)
		if err != nil {
			return err
		}
		d.BaseTextureTransform = opt.Some([2]float32{v[0], v[1]})
	case "$color":
		return setRGB(&d.Color, key, s)
	case "$lightwarptexture":
		d.LightwarpTexture = opt.Some(s)
	case "%keywords":
		d.Keywords = splitKeywords(s)

	case "$phong":
		return setFloat(&d.Phong, key, s)
	case "$phongboost":
		return setFloat(&d.PhongBoost, key, s)
	case "$phongexponent":
		return setFloat(&d.PhongExponent, key, s)
	case "$phongfresnelranges":
		v, err := parseVec(key, s, 3, false)
		if err != nil {
			return err
		}
		d.PhongFresnelRanges = opt.Some([3]float32{v[0], v[1], v[2]})

	case "$detail":
		d.Detail.Texture = opt.Some(s)
	case "$detailtint":
		return setRGB(&d.Detail.Tint, key, s)
	case "$detailframe":
		return setUint32(&d.Detail.Frame, key, s)
	case "$detailscale":
		return setFloat(&d.Detail.Scale, key, s)
	case "$detailalphamaskbasetexture":
		return setBool(&d.Detail.AlphaMaskBaseTexture, key, s)
	case "$detailblendmode":
		v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
		if err != nil {
			return &ValueError{Key: key, Kind: IntValue, Err: err}
		}
		m, err := ParseDetailBlendMode(uint8(v))
		if err != nil {
			return err
		}
		d.Detail.BlendMode = opt.Some(m)
	case "$detailblendfactor":
		return setFloat(&d.Detail.BlendFactor, key, s)

	case "$detail2":
		d.Detail2.Texture = opt.Some(s)
	case "$detailscale2":
		return setFloat(&d.Detail2.Scale, key, s)
	case "$detailblendfactor2":
		return setFloat(&d.Detail2.BlendFactor, key, s)
	case "$detailframe2":
		return setUint32(&d.Detail2.Frame, key, s)
	case "$detailtint2":
		return setRGB(&d.Detail2.Tint, key, s)

	default:
		d.Other[key] = s
	}
	return nil
}

func setFloat(dst *opt.Option[float32], key, s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return &ValueError{Key: key, Kind: FloatValue, Err: err}
	}
	*dst = opt.Some(float32(f))
	return nil
}

func setUint32(dst *opt.Option[uint32], key, s string) error {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return &ValueError{Key: key, Kind: IntValue, Err: err}
	}
	*dst = opt.Some(uint32(v))
	return nil
}

func setBool(dst *opt.Option[bool], key, s string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return &ValueError{Key: key, Kind: BoolValue, Err: err}
	}
	*dst = opt.Some(b)
	return nil
}

func setRGB(dst *opt.Option[RGB], key, s string) error {
	v, err := parseVec(key, s, 3, true)
	if err != nil {
		return err
	}
	*dst = opt.Some(RGB{v[0], v[1], v[2]})
	return nil
}

// parseVec parses "[ a b c ]". With braces allowed, "{ r g b }" holds
// 0-255 integer components which are scaled to 0-1.
func parseVec(key, s string, n int, braces bool) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ExpectedError{Char: '['}
	}
	open, closing, div := s[0], byte(']'), 1.0
	switch {
	case open == '[':
	case open == '{' && braces:
		closing, div = '}', 255
	default:
		return nil, &ExpectedError{Char: '['}
	}
	if s[len(s)-1] != closing {
		return nil, &ExpectedError{Char: closing}
	}
	fields := strings.Fields(s[1 : len(s)-1])
	if len(fields) != n {
		return nil, &ExpectedError{Char: closing}
	}
	out := make([]float32, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, &ValueError{Key: key, Kind: FloatValue, Err: err}
		}
		out[i] = float32(v / div)
	}
	return out, nil
}

func splitKeywords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}
