// SPDX-License-Identifier: GPL-2.0-or-later

package filesystem

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when no layer of a chain holds the asset.
var ErrNotFound = errors.New("not found")

// Source names where an asset was found. The archive sources are listed in
// lookup priority order.
type Source uint8

const (
	SharedTextures Source = iota
	SharedMisc
	GameTextures
	GameMisc
	Map

	NumArchives = int(Map)
)

var sourceNames = [...]string{
	SharedTextures: "shared_textures",
	SharedMisc:     "shared_misc",
	GameTextures:   "game_textures",
	GameMisc:       "game_misc",
	Map:            "map",
}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return "unknown"
}

func (s Source) IsArchive() bool {
	return s < Map
}

type Kind uint8

const (
	Material Kind = iota
	Texture
)

func (k Kind) Ext() string {
	if k == Texture {
		return "vtf"
	}
	return "vmt"
}

// Path is the canonical location of an asset: lowercase, forward slashes,
// directory rooted at "materials".
type Path struct {
	Dir  string
	Name string
	Ext  string
}

func (p Path) String() string {
	if p.Dir == "" {
		return p.Name + "." + p.Ext
	}
	return p.Dir + "/" + p.Name + "." + p.Ext
}

// Key returns the cache key for a material or texture name: lowercase,
// forward slashes, no "materials/" prefix and no extension.
func Key(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimLeft(name, "/")
	name = strings.TrimPrefix(name, "materials/")
	switch Ext(name) {
	case ".vmt", ".vtf":
		name = StripExt(name)
	}
	return name
}

// Canonical returns the path of the asset of kind k called name.
func Canonical(k Kind, name string) Path {
	key := Key(name)
	dir, file := "materials", key
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		dir, file = "materials/"+key[:i], key[i+1:]
	}
	return Path{Dir: dir, Name: file, Ext: k.Ext()}
}

// Layer is one place assets can be read from.
type Layer interface {
	Find(p Path) (data []byte, src Source, found bool, err error)
}

// Chain searches its layers in order; the first hit wins.
type Chain []Layer

func NewChain(layers ...Layer) Chain {
	c := make(Chain, 0, len(layers))
	for _, l := range layers {
		if l != nil {
			c = append(c, l)
		}
	}
	return c
}

func (c Chain) Find(k Kind, name string) ([]byte, Source, error) {
	p := Canonical(k, name)
	for _, l := range c {
		b, src, ok, err := l.Find(p)
		if err != nil {
			return nil, src, errors.Wrapf(err, "read %s", p)
		}
		if ok {
			return b, src, nil
		}
	}
	return nil, 0, errors.Wrapf(ErrNotFound, "%s", p)
}

func isSep(c uint8) bool {
	return c == '/' || c == '\\'
}

func Ext(path string) string {
	for i := len(path) - 1; i >= 0 && !isSep(path[i]); i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}

func StripExt(path string) string {
	for i := len(path) - 1; i >= 0 && !isSep(path[i]); i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}
