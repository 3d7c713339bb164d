// SPDX-License-Identifier: GPL-2.0-or-later

// Package scene owns the archives, the current map and its texture cache.
package scene

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"quell/bsp"
	"quell/filesystem"
	"quell/mesh"
	"quell/texture"
	"quell/vpk"
)

type Context struct {
	VPK      *vpk.State
	Map      *bsp.Map
	Textures *texture.LoadedTextures

	opts []texture.Option
}

// New wraps already opened archives. st may be nil to read only from maps.
func New(st *vpk.State, opts ...texture.Option) *Context {
	return &Context{
		VPK:      st,
		Textures: texture.New(opts...),
		opts:     opts,
	}
}

// Open loads the archives of game below root.
func Open(ctx context.Context, root string, game vpk.Game, opts ...texture.Option) (*Context, error) {
	st, err := vpk.Load(ctx, root, game)
	if err != nil {
		return nil, err
	}
	return New(st, opts...), nil
}

// Finder searches the archives first, then the map.
func (c *Context) Finder() filesystem.Chain {
	var layers []filesystem.Layer
	if c.VPK != nil {
		layers = append(layers, c.VPK)
	}
	if c.Map != nil {
		layers = append(layers, c.Map)
	}
	return filesystem.NewChain(layers...)
}

// SetMap makes m the current map. It gets a fresh texture cache.
func (c *Context) SetMap(m *bsp.Map) {
	c.Map = m
	c.Textures = texture.New(c.opts...)
}

// LoadMap reads the map at path and loads all its materials.
func (c *Context) LoadMap(path string) (*texture.Report, error) {
	m, err := bsp.Load(path)
	if err != nil {
		return nil, err
	}
	c.SetMap(m)
	log.Debug().Str("map", path).Str("cache", c.Textures.ID().String()).Msg("map loaded")
	return c.Textures.LoadMaterials(c.Finder(), m)
}

func (c *Context) LoadMaterial(name string) (*texture.Texture, error) {
	return c.Textures.LoadMaterial(c.Finder(), name)
}

func (c *Context) Meshes() ([]*mesh.FaceInfo, error) {
	if c.Map == nil {
		return nil, errors.New("no map loaded")
	}
	return mesh.ConstructMeshes(c.Textures, c.Map), nil
}

// Location describes where an asset is stored.
type Location struct {
	Path   filesystem.Path
	Source filesystem.Source
	// File is the archive shard or map holding the bytes.
	File string
	Size int
}

// Locate finds an asset without reading it, in lookup order.
func (c *Context) Locate(k filesystem.Kind, name string) (Location, error) {
	p := filesystem.Canonical(k, name)
	if c.VPK != nil {
		if e, src, ok := c.VPK.FindByKind(p.Ext, p.Dir, p.Name); ok {
			file, _ := c.VPK.ArchivePathFor(src, e.ArchiveIndex)
			return Location{Path: p, Source: src, File: file, Size: e.Size()}, nil
		}
	}
	if c.Map != nil && c.Map.Pak != nil {
		b, ok, err := c.Map.Pak.ReadFile(p.String())
		if err != nil {
			return Location{}, err
		}
		if ok {
			return Location{Path: p, Source: filesystem.Map, File: c.Map.Name, Size: len(b)}, nil
		}
	}
	return Location{}, errors.Wrapf(filesystem.ErrNotFound, "%s", p)
}

// Listing is one file found by List.
type Listing struct {
	Path   string
	Source filesystem.Source
	File   string
	Size   int
}

// List returns every archived or embedded file whose path starts with
// prefix, sorted by path. Files shadowed by a higher priority source are
// listed too.
func (c *Context) List(prefix string) []Listing {
	prefix = strings.ToLower(strings.ReplaceAll(prefix, "\\", "/"))
	var out []Listing
	if c.VPK != nil {
		for i := 0; i < filesystem.NumArchives; i++ {
			src := filesystem.Source(i)
			a := c.VPK.Archive(src)
			if a == nil {
				continue
			}
			a.Walk(func(e *vpk.Entry) bool {
				if strings.HasPrefix(e.Path, prefix) {
					out = append(out, Listing{Path: e.Path, Source: src, File: a.ArchivePath(e.ArchiveIndex), Size: e.Size()})
				}
				return true
			})
		}
	}
	if c.Map != nil && c.Map.Pak != nil {
		c.Map.Pak.Walk(func(name string, size int) bool {
			if strings.HasPrefix(name, prefix) {
				out = append(out, Listing{Path: name, Source: filesystem.Map, File: c.Map.Name, Size: size})
			}
			return true
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Source < out[j].Source
	})
	return out
}

func (c *Context) Close() {
	if c.VPK != nil {
		c.VPK.Close()
	}
}
