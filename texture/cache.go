// SPDX-License-Identifier: GPL-2.0-or-later
package texture

import (
	"image"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sync/singleflight"

	"quell/filesystem"
	qimage "quell/image"
	"quell/vmt"
)

// Finder returns the bytes of a material or texture by name.
// filesystem.Chain is the usual implementation.
type Finder interface {
	Find(k filesystem.Kind, name string) ([]byte, filesystem.Source, error)
}

// Decoder turns texture file bytes into an image.
type Decoder func([]byte) (*image.NRGBA, error)

type Status int

const (
	Unloaded Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type materialEntry struct {
	// texture is the cache key of the base texture.
	texture string
	err     error
}

type textureEntry struct {
	tex *Texture
	err error
}

type Stats struct {
	Materials int
	Textures  int
	Failed    int
}

// LoadedTextures caches resolved materials and decoded textures.
// Entries are written once. After Freeze no new name is accepted and the
// cache is only read.
type LoadedTextures struct {
	mu        deadlock.RWMutex
	id        uuid.UUID
	materials map[string]*materialEntry
	textures  map[string]*textureEntry
	loading   map[string]int
	frozen    bool

	group   singleflight.Group
	decode  Decoder
	missing *Texture
}

type Option func(*LoadedTextures)

func WithDecoder(d Decoder) Option {
	return func(lt *LoadedTextures) {
		lt.decode = d
	}
}

// WithMissing replaces the checkerboard used for unresolved materials.
func WithMissing(t *Texture) Option {
	return func(lt *LoadedTextures) {
		lt.missing = t
	}
}

func New(opts ...Option) *LoadedTextures {
	lt := &LoadedTextures{
		id:        uuid.Must(uuid.NewV7()),
		materials: make(map[string]*materialEntry),
		textures:  make(map[string]*textureEntry),
		loading:   make(map[string]int),
		decode:    qimage.DecodeVTF,
		missing:   MissingTexture(),
	}
	for _, o := range opts {
		o(lt)
	}
	return lt
}

// ID identifies this cache generation. Every map gets a fresh cache.
func (lt *LoadedTextures) ID() uuid.UUID {
	return lt.id
}

func (lt *LoadedTextures) Missing() *Texture {
	return lt.missing
}

func (lt *LoadedTextures) Freeze() {
	lt.mu.Lock()
	lt.frozen = true
	lt.mu.Unlock()
}

func (lt *LoadedTextures) Frozen() bool {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.frozen
}

// materialResult must be called with at least the read lock held.
func (lt *LoadedTextures) materialResult(e *materialEntry) (*Texture, error) {
	if e.err != nil {
		return nil, e.err
	}
	te, ok := lt.textures[e.texture]
	if !ok {
		return nil, &TextureError{Name: e.texture, Err: ErrUnloaded}
	}
	return te.tex, te.err
}

// LoadMaterial resolves the material called name and returns its base
// texture. Results, failures included, are cached so a name is searched
// and parsed at most once. Only one include level is followed.
func (lt *LoadedTextures) LoadMaterial(f Finder, name string) (*Texture, error) {
	key := filesystem.Key(name)
	lt.mu.RLock()
	if e, ok := lt.materials[key]; ok {
		defer lt.mu.RUnlock()
		return lt.materialResult(e)
	}
	frozen := lt.frozen
	lt.mu.RUnlock()
	if frozen {
		return nil, ErrFrozen
	}

	v, err, _ := lt.group.Do("m:"+key, func() (any, error) {
		lt.mu.RLock()
		if e, ok := lt.materials[key]; ok {
			defer lt.mu.RUnlock()
			return lt.materialResult(e)
		}
		lt.mu.RUnlock()

		lt.begin("m:" + key)
		defer lt.end("m:" + key)

		e := &materialEntry{}
		info, err := resolveInfo(f, key)
		if err != nil {
			e.err = err
		} else {
			e.texture = info.texture
			if _, err := lt.LoadTexture(f, info.texture); err != nil && !errors.Is(err, ErrFrozen) {
				e.err = &MaterialError{Name: key, Stage: StageTexture, Err: err}
			}
		}

		lt.mu.Lock()
		defer lt.mu.Unlock()
		if lt.frozen {
			return nil, ErrFrozen
		}
		lt.materials[key] = e
		return lt.materialResult(e)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Texture), nil
}

// LoadTexture finds and decodes the texture called name.
func (lt *LoadedTextures) LoadTexture(f Finder, name string) (*Texture, error) {
	key := filesystem.Key(name)
	lt.mu.RLock()
	if e, ok := lt.textures[key]; ok {
		defer lt.mu.RUnlock()
		return e.tex, e.err
	}
	frozen := lt.frozen
	lt.mu.RUnlock()
	if frozen {
		return nil, ErrFrozen
	}

	v, err, _ := lt.group.Do("t:"+key, func() (any, error) {
		lt.mu.RLock()
		if e, ok := lt.textures[key]; ok {
			defer lt.mu.RUnlock()
			return e.tex, e.err
		}
		lt.mu.RUnlock()

		lt.begin("t:" + key)
		defer lt.end("t:" + key)

		e := &textureEntry{}
		e.tex, e.err = lt.decodeTexture(f, key)

		lt.mu.Lock()
		defer lt.mu.Unlock()
		if lt.frozen {
			return nil, ErrFrozen
		}
		lt.textures[key] = e
		return e.tex, e.err
	})
	if err != nil {
		return nil, err
	}
	return v.(*Texture), nil
}

func (lt *LoadedTextures) decodeTexture(f Finder, key string) (*Texture, error) {
	b, src, err := f.Find(filesystem.Texture, key)
	if err != nil {
		return nil, &TextureError{Name: key, Err: err}
	}
	img, err := lt.decode(b)
	if err != nil {
		return nil, &TextureError{Name: key, Err: err}
	}
	return NewTexture(key, img, src), nil
}

func (lt *LoadedTextures) begin(k string) {
	lt.mu.Lock()
	lt.loading[k]++
	lt.mu.Unlock()
}

func (lt *LoadedTextures) end(k string) {
	lt.mu.Lock()
	if lt.loading[k]--; lt.loading[k] <= 0 {
		delete(lt.loading, k)
	}
	lt.mu.Unlock()
}

// MaterialTexture returns the cached result for a material without
// loading anything.
func (lt *LoadedTextures) MaterialTexture(name string) (*Texture, error) {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	e, ok := lt.materials[filesystem.Key(name)]
	if !ok {
		return nil, ErrUnloaded
	}
	return lt.materialResult(e)
}

// Texture returns the bound texture for a material, or the missing texture
// when it did not resolve.
func (lt *LoadedTextures) Texture(material string) *Texture {
	t, err := lt.MaterialTexture(material)
	if err != nil || t == nil {
		return lt.missing
	}
	return t
}

// Status reports the state of the material called name.
func (lt *LoadedTextures) Status(name string) Status {
	key := filesystem.Key(name)
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	if e, ok := lt.materials[key]; ok {
		if _, err := lt.materialResult(e); err != nil {
			return Failed
		}
		return Loaded
	}
	if lt.loading["m:"+key] > 0 {
		return Loading
	}
	if lt.frozen {
		return Failed
	}
	return Unloaded
}

func (lt *LoadedTextures) Stats() Stats {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	s := Stats{Materials: len(lt.materials), Textures: len(lt.textures)}
	for _, e := range lt.materials {
		if _, err := lt.materialResult(e); err != nil {
			s.Failed++
		}
	}
	return s
}

// Materials returns the sorted names of all cached materials.
func (lt *LoadedTextures) Materials() []string {
	lt.mu.RLock()
	names := make([]string, 0, len(lt.materials))
	for n := range lt.materials {
		names = append(names, n)
	}
	lt.mu.RUnlock()
	sort.Strings(names)
	return names
}

// loadingInfo is a material resolved up to the name of its base texture.
type loadingInfo struct {
	material string
	texture  string
	doc      *vmt.Document
	// load is set for the one record that decodes texture in a batch.
	load bool
	err  error
}

func resolveInfo(f Finder, name string) (*loadingInfo, error) {
	b, _, err := f.Find(filesystem.Material, name)
	if err != nil {
		return nil, &MaterialError{Name: name, Stage: StageFind, Err: err}
	}
	doc, err := vmt.Parse(b)
	if err != nil {
		return nil, &MaterialError{Name: name, Stage: StageParse, Err: err}
	}
	doc, err = doc.Resolve(func(path string) ([]byte, error) {
		b, _, err := f.Find(filesystem.Material, path)
		return b, err
	})
	if err != nil {
		return nil, &MaterialError{Name: name, Stage: StageInclude, Err: err}
	}
	tex, ok := doc.AlbedoTexture()
	if !ok {
		return nil, &MaterialError{Name: name, Stage: StageContent, Err: &MissingBaseTextureError{Material: name}}
	}
	log.Debug().Str("material", name).Str("texture", tex).Str("shader", doc.Shader.String()).Msg("resolved material")
	return &loadingInfo{material: name, texture: filesystem.Key(tex), doc: doc}, nil
}
