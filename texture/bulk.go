// SPDX-License-Identifier: GPL-2.0-or-later
package texture

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"

	"quell/bsp"
	"quell/filesystem"
)

// Report summarizes one bulk load.
type Report struct {
	Materials  int
	Textures   int
	Duplicates int
	// Failed holds the dropped materials and textures with their errors.
	Failed  map[string]error
	Elapsed time.Duration
}

// MaterialNames returns the distinct materials drawn by the faces of m, in
// face order. Invisible faces and displacements are skipped.
func MaterialNames(m *bsp.Map) []string {
	seen := make(map[int]bool)
	var names []string
	m.ModelFaces(func(_ *bsp.Submodel, fi int) {
		f := &m.Faces[fi]
		if f.IsDisplacement() || !m.Visible(f) {
			return
		}
		_, td, err := m.TexInfoOf(f)
		if err != nil || seen[td.NameID] {
			return
		}
		seen[td.NameID] = true
		names = append(names, td.Name)
	})
	return names
}

type decoded struct {
	key string
	tex *Texture
	err error
}

// LoadMaterials loads every material used by m and freezes the cache.
// Materials are resolved and textures decoded in parallel, each texture
// once. Items that fail are logged and left out of the cache.
func (lt *LoadedTextures) LoadMaterials(f Finder, m *bsp.Map) (*Report, error) {
	start := time.Now()
	if lt.Frozen() {
		return nil, ErrFrozen
	}
	names := MaterialNames(m)

	lt.mu.RLock()
	cached := make(map[string]bool, len(lt.textures))
	for k := range lt.textures {
		cached[k] = true
	}
	lt.mu.RUnlock()

	var claimed sync.Map
	var dups atomic.Int64
	infos := iter.Map(names, func(name *string) *loadingInfo {
		key := filesystem.Key(*name)
		info, err := resolveInfo(f, key)
		if err != nil {
			return &loadingInfo{material: key, err: err}
		}
		if _, taken := claimed.LoadOrStore(info.texture, struct{}{}); taken {
			dups.Add(1)
		} else {
			info.load = !cached[info.texture]
		}
		return info
	})

	var todo []*loadingInfo
	for _, info := range infos {
		if info.err == nil && info.load {
			todo = append(todo, info)
		}
	}
	images := iter.Map(todo, func(info **loadingInfo) decoded {
		tex, err := lt.decodeTexture(f, (*info).texture)
		return decoded{key: (*info).texture, tex: tex, err: err}
	})

	r := &Report{Duplicates: int(dups.Load()), Failed: make(map[string]error)}
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.frozen {
		return nil, ErrFrozen
	}
	for _, d := range images {
		if d.err != nil {
			log.Warn().Err(d.err).Str("texture", d.key).Msg("dropping texture")
			r.Failed[d.key] = d.err
			continue
		}
		lt.textures[d.key] = &textureEntry{tex: d.tex}
		r.Textures++
	}
	for _, info := range infos {
		if info.err != nil {
			log.Warn().Err(info.err).Str("material", info.material).Msg("dropping material")
			r.Failed[info.material] = info.err
			continue
		}
		te, ok := lt.textures[info.texture]
		if !ok || te.err != nil {
			continue
		}
		if _, ok := lt.materials[info.material]; !ok {
			lt.materials[info.material] = &materialEntry{texture: info.texture}
			r.Materials++
		}
	}
	lt.frozen = true
	r.Elapsed = time.Since(start)
	log.Info().
		Int("materials", r.Materials).
		Int("textures", r.Textures).
		Int("duplicates", r.Duplicates).
		Int("failed", len(r.Failed)).
		Dur("elapsed", r.Elapsed).
		Str("cache", lt.id.String()).
		Msg("loaded materials")
	return r, nil
}
