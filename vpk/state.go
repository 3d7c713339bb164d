// SPDX-License-Identifier: GPL-2.0-or-later

package vpk

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"quell/filesystem"
)

type Game int

const (
	TF2 Game = iota
	HL2
	HL2MP
	CSS
)

var gameNames = map[Game]string{
	TF2:   "tf2",
	HL2:   "hl2",
	HL2MP: "hl2mp",
	CSS:   "css",
}

func (g Game) String() string {
	if n, ok := gameNames[g]; ok {
		return n
	}
	return "unknown"
}

func ParseGame(s string) (Game, error) {
	for g, n := range gameNames {
		if strings.EqualFold(s, n) {
			return g, nil
		}
	}
	return 0, errors.Errorf("unknown game %q", s)
}

// archiveFile is the directory file of one archive source relative to the
// install root. Optional archives may be absent from an install.
type archiveFile struct {
	path     string
	optional bool
}

// layouts lists the archives of every game. Empty entries are not used by
// that game.
var layouts = map[Game][filesystem.NumArchives]archiveFile{
	TF2: {
		filesystem.SharedTextures: {path: "hl2/hl2_textures_dir.vpk"},
		filesystem.SharedMisc:     {path: "hl2/hl2_misc_dir.vpk"},
		filesystem.GameTextures:   {path: "tf/tf2_textures_dir.vpk", optional: true},
		filesystem.GameMisc:       {path: "tf/tf2_misc_dir.vpk"},
	},
	HL2: {
		filesystem.SharedTextures: {path: "hl2/hl2_textures_dir.vpk"},
		filesystem.SharedMisc:     {path: "hl2/hl2_misc_dir.vpk"},
	},
	HL2MP: {
		filesystem.SharedTextures: {path: "hl2/hl2_textures_dir.vpk"},
		filesystem.SharedMisc:     {path: "hl2/hl2_misc_dir.vpk"},
		filesystem.GameMisc:       {path: "hl2mp/hl2mp_pak_dir.vpk", optional: true},
	},
	CSS: {
		filesystem.SharedTextures: {path: "hl2/hl2_textures_dir.vpk"},
		filesystem.SharedMisc:     {path: "hl2/hl2_misc_dir.vpk"},
		filesystem.GameMisc:       {path: "cstrike/cstrike_pak_dir.vpk", optional: true},
	},
}

// State holds the open archives of a game, indexed by source.
type State struct {
	archives [filesystem.NumArchives]*Archive
}

// New builds a State from already opened archives.
func New(archives map[filesystem.Source]*Archive) *State {
	s := &State{}
	for src, a := range archives {
		if src.IsArchive() {
			s.archives[src] = a
		}
	}
	return s
}

// Load opens all archives of game below root in parallel.
func Load(ctx context.Context, root string, game Game) (*State, error) {
	layout, ok := layouts[game]
	if !ok {
		return nil, errors.Errorf("no archive layout for %v", game)
	}
	s := &State{}
	g, ctx := errgroup.WithContext(ctx)
	for i, af := range layout {
		if af.path == "" {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			name := filepath.Join(root, filepath.FromSlash(af.path))
			a, err := Open(name)
			if af.optional && errors.Is(err, fs.ErrNotExist) {
				log.Debug().
					Str("source", filesystem.Source(i).String()).
					Str("path", name).
					Msg("optional archive not installed")
				return nil
			}
			if err != nil {
				return err
			}
			s.archives[i] = a
			log.Debug().
				Str("source", filesystem.Source(i).String()).
				Str("path", a.String()).
				Int("entries", a.Len()).
				Dur("elapsed", time.Since(start)).
				Msg("opened archive")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *State) Archive(src filesystem.Source) *Archive {
	if !src.IsArchive() {
		return nil
	}
	return s.archives[src]
}

// FindByKind searches the archives in priority order.
func (s *State) FindByKind(ext, dir, name string) (*Entry, filesystem.Source, bool) {
	for i, a := range s.archives {
		if a == nil {
			continue
		}
		if e, ok := a.Find(ext, dir, name); ok {
			return e, filesystem.Source(i), true
		}
	}
	return nil, 0, false
}

func (s *State) findPath(p filesystem.Path) (*Entry, filesystem.Source, bool) {
	return s.FindByKind(p.Ext, p.Dir, p.Name)
}

func (s *State) FindMaterial(name string) (*Entry, filesystem.Source, bool) {
	return s.findPath(filesystem.Canonical(filesystem.Material, name))
}

func (s *State) FindTexture(name string) (*Entry, filesystem.Source, bool) {
	return s.findPath(filesystem.Canonical(filesystem.Texture, name))
}

// Find reads the file at p from the first archive holding it.
func (s *State) Find(p filesystem.Path) ([]byte, filesystem.Source, bool, error) {
	e, src, ok := s.findPath(p)
	if !ok {
		return nil, 0, false, nil
	}
	b, err := e.Get()
	return b, src, true, err
}

// ArchivePathFor returns the shard file backing index in archive src.
func (s *State) ArchivePathFor(src filesystem.Source, index uint16) (string, bool) {
	a := s.Archive(src)
	if a == nil {
		return "", false
	}
	return a.ArchivePath(index), true
}

func (s *State) Close() {
	for i, a := range s.archives {
		if a == nil {
			continue
		}
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Str("path", a.String()).Msg("close archive")
		}
		s.archives[i] = nil
	}
}
