// SPDX-License-Identifier: GPL-2.0-or-later

package bsp

import (
	"archive/zip"
	"io"
	"strings"

	"github.com/pkg/errors"

	"quell/filesystem"
)

// Pak is the zip archive of loose files embedded in a map.
type Pak struct {
	files map[string]*zip.File
}

// NewPak indexes the files of the pakfile lump by lowercased name.
func NewPak(zr *zip.Reader) *Pak {
	p := &Pak{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		name := strings.ToLower(strings.ReplaceAll(f.Name, "\\", "/"))
		p.files[name] = f
	}
	return p
}

func (p *Pak) Len() int {
	if p == nil {
		return 0
	}
	return len(p.files)
}

// Walk calls fn with the lowercased name and size of every file until fn
// returns false.
func (p *Pak) Walk(fn func(name string, size int) bool) {
	for name, f := range p.files {
		if !fn(name, int(f.UncompressedSize64)) {
			return
		}
	}
}

func (p *Pak) Has(name string) bool {
	_, ok := p.files[strings.ToLower(name)]
	return ok
}

// ReadFile returns the contents of the file at name, ignoring case.
func (p *Pak) ReadFile(name string) ([]byte, bool, error) {
	f, ok := p.files[strings.ToLower(name)]
	if !ok {
		return nil, false, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, true, errors.Wrap(err, name)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, true, errors.Wrap(err, name)
	}
	return b, true, nil
}

func (m *Map) HasTexture(name string) bool {
	if m.Pak == nil {
		return false
	}
	return m.Pak.Has(filesystem.Canonical(filesystem.Texture, name).String())
}

func (m *Map) FindVMT(name string) ([]byte, bool, error) {
	if m.Pak == nil {
		return nil, false, nil
	}
	return m.Pak.ReadFile(filesystem.Canonical(filesystem.Material, name).String())
}

func (m *Map) GetTextureData(name string) ([]byte, bool, error) {
	if m.Pak == nil {
		return nil, false, nil
	}
	return m.Pak.ReadFile(filesystem.Canonical(filesystem.Texture, name).String())
}

// Find makes the map a layer of a lookup chain.
func (m *Map) Find(p filesystem.Path) ([]byte, filesystem.Source, bool, error) {
	if m.Pak == nil {
		return nil, filesystem.Map, false, nil
	}
	b, ok, err := m.Pak.ReadFile(p.String())
	return b, filesystem.Map, ok, err
}
