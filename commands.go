// SPDX-License-Identifier: GPL-2.0-or-later
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	opt "github.com/repeale/fp-go/option"

	"quell/bsp"
	"quell/config"
	"quell/conlog"
	"quell/filesystem"
	qimage "quell/image"
	"quell/mesh"
	"quell/scene"
	"quell/stat"
	"quell/vmt"
)

func materialsCommand(c *scene.Context, cfg *config.Config) error {
	path, err := cfg.RequireMap(CLI.Materials.Map)
	if err != nil {
		return err
	}
	r, err := c.LoadMap(path)
	if err != nil {
		return err
	}
	s := c.Textures.Stats()
	conlog.Printf("%s: %d materials, %d textures, %d shared, %d failed in %v\n",
		c.Map.Name, s.Materials, s.Textures, r.Duplicates, len(r.Failed), r.Elapsed.Round(time.Millisecond))
	names := make([]string, 0, len(r.Failed))
	for n := range r.Failed {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		conlog.Printf("  failed %s: %v\n", n, r.Failed[n])
	}
	if CLI.Materials.List {
		for _, n := range c.Textures.Materials() {
			t, _ := c.Textures.MaterialTexture(n)
			conlog.Printf("  %s -> %s (%dx%d, %v)\n", n, t.Name, t.Width, t.Height, t.Source)
		}
	}
	return nil
}

func meshesCommand(c *scene.Context, cfg *config.Config) error {
	path, err := cfg.RequireMap(CLI.Meshes.Map)
	if err != nil {
		return err
	}
	if _, err := c.LoadMap(path); err != nil {
		return err
	}
	start := time.Now()
	infos, err := c.Meshes()
	if err != nil {
		return err
	}
	s := mesh.Summarize(infos)
	conlog.Printf("%s: %d faces, %d displacements, %d triangles, %d untextured in %v\n",
		c.Map.Name, s.Faces, s.Displacements, s.Triangles, s.Missing, time.Since(start).Round(time.Millisecond))
	return nil
}

func vmtCommand(c *scene.Context, cfg *config.Config) error {
	if err := withMap(c, cfg, CLI.Vmt.Map); err != nil {
		return err
	}
	f := c.Finder()
	b, src, err := f.Find(filesystem.Material, CLI.Vmt.Name)
	if err != nil {
		return err
	}
	doc, err := vmt.Parse(b)
	if err != nil {
		return errors.Wrap(err, CLI.Vmt.Name)
	}
	load := func(path string) ([]byte, error) {
		b, _, err := f.Find(filesystem.Material, path)
		return b, err
	}
	if CLI.Vmt.Recurse {
		doc, err = doc.ResolveRecurse(load)
	} else {
		doc, err = doc.Resolve(load)
	}
	if err != nil {
		return err
	}
	conlog.Printf("%s (from %v)\n", filesystem.Canonical(filesystem.Material, CLI.Vmt.Name), src)
	printDocument(doc)
	return nil
}

func field[T any](name string, o opt.Option[T]) {
	if opt.IsSome(o) {
		conlog.Printf("  %-28s %v\n", name, o.Value)
	}
}

func printDocument(d *vmt.Document) {
	conlog.Printf("shader %s\n", d.Shader)
	field("$basetexture", d.BaseTexture)
	field("$decal", d.Decal)
	field("$surfaceprop", d.SurfaceProp)
	field("$basetexturetransform", d.BaseTextureTransform)
	field("$color", d.Color)
	field("$phong", d.Phong)
	field("$phongboost", d.PhongBoost)
	field("$phongexponent", d.PhongExponent)
	field("$phongfresnelranges", d.PhongFresnelRanges)
	field("$lightwarptexture", d.LightwarpTexture)
	field("$detail", d.Detail.Texture)
	field("$detailtint", d.Detail.Tint)
	field("$detailframe", d.Detail.Frame)
	field("$detailscale", d.Detail.Scale)
	field("$detailalphamaskbasetexture", d.Detail.AlphaMaskBaseTexture)
	field("$detailblendmode", d.Detail.BlendMode)
	field("$detailblendfactor", d.Detail.BlendFactor)
	field("$detail2", d.Detail2.Texture)
	field("$detailscale2", d.Detail2.Scale)
	field("$detailblendfactor2", d.Detail2.BlendFactor)
	field("$detailframe2", d.Detail2.Frame)
	field("$detailtint2", d.Detail2.Tint)
	field("include", d.Include)
	if len(d.Keywords) > 0 {
		conlog.Printf("  %-28s %s\n", "%keywords", strings.Join(d.Keywords, ", "))
	}
	keys := make([]string, 0, len(d.Other))
	for k := range d.Other {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		conlog.Printf("  %-28s %s\n", k, d.Other[k])
	}
	printBlock(d.Sub, "  ")
}

func printBlock(b vmt.Block, indent string) {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n := b[k]
		if !n.IsBlock() {
			conlog.Printf("%s%s %q\n", indent, k, n.Value)
			continue
		}
		conlog.Printf("%s%s {\n", indent, k)
		printBlock(n.Children, indent+"  ")
		conlog.Printf("%s}\n", indent)
	}
}

func textureCommand(c *scene.Context, cfg *config.Config) error {
	if err := withMap(c, cfg, CLI.Texture.Map); err != nil {
		return err
	}
	t, err := c.LoadMaterial(CLI.Texture.Name)
	if err != nil {
		return err
	}
	out := CLI.Texture.Out
	if out == "" {
		out = filepath.Join(cfg.OutputDir, filepath.Base(t.Name)+".png")
	}
	img := qimage.Fit(t.Image, CLI.Texture.Max)
	if err := qimage.Save(out, img); err != nil {
		return err
	}
	b := img.Bounds()
	conlog.Printf("%s -> %s (%dx%d from %v)\n", t.Name, out, b.Dx(), b.Dy(), t.Source)
	return nil
}

func findCommand(c *scene.Context, cfg *config.Config) error {
	if err := withMap(c, cfg, CLI.Find.Map); err != nil {
		return err
	}
	if CLI.Find.List {
		l := c.List(CLI.Find.Name)
		for _, e := range l {
			conlog.Printf("%-60s %-14v %s, %d bytes\n", e.Path, e.Source, e.File, e.Size)
		}
		conlog.Printf("%d files\n", len(l))
		return nil
	}
	found := false
	for _, k := range []filesystem.Kind{filesystem.Material, filesystem.Texture} {
		loc, err := c.Locate(k, CLI.Find.Name)
		if errors.Is(err, filesystem.ErrNotFound) {
			conlog.Printf("%s: not found\n", filesystem.Canonical(k, CLI.Find.Name))
			continue
		}
		if err != nil {
			return err
		}
		found = true
		conlog.Printf("%s: %v in %s, %d bytes\n", loc.Path, loc.Source, loc.File, loc.Size)
	}
	if !found {
		return errors.Wrap(filesystem.ErrNotFound, CLI.Find.Name)
	}
	return nil
}

func benchCommand(c *scene.Context, cfg *config.Config) error {
	path, err := cfg.RequireMap(CLI.Bench.Map)
	if err != nil {
		return err
	}
	m, err := bsp.Load(path)
	if err != nil {
		return err
	}
	var series stat.SeriesCalc
	var rate stat.MeanCalc
	for i := 0; i < CLI.Bench.N; i++ {
		c.SetMap(m)
		start := time.Now()
		r, err := c.Textures.LoadMaterials(c.Finder(), m)
		if err != nil {
			return err
		}
		d := time.Since(start)
		series.UpdateDur(d)
		if d > 0 {
			rate.Update(float32(r.Materials) / float32(d.Seconds()))
		}
	}
	conlog.Printf("%s: %d runs, min %.0fµs, max %.0fµs, mean %.0fµs, median %.0fµs, last %.0fµs, %.0f materials/s\n",
		m.Name, len(series.Entries), series.Min(), series.Max(), series.Mean(), series.Median(), series.Last(), rate.Mean())
	if CLI.Bench.CSV == "" {
		return nil
	}
	return writeSeries(CLI.Bench.CSV, series.Entries)
}

func writeSeries(name string, data []float32) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, v := range data {
		fmt.Fprintf(w, "%.3f\n", v)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
