// SPDX-License-Identifier: GPL-2.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"quell/bsp"
	"quell/config"
	"quell/conlog"
	"quell/scene"
	"quell/texture"
)

var CLI struct {
	Config string `help:"Configuration file." default:"quell.yaml" type:"path"`
	Root   string `help:"Game install directory holding the archives." type:"path"`
	Game   string `help:"Game whose archives are loaded (tf2, hl2, hl2mp, css)."`
	Debug  bool   `help:"Enable debug logging."`

	Materials struct {
		Map  string `arg:"" optional:"" help:"Compiled map file, the configured map if omitted." type:"existingfile"`
		List bool   `help:"Print every loaded material."`
	} `cmd:"" help:"Load all materials of a map."`

	Meshes struct {
		Map string `arg:"" optional:"" help:"Compiled map file, the configured map if omitted." type:"existingfile"`
	} `cmd:"" help:"Reconstruct the meshes of a map."`

	Vmt struct {
		Name    string `arg:"" help:"Material name."`
		Map     string `help:"Map whose embedded files are searched too." type:"existingfile"`
		Recurse bool   `help:"Follow every include instead of one."`
	} `cmd:"" help:"Print a parsed material."`

	Texture struct {
		Name string `arg:"" help:"Material name."`
		Map  string `help:"Map whose embedded files are searched too." type:"existingfile"`
		Out  string `short:"o" help:"Output file, .png or .webp." type:"path"`
		Max  int    `help:"Scale the image down to fit this size."`
	} `cmd:"" help:"Write the base texture of a material to an image file."`

	Find struct {
		Name string `arg:"" help:"Material or texture name, or a path prefix with --list."`
		Map  string `help:"Map whose embedded files are searched too." type:"existingfile"`
		List bool   `help:"List every stored file below the given path."`
	} `cmd:"" help:"Show where a material and its texture are stored."`

	Bench struct {
		Map string `arg:"" optional:"" help:"Compiled map file, the configured map if omitted." type:"existingfile"`
		N   int    `short:"n" default:"10" help:"Number of runs."`
		CSV string `help:"Write the run times in microseconds to this file." type:"path"`
	} `cmd:"" help:"Time bulk material loading."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

// open loads the archives. Without a game root only map files are read.
func open(cfg *config.Config) (*scene.Context, error) {
	var opts []texture.Option
	if cfg.MissingTexture == config.MissingNone {
		opts = append(opts, texture.WithMissing(nil))
	}
	if cfg.GameRoot == "" {
		log.Warn().Msg("no game root set, only map files are searched")
		return scene.New(nil, opts...), nil
	}
	return scene.Open(context.Background(), cfg.GameRoot, cfg.GameID(), opts...)
}

// withMap makes the map at path, or the configured one, current if either
// is set.
func withMap(c *scene.Context, cfg *config.Config, path string) error {
	path = cfg.MapPath(path)
	if path == "" {
		return nil
	}
	m, err := bsp.Load(path)
	if err != nil {
		return err
	}
	c.SetMap(m)
	return nil
}

func main() {
	conlog.Setup(os.Stderr, false)

	ctx := kong.Parse(&CLI,
		kong.Name("quell"),
		kong.Description("Source engine map and material loader."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	file, err := config.Load(CLI.Config)
	if err != nil {
		writeError(err)
	}
	cfg, err := file.Resolve(config.Flags{Root: CLI.Root, Game: CLI.Game, Debug: CLI.Debug})
	if err != nil {
		writeError(err)
	}
	if cfg.Debug {
		conlog.Setup(os.Stderr, true)
		log.Debug().Msg("debug logging enabled")
	}

	c, err := open(cfg)
	if err != nil {
		writeError(err)
	}
	defer c.Close()

	switch strings.Fields(ctx.Command())[0] {
	case "materials":
		err = materialsCommand(c, cfg)
	case "meshes":
		err = meshesCommand(c, cfg)
	case "vmt":
		err = vmtCommand(c, cfg)
	case "texture":
		err = textureCommand(c, cfg)
	case "find":
		err = findCommand(c, cfg)
	case "bench":
		err = benchCommand(c, cfg)
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		c.Close()
		writeError(err)
	}
}
