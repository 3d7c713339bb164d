// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"quell/vpk"
)

const DefaultPath = "quell.yaml"

// ErrNoMap is returned when a command needs a map and neither the command
// line nor the config file names one.
var ErrNoMap = errors.New("no map given and none configured")

// MissingTexture selects what unresolved materials are drawn with.
type MissingTexture string

const (
	MissingChecker MissingTexture = "checker"
	MissingNone    MissingTexture = "none"
)

type Config struct {
	GameRoot       string         `yaml:"game_root"`
	Game           string         `yaml:"game"`
	Map            string         `yaml:"map,omitempty"`
	OutputDir      string         `yaml:"output_dir"`
	Debug          bool           `yaml:"debug"`
	MissingTexture MissingTexture `yaml:"missing_texture"`
}

func Default() *Config {
	return &Config{
		Game:           vpk.TF2.String(),
		OutputDir:      ".",
		MissingTexture: MissingChecker,
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

// Flags are the command line settings that override the file.
type Flags struct {
	Root  string
	Game  string
	Debug bool
}

// Resolve overlays every set flag on the config.
func (c *Config) Resolve(f Flags) (*Config, error) {
	r := *c
	if f.Root != "" {
		r.GameRoot = f.Root
	}
	if f.Game != "" {
		r.Game = f.Game
	}
	r.Debug = r.Debug || f.Debug
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Config) Validate() error {
	if _, err := vpk.ParseGame(c.Game); err != nil {
		return err
	}
	switch c.MissingTexture {
	case MissingChecker, MissingNone:
	default:
		return errors.Errorf("unknown missing_texture %q", c.MissingTexture)
	}
	return nil
}

// MapPath returns arg, or the configured map when arg is empty. The result
// is empty when neither is set.
func (c *Config) MapPath(arg string) string {
	if arg != "" {
		return arg
	}
	return c.Map
}

// RequireMap is MapPath for commands that cannot run without a map.
func (c *Config) RequireMap(arg string) (string, error) {
	p := c.MapPath(arg)
	if p == "" {
		return "", ErrNoMap
	}
	return p, nil
}

func (c *Config) GameID() vpk.Game {
	g, _ := vpk.ParseGame(c.Game)
	return g
}

func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
