// SPDX-License-Identifier: GPL-2.0-or-later
package texture

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrFrozen is returned for names first requested after the cache
	// was frozen. It is expected once a map has finished loading.
	ErrFrozen = errors.New("texture cache is frozen")
	// ErrUnloaded is returned by MaterialTexture for names never loaded.
	ErrUnloaded = errors.New("material not loaded")
)

// Stage names the step of material resolution that failed.
type Stage string

const (
	StageFind    Stage = "find"
	StageParse   Stage = "parse"
	StageInclude Stage = "include"
	StageContent Stage = "content"
	StageTexture Stage = "texture"
)

type MissingBaseTextureError struct {
	Material string
}

func (e *MissingBaseTextureError) Error() string {
	return fmt.Sprintf("material %s has no base texture", e.Material)
}

type MaterialError struct {
	Name  string
	Stage Stage
	Err   error
}

func (e *MaterialError) Error() string {
	return fmt.Sprintf("material %s: %s: %v", e.Name, e.Stage, e.Err)
}

func (e *MaterialError) Unwrap() error {
	return e.Err
}

type TextureError struct {
	Name string
	Err  error
}

func (e *TextureError) Error() string {
	return fmt.Sprintf("texture %s: %v", e.Name, e.Err)
}

func (e *TextureError) Unwrap() error {
	return e.Err
}
