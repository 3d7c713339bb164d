// SPDX-License-Identifier: GPL-2.0-or-later

package vmt

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMissingShaderName = errors.New("vmt: missing shader name")
	ErrNoStringStart     = errors.New("vmt: expected opening quote")
	ErrNoStringEnd       = errors.New("vmt: unterminated string")
	ErrUnexpectedEOF     = errors.New("vmt: unexpected end of input")
	ErrTrailingData      = errors.New("vmt: data after closing brace")
	ErrUTF8              = errors.New("vmt: invalid utf-8")
)

// ExpectedError is returned when a specific character was required.
type ExpectedError struct {
	Char byte
}

func (e *ExpectedError) Error() string {
	return fmt.Sprintf("vmt: expected %q", e.Char)
}

type InvalidBlendModeError struct {
	Mode uint8
}

func (e *InvalidBlendModeError) Error() string {
	return fmt.Sprintf("vmt: invalid detail blend mode %d", e.Mode)
}

type ValueKind int

const (
	FloatValue ValueKind = iota
	IntValue
	BoolValue
)

func (k ValueKind) String() string {
	switch k {
	case FloatValue:
		return "float"
	case IntValue:
		return "int"
	case BoolValue:
		return "bool"
	}
	return "unknown"
}

// ValueError reports a typed field whose text could not be converted.
type ValueError struct {
	Key  string
	Kind ValueKind
	Err  error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("vmt: %s: bad %v value: %v", e.Key, e.Kind, e.Err)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

// LoaderError wraps a failure of the include loader callback.
type LoaderError struct {
	Path string
	Err  error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("vmt: include %q: %v", e.Path, e.Err)
}

func (e *LoaderError) Unwrap() error {
	return e.Err
}
