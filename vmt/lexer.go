// SPDX-License-Identifier: GPL-2.0-or-later

package vmt

import (
	"bytes"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokText
	tokLBrace
	tokRBrace
	tokComment
)

type token struct {
	Type   tokenType
	Lit    []byte // raw bytes of the input, quotes stripped
	Quoted bool
	Line   int
}

type lexer struct {
	b    []byte
	pos  int
	line int
}

var bom = []byte{0xef, 0xbb, 0xbf}

func newLexer(b []byte) *lexer {
	b = bytes.TrimPrefix(b, bom)
	// VPK entries are often padded with NULs after the closing brace.
	b = bytes.TrimRight(b, "\x00")
	return &lexer{b: b, line: 1}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// isDelim reports whether c ends a bare token.
func isDelim(c byte) bool {
	return isSpace(c) || c == '{' || c == '}' || c == '"'
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.b) && isSpace(l.b[l.pos]) {
		if l.b[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
}

func (l *lexer) eof() bool {
	return l.pos >= len(l.b)
}

func (l *lexer) next() (token, error) {
	l.skipWhitespace()
	if l.eof() {
		return token{Type: tokEOF, Line: l.line}, nil
	}
	line := l.line
	switch c := l.b[l.pos]; {
	case c == '{':
		l.pos++
		return token{Type: tokLBrace, Line: line}, nil
	case c == '}':
		l.pos++
		return token{Type: tokRBrace, Line: line}, nil
	case c == '"':
		lit, err := l.readString()
		return token{Type: tokText, Lit: lit, Quoted: true, Line: line}, err
	case bytes.HasPrefix(l.b[l.pos:], []byte("//")):
		return token{Type: tokComment, Lit: l.readComment(), Line: line}, nil
	}
	return token{Type: tokText, Lit: l.readBare(), Line: line}, nil
}

// readString reads a quoted string. There are no escape sequences.
func (l *lexer) readString() ([]byte, error) {
	if l.eof() || l.b[l.pos] != '"' {
		return nil, ErrNoStringStart
	}
	rest := l.b[l.pos+1:]
	end := bytes.IndexByte(rest, '"')
	if end < 0 {
		l.pos = len(l.b)
		return nil, ErrNoStringEnd
	}
	lit := rest[:end]
	l.line += bytes.Count(lit, []byte{'\n'})
	l.pos += end + 2
	return lit, nil
}

func (l *lexer) readBare() []byte {
	start := l.pos
	for l.pos < len(l.b) && !isDelim(l.b[l.pos]) {
		l.pos++
	}
	return l.b[start:l.pos]
}

func (l *lexer) readComment() []byte {
	start := l.pos + 2
	end := bytes.IndexByte(l.b[start:], '\n')
	if end < 0 {
		l.pos = len(l.b)
		return l.b[start:]
	}
	l.pos = start + end
	return bytes.TrimRight(l.b[start:l.pos], "\r")
}

// nextSignificant returns the next token that is not a comment.
func (l *lexer) nextSignificant() (token, error) {
	for {
		t, err := l.next()
		if err != nil || t.Type != tokComment {
			return t, err
		}
	}
}
