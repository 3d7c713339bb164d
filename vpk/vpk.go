// SPDX-License-Identifier: GPL-2.0-or-later

package vpk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/exp/mmap"
)

var (
	ErrBadSignature = errors.New("vpk: bad signature")
	ErrBadVersion   = errors.New("vpk: unsupported version")
	ErrTruncated    = errors.New("vpk: truncated directory")
	ErrNoShard      = errors.New("vpk: missing archive shard")
)

const (
	signature = 0x55aa1234
	// dirIndex marks entries stored in the directory file after the tree.
	dirIndex   = 0x7fff
	terminator = 0xffff
)

type header struct {
	Signature uint32
	Version   uint32
	TreeSize  uint32
}

type headerV2 struct {
	FileDataSectionSize   uint32
	ArchiveMD5SectionSize uint32
	OtherMD5SectionSize   uint32
	SignatureSectionSize  uint32
}

type key struct {
	ext, dir, name string
}

// Entry is a handle to one file of an archive. Nothing is read until Get.
type Entry struct {
	Path         string
	CRC          uint32
	ArchiveIndex uint16
	Offset       uint32
	Length       uint32
	Preload      []byte

	a *Archive
}

// Size is the full length of the file in bytes.
func (e *Entry) Size() int {
	return len(e.Preload) + int(e.Length)
}

// Get reads the file contents: the preload bytes followed by the bytes
// stored in the archive shard.
func (e *Entry) Get() ([]byte, error) {
	out := make([]byte, e.Size())
	copy(out, e.Preload)
	if e.Length == 0 {
		return out, nil
	}
	r, base, err := e.a.shard(e.ArchiveIndex)
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadAt(out[len(e.Preload):], base+int64(e.Offset)); err != nil {
		return nil, errors.Wrapf(err, "read %s from shard %d", e.Path, e.ArchiveIndex)
	}
	return out, nil
}

// Archive is the directory of one VPK package and its shards.
type Archive struct {
	name       string
	prefix     string
	dataOffset int64
	files      map[key]*Entry

	mu     deadlock.Mutex
	shards map[uint16]*mmap.ReaderAt
}

func (a *Archive) String() string {
	return a.name
}

func (a *Archive) Len() int {
	return len(a.files)
}

// Find looks up a file by extension, directory and name, ignoring case.
func (a *Archive) Find(ext, dir, name string) (*Entry, bool) {
	e, ok := a.files[key{
		ext:  strings.ToLower(ext),
		dir:  strings.ToLower(dir),
		name: strings.ToLower(name),
	}]
	return e, ok
}

// Walk calls fn for every entry until fn returns false.
func (a *Archive) Walk(fn func(*Entry) bool) {
	for _, e := range a.files {
		if !fn(e) {
			return
		}
	}
}

// ArchivePath returns the file holding the data of shard index.
func (a *Archive) ArchivePath(index uint16) string {
	if index == dirIndex {
		return a.name
	}
	return fmt.Sprintf("%s_%03d.vpk", a.prefix, index)
}

func (a *Archive) shard(index uint16) (*mmap.ReaderAt, int64, error) {
	var base int64
	if index == dirIndex {
		base = a.dataOffset
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.shards[index]; ok {
		return r, base, nil
	}
	path := a.ArchivePath(index)
	r, err := mmap.Open(path)
	if err != nil {
		return nil, 0, errors.Wrapf(ErrNoShard, "%s: %v", path, err)
	}
	a.shards[index] = r
	return r, base, nil
}

func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var first error
	for i, r := range a.shards {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
		delete(a.shards, i)
	}
	return first
}

// Open reads the directory of the package whose _dir.vpk file is name.
func Open(name string) (*Archive, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	a, err := read(f)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	a.name = name
	a.prefix = strings.TrimSuffix(strings.TrimSuffix(name, ".vpk"), "_dir")
	return a, nil
}

func read(r io.Reader) (*Archive, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, ErrTruncated
	}
	if h.Signature != signature {
		return nil, ErrBadSignature
	}
	size := int64(binary.Size(h))
	switch h.Version {
	case 1:
	case 2:
		var h2 headerV2
		if err := binary.Read(r, binary.LittleEndian, &h2); err != nil {
			return nil, ErrTruncated
		}
		size += int64(binary.Size(h2))
	default:
		return nil, errors.Wrapf(ErrBadVersion, "version %d", h.Version)
	}
	tree := make([]byte, h.TreeSize)
	if _, err := io.ReadFull(r, tree); err != nil {
		return nil, ErrTruncated
	}
	a := &Archive{
		dataOffset: size + int64(h.TreeSize),
		files:      make(map[key]*Entry),
		shards:     make(map[uint16]*mmap.ReaderAt),
	}
	if err := a.parseTree(tree); err != nil {
		return nil, err
	}
	return a, nil
}

type treeReader struct {
	b   []byte
	pos int
}

func (r *treeReader) str() (string, error) {
	n := bytes.IndexByte(r.b[r.pos:], 0)
	if n < 0 {
		return "", ErrTruncated
	}
	s := string(r.b[r.pos : r.pos+n])
	r.pos += n + 1
	return s, nil
}

func (r *treeReader) next(n int) ([]byte, error) {
	if r.pos+n > len(r.b) {
		return nil, ErrTruncated
	}
	b := r.b[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// The tree is nested extension, directory, file name lists, each ended by
// an empty string. A single space stands for an empty component.
func (a *Archive) parseTree(tree []byte) error {
	r := &treeReader{b: tree}
	for {
		ext, err := r.str()
		if err != nil {
			return err
		}
		if ext == "" {
			return nil
		}
		for {
			dir, err := r.str()
			if err != nil {
				return err
			}
			if dir == "" {
				break
			}
			for {
				name, err := r.str()
				if err != nil {
					return err
				}
				if name == "" {
					break
				}
				if err := a.readEntry(r, ext, dir, name); err != nil {
					return err
				}
			}
		}
	}
}

func blank(s string) string {
	if s == " " {
		return ""
	}
	return s
}

func (a *Archive) readEntry(r *treeReader, ext, dir, name string) error {
	b, err := r.next(18)
	if err != nil {
		return err
	}
	le := binary.LittleEndian
	e := &Entry{
		CRC:          le.Uint32(b[0:]),
		ArchiveIndex: le.Uint16(b[6:]),
		Offset:       le.Uint32(b[8:]),
		Length:       le.Uint32(b[12:]),
		a:            a,
	}
	preload := int(le.Uint16(b[4:]))
	if le.Uint16(b[16:]) != terminator {
		return errors.Wrapf(ErrTruncated, "bad entry terminator for %s/%s.%s", dir, name, ext)
	}
	if preload > 0 {
		p, err := r.next(preload)
		if err != nil {
			return err
		}
		e.Preload = append([]byte(nil), p...)
	}
	k := key{
		ext:  strings.ToLower(blank(ext)),
		dir:  strings.ToLower(blank(dir)),
		name: strings.ToLower(blank(name)),
	}
	e.Path = k.name
	if k.ext != "" {
		e.Path += "." + k.ext
	}
	if k.dir != "" {
		e.Path = k.dir + "/" + e.Path
	}
	a.files[k] = e
	return nil
}
