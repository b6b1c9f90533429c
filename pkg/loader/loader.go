// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package loader installs program images into machine memory before the first
// cycle runs.
//
// Three formats are understood:
//
//	bin  big-endian words placed from address 0x0000, a raw memory dump
//	obj  a big-endian origin word followed by big-endian words placed from
//	     the origin upward
//	hex  text, one word per line in 0x/x notation; the first word is the
//	     origin and ';' starts a comment
//
// Every loader returns the address execution should begin at.
package loader

import (
	"bufio"
	"encoding/binary"
	"io"
	"path/filepath"
	"strings"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lassandro/lc3vm/pkg/encoding"
	"github.com/lassandro/lc3vm/pkg/translate"
)

var f = translate.From

var (
	ErrImageTooLarge = errors.New(f("image larger than memory"))
	ErrOddLength     = errors.New(f("image ends in half a word"))
	ErrMissingOrigin = errors.New(f("image has no origin"))
	ErrUnknownFormat = errors.New(f("unknown image format"))
)

const memoryWords = 1 << 16

// Poker is the write side of machine memory.
type Poker interface {
	Write(addr uint16, value uint16)
}

type Format uint8

const (
	FormatBin Format = iota
	FormatObj
	FormatHex
)

var formatNames = map[Format]string{
	FormatBin: "bin",
	FormatObj: "obj",
	FormatHex: "hex",
}

type objHeader struct {
	Origin uint16 `struc:"uint16"`
}

type imageWord struct {
	Value uint16 `struc:"uint16"`
}

func (ft Format) String() string {
	if name, ok := formatNames[ft]; ok {
		return name
	}

	return "unknown"
}

func ParseFormat(s string) (Format, error) {
	for format, name := range formatNames {
		if strings.EqualFold(s, name) {
			return format, nil
		}
	}

	return 0, errors.Wrapf(ErrUnknownFormat, "%q", s)
}

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

func Load(format Format, reader io.Reader, mem Poker) (uint16, error) {
	switch format {
	case FormatBin:
		return LoadBin(reader, mem)
	case FormatObj:
		return LoadObj(reader, mem)
	case FormatHex:
		return LoadHex(reader, mem)
	}

	return 0, errors.Wrapf(ErrUnknownFormat, "%d", format)
}

// placer writes consecutive words from origin, refusing to wrap back onto
// words it already placed.
type placer struct {
	mem   Poker
	addr  uint16
	count int
}

func (pl *placer) place(value uint16) error {
	if pl.count >= memoryWords {
		return ErrImageTooLarge
	}

	pl.mem.Write(pl.addr, value)
	pl.addr++
	pl.count++

	return nil
}

// readWords unpacks big-endian words until the image runs out.
func readWords(reader io.Reader, place func(uint16) error) error {
	var word imageWord

	buffered := bufio.NewReader(reader)

	for {
		err := struc.UnpackWithOrder(buffered, &word, binary.BigEndian)

		if err == io.EOF {
			return nil
		} else if err == io.ErrUnexpectedEOF {
			return ErrOddLength
		} else if err != nil {
			return errors.Wrap(err, "reading image")
		}

		if err := place(word.Value); err != nil {
			return err
		}
	}
}

// LoadBin places a raw image at address 0x0000.
func LoadBin(reader io.Reader, mem Poker) (uint16, error) {
	pl := placer{mem: mem, addr: 0x0000}

	if err := readWords(reader, pl.place); err != nil {
		return 0, errors.Wrap(err, "bin")
	}

	return 0x0000, nil
}

// LoadObj places an origin-prefixed object image.
func LoadObj(reader io.Reader, mem Poker) (uint16, error) {
	var header objHeader

	err := struc.UnpackWithOrder(reader, &header, binary.BigEndian)

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, errors.Wrap(ErrMissingOrigin, "obj")
	} else if err != nil {
		return 0, errors.Wrap(err, "obj header")
	}

	pl := placer{mem: mem, addr: header.Origin}

	if err := readWords(reader, pl.place); err != nil {
		return 0, errors.Wrap(err, "obj")
	}

	return header.Origin, nil
}

// LoadHex places a text image.
func LoadHex(reader io.Reader, mem Poker) (uint16, error) {
	var origin uint16
	var pl *placer

	scanner := bufio.NewScanner(reader)
	scanner.Split(bufio.ScanLines)

	for lineno := 1; scanner.Scan(); lineno++ {
		line := scanner.Text()

		if i := strings.IndexByte(line, ';'); i != -1 {
			line = line[:i]
		}

		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		value, err := encoding.DecodeHex(line)

		if err != nil {
			return 0, errors.Wrapf(err, "hex line %d", lineno)
		}

		if pl == nil {
			origin = value
			pl = &placer{mem: mem, addr: origin}
			continue
		}

		if err := pl.place(value); err != nil {
			return 0, errors.Wrapf(err, "hex line %d", lineno)
		}
	}

	if err := scanner.Err(); err != nil {
		return 0, errors.Wrap(err, "reading image")
	}

	if pl == nil {
		return 0, errors.Wrap(ErrMissingOrigin, "hex")
	}

	return origin, nil
}
