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

package loader_test

import (
	"bytes"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lassandro/lc3vm/pkg/encoding"
	"github.com/lassandro/lc3vm/pkg/loader"
	"github.com/lassandro/lc3vm/pkg/machine"
)

func TestLoadBin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		assert := assert.New(t)

		var mem machine.Memory
		origin, err := loader.LoadBin(
			bytes.NewReader([]byte{0x12, 0x34, 0xAB, 0xCD}), &mem,
		)

		assert.NoError(err)
		assert.Equal(uint16(0x0000), origin)
		assert.Equal(uint16(0x1234), mem.Read(0x0000))
		assert.Equal(uint16(0xABCD), mem.Read(0x0001))
		assert.Equal(uint16(0x0000), mem.Read(0x0002))
	})

	t.Run("Full Memory", func(t *testing.T) {
		var mem machine.Memory
		image := bytes.Repeat([]byte{0xBE, 0xEF}, 1<<16)

		_, err := loader.LoadBin(bytes.NewReader(image), &mem)

		require.NoError(t, err)
		assert.Equal(t, uint16(0xBEEF), mem.Read(0x0000))
		assert.Equal(t, uint16(0xBEEF), mem.Read(0xFFFF))
	})

	t.Run("Too Large", func(t *testing.T) {
		var mem machine.Memory
		image := bytes.Repeat([]byte{0xBE, 0xEF}, (1<<16)+1)

		_, err := loader.LoadBin(bytes.NewReader(image), &mem)

		assert.True(t, errors.Is(err, loader.ErrImageTooLarge), "%v", err)
	})

	t.Run("Odd Length", func(t *testing.T) {
		var mem machine.Memory

		_, err := loader.LoadBin(bytes.NewReader([]byte{0x12, 0x34, 0x56}), &mem)

		assert.True(t, errors.Is(err, loader.ErrOddLength), "%v", err)
	})

	t.Run("Short Reads", func(t *testing.T) {
		var mem machine.Memory
		image := []byte{0x12, 0x34, 0xAB, 0xCD, 0x00, 0x01}

		_, err := loader.LoadBin(
			iotest.OneByteReader(bytes.NewReader(image)), &mem,
		)

		require.NoError(t, err)
		assert.Equal(t, uint16(0x1234), mem.Read(0x0000))
		assert.Equal(t, uint16(0xABCD), mem.Read(0x0001))
		assert.Equal(t, uint16(0x0001), mem.Read(0x0002))
	})

	t.Run("Read Error", func(t *testing.T) {
		var mem machine.Memory
		broken := errors.New("disk on fire")

		_, err := loader.LoadBin(iotest.ErrReader(broken), &mem)

		assert.True(t, errors.Is(err, broken), "%v", err)
		assert.False(t, errors.Is(err, loader.ErrOddLength), "%v", err)
	})
}

func TestLoadObj(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		assert := assert.New(t)

		var mem machine.Memory
		origin, err := loader.LoadObj(bytes.NewReader([]byte{
			0x30, 0x00, // Origin
			0x12, 0x34,
			0xF0, 0x25,
		}), &mem)

		assert.NoError(err)
		assert.Equal(uint16(0x3000), origin)
		assert.Equal(uint16(0x1234), mem.Read(0x3000))
		assert.Equal(uint16(0xF025), mem.Read(0x3001))
		assert.Equal(uint16(0x0000), mem.Read(0x0000))
	})

	t.Run("Header Only", func(t *testing.T) {
		var mem machine.Memory
		origin, err := loader.LoadObj(bytes.NewReader([]byte{0x40, 0x00}), &mem)

		assert.NoError(t, err)
		assert.Equal(t, uint16(0x4000), origin)
		assert.Equal(t, machine.Memory{}, mem)
	})

	t.Run("Wraps", func(t *testing.T) {
		var mem machine.Memory
		origin, err := loader.LoadObj(bytes.NewReader([]byte{
			0xFF, 0xFF, // Origin
			0x00, 0x01,
			0x00, 0x02,
		}), &mem)

		assert.NoError(t, err)
		assert.Equal(t, uint16(0xFFFF), origin)
		assert.Equal(t, uint16(0x0001), mem.Read(0xFFFF))
		assert.Equal(t, uint16(0x0002), mem.Read(0x0000))
	})

	t.Run("Missing Origin", func(t *testing.T) {
		for _, image := range [][]byte{{}, {0x30}} {
			var mem machine.Memory

			_, err := loader.LoadObj(bytes.NewReader(image), &mem)

			assert.True(t, errors.Is(err, loader.ErrMissingOrigin), "%v", err)
		}
	})

	t.Run("Odd Length", func(t *testing.T) {
		var mem machine.Memory

		_, err := loader.LoadObj(bytes.NewReader([]byte{0x30, 0x00, 0x12}), &mem)

		assert.True(t, errors.Is(err, loader.ErrOddLength), "%v", err)
	})
}

func TestLoadHex(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		assert := assert.New(t)

		var mem machine.Memory
		origin, err := loader.LoadHex(strings.NewReader(strings.Join([]string{
			"; hello world",
			"x3000",
			"",
			"0xE002   ; LEA R0 #2",
			"  xF022  ; PUTS",
			"0xF025",
			"x0048",
		}, "\n")), &mem)

		assert.NoError(err)
		assert.Equal(uint16(0x3000), origin)
		assert.Equal(uint16(0xE002), mem.Read(0x3000))
		assert.Equal(uint16(0xF022), mem.Read(0x3001))
		assert.Equal(uint16(0xF025), mem.Read(0x3002))
		assert.Equal(uint16(0x0048), mem.Read(0x3003))
		assert.Equal(uint16(0x0000), mem.Read(0x3004))
	})

	t.Run("Bad Word", func(t *testing.T) {
		var mem machine.Memory

		_, err := loader.LoadHex(
			strings.NewReader("x3000\nx1234\nADD R0 R0 #1\n"), &mem,
		)

		require.Error(t, err)
		assert.True(t, errors.Is(err, encoding.ErrInvalidHex), "%v", err)
		assert.Contains(t, err.Error(), "hex line 3")
	})

	t.Run("Missing Origin", func(t *testing.T) {
		var mem machine.Memory

		_, err := loader.LoadHex(strings.NewReader("; nothing\n\n"), &mem)

		assert.True(t, errors.Is(err, loader.ErrMissingOrigin), "%v", err)
	})
}

func TestFormat(t *testing.T) {
	assert := assert.New(t)

	for path, want := range map[string]loader.Format{
		"prog.bin":          loader.FormatBin,
		"dir/prog.obj":      loader.FormatObj,
		"PROG.OBJ":          loader.FormatObj,
		"/tmp/a.b/prog.hex": loader.FormatHex,
	} {
		have, err := loader.FormatFromPath(path)
		assert.NoError(err, path)
		assert.Equal(want, have, path)
	}

	_, err := loader.FormatFromPath("prog.asm")
	assert.True(errors.Is(err, loader.ErrUnknownFormat))

	_, err = loader.FormatFromPath("prog")
	assert.True(errors.Is(err, loader.ErrUnknownFormat))

	format, err := loader.ParseFormat("hex")
	assert.NoError(err)
	assert.Equal("hex", format.String())
	assert.Equal("unknown", loader.Format(9).String())
}

func TestLoadAndRun(t *testing.T) {
	assert := assert.New(t)

	mc := machine.New()
	origin, err := loader.Load(loader.FormatObj, bytes.NewReader([]byte{
		0x40, 0x00, // Origin
		0x10, 0x3F, // ADD R0 R0 #-1
		0x0F, 0xFE, // BRnzp #-2
	}), &mc.Memory)

	require.NoError(t, err)

	mc.PC = origin
	_, _, err = mc.Run(4)

	assert.NoError(err)
	assert.Equal(uint16(0xFFFE), mc.GPR[0])
	assert.Equal(machine.CondNegative, mc.Cond)
	assert.Equal(uint16(0x4000), mc.PC)

	_, err = loader.Load(loader.Format(9), bytes.NewReader(nil), &mc.Memory)
	assert.True(errors.Is(err, loader.ErrUnknownFormat))
}
