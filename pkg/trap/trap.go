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

// Package trap services TRAP instructions for a machine.
//
// Console handles the standard service routines on the host's streams, so a
// program runs without an operating system image. Table dispatches through
// the trap vector table in memory instead, leaving the routines to LC-3 code.
package trap

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"github.com/lassandro/lc3vm/pkg/encoding"
	"github.com/lassandro/lc3vm/pkg/machine"
	"github.com/lassandro/lc3vm/pkg/translate"
)

var f = translate.From

const (
	TRAP_GETC  uint8 = 0x20
	TRAP_OUT   uint8 = 0x21
	TRAP_PUTS  uint8 = 0x22
	TRAP_IN    uint8 = 0x23
	TRAP_PUTSP uint8 = 0x24
	TRAP_HALT  uint8 = 0x25
)

const (
	promptIn   = "Enter a character: "
	bannerHalt = "\n--- halting the LC-3 ---\n"
)

var (
	ErrUnknownVector = errors.New(f("unknown trap vector"))
	ErrInputClosed   = errors.New(f("console input closed"))
)

type Console struct {
	In  *bufio.Reader
	Out *bufio.Writer

	// Fallback services vectors the console does not know
	Fallback machine.TrapHandler
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		In:  bufio.NewReader(in),
		Out: bufio.NewWriter(out),
	}
}

func (cs *Console) Trap(vector uint8, mc *machine.Machine) (machine.Status, error) {
	status := machine.Continue

	switch vector {
	// Read one character into R0 without echo
	case TRAP_GETC:
		if err := cs.readChar(mc); err != nil {
			return machine.Faulted, err
		}

	// Write the character in R0[7:0]
	case TRAP_OUT:
		cs.Out.WriteByte(byte(mc.GPR[0] & 0xFF))

	// Write the string of one character per word at R0
	case TRAP_PUTS:
		addr := mc.GPR[0]

		for i := 0; i < 1<<16; i++ {
			value := mc.Memory.Read(addr)

			if value == 0 {
				break
			}

			cs.Out.WriteByte(byte(value & 0xFF))
			addr++
		}

	// Prompt, then read and echo one character into R0
	case TRAP_IN:
		cs.Out.WriteString(promptIn)

		if err := cs.Out.Flush(); err != nil {
			return machine.Faulted, errors.Wrap(err, "console")
		}

		if err := cs.readChar(mc); err != nil {
			return machine.Faulted, err
		}

		cs.Out.WriteByte(byte(mc.GPR[0]))

	// Write the string of two characters per word at R0, low byte first
	case TRAP_PUTSP:
		addr := mc.GPR[0]

		for i := 0; i < 1<<16; i++ {
			value := mc.Memory.Read(addr)

			if value == 0 {
				break
			}

			cs.Out.WriteByte(byte(value & 0xFF))

			if value>>8 == 0 {
				break
			}

			cs.Out.WriteByte(byte(value >> 8))
			addr++
		}

	case TRAP_HALT:
		cs.Out.WriteString(bannerHalt)
		status = machine.Halt

	default:
		if cs.Fallback != nil {
			if err := cs.Out.Flush(); err != nil {
				return machine.Faulted, errors.Wrap(err, "console")
			}

			return cs.Fallback.Trap(vector, mc)
		}

		return machine.Faulted, errors.Wrapf(ErrUnknownVector, "%#02x", vector)
	}

	// bufio.Writer keeps the first write error, so one check covers them all
	if err := cs.Out.Flush(); err != nil {
		return machine.Faulted, errors.Wrap(err, "console")
	}

	return status, nil
}

func (cs *Console) readChar(mc *machine.Machine) error {
	if cs.In == nil {
		return ErrInputClosed
	}

	key, err := cs.In.ReadByte()

	if err == io.EOF {
		return ErrInputClosed
	} else if err != nil {
		return errors.Wrap(err, "console")
	}

	mc.Set(0, uint16(key))
	mc.UpdateFlags(0)

	return nil
}

// Table jumps to the service routine whose address is stored in the trap
// vector table. The routine returns to the caller with RET.
type Table struct{}

func (Table) Trap(vector uint8, mc *machine.Machine) (machine.Status, error) {
	addr := machine.MEMSPACE_TRAP_TABLE | encoding.ZeroExtend(uint16(vector), 8)

	mc.PC = mc.Memory.Read(addr)

	return machine.Continue, nil
}
