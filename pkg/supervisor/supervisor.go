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

// Package supervisor provides interrupt entry and RTI for a machine, using
// R6 as the stack pointer of whichever mode is running.
package supervisor

import (
	"github.com/pkg/errors"

	"github.com/lassandro/lc3vm/pkg/machine"
	"github.com/lassandro/lc3vm/pkg/translate"
)

var f = translate.From

var ErrNotInterrupted = errors.New(f("RTI outside an interrupt"))

const (
	VEC_PRIVILEGE      uint8 = 0x00
	VEC_ILLEGAL_OPCODE uint8 = 0x01
)

const (
	PSR_USER     uint16 = 1 << 15
	PSR_PRIORITY uint16 = 0x7 << 8
	PSR_COND     uint16 = 0x7
)

type Stack struct {
	// Saved is the stack pointer of the mode that is not running. R6 holds
	// the running one.
	Saved uint16

	// LastPSR is the status word most recently restored by RTI
	LastPSR uint16

	depth int
}

// NewStack returns a supervisor whose stack grows down from ssp.
func NewStack(ssp uint16) *Stack {
	return &Stack{Saved: ssp}
}

// PSR composes a processor status word.
func PSR(cond machine.Condition, user bool, priority uint8) uint16 {
	psr := cond.Bits() | ((uint16(priority) << 8) & PSR_PRIORITY)

	if user {
		psr |= PSR_USER
	}

	return psr
}

// Depth is the number of interrupts currently being serviced.
func (st *Stack) Depth() int {
	return st.depth
}

func (st *Stack) push(mc *machine.Machine, value uint16) {
	mc.GPR[6]--
	mc.Memory.Write(mc.GPR[6], value)
}

func (st *Stack) pop(mc *machine.Machine) uint16 {
	result := mc.Memory.Read(mc.GPR[6])
	mc.GPR[6]++
	return result
}

func (st *Stack) swap(mc *machine.Machine) {
	mc.GPR[6], st.Saved = st.Saved, mc.GPR[6]
}

// Raise saves psr and the program counter on the supervisor stack and jumps
// to the handler stored in the interrupt vector table.
func (st *Stack) Raise(mc *machine.Machine, vector uint8, psr uint16) {
	// Only the first level switches from the user stack
	if st.depth == 0 {
		st.swap(mc)
	}

	st.push(mc, psr)
	st.push(mc, mc.PC)
	st.depth++

	mc.PC = mc.Memory.Read(machine.MEMSPACE_INT_TABLE | uint16(vector))
}

func (st *Stack) ReturnFromInterrupt(mc *machine.Machine) error {
	if st.depth == 0 {
		return ErrNotInterrupted
	}

	mc.PC = st.pop(mc)
	st.LastPSR = st.pop(mc)
	mc.Cond = machine.ConditionFromBits(st.LastPSR & PSR_COND)
	st.depth--

	if st.depth == 0 {
		st.swap(mc)
	}

	return nil
}

// Exception turns a fault returned by Step into an exception serviced by LC-3
// code: an illegal opcode raises vector 0x01, an RTI outside an interrupt
// raises vector 0x00. The saved program counter is the instruction after the
// faulting one. It reports false, leaving the machine untouched, for any
// other error.
func (st *Stack) Exception(mc *machine.Machine, err error) bool {
	var fault *machine.Fault

	if !errors.As(err, &fault) {
		return false
	}

	var vector uint8

	switch {
	case errors.Is(fault, machine.ErrIllegalOpcode):
		vector = VEC_ILLEGAL_OPCODE
	case errors.Is(fault, ErrNotInterrupted):
		vector = VEC_PRIVILEGE
	default:
		return false
	}

	mc.PC = fault.Addr + 1
	st.Raise(mc, vector, PSR(mc.Cond, st.depth == 0, 0))

	return true
}
