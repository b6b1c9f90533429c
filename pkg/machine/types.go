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

package machine

// Memory is the flat word store. Every uint16 is a valid address.
type Memory [1 << 16]uint16

// Registers is the processor visible state: R0-R7, the program counter and
// the condition flag.
type Registers struct {
	GPR  [8]uint16
	PC   uint16
	Cond Condition
}

// Condition holds exactly one of the condition flag variants.
type Condition uint8

// Opcode is the operation selected by bits [15:12] of an instruction word.
type Opcode uint8

// Status is the outcome of a single cycle.
type Status uint8

// TrapHandler services TRAP instructions. R7 already holds the return
// address when Trap is called; the handler may change any machine state and
// reports Halt when the program should stop.
type TrapHandler interface {
	Trap(vector uint8, mc *Machine) (Status, error)
}

// Supervisor services RTI.
type Supervisor interface {
	ReturnFromInterrupt(mc *Machine) error
}

// Machine is one simulated LC-3. It is not safe for concurrent use.
type Machine struct {
	Registers
	Memory Memory

	Traps      TrapHandler
	Supervisor Supervisor
}
