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

const (
	FLAG_POS  uint16 = 1 << 0
	FLAG_ZERO uint16 = 1 << 1
	FLAG_NEG  uint16 = 1 << 2
)

const (
	MEMSPACE_TRAP_TABLE uint16 = 0x0000
	MEMSPACE_INT_TABLE  uint16 = 0x0100
	MEMSPACE_SUPERVISOR uint16 = 0x0200
	MEMSPACE_USER       uint16 = 0x3000
	MEMSPACE_DEVICES    uint16 = 0xFE00
)

const (
	OP_BR   Opcode = 0b0000
	OP_ADD  Opcode = 0b0001
	OP_LD   Opcode = 0b0010
	OP_ST   Opcode = 0b0011
	OP_JSR  Opcode = 0b0100
	OP_AND  Opcode = 0b0101
	OP_LDR  Opcode = 0b0110
	OP_STR  Opcode = 0b0111
	OP_RTI  Opcode = 0b1000
	OP_NOT  Opcode = 0b1001
	OP_LDI  Opcode = 0b1010
	OP_STI  Opcode = 0b1011
	OP_JMP  Opcode = 0b1100
	OP_LEA  Opcode = 0b1110
	OP_TRAP Opcode = 0b1111

	// Reserved
	OP_RES Opcode = 0b1101
)

const (
	CondUninitialized Condition = iota
	CondPositive
	CondZero
	CondNegative
)

const (
	Continue Status = iota
	Halt
	Faulted
)
