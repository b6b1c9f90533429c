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

import (
	"github.com/lassandro/lc3vm/pkg/encoding"
)

// New returns a machine with zeroed registers and memory, the program counter
// at the start of user space and an uninitialized condition flag.
func New() *Machine {
	mc := &Machine{}
	mc.Reset()
	return mc
}

// Reset returns the machine to its initial state. Installed trap handlers and
// supervisor are kept.
func (mc *Machine) Reset() {
	for i := range mc.GPR {
		mc.GPR[i] = 0x0000
	}

	mc.Memory.Clear()

	mc.PC = MEMSPACE_USER
	mc.Cond = CondUninitialized
}

// Step runs one fetch-decode-execute cycle.
func (mc *Machine) Step() (Status, error) {
	addr := mc.PC
	instruction := mc.Memory.Read(addr)

	mc.PC++

	status, fault := mc.execute(instruction)

	if fault != nil {
		fault.Addr = addr
		fault.Instruction = instruction

		if fault.restart {
			mc.PC = addr
		}

		return Faulted, fault
	}

	return status, nil
}

// Run steps the machine until it halts, faults or has executed limit
// instructions. A limit of 0 runs without bound. Faulting cycles are not
// counted.
func (mc *Machine) Run(limit uint64) (cycles uint64, status Status, err error) {
	status = Continue

	for limit == 0 || cycles < limit {
		if status, err = mc.Step(); err != nil {
			return cycles, status, err
		}

		cycles++

		if status == Halt {
			break
		}
	}

	return cycles, status, nil
}

func (mc *Machine) execute(instruction uint16) (Status, *Fault) {
	switch Decode(instruction) {
	// ADD  |0001    |DR   |SR1  |0|00 |SR2   | Register  addition
	// ADD  |0001    |DR   |SR1  |1|imm5      | Immediate addition
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_ADD:
		dest := (instruction >> 9) & 0x7
		src1 := (instruction >> 6) & 0x7

		if (instruction>>5)&0x1 == 1 {
			imm5 := encoding.SignExtend(instruction&0x1F, 5)

			mc.Set(dest, mc.Get(src1)+imm5)
		} else {
			src2 := instruction & 0x7

			mc.Set(dest, mc.Get(src1)+mc.Get(src2))
		}

		mc.UpdateFlags(dest)

	// AND  |0101    |DR   |SR1  |0|00 |SR2   | Register  bitwise
	// AND  |0101    |DR   |SR1  |1|imm5      | Immediate bitwise
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_AND:
		dest := (instruction >> 9) & 0x7
		src1 := (instruction >> 6) & 0x7

		if (instruction>>5)&0x1 == 1 {
			imm5 := encoding.SignExtend(instruction&0x1F, 5)

			mc.Set(dest, mc.Get(src1)&imm5)
		} else {
			src2 := instruction & 0x7

			mc.Set(dest, mc.Get(src1)&mc.Get(src2))
		}

		mc.UpdateFlags(dest)

	// BR   |0000    |N|Z|P|PCoffset9         | Conditional branch
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_BR:
		mask := (instruction >> 9) & 0x7

		if mask&mc.Cond.Bits() != 0 {
			mc.PC += encoding.SignExtend(instruction&0x1FF, 9)
		}

	// JMP  |1100    |000  |BaseR|000000      | Jump
	// RET  |1100    |000  |111  |000000      | Return
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_JMP:
		src := (instruction >> 6) & 0x7

		mc.PC = mc.Get(src)

	// JSR  |0100    |1|PCoffset11            | Jump to subroutine
	// JSRR |0100    |0|00 |BaseR|000000      | Jump to subroutine register
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_JSR:
		link := mc.PC

		if (instruction>>11)&0x1 == 1 {
			mc.PC += encoding.SignExtend(instruction&0x7FF, 11)
		} else {
			// BaseR is read before the link is written, so JSRR R7 works
			src := (instruction >> 6) & 0x7

			mc.PC = mc.Get(src)
		}

		mc.Set(7, link)

	// LD   |0010    |DR   |PCoffset9         | Load
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LD:
		dest := (instruction >> 9) & 0x7
		addr := mc.PC + encoding.SignExtend(instruction&0x1FF, 9)

		mc.Set(dest, mc.Memory.Read(addr))

		mc.UpdateFlags(dest)

	// LDI  |1010    |DR   |PCoffset9         | Load indirect
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LDI:
		dest := (instruction >> 9) & 0x7
		addr := mc.PC + encoding.SignExtend(instruction&0x1FF, 9)

		mc.Set(dest, mc.Memory.Read(mc.Memory.Read(addr)))

		mc.UpdateFlags(dest)

	// LDR  |0110    |DR   |BaseR|offset6     | Load base+offset
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LDR:
		dest := (instruction >> 9) & 0x7
		src := (instruction >> 6) & 0x7
		addr := mc.Get(src) + encoding.SignExtend(instruction&0x3F, 6)

		mc.Set(dest, mc.Memory.Read(addr))

		mc.UpdateFlags(dest)

	// LEA  |1110    |DR   |PCoffset9         | Load effective address
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LEA:
		dest := (instruction >> 9) & 0x7

		mc.Set(dest, mc.PC+encoding.SignExtend(instruction&0x1FF, 9))

		mc.UpdateFlags(dest)

	// NOT  |1001    |DR   |SR   |1|11111     | Bitwise complement
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_NOT:
		dest := (instruction >> 9) & 0x7
		src := (instruction >> 6) & 0x7

		mc.Set(dest, ^mc.Get(src))

		mc.UpdateFlags(dest)

	// ST   |0011    |SR   |PCoffset9         | Store
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_ST:
		src := (instruction >> 9) & 0x7
		addr := mc.PC + encoding.SignExtend(instruction&0x1FF, 9)

		mc.Memory.Write(addr, mc.Get(src))

	// STI  |1011    |SR   |PCoffset9         | Store indirect
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_STI:
		src := (instruction >> 9) & 0x7
		addr := mc.PC + encoding.SignExtend(instruction&0x1FF, 9)

		mc.Memory.Write(mc.Memory.Read(addr), mc.Get(src))

	// STR  |0111    |SR   |BaseR|offset6     | Store base+offset
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_STR:
		src := (instruction >> 9) & 0x7
		base := (instruction >> 6) & 0x7
		addr := mc.Get(base) + encoding.SignExtend(instruction&0x3F, 6)

		mc.Memory.Write(addr, mc.Get(src))

	// RTI  |1000    |000000000000            | Return from interrupt
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_RTI:
		if mc.Supervisor == nil {
			return Faulted, &Fault{Err: ErrPrivilegedInstruction, restart: true}
		}

		if err := mc.Supervisor.ReturnFromInterrupt(mc); err != nil {
			return Faulted, &Fault{Err: ErrSupervisor, Cause: err}
		}

	// TRAP |1111    |0000   |trapvect8       | System call
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_TRAP:
		if mc.Traps == nil {
			return Faulted, &Fault{Err: ErrPrivilegedInstruction, restart: true}
		}

		vector := uint8(encoding.ZeroExtend(instruction, 8))

		mc.Set(7, mc.PC)

		status, err := mc.Traps.Trap(vector, mc)

		if err != nil {
			return Faulted, &Fault{Err: ErrTrap, Cause: err}
		}

		return status, nil

	// RES  |1101    |                        | Reserved (illegal)
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	default:
		return Faulted, &Fault{Err: ErrIllegalOpcode, restart: true}
	}

	return Continue, nil
}
