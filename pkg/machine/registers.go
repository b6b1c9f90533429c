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

func (mem *Memory) Read(addr uint16) uint16 {
	return mem[addr]
}

func (mem *Memory) Write(addr uint16, value uint16) {
	mem[addr] = value
}

func (mem *Memory) Clear() {
	for i := range mem {
		mem[i] = 0x0000
	}
}

// Get returns the register selected by the low three bits of reg.
func (r *Registers) Get(reg uint16) uint16 {
	return r.GPR[reg&0x7]
}

// Set writes the register selected by the low three bits of reg.
func (r *Registers) Set(reg uint16, value uint16) {
	r.GPR[reg&0x7] = value
}

// UpdateFlags sets the condition flag from the current value of reg. It must
// run after the destination write it reflects.
func (r *Registers) UpdateFlags(reg uint16) {
	r.Cond = ConditionOf(r.Get(reg))
}

// ConditionOf classifies a word as zero, negative (bit 15 set) or positive.
func ConditionOf(value uint16) Condition {
	if value == 0 {
		return CondZero
	} else if value>>15 == 1 {
		return CondNegative
	}

	return CondPositive
}

// ConditionFromBits maps the low three bits of a status word back to a
// condition. Anything other than a single N, Z or P bit is uninitialized.
func ConditionFromBits(bits uint16) Condition {
	switch bits & 0x7 {
	case FLAG_POS:
		return CondPositive
	case FLAG_ZERO:
		return CondZero
	case FLAG_NEG:
		return CondNegative
	}

	return CondUninitialized
}

// Bits is the value BR tests against its n, z, p mask.
func (c Condition) Bits() uint16 {
	switch c {
	case CondPositive:
		return FLAG_POS
	case CondZero:
		return FLAG_ZERO
	case CondNegative:
		return FLAG_NEG
	}

	return 0
}

func (c Condition) String() string {
	switch c {
	case CondPositive:
		return "P"
	case CondZero:
		return "Z"
	case CondNegative:
		return "N"
	}

	return "-"
}

func (s Status) String() string {
	switch s {
	case Continue:
		return "continue"
	case Halt:
		return "halt"
	case Faulted:
		return "fault"
	}

	return "unknown"
}
