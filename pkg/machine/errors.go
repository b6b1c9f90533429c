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
	"github.com/pkg/errors"

	"github.com/lassandro/lc3vm/pkg/translate"
)

var f = translate.From

var (
	ErrIllegalOpcode         = errors.New(f("illegal opcode"))
	ErrPrivilegedInstruction = errors.New(f("privileged instruction"))
	ErrTrap                  = errors.New(f("trap failed"))
	ErrSupervisor            = errors.New(f("supervisor failed"))
)

// Fault is returned by Step when a cycle cannot complete. Err is one of the
// sentinels above; Cause carries the collaborator error behind ErrTrap and
// ErrSupervisor.
type Fault struct {
	Err         error
	Cause       error
	Addr        uint16
	Instruction uint16

	// restart marks faults raised before the instruction changed any state,
	// which rewind the program counter to the faulting instruction.
	restart bool
}

func (ft *Fault) Opcode() Opcode {
	return Decode(ft.Instruction)
}

func (ft *Fault) Error() string {
	if ft.Cause != nil {
		return f("%v at %#04x (%v %#04x): %v",
			ft.Err, ft.Addr, ft.Opcode(), ft.Instruction, ft.Cause)
	}

	return f("%v at %#04x (%v %#04x)",
		ft.Err, ft.Addr, ft.Opcode(), ft.Instruction)
}

func (ft *Fault) Unwrap() []error {
	if ft.Cause != nil {
		return []error{ft.Err, ft.Cause}
	}

	return []error{ft.Err}
}
