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

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"

	"github.com/mattn/go-isatty"

	"github.com/lassandro/lc3vm/pkg/encoding"
	"github.com/lassandro/lc3vm/pkg/loader"
	"github.com/lassandro/lc3vm/pkg/machine"
	"github.com/lassandro/lc3vm/pkg/supervisor"
	"github.com/lassandro/lc3vm/pkg/trap"
	"github.com/lassandro/lc3vm/pkg/translate"
)

var helpvar bool
var formatvar string
var pcvar string
var maxcyclesvar uint64
var tablevar bool
var statsvar bool

const usage = "lc3vm [-format bin|obj|hex] [-pc addr] [-max-cycles n] " +
	"[-table] [-stats] filename"

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.StringVar(
		&formatvar, "format", "",
		"Image format (bin, obj or hex). Defaults to the file extension",
	)
	flag.StringVar(
		&pcvar, "pc", "",
		"Starting address, overriding the origin of the image (x3000, #12288)",
	)
	flag.Uint64Var(
		&maxcyclesvar, "max-cycles", 0,
		"Stops after this many instructions. 0 runs until halt",
	)
	flag.BoolVar(
		&tablevar, "table", false,
		"Dispatches unknown trap vectors through the trap vector table, "+
			"and illegal opcodes and privilege violations through the "+
			"interrupt vector table",
	)
	flag.BoolVar(
		&statsvar, "stats", false,
		"Prints the number of instructions executed on exit",
	)
}

func lc3vm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	var format loader.Format
	var err error

	if formatvar != "" {
		format, err = loader.ParseFormat(formatvar)
	} else {
		format, err = loader.FormatFromPath(args[0])
	}

	if err != nil {
		log.Println(err)
		return 1
	}

	file, err := os.Open(args[0])

	if err != nil {
		log.Println(err)
		return 1
	}

	defer file.Close()

	mc := machine.New()

	origin, err := loader.Load(format, file, &mc.Memory)

	if err != nil {
		log.Printf("%s: %v", args[0], err)
		return 1
	}

	mc.PC = origin

	if pcvar != "" {
		if mc.PC, err = encoding.DecodeWord(pcvar); err != nil {
			log.Println(err)
			return 1
		}
	}

	console := trap.NewConsole(os.Stdin, os.Stdout)

	if tablevar {
		console.Fallback = trap.Table{}
	}

	stack := supervisor.NewStack(machine.MEMSPACE_USER)

	mc.Traps = console
	mc.Supervisor = stack

	var exceptions *supervisor.Stack

	if tablevar {
		exceptions = stack
	}

	if isatty.IsTerminal(os.Stdin.Fd()) {
		if err := enterRawTerm(); err != nil {
			log.Println(err)
			return 1
		}

		defer func() {
			if err := exitRawTerm(); err != nil {
				log.Println(err)
			}
		}()
	}

	var interrupted atomic.Bool

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	defer func() {
		signal.Stop(c)
		close(c)
	}()

	go watchInterrupts(c, &interrupted, func() {
		if isatty.IsTerminal(os.Stdin.Fd()) {
			if err := exitRawTerm(); err != nil {
				log.Println(err)
			}
		}

		log.Println("interrupted while waiting for input")
		os.Exit(130)
	})

	cycles, err := run(mc, exceptions, maxcyclesvar, &interrupted)
	code := 0

	if err != nil {
		log.Println(err)
		code = 1
	}

	if statsvar {
		fmt.Fprintln(os.Stderr, translate.From(
			"%d instructions executed, PC %#04x", cycles, mc.PC,
		))
	}

	return code
}

// run steps mc until it halts, faults, is interrupted or has executed limit
// instructions. A limit of 0 runs until halt. When st is set, illegal opcodes
// and RTI outside an interrupt enter LC-3 exception handlers instead of
// stopping the machine.
func run(
	mc *machine.Machine, st *supervisor.Stack, limit uint64,
	interrupted *atomic.Bool,
) (uint64, error) {
	var cycles uint64

	for !interrupted.Load() {
		if limit != 0 && cycles >= limit {
			break
		}

		status, err := mc.Step()

		if err != nil {
			if st == nil || !st.Exception(mc, err) {
				return cycles, err
			}
		}

		cycles++

		if status == machine.Halt {
			break
		}
	}

	return cycles, nil
}

// watchInterrupts stops the run loop on the first interrupt. The loop only
// looks between instructions, so a second interrupt while GETC or IN blocks
// on the keyboard calls abort. It returns once c is closed.
func watchInterrupts(c <-chan os.Signal, interrupted *atomic.Bool, abort func()) {
	for range c {
		if interrupted.Swap(true) {
			abort()
		}
	}
}

func main() {
	flag.Parse()
	os.Exit(lc3vm())
}
