//go:build !js

// Command staxasm assembles a hand-written Stax VM assembly file and
// optionally executes it, independent of the compiler front end.
package main

import (
	"flag"
	"fmt"
	"os"

	"staxc/pkg/asm"
	"staxc/pkg/vm"
)

func main() {
	inPath := flag.String("in", "", "input assembly file path")
	runProgram := flag.Bool("run", false, "run the assembled program on the Stax VM")
	trace := flag.Bool("trace", false, "print each instruction as it executes")
	maxSteps := flag.Int("max-steps", 1_000_000, "instruction budget when running")
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: staxasm -in <file.sxasm> [-run] [-trace]")
		os.Exit(2)
	}

	data, err := os.ReadFile(*inPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read error:", err)
		os.Exit(1)
	}

	program, sourceMap, err := asm.Assemble(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, "assembly error:", err)
		os.Exit(1)
	}

	if !*runProgram {
		for i, in := range program {
			fmt.Printf("%4d  %-24s ; line %d\n", i, in, sourceMap[i])
		}
		return
	}

	m := vm.New(program)
	for i := 0; i < *maxSteps && !m.Halted; i++ {
		if *trace {
			fmt.Printf("%4d  %s\n", m.PC, m.Program[m.PC])
		}
		if err := m.Step(); err != nil {
			fmt.Fprintln(os.Stderr, "runtime fault:", err)
			os.Exit(1)
		}
	}
	if !m.Halted {
		fmt.Fprintf(os.Stderr, "program did not halt within %d steps\n", *maxSteps)
		os.Exit(1)
	}

	fmt.Printf("halted after %d steps, exit code %d\n", m.Steps, m.ExitCode)
	os.Exit(int(m.ExitCode))
}
