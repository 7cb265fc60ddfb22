// Command staxc compiles Stax source files to Stax VM assembly.
//
// By default the generated assembly is written next to the input with a
// .sxasm extension; --run assembles and executes the program in-process
// instead and exits with the program's status. A failed compilation
// prints the first error and produces no output artifact.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	cli "gopkg.in/urfave/cli.v1"

	"staxc/pkg/asm"
	"staxc/pkg/compiler"
	"staxc/pkg/vm"
)

func main() {
	app := cli.NewApp()
	app.Name = "staxc"
	app.Usage = "compile Stax source to Stax VM assembly"
	app.ArgsUsage = "<input.sx>"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "out, o",
			Usage: "output assembly path (default: input with .sxasm extension)",
		},
		cli.BoolFlag{
			Name:  "run",
			Usage: "assemble and execute in-process; exit with the program's status",
		},
		cli.BoolFlag{
			Name:  "tokens",
			Usage: "dump the token stream",
		},
		cli.BoolFlag{
			Name:  "ast",
			Usage: "dump the parsed AST",
		},
		cli.BoolFlag{
			Name:  "asm",
			Usage: "print the generated assembly to stdout",
		},
		cli.IntFlag{
			Name:  "max-steps",
			Value: 1_000_000,
			Usage: "instruction budget for --run",
		},
	}
	app.Action = compile

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func compile(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("usage: staxc [options] <input.sx>", 2)
	}
	inPath := ctx.Args().First()

	data, err := os.ReadFile(inPath)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("read error: %v", err), 1)
	}
	src := string(data)

	tokens, err := compiler.Lex(src)
	if err != nil {
		return compileError("lex", err)
	}
	if ctx.Bool("tokens") {
		fmt.Printf("Tokens (%d)\n", len(tokens))
		for _, tok := range tokens {
			fmt.Println(" ", tok)
		}
		fmt.Println()
	}

	prog, err := compiler.Parse(tokens, src)
	if err != nil {
		return compileError("parse", err)
	}
	if ctx.Bool("ast") {
		fmt.Println("AST")
		fmt.Print(prog)
		fmt.Println()
	}

	assembly, err := compiler.Generate(prog)
	if err != nil {
		return compileError("codegen", err)
	}
	if ctx.Bool("asm") {
		fmt.Print(assembly)
	}

	if ctx.Bool("run") {
		program, _, err := asm.Assemble(assembly)
		if err != nil {
			return compileError("assemble", err)
		}
		m := vm.New(program)
		if err := m.Run(ctx.Int("max-steps")); err != nil {
			return cli.NewExitError(fmt.Sprintf("runtime fault: %v", err), 1)
		}
		os.Exit(int(m.ExitCode))
	}

	outPath := ctx.String("out")
	if outPath == "" {
		outPath = strings.TrimSuffix(inPath, filepath.Ext(inPath)) + ".sxasm"
	}

	// Written only after the whole pipeline succeeded; a failed
	// compilation leaves no artifact behind.
	if err := os.WriteFile(outPath, []byte(assembly), 0o644); err != nil {
		return cli.NewExitError(fmt.Sprintf("write error: %v", err), 1)
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}

// compileError prints the first error of a failed stage in red and maps
// it to a non-zero exit.
func compileError(stage string, err error) error {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "%s error: ", stage)
	fmt.Fprintln(os.Stderr, err)
	return cli.NewExitError("", 1)
}
