// Command staxview compiles a Stax source file and opens a desktop
// window that steps the program on the Stax VM, rendering the program
// listing, registers and the evaluation stack.
//
// Keys: space = single step, enter = run/pause, R = reset.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"staxc/pkg/compiler"
	"staxc/pkg/vm"
)

const (
	screenW = 640
	screenH = 480

	// stepsPerFrame keeps a running program fast enough to finish while
	// still letting the stack animation read.
	stepsPerFrame = 8
)

type Game struct {
	program []vm.Instr
	m       *vm.Machine
	running bool
	fault   error
}

func (g *Game) reset() {
	g.m = vm.New(g.program)
	g.running = false
	g.fault = nil
}

func (g *Game) step() {
	if g.m.Halted || g.fault != nil {
		return
	}
	if err := g.m.Step(); err != nil {
		g.fault = err
		g.running = false
	}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.running = false
		g.step()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.running = !g.running
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.reset()
	}

	if g.running {
		for i := 0; i < stepsPerFrame; i++ {
			if g.m.Halted || g.fault != nil {
				g.running = false
				break
			}
			g.step()
		}
	}

	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, "Stax VM  [space] step  [enter] run/pause  [r] reset", 8, 8)

	status := fmt.Sprintf("pc=%d steps=%d depth=%d", g.m.PC, g.m.Steps, g.m.Depth())
	if g.m.Halted {
		status += fmt.Sprintf("  HALTED exit=%d", g.m.ExitCode)
	}
	ebitenutil.DebugPrintAt(screen, status, 8, 24)
	if g.fault != nil {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("FAULT: %v", g.fault), 8, 40)
	}

	for i := 0; i < vm.NumRegs; i++ {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("R%d = %d", i, g.m.Regs[i]), 8, 64+i*16)
	}

	// Program listing window centered on the current instruction.
	const listRows = 20
	start := g.m.PC - listRows/2
	if start < 0 {
		start = 0
	}
	for row := 0; row < listRows; row++ {
		idx := start + row
		if idx >= len(g.m.Program) {
			break
		}
		marker := "  "
		if idx == g.m.PC && !g.m.Halted {
			marker = "> "
		}
		line := fmt.Sprintf("%s%4d  %s", marker, idx, g.m.Program[idx])
		ebitenutil.DebugPrintAt(screen, line, 8, 144+row*16)
	}

	// Evaluation stack, top cell first.
	ebitenutil.DebugPrintAt(screen, "stack (top first)", 400, 64)
	depth := g.m.Depth()
	for i := 0; i < depth && i < 22; i++ {
		val := g.m.Stack[g.m.SP+i]
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("[SP+%d] %d", i*vm.CellSize, val), 400, 80+i*16)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenW, screenH
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: staxview <input.sx>")
		os.Exit(2)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("failed to read source file: %v", err)
	}

	_, program, err := compiler.Compile(string(data))
	if err != nil {
		log.Fatalf("compilation failed: %v", err)
	}

	ebiten.SetWindowSize(screenW, screenH)
	ebiten.SetWindowTitle("Stax VM")

	game := &Game{program: program}
	game.reset()

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
