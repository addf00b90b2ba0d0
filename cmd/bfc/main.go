// Command bfc is the CLI surface spec.md §6 describes as an external
// collaborator to the core: it wires the parser, the three optimization
// passes, the interpreter and the LLVM IR back end together behind a flat
// flag.Parse()-based flag set, the shape both of the teacher's retrieved
// cmd/ mains use.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/Urethramancer/bfcc/backend/llvmgen"
	"github.com/Urethramancer/bfcc/ir"
	"github.com/Urethramancer/bfcc/loopinfo"
	"github.com/Urethramancer/bfcc/optimize"
	"github.com/Urethramancer/bfcc/parser"
	"github.com/Urethramancer/bfcc/vm"
)

var (
	outPath     = flag.String("o", "", "output path for the compiled artifact (LLVM IR text)")
	profile     = flag.Bool("p", false, "run under the interpreter and print a profiling report")
	noSimple    = flag.Bool("no-simple-loop-optimize", false, "disable the simple-loop (R1) pass")
	noScan      = flag.Bool("no-scan-optimize", false, "disable the scan-loop (R2) pass")
	noLinearize = flag.Bool("no-linearize-loop-optimize", false, "disable the linear-loop (R3) pass")
)

func main() {
	os.Exit(bfcMain())
}

// bfcMain holds the whole CLI body as a function returning an exit code
// rather than calling os.Exit directly, so the black-box test suite
// (main_test.go) can drive it in-process via testscript.RunMain.
func bfcMain() int {
	log.SetFlags(0)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <source-file>\n", os.Args[0])
		flag.PrintDefaults()
		return 1
	}

	if err := run(flag.Arg(0)); err != nil {
		log.Printf("bfc: %v", err)
		return 1
	}
	return 0
}

func run(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &ir.IOError{Path: path, Err: err}
	}
	defer f.Close()

	prog, err := parser.Parse(f)
	if err != nil {
		return err
	}

	driver := optimize.NewDriver()
	driver.DisableSimple = *noSimple
	driver.DisableScan = *noScan
	driver.DisableLinear = *noLinearize
	if err := driver.Run(prog); err != nil {
		return err
	}

	if *outPath != "" {
		if err := llvmgen.Emit(prog, *outPath); err != nil {
			return err
		}
	}

	if *profile {
		interp := vm.New(os.Stdin, os.Stdout, os.Stderr)
		counts, err := interp.Run(prog.Code)
		if err != nil {
			return err
		}
		printProfile(os.Stdout, prog, counts)
		return nil
	}

	if *outPath == "" {
		interp := vm.New(os.Stdin, os.Stdout, os.Stderr)
		if _, err := interp.Run(prog.Code); err != nil {
			return err
		}
	}
	return nil
}

// loopReport is one bucketed row of the "-p" classification table: a
// loop's source span and whether the optimizer could reduce it to a
// simple counted accumulation or not (spec's supplemented profiling
// feature, SPEC_FULL.md §4, modeled on interpreter.cpp's printProfileInfo).
type loopReport struct {
	start, end int
	execCount  int
	simple     bool
}

// printProfile reproduces interpreter.cpp's printProfileInfo: a
// per-instruction execution count table, then every loop remaining in the
// IR (nested loops included, which always count as not simple) bucketed
// as "Simple Loops" or "Not Simple Loops" and sorted by
// descending execution count. Highlighting of the header lines uses ANSI
// codes only when w is a terminal.
func printProfile(w *os.File, prog *ir.Program, counts []int) {
	highlight := isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd())

	header := func(s string) {
		if highlight {
			fmt.Fprintf(w, "\033[1m%s\033[0m\n", s)
		} else {
			fmt.Fprintln(w, s)
		}
	}

	header("Instruction counts:")
	for i, inst := range prog.Code {
		if counts[i] == 0 {
			continue
		}
		fmt.Fprintf(w, "  [%5d] %-12s %s\n", i, inst.Kind, humanize.Comma(int64(counts[i])))
	}

	var reports []loopReport
	var stack []int
	for i, inst := range prog.Code {
		switch inst.Kind {
		case ir.JumpC:
			stack = append(stack, i)
		case ir.JumpO:
			if len(stack) == 0 {
				continue
			}
			o := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			body := prog.Code[o+1 : i]
			info := loopinfo.Analyze(body)
			reports = append(reports, loopReport{
				start:     o,
				end:       i,
				execCount: counts[o],
				simple:    loopinfo.IsInnermost(info) && loopinfo.IsSimple(info),
			})
		}
	}
	sort.Slice(reports, func(a, b int) bool { return reports[a].execCount > reports[b].execCount })

	header("\nSimple Loops:")
	for _, r := range reports {
		if r.simple {
			fmt.Fprintf(w, "  [%d..%d] executed %s times\n", r.start, r.end, humanize.Comma(int64(r.execCount)))
		}
	}
	header("\nNot Simple Loops:")
	for _, r := range reports {
		if !r.simple {
			fmt.Fprintf(w, "  [%d..%d] executed %s times\n", r.start, r.end, humanize.Comma(int64(r.execCount)))
		}
	}
}
