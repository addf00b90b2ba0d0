package vm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Urethramancer/bfcc/ir"
)

// Interpreter executes an ir.Program against a fresh Tape. It is the
// authoritative reference semantics: every optimization pass must produce
// IR that Interpreter agrees with on every input.
type Interpreter struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// New returns an Interpreter wired to the given streams.
func New(in io.Reader, out, errw io.Writer) *Interpreter {
	return &Interpreter{In: in, Out: out, Err: errw}
}

// Run executes code on a fresh tape and returns a per-instruction
// execution counter, for the '-p' profiling report. It stops at the first
// HALT; a program with no HALT (never produced by the parser or a
// well-behaved pass) stops after its last instruction and returns the
// counts with a nil error.
func (vmi *Interpreter) Run(code []ir.Instruction) ([]int, error) {
	tape := NewTape()
	return vmi.RunOn(tape, code)
}

// RunOn executes code against an existing Tape, so callers (notably the
// tests) can seed cells before running and inspect them after.
func (vmi *Interpreter) RunOn(tape *Tape, code []ir.Instruction) ([]int, error) {
	counts := make([]int, len(code))
	br := bufio.NewReader(vmi.In)

	i := 0
	for i < len(code) {
		inst := code[i]
		counts[i]++
		switch inst.Kind {
		case ir.NoOp:
			// never executed in well-formed IR; treated as a no-op.
		case ir.TapeM:
			tape.Move(inst.Value)
		case ir.Incr:
			val := mod256(inst.Value)
			for _, r := range inst.RRef {
				val = (val * int32(tape.Get(r))) % 256
			}
			cur := int32(tape.Current(inst.LRef))
			tape.Set(inst.LRef, byte((cur+val)%256))
		case ir.SetC:
			tape.Set(inst.LRef, byte(mod256(inst.Value)))
		case ir.Write:
			if _, err := vmi.Out.Write([]byte{tape.Get(0)}); err != nil {
				return counts, fmt.Errorf("vm: write failed: %w", err)
			}
		case ir.Read:
			b, err := br.ReadByte()
			switch {
			case err == nil:
				tape.Set(0, b)
			case err == io.EOF:
				// EOF policy (spec §6, resolved in SPEC_FULL §2.4): the
				// cell is left unchanged.
			default:
				return counts, fmt.Errorf("vm: read failed: %w", err)
			}
		case ir.JumpC:
			if tape.Get(0) == 0 {
				i += int(inst.Value)
			}
		case ir.JumpO:
			if tape.Get(0) != 0 {
				i += int(inst.Value)
			}
		case ir.Scan:
			if inst.Value == 0 {
				return counts, &ir.InternalError{Pass: "vm", Reason: "SCAN with stride 0"}
			}
			tape.Scan(inst.Value)
		case ir.WriteLock:
			if err := tape.Lock(inst.LRef); err != nil {
				return counts, err
			}
		case ir.WriteUnlock:
			if err := tape.Unlock(inst.LRef); err != nil {
				return counts, err
			}
		case ir.Debug:
			tape.Dump(vmi.Err)
		case ir.Halt:
			return counts, nil
		default:
			return counts, fmt.Errorf("vm: no handler for instruction kind %v", inst.Kind)
		}
		i++
	}
	return counts, nil
}
