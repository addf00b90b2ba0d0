// Package optimize holds the three loop-pattern rewriters (R1 simple-loop
// reduction, R2 scan-loop reduction, R3 linear-loop solving) and the
// driver that runs them in order.
package optimize

import (
	"github.com/Urethramancer/bfcc/ir"
	"github.com/Urethramancer/bfcc/loopinfo"
)

// rewriteFunc inspects a candidate loop's body summary and, if it applies,
// returns the instructions that should replace the whole loop (brackets
// included). ok is false if the rewrite does not apply; the loop is then
// left untouched and the caller proceeds to the next one (spec §4.5
// failure policy: a declined rewrite never corrupts the program).
type rewriteFunc func(body []ir.Instruction, info loopinfo.CodeInfo) (replacement []ir.Instruction, ok bool)

// applyToInnermostLoops repeatedly scans prog for an innermost loop that
// rw accepts, splices in the replacement, and recomputes every jump delta
// before scanning again. It stops once a full scan finds nothing left to
// rewrite. Passes are required to be idempotent on their own output, so
// this always terminates: every successful rewrite either removes a
// bracket pair or (R3's guarded WRITE_LOCK block) leaves a loop that the
// same pass then declines.
func applyToInnermostLoops(prog *ir.Program, rw rewriteFunc) error {
	for {
		changed := false
		for i := 0; i < len(prog.Code); i++ {
			inst := prog.Code[i]
			if inst.Kind != ir.JumpC {
				continue
			}
			j := prog.MatchingJump(i)
			if j <= i || j >= len(prog.Code) {
				return &ir.InternalError{Pass: "optimize", Reason: "JUMP_C does not pair with a JUMP_O"}
			}
			body := prog.Code[i+1 : j]
			info := loopinfo.Analyze(body)
			if !loopinfo.IsInnermost(info) {
				continue
			}
			replacement, ok := rw(body, info)
			if !ok {
				continue
			}

			next := make([]ir.Instruction, 0, len(prog.Code)-(j-i+1)+len(replacement))
			next = append(next, prog.Code[:i]...)
			next = append(next, replacement...)
			next = append(next, prog.Code[j+1:]...)
			prog.Code = next
			if err := prog.RecomputeJumps(); err != nil {
				return err
			}
			changed = true
			break
		}
		if !changed {
			return nil
		}
	}
}
