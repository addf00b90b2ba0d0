package optimize

import (
	"github.com/Urethramancer/bfcc/ir"
	"github.com/Urethramancer/bfcc/loopinfo"
)

// Scan applies R2: every innermost loop that does nothing but move the
// pointer by a fixed net stride (`[>]`, `[>>>]`, `[<<]`, ...) is replaced
// by a single SCAN instruction (spec §4.4).
func Scan(prog *ir.Program) error {
	return applyToInnermostLoops(prog, scanRewrite)
}

func scanRewrite(_ []ir.Instruction, info loopinfo.CodeInfo) ([]ir.Instruction, bool) {
	if !loopinfo.IsScan(info) {
		return nil, false
	}
	if info.Shift == 0 {
		// IsScan already requires Shift != 0; this guards against a
		// future change to that invariant producing a zero-stride SCAN.
		return nil, false
	}
	return []ir.Instruction{{Kind: ir.Scan, Value: int32(info.Shift)}}, true
}
