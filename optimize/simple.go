package optimize

import (
	"sort"

	"github.com/Urethramancer/bfcc/ir"
	"github.com/Urethramancer/bfcc/loopinfo"
)

// Simple applies R1: every innermost loop shaped like `[-...]` (the
// counter cell decrements by exactly 1 per iteration, every other touched
// cell accumulates a fixed per-iteration delta, spec §4.3) is replaced by
// a straight-line INCR per other cell plus a trailing SET_C(0,0).
func Simple(prog *ir.Program) error {
	return applyToInnermostLoops(prog, simpleRewrite)
}

func simpleRewrite(_ []ir.Instruction, info loopinfo.CodeInfo) ([]ir.Instruction, bool) {
	if !loopinfo.IsSimple(info) {
		return nil, false
	}

	offsets := make([]int32, 0, len(info.Delta))
	for off := range info.Delta {
		if off == 0 {
			continue
		}
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(a, b int) bool { return offsets[a] < offsets[b] })

	replacement := make([]ir.Instruction, 0, len(offsets)+1)
	for _, off := range offsets {
		value := -info.Delta[0] * info.Delta[off]
		replacement = append(replacement, ir.Instruction{
			Kind:  ir.Incr,
			LRef:  off,
			Value: value,
			RRef:  []int32{0},
		})
	}
	replacement = append(replacement, ir.Instruction{Kind: ir.SetC, LRef: 0, Value: 0})
	return replacement, true
}
