// Package loopinfo summarizes a span of IR into the facts R1, R2 and R3
// need to decide whether (and how) to rewrite it.
package loopinfo

import "github.com/Urethramancer/bfcc/ir"

// CodeInfo summarizes a body span (the instructions strictly between a
// loop's opening JumpC and closing JumpO, or any other span under
// consideration).
type CodeInfo struct {
	// Shift is the net TAPE_M displacement of the cursor across the span.
	Shift int
	// Delta maps a cell offset (relative to the span's starting cursor
	// position) to its net additive change from constant INCR
	// instructions only (RRef empty).
	Delta map[int32]int32
	// Parent maps, for each cell written by a nonlinear INCR (RRef
	// non-empty) or by SET_C, the set of cells its new value depends on.
	// A SET_C entry has an empty dependency set (its value is constant)
	// but is still present, since presence alone disqualifies the simple
	// and scan shapes.
	Parent map[int32]map[int32]bool
	// Complex is true if the span contains WRITE, READ, SCAN, DEBUG or
	// HALT.
	Complex bool
	// HasJumps is true if the span contains any JUMP_C/JUMP_O (i.e. a
	// nested loop).
	HasJumps bool
}

// Analyze walks body (which must not include the loop's own bounding
// bracket pair) and produces its CodeInfo.
func Analyze(body []ir.Instruction) CodeInfo {
	info := CodeInfo{Delta: map[int32]int32{}, Parent: map[int32]map[int32]bool{}}
	var cursor int32

	for _, inst := range body {
		switch inst.Kind {
		case ir.TapeM:
			info.Shift += int(inst.Value)
			cursor += inst.Value
		case ir.Incr:
			if len(inst.RRef) == 0 {
				info.Delta[cursor+inst.LRef] += inst.Value
				continue
			}
			target := cursor + inst.LRef
			deps := info.Parent[target]
			if deps == nil {
				deps = map[int32]bool{}
			}
			for _, r := range inst.RRef {
				deps[cursor+r] = true
			}
			info.Parent[target] = deps
		case ir.SetC:
			target := cursor + inst.LRef
			if _, ok := info.Parent[target]; !ok {
				info.Parent[target] = map[int32]bool{}
			}
		case ir.Write, ir.Read, ir.Scan, ir.Debug, ir.Halt:
			info.Complex = true
		case ir.JumpC, ir.JumpO:
			info.HasJumps = true
		}
	}
	return info
}

// IsInnermost reports whether a loop whose body summary is info contains no
// nested loop.
func IsInnermost(info CodeInfo) bool { return !info.HasJumps }

// IsSimple reports whether a loop whose body summary is info decrements
// its own cell by one per iteration and otherwise only adds constants to
// other cells (spec §4.2, §4.3).
func IsSimple(info CodeInfo) bool {
	return IsInnermost(info) && !info.Complex && info.Shift == 0 &&
		len(info.Parent) == 0 && info.Delta[0] == -1
}

// IsScan reports whether a loop whose body summary is info only moves the
// cursor by a constant nonzero stride per iteration (spec §4.2, §4.4).
func IsScan(info CodeInfo) bool {
	return IsInnermost(info) && !info.Complex && info.Shift != 0 &&
		len(info.Delta) == 0 && len(info.Parent) == 0
}
