package ir_test

import (
	"testing"

	"github.com/Urethramancer/bfcc/ir"
)

func TestMatchingJump(t *testing.T) {
	// [ + ]  ->  JumpC at 0 pairs with JumpO at 2.
	prog := &ir.Program{Code: []ir.Instruction{
		{Kind: ir.JumpC, Value: 2},
		{Kind: ir.Incr, Value: 1},
		{Kind: ir.JumpO, Value: -2},
		{Kind: ir.Halt},
	}}
	if got := prog.MatchingJump(0); got != 2 {
		t.Errorf("MatchingJump(0) = %d, want 2", got)
	}
	if got := prog.MatchingJump(2); got != 0 {
		t.Errorf("MatchingJump(2) = %d, want 0", got)
	}
}

func TestRecomputeJumpsAfterSplice(t *testing.T) {
	prog := &ir.Program{Code: []ir.Instruction{
		{Kind: ir.JumpC},
		{Kind: ir.Incr, Value: -1},
		{Kind: ir.JumpO},
		{Kind: ir.Halt},
	}}
	if err := prog.RecomputeJumps(); err != nil {
		t.Fatal(err)
	}
	if prog.Code[0].Value != 2 || prog.Code[2].Value != -2 {
		t.Fatalf("initial recompute: got JumpC=%d JumpO=%d, want 2,-2", prog.Code[0].Value, prog.Code[2].Value)
	}

	// Splice a NO_OP in front of the loop; deltas must be recomputed from
	// scratch since they're relative indices, not pointers.
	prog.Code = append([]ir.Instruction{{Kind: ir.NoOp}}, prog.Code...)
	if err := prog.RecomputeJumps(); err != nil {
		t.Fatal(err)
	}
	if prog.Code[1].Value != 2 || prog.Code[3].Value != -2 {
		t.Fatalf("post-splice recompute: got JumpC=%d JumpO=%d, want 2,-2", prog.Code[1].Value, prog.Code[3].Value)
	}
}

func TestRecomputeJumpsRejectsUnmatched(t *testing.T) {
	prog := &ir.Program{Code: []ir.Instruction{{Kind: ir.JumpO}}}
	if err := prog.RecomputeJumps(); err == nil {
		t.Fatal("expected an error for an unmatched JUMP_O, got nil")
	}

	prog = &ir.Program{Code: []ir.Instruction{{Kind: ir.JumpC}}}
	if err := prog.RecomputeJumps(); err == nil {
		t.Fatal("expected an error for an unmatched JUMP_C, got nil")
	}
}

func TestProgramCloneIsIndependent(t *testing.T) {
	prog := &ir.Program{
		Code:      []ir.Instruction{{Kind: ir.Incr, LRef: 1, RRef: []int32{0}}},
		SourceMap: []int{0},
		Source:    []byte("+"),
	}
	clone := prog.Clone()
	clone.Code[0].RRef[0] = 7
	clone.Code[0].LRef = 99

	if prog.Code[0].RRef[0] == 7 || prog.Code[0].LRef == 99 {
		t.Fatalf("Clone shared Code with the original: original mutated to %+v", prog.Code[0])
	}
	if prog.Len() != 1 || clone.Len() != 1 {
		t.Fatalf("Len() = %d/%d, want 1/1", prog.Len(), clone.Len())
	}
}
