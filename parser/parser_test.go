package parser_test

import (
	"strings"
	"testing"

	"github.com/Urethramancer/bfcc/ir"
	"github.com/Urethramancer/bfcc/parser"
)

func mustParse(t *testing.T, src string) *ir.Program {
	t.Helper()
	p, err := parser.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return p
}

func TestFusionCollapsesRuns(t *testing.T) {
	p := mustParse(t, "+++---")
	// +++ --- fuses to a single INCR of value 0, then HALT.
	if len(p.Code) != 2 {
		t.Fatalf("expected 2 instructions (INCR, HALT), got %d: %+v", len(p.Code), p.Code)
	}
	if p.Code[0].Kind != ir.Incr || p.Code[0].Value != 0 {
		t.Errorf("expected INCR(0), got %+v", p.Code[0])
	}
	if p.Code[1].Kind != ir.Halt {
		t.Errorf("expected HALT, got %+v", p.Code[1])
	}
}

func TestFusionStopsAtBracket(t *testing.T) {
	p := mustParse(t, "+[+]+")
	// +  [  +  ]  +  HALT : fusion must not merge the +'s across the loop.
	var kinds []ir.Kind
	for _, i := range p.Code {
		kinds = append(kinds, i.Kind)
	}
	want := []ir.Kind{ir.Incr, ir.JumpC, ir.Incr, ir.JumpO, ir.Incr, ir.Halt}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("got %v, want %v", kinds, want)
		}
	}
}

func TestBracketPairingDeltasSumToZero(t *testing.T) {
	p := mustParse(t, "[[-]+[-]]")
	for i, inst := range p.Code {
		if inst.Kind != ir.JumpC {
			continue
		}
		j := i + int(inst.Value)
		if p.Code[j].Kind != ir.JumpO {
			t.Fatalf("JUMP_C at %d does not pair with a JUMP_O", i)
		}
		if inst.Value+p.Code[j].Value != 0 {
			t.Errorf("deltas at %d/%d do not sum to zero: %d + %d", i, j, inst.Value, p.Code[j].Value)
		}
	}
}

func TestMismatchedOpener(t *testing.T) {
	_, err := parser.Parse(strings.NewReader("[[-]"))
	if err == nil {
		t.Fatal("expected a ParseError")
	}
	var pe *ir.ParseError
	if !isParseError(err, &pe) {
		t.Fatalf("expected *ir.ParseError, got %T: %v", err, err)
	}
	if !pe.Opener {
		t.Errorf("expected an unmatched opener, got closer")
	}
}

func TestMismatchedCloser(t *testing.T) {
	_, err := parser.Parse(strings.NewReader("[-]]"))
	if err == nil {
		t.Fatal("expected a ParseError")
	}
	var pe *ir.ParseError
	if !isParseError(err, &pe) {
		t.Fatalf("expected *ir.ParseError, got %T: %v", err, err)
	}
	if pe.Opener {
		t.Errorf("expected an unmatched closer, got opener")
	}
	if pe.Offset != 3 {
		t.Errorf("expected offset 3, got %d", pe.Offset)
	}
}

func isParseError(err error, out **ir.ParseError) bool {
	pe, ok := err.(*ir.ParseError)
	if ok {
		*out = pe
	}
	return ok
}

func TestCommentBytesAreIgnored(t *testing.T) {
	a := mustParse(t, "+-")
	b := mustParse(t, "hello + world - done")
	if len(a.Code) != len(b.Code) {
		t.Fatalf("comment bytes changed instruction count: %d vs %d", len(a.Code), len(b.Code))
	}
}

func TestEveryProgramEndsInHalt(t *testing.T) {
	p := mustParse(t, "")
	if len(p.Code) != 1 || p.Code[0].Kind != ir.Halt {
		t.Fatalf("empty program should be a single HALT, got %+v", p.Code)
	}
}
