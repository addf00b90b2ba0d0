package optimize_test

import (
	"testing"

	"github.com/Urethramancer/bfcc/ir"
	"github.com/Urethramancer/bfcc/optimize"
)

func TestScanRewriteProducesScanInstruction(t *testing.T) {
	prog := mustParse(t, "+++[>>>]")
	if err := optimize.Scan(prog); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, inst := range prog.Code {
		if inst.Kind == ir.Scan {
			found = true
			if inst.Value != 3 {
				t.Fatalf("expected stride 3, got %d", inst.Value)
			}
		}
	}
	if !found {
		t.Fatalf("no SCAN instruction in %v", prog.Code)
	}
}

func TestScanRewriteNegativeStride(t *testing.T) {
	prog := mustParse(t, ">>>>>[<<]")
	if err := optimize.Scan(prog); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, inst := range prog.Code {
		if inst.Kind == ir.Scan {
			found = true
			if inst.Value != -2 {
				t.Fatalf("expected stride -2, got %d", inst.Value)
			}
		}
	}
	if !found {
		t.Fatalf("no SCAN instruction in %v", prog.Code)
	}
}

func TestScanRewriteSkipsNonScanLoop(t *testing.T) {
	prog := mustParse(t, "+++[->+<]")
	before := prog.Len()
	if err := optimize.Scan(prog); err != nil {
		t.Fatal(err)
	}
	if prog.Len() != before {
		t.Fatalf("scan pass should not touch a simple loop")
	}
}

func TestScanRewritePreservesSemantics(t *testing.T) {
	// Marks cells 0 through 3 nonzero, leaves cell 6 zero, then scans forward
	// by stride 3 from cell 0: two iterations, landing on cell 6.
	const src = "+>+>+>+<<<[>>>]."
	before := mustParse(t, src)
	outBefore, _ := runAndDump(t, before.Code, "")

	after := mustParse(t, src)
	if err := optimize.Scan(after); err != nil {
		t.Fatal(err)
	}
	outAfter, _ := runAndDump(t, after.Code, "")

	if outBefore != outAfter {
		t.Fatalf("optimized output %q != reference output %q", outAfter, outBefore)
	}
}
