// Package vm is the reference interpreter: a fixed-size tape, a pointer,
// and a dispatch loop over ir.Instruction. It is the runtime used to
// actually execute a program and the reference the tests check optimized
// IR against. R3's polynomial fit does not use it: optimize/mockrun.go
// has its own arbitrary-precision runner.
package vm

import (
	"fmt"
	"io"

	"github.com/Urethramancer/bfcc/scanvec"
)

// TapeLength is the fixed tape size (spec §3).
const TapeLength = 1_000_000

// Start is the pointer's initial index.
const Start = TapeLength / 2

// Tape is the VM's data memory: TapeLength zeroed cells, a data pointer,
// and a scratch map used by WRITE_LOCK/WRITE_UNLOCK to defer writes so a
// block of updates all observe the same pre-block snapshot (spec §4.5).
type Tape struct {
	cells  []byte
	ptr    int
	locked map[int32]byte
}

// NewTape returns a fresh, zeroed tape with the pointer at Start.
func NewTape() *Tape {
	return &Tape{cells: make([]byte, TapeLength), ptr: Start}
}

func mod256(v int32) int32 {
	m := v % 256
	if m < 0 {
		m += 256
	}
	return m
}

// Pointer returns the current absolute tape index.
func (t *Tape) Pointer() int { return t.ptr }

// Get reads cell[ptr+offset] for the purpose of referencing *another*
// cell's value. While offset is locked, writes to it are deferred into a
// scratch slot (see Set) and cells[] itself is left untouched until
// Unlock commits it — so Get never needs to consult the lock at all:
// every cross-cell read anywhere in a locked block sees the value frozen
// at Lock time, regardless of how many writes to that same offset
// already happened earlier in the block. That is the guarantee spec
// §4.5's WRITE_LOCK/WRITE_UNLOCK block depends on for INCR's rRef reads.
func (t *Tape) Get(offset int32) byte {
	return t.cells[t.ptr+int(offset)]
}

// Current reads cell[ptr+offset] for the purpose of read-modify-writing
// that same cell: if offset is locked, it returns the scratch slot
// (reflecting every earlier write to offset within this block), since
// R3 routinely emits more than one INCR against the same locked target
// (one per nonzero polynomial term, spec §4.5 step 7) and each must
// accumulate onto what the previous one already wrote, exactly as the
// original's manual::compileIncr's `add BYTE PTR dest, al` read-modifies
// the scratch in place. Unlike Get, this must never freeze at Lock time.
func (t *Tape) Current(offset int32) byte {
	if v, ok := t.locked[offset]; ok {
		return v
	}
	return t.cells[t.ptr+int(offset)]
}

// Set writes cell[ptr+offset], redirecting to the lock's scratch slot if
// offset is currently locked.
func (t *Tape) Set(offset int32, v byte) {
	if _, ok := t.locked[offset]; ok {
		t.locked[offset] = v
		return
	}
	t.cells[t.ptr+int(offset)] = v
}

// Lock begins deferring writes to offset into a scratch slot, snapshotting
// its current value.
func (t *Tape) Lock(offset int32) error {
	if t.locked == nil {
		t.locked = map[int32]byte{}
	}
	if _, ok := t.locked[offset]; ok {
		return fmt.Errorf("vm: cell %d is already locked", offset)
	}
	t.locked[offset] = t.cells[t.ptr+int(offset)]
	return nil
}

// Unlock commits offset's scratch slot back to the tape.
func (t *Tape) Unlock(offset int32) error {
	v, ok := t.locked[offset]
	if !ok {
		return fmt.Errorf("vm: cell %d is not locked", offset)
	}
	t.cells[t.ptr+int(offset)] = v
	delete(t.locked, offset)
	return nil
}

// Move shifts the pointer by delta.
func (t *Tape) Move(delta int32) { t.ptr += int(delta) }

// Scan moves the pointer by stride repeatedly until the cell it lands on
// is zero, using the vectorized zero-scan primitive.
func (t *Tape) Scan(stride int32) {
	t.ptr = scanvec.Scan(t.cells, t.ptr, int(stride))
}

// Dump writes a window of the tape around the pointer to w, for the '$'
// debug instruction. Unlike the original implementation (which prints
// every cell the tape has ever touched), this is deliberately bounded to
// keep a 10^6-cell tape dump readable; see DESIGN.md.
func (t *Tape) Dump(w io.Writer) {
	const radius = 32
	lo := t.ptr - radius
	if lo < 0 {
		lo = 0
	}
	hi := t.ptr + radius
	if hi >= len(t.cells) {
		hi = len(t.cells) - 1
	}
	fmt.Fprintf(w, "ptr=%d\n", t.ptr)
	for i := lo; i <= hi; i++ {
		fmt.Fprintf(w, "%d\t", t.cells[i])
	}
	fmt.Fprintln(w)
}
