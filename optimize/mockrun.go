package optimize

import (
	"errors"
	"math/big"

	"github.com/Urethramancer/bfcc/ir"
)

// errUnsupportedBody is returned by the mock runner when it meets an
// instruction R3's term extraction should already have rejected; it
// exists as a defensive backstop, not an expected code path.
var errUnsupportedBody = errors.New("optimize: mock runner met an unsupported instruction")

// errTooManyIterations is returned when a sampled loop does not reach a
// zero counter cell within maxMockIterations, e.g. because the sampled
// initial value turned out not to be a genuine loop counter under this
// body. The caller treats it the same as any other failed sample: widen
// the sample count and try again.
var errTooManyIterations = errors.New("optimize: loop did not terminate within the iteration cap")

// maxMockIterations bounds how many times the mock oracle will unroll a
// sampled loop while searching for a closed-form fit (spec §4.5 step 5).
const maxMockIterations = 512

// mockState holds arbitrary-precision cell values during symbolic
// execution, keyed by offset relative to the loop's entry pointer. Unlike
// the real vm.Tape, values are never reduced mod 256: the whole point of
// the oracle is to observe the body's exact integer arithmetic so a
// polynomial can be fitted to it.
type mockState map[int32]*big.Int

func (s mockState) get(off int32) *big.Int {
	if v, ok := s[off]; ok {
		return v
	}
	return big.NewInt(0)
}

func (s mockState) clone() mockState {
	c := make(mockState, len(s))
	for k, v := range s {
		c[k] = new(big.Int).Set(v)
	}
	return c
}

// runBodyOnce executes body (a straight-line, bracket-free instruction
// sequence) once against a copy of sample, starting the virtual pointer
// at 0, and returns the resulting state. It fails on any instruction
// besides TAPE_M, INCR and SET_C.
func runBodyOnce(body []ir.Instruction, sample mockState) (mockState, error) {
	state := sample.clone()
	var ptr int32
	for _, inst := range body {
		switch inst.Kind {
		case ir.TapeM:
			ptr += inst.Value
		case ir.Incr:
			val := big.NewInt(int64(inst.Value))
			for _, r := range inst.RRef {
				val = new(big.Int).Mul(val, state.get(ptr+r))
			}
			target := ptr + inst.LRef
			state[target] = new(big.Int).Add(state.get(target), val)
		case ir.SetC:
			state[ptr+inst.LRef] = big.NewInt(int64(inst.Value))
		default:
			return nil, errUnsupportedBody
		}
	}
	return state, nil
}

// runLoopBounded repeatedly applies body while cell 0 is nonzero, capped
// at maxMockIterations total applications.
func runLoopBounded(body []ir.Instruction, sample mockState) (mockState, error) {
	state := sample
	for i := 0; ; i++ {
		if state.get(0).Sign() == 0 {
			return state, nil
		}
		if i >= maxMockIterations {
			return nil, errTooManyIterations
		}
		next, err := runBodyOnce(body, state)
		if err != nil {
			return nil, err
		}
		state = next
	}
}
