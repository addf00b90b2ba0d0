package optimize

import (
	"math/big"
	"math/rand"
	"sort"

	"github.com/Urethramancer/bfcc/ir"
	"github.com/Urethramancer/bfcc/loopinfo"
	"github.com/Urethramancer/bfcc/rational"
)

// maxTerms bounds how large the term set extracted from a candidate body
// may grow before R3 gives up on it outright: beyond this the (N+1)-by-N
// sampling matrix becomes impractically large for a one-shot compile
// pass (spec §4.5 step 1's sizing note).
const maxTerms = 20

// Linear applies R3: an innermost, shift-free loop whose body performs
// only (possibly nonlinear) INCR and SET_C is replaced, if and only if a
// closed-form integer polynomial can be fitted to its effect, by a single
// unrolled application of that polynomial guarded by WRITE_LOCK/
// WRITE_UNLOCK (spec §4.5). rng drives the random sampling the fit relies
// on; callers that need reproducible codegen should pass a seeded source.
func Linear(prog *ir.Program, rng *rand.Rand) error {
	return applyToInnermostLoops(prog, func(body []ir.Instruction, info loopinfo.CodeInfo) ([]ir.Instruction, bool) {
		return linearRewrite(body, info, rng)
	})
}

func linearRewrite(body []ir.Instruction, info loopinfo.CodeInfo, rng *rand.Rand) ([]ir.Instruction, bool) {
	if !loopinfo.IsInnermost(info) || info.Complex || info.Shift != 0 || len(body) == 0 {
		return nil, false
	}

	terms, vars, ok := extractTermsAndVars(body)
	if !ok || len(terms) == 0 || len(terms) > maxTerms {
		return nil, false
	}

	// Step 2/3: fit the body's single-application effect and check the
	// counter-decrement witness (step 4) before paying for the much more
	// expensive bounded-loop fit.
	bodyFit, err := fitPolynomial(terms, vars, rng, func(s mockState) (mockState, error) {
		return runBodyOnce(body, s)
	})
	if err != nil {
		return nil, false
	}
	if !isCounterWitness(terms, vars, bodyFit) {
		return nil, false
	}

	// Step 5: fit the closed form of running the loop to termination.
	loopFit, err := fitPolynomial(terms, vars, rng, func(s mockState) (mockState, error) {
		return runLoopBounded(body, s)
	})
	if err != nil {
		return nil, false
	}

	return emitLinearized(terms, vars, loopFit)
}

// isCounterWitness checks that the fitted single-application polynomial
// for variable 0 is exactly cell[0]-1: one unit of the {0} term, minus
// one unit of the {} (constant) term, and nothing else (spec §4.5 step
// 4). Without this check R3 could "linearize" a loop whose counter isn't
// actually decrementing by one each time, which would change how many
// times the original program's body ran.
func isCounterWitness(terms []term, vars []int32, fit *rational.Matrix) bool {
	col := -1
	for j, v := range vars {
		if v == 0 {
			col = j
			break
		}
	}
	if col < 0 {
		return false
	}
	emptyIdx, hasEmpty := indexOfTerm(terms, term{})
	zeroIdx, hasZero := indexOfTerm(terms, term{0})
	if !hasEmpty || !hasZero {
		return false
	}
	for i := range terms {
		v := fit.At(i, col)
		want := big.NewRat(0, 1)
		switch i {
		case zeroIdx:
			want = big.NewRat(1, 1)
		case emptyIdx:
			want = big.NewRat(-1, 1)
		}
		if v.Cmp(want) != 0 {
			return false
		}
	}
	return true
}

func indexOfTerm(terms []term, t term) (int, bool) {
	k := t.key()
	for i, existing := range terms {
		if existing.key() == k {
			return i, true
		}
	}
	return 0, false
}

// extractTermsAndVars implements spec §4.5 step 1. It walks body once,
// tracking the virtual pointer exactly as loopinfo.Analyze does, and
// collects:
//
//   - vars: every cell offset read or written anywhere in body, plus 0
//     (the loop counter is always a variable, even if the body never
//     mentions it directly).
//   - terms: the constant term {}, the counter term {0}, every INCR's
//     reference multiset and that multiset with one extra {0} folded in,
//     every SET_C's target singleton, powers of {0} up to the highest
//     degree any INCR reference multiset reached, and every variable's
//     own singleton (so "subtract the variable's prior value" in step 7
//     always has a basis term to act on).
//
// ok is false if body contains any instruction besides TAPE_M, INCR or
// SET_C — WRITE_LOCK/WRITE_UNLOCK included, so R3 never tries to
// re-linearize its own output.
func extractTermsAndVars(body []ir.Instruction) (terms []term, vars []int32, ok bool) {
	varSet := map[int32]bool{0: true}
	set := newTermSet()
	set.add(term{})
	set.add(term{0})

	maxDegree := 1
	var cursor int32
	for _, inst := range body {
		switch inst.Kind {
		case ir.TapeM:
			cursor += inst.Value
		case ir.Incr:
			varSet[cursor+inst.LRef] = true
			refs := make([]int32, len(inst.RRef))
			for i, r := range inst.RRef {
				refs[i] = cursor + r
				varSet[refs[i]] = true
			}
			t := sortedTerm(refs...)
			set.add(t)
			withCounter := append(append(term{}, t...), 0)
			set.add(sortedTerm(withCounter...))
			if t.degree() > maxDegree {
				maxDegree = t.degree()
			}
		case ir.SetC:
			target := cursor + inst.LRef
			varSet[target] = true
			set.add(term{})
			set.add(term{0})
			set.add(term{target})
		default:
			return nil, nil, false
		}
	}
	for d := 1; d <= maxDegree; d++ {
		pow := make(term, d)
		set.add(pow)
	}
	vars = make([]int32, 0, len(varSet))
	for v := range varSet {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(a, b int) bool { return vars[a] < vars[b] })
	for _, v := range vars {
		set.add(term{v})
	}
	return set.order, vars, true
}

// termCoeff is one nonzero entry of a variable's increment polynomial:
// value times the product of the cells named in refs.
type termCoeff struct {
	refs  term
	value int32
}

// emitLinearized implements spec §4.5 steps 6-7: check every fitted
// coefficient is an in-range integer, convert each variable's "new value"
// polynomial into an increment by subtracting the variable's own prior
// value, and emit the WRITE_LOCK/INCR-or-SET_C/WRITE_UNLOCK block (eliding
// the outer JUMP_C/JUMP_O pair when it is provably safe to do so).
func emitLinearized(terms []term, vars []int32, fit *rational.Matrix) ([]ir.Instruction, bool) {
	byVar := make(map[int32][]termCoeff, len(vars))
	setToZero := make(map[int32]bool, len(vars))

	for col, v := range vars {
		coeffs := map[string]*termCoeff{}
		order := []string{}
		for row, t := range terms {
			n, exact := rational.ToInt32(fit.At(row, col))
			if !exact {
				return nil, false
			}
			if n == 0 {
				continue
			}
			k := t.key()
			coeffs[k] = &termCoeff{refs: t, value: n}
			order = append(order, k)
		}

		selfKey := term{v}.key()
		if c, ok := coeffs[selfKey]; ok {
			c.value--
			if c.value == 0 {
				delete(coeffs, selfKey)
			}
		} else {
			coeffs[selfKey] = &termCoeff{refs: term{v}, value: -1}
			order = append(order, selfKey)
		}

		if len(coeffs) == 1 && coeffs[selfKey] != nil && coeffs[selfKey].value == -1 {
			setToZero[v] = true
			continue
		}

		sort.Strings(order)
		list := make([]termCoeff, 0, len(coeffs))
		seen := map[string]bool{}
		for _, k := range order {
			if seen[k] {
				continue
			}
			seen[k] = true
			if c, ok := coeffs[k]; ok {
				list = append(list, *c)
			}
		}
		byVar[v] = list
	}

	canElide := true
	for _, v := range vars {
		if setToZero[v] && v != 0 {
			canElide = false
		}
	}
	if canElide {
		for _, v := range vars {
			for _, c := range byVar[v] {
				contains0 := false
				for _, off := range c.refs {
					if off == 0 {
						contains0 = true
						break
					}
				}
				if !contains0 {
					canElide = false
				}
			}
		}
	}

	var out []ir.Instruction
	if !canElide {
		// Placeholder JUMP_C; applyToInnermostLoops' caller recomputes
		// every jump delta right after splicing this replacement in.
		out = append(out, ir.Instruction{Kind: ir.JumpC})
	}
	for _, v := range vars {
		out = append(out, ir.Instruction{Kind: ir.WriteLock, LRef: v})
	}
	for _, v := range vars {
		if setToZero[v] {
			out = append(out, ir.Instruction{Kind: ir.SetC, LRef: v, Value: 0})
			continue
		}
		for _, c := range byVar[v] {
			refs := append([]int32{}, c.refs...)
			out = append(out, ir.Instruction{Kind: ir.Incr, LRef: v, Value: c.value, RRef: refs})
		}
	}
	for _, v := range vars {
		out = append(out, ir.Instruction{Kind: ir.WriteUnlock, LRef: v})
	}
	if !canElide {
		out = append(out, ir.Instruction{Kind: ir.JumpO})
	}
	return out, true
}
