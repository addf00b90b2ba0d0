package optimize

import (
	"errors"
	"math/big"
	"math/rand"

	"github.com/Urethramancer/bfcc/rational"
)

// maxResampleRounds bounds how many times fitPolynomial will widen its
// sample count after an Underdetermined solve before giving up (resolves
// spec §4.5's open question on resampling policy; recorded in
// SPEC_FULL.md §2.4).
const maxResampleRounds = 6

var errCannotFit = errors.New("optimize: no polynomial fits the sampled data")

// runnerFunc executes a candidate loop body against one sample and
// returns the resulting cell state, or an error if the sample was
// unusable (e.g. the oracle's iteration cap was hit).
type runnerFunc func(sample mockState) (mockState, error)

// fitPolynomial samples the loop with increasingly many random trials
// and solves for a matrix X such that, for every sample, A·X = B, where
// A's columns are the terms evaluated at the sample's initial state and
// B's columns are the runner's output for each variable (spec §4.5 steps
// 2-3 and 5). It returns Unique's solution matrix or errCannotFit once
// maxResampleRounds is exhausted.
func fitPolynomial(terms []term, vars []int32, rng *rand.Rand, run runnerFunc) (*rational.Matrix, error) {
	n := len(terms)
	m := len(vars)
	samples := n + 1

	for round := 0; round < maxResampleRounds; round++ {
		a := rational.NewMatrix(samples, n)
		b := rational.NewMatrix(samples, m)
		ok := true

		for s := 0; s < samples; s++ {
			sample := randomSample(vars, n, rng)
			for j, t := range terms {
				a.Set(s, j, ratOf(evalTerm(t, sample)))
			}
			out, err := run(sample)
			if err != nil {
				ok = false
				break
			}
			for k, v := range vars {
				b.Set(s, k, ratOf(out.get(v)))
			}
		}

		if !ok {
			samples *= 2
			continue
		}

		result, x := rational.Solve(a, b)
		switch result {
		case rational.Unique:
			return x, nil
		case rational.Underdetermined:
			samples *= 2
			continue
		case rational.Inconsistent:
			return nil, errCannotFit
		}
	}
	return nil, errCannotFit
}

// randomSample assigns every variable a uniformly random value in
// [1, n^2], where n is the number of terms being fitted (spec §4.5 step
// 3's sampling range).
func randomSample(vars []int32, n int, rng *rand.Rand) mockState {
	bound := n * n
	if bound < 1 {
		bound = 1
	}
	s := make(mockState, len(vars))
	for _, v := range vars {
		s[v] = big.NewInt(int64(rng.Intn(bound) + 1))
	}
	return s
}

func evalTerm(t term, sample mockState) *big.Int {
	result := big.NewInt(1)
	for _, off := range t {
		result = new(big.Int).Mul(result, sample.get(off))
	}
	return result
}

func ratOf(v *big.Int) *big.Rat {
	return new(big.Rat).SetInt(v)
}
