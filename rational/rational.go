// Package rational provides the exact rational arithmetic the linear-loop
// solver needs: degeneracy detection in Gaussian elimination requires exact
// zero comparisons, which floating point cannot guarantee (spec §9).
package rational

import (
	"math"
	"math/big"
)

// New returns the exact rational p/q.
func New(p, q int64) *big.Rat { return big.NewRat(p, q) }

// FromInt returns the exact rational n/1.
func FromInt(n int64) *big.Rat { return big.NewRat(n, 1) }

// Zero reports whether r is exactly zero.
func Zero(r *big.Rat) bool { return r.Sign() == 0 }

// IsInteger reports whether r has denominator 1.
func IsInteger(r *big.Rat) bool { return r.IsInt() }

// ToInt32 converts r to an int32, failing if r is not an integer or does
// not fit in 32 bits signed (spec §4.5 step 6).
func ToInt32(r *big.Rat) (int32, bool) {
	if !r.IsInt() {
		return 0, false
	}
	num := r.Num()
	if !num.IsInt64() {
		return 0, false
	}
	v := num.Int64()
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int32(v), true
}
