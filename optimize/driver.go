package optimize

import (
	"math/rand"

	"github.com/Urethramancer/bfcc/ir"
)

// Driver runs the three loop-pattern rewriters in the fixed order spec
// §4.5 assumes: R1 (simple loops) first, so R2 and R3 never have to
// reason about a shape R1 already collapsed; then R2 (scan loops); then
// R3 (linear loops), which is the only pass allowed to leave behind a
// loop of its own (the un-elided WRITE_LOCK/WRITE_UNLOCK block).
type Driver struct {
	// DisableSimple, DisableScan and DisableLinear correspond to the
	// --no-simple-loop-optimize, --no-scan-optimize and
	// --no-linearize-loop-optimize CLI flags (SPEC_FULL.md §2.3).
	DisableSimple bool
	DisableScan   bool
	DisableLinear bool

	// Rand drives R3's sampling. Defaults to a fixed seed if nil, so a
	// Driver built with the zero value still gives reproducible output.
	Rand *rand.Rand
}

// NewDriver returns a Driver with every pass enabled and a deterministically
// seeded random source.
func NewDriver() *Driver {
	return &Driver{Rand: rand.New(rand.NewSource(1))}
}

// Run applies the enabled passes to prog in place.
func (d *Driver) Run(prog *ir.Program) error {
	if !d.DisableSimple {
		if err := Simple(prog); err != nil {
			return err
		}
	}
	if !d.DisableScan {
		if err := Scan(prog); err != nil {
			return err
		}
	}
	if !d.DisableLinear {
		rng := d.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		if err := Linear(prog, rng); err != nil {
			return err
		}
	}
	return nil
}
