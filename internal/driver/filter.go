package driver

import "codeberg.org/mutker/plasmactl/internal/sweep"

// Filter smooths current samples streamwise. The driver applies it to each
// new sample before publication, never after.
type Filter interface {
	Apply(sample float64) float64
	Reset()
}

// Second-order Butterworth low-pass at half the Nyquist rate, expressed as
// a single second-order section in direct form II transposed.
const (
	sosB0 = 0.2928932188134524
	sosB1 = 0.5857864376269048
	sosB2 = 0.2928932188134524
	sosA1 = 0.0
	sosA2 = 0.1715728752538099
)

type sosFilter struct {
	z1, z2 float64
}

// NewSOSFilter returns a fresh second-order-section smoothing filter. State
// is per sweep; a new sweep gets a new filter.
func NewSOSFilter() Filter {
	return &sosFilter{}
}

func (f *sosFilter) Apply(sample float64) float64 {
	out := sosB0*sample + f.z1
	f.z1 = sosB1*sample - sosA1*out + f.z2
	f.z2 = sosB2*sample - sosA2*out
	return out
}

func (f *sosFilter) Reset() {
	f.z1 = 0
	f.z2 = 0
}

func newCurrentFilter(kind sweep.FilterKind) Filter {
	if kind == sweep.FilterSOS {
		return NewSOSFilter()
	}
	return nil
}
