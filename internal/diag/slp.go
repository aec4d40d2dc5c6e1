package diag

import (
	"math"

	"codeberg.org/mutker/plasmactl/internal/errors"
	"codeberg.org/mutker/plasmactl/internal/sweep"
)

// slpEngine derives parameters for a Single Langmuir Probe.
//
// Each quantity is computed only while its stored value is still the zero
// sentinel. This is a required caching policy, not an optimization: the
// plasma potential must stay pinned to the index it was first computed
// from, even as later samples shift the derivative normalization.
type slpEngine struct {
	res Result
}

func newSLPEngine(req sweep.Request) *slpEngine {
	return &slpEngine{res: provenance(req)}
}

func (e *slpEngine) Recompute(stream *sweep.Stream) error {
	if stream.Len() < minSamples {
		return errors.New().WithData(errors.ErrPreconditionNotMet, stream.Len())
	}

	voltage := stream.Voltage
	current := stream.Current

	e.computeFloatingPotential(voltage, current)
	e.computePlasmaPotential(voltage, current)
	e.computeTemperatures(voltage, current)
	e.computeDensity(voltage, current)
	e.computeMeanFreePath(voltage, current)
	e.computeDebyeLength(voltage, current)
	e.computeLarmorRadius()

	e.res.StartedAt = stream.FirstTime()
	e.res.MeasuredAt = stream.LastTime()

	return nil
}

func (e *slpEngine) Result() Result {
	return e.res
}

// computeFloatingPotential takes the voltage at the last sample whose
// current is negative. Without any negative current the value stays at the
// sentinel.
func (e *slpEngine) computeFloatingPotential(voltage, current []float64) {
	if e.res.FloatingPotential != 0 {
		return
	}

	idx := -1
	for i, c := range current {
		if c < 0 {
			idx = i
		}
	}
	if idx < 0 {
		return
	}

	e.res.FloatingPotential = voltage[idx]
}

// computePlasmaPotential takes the voltage at the maximum of the normalized
// current/voltage derivative.
func (e *slpEngine) computePlasmaPotential(voltage, current []float64) {
	if e.res.PlasmaPotential != 0 {
		return
	}

	d := derivative(voltage, current)
	if len(d) == 0 {
		return
	}

	e.res.PlasmaPotential = voltage[argmax(normalize(d))]
}

// computeTemperatures fits the electron retardation slope between the
// middle sample and the last sample against the plasma potential. The
// temperature-in-eV value is a fixed placeholder, not derived.
func (e *slpEngine) computeTemperatures(voltage, current []float64) {
	if e.res.Temperature != 0 {
		return
	}

	if e.res.FloatingPotential == 0 {
		e.computeFloatingPotential(voltage, current)
	}
	if e.res.PlasmaPotential == 0 {
		e.computePlasmaPotential(voltage, current)
	}
	if e.res.FloatingPotential == 0 || e.res.PlasmaPotential == 0 {
		// Both potentials are prerequisites; an all-nonnegative current
		// list has no floating potential yet, so the temperature waits.
		return
	}

	mid := (len(current) - 1) / 2
	midVoltage := voltage[mid]

	// The middle current is taken as-is: a non-positive value makes the
	// logarithm non-finite and that propagates into the temperature
	// rather than being clamped away.
	midLog := math.Log(current[mid])
	lastLog := math.Log(math.Abs(current[len(current)-1]))

	slope := (lastLog - midLog) / (e.res.PlasmaPotential - midVoltage)

	e.res.Temperature = -math.E / slope
	e.res.TemperatureEV = 1
}

// computeDensity evaluates the electron saturation density at the index of
// the maximum normalized derivative, independent of the plasma-potential
// index.
func (e *slpEngine) computeDensity(voltage, current []float64) {
	if e.res.Density != 0 {
		return
	}

	if e.res.TemperatureEV == 0 {
		e.computeTemperatures(voltage, current)
	}
	if e.res.TemperatureEV == 0 {
		return
	}

	d := derivative(voltage, current)
	if len(d) == 0 {
		return
	}
	idx := argmax(normalize(d))

	thermalSpeed := math.Sqrt(e.res.TemperatureEV * math.Abs(math.E) / (2.0 * math.Pi * electronMass))
	e.res.Density = -current[idx] / (math.E * probeArea * thermalSpeed)
}

func (e *slpEngine) computeMeanFreePath(voltage, current []float64) {
	if e.res.MeanFreePath != 0 {
		return
	}

	if e.res.TemperatureEV == 0 {
		e.computeTemperatures(voltage, current)
	}
	if e.res.Density == 0 {
		e.computeDensity(voltage, current)
	}
	if e.res.TemperatureEV == 0 || e.res.Density == 0 {
		return
	}

	impedance := impedanceOther
	if e.res.Gas == "air" {
		impedance = impedanceAir
	}

	e.res.MeanFreePath = meanFreePathCoefficient * e.res.TemperatureEV * e.res.TemperatureEV /
		(impedance * e.res.Density)
}

func (e *slpEngine) computeDebyeLength(voltage, current []float64) {
	if e.res.DebyeLength != 0 {
		return
	}

	if e.res.Density == 0 {
		e.computeDensity(voltage, current)
	}
	if e.res.Density == 0 {
		return
	}

	e.res.DebyeLength = math.Sqrt(math.Abs(
		vacuumPermittivity * e.res.Temperature / (e.res.Density * math.E * math.E)))
}

// computeLarmorRadius marks the radius undefined: zero magnetic field is
// the only supported case in this design. With a non-zero field B the
// radius would be larmorCoefficient * sqrt(T_eV) / B.
func (e *slpEngine) computeLarmorRadius() {
	if e.res.LarmorRadius != 0 {
		return
	}

	e.res.LarmorRadius = larmorSentinel
}

// derivative returns the finite-difference d(current)/d(voltage) over the
// equal-length prefix of both lists.
func derivative(voltage, current []float64) []float64 {
	n := len(current)
	if len(voltage) < n {
		n = len(voltage)
	}
	if n < 2 {
		return nil
	}

	d := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		d[i] = (current[i+1] - current[i]) / (voltage[i+1] - voltage[i])
	}

	return d
}

// normalize divides every element by the list maximum.
func normalize(values []float64) []float64 {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / max
	}

	return out
}

// argmax returns the index of the first maximum element.
func argmax(values []float64) int {
	idx := 0
	for i, v := range values {
		if v > values[idx] {
			idx = i
		}
	}

	return idx
}
