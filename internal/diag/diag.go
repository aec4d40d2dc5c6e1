// Package diag derives plasma physical parameters (potentials, temperature,
// density, characteristic lengths) from a sweep sample stream while the
// sweep is still in progress.
package diag

import (
	"codeberg.org/mutker/plasmactl/internal/errors"
	"codeberg.org/mutker/plasmactl/internal/sweep"
)

// Physical and probe constants.
const (
	// probeArea is the collecting area of the Single Langmuir Probe, m².
	probeArea = 30.3858e-06
	// electronMass in kg.
	electronMass = 9.1093837015e-31
	// vacuumPermittivity (ε₀) in F/m.
	vacuumPermittivity = 8.8541878128e-12
	// meanFreePathCoefficient scales T²/(Z·n) into a path length.
	meanFreePathCoefficient = 3.4e18
	// larmorCoefficient scales sqrt(T_eV)/B into a radius. Only exercised
	// with a non-zero magnetic field, which this design does not support.
	larmorCoefficient = 3.37e-4

	// Gas-dependent impedance. The "air" match is exact and case-sensitive.
	impedanceAir   = 18.0
	impedanceOther = 180.0

	// larmorSentinel marks the Larmor radius as undefined at zero field.
	larmorSentinel = -1.0

	// minSamples is the smallest stream the formulas are defined on.
	minSamples = 3
)

// New returns the diagnostics engine for the request's sensor kind.
func New(req sweep.Request) (Engine, error) {
	switch req.Sensor {
	case sweep.SensorSLP:
		return newSLPEngine(req), nil
	case sweep.SensorDLP:
		return &dlpEngine{provenance(req)}, nil
	case sweep.SensorHEA:
		return &heaEngine{provenance(req)}, nil
	default:
		return nil, errors.New().WithData(errors.ErrInvalidSensorKind, req.Sensor)
	}
}

func provenance(req sweep.Request) Result {
	return Result{
		Sensor:        req.Sensor,
		Gas:           req.Gas,
		MagneticField: req.MagneticField,
	}
}

// dlpEngine is a declared placeholder: Double Langmuir Probe formulas are
// not implemented.
type dlpEngine struct {
	res Result
}

func (e *dlpEngine) Recompute(*sweep.Stream) error {
	return errors.New().WithData(errors.ErrNotImplemented, e.res.Sensor)
}

func (e *dlpEngine) Result() Result {
	return e.res
}

// heaEngine is a declared placeholder, as above.
type heaEngine struct {
	res Result
}

func (e *heaEngine) Recompute(*sweep.Stream) error {
	return errors.New().WithData(errors.ErrNotImplemented, e.res.Sensor)
}

func (e *heaEngine) Result() Result {
	return e.res
}
