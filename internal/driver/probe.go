package driver

// DefaultShuntResistor is the current sensing resistor of the Single
// Langmuir Probe, in ohms.
const DefaultShuntResistor = 200.0

// ProbeFunc evaluates the probe current response for an applied voltage.
// The physical sensor is an external collaborator; this is its seam.
type ProbeFunc func(voltage float64) float64

// SLPProbe returns the response model of a Single Langmuir Probe behind a
// shunt resistor.
func SLPProbe(shuntResistor float64) ProbeFunc {
	return func(voltage float64) float64 {
		return (voltage * -2.0) / shuntResistor
	}
}
