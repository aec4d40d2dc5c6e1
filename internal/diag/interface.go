package diag

import (
	"time"

	"codeberg.org/mutker/plasmactl/internal/sweep"
)

// Result holds the derived plasma parameters for one sweep. A zero value
// means "not yet computed"; quantities are filled in dependency order as
// the sample stream grows and are stable once set.
type Result struct {
	FloatingPotential float64
	PlasmaPotential   float64
	Temperature       float64
	TemperatureEV     float64
	Density           float64
	MeanFreePath      float64
	DebyeLength       float64
	LarmorRadius      float64

	// Provenance
	Sensor        sweep.SensorKind
	Gas           string
	MagneticField string
	StartedAt     time.Time
	MeasuredAt    time.Time
}

// Engine derives plasma parameters from a (possibly partial) sample stream.
// Recompute is idempotent and may be invoked on every poll tick.
type Engine interface {
	// Recompute updates the result from the current stream contents. With
	// fewer than three samples it reports precondition_not_met and leaves
	// the previous result unchanged; callers treat that as "not ready".
	Recompute(stream *sweep.Stream) error

	// Result returns the current result snapshot.
	Result() Result
}
