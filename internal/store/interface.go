package store

import (
	"context"
	"time"

	"codeberg.org/mutker/plasmactl/internal/diag"
	"codeberg.org/mutker/plasmactl/internal/sweep"
)

// Sink persists the result of one finished sweep.
type Sink interface {
	Save(ctx context.Context, res diag.Result) error
	Close() error
}

// Repository is a queryable sink backed by the measurement database.
type Repository interface {
	Sink

	// MeasurementByTime returns the measurement whose final sample
	// timestamp matches t, joined with its sensor detail row.
	MeasurementByTime(ctx context.Context, t time.Time) (*SLPMeasurement, error)

	// Measurements returns one page of measurement summaries, newest
	// first. Page numbering starts at zero.
	Measurements(ctx context.Context, page int) ([]Measurement, error)
}

// Measurement is the sensor-independent summary of one finished sweep.
type Measurement struct {
	ID            string
	MeasuredAt    time.Time
	Sensor        sweep.SensorKind
	MagneticField string
	Gas           string
}

// SLPMeasurement joins a summary with its Single Langmuir Probe detail.
type SLPMeasurement struct {
	Measurement

	FloatingPotential float64
	PlasmaPotential   float64
	Temperature       float64
	TemperatureEV     float64
	Density           float64
	MeanFreePath      float64
	DebyeLength       float64
	LarmorRadius      float64
}
