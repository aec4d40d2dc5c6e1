// Package sweep holds the domain types shared by the sweep driver and the
// acquisition client: the sweep request, the decoded sample stream, and the
// comma-joined wire encoding of the growing sample lists.
package sweep

import (
	"time"

	"codeberg.org/mutker/plasmactl/internal/errors"
)

// SensorKind identifies the plasma sensor driven by a sweep.
type SensorKind string

const (
	SensorSLP SensorKind = "SLP" // Single Langmuir Probe
	SensorDLP SensorKind = "DLP" // Double Langmuir Probe
	SensorHEA SensorKind = "HEA" // Hyperbolic Energy Analyzer
)

// ParseSensorKind validates a sensor name as received over the board.
func ParseSensorKind(s string) (SensorKind, error) {
	switch SensorKind(s) {
	case SensorSLP, SensorDLP, SensorHEA:
		return SensorKind(s), nil
	default:
		return "", errors.New().WithData(errors.ErrInvalidSensorKind, s)
	}
}

func (k SensorKind) String() string {
	return string(k)
}

// FilterKind selects the post-sample current filter.
type FilterKind string

const (
	FilterNone FilterKind = "None"
	FilterSOS  FilterKind = "SOS"
)

// ParseFilterKind validates a filter name as received over the board.
func ParseFilterKind(s string) (FilterKind, error) {
	switch FilterKind(s) {
	case FilterNone, FilterSOS:
		return FilterKind(s), nil
	default:
		return "", errors.New().WithData(errors.ErrInvalidFilterKind, s)
	}
}

func (k FilterKind) String() string {
	return string(k)
}

// Request describes one voltage sweep. It is owned by the client until
// submitted and never mutated afterwards.
type Request struct {
	Ramp          []float64
	SweepTime     float64 // total sweep duration in seconds
	Sensor        SensorKind
	Gas           string
	MagneticField string
	Filter        FilterKind
}

// Validate rejects invalid sweep parameters before a sweep starts. A
// zero-length ramp is accepted; the driver finishes such a sweep immediately
// with empty sample lists.
func (r Request) Validate() error {
	errFactory := errors.New()

	if _, err := ParseSensorKind(string(r.Sensor)); err != nil {
		return err
	}
	if _, err := ParseFilterKind(string(r.Filter)); err != nil {
		return err
	}
	if r.SweepTime <= 0 {
		return errFactory.WithData(errors.ErrInvalidSweepTime, r.SweepTime)
	}

	return nil
}

// Sample is one (voltage, current, timestamp) triple.
type Sample struct {
	Voltage float64
	Current float64
	Time    time.Time
}

// Stream is the decoded, append-only view of a sweep in progress. Voltages
// come from the request ramp by index; currents and times are decoded from
// the board. Invariant: len(Current) == len(Times) <= len(Voltage).
type Stream struct {
	Voltage []float64
	Current []float64
	Times   []time.Time
}

// NewStream builds a stream from a ramp and the decoded sample lists. The
// voltage slice is trimmed to the published sample count.
func NewStream(ramp []float64, currents []float64, times []time.Time) *Stream {
	n := len(currents)
	if n > len(ramp) {
		n = len(ramp)
	}

	return &Stream{
		Voltage: ramp[:n],
		Current: currents[:n],
		Times:   times[:n],
	}
}

// Len returns the number of complete samples in the stream.
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}

	return len(s.Current)
}

// Sample returns the i-th sample triple.
func (s *Stream) Sample(i int) Sample {
	return Sample{
		Voltage: s.Voltage[i],
		Current: s.Current[i],
		Time:    s.Times[i],
	}
}

// FirstTime returns the timestamp of the first sample, or the zero time for
// an empty stream.
func (s *Stream) FirstTime() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}

	return s.Times[0]
}

// LastTime returns the timestamp of the most recent sample, or the zero time
// for an empty stream.
func (s *Stream) LastTime() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}

	return s.Times[len(s.Times)-1]
}
