package diag_test

import (
	"math"
	"testing"
	"time"

	"codeberg.org/mutker/plasmactl/internal/diag"
	"codeberg.org/mutker/plasmactl/internal/errors"
	"codeberg.org/mutker/plasmactl/internal/sweep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slpRequest(gas string) sweep.Request {
	return sweep.Request{
		Ramp:          []float64{0, 1, 2, 3, 4},
		SweepTime:     0.5,
		Sensor:        sweep.SensorSLP,
		Gas:           gas,
		MagneticField: "Cusp",
		Filter:        sweep.FilterNone,
	}
}

func makeStream(voltages, currents []float64) *sweep.Stream {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	times := make([]time.Time, len(currents))
	for i := range times {
		times[i] = base.Add(time.Duration(i) * 100 * time.Millisecond)
	}
	return sweep.NewStream(voltages, currents, times)
}

func TestNewDispatchesOnSensorKind(t *testing.T) {
	for _, kind := range []sweep.SensorKind{sweep.SensorSLP, sweep.SensorDLP, sweep.SensorHEA} {
		req := slpRequest("air")
		req.Sensor = kind
		engine, err := diag.New(req)
		require.NoError(t, err)
		assert.Equal(t, kind, engine.Result().Sensor)
	}

	req := slpRequest("air")
	req.Sensor = "MRI"
	_, err := diag.New(req)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidSensorKind, errors.CodeOf(err))
}

func TestPlaceholderEnginesReportNotImplemented(t *testing.T) {
	req := slpRequest("air")
	req.Sensor = sweep.SensorDLP
	engine, err := diag.New(req)
	require.NoError(t, err)

	err = engine.Recompute(makeStream(req.Ramp, []float64{-1, -2, -3}))
	require.Error(t, err)
	assert.Equal(t, errors.ErrNotImplemented, errors.CodeOf(err))
}

func TestTooFewSamplesIsNotReady(t *testing.T) {
	engine, err := diag.New(slpRequest("air"))
	require.NoError(t, err)

	err = engine.Recompute(makeStream([]float64{0, 1}, []float64{-2, -1}))
	require.Error(t, err)
	assert.Equal(t, errors.ErrPreconditionNotMet, errors.CodeOf(err))
	assert.Zero(t, engine.Result().FloatingPotential, "result must stay untouched when not ready")
}

func TestFloatingPotentialLastNegativeCurrent(t *testing.T) {
	engine, err := diag.New(slpRequest("air"))
	require.NoError(t, err)

	stream := makeStream([]float64{0, 1, 2, 3, 4}, []float64{-2, -1, 0.5, 1, 3})
	require.NoError(t, engine.Recompute(stream))

	assert.Equal(t, 1.0, engine.Result().FloatingPotential,
		"floating potential is the voltage at the last negative current")
}

func TestPlasmaPotentialAtMaxDerivative(t *testing.T) {
	engine, err := diag.New(slpRequest("air"))
	require.NoError(t, err)

	// Derivatives: 1, 1.5, 0.5, 2 -> maximum at index 3, voltage 3.
	stream := makeStream([]float64{0, 1, 2, 3, 4}, []float64{-2, -1, 0.5, 1, 3})
	require.NoError(t, engine.Recompute(stream))

	assert.Equal(t, 3.0, engine.Result().PlasmaPotential)
}

func TestTemperatureSlope(t *testing.T) {
	engine, err := diag.New(slpRequest("air"))
	require.NoError(t, err)

	stream := makeStream([]float64{0, 1, 2, 3, 4}, []float64{-2, -1, 0.5, 1, 3})
	require.NoError(t, engine.Recompute(stream))

	// mid = 2: slope = (ln 3 - ln 0.5) / (3 - 2); T = -e / slope.
	slope := (math.Log(3) - math.Log(0.5)) / (3.0 - 2.0)
	assert.InDelta(t, -math.E/slope, engine.Result().Temperature, 1e-12)
	assert.Equal(t, 1.0, engine.Result().TemperatureEV, "temperature-in-eV is a fixed placeholder")
}

func TestRecomputeIsIdempotent(t *testing.T) {
	engine, err := diag.New(slpRequest("air"))
	require.NoError(t, err)

	stream := makeStream([]float64{0, 1, 2, 3, 4}, []float64{-2, -1, 0.5, 1, 3})
	require.NoError(t, engine.Recompute(stream))
	first := engine.Result()

	require.NoError(t, engine.Recompute(stream))
	assert.Equal(t, first, engine.Result())
}

func TestQuantitiesStableAsStreamGrows(t *testing.T) {
	engine, err := diag.New(slpRequest("air"))
	require.NoError(t, err)

	voltages := []float64{0, 1, 2, 3, 4}
	require.NoError(t, engine.Recompute(makeStream(voltages[:3], []float64{-2, -1, 0.5})))
	partial := engine.Result()
	require.NotZero(t, partial.PlasmaPotential)

	require.NoError(t, engine.Recompute(makeStream(voltages, []float64{-2, -1, 0.5, 1, 3})))
	grown := engine.Result()

	assert.Equal(t, partial.PlasmaPotential, grown.PlasmaPotential,
		"plasma potential must not drift as the stream grows")
	assert.Equal(t, partial.FloatingPotential, grown.FloatingPotential)
}

func TestAllNonnegativeCurrentsLeaveSentinels(t *testing.T) {
	engine, err := diag.New(slpRequest("air"))
	require.NoError(t, err)

	stream := makeStream([]float64{0, 1, 2, 3, 4}, []float64{0.1, 0.2, 0.5, 1, 3})
	require.NoError(t, engine.Recompute(stream))

	res := engine.Result()
	assert.Zero(t, res.FloatingPotential)
	assert.Zero(t, res.Temperature)
	assert.Zero(t, res.TemperatureEV)
	assert.Zero(t, res.Density)
	assert.Zero(t, res.MeanFreePath)
	assert.Zero(t, res.DebyeLength)
	assert.NotZero(t, res.PlasmaPotential, "plasma potential does not depend on a negative current")
}

func TestNonPositiveMidCurrentPropagatesNonFinite(t *testing.T) {
	engine, err := diag.New(slpRequest("air"))
	require.NoError(t, err)

	// Middle sample current is negative: ln of it is undefined.
	stream := makeStream([]float64{0, 1, 2, 3, 4}, []float64{-2, -1.5, -1, 0.5, 1})
	require.NoError(t, engine.Recompute(stream))

	res := engine.Result()
	assert.True(t, math.IsNaN(res.Temperature), "temperature must propagate the undefined log")
	assert.True(t, math.IsNaN(res.DebyeLength), "Debye length depends on the temperature")
}

func TestGasImpedanceSelection(t *testing.T) {
	voltages := []float64{0, 1, 2, 3, 4}
	currents := []float64{-2, -1, 0.5, 1, 3}

	air, err := diag.New(slpRequest("air"))
	require.NoError(t, err)
	require.NoError(t, air.Recompute(makeStream(voltages, currents)))

	argon, err := diag.New(slpRequest("argon"))
	require.NoError(t, err)
	require.NoError(t, argon.Recompute(makeStream(voltages, currents)))

	// Impedance 18 for "air", 180 otherwise: the mean free paths differ
	// by exactly a factor of ten on identical streams.
	assert.InDelta(t, 10.0, air.Result().MeanFreePath/argon.Result().MeanFreePath, 1e-9)

	upper, err := diag.New(slpRequest("Air"))
	require.NoError(t, err)
	require.NoError(t, upper.Recompute(makeStream(voltages, currents)))
	assert.Equal(t, argon.Result().MeanFreePath, upper.Result().MeanFreePath,
		"the gas match is case-sensitive")
}

func TestLarmorRadiusSentinelAtZeroField(t *testing.T) {
	engine, err := diag.New(slpRequest("air"))
	require.NoError(t, err)

	stream := makeStream([]float64{0, 1, 2, 3, 4}, []float64{-2, -1, 0.5, 1, 3})
	require.NoError(t, engine.Recompute(stream))

	assert.Equal(t, -1.0, engine.Result().LarmorRadius)
}

func TestProvenanceCarriedIntoResult(t *testing.T) {
	engine, err := diag.New(slpRequest("air"))
	require.NoError(t, err)

	stream := makeStream([]float64{0, 1, 2, 3, 4}, []float64{-2, -1, 0.5, 1, 3})
	require.NoError(t, engine.Recompute(stream))

	res := engine.Result()
	assert.Equal(t, sweep.SensorSLP, res.Sensor)
	assert.Equal(t, "air", res.Gas)
	assert.Equal(t, "Cusp", res.MagneticField)
	assert.True(t, res.StartedAt.Equal(stream.FirstTime()))
	assert.True(t, res.MeasuredAt.Equal(stream.LastTime()))
}
