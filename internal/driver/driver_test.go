package driver_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/plasmactl/internal/board"
	"codeberg.org/mutker/plasmactl/internal/driver"
	"codeberg.org/mutker/plasmactl/internal/sweep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() driver.Config {
	cfg := driver.DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.Linger = 500 * time.Millisecond
	return cfg
}

func submit(t *testing.T, b board.Board, req sweep.Request) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, b.WriteString(ctx, board.FieldVoltageRamp, sweep.EncodeFloats(req.Ramp)))
	require.NoError(t, b.WriteFloat(ctx, board.FieldSweepTime, req.SweepTime))
	require.NoError(t, b.WriteString(ctx, board.FieldSensor, req.Sensor.String()))
	require.NoError(t, b.WriteString(ctx, board.FieldCurrentFilter, req.Filter.String()))
	require.NoError(t, b.WriteBool(ctx, board.FieldClientDataReady, true))
}

func waitBool(t *testing.T, b board.Board, f board.Field, want bool) {
	t.Helper()
	ctx := context.Background()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		v, err := b.ReadBool(ctx, f)
		require.NoError(t, err)
		if v == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("field %s never became %v", f, want)
}

func decodeLists(t *testing.T, b board.Board) ([]float64, []time.Time) {
	t.Helper()
	ctx := context.Background()

	currentsStr, err := b.ReadString(ctx, board.FieldCurrents)
	require.NoError(t, err)
	timesStr, err := b.ReadString(ctx, board.FieldTimes)
	require.NoError(t, err)

	currents, err := sweep.DecodeFloats(currentsStr)
	require.NoError(t, err)
	times, err := sweep.DecodeTimes(timesStr)
	require.NoError(t, err)

	return currents, times
}

func TestSweepPublishesOrderedSamples(t *testing.T) {
	b := board.NewMemory()
	d, err := driver.New(b, testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Serve(ctx)

	ramp := []float64{-10, -5, 0, 5, 10}
	submit(t, b, sweep.Request{
		Ramp:      ramp,
		SweepTime: 0.05,
		Sensor:    sweep.SensorSLP,
		Filter:    sweep.FilterNone,
	})

	waitBool(t, b, board.FieldFinished, true)

	currents, times := decodeLists(t, b)
	require.Len(t, currents, len(ramp))
	require.Len(t, times, len(currents), "current and time lists must stay equal length")

	for k, v := range ramp {
		assert.InDelta(t, (v*-2.0)/driver.DefaultShuntResistor, currents[k], 1e-12,
			"sample %d must correspond to ramp entry %d", k, k)
	}
	for k := 1; k < len(times); k++ {
		assert.False(t, times[k].Before(times[k-1]), "timestamps must be monotone")
	}
}

func TestZeroLengthRampFinishesEmpty(t *testing.T) {
	b := board.NewMemory()
	d, err := driver.New(b, testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Serve(ctx)

	submit(t, b, sweep.Request{
		Ramp:      nil,
		SweepTime: 0.05,
		Sensor:    sweep.SensorSLP,
		Filter:    sweep.FilterNone,
	})

	waitBool(t, b, board.FieldFinished, true)

	currents, times := decodeLists(t, b)
	assert.Empty(t, currents)
	assert.Empty(t, times)
}

func TestAbortTruncatesSweep(t *testing.T) {
	b := board.NewMemory()
	d, err := driver.New(b, testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Serve(ctx)

	ramp := make([]float64, 50)
	for i := range ramp {
		ramp[i] = float64(i)
	}
	submit(t, b, sweep.Request{
		Ramp:      ramp,
		SweepTime: 1.0, // 20ms per step
		Sensor:    sweep.SensorSLP,
		Filter:    sweep.FilterNone,
	})

	waitBool(t, b, board.FieldRunning, true)
	require.NoError(t, b.WriteBool(context.Background(), board.FieldAbort, true))

	waitBool(t, b, board.FieldFinished, true)

	currents, times := decodeLists(t, b)
	assert.Less(t, len(currents), len(ramp), "abort must truncate the sweep")
	assert.Len(t, times, len(currents))
}

func TestUnknownSensorStillTerminatesProtocol(t *testing.T) {
	b := board.NewMemory()
	d, err := driver.New(b, testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Serve(ctx)

	submitCtx := context.Background()
	require.NoError(t, b.WriteString(submitCtx, board.FieldVoltageRamp, "1,2,3"))
	require.NoError(t, b.WriteFloat(submitCtx, board.FieldSweepTime, 0.1))
	require.NoError(t, b.WriteString(submitCtx, board.FieldSensor, "XLP"))
	require.NoError(t, b.WriteBool(submitCtx, board.FieldClientDataReady, true))

	waitBool(t, b, board.FieldFinished, true)

	currents, times := decodeLists(t, b)
	assert.Empty(t, currents)
	assert.Empty(t, times)
}

func TestFlushAfterLinger(t *testing.T) {
	b := board.NewMemory()
	cfg := testConfig()
	cfg.Linger = 10 * time.Millisecond
	d, err := driver.New(b, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Serve(ctx)

	submit(t, b, sweep.Request{
		Ramp:      []float64{1, 2},
		SweepTime: 0.02,
		Sensor:    sweep.SensorSLP,
		Filter:    sweep.FilterNone,
	})

	waitBool(t, b, board.FieldFinished, true)
	waitBool(t, b, board.FieldFinished, false) // flushed

	readCtx := context.Background()
	ready, err := b.ReadBool(readCtx, board.FieldClientDataReady)
	require.NoError(t, err)
	assert.False(t, ready, "flush must clear the submitted request")

	ramp, err := b.ReadString(readCtx, board.FieldVoltageRamp)
	require.NoError(t, err)
	assert.Empty(t, ramp)
}

func TestSOSFilterSmoothsSamples(t *testing.T) {
	f := driver.NewSOSFilter()

	// A constant input settles to the same constant (unity DC gain).
	var out float64
	for i := 0; i < 200; i++ {
		out = f.Apply(1.0)
	}
	assert.InDelta(t, 1.0, out, 1e-9)

	f.Reset()
	first := f.Apply(1.0)
	assert.Less(t, first, 1.0, "filter must attenuate a step before settling")
}

func TestRunningHeldUntilFlush(t *testing.T) {
	b := board.NewMemory()
	cfg := testConfig()
	cfg.Linger = 300 * time.Millisecond
	d, err := driver.New(b, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Serve(ctx)

	submit(t, b, sweep.Request{
		Ramp:      []float64{1, 2},
		SweepTime: 0.02,
		Sensor:    sweep.SensorSLP,
		Filter:    sweep.FilterNone,
	})

	waitBool(t, b, board.FieldFinished, true)

	running, err := b.ReadBool(context.Background(), board.FieldRunning)
	require.NoError(t, err)
	assert.True(t, running, "the board must not read idle while completion is still published")

	waitBool(t, b, board.FieldRunning, false)

	finished, err := b.ReadBool(context.Background(), board.FieldFinished)
	require.NoError(t, err)
	assert.False(t, finished, "completion must be cleared before the board reads idle")
}
