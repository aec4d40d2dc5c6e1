// Package driver implements the sweep driver side of the synchronization
// protocol: it waits for a submitted request on the board, steps the probe
// through the voltage ramp, and republishes the growing sample lists after
// every step.
package driver

import (
	"context"
	"time"

	"codeberg.org/mutker/plasmactl/internal/board"
	"codeberg.org/mutker/plasmactl/internal/errors"
	"codeberg.org/mutker/plasmactl/internal/logger"
	"codeberg.org/mutker/plasmactl/internal/sweep"
)

type Config struct {
	// PollInterval is the delay between checks for a submitted request.
	PollInterval time.Duration
	// Linger is how long the finished state stays published before the
	// request fields are flushed for the next sweep.
	Linger time.Duration
	// Probe evaluates the probe current response for a ramp voltage.
	Probe ProbeFunc
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 2 * time.Second,
		Linger:       10 * time.Second,
		Probe:        SLPProbe(DefaultShuntResistor),
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.PollInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.PollInterval)
	}
	if c.Linger < 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Linger)
	}
	if c.Probe == nil {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "probe response function is required")
	}

	return nil
}

type Driver struct {
	board board.Board
	cfg   Config
}

func New(b board.Board, cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Driver{board: b, cfg: cfg}, nil
}

// Serve polls the board until the context is canceled. A sweep starts when
// the client has fully submitted a request and no sweep is running; the
// driver never accepts a second request while one is in progress.
func (d *Driver) Serve(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	logger.Info().Msg("Sweep driver awaiting requests")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ready, err := d.board.ReadBool(ctx, board.FieldClientDataReady)
			if err != nil {
				return errors.New().Wrap(errors.ErrMainLoop, err)
			}
			running, err := d.board.ReadBool(ctx, board.FieldRunning)
			if err != nil {
				return errors.New().Wrap(errors.ErrMainLoop, err)
			}
			if !ready || running {
				continue
			}

			if err := d.acceptRequest(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func (d *Driver) acceptRequest(ctx context.Context) error {
	req, err := d.readRequest(ctx)
	if err != nil {
		if code := errors.CodeOf(err); code == errors.ErrInvalidSensorKind ||
			code == errors.ErrInvalidFilterKind || code == errors.ErrMalformedTick {
			// Reject the request but still terminate the protocol so the
			// submitter does not poll forever.
			logger.Warn().Str("error", err.Error()).Msg("Rejecting invalid sweep request")
			if err := d.finish(ctx, nil, nil); err != nil {
				return err
			}
			d.linger(ctx)
			return d.flush(ctx)
		}
		return err
	}

	logger.Info().
		Str("sensor", req.Sensor.String()).
		Str("filter", req.Filter.String()).
		Int("ramp_steps", len(req.Ramp)).
		Float64("sweep_time", req.SweepTime).
		Msg("Sweep request accepted")

	if err := d.runSweep(ctx, req); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}

	d.linger(ctx)

	return d.flush(ctx)
}

func (d *Driver) readRequest(ctx context.Context) (sweep.Request, error) {
	var req sweep.Request

	rampStr, err := d.board.ReadString(ctx, board.FieldVoltageRamp)
	if err != nil {
		return req, err
	}
	req.Ramp, err = sweep.DecodeFloats(rampStr)
	if err != nil {
		return req, err
	}

	req.SweepTime, err = d.board.ReadFloat(ctx, board.FieldSweepTime)
	if err != nil {
		return req, err
	}

	sensorStr, err := d.board.ReadString(ctx, board.FieldSensor)
	if err != nil {
		return req, err
	}
	req.Sensor, err = sweep.ParseSensorKind(sensorStr)
	if err != nil {
		return req, err
	}

	filterStr, err := d.board.ReadString(ctx, board.FieldCurrentFilter)
	if err != nil {
		return req, err
	}
	if filterStr == "" {
		filterStr = sweep.FilterNone.String()
	}
	req.Filter, err = sweep.ParseFilterKind(filterStr)
	if err != nil {
		return req, err
	}

	return req, nil
}

func (d *Driver) runSweep(ctx context.Context, req sweep.Request) error {
	if err := d.board.WriteBool(ctx, board.FieldRunning, true); err != nil {
		return err
	}
	// Lists from a previous sweep must not leak into this one.
	if err := d.publish(ctx, nil, nil); err != nil {
		return err
	}

	var err error
	switch req.Sensor {
	case sweep.SensorSLP:
		err = d.runRamp(ctx, req)
	case sweep.SensorDLP, sweep.SensorHEA:
		logger.Warn().Str("sensor", req.Sensor.String()).Msg("Sensor sweep not implemented, finishing empty")
		err = d.finish(ctx, nil, nil)
	}

	return err
}

func (d *Driver) runRamp(ctx context.Context, req sweep.Request) error {
	if len(req.Ramp) == 0 {
		logger.Warn().Msg("Zero-length ramp, finishing with empty sample lists")
		return d.finish(ctx, nil, nil)
	}

	stepTime := time.Duration(req.SweepTime / float64(len(req.Ramp)) * float64(time.Second))
	filter := newCurrentFilter(req.Filter)

	currents := make([]float64, 0, len(req.Ramp))
	times := make([]time.Time, 0, len(req.Ramp))

	for _, voltage := range req.Ramp {
		aborted, err := d.board.ReadBool(ctx, board.FieldAbort)
		if err != nil {
			return err
		}
		if aborted {
			logger.Info().Int("samples", len(currents)).Msg("Abort observed, stopping sweep")
			break
		}

		// The voltage settles on the probe before the current is read.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(stepTime):
		}

		current := d.cfg.Probe(voltage)
		if filter != nil {
			current = filter.Apply(current)
		}

		currents = append(currents, current)
		times = append(times, time.Now())

		if err := d.publish(ctx, currents, times); err != nil {
			return err
		}

		logger.Debug().
			Float64("voltage", voltage).
			Float64("current", current).
			Int("sample", len(currents)).
			Msg("Sample published")
	}

	return d.finish(ctx, currents, times)
}

func (d *Driver) publish(ctx context.Context, currents []float64, times []time.Time) error {
	if err := d.board.WriteString(ctx, board.FieldCurrents, sweep.EncodeFloats(currents)); err != nil {
		return err
	}

	return d.board.WriteString(ctx, board.FieldTimes, sweep.EncodeTimes(times))
}

// finish republishes the final lists and marks the sweep complete. Abort
// and ramp exhaustion both end here; an aborted sweep is a normal
// termination with whatever partial lists exist. The running flag stays set
// until flush: dropping it while finished is still published would let a
// new request submit and mistake this sweep's lists for its own.
func (d *Driver) finish(ctx context.Context, currents []float64, times []time.Time) error {
	if err := d.publish(ctx, currents, times); err != nil {
		return err
	}
	if err := d.board.WriteBool(ctx, board.FieldFinished, true); err != nil {
		return err
	}

	logger.Info().Int("samples", len(currents)).Msg("Sweep finished")

	return nil
}

// linger keeps the finished state observable before flushing so a client on
// a slow poll interval can still pick up the final sample lists.
func (d *Driver) linger(ctx context.Context) {
	if d.cfg.Linger <= 0 {
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(d.cfg.Linger):
	}
}

// flush resets the request and signal fields so a new request can be
// accepted. Sample lists stay published until the next sweep clears them.
// The running flag is cleared last, after finished is down, so a waiting
// client never observes an idle board that still reports completion.
func (d *Driver) flush(ctx context.Context) error {
	if err := d.board.WriteString(ctx, board.FieldVoltageRamp, ""); err != nil {
		return err
	}
	if err := d.board.WriteFloat(ctx, board.FieldSweepTime, 0); err != nil {
		return err
	}
	if err := d.board.WriteString(ctx, board.FieldSensor, ""); err != nil {
		return err
	}
	if err := d.board.WriteBool(ctx, board.FieldClientDataReady, false); err != nil {
		return err
	}
	if err := d.board.WriteBool(ctx, board.FieldFinished, false); err != nil {
		return err
	}
	if err := d.board.WriteBool(ctx, board.FieldAbort, false); err != nil {
		return err
	}

	return d.board.WriteBool(ctx, board.FieldRunning, false)
}
