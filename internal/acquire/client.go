// Package acquire implements the client side of the sweep synchronization
// protocol: it submits a sweep request, polls the board while the driver
// publishes growing sample lists, and decodes them into a sample stream.
package acquire

import (
	"context"
	"time"

	"codeberg.org/mutker/plasmactl/internal/board"
	"codeberg.org/mutker/plasmactl/internal/errors"
	"codeberg.org/mutker/plasmactl/internal/logger"
	"codeberg.org/mutker/plasmactl/internal/sweep"
)

type Config struct {
	// PollInterval is the delay between board reads.
	PollInterval time.Duration
	// MaxPolls bounds the wait for the finished flag. A disconnected
	// driver would otherwise suspend the client indefinitely.
	MaxPolls int
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 2 * time.Second,
		MaxPolls:     150,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.PollInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.PollInterval)
	}
	if c.MaxPolls <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "max poll count must be positive")
	}

	return nil
}

// TickHandler observes the partial stream after every successfully decoded
// poll tick. Incremental consumers (the diagnostics engine) hook in here.
type TickHandler func(*sweep.Stream)

type Option func(*Client)

// WithTickHandler registers a per-tick stream observer.
func WithTickHandler(h TickHandler) Option {
	return func(c *Client) {
		c.onTick = h
	}
}

type Client struct {
	board  board.Board
	cfg    Config
	onTick TickHandler
}

func New(b board.Board, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{board: b, cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Run submits the request and blocks until the sweep reports finished,
// returning the fully decoded sample stream. Completion is detected purely
// from the finished flag: aborted sweeps finish too, with partial lists.
func (c *Client) Run(ctx context.Context, req sweep.Request) (*sweep.Stream, error) {
	errFactory := errors.New()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := c.awaitIdle(ctx); err != nil {
		return nil, err
	}
	if err := c.submit(ctx, req); err != nil {
		return nil, err
	}

	logger.Info().
		Str("sensor", req.Sensor.String()).
		Int("ramp_steps", len(req.Ramp)).
		Msg("Sweep request submitted, awaiting samples")

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	var stream *sweep.Stream
	for polls := 0; polls < c.cfg.MaxPolls; polls++ {
		select {
		case <-ctx.Done():
			return nil, errFactory.Wrap(errors.ErrProtocolTimeout, ctx.Err())
		case <-ticker.C:
		}

		tick, err := c.decodeTick(ctx, req.Ramp)
		switch {
		case err == nil:
			stream = tick
			if c.onTick != nil {
				c.onTick(stream)
			}
		case errors.CodeOf(err) == errors.ErrMalformedTick:
			// Transient: the driver republishes between our two field
			// reads. Keep the previous tick and retry.
			logger.Debug().Str("error", err.Error()).Msg("Skipping malformed tick")
		default:
			return nil, err
		}

		finished, err := c.board.ReadBool(ctx, board.FieldFinished)
		if err != nil {
			return nil, err
		}
		if !finished {
			continue
		}

		// One last decode catches samples published between the last
		// tick and the finished flag.
		final, err := c.decodeTick(ctx, req.Ramp)
		if err == nil {
			stream = final
		} else if errors.CodeOf(err) != errors.ErrMalformedTick {
			return nil, err
		}
		if stream == nil {
			stream = sweep.NewStream(req.Ramp, nil, nil)
		}
		if c.onTick != nil {
			c.onTick(stream)
		}

		logger.Info().Int("samples", stream.Len()).Msg("Sweep complete, stream decoded")

		return stream, nil
	}

	return nil, errFactory.WithData(errors.ErrProtocolTimeout, c.cfg.MaxPolls)
}

// awaitIdle waits until no sweep is running before submitting; the driver
// accepts a single request owner at a time.
func (c *Client) awaitIdle(ctx context.Context) error {
	errFactory := errors.New()

	for polls := 0; polls < c.cfg.MaxPolls; polls++ {
		running, err := c.board.ReadBool(ctx, board.FieldRunning)
		if err != nil {
			return err
		}
		if !running {
			return nil
		}

		select {
		case <-ctx.Done():
			return errFactory.Wrap(errors.ErrSweepInProgress, ctx.Err())
		case <-time.After(c.cfg.PollInterval):
		}
	}

	return errFactory.New(errors.ErrSweepInProgress)
}

func (c *Client) submit(ctx context.Context, req sweep.Request) error {
	if err := c.board.WriteString(ctx, board.FieldVoltageRamp, sweep.EncodeFloats(req.Ramp)); err != nil {
		return err
	}
	if err := c.board.WriteFloat(ctx, board.FieldSweepTime, req.SweepTime); err != nil {
		return err
	}
	if err := c.board.WriteString(ctx, board.FieldCurrentFilter, req.Filter.String()); err != nil {
		return err
	}
	if err := c.board.WriteString(ctx, board.FieldSensor, req.Sensor.String()); err != nil {
		return err
	}

	// Written last: the driver may start as soon as it observes this.
	return c.board.WriteBool(ctx, board.FieldClientDataReady, true)
}

// Abort raises the cooperative abort flag. The driver checks it between
// voltage steps, so at most one further sample may still be published.
func (c *Client) Abort(ctx context.Context) error {
	return c.board.WriteBool(ctx, board.FieldAbort, true)
}

// decodeTick reads and decodes both sample lists. A length mismatch between
// the lists, or more samples than ramp entries, is a malformed tick: the
// snapshot is discarded and the next poll retries.
func (c *Client) decodeTick(ctx context.Context, ramp []float64) (*sweep.Stream, error) {
	errFactory := errors.New()

	currentsStr, err := c.board.ReadString(ctx, board.FieldCurrents)
	if err != nil {
		return nil, err
	}
	timesStr, err := c.board.ReadString(ctx, board.FieldTimes)
	if err != nil {
		return nil, err
	}

	currents, err := sweep.DecodeFloats(currentsStr)
	if err != nil {
		return nil, err
	}
	times, err := sweep.DecodeTimes(timesStr)
	if err != nil {
		return nil, err
	}

	if len(currents) != len(times) {
		return nil, errFactory.WithData(errors.ErrMalformedTick, struct {
			Currents int
			Times    int
		}{len(currents), len(times)})
	}
	if len(currents) > len(ramp) {
		return nil, errFactory.WithData(errors.ErrMalformedTick, struct {
			Samples   int
			RampSteps int
		}{len(currents), len(ramp)})
	}

	return sweep.NewStream(ramp, currents, times), nil
}
