package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/plasmactl/internal/acquire"
	"codeberg.org/mutker/plasmactl/internal/board"
	"codeberg.org/mutker/plasmactl/internal/config"
	"codeberg.org/mutker/plasmactl/internal/diag"
	"codeberg.org/mutker/plasmactl/internal/driver"
	"codeberg.org/mutker/plasmactl/internal/errors"
	"codeberg.org/mutker/plasmactl/internal/logger"
	"codeberg.org/mutker/plasmactl/internal/store"
	"codeberg.org/mutker/plasmactl/internal/sweep"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	var err error
	switch cfg.Mode {
	case "serve":
		err = serve(ctx)
	case "sweep":
		err = runRemoteSweep(ctx)
	case "local":
		err = runLocalSweep(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("error in main loop")
		os.Exit(1)
	}

	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

// serve drives sweeps on the probe board until terminated.
func serve(ctx context.Context) error {
	b, err := connectBoard(ctx)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	drvCfg := driver.DefaultConfig()
	drvCfg.PollInterval = cfg.PollInterval()
	drvCfg.Linger = cfg.LingerDuration()

	drv, err := driver.New(b, drvCfg)
	if err != nil {
		return err
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Int("interval", cfg.Interval).
		Msg("Sweep driver started")

	return drv.Serve(ctx)
}

// runRemoteSweep submits one sweep to a remote driver, recomputes the
// diagnostics on every poll tick, and persists the final result.
func runRemoteSweep(ctx context.Context) error {
	b, err := connectBoard(ctx)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	return runSweep(ctx, b)
}

// runLocalSweep runs the driver and the client in one process against a
// memory board. No probe hardware is involved; the default probe response
// stands in for it.
func runLocalSweep(ctx context.Context) error {
	b := board.NewMemory()

	drvCfg := driver.DefaultConfig()
	drvCfg.PollInterval = cfg.PollInterval()
	drvCfg.Linger = cfg.LingerDuration()

	drv, err := driver.New(b, drvCfg)
	if err != nil {
		return err
	}

	driverCtx, stopDriver := context.WithCancel(ctx)
	defer stopDriver()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := drv.Serve(driverCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("sweep driver stopped")
		}
	}()

	err = runSweep(ctx, b)

	stopDriver()
	<-done

	return err
}

func runSweep(ctx context.Context, b board.Board) error {
	req, err := cfg.Request()
	if err != nil {
		return err
	}

	engine, err := diag.New(req)
	if err != nil {
		return err
	}

	cliCfg := acquire.DefaultConfig()
	cliCfg.PollInterval = cfg.PollInterval()
	cliCfg.MaxPolls = cfg.MaxPolls

	cli, err := acquire.New(b, cliCfg, acquire.WithTickHandler(func(stream *sweep.Stream) {
		if err := engine.Recompute(stream); err != nil {
			logger.Debug().Err(err).Int("samples", stream.Len()).Msg("diagnostics not ready")
			return
		}
		logResult(engine.Result(), stream.Len())
	}))
	if err != nil {
		return err
	}

	logger.Info().
		Str("sensor", req.Sensor.String()).
		Int("samples", len(req.Ramp)).
		Float64("sweep_time", req.SweepTime).
		Msg("Submitting sweep")

	stream, err := cli.Run(ctx, req)
	if err != nil {
		return err
	}

	res, ready, err := finalize(engine, stream)
	if err != nil {
		return err
	}
	if !ready {
		return nil
	}
	logResult(res, stream.Len())

	return persist(ctx, res)
}

// finalize runs the last diagnostics pass over the finished stream. A sweep
// that never produced enough samples (zero-length ramp, early abort) is a
// normal termination with nothing to persist, not a failure.
func finalize(engine diag.Engine, stream *sweep.Stream) (diag.Result, bool, error) {
	if err := engine.Recompute(stream); err != nil {
		if errors.CodeOf(err) == errors.ErrPreconditionNotMet {
			logger.Warn().
				Int("samples", stream.Len()).
				Msg("Sweep finished without enough samples for diagnostics")
			return diag.Result{}, false, nil
		}
		return diag.Result{}, false, err
	}

	return engine.Result(), true, nil
}

func persist(ctx context.Context, res diag.Result) error {
	repo, err := store.NewRepository(store.Config{DBPath: cfg.Database, CSVPath: cfg.CSVLog})
	if err != nil {
		return err
	}
	csvLog, err := store.NewCSVLog(cfg.CSVLog)
	if err != nil {
		repo.Close()
		return err
	}

	sink := store.Multi(csvLog, repo)
	defer sink.Close()

	if err := sink.Save(ctx, res); err != nil {
		return err
	}

	logger.Info().
		Str("id", store.MeasurementID(res.MeasuredAt)).
		Msg("Measurement persisted")

	return nil
}

func logResult(res diag.Result, samples int) {
	logger.Info().
		Int("samples", samples).
		Float64("floating_potential", res.FloatingPotential).
		Float64("plasma_potential", res.PlasmaPotential).
		Float64("temperature", res.Temperature).
		Float64("temperature_ev", res.TemperatureEV).
		Float64("density", res.Density).
		Float64("mean_free_path", res.MeanFreePath).
		Float64("debye_length", res.DebyeLength).
		Float64("larmor_radius", res.LarmorRadius).
		Msg("Diagnostics updated")
}

func connectBoard(ctx context.Context) (*board.Remote, error) {
	remoteCfg := board.RemoteConfig{
		Endpoint:  cfg.Endpoint,
		Namespace: cfg.Namespace,
	}

	return board.Connect(ctx, remoteCfg)
}
