// Package config loads the daemon configuration from flags, an optional
// TOML file, and environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/plasmactl/internal/errors"
	"codeberg.org/mutker/plasmactl/internal/sweep"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultConfigName = "plasmactl"
	defaultConfigDir  = "/etc"
	envPrefix         = "PLASMACTL"
	configEnvVar      = "PLASMACTL_CONFIG"
)

type Config struct {
	// Mode selects what the process runs: "serve" drives sweeps for
	// remote clients, "sweep" submits one sweep and persists the result,
	// "local" runs both sides in-process against a memory board.
	Mode string `mapstructure:"mode"`

	// Board connection
	Endpoint  string `mapstructure:"endpoint"`
	Namespace int    `mapstructure:"namespace"`

	// Protocol timing
	Interval int `mapstructure:"interval"`  // poll interval, seconds
	Linger   int `mapstructure:"linger"`    // driver linger before flush, seconds
	MaxPolls int `mapstructure:"max_polls"` // client polls before giving up

	// Sweep parameters
	RampStart     float64 `mapstructure:"ramp_start"`
	RampEnd       float64 `mapstructure:"ramp_end"`
	Samples       int     `mapstructure:"samples"`
	SweepTime     float64 `mapstructure:"sweep_time"` // seconds
	Sensor        string  `mapstructure:"sensor"`
	Gas           string  `mapstructure:"gas"`
	MagneticField string  `mapstructure:"magnetic_field"`
	Filter        string  `mapstructure:"filter"`

	// Persistence
	Database string `mapstructure:"database"`
	CSVLog   string `mapstructure:"csvlog"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	Debug    bool   `mapstructure:"debug"`
	Verbose  bool   `mapstructure:"verbose"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	fs := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.String("mode", "local", "Run mode (serve, sweep, local)")
	fs.String("endpoint", "opc.tcp://localhost:4840/freeopcua/server/", "OPC-UA endpoint of the sweep board")
	fs.Int("namespace", 2, "OPC-UA namespace index of the board fields")
	fs.Int("interval", 2, "Seconds between protocol polls")
	fs.Int("linger", 10, "Seconds the driver keeps results published after a sweep")
	fs.Int("max-polls", 150, "Polls before the client gives up on a sweep")
	fs.Float64("ramp-start", -300, "First voltage of the sweep ramp")
	fs.Float64("ramp-end", 300, "Last voltage of the sweep ramp")
	fs.Int("samples", 300, "Number of samples in the sweep ramp")
	fs.Float64("sweep-time", 0.5, "Total sweep duration in seconds")
	fs.String("sensor", "SLP", "Plasma sensor to drive (SLP, DLP, HEA)")
	fs.String("gas", "air", "Gas present during the measurement")
	fs.String("magnetic-field", "", "Magnetic field label for provenance")
	fs.String("filter", "None", "Current filter to apply (None, SOS)")
	fs.String("database", "/var/lib/plasmactl/measurements.db", "Path to the measurement database")
	fs.String("csvlog", "/var/lib/plasmactl/measurements.csv", "Path to the columnar measurement log")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	// Flag names use dashes, config file keys use underscores.
	for _, key := range []string{"max_polls", "ramp_start", "ramp_end", "sweep_time", "magnetic_field", "log_level"} {
		dashed := fs.Lookup(dashName(key))
		if dashed != nil {
			if err := v.BindPFlag(key, dashed); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	// Environment overrides: every key maps to PLASMACTL_<KEY> with
	// dashes folded to underscores (PLASMACTL_MAX_POLLS, PLASMACTL_GAS).
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func readConfigFile(v *viper.Viper) error {
	errFactory := errors.New()

	if path := os.Getenv(configEnvVar); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath(defaultConfigDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	switch c.Mode {
	case "serve", "sweep", "local":
	default:
		return errFactory.WithData(errors.ErrInvalidConfig, c.Mode)
	}

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.Samples < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, c.Samples)
	}

	return nil
}

// Ramp expands the configured voltage range into the evenly spaced sweep
// ramp.
func (c *Config) Ramp() []float64 {
	if c.Samples <= 0 {
		return nil
	}
	if c.Samples == 1 {
		return []float64{c.RampStart}
	}

	step := (c.RampEnd - c.RampStart) / float64(c.Samples-1)
	ramp := make([]float64, c.Samples)
	for i := range ramp {
		ramp[i] = c.RampStart + float64(i)*step
	}

	return ramp
}

// Request assembles and validates the sweep request described by the
// configuration.
func (c *Config) Request() (sweep.Request, error) {
	sensor, err := sweep.ParseSensorKind(c.Sensor)
	if err != nil {
		return sweep.Request{}, err
	}
	filter, err := sweep.ParseFilterKind(c.Filter)
	if err != nil {
		return sweep.Request{}, err
	}

	req := sweep.Request{
		Ramp:          c.Ramp(),
		SweepTime:     c.SweepTime,
		Sensor:        sensor,
		Gas:           c.Gas,
		MagneticField: c.MagneticField,
		Filter:        filter,
	}
	if err := req.Validate(); err != nil {
		return sweep.Request{}, err
	}

	return req, nil
}

// PollInterval returns the protocol poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// LingerDuration returns how long the driver keeps results published.
func (c *Config) LingerDuration() time.Duration {
	return time.Duration(c.Linger) * time.Second
}

func dashName(key string) string {
	out := []byte(key)
	for i, b := range out {
		if b == '_' {
			out[i] = '-'
		}
	}

	return string(out)
}
