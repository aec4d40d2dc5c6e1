package store

import "codeberg.org/mutker/plasmactl/internal/errors"

const (
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/plasmactl/measurements.db"
	defaultCSVPath = "/var/lib/plasmactl/measurements.csv"

	// measurementsPerPage is the page size of the summary listing.
	measurementsPerPage = 10
)

type Config struct {
	DBPath  string
	CSVPath string
}

func DefaultConfig() Config {
	return Config{
		DBPath:  defaultDBPath,
		CSVPath: defaultCSVPath,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.CSVPath == "" {
		return errFactory.New(ErrInvalidCSVPath)
	}
	return nil
}
