package store

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"codeberg.org/mutker/plasmactl/internal/diag"
	"codeberg.org/mutker/plasmactl/internal/errors"
	"codeberg.org/mutker/plasmactl/internal/logger"
	"codeberg.org/mutker/plasmactl/internal/sweep"
)

// csvHeader is the column order of the measurement log. The DateTime column
// carries the first sample timestamp of the sweep.
var csvHeader = []string{
	"DateTime", "Density", "Temperature", "Temperature ev", "Mean Free Path",
	"Debye Length", "Larmor Radius", "Plasma Potential", "Floating Potential",
}

type csvLog struct {
	file        *os.File
	writer      *csv.Writer
	mu          sync.Mutex
	needsHeader bool
}

// NewCSVLog opens the columnar measurement log in append mode. The header
// row is written before the first record only when the file is empty.
func NewCSVLog(path string) (Sink, error) {
	errFactory := errors.New()

	if path == "" {
		return nil, errFactory.New(ErrInvalidCSVPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	logger.Debug().Msgf("Appending measurement log at: %s", path)

	return &csvLog{
		file:        file,
		writer:      csv.NewWriter(file),
		needsHeader: info.Size() == 0,
	}, nil
}

func (l *csvLog) Save(_ context.Context, res diag.Result) error {
	errFactory := errors.New()

	if res.Sensor != sweep.SensorSLP {
		return errFactory.WithData(ErrUnsupportedSensor, res.Sensor)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.needsHeader {
		if err := l.writer.Write(csvHeader); err != nil {
			return errFactory.Wrap(ErrStorageAccess, err)
		}
		l.needsHeader = false
	}

	record := []string{
		res.StartedAt.Format(sweep.TimeLayout),
		formatQuantity(res.Density),
		formatQuantity(res.Temperature),
		formatQuantity(res.TemperatureEV),
		formatQuantity(res.MeanFreePath),
		formatQuantity(res.DebyeLength),
		formatQuantity(res.LarmorRadius),
		formatQuantity(res.PlasmaPotential),
		formatQuantity(res.FloatingPotential),
	}
	if err := l.writer.Write(record); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (l *csvLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		l.file.Close()
		return errors.New().Wrap(ErrStorageClose, err)
	}

	if err := l.file.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	return nil
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
