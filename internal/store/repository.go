package store

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/plasmactl/internal/diag"
	"codeberg.org/mutker/plasmactl/internal/errors"
	"codeberg.org/mutker/plasmactl/internal/logger"
	"codeberg.org/mutker/plasmactl/internal/sweep"
	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3"
)

// idTimeLayout is the timestamp granularity the measurement id is derived
// from. Two sweeps finishing within the same second collide on purpose:
// the second write fails instead of duplicating the measurement.
const idTimeLayout = "2006-01-02 15:04:05"

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	logger.Debug().Msgf("Initializing measurement repository at: %s", cfg.DBPath)

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	return &sqliteRepository{db: db}, nil
}

// MeasurementID derives the deterministic id of a measurement from its
// final sample timestamp.
func MeasurementID(measuredAt time.Time) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(measuredAt.Format(idTimeLayout))).String()
}

func (r *sqliteRepository) Save(ctx context.Context, res diag.Result) error {
	errFactory := errors.New()

	switch res.Sensor {
	case sweep.SensorSLP:
		return r.saveSLP(ctx, res)
	case sweep.SensorDLP, sweep.SensorHEA:
		return errFactory.WithData(ErrUnsupportedSensor, res.Sensor)
	default:
		return errFactory.WithData(errors.ErrInvalidSensorKind, res.Sensor)
	}
}

// saveSLP writes the summary row and the SLP detail row in one transaction.
func (r *sqliteRepository) saveSLP(ctx context.Context, res diag.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	errFactory := errors.New()

	id := MeasurementID(res.MeasuredAt)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO measurements (
            id, measurement_time, sensor_used, magnetic_field_used, gas_used
        ) VALUES (?, ?, ?, ?, ?)
    `,
		id,
		res.MeasuredAt.Format(idTimeLayout),
		res.Sensor.String(),
		res.MagneticField,
		res.Gas,
	); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO slp_measurements (
            id, floating_potential, plasma_potential,
            temperature, temperature_ev, density,
            mean_free_path, debye_length, larmor_radius
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		id,
		res.FloatingPotential,
		res.PlasmaPotential,
		res.Temperature,
		res.TemperatureEV,
		res.Density,
		res.MeanFreePath,
		res.DebyeLength,
		res.LarmorRadius,
	); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) MeasurementByTime(ctx context.Context, t time.Time) (*SLPMeasurement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	errFactory := errors.New()

	row := r.db.QueryRowContext(ctx, `
        SELECT m.id, m.measurement_time, m.sensor_used, m.magnetic_field_used,
               m.gas_used, slp.floating_potential, slp.plasma_potential,
               slp.temperature, slp.temperature_ev, slp.density,
               slp.mean_free_path, slp.debye_length, slp.larmor_radius
        FROM measurements AS m
        INNER JOIN slp_measurements AS slp ON m.id = slp.id
        WHERE m.measurement_time = ?
    `, t.Format(idTimeLayout))

	var (
		out        SLPMeasurement
		measuredAt string
		quantities [8]sql.NullFloat64
	)
	err := row.Scan(
		&out.ID, &measuredAt, &out.Sensor, &out.MagneticField, &out.Gas,
		&quantities[0], &quantities[1], &quantities[2], &quantities[3],
		&quantities[4], &quantities[5], &quantities[6], &quantities[7],
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errFactory.WithData(ErrNotFound, t.Format(idTimeLayout))
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	out.MeasuredAt, err = time.Parse(idTimeLayout, measuredAt)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	// Non-finite quantities come back NULL from the driver.
	out.FloatingPotential = nullToNaN(quantities[0])
	out.PlasmaPotential = nullToNaN(quantities[1])
	out.Temperature = nullToNaN(quantities[2])
	out.TemperatureEV = nullToNaN(quantities[3])
	out.Density = nullToNaN(quantities[4])
	out.MeanFreePath = nullToNaN(quantities[5])
	out.DebyeLength = nullToNaN(quantities[6])
	out.LarmorRadius = nullToNaN(quantities[7])

	return &out, nil
}

func (r *sqliteRepository) Measurements(ctx context.Context, page int) ([]Measurement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, measurement_time, sensor_used, magnetic_field_used, gas_used
        FROM measurements
        ORDER BY measurement_time DESC
        LIMIT ? OFFSET ?
    `, measurementsPerPage, page*measurementsPerPage)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var out []Measurement
	for rows.Next() {
		var (
			m          Measurement
			measuredAt string
		)
		if err := rows.Scan(&m.ID, &measuredAt, &m.Sensor, &m.MagneticField, &m.Gas); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}

		m.MeasuredAt, err = time.Parse(idTimeLayout, measuredAt)
		if err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}

		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return out, nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	if err := r.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	return nil
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}

	return v.Float64
}
