package store

import (
	"database/sql"

	"codeberg.org/mutker/plasmactl/internal/errors"
)

// initSchema creates the summary and detail tables. The detail table holds
// one row per supported sensor kind; only the Single Langmuir Probe has one
// today.
func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS measurements (
            id TEXT PRIMARY KEY,
            measurement_time TEXT NOT NULL,
            sensor_used TEXT NOT NULL,
            magnetic_field_used TEXT NOT NULL,
            gas_used TEXT NOT NULL
        );

        CREATE TABLE IF NOT EXISTS slp_measurements (
            id TEXT PRIMARY KEY REFERENCES measurements(id),
            floating_potential REAL,
            plasma_potential REAL,
            temperature REAL,
            temperature_ev REAL,
            density REAL,
            mean_free_path REAL,
            debye_length REAL,
            larmor_radius REAL
        );

        CREATE INDEX IF NOT EXISTS idx_measurement_time
            ON measurements (measurement_time)
    `)
	if err != nil {
		return errors.New().Wrap(ErrSchemaInit, err)
	}

	return nil
}
