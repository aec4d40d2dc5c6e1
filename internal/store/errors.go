package store

import "codeberg.org/mutker/plasmactl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig  = errors.ErrorCode("store_invalid_config")
	ErrInvalidDBPath  = errors.ErrorCode("store_invalid_db_path")
	ErrInvalidCSVPath = errors.ErrorCode("store_invalid_csv_path")

	// Storage Errors
	ErrStorageInit   = errors.ErrorCode("store_storage_init_failed")
	ErrStorageAccess = errors.ErrorCode("store_storage_access_failed")
	ErrStorageClose  = errors.ErrorCode("store_storage_close_failed")
	ErrSchemaInit    = errors.ErrorCode("store_schema_init_failed")

	// Operation Errors
	ErrUnsupportedSensor = errors.ErrorCode("store_unsupported_sensor")
	ErrNotFound          = errors.ErrorCode("store_measurement_not_found")
)
