package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"
	ErrUnavailable     ErrorCode = "service_unavailable"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrMissingConfig   ErrorCode = "missing_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Request validation errors
	ErrInvalidSensorKind ErrorCode = "invalid_sensor_kind"
	ErrInvalidFilterKind ErrorCode = "invalid_filter_kind"
	ErrInvalidSweepTime  ErrorCode = "invalid_sweep_time"

	// Synchronization protocol errors
	ErrMalformedTick    ErrorCode = "malformed_tick"
	ErrProtocolTimeout  ErrorCode = "protocol_timeout"
	ErrBoardUnavailable ErrorCode = "board_unavailable"
	ErrSweepInProgress  ErrorCode = "sweep_in_progress"

	// Diagnostics errors
	ErrPreconditionNotMet ErrorCode = "precondition_not_met"

	// Persistence errors
	ErrPersistenceFailure ErrorCode = "persistence_failure"

	// Application errors
	ErrInitApp  ErrorCode = "init_app_failed"
	ErrMainLoop ErrorCode = "main_loop_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:           "Internal error occurred",
	ErrInvalidArgument:    "Invalid argument provided",
	ErrNotImplemented:     "Operation not implemented",
	ErrUnavailable:        "Service unavailable",
	ErrInvalidConfig:      "Invalid configuration",
	ErrMissingConfig:      "Missing configuration",
	ErrBindFlags:          "Failed to bind flags",
	ErrReadConfig:         "Failed to read configuration",
	ErrInvalidInterval:    "Invalid interval value",
	ErrInvalidLogLevel:    "Invalid log level",
	ErrInitFailed:         "Initialization failed",
	ErrShutdownFailed:     "Shutdown failed",
	ErrInvalidSensorKind:  "Unknown plasma sensor kind",
	ErrInvalidFilterKind:  "Unknown current filter kind",
	ErrInvalidSweepTime:   "Sweep time must be positive",
	ErrMalformedTick:      "Sample lists mismatched on poll tick",
	ErrProtocolTimeout:    "Sweep never reported finished",
	ErrBoardUnavailable:   "Synchronization board unreachable",
	ErrSweepInProgress:    "A sweep is already running",
	ErrPreconditionNotMet: "Not enough samples to compute diagnostics",
	ErrPersistenceFailure: "Failed to persist measurement result",
	ErrInitApp:            "Failed to initialize application",
	ErrMainLoop:           "Error in main loop",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
