// Package board models the shared-state synchronization channel between the
// sweep driver and the acquisition client. The board holds the ten sweep
// fields; the driver owns the signal/sample fields and the client owns the
// request fields, so no field ever has two writers. Reads are per-field and
// not transactional across fields; consumers re-validate invariants on
// every poll tick.
package board

import "context"

// Field names one shared sweep field. The names double as the node
// identifiers on an OPC-UA backed board.
type Field string

const (
	// Request fields, client-writable
	FieldVoltageRamp   Field = "voltage_ramp"
	FieldSweepTime     Field = "voltage_sweep_time"
	FieldCurrentFilter Field = "current_filter"
	FieldSensor        Field = "sensor_to_use"

	// Client signals
	FieldClientDataReady Field = "is_client_data_fully_sent"
	FieldAbort           Field = "stop_measurements"

	// Driver signals
	FieldRunning  Field = "is_measurements_running"
	FieldFinished Field = "is_measurements_finished"

	// Driver-owned growing sample lists
	FieldCurrents Field = "current_measurements"
	FieldTimes    Field = "time_measurements"
)

// Board is the synchronization channel itself. Implementations must return
// the zero value for a field that was never written.
type Board interface {
	ReadBool(ctx context.Context, f Field) (bool, error)
	WriteBool(ctx context.Context, f Field, v bool) error
	ReadString(ctx context.Context, f Field) (string, error)
	WriteString(ctx context.Context, f Field, v string) error
	ReadFloat(ctx context.Context, f Field) (float64, error)
	WriteFloat(ctx context.Context, f Field, v float64) error
}
