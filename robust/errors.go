package robust

import "fmt"

// ConfigError reports an invalid or inconsistent TrainParam, detected
// before any work is scheduled. It is always returned, never panicked.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("robust: invalid configuration: %s", e.Reason)
}

// DataError reports malformed input: mismatched row counts between
// columns and gradients, entry indices out of range, a gradient file of
// the wrong shape, or similar input problems discovered while building.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("robust: invalid data: %s", e.Reason)
}

// CollectiveError wraps a failure from the distributed collective (a
// worker disconnecting mid-Allreduce, a shape mismatch between workers'
// contributions). It always aborts the whole Update call.
type CollectiveError struct {
	Reason string
}

func (e *CollectiveError) Error() string {
	return fmt.Sprintf("robust: collective failed: %s", e.Reason)
}
