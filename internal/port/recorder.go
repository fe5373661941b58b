package port

import "time"

// Recorder receives store telemetry. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveMutation(op string)
	ObserveWrite(result string, elapsed time.Duration)
	ObserveDrop()
	SetCartLines(n int)
}
