package stylectl

import "time"

// Defaults shared by the run and local commands.
const (
	DefaultBaseURL = "http://localhost:9080"
	DefaultTimeout = 30 * time.Second
	DefaultOutput  = "outfit_preview"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 64 << 10
