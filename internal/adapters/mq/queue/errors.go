package queue

import "errors"

// ErrFull is reported by callers when Enqueue refuses a job.
var ErrFull = errors.New("extraction queue full")
