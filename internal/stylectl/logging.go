package stylectl

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/stylist/pkg/logger"
)

// SetupLogging initialises the global logger on stderr, teeing to logFile when set.
// The returned func closes the file.
func SetupLogging(verbose bool, logFile string) (func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closeFn = func() { _ = f.Close() }
	}
	if err := logger.Init(logger.WithWriter(w), logger.WithoutSource()); err != nil {
		closeFn()
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	_ = logger.SetLevelString(level)
	return closeFn, nil
}
