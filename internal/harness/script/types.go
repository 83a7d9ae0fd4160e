package script

import (
	"errors"
	"fmt"
	"io"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/searchpath"
)

// SourceName is the synthetic file name the script body is compiled under
const SourceName = "<harness>"

// ErrModuleNotFound is raised by require when no search path entry holds the module
var ErrModuleNotFound = errors.New("module not found")

// Config defines engine configuration
type Config struct {
	SourceName       string // Program name shown in stack traces
	MaxCallStackSize int    // 0 keeps the goja default
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		SourceName:       SourceName,
		MaxCallStackSize: 1024,
	}
}

// Env is everything one run needs
type Env struct {
	Code   string
	Stdout io.Writer
	Stderr io.Writer

	// Paths journals search path changes made by the script. Nil gives the
	// script an empty, private search path.
	Paths *searchpath.Journal

	// Libraries lists preloaded native libraries for sys.nativeLibraries()
	Libraries func() []string
}

// PanicError is a Go panic recovered while the script ran
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
